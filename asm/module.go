package asm

import (
	"context"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ezrec/sicxe/object"
)

// Module is an assembled program unit.
type Module struct {
	Name     string         // Program name, from the START label.
	Start    int            // START address; segment bases are absolute from here.
	Length   int            // Bytes spanned, including reservations.
	Program  Program        // Flattened program, with addresses assigned.
	Symbols  *SymbolTable   // Final symbol table.
	Exports  []*Symbol      // Exported symbols, in declaration order.
	Imports  []string       // Sorted imported symbol names.
	Binary   *object.Binary // Object code and fixups.
	Listing  *Listing       // Assembly listing.
	Warnings []string       // Non-fatal diagnostics.
}

// Export returns the absolute address of an exported symbol.
func (mod *Module) Export(name string) (address int, ok bool) {
	for _, sym := range mod.Exports {
		if sym.Name != name {
			continue
		}
		address = sym.Address
		if !sym.Absolute {
			address += mod.Start
		}
		ok = true
		break
	}
	return
}

// Source is a named assembly input.
type Source struct {
	Name  string
	Input io.Reader
}

// AssembleAll assembles independent sources concurrently. Modules are
// returned in source order; every failing source contributes an
// *ErrModule to the returned error.
func (asm *Assembler) AssembleAll(ctx context.Context, sources []Source) (mods []*Module, err error) {
	mods = make([]*Module, len(sources))
	errs := make([]error, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for n, src := range sources {
		g.Go(func() error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				errs[n] = &ErrModule{Name: src.Name, Err: ctxErr}
				return nil
			}
			mod, modErr := asm.AssembleSource(src.Name, src.Input)
			if modErr != nil {
				errs[n] = &ErrModule{Name: src.Name, Err: modErr}
				return nil
			}
			mods[n] = mod
			return nil
		})
	}

	_ = g.Wait()

	var el ErrList
	for _, modErr := range errs {
		if modErr != nil {
			el = append(el, modErr)
		}
	}

	err = el.Err()
	if err != nil {
		mods = nil
	}
	return
}
