// Package link places assembled modules in memory and resolves their
// imports against each other's exports.
package link

import (
	"iter"
	"log"
	"slices"

	"github.com/ezrec/sicxe/asm"
	"github.com/ezrec/sicxe/internal"
	"github.com/ezrec/sicxe/object"
)

// ExportedSymbol is an exported symbol at its final address.
type ExportedSymbol struct {
	Name    string // Symbol name.
	Module  string // Exporting module.
	Address int    // Absolute address after placement.
}

// Placement is the load location of one module.
type Placement struct {
	Module string // Module name.
	Base   int    // Load address of the module's START.
	Length int    // Bytes spanned by the module.
}

// Program is a linked set of modules.
type Program struct {
	Binary     *object.Binary            // Merged object code, fixups applied.
	Symbols    map[string]ExportedSymbol // Exports of every module.
	Placements []Placement               // Module placements, in link order.
}

// Linker places modules sequentially and resolves their fixups.
type Linker struct {
	Verbose bool   // If set, verbosely logs the linker actions.
	Base    int    // Load address of the first module.
	Entry   string // Entry symbol; if empty the first module's entry is used.
}

// place assigns a load address to every module.
func (lnk *Linker) place(mods []*asm.Module) (placements []Placement) {
	next := lnk.Base
	for _, mod := range mods {
		placements = append(placements, Placement{
			Module: mod.Name,
			Base:   next,
			Length: mod.Length,
		})
		next += mod.Length
	}
	return
}

// exports builds the export table. Duplicate exports are errors.
func exports(mods []*asm.Module, placements []Placement) (table map[string]ExportedSymbol, errs asm.ErrList) {
	table = map[string]ExportedSymbol{}
	dups := map[string][]string{}

	for n, mod := range mods {
		for _, sym := range mod.Exports {
			address := sym.Address
			if !sym.Absolute {
				address += placements[n].Base
			}
			if prior, ok := table[sym.Name]; ok {
				if len(dups[sym.Name]) == 0 {
					dups[sym.Name] = []string{prior.Module}
				}
				dups[sym.Name] = append(dups[sym.Name], mod.Name)
				continue
			}
			table[sym.Name] = ExportedSymbol{Name: sym.Name, Module: mod.Name, Address: address}
		}
	}

	for _, name := range internal.SortedKeys(dups) {
		modules := dups[name]
		slices.Sort(modules)
		errs = append(errs, &ErrSymbol{Name: name, Modules: modules, Err: ErrExportDuplicate})
	}

	return
}

// relocated returns a copy of a module binary moved to its placement.
func relocated(bin *object.Binary, delta int) (moved *object.Binary) {
	moved = &object.Binary{
		Entry:  bin.Entry,
		Fixups: slices.Clone(bin.Fixups),
	}
	for _, seg := range bin.Segments {
		moved.Segments = append(moved.Segments, object.Segment{
			Base: seg.Base,
			Data: slices.Clone(seg.Data),
		})
	}
	moved.Relocate(delta)
	return
}

// Link places every module and applies all fixups. Every unresolved
// import is reported, one error per distinct name; no Program is
// produced if any error occurs.
func (lnk *Linker) Link(mods []*asm.Module) (prog *Program, err error) {
	if len(mods) == 0 {
		err = ErrNoModules
		return
	}

	placements := lnk.place(mods)
	table, errs := exports(mods, placements)

	unresolved := map[string][]string{}
	var bins []*object.Binary

	for n, mod := range mods {
		delta := placements[n].Base - mod.Start
		bin := relocated(mod.Binary, delta)

		if lnk.Verbose {
			log.Printf("link: %v at %06X (%+d), %d fixups", mod.Name, placements[n].Base, delta, len(bin.Fixups))
		}

		for _, fix := range bin.Fixups {
			value := delta
			if len(fix.Symbol) > 0 {
				exp, ok := table[fix.Symbol]
				if !ok {
					if !slices.Contains(unresolved[fix.Symbol], mod.Name) {
						unresolved[fix.Symbol] = append(unresolved[fix.Symbol], mod.Name)
					}
					continue
				}
				value = exp.Address
			}
			patchErr := bin.Patch(fix, value)
			if patchErr != nil {
				errs = append(errs, &ErrFixup{Module: mod.Name, Address: fix.Address, Symbol: fix.Symbol, Err: patchErr})
			}
		}

		bin.Fixups = nil
		bins = append(bins, bin)
	}

	for _, name := range internal.SortedKeys(unresolved) {
		modules := unresolved[name]
		slices.Sort(modules)
		errs = append(errs, &ErrSymbol{Name: name, Modules: modules, Err: ErrUnresolved})
	}

	linked := &object.Binary{Entry: bins[0].Entry}
	if len(lnk.Entry) > 0 {
		exp, ok := table[lnk.Entry]
		if ok {
			linked.Entry = exp.Address
		} else {
			errs = append(errs, &ErrSymbol{Name: lnk.Entry, Err: ErrEntryUndefined})
		}
	}

	linked.Merge(&object.Binary{
		Segments: slices.Collect(internal.Concat(segments(bins)...)),
	})

	if validErr := linked.Validate(); validErr != nil {
		errs = append(errs, validErr)
	}

	err = errs.Err()
	if err != nil {
		return
	}

	prog = &Program{
		Binary:     linked,
		Symbols:    table,
		Placements: placements,
	}

	return
}

// segments returns an iterator over the segments of each binary.
func segments(bins []*object.Binary) (seqs []iter.Seq[object.Segment]) {
	for _, bin := range bins {
		seqs = append(seqs, slices.Values(bin.Segments))
	}
	return
}
