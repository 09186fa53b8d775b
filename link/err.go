package link

import (
	"errors"
	"strings"

	"github.com/ezrec/sicxe/translate"
)

var f = translate.From

var (
	ErrUnresolved      = errors.New(f("unresolved external symbol"))
	ErrExportDuplicate = errors.New(f("export duplicated"))
	ErrEntryUndefined  = errors.New(f("entry symbol undefined"))
	ErrNoModules       = errors.New(f("no modules"))
)

// ErrSymbol is a link error for a single symbol.
type ErrSymbol struct {
	Name    string   // Symbol name.
	Modules []string // Modules involved, sorted.
	Err     error
}

func (err *ErrSymbol) Error() string {
	return f("%v (%v): %v", err.Name, strings.Join(err.Modules, ","), err.Err)
}

func (err *ErrSymbol) Unwrap() error {
	return err.Err
}

// ErrFixup is a fixup that could not be applied.
type ErrFixup struct {
	Module  string
	Address int
	Symbol  string
	Err     error
}

func (err *ErrFixup) Error() string {
	if len(err.Symbol) == 0 {
		return f("%v: fixup %06X: %v", err.Module, err.Address, err.Err)
	}
	return f("%v: fixup %06X %v: %v", err.Module, err.Address, err.Symbol, err.Err)
}

func (err *ErrFixup) Unwrap() error {
	return err.Err
}
