package asm

import (
	"iter"
	"slices"
)

// Symbol is a named program location or constant.
type Symbol struct {
	Name         string
	Address      int    // Relative to START, unless Absolute.
	Defined      bool   // Set once Address has been assigned.
	Absolute     bool   // Constant value, not relocated on load.
	Imported     bool   // Defined by another module.
	IsLiteral    bool   // Synthetic literal pool symbol.
	LiteralBytes []byte // Literal value, if IsLiteral.
	LineNo       int    // Line of definition.
}

// Assign sets the address of the symbol. An address may only be assigned once.
func (sym *Symbol) Assign(address int) (err error) {
	if sym.Defined {
		err = &ErrSymbol{Name: sym.Name, Err: ErrSymbolRedefined}
		return
	}
	sym.Address = address
	sym.Defined = true
	return
}

// SymbolTable maps names to symbols, in order of first appearance.
type SymbolTable struct {
	symbols map[string]*Symbol
	order   []string
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		symbols: map[string]*Symbol{},
	}
}

// Lookup finds a symbol by name.
func (st *SymbolTable) Lookup(name string) (sym *Symbol, ok bool) {
	sym, ok = st.symbols[name]
	return
}

// Reference returns the named symbol, creating it with no address if needed.
func (st *SymbolTable) Reference(name string) (sym *Symbol) {
	sym, ok := st.symbols[name]
	if !ok {
		sym = &Symbol{Name: name}
		st.symbols[name] = sym
		st.order = append(st.order, name)
	}
	return
}

// Define assigns an address to the named symbol.
func (st *SymbolTable) Define(name string, address int, lineno int) (sym *Symbol, err error) {
	sym = st.Reference(name)
	switch {
	case sym.Imported:
		err = &ErrSymbol{Name: name, Err: ErrSymbolImported}
		return
	case sym.Defined:
		err = &ErrSymbol{Name: name, Err: ErrSymbolDuplicate}
		return
	}

	sym.LineNo = lineno
	err = sym.Assign(address)
	return
}

// Import marks the named symbol as externally defined.
func (st *SymbolTable) Import(name string) (sym *Symbol, err error) {
	sym = st.Reference(name)
	if sym.Defined {
		err = &ErrSymbol{Name: name, Err: ErrSymbolImported}
		return
	}
	sym.Imported = true
	return
}

// All iterates over the symbols in order of first appearance.
func (st *SymbolTable) All() iter.Seq2[string, *Symbol] {
	return func(yield func(string, *Symbol) bool) {
		for _, name := range st.order {
			if !yield(name, st.symbols[name]) {
				return
			}
		}
	}
}

// Undefined returns the sorted names of referenced symbols that have no
// address and are not imported.
func (st *SymbolTable) Undefined() (names []string) {
	for name, sym := range st.All() {
		if !sym.Defined && !sym.Imported {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return
}

// Len returns the number of symbols in the table.
func (st *SymbolTable) Len() int {
	return len(st.order)
}
