// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"errors"
	"io"
	"log"
	"slices"
	"strconv"

	"github.com/ezrec/sicxe/cpu"
	"github.com/ezrec/sicxe/object"
)

// passState is the position of pass one relative to START and END.
type passState int

const (
	STATE_BEFORE_START = passState(0)
	STATE_IN_BODY      = passState(1)
	STATE_AFTER_END    = passState(2)
)

// Assembler is a two pass assembler for SIC/XE programs.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]int // Predefined absolute symbols.
}

// Predefine defines an absolute symbol visible to every assembly.
func (asm *Assembler) Predefine(name string, value int) {
	if asm.predefine == nil {
		asm.predefine = map[string]int{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// assembly is the state of a single module assembly.
type assembly struct {
	*Assembler
	name     string
	program  Program
	symbols  *SymbolTable
	state    passState
	start    int
	length   int
	exports  []*Export
	refs     map[string]Position // First reference of each symbol.
	warnings []string
	errs     ErrList
}

// warn records a non-fatal diagnostic.
func (a *assembly) warn(format string, args ...any) {
	msg := f(format, args...)
	if a.Verbose {
		log.Printf("%v: %v", a.name, msg)
	}
	a.warnings = append(a.warnings, msg)
}

// syntaxError attaches a line position to an error.
func syntaxError(pos Position, err error) error {
	return &ErrSyntax{LineNo: pos.LineNo, Line: pos.Source, Err: err}
}

// fatal returns the accumulated errors with a final fatal error.
func (a *assembly) fatal(err error) error {
	return append(a.errs, err)
}

// define assigns an address to a label, if present.
func (a *assembly) define(label string, address int, pos Position) (sym *Symbol, err error) {
	if len(label) == 0 {
		return
	}
	sym, err = a.symbols.Define(label, address, pos.LineNo)
	return
}

// referenceName registers a symbol use at a source position.
func (a *assembly) referenceName(name string, pos Position) {
	a.symbols.Reference(name)
	if _, ok := a.refs[name]; !ok {
		a.refs[name] = pos
	}
}

// referenceExpr registers every symbol an expression uses.
func (a *assembly) referenceExpr(expr string, pos Position) {
	for _, name := range exprSymbols(expr) {
		a.referenceName(name, pos)
	}
}

// reference registers every symbol an operand uses.
func (a *assembly) reference(opnd Operand, pos Position) {
	switch {
	case len(opnd.Symbol) > 0:
		a.referenceName(opnd.Symbol, pos)
	case len(opnd.Expr) > 0:
		a.referenceExpr(opnd.Expr, pos)
	}
}

// undefined reports, once per name, every referenced symbol that pass one
// left without an address.
func (a *assembly) undefined() {
	for _, name := range a.symbols.Undefined() {
		a.errs = append(a.errs, syntaxError(a.refs[name], &ErrSymbol{Name: name, Err: ErrSymbolUndefined}))
	}
}

// count resolves the absolute operand of a reservation directive.
func (a *assembly) count(dir *Directive, here int) (count int, err error) {
	count, relocatable, err := a.resolve(dir.Operand, here)
	switch {
	case err != nil:
	case relocatable || count < 0:
		err = ErrCountInvalid
	}
	return
}

// placeDirective defines the label of a directive and returns its size.
func (a *assembly) placeDirective(dir *Directive, locctr int) (size int, err error) {
	pos := dir.Position

	switch dir.Kind {
	case DIRECTIVE_BYTE:
		var data []byte
		data, err = parseConstant(dir.Operand)
		if err != nil {
			return
		}
		size = len(data)
		var sym *Symbol
		sym, err = a.define(dir.Label, locctr, pos)
		if sym != nil && dir.Literal {
			sym.IsLiteral = true
			sym.LiteralBytes = data
		}
	case DIRECTIVE_WORD:
		size = cpu.WORD_SIZE
		a.referenceExpr(dir.Operand, pos)
		_, err = a.define(dir.Label, locctr, pos)
	case DIRECTIVE_RESB, DIRECTIVE_RESW:
		size, err = a.count(dir, locctr)
		if err != nil {
			return
		}
		if dir.Kind == DIRECTIVE_RESW {
			size *= cpu.WORD_SIZE
		}
		_, err = a.define(dir.Label, locctr, pos)
	case DIRECTIVE_EQU:
		var value int
		var relocatable bool
		value, relocatable, err = a.resolve(dir.Operand, locctr)
		if err != nil {
			return
		}
		var sym *Symbol
		sym, err = a.define(dir.Label, value, pos)
		if sym != nil && err == nil {
			sym.Absolute = !relocatable
		}
	case DIRECTIVE_BASE:
		a.referenceExpr(dir.Operand, pos)
		_, err = a.define(dir.Label, locctr, pos)
	case DIRECTIVE_END:
		a.state = STATE_AFTER_END
		if len(dir.Operand) > 0 {
			a.referenceExpr(dir.Operand, pos)
		}
		_, err = a.define(dir.Label, locctr, pos)
	default:
		_, err = a.define(dir.Label, locctr, pos)
	}

	return
}

// passOne assigns addresses to every line and defines every label.
func (a *assembly) passOne() (err error) {
	var locctr int

	for name, value := range a.predefine {
		sym, _ := a.symbols.Define(name, value, 0)
		sym.Absolute = true
	}

	for _, line := range a.program {
		pos := line.Pos()

		if dir, ok := line.(*Directive); ok && dir.Kind == DIRECTIVE_START {
			switch a.state {
			case STATE_IN_BODY:
				err = a.fatal(syntaxError(pos, ErrStartDuplicate))
				return
			case STATE_AFTER_END:
				err = a.fatal(syntaxError(pos, ErrAfterEnd))
				return
			}
			start, parseErr := strconv.ParseUint(dir.Operand, 16, 20)
			if parseErr != nil {
				err = a.fatal(syntaxError(pos, ErrOperandInvalid))
				return
			}
			a.state = STATE_IN_BODY
			a.start = int(start)
			if len(dir.Label) > 0 {
				a.name = dir.Label
				_, lineErr := a.define(dir.Label, 0, pos)
				if lineErr != nil {
					a.errs = append(a.errs, syntaxError(pos, lineErr))
				}
			}
			continue
		}

		switch a.state {
		case STATE_BEFORE_START:
			err = a.fatal(syntaxError(pos, ErrBeforeStart))
			return
		case STATE_AFTER_END:
			err = a.fatal(syntaxError(pos, ErrAfterEnd))
			return
		}

		var size int
		var lineErr error

		switch l := line.(type) {
		case *Instruction:
			l.Address = locctr
			size = l.Format().Len()
			_, lineErr = a.define(l.Label, locctr, pos)
			for _, opnd := range l.Operands {
				a.reference(opnd, pos)
			}
		case *Directive:
			l.Address = locctr
			size, lineErr = a.placeDirective(l, locctr)
			l.Size = size
		case *Import:
			_, lineErr = a.symbols.Import(l.Label)
		case *Export:
			a.exports = append(a.exports, l)
		}

		if lineErr != nil {
			a.errs = append(a.errs, syntaxError(pos, lineErr))
		}

		locctr += size
	}

	switch a.state {
	case STATE_BEFORE_START:
		err = a.fatal(ErrStartMissing)
		return
	case STATE_IN_BODY:
		a.warn("END missing")
	}

	a.length = locctr

	for _, exp := range a.exports {
		sym, ok := a.symbols.Lookup(exp.Label)
		switch {
		case ok && sym.Imported:
			a.errs = append(a.errs, syntaxError(exp.Position, &ErrSymbol{Name: exp.Label, Err: ErrSymbolImported}))
		case !ok || !sym.Defined:
			a.errs = append(a.errs, syntaxError(exp.Position, &ErrSymbol{Name: exp.Label, Err: ErrSymbolUndefined}))
		}
	}

	a.undefined()

	return
}

// target resolves an address operand into a codec target. The returned
// fixup is valid if fixed is set.
func (a *assembly) target(ins *Instruction, opnd Operand, cins *cpu.Instruction, ctx *cpu.Context) (fix object.Fixup, fixed bool, err error) {
	value := opnd.Value
	relocatable := false

	switch {
	case opnd.HasValue:
	case len(opnd.Symbol) > 0:
		sym, ok := a.symbols.Lookup(opnd.Symbol)
		switch {
		case ok && sym.Imported:
			if cins.Format != cpu.FORMAT_4 {
				err = &cpu.ErrAddressing{Mnemonic: ins.Op.Mnemonic, Err: ErrExternalFormat}
				return
			}
			cins.Symbolic = true
			ctx.LoadBase = 0
			fix = object.Fixup{Address: a.start + ins.Address, Kind: object.FIXUP_EXTENDED, Symbol: sym.Name}
			fixed = true
			return
		case !ok || !sym.Defined:
			err = &ErrSymbol{Name: opnd.Symbol, Err: ErrSymbolUndefined}
			return
		}
		value = sym.Address
		relocatable = !sym.Absolute
	default:
		value, relocatable, err = a.resolve(opnd.Expr, ins.Address)
		if err != nil {
			return
		}
	}

	switch {
	case relocatable:
		cins.Target = value
		cins.Symbolic = true
		if cins.Format == cpu.FORMAT_4 {
			fix = object.Fixup{Address: a.start + ins.Address, Kind: object.FIXUP_EXTENDED}
			fixed = true
		}
	case opnd.Immediate:
		cins.Target = value
	default:
		// Absolute addresses stay put wherever the module is loaded.
		cins.Target = value
		cins.Absolute = true
	}

	return
}

// encode converts an instruction line into bytes.
func (a *assembly) encode(ins *Instruction, ctx cpu.Context) (data []byte, fix object.Fixup, fixed bool, err error) {
	cins := cpu.Instruction{
		Op:      ins.Op,
		Format:  ins.Format(),
		Address: ins.Address,
	}

	opnds := ins.Operands
	switch ins.Op.Operand {
	case cpu.OPERAND_R1:
		cins.R1 = opnds[0].Value
	case cpu.OPERAND_R1R2:
		cins.R1 = opnds[0].Value
		cins.R2 = opnds[1].Value
	case cpu.OPERAND_R1N:
		cins.R1 = opnds[0].Value
		cins.R2 = opnds[1].Value - 1
	case cpu.OPERAND_N:
		cins.R1 = opnds[0].Value
	case cpu.OPERAND_M:
		opnd := opnds[0]
		cins.Addressing = opnd.Addressing()
		if ins.Legacy {
			cins.Addressing = cpu.ADDR_LEGACY
		}
		cins.Indexed = opnd.Indexed
		fix, fixed, err = a.target(ins, opnd, &cins, &ctx)
		if err != nil {
			return
		}
	}

	data, err = cpu.Encode(cins, ctx)
	return
}

// word computes the bytes of a WORD directive.
func (a *assembly) word(dir *Directive) (data []byte, fix object.Fixup, fixed bool, err error) {
	address := a.start + dir.Address

	if sym, ok := a.symbols.Lookup(dir.Operand); ok && sym.Imported {
		data = make([]byte, cpu.WORD_SIZE)
		fix = object.Fixup{Address: address, Kind: object.FIXUP_WORD, Symbol: sym.Name}
		fixed = true
		return
	}

	value, relocatable, err := a.resolve(dir.Operand, dir.Address)
	if err != nil {
		return
	}

	if relocatable {
		value += a.start
		fix = object.Fixup{Address: address, Kind: object.FIXUP_WORD}
		fixed = true
	}

	if value < -(1<<23) || value > cpu.WORD_MASK {
		err = ErrWordRange
		fixed = false
		return
	}

	w := uint32(value) & cpu.WORD_MASK
	data = []byte{byte(w >> 16), byte(w >> 8), byte(w)}
	return
}

// passTwo encodes every line into the module binary.
func (a *assembly) passTwo() (bin *object.Binary, listing *Listing, err error) {
	bin = &object.Binary{Entry: a.start}
	listing = &Listing{}

	var ctx cpu.Context
	ctx.LoadBase = a.start

	seg := object.Segment{Base: a.start}
	flush := func(next int) {
		if len(seg.Data) > 0 {
			bin.Segments = append(bin.Segments, seg)
		}
		seg = object.Segment{Base: a.start + next}
	}

	hasEntry := false

	for _, line := range a.program {
		pos := line.Pos()

		var data []byte
		var fix object.Fixup
		var fixed bool
		var lineErr error
		address := seg.End()

		switch l := line.(type) {
		case *Instruction:
			address = a.start + l.Address
			data, fix, fixed, lineErr = a.encode(l, ctx)
			var addrErr *cpu.ErrAddressing
			if errors.As(lineErr, &addrErr) {
				err = a.fatal(syntaxError(pos, lineErr))
				bin = nil
				listing = nil
				return
			}
			if lineErr != nil {
				data = make([]byte, l.Format().Len())
			}
		case *Directive:
			if l.Kind != DIRECTIVE_START {
				address = a.start + l.Address
			}
			switch l.Kind {
			case DIRECTIVE_BYTE:
				data, _ = parseConstant(l.Operand)
			case DIRECTIVE_WORD:
				data, fix, fixed, lineErr = a.word(l)
				if lineErr != nil {
					data = make([]byte, cpu.WORD_SIZE)
				}
			case DIRECTIVE_RESB, DIRECTIVE_RESW:
				flush(l.Address + l.Size)
			case DIRECTIVE_BASE:
				ctx.Base, _, lineErr = a.resolve(l.Operand, l.Address)
				ctx.HasBase = lineErr == nil
			case DIRECTIVE_NOBASE:
				ctx.HasBase = false
			case DIRECTIVE_END:
				if len(l.Operand) == 0 {
					break
				}
				value, relocatable, resolveErr := a.resolve(l.Operand, l.Address)
				if resolveErr != nil {
					lineErr = resolveErr
					break
				}
				if relocatable {
					value += a.start
				}
				bin.Entry = value
				hasEntry = true
			}
		}

		if lineErr != nil {
			a.errs = append(a.errs, syntaxError(pos, lineErr))
		}

		if fixed {
			bin.Fixups = append(bin.Fixups, fix)
		}

		seg.Data = append(seg.Data, data...)

		listing.Lines = append(listing.Lines, ListingLine{
			LineNo:  pos.LineNo,
			Address: address,
			Data:    data,
			Source:  pos.Source,
			Comment: pos.Comment,
		})
	}

	flush(0)

	if !hasEntry {
		if len(bin.Segments) > 0 {
			bin.Entry = bin.Segments[0].Base
		}
		a.warn("entry point missing, using %06X", bin.Entry)
	}

	if len(a.errs) > 0 {
		err = a.errs
		bin = nil
		listing = nil
	}

	return
}

// Assemble assembles a Program into a Module.
//
// Literal operands are flattened into a new Program first; the input is
// not modified.
func (asm *Assembler) Assemble(name string, prog Program) (mod *Module, err error) {
	a := &assembly{
		Assembler: asm,
		name:      name,
		program:   FlattenLiterals(prog),
		symbols:   NewSymbolTable(),
		refs:      map[string]Position{},
	}

	err = a.passOne()
	if err != nil {
		return
	}
	if len(a.errs) > 0 {
		err = a.errs
		return
	}

	bin, listing, err := a.passTwo()
	if err != nil {
		return
	}

	mod = &Module{
		Name:     a.name,
		Start:    a.start,
		Length:   a.length,
		Program:  a.program,
		Symbols:  a.symbols,
		Binary:   bin,
		Listing:  listing,
		Warnings: a.warnings,
	}

	for _, exp := range a.exports {
		sym, _ := a.symbols.Lookup(exp.Label)
		if !slices.Contains(mod.Exports, sym) {
			mod.Exports = append(mod.Exports, sym)
		}
	}

	for name, sym := range a.symbols.All() {
		if sym.Imported {
			mod.Imports = append(mod.Imports, name)
		}
	}
	slices.Sort(mod.Imports)

	if asm.Verbose {
		log.Printf("%v: %d bytes at %06X, %d symbols", mod.Name, mod.Length, mod.Start, a.symbols.Len())
	}

	return
}

// AssembleSource parses and assembles a source stream.
func (asm *Assembler) AssembleSource(name string, input io.Reader) (mod *Module, err error) {
	prog, err := asm.Parse(input)
	if err != nil {
		return
	}

	mod, err = asm.Assemble(name, prog)
	return
}
