package asm

import (
	"strings"

	"github.com/ezrec/sicxe/cpu"
)

// DirectiveKind is an assembler directive.
type DirectiveKind int

const (
	DIRECTIVE_START  = DirectiveKind(0) // START
	DIRECTIVE_END    = DirectiveKind(1) // END
	DIRECTIVE_BYTE   = DirectiveKind(2) // BYTE
	DIRECTIVE_WORD   = DirectiveKind(3) // WORD
	DIRECTIVE_RESB   = DirectiveKind(4) // RESB
	DIRECTIVE_RESW   = DirectiveKind(5) // RESW
	DIRECTIVE_BASE   = DirectiveKind(6) // BASE
	DIRECTIVE_NOBASE = DirectiveKind(7) // NOBASE
	DIRECTIVE_LTORG  = DirectiveKind(8) // LTORG
	DIRECTIVE_EQU    = DirectiveKind(9) // EQU
)

var directiveNames = [...]string{
	DIRECTIVE_START:  "START",
	DIRECTIVE_END:    "END",
	DIRECTIVE_BYTE:   "BYTE",
	DIRECTIVE_WORD:   "WORD",
	DIRECTIVE_RESB:   "RESB",
	DIRECTIVE_RESW:   "RESW",
	DIRECTIVE_BASE:   "BASE",
	DIRECTIVE_NOBASE: "NOBASE",
	DIRECTIVE_LTORG:  "LTORG",
	DIRECTIVE_EQU:    "EQU",
}

func (kind DirectiveKind) String() string {
	return directiveNames[kind]
}

// ParseDirective converts a directive name, ignoring case.
func ParseDirective(name string) (kind DirectiveKind, ok bool) {
	name = strings.ToUpper(name)
	for n, dirName := range directiveNames {
		if dirName == name {
			return DirectiveKind(n), true
		}
	}
	return
}

// Position is the source location of a line.
type Position struct {
	LineNo  int    // 1-based source line number.
	Source  string // Source text, without comment.
	Comment string // Trailing comment, if any.
}

// Pos returns the source location.
func (pos Position) Pos() Position {
	return pos
}

// Line is one statement of a program: *Instruction, *Directive, *Import,
// or *Export.
type Line interface {
	Pos() Position
	isLine()
}

// OperandKind selects between register and address operands.
type OperandKind int

const (
	OPERAND_ADDRESS  = OperandKind(0) // Address, symbol, expression, or count.
	OPERAND_REGISTER = OperandKind(1) // Register name.
)

// Operand is a single instruction operand.
type Operand struct {
	Kind      OperandKind
	Value     int    // Register number, or numeric value if HasValue.
	HasValue  bool   // Set if Value holds a resolved constant.
	Symbol    string // Referenced symbol, for plain symbol operands.
	Expr      string // Expression text, for computed operands.
	Literal   string // Literal text (=C'..' or =X'..') before pool flattening.
	Indirect  bool   // '@' prefix.
	Immediate bool   // '#' prefix.
	Indexed   bool   // ',X' suffix.
}

// Addressing returns the codec addressing mode of the operand.
func (opnd Operand) Addressing() cpu.Addressing {
	switch {
	case opnd.Immediate:
		return cpu.ADDR_IMMEDIATE
	case opnd.Indirect:
		return cpu.ADDR_INDIRECT
	}
	return cpu.ADDR_SIMPLE
}

// Instruction is a machine instruction statement.
type Instruction struct {
	Position
	Label    string
	Op       *cpu.Op
	Extended bool // '+' prefix, format 4.
	Legacy   bool // '*' prefix, SIC format 3.
	Operands []Operand
	Address  int // Assigned by pass one, relative to START.
}

// Format returns the encoded format of the instruction.
func (ins *Instruction) Format() cpu.Format {
	switch {
	case ins.Op.Format != cpu.FORMAT_3:
		return ins.Op.Format
	case ins.Extended:
		return cpu.FORMAT_4
	}
	return cpu.FORMAT_3
}

// Directive is an assembler directive statement.
type Directive struct {
	Position
	Kind    DirectiveKind
	Label   string
	Operand string // Raw operand text.
	Literal bool   // Generated by literal pool flattening.
	Address int    // Assigned by pass one, relative to START.
	Size    int    // Bytes emitted or reserved, assigned by pass one.
}

// Import declares an externally defined symbol.
type Import struct {
	Position
	Label string
}

// Export declares a symbol visible to other modules.
type Export struct {
	Position
	Label string
}

func (*Instruction) isLine() {}
func (*Directive) isLine()   {}
func (*Import) isLine()      {}
func (*Export) isLine()      {}

// Program is the ordered sequence of source lines.
type Program []Line

// Clone returns a deep copy of the program.
func (prog Program) Clone() (clone Program) {
	clone = make(Program, 0, len(prog))
	for _, line := range prog {
		switch l := line.(type) {
		case *Instruction:
			ins := *l
			ins.Operands = append([]Operand(nil), l.Operands...)
			clone = append(clone, &ins)
		case *Directive:
			dir := *l
			clone = append(clone, &dir)
		case *Import:
			imp := *l
			clone = append(clone, &imp)
		case *Export:
			exp := *l
			clone = append(clone, &exp)
		}
	}
	return
}
