// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"iter"
	"slices"
	"strings"
)

// Format is the instruction format, which is also its length in bytes.
type Format int

const (
	FORMAT_1 = Format(1) // opcode only
	FORMAT_2 = Format(2) // opcode, r1, r2
	FORMAT_3 = Format(3) // opcode, nixbpe, 12-bit displacement
	FORMAT_4 = Format(4) // opcode, nixbpe, 20-bit address
)

// Len returns the encoded length in bytes.
func (format Format) Len() int {
	return int(format)
}

// OperandKind is the operand arity and kind of a mnemonic.
type OperandKind int

const (
	OPERAND_NONE = OperandKind(0) // no operand
	OPERAND_R1   = OperandKind(1) // r1
	OPERAND_R1R2 = OperandKind(2) // r1,r2
	OPERAND_R1N  = OperandKind(3) // r1,n (n is stored as n-1)
	OPERAND_N    = OperandKind(4) // n
	OPERAND_M    = OperandKind(5) // memory address
)

// Opcodes of the SIC/XE instruction set.
const (
	OPCODE_ADD    = byte(0x18)
	OPCODE_ADDF   = byte(0x58)
	OPCODE_ADDR   = byte(0x90)
	OPCODE_AND    = byte(0x40)
	OPCODE_CLEAR  = byte(0xB4)
	OPCODE_COMP   = byte(0x28)
	OPCODE_COMPF  = byte(0x88)
	OPCODE_COMPR  = byte(0xA0)
	OPCODE_DIV    = byte(0x24)
	OPCODE_DIVF   = byte(0x64)
	OPCODE_DIVR   = byte(0x9C)
	OPCODE_FIX    = byte(0xC4)
	OPCODE_FLOAT  = byte(0xC0)
	OPCODE_HIO    = byte(0xF4)
	OPCODE_J      = byte(0x3C)
	OPCODE_JEQ    = byte(0x30)
	OPCODE_JGT    = byte(0x34)
	OPCODE_JLT    = byte(0x38)
	OPCODE_JSUB   = byte(0x48)
	OPCODE_LDA    = byte(0x00)
	OPCODE_LDB    = byte(0x68)
	OPCODE_LDCH   = byte(0x50)
	OPCODE_LDF    = byte(0x70)
	OPCODE_LDL    = byte(0x08)
	OPCODE_LDS    = byte(0x6C)
	OPCODE_LDT    = byte(0x74)
	OPCODE_LDX    = byte(0x04)
	OPCODE_LPS    = byte(0xD0)
	OPCODE_MUL    = byte(0x20)
	OPCODE_MULF   = byte(0x60)
	OPCODE_MULR   = byte(0x98)
	OPCODE_NORM   = byte(0xC8)
	OPCODE_OR     = byte(0x44)
	OPCODE_RD     = byte(0xD8)
	OPCODE_RMO    = byte(0xAC)
	OPCODE_RSUB   = byte(0x4C)
	OPCODE_SHIFTL = byte(0xA4)
	OPCODE_SHIFTR = byte(0xA8)
	OPCODE_SIO    = byte(0xF0)
	OPCODE_SSK    = byte(0xEC)
	OPCODE_STA    = byte(0x0C)
	OPCODE_STB    = byte(0x78)
	OPCODE_STCH   = byte(0x54)
	OPCODE_STF    = byte(0x80)
	OPCODE_STI    = byte(0xD4)
	OPCODE_STL    = byte(0x14)
	OPCODE_STS    = byte(0x7C)
	OPCODE_STSW   = byte(0xE8)
	OPCODE_STT    = byte(0x84)
	OPCODE_STX    = byte(0x10)
	OPCODE_SUB    = byte(0x1C)
	OPCODE_SUBF   = byte(0x5C)
	OPCODE_SUBR   = byte(0x94)
	OPCODE_SVC    = byte(0xB0)
	OPCODE_TD     = byte(0xE0)
	OPCODE_TIO    = byte(0xF8)
	OPCODE_TIX    = byte(0x2C)
	OPCODE_TIXR   = byte(0xB8)
	OPCODE_WD     = byte(0xDC)
)

// Op is a single entry of the instruction catalog.
type Op struct {
	Mnemonic string      // Upper case mnemonic.
	Opcode   byte        // Opcode byte, low two bits clear.
	Format   Format      // FORMAT_1, FORMAT_2, or FORMAT_3 for the 3/4 family.
	Operand  OperandKind // Operand arity and kind.
}

// Extendable returns true if the mnemonic may be assembled in format 4.
func (op *Op) Extendable() bool {
	return op.Format == FORMAT_3
}

// catalog is the closed set of SIC/XE mnemonics.
var catalog = []Op{
	{"ADD", OPCODE_ADD, FORMAT_3, OPERAND_M},
	{"ADDF", OPCODE_ADDF, FORMAT_3, OPERAND_M},
	{"ADDR", OPCODE_ADDR, FORMAT_2, OPERAND_R1R2},
	{"AND", OPCODE_AND, FORMAT_3, OPERAND_M},
	{"CLEAR", OPCODE_CLEAR, FORMAT_2, OPERAND_R1},
	{"COMP", OPCODE_COMP, FORMAT_3, OPERAND_M},
	{"COMPF", OPCODE_COMPF, FORMAT_3, OPERAND_M},
	{"COMPR", OPCODE_COMPR, FORMAT_2, OPERAND_R1R2},
	{"DIV", OPCODE_DIV, FORMAT_3, OPERAND_M},
	{"DIVF", OPCODE_DIVF, FORMAT_3, OPERAND_M},
	{"DIVR", OPCODE_DIVR, FORMAT_2, OPERAND_R1R2},
	{"FIX", OPCODE_FIX, FORMAT_1, OPERAND_NONE},
	{"FLOAT", OPCODE_FLOAT, FORMAT_1, OPERAND_NONE},
	{"HIO", OPCODE_HIO, FORMAT_1, OPERAND_NONE},
	{"J", OPCODE_J, FORMAT_3, OPERAND_M},
	{"JEQ", OPCODE_JEQ, FORMAT_3, OPERAND_M},
	{"JGT", OPCODE_JGT, FORMAT_3, OPERAND_M},
	{"JLT", OPCODE_JLT, FORMAT_3, OPERAND_M},
	{"JSUB", OPCODE_JSUB, FORMAT_3, OPERAND_M},
	{"LDA", OPCODE_LDA, FORMAT_3, OPERAND_M},
	{"LDB", OPCODE_LDB, FORMAT_3, OPERAND_M},
	{"LDCH", OPCODE_LDCH, FORMAT_3, OPERAND_M},
	{"LDF", OPCODE_LDF, FORMAT_3, OPERAND_M},
	{"LDL", OPCODE_LDL, FORMAT_3, OPERAND_M},
	{"LDS", OPCODE_LDS, FORMAT_3, OPERAND_M},
	{"LDT", OPCODE_LDT, FORMAT_3, OPERAND_M},
	{"LDX", OPCODE_LDX, FORMAT_3, OPERAND_M},
	{"LPS", OPCODE_LPS, FORMAT_3, OPERAND_M},
	{"MUL", OPCODE_MUL, FORMAT_3, OPERAND_M},
	{"MULF", OPCODE_MULF, FORMAT_3, OPERAND_M},
	{"MULR", OPCODE_MULR, FORMAT_2, OPERAND_R1R2},
	{"NORM", OPCODE_NORM, FORMAT_1, OPERAND_NONE},
	{"OR", OPCODE_OR, FORMAT_3, OPERAND_M},
	{"RD", OPCODE_RD, FORMAT_3, OPERAND_M},
	{"RMO", OPCODE_RMO, FORMAT_2, OPERAND_R1R2},
	{"RSUB", OPCODE_RSUB, FORMAT_3, OPERAND_NONE},
	{"SHIFTL", OPCODE_SHIFTL, FORMAT_2, OPERAND_R1N},
	{"SHIFTR", OPCODE_SHIFTR, FORMAT_2, OPERAND_R1N},
	{"SIO", OPCODE_SIO, FORMAT_1, OPERAND_NONE},
	{"SSK", OPCODE_SSK, FORMAT_3, OPERAND_M},
	{"STA", OPCODE_STA, FORMAT_3, OPERAND_M},
	{"STB", OPCODE_STB, FORMAT_3, OPERAND_M},
	{"STCH", OPCODE_STCH, FORMAT_3, OPERAND_M},
	{"STF", OPCODE_STF, FORMAT_3, OPERAND_M},
	{"STI", OPCODE_STI, FORMAT_3, OPERAND_M},
	{"STL", OPCODE_STL, FORMAT_3, OPERAND_M},
	{"STS", OPCODE_STS, FORMAT_3, OPERAND_M},
	{"STSW", OPCODE_STSW, FORMAT_3, OPERAND_M},
	{"STT", OPCODE_STT, FORMAT_3, OPERAND_M},
	{"STX", OPCODE_STX, FORMAT_3, OPERAND_M},
	{"SUB", OPCODE_SUB, FORMAT_3, OPERAND_M},
	{"SUBF", OPCODE_SUBF, FORMAT_3, OPERAND_M},
	{"SUBR", OPCODE_SUBR, FORMAT_2, OPERAND_R1R2},
	{"SVC", OPCODE_SVC, FORMAT_2, OPERAND_N},
	{"TD", OPCODE_TD, FORMAT_3, OPERAND_M},
	{"TIO", OPCODE_TIO, FORMAT_1, OPERAND_NONE},
	{"TIX", OPCODE_TIX, FORMAT_3, OPERAND_M},
	{"TIXR", OPCODE_TIXR, FORMAT_2, OPERAND_R1},
	{"WD", OPCODE_WD, FORMAT_3, OPERAND_M},
}

var (
	mnemonicMap = map[string]*Op{}
	opcodeMap   [64]*Op // Indexed by the upper six bits of the opcode.
)

func init() {
	for n := range catalog {
		op := &catalog[n]
		mnemonicMap[op.Mnemonic] = op
		opcodeMap[op.Opcode>>2] = op
	}
}

// Lookup finds a catalog entry by mnemonic, ignoring case.
func Lookup(mnemonic string) (op *Op, ok bool) {
	op, ok = mnemonicMap[strings.ToUpper(mnemonic)]
	return
}

// LookupOpcode finds a catalog entry by the upper six bits of an opcode byte.
func LookupOpcode(code byte) (op *Op, ok bool) {
	op = opcodeMap[code>>2]
	ok = op != nil
	return
}

// Catalog returns an iterator over all catalog entries, in mnemonic order.
func Catalog() iter.Seq[*Op] {
	return func(yield func(op *Op) bool) {
		for n := range catalog {
			if !yield(&catalog[n]) {
				return
			}
		}
	}
}

// Mnemonics returns the sorted list of known mnemonics.
func Mnemonics() (names []string) {
	for op := range Catalog() {
		names = append(names, op.Mnemonic)
	}
	slices.Sort(names)
	return
}
