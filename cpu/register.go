package cpu

import (
	"strings"
)

const (
	WORD_SIZE   = 3        // Bytes per word.
	WORD_MASK   = 0xFFFFFF // Mask of a 24-bit word.
	FLOAT_SIZE  = 6        // Bytes per floating point value.
	MEMORY_SIZE = 1 << 20  // Addressable memory in bytes.
)

// Register is a register number, as used in format 2 instructions.
type Register int

const (
	REG_A  = Register(0) // A
	REG_X  = Register(1) // X
	REG_L  = Register(2) // L
	REG_B  = Register(3) // B
	REG_S  = Register(4) // S
	REG_T  = Register(5) // T
	REG_F  = Register(6) // F
	REG_PC = Register(8) // PC
	REG_SW = Register(9) // SW
)

var registerNames = map[Register]string{
	REG_A:  "A",
	REG_X:  "X",
	REG_L:  "L",
	REG_B:  "B",
	REG_S:  "S",
	REG_T:  "T",
	REG_F:  "F",
	REG_PC: "PC",
	REG_SW: "SW",
}

// Valid returns true if the register number names a register.
func (reg Register) Valid() bool {
	_, ok := registerNames[reg]
	return ok
}

func (reg Register) String() string {
	name, ok := registerNames[reg]
	if !ok {
		return f("R%d", int(reg))
	}
	return name
}

// ParseRegister converts a register name into a register number.
func ParseRegister(name string) (reg Register, ok bool) {
	name = strings.ToUpper(name)
	for reg, regName := range registerNames {
		if regName == name {
			return reg, true
		}
	}
	return
}

// Condition is the three-valued condition code held in SW.
type Condition int

const (
	CC_EQ = Condition(0) // =
	CC_LT = Condition(1) // <
	CC_GT = Condition(2) // >
)

func (cc Condition) String() string {
	switch cc {
	case CC_EQ:
		return "="
	case CC_LT:
		return "<"
	case CC_GT:
		return ">"
	}
	return "?"
}

// compare returns the condition code for a signed comparison of a and b.
func compare[T int | float64](a, b T) Condition {
	switch {
	case a < b:
		return CC_LT
	case a > b:
		return CC_GT
	}
	return CC_EQ
}

// signExtend interprets the low 'bits' bits of value as two's complement.
func signExtend(value int, bits uint) int {
	shift := 64 - bits
	return int(int64(uint64(value)<<shift) >> shift)
}

// Signed interprets a 24-bit word as a signed integer.
func Signed(word uint32) int {
	return signExtend(int(word&WORD_MASK), 24)
}
