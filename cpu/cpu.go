// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
)

// RunResult is the outcome of executing an instruction.
type RunResult int

const (
	RUN_CONTINUE            = RunResult(0) // Instruction executed, continue.
	RUN_HALTED              = RunResult(1) // Jump to self.
	RUN_ILLEGAL_INSTRUCTION = RunResult(2) // Unknown or malformed instruction.
	RUN_UNSUPPORTED         = RunResult(3) // Device or privileged instruction.
	RUN_MEMORY_FAULT        = RunResult(4) // Access outside of memory.
	RUN_DIVIDE_BY_ZERO      = RunResult(5) // Integer or float division by zero.
	RUN_STEP_LIMIT          = RunResult(6) // Run() step budget exhausted.
)

var runResultNames = [...]string{
	RUN_CONTINUE:            "continue",
	RUN_HALTED:              "halted",
	RUN_ILLEGAL_INSTRUCTION: "illegal instruction",
	RUN_UNSUPPORTED:         "unsupported instruction",
	RUN_MEMORY_FAULT:        "memory fault",
	RUN_DIVIDE_BY_ZERO:      "divide by zero",
	RUN_STEP_LIMIT:          "step limit",
}

func (rr RunResult) String() string {
	if int(rr) < 0 || int(rr) >= len(runResultNames) {
		return f("result %d", int(rr))
	}
	return f(runResultNames[rr])
}

// Observer is notified synchronously after each machine state change.
// Observers must not modify the machine from within a callback.
type Observer interface {
	RegisterChanged(reg Register, value uint32)
	MemoryChanged(address int, data []byte)
}

// Machine is the simulation context for a SIC/XE processor and its memory.
type Machine struct {
	Verbose  bool     // Set to enable verbose logging.
	Observer Observer // Optional state change observer.

	Memory   []byte     // Byte addressed memory.
	Register [10]uint32 // Integer registers, indexed by Register. F is unused.
	F        float64    // Floating point accumulator.

	Ticks int // Executed instruction counter.
}

// NewMachine creates a new machine with 'size' bytes of memory.
func NewMachine(size int) (m *Machine) {
	m = &Machine{
		Memory: make([]byte, size),
	}

	return
}

// Reset clears memory and all registers.
func (m *Machine) Reset() {
	if m.Verbose {
		log.Printf("cpu: reset")
	}

	clear(m.Memory)
	clear(m.Register[:])
	m.F = 0
	m.Ticks = 0
}

// PC returns the program counter.
func (m *Machine) PC() int {
	return int(m.Register[REG_PC])
}

// Cond returns the current condition code.
func (m *Machine) Cond() Condition {
	return Condition(m.Register[REG_SW] & 0x3)
}

// SetRegister sets an integer register, or F via its integer value.
func (m *Machine) SetRegister(reg Register, value uint32) {
	if reg == REG_F {
		m.F = float64(Signed(value))
	} else {
		m.Register[reg] = value & WORD_MASK
	}

	if m.Observer != nil {
		m.Observer.RegisterChanged(reg, m.GetRegister(reg))
	}
}

// GetRegister gets an integer register, or F truncated to an integer.
func (m *Machine) GetRegister(reg Register) uint32 {
	if reg == REG_F {
		return uint32(int64(m.F)) & WORD_MASK
	}
	return m.Register[reg]
}

func (m *Machine) setFloat(value float64) {
	m.F = value
	if m.Observer != nil {
		m.Observer.RegisterChanged(REG_F, m.GetRegister(REG_F))
	}
}

func (m *Machine) setCond(cc Condition) {
	m.SetRegister(REG_SW, uint32(cc))
}

// Read returns a copy of 'size' bytes of memory at 'address'.
func (m *Machine) Read(address int, size int) (data []byte, ok bool) {
	if address < 0 || size < 0 || address+size > len(m.Memory) {
		return
	}
	return slices.Clone(m.Memory[address : address+size]), true
}

// Write stores bytes into memory at 'address'.
func (m *Machine) Write(address int, data []byte) (ok bool) {
	if address < 0 || address+len(data) > len(m.Memory) {
		return
	}
	copy(m.Memory[address:], data)
	if m.Observer != nil {
		m.Observer.MemoryChanged(address, slices.Clone(data))
	}
	return true
}

// ReadWord reads a 24-bit big-endian word.
func (m *Machine) ReadWord(address int) (word uint32, ok bool) {
	data, ok := m.Read(address, WORD_SIZE)
	if !ok {
		return
	}
	word = uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
	return
}

// WriteWord writes a 24-bit big-endian word.
func (m *Machine) WriteWord(address int, word uint32) (ok bool) {
	return m.Write(address, []byte{byte(word >> 16), byte(word >> 8), byte(word)})
}

// Fetch decodes the instruction at PC, using B as the base register.
func (m *Machine) Fetch() (ins Instruction, result RunResult) {
	pc := m.PC()
	if pc < 0 || pc >= len(m.Memory) {
		result = RUN_MEMORY_FAULT
		return
	}

	window := m.Memory[pc:min(pc+FORMAT_4.Len(), len(m.Memory))]
	ins, err := Decode(window, pc, Context{Base: int(m.Register[REG_B]), HasBase: true})
	switch {
	case errors.Is(err, ErrTruncated):
		result = RUN_MEMORY_FAULT
	case err != nil:
		result = RUN_ILLEGAL_INSTRUCTION
	}

	return
}

// Step executes a single instruction.
func (m *Machine) Step() (result RunResult) {
	ins, result := m.Fetch()
	if result != RUN_CONTINUE {
		if m.Verbose {
			log.Printf("%06X: %v", m.PC(), result)
		}
		return
	}

	if m.Verbose {
		log.Printf("%06X: %v", ins.Address, ins)
	}

	m.SetRegister(REG_PC, uint32(ins.Next()))
	m.Ticks++

	switch ins.Op.Format {
	case FORMAT_1:
		result = m.execFormat1(ins)
	case FORMAT_2:
		result = m.execFormat2(ins)
	default:
		result = m.execFormat34(ins)
	}

	if result != RUN_CONTINUE && m.Verbose {
		log.Printf("%06X: %v", ins.Address, result)
	}

	return
}

// Run executes until a terminal result, or 'limit' steps if limit > 0.
func (m *Machine) Run(limit int) (result RunResult) {
	for n := 0; limit <= 0 || n < limit; n++ {
		result = m.Step()
		if result != RUN_CONTINUE {
			return
		}
	}

	return RUN_STEP_LIMIT
}

func (m *Machine) execFormat1(ins Instruction) (result RunResult) {
	switch ins.Op.Opcode {
	case OPCODE_FIX:
		m.SetRegister(REG_A, uint32(int64(m.F)))
	case OPCODE_FLOAT:
		m.setFloat(float64(Signed(m.Register[REG_A])))
	case OPCODE_NORM:
		m.setFloat(m.F)
	default:
		result = RUN_UNSUPPORTED
	}

	return
}

func (m *Machine) execFormat2(ins Instruction) (result RunResult) {
	r1, r2 := Register(ins.R1), Register(ins.R2)

	switch ins.Op.Operand {
	case OPERAND_N:
		return RUN_UNSUPPORTED
	case OPERAND_R1, OPERAND_R1N:
		if !r1.Valid() {
			return RUN_ILLEGAL_INSTRUCTION
		}
	case OPERAND_R1R2:
		if !r1.Valid() || !r2.Valid() {
			return RUN_ILLEGAL_INSTRUCTION
		}
	}

	a := m.GetRegister(r1)
	b := m.GetRegister(r2)

	switch ins.Op.Opcode {
	case OPCODE_ADDR:
		m.SetRegister(r2, b+a)
	case OPCODE_SUBR:
		m.SetRegister(r2, b-a)
	case OPCODE_MULR:
		m.SetRegister(r2, uint32(Signed(b)*Signed(a)))
	case OPCODE_DIVR:
		if Signed(a) == 0 {
			return RUN_DIVIDE_BY_ZERO
		}
		m.SetRegister(r2, uint32(Signed(b)/Signed(a)))
	case OPCODE_COMPR:
		m.setCond(compare(Signed(a), Signed(b)))
	case OPCODE_CLEAR:
		m.SetRegister(r1, 0)
	case OPCODE_RMO:
		m.SetRegister(r2, a)
	case OPCODE_SHIFTL:
		n := uint(ins.R2+1) % 24
		m.SetRegister(r1, (a<<n)|(a>>(24-n)))
	case OPCODE_SHIFTR:
		m.SetRegister(r1, uint32(Signed(a)>>uint(ins.R2+1)))
	case OPCODE_TIXR:
		x := m.Register[REG_X] + 1
		m.SetRegister(REG_X, x)
		m.setCond(compare(Signed(x), Signed(a)))
	default:
		result = RUN_ILLEGAL_INSTRUCTION
	}

	return
}

// effective computes the effective address of a format 3/4 instruction,
// following one level of indirection.
func (m *Machine) effective(ins Instruction) (ea int, ok bool) {
	ea = ins.Target
	if ins.Indexed {
		ea += int(m.Register[REG_X])
	}

	if ins.Addressing == ADDR_INDIRECT {
		var word uint32
		word, ok = m.ReadWord(ea)
		if !ok {
			return
		}
		ea = int(word)
	}

	ok = true
	return
}

// word returns the word operand of a format 3/4 instruction.
func (m *Machine) word(ins Instruction, ea int) (value uint32, ok bool) {
	if ins.Addressing == ADDR_IMMEDIATE {
		return uint32(ea) & WORD_MASK, true
	}
	return m.ReadWord(ea)
}

// float returns the float operand of a format 3/4 instruction.
func (m *Machine) float(ins Instruction, ea int) (value float64, ok bool) {
	if ins.Addressing == ADDR_IMMEDIATE {
		return float64(ea), true
	}
	data, ok := m.Read(ea, FLOAT_SIZE)
	if !ok {
		return
	}
	return FloatFromBytes(data), true
}

// loadTargets maps load opcodes to their destination register.
var loadTargets = map[byte]Register{
	OPCODE_LDA: REG_A,
	OPCODE_LDB: REG_B,
	OPCODE_LDL: REG_L,
	OPCODE_LDS: REG_S,
	OPCODE_LDT: REG_T,
	OPCODE_LDX: REG_X,
}

// storeSources maps store opcodes to their source register.
var storeSources = map[byte]Register{
	OPCODE_STA:  REG_A,
	OPCODE_STB:  REG_B,
	OPCODE_STL:  REG_L,
	OPCODE_STS:  REG_S,
	OPCODE_STT:  REG_T,
	OPCODE_STX:  REG_X,
	OPCODE_STSW: REG_SW,
}

func (m *Machine) execFormat34(ins Instruction) (result RunResult) {
	opcode := ins.Op.Opcode

	ea, ok := m.effective(ins)
	if !ok {
		return RUN_MEMORY_FAULT
	}

	if reg, ok := loadTargets[opcode]; ok {
		value, ok := m.word(ins, ea)
		if !ok {
			return RUN_MEMORY_FAULT
		}
		m.SetRegister(reg, value)
		return
	}

	if reg, ok := storeSources[opcode]; ok {
		if ins.Addressing == ADDR_IMMEDIATE {
			return RUN_ILLEGAL_INSTRUCTION
		}
		if !m.WriteWord(ea, m.Register[reg]) {
			return RUN_MEMORY_FAULT
		}
		return
	}

	a := m.Register[REG_A]

	switch opcode {
	case OPCODE_ADD, OPCODE_SUB, OPCODE_MUL, OPCODE_DIV, OPCODE_AND, OPCODE_OR, OPCODE_COMP, OPCODE_TIX:
		value, ok := m.word(ins, ea)
		if !ok {
			return RUN_MEMORY_FAULT
		}
		return m.arith(opcode, a, value)
	case OPCODE_ADDF, OPCODE_SUBF, OPCODE_MULF, OPCODE_DIVF, OPCODE_COMPF:
		value, ok := m.float(ins, ea)
		if !ok {
			return RUN_MEMORY_FAULT
		}
		return m.arithFloat(opcode, value)
	case OPCODE_LDCH:
		if ins.Addressing == ADDR_IMMEDIATE {
			m.SetRegister(REG_A, (a&^0xFF)|uint32(ea&0xFF))
			return
		}
		data, ok := m.Read(ea, 1)
		if !ok {
			return RUN_MEMORY_FAULT
		}
		m.SetRegister(REG_A, (a&^0xFF)|uint32(data[0]))
	case OPCODE_STCH:
		if ins.Addressing == ADDR_IMMEDIATE {
			return RUN_ILLEGAL_INSTRUCTION
		}
		if !m.Write(ea, []byte{byte(a)}) {
			return RUN_MEMORY_FAULT
		}
	case OPCODE_LDF:
		value, ok := m.float(ins, ea)
		if !ok {
			return RUN_MEMORY_FAULT
		}
		m.setFloat(value)
	case OPCODE_STF:
		if ins.Addressing == ADDR_IMMEDIATE {
			return RUN_ILLEGAL_INSTRUCTION
		}
		if !m.Write(ea, FloatBytes(m.F)) {
			return RUN_MEMORY_FAULT
		}
	case OPCODE_J:
		return m.jump(ins, ea, true)
	case OPCODE_JEQ:
		return m.jump(ins, ea, m.Cond() == CC_EQ)
	case OPCODE_JGT:
		return m.jump(ins, ea, m.Cond() == CC_GT)
	case OPCODE_JLT:
		return m.jump(ins, ea, m.Cond() == CC_LT)
	case OPCODE_JSUB:
		m.SetRegister(REG_L, uint32(ins.Next()))
		return m.jump(ins, ea, true)
	case OPCODE_RSUB:
		m.SetRegister(REG_PC, m.Register[REG_L])
	case OPCODE_RD, OPCODE_WD, OPCODE_TD, OPCODE_LPS, OPCODE_STI, OPCODE_SSK:
		result = RUN_UNSUPPORTED
	default:
		result = RUN_ILLEGAL_INSTRUCTION
	}

	return
}

// jump transfers control to 'ea' if 'taken'. A taken jump to the
// instruction itself halts the machine.
func (m *Machine) jump(ins Instruction, ea int, taken bool) (result RunResult) {
	if !taken {
		return
	}

	m.SetRegister(REG_PC, uint32(ea))
	if ea == ins.Address {
		result = RUN_HALTED
	}

	return
}

func (m *Machine) arith(opcode byte, a uint32, value uint32) (result RunResult) {
	switch opcode {
	case OPCODE_ADD:
		m.SetRegister(REG_A, a+value)
	case OPCODE_SUB:
		m.SetRegister(REG_A, a-value)
	case OPCODE_MUL:
		m.SetRegister(REG_A, uint32(Signed(a)*Signed(value)))
	case OPCODE_DIV:
		if Signed(value) == 0 {
			return RUN_DIVIDE_BY_ZERO
		}
		m.SetRegister(REG_A, uint32(Signed(a)/Signed(value)))
	case OPCODE_AND:
		m.SetRegister(REG_A, a&value)
	case OPCODE_OR:
		m.SetRegister(REG_A, a|value)
	case OPCODE_COMP:
		m.setCond(compare(Signed(a), Signed(value)))
	case OPCODE_TIX:
		x := m.Register[REG_X] + 1
		m.SetRegister(REG_X, x)
		m.setCond(compare(Signed(x), Signed(value)))
	}

	return
}

func (m *Machine) arithFloat(opcode byte, value float64) (result RunResult) {
	switch opcode {
	case OPCODE_ADDF:
		m.setFloat(m.F + value)
	case OPCODE_SUBF:
		m.setFloat(m.F - value)
	case OPCODE_MULF:
		m.setFloat(m.F * value)
	case OPCODE_DIVF:
		if value == 0 {
			return RUN_DIVIDE_BY_ZERO
		}
		m.setFloat(m.F / value)
	case OPCODE_COMPF:
		m.setCond(compare(m.F, value))
	}

	return
}

// String returns the current machine state as a string.
func (m *Machine) String() (text string) {
	for _, reg := range []Register{REG_A, REG_X, REG_L, REG_B, REG_S, REG_T, REG_PC} {
		text += fmt.Sprintf("% 5v: %06X\n", reg, m.Register[reg])
	}
	if math.IsInf(m.F, 0) || math.IsNaN(m.F) {
		text += fmt.Sprintf("% 5v: %v\n", REG_F, m.F)
	} else {
		text += fmt.Sprintf("% 5v: %g\n", REG_F, m.F)
	}
	text += fmt.Sprintf("% 5v: %v\n", REG_SW, m.Cond())

	return
}
