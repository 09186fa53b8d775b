// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"strings"
)

// Addressing is the n/i flag pair selecting how a target is used.
type Addressing int

const (
	ADDR_SIMPLE    = Addressing(0) // n=1 i=1
	ADDR_IMMEDIATE = Addressing(1) // n=0 i=1
	ADDR_INDIRECT  = Addressing(2) // n=1 i=0
	ADDR_LEGACY    = Addressing(3) // n=0 i=0, SIC compatible 15-bit address
)

// Flags are the nixbpe bits of a format 3/4 instruction.
type Flags uint8

const (
	FLAG_E = Flags(1 << 0) // extended
	FLAG_P = Flags(1 << 1) // PC relative
	FLAG_B = Flags(1 << 2) // base relative
	FLAG_X = Flags(1 << 3) // indexed
	FLAG_I = Flags(1 << 4) // immediate
	FLAG_N = Flags(1 << 5) // indirect
)

// Has returns true if all of the flags in mask are set.
func (flags Flags) Has(mask Flags) bool {
	return flags&mask == mask
}

func (flags Flags) String() string {
	var sb strings.Builder
	for n, c := range "nixbpe" {
		if flags&(1<<(5-n)) != 0 {
			sb.WriteRune(c)
		} else {
			sb.WriteRune('-')
		}
	}
	return sb.String()
}

// ni returns the n/i flag pair for an addressing mode.
func (mode Addressing) ni() Flags {
	switch mode {
	case ADDR_IMMEDIATE:
		return FLAG_I
	case ADDR_INDIRECT:
		return FLAG_N
	case ADDR_LEGACY:
		return 0
	}
	return FLAG_N | FLAG_I
}

// Context is the placement state needed to encode or decode an instruction.
type Context struct {
	LoadBase int  // Module load address, added to extended targets.
	Base     int  // Active base register value.
	HasBase  bool // Set if Base is valid.
}

// Instruction is a single decoded or to-be-encoded instruction.
type Instruction struct {
	Op         *Op        // Catalog entry.
	Format     Format     // Actual format (3 or 4 for the 3/4 family).
	Address    int        // Address of the first instruction byte.
	Addressing Addressing // n/i selection for format 3/4.
	Indexed    bool       // x flag.
	R1, R2     int        // Format 2 register (or count) fields.
	Target     int        // Effective address or immediate value, before indexing.
	Flags      Flags      // Encoded nixbpe flags.
	Disp       int        // Displacement field as encoded.
	Relative   bool       // Base relative, with no base known: Target is the displacement.
	Symbolic   bool       // Immediate Target is a program address, not a constant.
	Absolute   bool       // Non-immediate Target is a fixed address, not module relative.
}

// Len returns the length of the instruction in bytes.
func (ins Instruction) Len() int {
	return ins.Format.Len()
}

// Next returns the address of the following instruction.
func (ins Instruction) Next() int {
	return ins.Address + ins.Len()
}

// Encode converts an instruction into its byte encoding.
//
// Addressing selection is ordered: register operands, immediate,
// extended, PC relative, then base relative. The first mode that can
// reach the target wins.
//
// Absolute targets are never made relative: format 3 encodes them direct
// (b=p=0) in [0, 4095], and format 4 ignores ctx.LoadBase.
//
// Symbolic immediates in format 3 are tried only PC relative and then base
// relative; there is no fallback to a plain immediate value, so a far
// address yields ErrUnreachable and needs format 4.
func Encode(ins Instruction, ctx Context) (data []byte, err error) {
	op := ins.Op

	defer func() {
		if err != nil {
			err = &ErrAddressing{Mnemonic: op.Mnemonic, Target: ins.Target, Err: err}
			data = nil
		}
	}()

	switch op.Format {
	case FORMAT_1:
		if ins.Format != FORMAT_1 {
			err = ErrFormatInvalid
			return
		}
		data = []byte{op.Opcode}
		return
	case FORMAT_2:
		if ins.Format != FORMAT_2 {
			err = ErrFormatInvalid
			return
		}
		if ins.R1 < 0 || ins.R1 > 0xF || ins.R2 < 0 || ins.R2 > 0xF {
			err = ErrFieldRange
			return
		}
		data = []byte{op.Opcode, byte(ins.R1<<4 | ins.R2)}
		return
	}

	if ins.Format != FORMAT_3 && ins.Format != FORMAT_4 {
		err = ErrFormatInvalid
		return
	}

	if ins.Addressing == ADDR_LEGACY {
		return encodeLegacy(ins, ctx)
	}

	flags := ins.Addressing.ni()
	if ins.Indexed {
		flags |= FLAG_X
	}

	var disp int
	target := ins.Target
	extended := ins.Format == FORMAT_4

	switch {
	case op.Operand == OPERAND_NONE:
		disp = 0
		if extended {
			flags |= FLAG_E
		}
	case ins.Addressing != ADDR_IMMEDIATE && ins.Absolute && !extended:
		if target < 0 || target > 4095 {
			err = ErrDirectRange
			return
		}
		disp = target
	case ins.Addressing == ADDR_IMMEDIATE && ins.Symbolic && !extended:
		// Address valued immediates stay position independent.
		fallthrough
	case ins.Addressing != ADDR_IMMEDIATE && !extended:
		pcDisp := target - ins.Next()
		baseDisp := target - ctx.Base
		switch {
		case pcDisp >= -2048 && pcDisp <= 2047:
			disp = pcDisp & 0xFFF
			flags |= FLAG_P
		case ctx.HasBase && baseDisp >= 0 && baseDisp <= 4095:
			disp = baseDisp
			flags |= FLAG_B
		default:
			err = ErrUnreachable
			return
		}
	case !extended:
		if target < -2048 || target > 2047 {
			err = ErrImmediateRange
			return
		}
		disp = target & 0xFFF
	case !ins.Symbolic && ins.Addressing == ADDR_IMMEDIATE:
		if target < 0 || target > 0xFFFFF {
			err = ErrImmediateRange
			return
		}
		disp = target
		flags |= FLAG_E
	default:
		disp = target
		if !ins.Absolute {
			disp += ctx.LoadBase
		}
		if disp < 0 || disp > 0xFFFFF {
			err = ErrExtendedRange
			return
		}
		flags |= FLAG_E
	}

	data = pack(op.Opcode, flags, disp, extended)
	return
}

// encodeLegacy produces a SIC compatible format 3 instruction.
func encodeLegacy(ins Instruction, ctx Context) (data []byte, err error) {
	if ins.Format != FORMAT_3 {
		err = ErrModeInvalid
		return
	}

	addr := ins.Target
	if !ins.Absolute {
		addr += ctx.LoadBase
	}
	if addr < 0 || addr > 0x7FFF {
		err = ErrLegacyRange
		return
	}

	if ins.Indexed {
		addr |= 0x8000
	}

	data = []byte{ins.Op.Opcode, byte(addr >> 8), byte(addr)}
	return
}

// pack assembles the bytes of a format 3/4 instruction.
func pack(opcode byte, flags Flags, disp int, extended bool) (data []byte) {
	b0 := opcode | byte(flags>>4)
	xbpe := byte(flags&0xF) << 4
	if extended {
		data = []byte{b0, xbpe | byte(disp>>16)&0xF, byte(disp >> 8), byte(disp)}
	} else {
		data = []byte{b0, xbpe | byte(disp>>8)&0xF, byte(disp)}
	}
	return
}

// Decode converts the bytes at the start of data, located at address, into
// an instruction. Base relative targets are resolved only if ctx.HasBase.
func Decode(data []byte, address int, ctx Context) (ins Instruction, err error) {
	defer func() {
		if err != nil {
			var b byte
			if len(data) > 0 {
				b = data[0]
			}
			err = &ErrDecode{Address: address, Byte: b, Err: err}
		}
	}()

	if len(data) == 0 {
		err = ErrTruncated
		return
	}

	b0 := data[0]
	op, ok := LookupOpcode(b0)
	if !ok {
		err = ErrOpcodeUnknown
		return
	}

	ins = Instruction{Op: op, Address: address}

	switch op.Format {
	case FORMAT_1:
		if b0 != op.Opcode {
			err = ErrOpcodeUnknown
			return
		}
		ins.Format = FORMAT_1
		return
	case FORMAT_2:
		if b0 != op.Opcode {
			err = ErrOpcodeUnknown
			return
		}
		if len(data) < 2 {
			err = ErrTruncated
			return
		}
		ins.Format = FORMAT_2
		ins.R1 = int(data[1] >> 4)
		ins.R2 = int(data[1] & 0xF)
		return
	}

	if len(data) < 3 {
		err = ErrTruncated
		return
	}

	ins.Format = FORMAT_3
	ni := Flags(b0&0x3) << 4

	if ni == 0 {
		ins.Addressing = ADDR_LEGACY
		ins.Indexed = data[1]&0x80 != 0
		if ins.Indexed {
			ins.Flags = FLAG_X
		}
		ins.Disp = int(data[1]&0x7F)<<8 | int(data[2])
		ins.Target = ins.Disp
		ins.Absolute = true
		return
	}

	flags := ni | Flags(data[1]>>4)
	ins.Flags = flags
	ins.Indexed = flags.Has(FLAG_X)

	switch ni {
	case FLAG_I:
		ins.Addressing = ADDR_IMMEDIATE
	case FLAG_N:
		ins.Addressing = ADDR_INDIRECT
	default:
		ins.Addressing = ADDR_SIMPLE
	}

	bits := uint(12)
	disp := int(data[1]&0xF)<<8 | int(data[2])
	if flags.Has(FLAG_E) {
		if len(data) < 4 {
			err = ErrTruncated
			return
		}
		ins.Format = FORMAT_4
		bits = 20
		disp = disp<<8 | int(data[3])
	}

	switch {
	case flags.Has(FLAG_B | FLAG_P):
		err = ErrFlagsInvalid
		return
	case flags.Has(FLAG_P):
		ins.Symbolic = true
		ins.Disp = signExtend(disp, bits)
		ins.Target = ins.Next() + ins.Disp
	case flags.Has(FLAG_B):
		ins.Symbolic = true
		ins.Disp = disp
		if ctx.HasBase {
			ins.Target = ctx.Base + disp
		} else {
			ins.Target = disp
			ins.Relative = true
		}
	case ins.Addressing == ADDR_IMMEDIATE && ins.Format == FORMAT_3:
		ins.Disp = signExtend(disp, bits)
		ins.Target = ins.Disp
	default:
		ins.Disp = disp
		ins.Target = disp
		ins.Absolute = ins.Addressing != ADDR_IMMEDIATE
	}

	return
}

// Operand returns the assembly text of the operand field.
func (ins Instruction) Operand() (text string) {
	op := ins.Op
	switch op.Operand {
	case OPERAND_NONE:
		return
	case OPERAND_R1:
		return Register(ins.R1).String()
	case OPERAND_R1R2:
		return fmt.Sprintf("%v,%v", Register(ins.R1), Register(ins.R2))
	case OPERAND_R1N:
		return fmt.Sprintf("%v,%d", Register(ins.R1), ins.R2+1)
	case OPERAND_N:
		return fmt.Sprintf("%d", ins.R1)
	}

	switch ins.Addressing {
	case ADDR_IMMEDIATE:
		text = "#"
	case ADDR_INDIRECT:
		text = "@"
	}

	switch {
	case ins.Relative:
		text += fmt.Sprintf("(B)%+d", ins.Target)
	case ins.Addressing == ADDR_IMMEDIATE:
		text += fmt.Sprintf("%d", ins.Target)
	default:
		text += fmt.Sprintf("%06X", ins.Target)
	}

	if ins.Indexed {
		text += ",X"
	}

	return
}

// String returns the assembly language representation of the instruction.
func (ins Instruction) String() string {
	if ins.Op == nil {
		return "???"
	}

	prefix := ""
	switch {
	case ins.Format == FORMAT_4:
		prefix = "+"
	case ins.Op.Format == FORMAT_3 && ins.Addressing == ADDR_LEGACY:
		prefix = "*"
	}

	operand := ins.Operand()
	if len(operand) == 0 {
		return prefix + ins.Op.Mnemonic
	}

	return fmt.Sprintf("%-7s %v", prefix+ins.Op.Mnemonic, operand)
}
