package cpu

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustOp(t *testing.T, mnemonic string) *Op {
	op, ok := Lookup(mnemonic)
	require.True(t, ok, mnemonic)
	return op
}

func TestEncode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name     string
		ins      Instruction
		ctx      Context
		expected []byte
	}){
		{"lda_pc", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Address: 0, Target: 3},
			Context{}, []byte{0x03, 0x20, 0x00}},
		{"lda_pc_back", Instruction{Op: mustOp(t, "J"), Format: FORMAT_3, Address: 0x10, Target: 0x10},
			Context{}, []byte{0x3F, 0x2F, 0xFD}},
		{"lda_imm", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Addressing: ADDR_IMMEDIATE, Target: 3},
			Context{}, []byte{0x01, 0x00, 0x03}},
		{"lda_imm_neg", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Addressing: ADDR_IMMEDIATE, Target: -1},
			Context{}, []byte{0x01, 0x0F, 0xFF}},
		{"ldb_imm_symbolic", Instruction{Op: mustOp(t, "LDB"), Format: FORMAT_3, Address: 3, Addressing: ADDR_IMMEDIATE, Symbolic: true, Target: 0x33},
			Context{}, []byte{0x69, 0x20, 0x2D}},
		{"ldb_imm_symbolic_ext", Instruction{Op: mustOp(t, "LDB"), Format: FORMAT_4, Addressing: ADDR_IMMEDIATE, Symbolic: true, Target: 0x33},
			Context{LoadBase: 0x1000}, []byte{0x69, 0x10, 0x10, 0x33}},
		{"ldt_imm_ext", Instruction{Op: mustOp(t, "LDT"), Format: FORMAT_4, Addressing: ADDR_IMMEDIATE, Target: 4096},
			Context{}, []byte{0x75, 0x10, 0x10, 0x00}},
		{"jsub_ext", Instruction{Op: mustOp(t, "JSUB"), Format: FORMAT_4, Target: 0x1036},
			Context{}, []byte{0x4B, 0x10, 0x10, 0x36}},
		{"jsub_ext_base", Instruction{Op: mustOp(t, "JSUB"), Format: FORMAT_4, Target: 0x36},
			Context{LoadBase: 0x1000}, []byte{0x4B, 0x10, 0x10, 0x36}},
		{"lda_direct", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Address: 0x500, Absolute: true, Target: 0x100},
			Context{LoadBase: 0x1000, Base: 0x100, HasBase: true}, []byte{0x03, 0x01, 0x00}},
		{"jsub_ext_absolute", Instruction{Op: mustOp(t, "JSUB"), Format: FORMAT_4, Absolute: true, Target: 0x100},
			Context{LoadBase: 0x1000}, []byte{0x4B, 0x10, 0x01, 0x00}},
		{"legacy_absolute", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Addressing: ADDR_LEGACY, Absolute: true, Target: 0x100},
			Context{LoadBase: 0x1000}, []byte{0x00, 0x01, 0x00}},
		{"stch_base", Instruction{Op: mustOp(t, "STCH"), Format: FORMAT_3, Address: 0x104E, Indexed: true, Target: 0x36},
			Context{Base: 0x33, HasBase: true}, []byte{0x57, 0xC0, 0x03}},
		{"j_indirect", Instruction{Op: mustOp(t, "J"), Format: FORMAT_3, Address: 0x1056, Addressing: ADDR_INDIRECT, Target: 0x1036},
			Context{}, []byte{0x3E, 0x2F, 0xDD}},
		{"rsub", Instruction{Op: mustOp(t, "RSUB"), Format: FORMAT_3},
			Context{}, []byte{0x4F, 0x00, 0x00}},
		{"legacy", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Addressing: ADDR_LEGACY, Indexed: true, Target: 0x1234},
			Context{}, []byte{0x00, 0x92, 0x34}},
		{"clear", Instruction{Op: mustOp(t, "CLEAR"), Format: FORMAT_2, R1: int(REG_X)},
			Context{}, []byte{0xB4, 0x10}},
		{"compr", Instruction{Op: mustOp(t, "COMPR"), Format: FORMAT_2, R1: int(REG_A), R2: int(REG_S)},
			Context{}, []byte{0xA0, 0x04}},
		{"fix", Instruction{Op: mustOp(t, "FIX"), Format: FORMAT_1},
			Context{}, []byte{0xC4}},
	}

	for _, entry := range table {
		data, err := Encode(entry.ins, entry.ctx)
		assert.NoError(err, entry.name)
		assert.Equal(entry.expected, data, entry.name)
	}
}

func TestEncodeErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		ins  Instruction
		ctx  Context
		err  error
	}){
		{"imm_high", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Addressing: ADDR_IMMEDIATE, Target: 2048},
			Context{}, ErrImmediateRange},
		{"imm_low", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Addressing: ADDR_IMMEDIATE, Target: -2049},
			Context{}, ErrImmediateRange},
		{"imm_ext_neg", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_4, Addressing: ADDR_IMMEDIATE, Target: -1},
			Context{}, ErrImmediateRange},
		{"ext_range", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_4, Target: 0xFFFFF},
			Context{LoadBase: 1}, ErrExtendedRange},
		{"unreachable", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Target: 5000},
			Context{}, ErrUnreachable},
		{"imm_symbolic_far", Instruction{Op: mustOp(t, "LDB"), Format: FORMAT_3, Addressing: ADDR_IMMEDIATE, Symbolic: true, Target: 5000},
			Context{}, ErrUnreachable},
		{"direct_range", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Absolute: true, Target: 4096},
			Context{}, ErrDirectRange},
		{"direct_negative", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Absolute: true, Target: -1},
			Context{}, ErrDirectRange},
		{"base_below", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Target: 5000},
			Context{Base: 5001, HasBase: true}, ErrUnreachable},
		{"legacy_ext", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_4, Addressing: ADDR_LEGACY},
			Context{}, ErrModeInvalid},
		{"legacy_range", Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Addressing: ADDR_LEGACY, Target: 0x8000},
			Context{}, ErrLegacyRange},
		{"field", Instruction{Op: mustOp(t, "ADDR"), Format: FORMAT_2, R1: 16},
			Context{}, ErrFieldRange},
		{"format", Instruction{Op: mustOp(t, "ADDR"), Format: FORMAT_3},
			Context{}, ErrFormatInvalid},
	}

	for _, entry := range table {
		data, err := Encode(entry.ins, entry.ctx)
		assert.Nil(data, entry.name)
		assert.ErrorIs(err, entry.err, entry.name)

		var addrErr *ErrAddressing
		if assert.True(errors.As(err, &addrErr), entry.name) {
			assert.Equal(entry.ins.Op.Mnemonic, addrErr.Mnemonic, entry.name)
		}
	}
}

func TestEncodeBaseTieBreak(t *testing.T) {
	assert := assert.New(t)

	// Out of PC range, inside base range.
	ins := Instruction{Op: mustOp(t, "LDA"), Format: FORMAT_3, Address: 0, Target: 3000}
	data, err := Encode(ins, Context{Base: 2900, HasBase: true})
	assert.NoError(err)

	dec, err := Decode(data, 0, Context{Base: 2900, HasBase: true})
	assert.NoError(err)
	assert.True(dec.Flags.Has(FLAG_B))
	assert.False(dec.Flags.Has(FLAG_P))
	assert.Equal(3000, dec.Target)

	// Inside both ranges, PC relative wins.
	ins.Target = 100
	data, err = Encode(ins, Context{Base: 0, HasBase: true})
	assert.NoError(err)
	assert.Equal(byte(0x20), data[1]&0x60)
}

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		data    []byte
		address int
		ctx     Context
		text    string
		target  int
	}){
		{"lda", []byte{0x03, 0x20, 0x00}, 0, Context{}, "LDA     000003", 3},
		{"imm", []byte{0x01, 0x0F, 0xFF}, 0, Context{}, "LDA     #-1", -1},
		{"ext", []byte{0x4B, 0x10, 0x10, 0x36}, 0x1000, Context{}, "+JSUB   001036", 0x1036},
		{"base", []byte{0x57, 0xC0, 0x03}, 0, Context{Base: 0x33, HasBase: true}, "STCH    000036,X", 0x36},
		{"direct", []byte{0x03, 0x01, 0x00}, 0x500, Context{}, "LDA     000100", 0x100},
		{"base_unknown", []byte{0x57, 0xC0, 0x03}, 0, Context{}, "STCH    (B)+3,X", 3},
		{"indirect", []byte{0x3E, 0x2F, 0xDD}, 0x1056, Context{}, "J       @001036", 0x1036},
		{"legacy", []byte{0x00, 0x92, 0x34}, 0, Context{}, "*LDA    001234,X", 0x1234},
		{"rsub", []byte{0x4F, 0x00, 0x00}, 0, Context{}, "RSUB", 0},
		{"shiftl", []byte{0xA4, 0x13}, 0, Context{}, "SHIFTL  X,4", 0},
		{"svc", []byte{0xB0, 0x30}, 0, Context{}, "SVC     3", 0},
		{"fix", []byte{0xC4}, 0, Context{}, "FIX", 0},
	}

	for _, entry := range table {
		ins, err := Decode(entry.data, entry.address, entry.ctx)
		if !assert.NoError(err, entry.name) {
			continue
		}
		assert.Equal(len(entry.data), ins.Len(), entry.name)
		assert.Equal(entry.text, ins.String(), entry.name)
		assert.Equal(entry.target, ins.Target, entry.name)
	}
}

func TestDecodeErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		data []byte
		err  error
	}){
		{"empty", []byte{}, ErrTruncated},
		{"unknown", []byte{0xFC, 0x00, 0x00}, ErrOpcodeUnknown},
		{"format1_flags", []byte{0xC5}, ErrOpcodeUnknown},
		{"format2_short", []byte{0x90}, ErrTruncated},
		{"format3_short", []byte{0x03, 0x20}, ErrTruncated},
		{"format4_short", []byte{0x03, 0x10, 0x00}, ErrTruncated},
		{"bp", []byte{0x03, 0x60, 0x00}, ErrFlagsInvalid},
	}

	for _, entry := range table {
		_, err := Decode(entry.data, 0x100, Context{})
		assert.ErrorIs(err, entry.err, entry.name)

		var decErr *ErrDecode
		if assert.ErrorAs(err, &decErr, entry.name) {
			assert.Equal(0x100, decErr.Address, entry.name)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	base := Context{Base: 0x2000, HasBase: true}

	table := []Instruction{
		{Op: mustOp(t, "ADDR"), Format: FORMAT_2, R1: int(REG_S), R2: int(REG_A)},
		{Op: mustOp(t, "LDA"), Format: FORMAT_3, Address: 0x100, Target: 0x80},
		{Op: mustOp(t, "LDA"), Format: FORMAT_3, Address: 0x100, Target: 0x2100},
		{Op: mustOp(t, "STA"), Format: FORMAT_3, Address: 0x100, Indexed: true, Target: 0x900},
		{Op: mustOp(t, "LDA"), Format: FORMAT_3, Address: 0x100, Absolute: true, Target: 0xFFF},
		{Op: mustOp(t, "LDB"), Format: FORMAT_3, Address: 0x100, Addressing: ADDR_IMMEDIATE, Target: -2048},
		{Op: mustOp(t, "LDB"), Format: FORMAT_4, Address: 0x100, Addressing: ADDR_IMMEDIATE, Target: 0xFFFFF},
		{Op: mustOp(t, "JSUB"), Format: FORMAT_4, Address: 0x100, Target: 0x54321},
		{Op: mustOp(t, "J"), Format: FORMAT_3, Address: 0x100, Addressing: ADDR_INDIRECT, Target: 0x100},
		{Op: mustOp(t, "LDCH"), Format: FORMAT_3, Addressing: ADDR_LEGACY, Target: 0x7FFF},
	}

	for _, ins := range table {
		data, err := Encode(ins, base)
		if !assert.NoError(t, err, ins.Op.Mnemonic) {
			continue
		}
		dec, err := Decode(data, ins.Address, base)
		if !assert.NoError(t, err, ins.Op.Mnemonic) {
			continue
		}

		want := []any{ins.Op.Mnemonic, ins.Format, ins.Target, ins.Addressing, ins.Indexed, ins.R1, ins.R2}
		got := []any{dec.Op.Mnemonic, dec.Format, dec.Target, dec.Addressing, dec.Indexed, dec.R1, dec.R2}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%v round trip (-want +got):\n%s", ins.Op.Mnemonic, diff)
		}
	}
}
