package link

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/sicxe/asm"
	"github.com/ezrec/sicxe/cpu"
	"github.com/ezrec/sicxe/object"
)

var mainSource = []string{
	"MAIN   START 0",
	"       EXTREF ADDONE",
	"FIRST  LDA   #41",
	"       +JSUB ADDONE",
	"HALT   J     HALT",
	"       END   FIRST",
}

var libSource = []string{
	"LIB    START 0",
	"       EXTDEF ADDONE",
	"ADDONE ADD   ONE",
	"       RSUB",
	"ONE    WORD  1",
	"       END",
}

func assemble(t *testing.T, lines ...string) *asm.Module {
	mod, err := (&asm.Assembler{}).AssembleSource("test", strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return mod
}

func TestLink(t *testing.T) {
	assert := assert.New(t)

	mods := []*asm.Module{assemble(t, mainSource...), assemble(t, libSource...)}

	lnk := &Linker{}
	prog, err := lnk.Link(mods)
	require.NoError(t, err)

	assert.Equal([]Placement{
		{Module: "MAIN", Base: 0, Length: 10},
		{Module: "LIB", Base: 10, Length: 9},
	}, prog.Placements)
	assert.Equal(map[string]ExportedSymbol{
		"ADDONE": {Name: "ADDONE", Module: "LIB", Address: 10},
	}, prog.Symbols)

	expected := &object.Binary{
		Entry: 0,
		Segments: []object.Segment{
			{Base: 0, Data: []byte{0x01, 0x00, 0x29, 0x4B, 0x10, 0x00, 0x0A, 0x3F, 0x2F, 0xFD}},
			{Base: 10, Data: []byte{0x1B, 0x20, 0x03, 0x4F, 0x00, 0x00, 0x00, 0x00, 0x01}},
		},
	}
	if diff := cmp.Diff(expected, prog.Binary); diff != "" {
		t.Errorf("binary (-want +got):\n%s", diff)
	}

	// The modules themselves are unchanged.
	assert.Equal([]byte{0x4B, 0x10, 0x00, 0x00}, mods[0].Binary.Segments[0].Data[3:7])
	assert.Len(mods[0].Binary.Fixups, 1)
}

func TestLinkBase(t *testing.T) {
	assert := assert.New(t)

	mods := []*asm.Module{assemble(t, mainSource...), assemble(t, libSource...)}

	lnk := &Linker{Base: 0x1000, Entry: "ADDONE"}
	prog, err := lnk.Link(mods)
	require.NoError(t, err)

	assert.Equal(0x100A, prog.Binary.Entry)
	assert.Equal([]byte{0x4B, 0x10, 0x10, 0x0A}, prog.Binary.Segments[0].Data[3:7])
	assert.Equal(0x1000, prog.Binary.Segments[0].Base)
	assert.Equal(0x100A, prog.Binary.Segments[1].Base)
}

func TestLinkRelocate(t *testing.T) {
	assert := assert.New(t)

	mod := assemble(t,
		"COPY  START 1000",
		"FIRST +JSUB RDREC",
		"      J     FIRST",
		"RDREC RSUB",
		"PTR   WORD  RDREC",
		"      END   FIRST",
	)

	prog, err := (&Linker{}).Link([]*asm.Module{mod})
	require.NoError(t, err)

	assert.Equal(0, prog.Binary.Entry)
	assert.Equal([]object.Segment{
		{Base: 0, Data: []byte{
			0x4B, 0x10, 0x00, 0x07,
			0x3F, 0x2F, 0xF9,
			0x4F, 0x00, 0x00,
			0x00, 0x00, 0x07,
		}},
	}, prog.Binary.Segments)
	assert.Empty(prog.Binary.Fixups)
}

func TestLinkAbsolute(t *testing.T) {
	assert := assert.New(t)

	mod := assemble(t,
		"P     START 0",
		"      LDA   0x100",
		"MAX   EQU   0x100",
		"      LDA   MAX",
		"      +STA  MAX",
		"      END",
	)

	prog, err := (&Linker{Base: 0x1000}).Link([]*asm.Module{mod})
	require.NoError(t, err)

	seg := prog.Binary.Segments[0]
	assert.Equal(0x1000, seg.Base)

	for offset := 0; offset < len(seg.Data); {
		ins, err := cpu.Decode(seg.Data[offset:], seg.Base+offset, cpu.Context{})
		require.NoError(t, err)
		assert.Equal(0x100, ins.Target, ins.String())
		offset += ins.Len()
	}
}

func TestLinkUnresolved(t *testing.T) {
	assert := assert.New(t)

	mods := []*asm.Module{
		assemble(t,
			"A     START 0",
			"      EXTREF NOPE,GONE",
			"      +JSUB NOPE",
			"      +JSUB NOPE",
			"      WORD  GONE",
			"      END",
		),
		assemble(t,
			"B     START 0",
			"      EXTREF NOPE",
			"      WORD  NOPE",
			"      END",
		),
	}

	prog, err := (&Linker{}).Link(mods)
	assert.Nil(prog)
	assert.ErrorIs(err, ErrUnresolved)

	var el asm.ErrList
	require.True(t, errors.As(err, &el))
	require.Len(t, el, 2)

	var symErr *ErrSymbol
	if assert.ErrorAs(el[0], &symErr) {
		assert.Equal("GONE", symErr.Name)
		assert.Equal([]string{"A"}, symErr.Modules)
	}
	if assert.ErrorAs(el[1], &symErr) {
		assert.Equal("NOPE", symErr.Name)
		assert.Equal([]string{"A", "B"}, symErr.Modules)
	}
}

func TestLinkErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := (&Linker{}).Link(nil)
	assert.ErrorIs(err, ErrNoModules)

	lib := assemble(t, libSource...)
	_, err = (&Linker{}).Link([]*asm.Module{lib, assemble(t, libSource...)})
	assert.ErrorIs(err, ErrExportDuplicate)

	_, err = (&Linker{Entry: "MISSING"}).Link([]*asm.Module{lib})
	assert.ErrorIs(err, ErrEntryUndefined)
}
