package object

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	bin := &Binary{Segments: []Segment{
		{Base: 0x10, Data: []byte{1, 2, 3}},
		{Base: 0x00, Data: []byte{4, 5}},
		{Base: 0x13, Data: []byte{6}},
	}}
	assert.NoError(bin.Validate())
	assert.Equal(0x00, bin.Segments[0].Base)
	assert.Equal(0x13, bin.Segments[2].Base)
	assert.Equal(6, bin.Size())

	bin.Segments = append(bin.Segments, Segment{Base: 0x12, Data: []byte{7}})
	err := bin.Validate()
	assert.ErrorIs(err, ErrOverlap)

	var segErr *ErrSegment
	if assert.ErrorAs(err, &segErr) {
		assert.Equal(0x12, segErr.Segment.Base)
	}
}

func TestPatch(t *testing.T) {
	assert := assert.New(t)

	bin := &Binary{Segments: []Segment{
		{Base: 0x100, Data: []byte{0x4B, 0x10, 0x00, 0x36, 0x00, 0x00, 0x03}},
	}}

	// Format 4 address field, flags preserved.
	assert.NoError(bin.Patch(Fixup{Address: 0x100, Kind: FIXUP_EXTENDED}, 0x1000))
	assert.Equal([]byte{0x4B, 0x10, 0x10, 0x36}, bin.Segments[0].Data[:4])

	assert.NoError(bin.Patch(Fixup{Address: 0x104, Kind: FIXUP_WORD}, 0x2000))
	assert.Equal([]byte{0x00, 0x20, 0x03}, bin.Segments[0].Data[4:])

	assert.ErrorIs(bin.Patch(Fixup{Address: 0x105, Kind: FIXUP_WORD}, 1), ErrFixupAddress)
	assert.ErrorIs(bin.Patch(Fixup{Address: 0x100, Kind: FIXUP_EXTENDED}, 0xFFFFF), ErrFixupRange)

	bin.Fixups = []Fixup{{Address: 0x100}}
	bin.Entry = 0x100
	bin.Relocate(0x50)
	assert.Equal(0x150, bin.Segments[0].Base)
	assert.Equal(0x150, bin.Fixups[0].Address)
	assert.Equal(0x150, bin.Entry)
}

func TestFormat(t *testing.T) {
	assert := assert.New(t)

	bin := &Binary{
		Entry: 0x000003,
		Segments: []Segment{
			{Base: 0x000012, Data: []byte{0x00, 0x00, 0x07}},
			{Base: 0x000000, Data: []byte{0x03, 0x20, 0x00, 0x00, 0x00, 0x05}},
			{Base: 0x000020},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, bin))

	expected := []string{
		"000000",
		"032000000005",
		"!",
		"000012",
		"000007",
		"!",
		"000003",
		"",
		"!",
		"",
	}
	assert.Equal(strings.Join(expected, "\n"), buf.String())

	read, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(0x000003, read.Entry)
	assert.Equal([]Segment{
		{Base: 0x000000, Data: []byte{0x03, 0x20, 0x00, 0x00, 0x00, 0x05}},
		{Base: 0x000012, Data: []byte{0x00, 0x00, 0x07}},
	}, read.Segments)
}

func TestFormatTrailer(t *testing.T) {
	assert := assert.New(t)

	// The entry block follows the last data block, with an empty data line.
	golden := []byte("001000\n4B101036\n!\n001036\n4F0000\n!\n001000\n\n!\n")

	bin, err := Read(bytes.NewReader(golden))
	require.NoError(t, err)
	assert.Equal(0x1000, bin.Entry)
	assert.Len(bin.Segments, 2)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, bin))
	assert.Equal(golden, buf.Bytes())

	// A binary with no code is only the entry block.
	buf.Reset()
	require.NoError(t, Write(&buf, &Binary{Entry: 0x42}))
	assert.Equal([]byte("000042\n\n!\n"), buf.Bytes())
}

func TestFormatErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		text string
		err  error
	}){
		{"empty", "", ErrObjectTrailer},
		{"no_trailer", "000000\n0102\n!\n", ErrObjectTrailer},
		{"bad_address", "00G000\n0102\n!\n000000\n\n!\n", ErrObjectFormat},
		{"bad_data", "000000\n01Z2\n!\n000000\n\n!\n", ErrObjectFormat},
		{"short_block", "000000\n!\n", ErrObjectFormat},
		{"unterminated", "000000\n0102\n!\n000000\n", ErrObjectFormat},
		{"overlap", "000000\n010203\n!\n000001\n04\n!\n000000\n\n!\n", ErrOverlap},
	}

	for _, entry := range table {
		bin, err := Read(strings.NewReader(entry.text))
		assert.Nil(bin, entry.name)
		assert.ErrorIs(err, entry.err, entry.name)
	}
}
