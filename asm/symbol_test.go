package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolTable(t *testing.T) {
	assert := assert.New(t)

	st := NewSymbolTable()

	fwd := st.Reference("LATER")
	assert.False(fwd.Defined)
	assert.Equal([]string{"LATER"}, st.Undefined())

	sym, err := st.Define("FIRST", 0, 1)
	assert.NoError(err)
	assert.True(sym.Defined)

	_, err = st.Define("FIRST", 3, 2)
	assert.ErrorIs(err, ErrSymbolDuplicate)
	var symErr *ErrSymbol
	if assert.ErrorAs(err, &symErr) {
		assert.Equal("FIRST", symErr.Name)
	}

	sym, err = st.Define("LATER", 9, 3)
	assert.NoError(err)
	assert.Same(fwd, sym)
	assert.Equal(9, fwd.Address)
	assert.ErrorIs(sym.Assign(10), ErrSymbolRedefined)
	assert.Equal(9, fwd.Address)

	_, err = st.Import("EXT")
	assert.NoError(err)
	_, err = st.Define("EXT", 1, 4)
	assert.ErrorIs(err, ErrSymbolImported)
	_, err = st.Import("FIRST")
	assert.ErrorIs(err, ErrSymbolImported)

	assert.Empty(st.Undefined())
	assert.Equal(3, st.Len())
	var order []string
	for name := range st.All() {
		order = append(order, name)
	}
	assert.Equal([]string{"LATER", "FIRST", "EXT"}, order)
}
