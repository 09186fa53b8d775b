package asm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func source(name string, lines ...string) Source {
	return Source{Name: name, Input: strings.NewReader(strings.Join(lines, "\n"))}
}

func TestAssembleAll(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	mods, err := asm.AssembleAll(context.Background(), []Source{
		source("main.s", "MAIN START 0", "EXTREF RDREC", "+JSUB RDREC", "END MAIN"),
		source("rdrec.s", "LIB START 0", "EXTDEF RDREC", "RDREC RSUB", "END"),
	})
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal("MAIN", mods[0].Name)
	assert.Equal("LIB", mods[1].Name)
	assert.Equal([]string{"RDREC"}, mods[0].Imports)

	addr, ok := mods[1].Export("RDREC")
	assert.True(ok)
	assert.Equal(0, addr)
}

func TestAssembleAllErrors(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	mods, err := asm.AssembleAll(context.Background(), []Source{
		source("good.s", "G START 0", "RSUB", "END"),
		source("bad1.s", "B START 0", "LDA NOPE", "END"),
		source("bad2.s", "RSUB"),
	})
	assert.Nil(mods)

	var el ErrList
	require.True(t, errors.As(err, &el))
	require.Len(t, el, 2)

	var modErr *ErrModule
	if assert.ErrorAs(el[0], &modErr) {
		assert.Equal("bad1.s", modErr.Name)
		assert.ErrorIs(modErr, ErrSymbolUndefined)
	}
	if assert.ErrorAs(el[1], &modErr) {
		assert.Equal("bad2.s", modErr.Name)
		assert.ErrorIs(modErr, ErrBeforeStart)
	}
}

func TestAssembleAllCanceled(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	asm := &Assembler{}
	_, err := asm.AssembleAll(ctx, []Source{
		source("a.s", "A START 0", "END"),
	})
	assert.ErrorIs(err, context.Canceled)
}
