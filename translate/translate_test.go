package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	Use(DEFAULT_LOCALE)

	assert.Equal("line 12: bad", From("line %d: %v", 12, "bad"))
	assert.Equal("segments overlap", Error("segments overlap").Error())
}
