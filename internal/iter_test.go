package internal

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcat(t *testing.T) {
	assert := assert.New(t)

	seq := Concat(slices.Values([]int{1, 2}), slices.Values([]int{}), slices.Values([]int{3}))
	assert.Equal([]int{1, 2, 3}, slices.Collect(seq))

	var first []int
	for val := range seq {
		first = append(first, val)
		if val == 2 {
			break
		}
	}
	assert.Equal([]int{1, 2}, first)
}

func TestConcat2(t *testing.T) {
	assert := assert.New(t)

	seq := Concat2(maps.All(map[string]int{"A": 1}), maps.All(map[string]int{"B": 2}))
	assert.Equal(map[string]int{"A": 1, "B": 2}, maps.Collect(seq))
}

func TestSortedKeys(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"A", "B", "C"}, SortedKeys(map[string]bool{"C": true, "A": true, "B": false}))
	assert.Empty(SortedKeys(map[string]bool{}))
}
