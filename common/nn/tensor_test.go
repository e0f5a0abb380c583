package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromMatrix(t *testing.T) {
	x, err := FromMatrix([][]float32{{1, 2, 3}, {4, 5, 6}})
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 3}, x.Shape())
	assert.Equal(t, []float32{4, 5, 6}, x.Row(1))
	assert.Equal(t, [][]float32{{1, 4}, {2, 5}, {3, 6}}, x.Transpose().Matrix())

	_, err = FromMatrix([][]float32{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestRand(t *testing.T) {
	x := Rand(rand.New(rand.NewSource(0)), 0.5, 3, 4)
	y := Rand(rand.New(rand.NewSource(0)), 0.5, 3, 4)
	assert.Equal(t, x.Data(), y.Data())
	for _, v := range x.Data() {
		assert.GreaterOrEqual(t, v, float32(-0.5))
		assert.Less(t, v, float32(0.5))
	}
}

func TestTensor_String(t *testing.T) {
	assert.Equal(t, "[1, 2, 3]", NewTensor([]float32{1, 2, 3}, 3).String())
	assert.Equal(t, "[0, 0, 0, 0, 0, ..., 0, 0, 0, 0, 0]", Zeros(3, 4).String())
}
