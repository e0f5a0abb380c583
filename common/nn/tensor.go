package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/juju/errors"
)

// Tensor is a dense row-major float32 array.
type Tensor struct {
	data  []float32
	shape []int
}

func NewTensor(data []float32, shape ...int) *Tensor {
	return &Tensor{
		data:  data,
		shape: shape,
	}
}

// FromMatrix creates a 2-D tensor from rows of equal length.
func FromMatrix(rows [][]float32) (*Tensor, error) {
	if len(rows) == 0 {
		return Zeros(0, 0), nil
	}
	cols := len(rows[0])
	data := make([]float32, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, errors.NotValidf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return NewTensor(data, len(rows), cols), nil
}

// Rand creates a tensor filled with uniform values in [-scale, scale).
func Rand(rng *rand.Rand, scale float32, shape ...int) *Tensor {
	t := Zeros(shape...)
	for i := range t.data {
		t.data[i] = (rng.Float32()*2 - 1) * scale
	}
	return t
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape ...int) *Tensor {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &Tensor{
		data:  make([]float32, n),
		shape: shape,
	}
}

func (t *Tensor) Shape() []int {
	return t.shape
}

func (t *Tensor) Data() []float32 {
	return t.data
}

// Row returns the i-th row of a 2-D tensor without copying.
func (t *Tensor) Row(i int) []float32 {
	cols := t.shape[1]
	return t.data[i*cols : (i+1)*cols]
}

// Transpose returns a transposed copy of a 2-D tensor.
func (t *Tensor) Transpose() *Tensor {
	rows, cols := t.shape[0], t.shape[1]
	y := Zeros(cols, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			y.data[j*rows+i] = t.data[i*cols+j]
		}
	}
	return y
}

// Matrix converts a 2-D tensor to rows.
func (t *Tensor) Matrix() [][]float32 {
	rows := make([][]float32, t.shape[0])
	for i := range rows {
		rows[i] = append([]float32(nil), t.Row(i)...)
	}
	return rows
}

func (t *Tensor) String() string {
	// Print scalar value
	if len(t.shape) == 0 {
		return fmt.Sprint(t.data[0])
	}

	builder := strings.Builder{}
	builder.WriteString("[")
	if len(t.data) <= 10 {
		for i := 0; i < len(t.data); i++ {
			builder.WriteString(fmt.Sprint(t.data[i]))
			if i != len(t.data)-1 {
				builder.WriteString(", ")
			}
		}
	} else {
		for i := 0; i < 5; i++ {
			builder.WriteString(fmt.Sprint(t.data[i]))
			builder.WriteString(", ")
		}
		builder.WriteString("..., ")
		for i := len(t.data) - 5; i < len(t.data); i++ {
			builder.WriteString(fmt.Sprint(t.data[i]))
			if i != len(t.data)-1 {
				builder.WriteString(", ")
			}
		}
	}
	builder.WriteString("]")
	return builder.String()
}
