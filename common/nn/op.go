package nn

import (
	"github.com/chewxy/math32"
	"github.com/juju/errors"
)

// MatMul multiplies x [m, k] by w [k, n].
func MatMul(x, w *Tensor) (*Tensor, error) {
	if len(x.shape) != 2 || len(w.shape) != 2 {
		return nil, errors.NotValidf("matmul of %v and %v", x.shape, w.shape)
	}
	m, k, n := x.shape[0], x.shape[1], w.shape[1]
	if w.shape[0] != k {
		return nil, errors.NotValidf("matmul of %v and %v", x.shape, w.shape)
	}
	y := Zeros(m, n)
	for i := 0; i < m; i++ {
		xi := x.data[i*k : (i+1)*k]
		yi := y.data[i*n : (i+1)*n]
		for p, a := range xi {
			if a == 0 {
				continue
			}
			wp := w.data[p*n : (p+1)*n]
			for j := range yi {
				yi[j] += a * wp[j]
			}
		}
	}
	return y, nil
}

// AddBias adds b [n] to every row of x [m, n] in place.
func AddBias(x, b *Tensor) (*Tensor, error) {
	if len(x.shape) != 2 || len(b.shape) != 1 || x.shape[1] != b.shape[0] {
		return nil, errors.NotValidf("add bias %v to %v", b.shape, x.shape)
	}
	n := b.shape[0]
	for i := 0; i < x.shape[0]; i++ {
		row := x.data[i*n : (i+1)*n]
		for j := range row {
			row[j] += b.data[j]
		}
	}
	return x, nil
}

// ReLu applies max(0, x) in place.
func ReLu(x *Tensor) *Tensor {
	for i, v := range x.data {
		if v < 0 {
			x.data[i] = 0
		}
	}
	return x
}

// Sigmoid applies 1 / (1 + exp(-x)) in place.
func Sigmoid(x *Tensor) *Tensor {
	for i, v := range x.data {
		x.data[i] = 1 / (1 + math32.Exp(-v))
	}
	return x
}

// Embedding gathers rows of w [n, d] by indices.
func Embedding(w *Tensor, indices []int32) (*Tensor, error) {
	if len(w.shape) != 2 {
		return nil, errors.NotValidf("embedding weight shape %v", w.shape)
	}
	n, d := w.shape[0], w.shape[1]
	y := Zeros(len(indices), d)
	for i, index := range indices {
		if index < 0 || int(index) >= n {
			return nil, errors.NotValidf("embedding index %d out of range [0, %d)", index, n)
		}
		copy(y.data[i*d:(i+1)*d], w.data[int(index)*d:(int(index)+1)*d])
	}
	return y, nil
}

// Concat joins 2-D tensors with the same number of rows along columns.
func Concat(xs ...*Tensor) (*Tensor, error) {
	if len(xs) == 0 {
		return Zeros(0, 0), nil
	}
	m, n := xs[0].shape[0], 0
	for _, x := range xs {
		if len(x.shape) != 2 || x.shape[0] != m {
			return nil, errors.NotValidf("concat %v with %d rows", x.shape, m)
		}
		n += x.shape[1]
	}
	y := Zeros(m, n)
	for i := 0; i < m; i++ {
		offset := i * n
		for _, x := range xs {
			offset += copy(y.data[offset:], x.Row(i))
		}
	}
	return y, nil
}
