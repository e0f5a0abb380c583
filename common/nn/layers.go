package nn

import (
	"github.com/juju/errors"
)

type Layer interface {
	Parameters() []*Tensor
	Forward(x *Tensor) (*Tensor, error)
}

// LinearLayer computes x @ W + B, where W is [in, out].
type LinearLayer struct {
	W *Tensor
	B *Tensor
}

func NewLinear(w, b *Tensor) (*LinearLayer, error) {
	if len(w.shape) != 2 || len(b.shape) != 1 || w.shape[1] != b.shape[0] {
		return nil, errors.NotValidf("linear layer with weight %v and bias %v", w.shape, b.shape)
	}
	return &LinearLayer{W: w, B: b}, nil
}

func (l *LinearLayer) In() int {
	return l.W.shape[0]
}

func (l *LinearLayer) Out() int {
	return l.W.shape[1]
}

func (l *LinearLayer) Forward(x *Tensor) (*Tensor, error) {
	y, err := MatMul(x, l.W)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return AddBias(y, l.B)
}

func (l *LinearLayer) Parameters() []*Tensor {
	return []*Tensor{l.W, l.B}
}

// EmbeddingLayer maps indices to rows of W.
type EmbeddingLayer struct {
	W *Tensor
}

func NewEmbedding(w *Tensor) (*EmbeddingLayer, error) {
	if len(w.shape) != 2 {
		return nil, errors.NotValidf("embedding weight shape %v", w.shape)
	}
	return &EmbeddingLayer{W: w}, nil
}

func (e *EmbeddingLayer) Num() int {
	return e.W.shape[0]
}

func (e *EmbeddingLayer) Dim() int {
	return e.W.shape[1]
}

func (e *EmbeddingLayer) Parameters() []*Tensor {
	return []*Tensor{e.W}
}

func (e *EmbeddingLayer) Lookup(indices []int32) (*Tensor, error) {
	return Embedding(e.W, indices)
}

type sigmoidLayer struct{}

func NewSigmoid() Layer {
	return &sigmoidLayer{}
}

func (s *sigmoidLayer) Parameters() []*Tensor {
	return nil
}

func (s *sigmoidLayer) Forward(x *Tensor) (*Tensor, error) {
	return Sigmoid(x), nil
}

type reluLayer struct{}

func NewReLU() Layer {
	return &reluLayer{}
}

func (r *reluLayer) Parameters() []*Tensor {
	return nil
}

func (r *reluLayer) Forward(x *Tensor) (*Tensor, error) {
	return ReLu(x), nil
}

type Sequential struct {
	Layers []Layer
}

func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{Layers: layers}
}

func (s *Sequential) Parameters() []*Tensor {
	var params []*Tensor
	for _, l := range s.Layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

func (s *Sequential) Forward(x *Tensor) (*Tensor, error) {
	var err error
	for _, l := range s.Layers {
		if x, err = l.Forward(x); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return x, nil
}
