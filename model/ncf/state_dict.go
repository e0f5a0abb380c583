// Copyright 2023 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ncf

import (
	"github.com/gorse-io/bookrec/common/nn"
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/errors"
)

// Parameter names of a state dict. Linear weights are stored as [out][in].
const (
	keyUserEmbedding = "user_id_embedding.weight"
	keyBookEmbedding = "book_id_embedding.weight"
	keyFC1Weight     = "fc1.weight"
	keyFC1Bias       = "fc1.bias"
	keyFC2Weight     = "fc2.weight"
	keyFC2Bias       = "fc2.bias"
	keyOutputWeight  = "output.weight"
	keyOutputBias    = "output.bias"
)

type stateDict map[string]jsoniter.RawMessage

func (s stateDict) matrix(key string) (*nn.Tensor, error) {
	raw, ok := s[key]
	if !ok {
		return nil, errors.NotFoundf("parameter %s", key)
	}
	var rows [][]float32
	if err := jsoniter.Unmarshal(raw, &rows); err != nil {
		return nil, errors.Annotatef(err, "failed to decode %s", key)
	}
	t, err := nn.FromMatrix(rows)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to decode %s", key)
	}
	return t, nil
}

func (s stateDict) vector(key string) (*nn.Tensor, error) {
	raw, ok := s[key]
	if !ok {
		return nil, errors.NotFoundf("parameter %s", key)
	}
	var data []float32
	if err := jsoniter.Unmarshal(raw, &data); err != nil {
		return nil, errors.Annotatef(err, "failed to decode %s", key)
	}
	return nn.NewTensor(data, len(data)), nil
}

func (s stateDict) linear(weightKey, biasKey string) (*nn.LinearLayer, error) {
	w, err := s.matrix(weightKey)
	if err != nil {
		return nil, err
	}
	b, err := s.vector(biasKey)
	if err != nil {
		return nil, err
	}
	layer, err := nn.NewLinear(w.Transpose(), b)
	if err != nil {
		return nil, errors.Annotatef(err, "invalid %s", weightKey)
	}
	return layer, nil
}

func (s stateDict) embedding(key string) (*nn.EmbeddingLayer, error) {
	w, err := s.matrix(key)
	if err != nil {
		return nil, err
	}
	return nn.NewEmbedding(w)
}

// Unmarshal decodes a model from a JSON state dict.
func Unmarshal(data []byte) (*Model, error) {
	var s stateDict
	if err := jsoniter.Unmarshal(data, &s); err != nil {
		return nil, errors.Annotate(err, "failed to decode state dict")
	}
	userEmbedding, err := s.embedding(keyUserEmbedding)
	if err != nil {
		return nil, errors.Trace(err)
	}
	bookEmbedding, err := s.embedding(keyBookEmbedding)
	if err != nil {
		return nil, errors.Trace(err)
	}
	fc1, err := s.linear(keyFC1Weight, keyFC1Bias)
	if err != nil {
		return nil, errors.Trace(err)
	}
	fc2, err := s.linear(keyFC2Weight, keyFC2Bias)
	if err != nil {
		return nil, errors.Trace(err)
	}
	output, err := s.linear(keyOutputWeight, keyOutputBias)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return New(userEmbedding, bookEmbedding, fc1, fc2, output)
}

// Marshal encodes the model as a JSON state dict.
func (m *Model) Marshal() ([]byte, error) {
	return jsoniter.Marshal(map[string]any{
		keyUserEmbedding: m.userEmbedding.W.Matrix(),
		keyBookEmbedding: m.bookEmbedding.W.Matrix(),
		keyFC1Weight:     m.fc1.W.Transpose().Matrix(),
		keyFC1Bias:       m.fc1.B.Data(),
		keyFC2Weight:     m.fc2.W.Transpose().Matrix(),
		keyFC2Bias:       m.fc2.B.Data(),
		keyOutputWeight:  m.output.W.Transpose().Matrix(),
		keyOutputBias:    m.output.B.Data(),
	})
}
