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
	"context"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/gorse-io/bookrec/catalog"
	"github.com/gorse-io/bookrec/common/nn"
	"github.com/gorse-io/bookrec/common/parallel"
	"github.com/juju/errors"
)

const (
	UserEmbeddingDim = 16
	BookEmbeddingDim = 14
	InputDim         = UserEmbeddingDim + BookEmbeddingDim + catalog.NumFeatures + catalog.NumGenres
	HiddenDim1       = 140
	HiddenDim2       = 70
)

// Row is a single scoring input: a dense book index with its features and genre flags.
type Row struct {
	BookIndex int32
	Features  [catalog.NumFeatures]float32
	Genres    [catalog.NumGenres]float32
}

// Model is a neural collaborative filtering model. User and book embeddings are concatenated
// with book features and genre flags and passed through a two-layer perceptron with a sigmoid
// output. A Model is read-only after construction and safe for concurrent use.
type Model struct {
	userEmbedding *nn.EmbeddingLayer
	bookEmbedding *nn.EmbeddingLayer
	fc1           *nn.LinearLayer
	fc2           *nn.LinearLayer
	output        *nn.LinearLayer
	mlp           *nn.Sequential
	jobs          int
}

// New assembles a model from its layers and checks their shapes.
func New(userEmbedding, bookEmbedding *nn.EmbeddingLayer, fc1, fc2, output *nn.LinearLayer) (*Model, error) {
	if userEmbedding.Dim() != UserEmbeddingDim {
		return nil, errors.NotValidf("user embedding dim %d, expected %d", userEmbedding.Dim(), UserEmbeddingDim)
	}
	if bookEmbedding.Dim() != BookEmbeddingDim {
		return nil, errors.NotValidf("book embedding dim %d, expected %d", bookEmbedding.Dim(), BookEmbeddingDim)
	}
	for _, check := range []struct {
		name    string
		layer   *nn.LinearLayer
		in, out int
	}{
		{"fc1", fc1, InputDim, HiddenDim1},
		{"fc2", fc2, HiddenDim1, HiddenDim2},
		{"output", output, HiddenDim2, 1},
	} {
		if check.layer.In() != check.in || check.layer.Out() != check.out {
			return nil, errors.NotValidf("%s shape [%d, %d], expected [%d, %d]",
				check.name, check.layer.In(), check.layer.Out(), check.in, check.out)
		}
	}
	return &Model{
		userEmbedding: userEmbedding,
		bookEmbedding: bookEmbedding,
		fc1:           fc1,
		fc2:           fc2,
		output:        output,
		mlp:           nn.NewSequential(fc1, nn.NewReLU(), fc2, nn.NewReLU(), output, nn.NewSigmoid()),
		jobs:          1,
	}, nil
}

// NewRandom creates a model with uniformly initialized parameters.
func NewRandom(numUsers, numBooks int, seed int64) *Model {
	rng := rand.New(rand.NewSource(seed))
	linear := func(in, out int) *nn.LinearLayer {
		scale := 1 / math32.Sqrt(float32(in))
		layer, _ := nn.NewLinear(nn.Rand(rng, scale, in, out), nn.Rand(rng, scale, out))
		return layer
	}
	userEmbedding, _ := nn.NewEmbedding(nn.Rand(rng, 1, numUsers, UserEmbeddingDim))
	bookEmbedding, _ := nn.NewEmbedding(nn.Rand(rng, 1, numBooks, BookEmbeddingDim))
	m, err := New(userEmbedding, bookEmbedding, linear(InputDim, HiddenDim1), linear(HiddenDim1, HiddenDim2), linear(HiddenDim2, 1))
	if err != nil {
		panic(err)
	}
	return m
}

// SetJobs sets the number of goroutines used to score a batch.
func (m *Model) SetJobs(jobs int) *Model {
	m.jobs = max(jobs, 1)
	return m
}

func (m *Model) NumUsers() int {
	return m.userEmbedding.Num()
}

func (m *Model) NumBooks() int {
	return m.bookEmbedding.Num()
}

// Score returns one relevance score in (0, 1) per row, in input order. The batch is split into
// contiguous chunks scored concurrently, each writing its own slots of the output.
func (m *Model) Score(ctx context.Context, userIndex int32, rows []Row) ([]float32, error) {
	if userIndex < 0 || int(userIndex) >= m.NumUsers() {
		return nil, errors.NotValidf("user index %d out of range [0, %d)", userIndex, m.NumUsers())
	}
	scores := make([]float32, len(rows))
	if len(rows) == 0 {
		return scores, nil
	}
	chunks := parallel.Split(rows, m.jobs)
	offsets := make([]int, len(chunks))
	for i := 1; i < len(chunks); i++ {
		offsets[i] = offsets[i-1] + len(chunks[i-1])
	}
	err := parallel.Parallel(ctx, len(chunks), m.jobs, func(_, jobId int) error {
		chunkScores, err := m.forward(userIndex, chunks[jobId])
		if err != nil {
			return errors.Trace(err)
		}
		copy(scores[offsets[jobId]:], chunkScores)
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return scores, nil
}

func (m *Model) forward(userIndex int32, rows []Row) ([]float32, error) {
	userIndices := make([]int32, len(rows))
	bookIndices := make([]int32, len(rows))
	features := nn.Zeros(len(rows), catalog.NumFeatures)
	genres := nn.Zeros(len(rows), catalog.NumGenres)
	for i, row := range rows {
		userIndices[i] = userIndex
		bookIndices[i] = row.BookIndex
		copy(features.Row(i), row.Features[:])
		copy(genres.Row(i), row.Genres[:])
	}
	userEmbedded, err := m.userEmbedding.Lookup(userIndices)
	if err != nil {
		return nil, errors.Trace(err)
	}
	bookEmbedded, err := m.bookEmbedding.Lookup(bookIndices)
	if err != nil {
		return nil, errors.Trace(err)
	}
	x, err := nn.Concat(userEmbedded, bookEmbedded, features, genres)
	if err != nil {
		return nil, errors.Trace(err)
	}
	y, err := m.mlp.Forward(x)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return y.Data(), nil
}
