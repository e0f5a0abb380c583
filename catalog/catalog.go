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

package catalog

import (
	"github.com/bits-and-blooms/bitset"
	mapset "github.com/deckarep/golang-set/v2"
)

// Feature is a position in the numeric feature vector consumed by the model.
type Feature int

const (
	NumPages Feature = iota
	AvgRating
	Promoters
	Detractors
)

// NumFeatures is the width of the numeric feature vector.
const NumFeatures = 4

var featureNames = [NumFeatures]string{"num_pages", "avg_rating", "promoters", "detractors"}

func (f Feature) String() string {
	return featureNames[f]
}

// Book is an immutable catalog entry.
type Book struct {
	BookID   int64
	Title    string
	Author   string
	Genres   *bitset.BitSet
	Features [NumFeatures]float32
}

// HasGenres reports whether the book carries every genre in the set.
func (b *Book) HasGenres(genres *bitset.BitSet) bool {
	return b.Genres.IsSuperSet(genres)
}

// GenreVector returns the genre flags as model inputs.
func (b *Book) GenreVector() [NumGenres]float32 {
	var vector [NumGenres]float32
	for i, ok := b.Genres.NextSet(0); ok && i < NumGenres; i, ok = b.Genres.NextSet(i + 1) {
		vector[i] = 1
	}
	return vector
}

// Candidate is a book selected for a request, annotated with its dense model index.
type Candidate struct {
	*Book
	BookIndex int32
}

// CandidateBatch is the per-request subset of the catalog, in catalog order.
type CandidateBatch []Candidate

// Catalog is the read-only table of all books. It is safe for concurrent use.
type Catalog struct {
	books []Book
}

func New(books []Book) *Catalog {
	return &Catalog{books: books}
}

// Len returns the number of books.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.books)
}

// Book returns the i-th book in catalog order.
func (c *Catalog) Book(i int) *Book {
	return &c.books[i]
}

// Filter selects books carrying all requested genres and not in the excluded set.
// No genres keeps every book. The result keeps catalog order.
func (c *Catalog) Filter(genres []Genre, excluded mapset.Set[int64]) CandidateBatch {
	requested := NewGenreSet(genres...)
	var batch CandidateBatch
	for i := range c.books {
		book := &c.books[i]
		if !book.HasGenres(requested) {
			continue
		}
		if excluded != nil && excluded.Contains(book.BookID) {
			continue
		}
		batch = append(batch, Candidate{Book: book, BookIndex: -1})
	}
	return batch
}
