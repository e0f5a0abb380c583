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

package factorize

import (
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/juju/errors"
)

// Index manages the map between external IDs and dense indices. An external ID is
// a user ID or book ID. The dense index is the row of the corresponding embedding table.
type Index struct {
	toDense    map[int64]int32 // external ID -> dense index
	toExternal map[int32]int64 // dense index -> external ID
	maxDense   int32
}

// NewIndex builds an Index from a mapping of external IDs to dense indices. The mapping
// must be bijective and dense indices must be non-negative.
func NewIndex(mapping map[int64]int32) (*Index, error) {
	idx := &Index{
		toDense:    make(map[int64]int32, len(mapping)),
		toExternal: make(map[int32]int64, len(mapping)),
		maxDense:   -1,
	}
	for id, dense := range mapping {
		if dense < 0 {
			return nil, errors.NotValidf("negative dense index %d for id %d", dense, id)
		}
		if other, exist := idx.toExternal[dense]; exist {
			return nil, errors.NotValidf("dense index %d is shared by ids %d and %d", dense, other, id)
		}
		idx.toDense[id] = dense
		idx.toExternal[dense] = id
		idx.maxDense = max(idx.maxDense, dense)
	}
	return idx, nil
}

// Len returns the number of indexed IDs.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.toDense)
}

// MaxDense returns the largest dense index, or -1 if the index is empty.
func (idx *Index) MaxDense() int32 {
	if idx == nil {
		return -1
	}
	return idx.maxDense
}

// ToDense converts an external ID to a dense index.
func (idx *Index) ToDense(id int64) (int32, bool) {
	if idx == nil {
		return 0, false
	}
	dense, exist := idx.toDense[id]
	return dense, exist
}

// ToExternal converts a dense index to an external ID.
func (idx *Index) ToExternal(dense int32) (int64, bool) {
	if idx == nil {
		return 0, false
	}
	id, exist := idx.toExternal[dense]
	return id, exist
}

// IDs returns all external IDs in ascending order.
func (idx *Index) IDs() []int64 {
	ids := make([]int64, 0, idx.Len())
	for id := range idx.toDense {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MarshalJSON encodes the index as a JSON object keyed by external ID.
func (idx *Index) MarshalJSON() ([]byte, error) {
	object := make(map[string]int32, idx.Len())
	for id, dense := range idx.toDense {
		object[strconv.FormatInt(id, 10)] = dense
	}
	return jsoniter.Marshal(object)
}

// UnmarshalIndex decodes a JSON object keyed by external ID.
func UnmarshalIndex(data []byte) (*Index, error) {
	var object map[string]int32
	if err := jsoniter.Unmarshal(data, &object); err != nil {
		return nil, errors.Trace(err)
	}
	mapping := make(map[int64]int32, len(object))
	for key, dense := range object {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, errors.NotValidf("id %q", key)
		}
		mapping[id] = dense
	}
	return NewIndex(mapping)
}

// Map holds the user and book indices shipped with a trained model. It is never mutated
// after construction and is safe for concurrent use.
type Map struct {
	Users *Index
	Books *Index
}

func NewMap(users, books *Index) *Map {
	return &Map{Users: users, Books: books}
}

func (m *Map) FactorizeUser(userId int64) (int32, bool) {
	return m.Users.ToDense(userId)
}

func (m *Map) FactorizeBook(bookId int64) (int32, bool) {
	return m.Books.ToDense(bookId)
}

func (m *Map) DefactorizeUser(index int32) (int64, bool) {
	return m.Users.ToExternal(index)
}

func (m *Map) DefactorizeBook(index int32) (int64, bool) {
	return m.Books.ToExternal(index)
}
