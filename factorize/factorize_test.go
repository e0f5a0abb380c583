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
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestIndex(t *testing.T) {
	idx, err := NewIndex(map[int64]int32{100: 0, 200: 1, 300: 2})
	assert.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, int32(2), idx.MaxDense())
	assert.Equal(t, []int64{100, 200, 300}, idx.IDs())

	dense, ok := idx.ToDense(200)
	assert.True(t, ok)
	assert.Equal(t, int32(1), dense)
	id, ok := idx.ToExternal(1)
	assert.True(t, ok)
	assert.Equal(t, int64(200), id)

	// misses are explicit
	dense, ok = idx.ToDense(999)
	assert.False(t, ok)
	assert.Zero(t, dense)
	_, ok = idx.ToExternal(3)
	assert.False(t, ok)
}

func TestIndexRoundTrip(t *testing.T) {
	idx, err := NewIndex(map[int64]int32{7: 3, 8: 0, 9: 1})
	assert.NoError(t, err)
	for _, id := range idx.IDs() {
		dense, ok := idx.ToDense(id)
		assert.True(t, ok)
		back, ok := idx.ToExternal(dense)
		assert.True(t, ok)
		assert.Equal(t, id, back)
	}
}

func TestNewIndexNotBijective(t *testing.T) {
	_, err := NewIndex(map[int64]int32{1: 0, 2: 0})
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = NewIndex(map[int64]int32{1: -1})
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestNilIndex(t *testing.T) {
	var idx *Index
	assert.Zero(t, idx.Len())
	assert.Equal(t, int32(-1), idx.MaxDense())
	_, ok := idx.ToDense(1)
	assert.False(t, ok)
	_, ok = idx.ToExternal(0)
	assert.False(t, ok)
}

func TestMarshalIndex(t *testing.T) {
	idx, err := UnmarshalIndex([]byte(`{"10": 0, "20": 1}`))
	assert.NoError(t, err)
	dense, ok := idx.ToDense(20)
	assert.True(t, ok)
	assert.Equal(t, int32(1), dense)

	data, err := idx.MarshalJSON()
	assert.NoError(t, err)
	assert.JSONEq(t, `{"10": 0, "20": 1}`, string(data))

	_, err = UnmarshalIndex([]byte(`{"abc": 0}`))
	assert.Error(t, err)
	_, err = UnmarshalIndex([]byte(`[1, 2]`))
	assert.Error(t, err)
}

func TestMap(t *testing.T) {
	users, err := NewIndex(map[int64]int32{1: 0, 2: 1})
	assert.NoError(t, err)
	books, err := NewIndex(map[int64]int32{10: 1, 11: 0})
	assert.NoError(t, err)
	m := NewMap(users, books)

	index, ok := m.FactorizeUser(2)
	assert.True(t, ok)
	assert.Equal(t, int32(1), index)
	_, ok = m.FactorizeUser(3)
	assert.False(t, ok)

	index, ok = m.FactorizeBook(10)
	assert.True(t, ok)
	assert.Equal(t, int32(1), index)
	_, ok = m.FactorizeBook(12)
	assert.False(t, ok)

	id, ok := m.DefactorizeUser(0)
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)
	id, ok = m.DefactorizeBook(0)
	assert.True(t, ok)
	assert.Equal(t, int64(11), id)
	_, ok = m.DefactorizeBook(5)
	assert.False(t, ok)
}
