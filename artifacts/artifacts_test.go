// Copyright 2025 gorse Project Authors
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

package artifacts

import (
	"context"
	"testing"

	"github.com/gorse-io/bookrec/model/ncf"
	"github.com/gorse-io/bookrec/storage/blob"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpAndLoad(t *testing.T) {
	expected := Random(20, 50, 0)
	require.NoError(t, expected.Validate())
	store := blob.NewPOSIX(t.TempDir())
	require.NoError(t, expected.Dump(store))

	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, Files, names)

	actual, err := Load(context.Background(), store)
	require.NoError(t, err)
	require.NoError(t, actual.Validate())
	assert.Equal(t, expected.Properties, actual.Properties)
	assert.Equal(t, expected.Factorization.Users.IDs(), actual.Factorization.Users.IDs())
	assert.Equal(t, expected.Factorization.Books.IDs(), actual.Factorization.Books.IDs())
	assert.Equal(t, expected.Catalog.Len(), actual.Catalog.Len())
	assert.Equal(t, expected.Catalog.Book(7).Title, actual.Catalog.Book(7).Title)
	assert.Equal(t, expected.Catalog.Book(7).Features, actual.Catalog.Book(7).Features)
	assert.False(t, actual.LoadedAt.IsZero())

	rows := []ncf.Row{{BookIndex: 0}, {BookIndex: 49}}
	want, err := expected.Model.Score(context.Background(), 3, rows)
	require.NoError(t, err)
	got, err := actual.Model.Score(context.Background(), 3, rows)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-5)

	info := actual.Info()
	assert.Equal(t, 20, info.NumUsers)
	assert.Equal(t, 50, info.NumBooks)
	assert.Equal(t, 50, info.CatalogSize)
	assert.Equal(t, "random", info.Properties["source_folder"])
}

func TestLoadMissing(t *testing.T) {
	store := blob.NewPOSIX(t.TempDir())
	require.NoError(t, Random(2, 2, 0).Dump(store))
	require.NoError(t, blob.WriteAll(store, "model_weights.json", []byte("{}")))

	// missing parameters
	_, err := Load(context.Background(), store)
	assert.True(t, errors.Is(err, errors.NotValid))

	// missing files
	_, err = Load(context.Background(), blob.NewPOSIX(t.TempDir()))
	assert.True(t, errors.Is(err, errors.NotFound))
	assert.ErrorContains(t, err, CatalogFile)
}

func TestLoadCorrupted(t *testing.T) {
	store := blob.NewPOSIX(t.TempDir())
	require.NoError(t, Random(2, 2, 0).Dump(store))
	require.NoError(t, blob.WriteAll(store, PropertiesFile, []byte("num_users: 2")))
	_, err := Load(context.Background(), store)
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.ErrorContains(t, err, PropertiesFile)
}

func TestLoadNotBijective(t *testing.T) {
	store := blob.NewPOSIX(t.TempDir())
	require.NoError(t, Random(2, 2, 0).Dump(store))
	require.NoError(t, blob.WriteAll(store, UserIndexFile, []byte(`{"1": 0, "2": 0}`)))
	_, err := Load(context.Background(), store)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestValidate(t *testing.T) {
	a := Random(5, 5, 0)
	a.Properties["num_users"] = float64(6)
	assert.True(t, errors.Is(a.Validate(), errors.NotValid))

	a = Random(5, 5, 0)
	a.Properties["num_books"] = float64(4)
	assert.True(t, errors.Is(a.Validate(), errors.NotValid))

	a = Random(5, 5, 0)
	delete(a.Properties, "num_users")
	assert.True(t, errors.Is(a.Validate(), errors.NotValid))

	a = Random(5, 5, 0)
	a.Model = nil
	assert.True(t, errors.Is(a.Validate(), errors.NotValid))

	a = Random(5, 5, 0)
	a.Model = ncf.NewRandom(5, 3, 0)
	a.Properties["num_books"] = float64(3)
	assert.True(t, errors.Is(a.Validate(), errors.NotValid))

	a = Random(0, 5, 0)
	assert.True(t, errors.Is(a.Validate(), errors.NotValid))
}
