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
	"bytes"
	"context"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/bookrec/catalog"
	"github.com/gorse-io/bookrec/common/log"
	"github.com/gorse-io/bookrec/factorize"
	"github.com/gorse-io/bookrec/model/ncf"
	"github.com/gorse-io/bookrec/storage/blob"
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	UserIndexFile  = "user_id_to_f_user_id.json"
	BookIndexFile  = "book_id_to_f_book_id.json"
	PropertiesFile = "model_properties.json"
	CatalogFile    = "books.csv"
	WeightsFile    = "model_weights.json"
)

// Files lists every artifact produced by training.
var Files = []string{UserIndexFile, BookIndexFile, PropertiesFile, CatalogFile, WeightsFile}

// Properties is the free-form metadata shipped with a model. num_users and num_books are required.
type Properties map[string]any

func (p Properties) number(key string) (int, bool) {
	switch v := p[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func (p Properties) NumUsers() (int, bool) {
	return p.number("num_users")
}

func (p Properties) NumBooks() (int, bool) {
	return p.number("num_books")
}

// Artifacts are the read-only dependencies of the recommendation pipeline.
type Artifacts struct {
	Factorization *factorize.Map
	Catalog       *catalog.Catalog
	Model         *ncf.Model
	Properties    Properties
	LoadedAt      time.Time
	LoadDuration  time.Duration
}

// Info summarizes loaded artifacts.
type Info struct {
	NumUsers    int            `json:"num_users"`
	NumBooks    int            `json:"num_books"`
	CatalogSize int            `json:"catalog_size"`
	LoadedAt    time.Time      `json:"loaded_at"`
	LoadSeconds float64        `json:"load_seconds"`
	Properties  map[string]any `json:"properties"`
}

func (a *Artifacts) Info() Info {
	return Info{
		NumUsers:    a.Factorization.Users.Len(),
		NumBooks:    a.Factorization.Books.Len(),
		CatalogSize: a.Catalog.Len(),
		LoadedAt:    a.LoadedAt,
		LoadSeconds: a.LoadDuration.Seconds(),
		Properties:  a.Properties,
	}
}

// Load reads all artifacts from a store.
func Load(ctx context.Context, store blob.Store) (*Artifacts, error) {
	start := time.Now()
	log.Logger().Info("loading artifacts")
	names, err := store.List(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to list artifacts")
	}
	if missing := mapset.NewSet(Files...).Difference(mapset.NewSet(names...)); missing.Cardinality() > 0 {
		return nil, errors.NotFoundf("artifacts %v", missing.ToSlice())
	}

	a := &Artifacts{}
	// factorization maps
	var users, books *factorize.Index
	for _, load := range []struct {
		name  string
		index **factorize.Index
	}{
		{UserIndexFile, &users},
		{BookIndexFile, &books},
	} {
		data, err := blob.ReadAll(ctx, store, load.name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if *load.index, err = factorize.UnmarshalIndex(data); err != nil {
			return nil, errors.NewNotValid(err, "failed to decode "+load.name)
		}
	}
	a.Factorization = factorize.NewMap(users, books)
	// model properties
	data, err := blob.ReadAll(ctx, store, PropertiesFile)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = jsoniter.Unmarshal(data, &a.Properties); err != nil {
		return nil, errors.NewNotValid(err, "failed to decode "+PropertiesFile)
	}
	// catalog
	data, err = blob.ReadAll(ctx, store, CatalogFile)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if a.Catalog, err = catalog.LoadCSV(bytes.NewReader(data)); err != nil {
		return nil, errors.NewNotValid(err, "failed to decode "+CatalogFile)
	}
	// model weights
	data, err = blob.ReadAll(ctx, store, WeightsFile)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if a.Model, err = ncf.Unmarshal(data); err != nil {
		return nil, errors.NewNotValid(err, "failed to decode "+WeightsFile)
	}

	a.LoadedAt = time.Now()
	a.LoadDuration = time.Since(start)
	log.Logger().Info("artifacts loaded",
		zap.Int("num_users", users.Len()),
		zap.Int("num_books", books.Len()),
		zap.Int("catalog_size", a.Catalog.Len()),
		zap.Duration("duration", a.LoadDuration))
	return a, nil
}

// Validate checks that every dependency is present and consistent with the model.
func (a *Artifacts) Validate() error {
	if a.Factorization == nil || a.Factorization.Users.Len() == 0 {
		return errors.NotValidf("empty user factorization")
	}
	if a.Factorization.Books.Len() == 0 {
		return errors.NotValidf("empty book factorization")
	}
	if a.Catalog.Len() == 0 {
		return errors.NotValidf("empty catalog")
	}
	if a.Model == nil {
		return errors.NotValidf("missing model")
	}
	if len(a.Properties) == 0 {
		return errors.NotValidf("empty model properties")
	}
	numUsers, ok := a.Properties.NumUsers()
	if !ok {
		return errors.NotValidf("model properties without num_users")
	}
	numBooks, ok := a.Properties.NumBooks()
	if !ok {
		return errors.NotValidf("model properties without num_books")
	}
	if numUsers != a.Model.NumUsers() {
		return errors.NotValidf("num_users %d with %d user embeddings", numUsers, a.Model.NumUsers())
	}
	if numBooks != a.Model.NumBooks() {
		return errors.NotValidf("num_books %d with %d book embeddings", numBooks, a.Model.NumBooks())
	}
	if maxDense := a.Factorization.Users.MaxDense(); int(maxDense) >= numUsers {
		return errors.NotValidf("user index %d out of %d user embeddings", maxDense, numUsers)
	}
	if maxDense := a.Factorization.Books.MaxDense(); int(maxDense) >= numBooks {
		return errors.NotValidf("book index %d out of %d book embeddings", maxDense, numBooks)
	}
	log.Logger().Info("artifacts validated")
	return nil
}

// Dump writes all artifacts to a store.
func (a *Artifacts) Dump(store blob.Store) error {
	users, err := a.Factorization.Users.MarshalJSON()
	if err != nil {
		return errors.Trace(err)
	}
	books, err := a.Factorization.Books.MarshalJSON()
	if err != nil {
		return errors.Trace(err)
	}
	properties, err := jsoniter.Marshal(a.Properties)
	if err != nil {
		return errors.Trace(err)
	}
	var csv bytes.Buffer
	if err = a.Catalog.WriteCSV(&csv); err != nil {
		return errors.Trace(err)
	}
	weights, err := a.Model.Marshal()
	if err != nil {
		return errors.Trace(err)
	}
	for _, file := range []struct {
		name string
		data []byte
	}{
		{UserIndexFile, users},
		{BookIndexFile, books},
		{PropertiesFile, properties},
		{CatalogFile, csv.Bytes()},
		{WeightsFile, weights},
	} {
		if err = blob.WriteAll(store, file.name, file.data); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
