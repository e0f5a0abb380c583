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
	"fmt"
	"math/rand"
	"time"

	"github.com/gorse-io/bookrec/catalog"
	"github.com/gorse-io/bookrec/factorize"
	"github.com/gorse-io/bookrec/model/ncf"
)

// Random generates consistent synthetic artifacts. User IDs are 1..numUsers and book IDs
// are 1..numBooks, each book carrying one or two genres.
func Random(numUsers, numBooks int, seed int64) *Artifacts {
	rng := rand.New(rand.NewSource(seed))
	userMapping := make(map[int64]int32, numUsers)
	for i := 0; i < numUsers; i++ {
		userMapping[int64(i+1)] = int32(i)
	}
	bookMapping := make(map[int64]int32, numBooks)
	books := make([]catalog.Book, numBooks)
	for i := 0; i < numBooks; i++ {
		bookMapping[int64(i+1)] = int32(i)
		books[i] = catalog.Book{
			BookID: int64(i + 1),
			Title:  fmt.Sprintf("Book %d", i+1),
			Author: fmt.Sprintf("Author %d", rng.Intn(10)),
			Genres: catalog.NewGenreSet(catalog.Genre(rng.Intn(catalog.NumGenres)), catalog.Genre(rng.Intn(catalog.NumGenres))),
		}
		for j := range books[i].Features {
			books[i].Features[j] = float32(rng.NormFloat64())
		}
	}
	users, err := factorize.NewIndex(userMapping)
	if err != nil {
		panic(err)
	}
	bookIndex, err := factorize.NewIndex(bookMapping)
	if err != nil {
		panic(err)
	}
	return &Artifacts{
		Factorization: factorize.NewMap(users, bookIndex),
		Catalog:       catalog.New(books),
		Model:         ncf.NewRandom(numUsers, numBooks, seed),
		Properties: Properties{
			"num_users":     float64(numUsers),
			"num_books":     float64(numBooks),
			"source_folder": "random",
		},
		LoadedAt: time.Now(),
	}
}
