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
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestParseGenre(t *testing.T) {
	g, err := ParseGenre("science_fiction")
	assert.NoError(t, err)
	assert.Equal(t, ScienceFiction, g)
	g, err = ParseGenre(" Humor-And-Comedy ")
	assert.NoError(t, err)
	assert.Equal(t, HumorAndComedy, g)
	g, err = ParseGenre("young adult")
	assert.NoError(t, err)
	assert.Equal(t, YoungAdult, g)

	_, err = ParseGenre("cyberpunk")
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestGenreOrder(t *testing.T) {
	assert.Len(t, GenreNames(), NumGenres)
	assert.Equal(t, "science", Science.String())
	assert.Equal(t, "sports", Sports.String())
	assert.Equal(t, Genre(NumGenres-1), Sports)
	assert.Equal(t, "unknown", Genre(NumGenres).String())
	for i, name := range GenreNames() {
		g, err := ParseGenre(name)
		assert.NoError(t, err)
		assert.Equal(t, Genre(i), g)
	}
}

func TestParseGenres(t *testing.T) {
	genres, err := ParseGenres([]string{"fantasy", "", "fiction", "fantasy"})
	assert.NoError(t, err)
	assert.Equal(t, []Genre{Fantasy, Fiction}, genres)

	genres, err = ParseGenres(nil)
	assert.NoError(t, err)
	assert.Empty(t, genres)

	_, err = ParseGenres([]string{"fantasy", "unknown"})
	assert.Error(t, err)
}

func TestNewGenreSet(t *testing.T) {
	set := NewGenreSet(Science, Sports)
	assert.True(t, set.Test(uint(Science)))
	assert.True(t, set.Test(uint(Sports)))
	assert.Equal(t, uint(2), set.Count())
}
