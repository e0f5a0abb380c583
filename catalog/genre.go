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
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/juju/errors"
)

// Genre is a position in the genre vector consumed by the model.
type Genre uint

const (
	Science Genre = iota
	Biography
	YoungAdult
	ChickLit
	Psychology
	Ebooks
	Religion
	Cookbooks
	HumorAndComedy
	SelfHelp
	Crime
	Mystery
	Manga
	Paranormal
	Romance
	Horror
	Contemporary
	Music
	ScienceFiction
	GraphicNovels
	Art
	History
	Memoir
	Childrens
	GayAndLesbian
	Poetry
	Thriller
	HistoricalFiction
	Philosophy
	Spirituality
	Comics
	Suspense
	Fantasy
	Nonfiction
	Travel
	Business
	Classics
	Christian
	Fiction
	Sports
)

// NumGenres is the width of the genre vector.
const NumGenres = 40

var genreNames = [NumGenres]string{
	"science", "biography", "young_adult", "chick_lit", "psychology", "ebooks", "religion",
	"cookbooks", "humor_and_comedy", "self_help", "crime", "mystery", "manga", "paranormal",
	"romance", "horror", "contemporary", "music", "science_fiction", "graphic_novels", "art",
	"history", "memoir", "childrens", "gay_and_lesbian", "poetry", "thriller",
	"historical_fiction", "philosophy", "spirituality", "comics", "suspense", "fantasy",
	"nonfiction", "travel", "business", "classics", "christian", "fiction", "sports",
}

var genreByName = func() map[string]Genre {
	m := make(map[string]Genre, NumGenres)
	for i, name := range genreNames {
		m[name] = Genre(i)
	}
	return m
}()

func (g Genre) String() string {
	if int(g) < NumGenres {
		return genreNames[g]
	}
	return "unknown"
}

// GenreNames returns genre tags in vector order.
func GenreNames() []string {
	return genreNames[:]
}

// ParseGenre parses a genre tag. Tags are case-insensitive and accept '-' or ' ' in place of '_'.
func ParseGenre(tag string) (Genre, error) {
	name := strings.ToLower(strings.TrimSpace(tag))
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)
	if g, ok := genreByName[name]; ok {
		return g, nil
	}
	return 0, errors.NotValidf("genre %q", tag)
}

// ParseGenres parses genre tags, ignoring empty tags and duplicates.
func ParseGenres(tags []string) ([]Genre, error) {
	var genres []Genre
	seen := bitset.New(NumGenres)
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		g, err := ParseGenre(tag)
		if err != nil {
			return nil, err
		}
		if !seen.Test(uint(g)) {
			seen.Set(uint(g))
			genres = append(genres, g)
		}
	}
	return genres, nil
}

// NewGenreSet creates a bitset with the given genres set.
func NewGenreSet(genres ...Genre) *bitset.BitSet {
	set := bitset.New(NumGenres)
	for _, g := range genres {
		set.Set(uint(g))
	}
	return set
}
