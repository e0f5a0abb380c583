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
	"bytes"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// genreHeader lists every genre column, each name prefixed.
func genreHeader(prefix string) string {
	return strings.Join(lo.Map(GenreNames(), func(name string, _ int) string {
		return prefix + name
	}), ",")
}

// genreFlags encodes the flag columns of a book carrying the genres.
func genreFlags(genres ...Genre) string {
	set := NewGenreSet(genres...)
	return strings.Join(lo.Map(lo.Range(NumGenres), func(i int, _ int) string {
		return lo.Ternary(set.Test(uint(i)), "1", "0")
	}), ",")
}

func TestLoadCSVScaled(t *testing.T) {
	text := "book_id,title,author," + genreHeader("") + ",scaled_num_pages,scaled_avg_rating,scaled_promoters,scaled_detractors\n" +
		"10,The Hobbit,Tolkien," + genreFlags(Fantasy, Fiction) + ",0.5,1.5,-0.25,0\n" +
		"11,Dune,Herbert," + strings.Replace(genreFlags(Fiction), "1", "True", 1) + ",-1,0,1,2\n"
	c, err := LoadCSV(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	hobbit := c.Book(0)
	assert.Equal(t, int64(10), hobbit.BookID)
	assert.Equal(t, "The Hobbit", hobbit.Title)
	assert.Equal(t, "Tolkien", hobbit.Author)
	assert.True(t, hobbit.HasGenres(NewGenreSet(Fantasy, Fiction)))
	assert.Equal(t, [NumFeatures]float32{0.5, 1.5, -0.25, 0}, hobbit.Features)

	dune := c.Book(1)
	assert.False(t, dune.HasGenres(NewGenreSet(Fantasy)))
	assert.True(t, dune.HasGenres(NewGenreSet(Fiction)))
	assert.Equal(t, [NumFeatures]float32{-1, 0, 1, 2}, dune.Features)
}

func TestLoadCSVRaw(t *testing.T) {
	text := "book_id,title,num_pages,avg_rating,promoters,detractors," + genreHeader("") + "\n" +
		"1,A,100,4,10,1," + genreFlags() + "\n" +
		"2,B,300,4,30,," + genreFlags() + "\n"
	c, err := LoadCSV(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	// z-scores over the catalog
	assert.InDelta(t, -1, c.Book(0).Features[NumPages], 1e-6)
	assert.InDelta(t, 1, c.Book(1).Features[NumPages], 1e-6)
	assert.InDelta(t, -1, c.Book(0).Features[Promoters], 1e-6)
	// constant column
	assert.Zero(t, c.Book(0).Features[AvgRating])
	assert.Zero(t, c.Book(1).Features[AvgRating])
	// missing value
	assert.Zero(t, c.Book(1).Features[Detractors])
	// no author column
	assert.Empty(t, c.Book(0).Author)
}

func TestLoadCSVSnapshotColumns(t *testing.T) {
	// header of the catalog snapshots exported by the training job
	header := "0,book_title,avg_rating,num_ratings,num_pages,promoters,detractors,author_url,book_id,book_url," +
		"isbn,isbn13,asin,language,author_id,book_url_1," + genreHeader("genre_")
	text := header + "\n" +
		"0,The Hobbit,4.3,100,310,80,5,http://a/1,7,http://b/7,x,x,x,en,1,x," + genreFlags(Fantasy, Fiction) + "\n" +
		"1,Dune,4.2,90,600,70,8,http://a/2,8,http://b/8,x,x,x,en,2,x," + genreFlags(ScienceFiction) + "\n"
	c, err := LoadCSV(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, int64(7), c.Book(0).BookID)
	assert.Equal(t, "The Hobbit", c.Book(0).Title)
	assert.InDelta(t, -1, c.Book(0).Features[NumPages], 1e-6)

	fantasy := c.Filter([]Genre{Fantasy}, nil)
	require.Len(t, fantasy, 1)
	assert.Equal(t, int64(7), fantasy[0].BookID)
	scienceFiction := c.Filter([]Genre{ScienceFiction}, nil)
	require.Len(t, scienceFiction, 1)
	assert.Equal(t, int64(8), scienceFiction[0].BookID)
}

func TestLoadCSVInvalid(t *testing.T) {
	features := "num_pages,avg_rating,promoters,detractors," + genreHeader("")
	for name, text := range map[string]string{
		"missing book_id": "title," + features + "\nA,1,2,3,4," + genreFlags() + "\n",
		"missing title":   "book_id," + features + "\n1,1,2,3,4," + genreFlags() + "\n",
		"missing feature": "book_id,title,num_pages,avg_rating,promoters," + genreHeader("") + "\n1,A,1,2,3," + genreFlags() + "\n",
		"missing genre":   "book_id,title,fantasy,num_pages,avg_rating,promoters,detractors\n1,A,1,1,2,3,4\n",
		"bad book_id":     "book_id,title," + features + "\nx,A,1,2,3,4," + genreFlags() + "\n",
		"bad feature":     "book_id,title," + features + "\n1,A,many,2,3,4," + genreFlags() + "\n",
		"bad flag":        "book_id,title," + features + "\n1,A,1,2,3,4," + strings.Replace(genreFlags(), "0", "maybe", 1) + "\n",
		"duplicate":       "book_id,title," + features + "\n1,A,1,2,3,4," + genreFlags() + "\n1,B,1,2,3,4," + genreFlags() + "\n",
	} {
		_, err := LoadCSV(strings.NewReader(text))
		assert.True(t, errors.Is(err, errors.NotValid), name)
	}
	_, err := LoadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	c := New([]Book{
		{BookID: 1, Title: "Dune, Part One", Author: "Herbert", Genres: NewGenreSet(ScienceFiction), Features: [NumFeatures]float32{0.1, -0.2, 0.3, 0}},
		{BookID: 2, Title: "Emma", Genres: NewGenreSet(Classics, Romance), Features: [NumFeatures]float32{1, 2, 3, 4}},
	})
	var buf bytes.Buffer
	require.NoError(t, c.WriteCSV(&buf))

	loaded, err := LoadCSV(&buf)
	require.NoError(t, err)
	require.Equal(t, c.Len(), loaded.Len())
	for i := 0; i < c.Len(); i++ {
		assert.Equal(t, c.Book(i).BookID, loaded.Book(i).BookID)
		assert.Equal(t, c.Book(i).Title, loaded.Book(i).Title)
		assert.Equal(t, c.Book(i).Author, loaded.Book(i).Author)
		assert.Equal(t, c.Book(i).Features, loaded.Book(i).Features)
		assert.True(t, c.Book(i).Genres.Equal(loaded.Book(i).Genres))
	}
}
