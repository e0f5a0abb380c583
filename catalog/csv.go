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
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

const (
	columnBookID = "book_id"
	columnTitle  = "title"
	columnAuthor = "author"
	scaledPrefix = "scaled_"
	genrePrefix  = "genre_"
)

// aliases of the title column in older snapshots
var titleColumns = []string{columnTitle, "book_title"}

// LoadCSV reads a catalog snapshot. Columns are addressed by header name: book_id and title (or
// book_title) are required, author is optional, every genre is a 0/1 flag column named genre_<name>
// or <name>, and numeric features come either from scaled_* columns used verbatim or from raw
// columns standardized over the whole catalog.
func LoadCSV(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Annotate(err, "failed to read catalog header")
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := columns[columnBookID]; !ok {
		return nil, errors.NotValidf("catalog without column %s", columnBookID)
	}
	titleColumn, ok := lo.Find(titleColumns, func(name string) bool {
		_, exist := columns[name]
		return exist
	})
	if !ok {
		return nil, errors.NotValidf("catalog without column %s", columnTitle)
	}
	var genreColumns [NumGenres]string
	for i, name := range genreNames {
		if _, exist := columns[genrePrefix+name]; exist {
			genreColumns[i] = genrePrefix + name
		} else if _, exist = columns[name]; exist {
			genreColumns[i] = name
		} else {
			return nil, errors.NotValidf("catalog without column %s%s", genrePrefix, name)
		}
	}
	scaled := lo.EveryBy(featureNames[:], func(name string) bool {
		_, ok := columns[scaledPrefix+name]
		return ok
	})
	var featureColumns [NumFeatures]int
	for i := range featureColumns {
		name := Feature(i).String()
		if scaled {
			name = scaledPrefix + name
		}
		col, ok := columns[name]
		if !ok {
			return nil, errors.NotValidf("catalog without column %s", name)
		}
		featureColumns[i] = col
	}

	var (
		books []Book
		raw   [][NumFeatures]float64
		seen  = make(map[int64]struct{})
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Annotatef(err, "failed to read catalog line %d", line)
		}
		field := func(name string) string {
			if col, ok := columns[name]; ok && col < len(record) {
				return strings.TrimSpace(record[col])
			}
			return ""
		}
		bookId, err := strconv.ParseInt(field(columnBookID), 10, 64)
		if err != nil {
			return nil, errors.NotValidf("book_id %q at line %d", field(columnBookID), line)
		}
		if _, exist := seen[bookId]; exist {
			return nil, errors.NotValidf("duplicate book_id %d at line %d", bookId, line)
		}
		seen[bookId] = struct{}{}
		book := Book{
			BookID: bookId,
			Title:  field(titleColumn),
			Author: field(columnAuthor),
			Genres: bitset.New(NumGenres),
		}
		for i, name := range genreColumns {
			flag, err := parseFlag(field(name))
			if err != nil {
				return nil, errors.NotValidf("%s %q at line %d", name, field(name), line)
			}
			if flag {
				book.Genres.Set(uint(i))
			}
		}
		var values [NumFeatures]float64
		for i, col := range featureColumns {
			text := ""
			if col < len(record) {
				text = strings.TrimSpace(record[col])
			}
			if text == "" {
				values[i] = math.NaN()
				continue
			}
			if values[i], err = strconv.ParseFloat(text, 64); err != nil {
				return nil, errors.NotValidf("%s %q at line %d", header[col], text, line)
			}
		}
		books = append(books, book)
		raw = append(raw, values)
	}

	if scaled {
		for i := range books {
			for j, v := range raw[i] {
				if !math.IsNaN(v) {
					books[i].Features[j] = float32(v)
				}
			}
		}
	} else {
		standardize(books, raw)
	}
	return New(books), nil
}

// standardize writes z-scores of raw features into books. Missing values and constant
// columns are mapped to zero.
func standardize(books []Book, raw [][NumFeatures]float64) {
	for j := 0; j < NumFeatures; j++ {
		var sum, sumSq, n float64
		for i := range raw {
			if v := raw[i][j]; !math.IsNaN(v) {
				sum += v
				sumSq += v * v
				n++
			}
		}
		if n == 0 {
			continue
		}
		mean := sum / n
		std := math.Sqrt(math.Max(sumSq/n-mean*mean, 0))
		for i := range raw {
			v := raw[i][j]
			if math.IsNaN(v) || std == 0 {
				books[i].Features[j] = 0
			} else {
				books[i].Features[j] = float32((v - mean) / std)
			}
		}
	}
}

func parseFlag(text string) (bool, error) {
	switch strings.ToLower(text) {
	case "", "0", "0.0", "false":
		return false, nil
	case "1", "1.0", "true":
		return true, nil
	default:
		return false, errors.NotValidf("flag %q", text)
	}
}

// WriteCSV writes the catalog with scaled features, so that LoadCSV reproduces it exactly.
func (c *Catalog) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	header := []string{columnBookID, columnTitle, columnAuthor}
	for _, name := range genreNames {
		header = append(header, genrePrefix+name)
	}
	for _, name := range featureNames {
		header = append(header, scaledPrefix+name)
	}
	if err := writer.Write(header); err != nil {
		return errors.Trace(err)
	}
	for i := range c.books {
		book := &c.books[i]
		record := []string{strconv.FormatInt(book.BookID, 10), book.Title, book.Author}
		for g := 0; g < NumGenres; g++ {
			record = append(record, lo.Ternary(book.Genres.Test(uint(g)), "1", "0"))
		}
		for _, v := range book.Features {
			record = append(record, strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
		if err := writer.Write(record); err != nil {
			return errors.Trace(err)
		}
	}
	writer.Flush()
	return errors.Trace(writer.Error())
}
