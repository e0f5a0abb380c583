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

package logics

import (
	"context"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/bookrec/catalog"
	"github.com/gorse-io/bookrec/client"
	"github.com/gorse-io/bookrec/common/log"
	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/factorize"
	"github.com/gorse-io/bookrec/model/ncf"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/gorse-io/bookrec/logics")

// Scorer scores candidate rows for a user.
type Scorer interface {
	Score(ctx context.Context, userIndex int32, rows []ncf.Row) ([]float32, error)
}

// ReadHistory looks up the books a user has read.
type ReadHistory interface {
	GetBooksRead(ctx context.Context, userId int64) client.Outcome
}

type ScoredItem struct {
	BookID int64
	Title  string
	Author string
	Score  float32
}

type RecommendationResult struct {
	Items           []ScoredItem
	Count           int
	TotalCandidates int
	Elapsed         time.Duration
}

// Recommender runs the recommendation pipeline over artifacts loaded at startup. It holds no
// per-request state and is safe for concurrent use.
type Recommender struct {
	config        config.RecommendConfig
	factorization *factorize.Map
	catalog       *catalog.Catalog
	scorer        Scorer
	readHistory   ReadHistory
}

func NewRecommender(cfg config.RecommendConfig,
	factorization *factorize.Map,
	books *catalog.Catalog,
	scorer Scorer,
	readHistory ReadHistory,
) *Recommender {
	return &Recommender{
		config:        cfg,
		factorization: factorization,
		catalog:       books,
		scorer:        scorer,
		readHistory:   readHistory,
	}
}

// Predict recommends up to count unread books for a user, restricted to books carrying every
// requested genre. A count above the hard cap is truncated to it. An unknown user results in
// a NotFound error.
func (r *Recommender) Predict(ctx context.Context, userId int64, genres []catalog.Genre, count int) (*RecommendationResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Recommender.Predict", trace.WithAttributes(
		attribute.Int64("user_id", userId),
		attribute.Int("count", count),
		attribute.StringSlice("genres", lo.Map(genres, func(g catalog.Genre, _ int) string { return g.String() })),
	))
	defer span.End()

	result, err := r.predict(ctx, userId, genres, count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	result.Elapsed = time.Since(start)
	span.SetAttributes(attribute.Int("result.count", result.Count),
		attribute.Int("result.total_candidates", result.TotalCandidates))
	log.Logger().Debug("recommend books",
		zap.Int64("user_id", userId),
		zap.Int("count", result.Count),
		zap.Int("total_candidates", result.TotalCandidates),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (r *Recommender) predict(ctx context.Context, userId int64, genres []catalog.Genre, count int) (*RecommendationResult, error) {
	if userId <= 0 {
		return nil, errors.NotValidf("user id %d", userId)
	}
	if count < 1 {
		return nil, errors.NotValidf("count %d", count)
	}
	// resolve user
	userIndex, ok := r.factorization.FactorizeUser(userId)
	if !ok {
		return nil, errors.NotFoundf("user %d", userId)
	}
	// fetch read history
	excluded := r.fetchReadHistory(ctx, userId)
	// filter candidates
	batch := r.filter(ctx, genres, excluded)
	if len(batch) == 0 {
		return &RecommendationResult{}, nil
	}
	// factorize candidates
	batch = r.factorizeCandidates(batch)
	if len(batch) == 0 {
		return &RecommendationResult{}, nil
	}
	// score candidates
	scores, err := r.score(ctx, userIndex, batch)
	if err != nil {
		return nil, errors.Annotate(err, "failed to score candidates")
	}
	// rank and truncate
	items, total := r.rank(batch, scores, count)
	return &RecommendationResult{
		Items:           items,
		Count:           len(items),
		TotalCandidates: total,
	}, nil
}

// fetchReadHistory returns the set of books read by the user. Any failure is treated as an empty history.
func (r *Recommender) fetchReadHistory(ctx context.Context, userId int64) mapset.Set[int64] {
	ctx, span := tracer.Start(ctx, "Recommender.fetchReadHistory")
	defer span.End()
	start := time.Now()
	outcome := r.readHistory.GetBooksRead(ctx, userId)
	ReadHistorySeconds.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("outcome", outcome.Kind.String()))
	switch outcome.Kind {
	case client.Success:
		return mapset.NewThreadUnsafeSet(outcome.BookIDs...)
	default:
		ReadHistoryFailuresTotal.WithLabelValues(outcome.Kind.String()).Inc()
		return mapset.NewThreadUnsafeSet[int64]()
	}
}

func (r *Recommender) filter(ctx context.Context, genres []catalog.Genre, excluded mapset.Set[int64]) catalog.CandidateBatch {
	_, span := tracer.Start(ctx, "Recommender.filter")
	defer span.End()
	batch := r.catalog.Filter(genres, excluded)
	Candidates.Observe(float64(len(batch)))
	span.SetAttributes(attribute.Int("candidates", len(batch)))
	return batch
}

// factorizeCandidates annotates candidates with dense book indices and drops unmapped books.
func (r *Recommender) factorizeCandidates(batch catalog.CandidateBatch) catalog.CandidateBatch {
	mapped := batch[:0:0]
	for _, candidate := range batch {
		if index, ok := r.factorization.FactorizeBook(candidate.BookID); ok {
			candidate.BookIndex = index
			mapped = append(mapped, candidate)
		}
	}
	if dropped := len(batch) - len(mapped); dropped > 0 {
		UnmappedCandidatesTotal.Add(float64(dropped))
	}
	return mapped
}

func (r *Recommender) score(ctx context.Context, userIndex int32, batch catalog.CandidateBatch) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "Recommender.score", trace.WithAttributes(attribute.Int("rows", len(batch))))
	defer span.End()
	start := time.Now()
	rows := make([]ncf.Row, len(batch))
	for i, candidate := range batch {
		rows[i] = ncf.Row{
			BookIndex: candidate.BookIndex,
			Features:  candidate.Features,
			Genres:    candidate.GenreVector(),
		}
	}
	scores, err := r.scorer.Score(ctx, userIndex, rows)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(scores) != len(rows) {
		return nil, errors.Errorf("scorer returned %d scores for %d rows", len(scores), len(rows))
	}
	ScoreSeconds.Observe(time.Since(start).Seconds())
	return scores, nil
}

// rank sorts candidates by score descending, keeping catalog order for ties. Candidates are
// capped to the hard limit before truncating to count. It returns the items and the size of
// the capped pool.
func (r *Recommender) rank(batch catalog.CandidateBatch, scores []float32, count int) ([]ScoredItem, int) {
	items := make([]ScoredItem, len(batch))
	for i, candidate := range batch {
		items[i] = ScoredItem{
			BookID: candidate.BookID,
			Title:  candidate.Title,
			Author: candidate.Author,
			Score:  scores[i],
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	limit := r.config.MaxResults
	if limit <= 0 || limit > config.MaxResultsLimit {
		limit = config.MaxResultsLimit
	}
	if len(items) > limit {
		items = items[:limit]
	}
	total := len(items)
	if len(items) > count {
		items = items[:count]
	}
	return items, total
}
