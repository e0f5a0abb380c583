// Copyright 2020 gorse Project Authors
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

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/emicklei/go-restful/v3"
	"github.com/gorse-io/bookrec/artifacts"
	"github.com/gorse-io/bookrec/client"
	"github.com/gorse-io/bookrec/common/log"
	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/logics"
	"github.com/gorse-io/bookrec/storage/blob"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Server loads model artifacts and serves recommendations over HTTP.
type Server struct {
	RestServer
	httpServer *http.Server
}

// NewServer creates a server. Artifacts are not loaded until Load is called.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		RestServer: RestServer{
			Config:     cfg,
			WebService: new(restful.WebService),
		},
	}
	s.CreateWebService()
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: s.Handler(),
	}
	return s
}

// Load reads artifacts from the configured storage, validates them and builds the
// recommendation pipeline. Storage failures are retried until the load timeout expires. The
// server reports ready only after Load succeeds.
func (s *Server) Load(ctx context.Context) error {
	start := time.Now()
	store, err := blob.Open(s.Config.Artifacts)
	if err != nil {
		return errors.Trace(err)
	}
	a, err := backoff.Retry(ctx, func() (*artifacts.Artifacts, error) {
		a, err := artifacts.Load(ctx, store)
		if errors.Is(err, errors.NotFound) || errors.Is(err, errors.NotValid) {
			return nil, backoff.Permanent(err)
		} else if err != nil {
			log.Logger().Warn("failed to load artifacts", zap.Error(err))
			return nil, err
		}
		if err = a.Validate(); err != nil {
			return nil, backoff.Permanent(errors.Annotate(err, "invalid artifacts"))
		}
		return a, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(s.Config.Artifacts.LoadTimeout))
	if err != nil {
		return errors.Annotate(err, "failed to load artifacts")
	}
	s.Serve(a)
	log.Logger().Info("artifacts loaded",
		zap.String("storage", s.Config.Artifacts.Storage),
		zap.String("dir", s.Config.Artifacts.Dir),
		zap.Int("num_users", a.Factorization.Users.Len()),
		zap.Int("num_books", a.Catalog.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Serve wires validated artifacts into the recommendation pipeline and marks the server ready.
func (s *Server) Serve(a *artifacts.Artifacts) {
	a.Model.SetJobs(s.Config.Recommend.ScoreJobs)
	readHistory := client.NewReadHistoryClient(s.Config.ReadHistory.BaseURL, s.Config.ReadHistory.Timeout)
	recommender := logics.NewRecommender(s.Config.Recommend, a.Factorization, a.Catalog, a.Model, readHistory)
	s.SetReady(a, recommender)
}

// Run listens on the configured address until Shutdown is called.
func (s *Server) Run() error {
	log.Logger().Info("start bookrec server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.Config.Server.Host, s.Config.Server.Port)),
		zap.String("read_history", log.RedactURL(s.Config.ReadHistory.BaseURL)))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return errors.Trace(s.httpServer.Shutdown(ctx))
}
