// Copyright 2022 gorse Project Authors
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

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorse-io/bookrec/common/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const maxBodySize = 16 << 20

// OutcomeKind classifies the result of a read-history query.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	ClientRejected
	ServerRejected
	TransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case ClientRejected:
		return "client_rejected"
	case ServerRejected:
		return "server_rejected"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of a read-history query. BookIDs is set on Success, Status on
// ClientRejected and ServerRejected, Err on TransportFailure.
type Outcome struct {
	Kind    OutcomeKind
	BookIDs []int64
	Status  int
	Err     error
}

func (o Outcome) String() string {
	switch o.Kind {
	case Success:
		return fmt.Sprintf("success(%d books)", len(o.BookIDs))
	case ClientRejected, ServerRejected:
		return fmt.Sprintf("%s(%d)", o.Kind, o.Status)
	default:
		return fmt.Sprintf("%s(%v)", o.Kind, o.Err)
	}
}

type booksReadResponse struct {
	BookIDs []int64 `json:"book_ids"`
}

// ReadHistoryClient queries the profile service for books a user has read.
type ReadHistoryClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewReadHistoryClient(baseURL string, timeout time.Duration) *ReadHistoryClient {
	return &ReadHistoryClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetBooksRead makes a single attempt to fetch the books read by a user. Failures are
// reported through the outcome kind, never retried.
func (c *ReadHistoryClient) GetBooksRead(ctx context.Context, userId int64) Outcome {
	url := fmt.Sprintf("%s/users/%d/books-read", c.baseURL, userId)
	logger := log.Logger().With(zap.String("url", log.RedactURL(url)), zap.Int64("user_id", userId))
	outcome := c.get(ctx, url)
	switch outcome.Kind {
	case Success:
		logger.Debug("read history fetched", zap.Stringer("outcome", outcome))
	case ClientRejected:
		logger.Warn("read history rejected by client error", zap.Stringer("outcome", outcome))
	case ServerRejected:
		logger.Error("read history rejected by server error", zap.Stringer("outcome", outcome))
	case TransportFailure:
		logger.Error("failed to query read history", zap.Stringer("outcome", outcome), zap.Error(outcome.Err))
	}
	return outcome
}

func (c *ReadHistoryClient) get(ctx context.Context, url string) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{Kind: TransportFailure, Err: errors.Trace(err)}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Outcome{Kind: TransportFailure, Err: errors.Trace(err)}
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Outcome{Kind: ClientRejected, Status: resp.StatusCode}
	default:
		return Outcome{Kind: ServerRejected, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Outcome{Kind: TransportFailure, Err: errors.Trace(err)}
	}
	var result booksReadResponse
	if err = jsoniter.Unmarshal(body, &result); err != nil {
		return Outcome{Kind: TransportFailure, Err: errors.Annotate(err, "failed to decode read history")}
	}
	if result.BookIDs == nil {
		return Outcome{Kind: TransportFailure, Err: errors.NotValidf("read history without book_ids")}
	}
	return Outcome{Kind: Success, BookIDs: result.BookIDs}
}
