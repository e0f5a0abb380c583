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
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ReadHistoryClientTestSuite struct {
	suite.Suite
	server   *httptest.Server
	client   *ReadHistoryClient
	status   int
	body     string
	delay    time.Duration
	requests atomic.Int32
	path     string
}

func (suite *ReadHistoryClientTestSuite) SetupTest() {
	suite.status = http.StatusOK
	suite.body = `{"book_ids": [1, 2, 3]}`
	suite.delay = 0
	suite.requests.Store(0)
	suite.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.requests.Add(1)
		suite.path = r.URL.Path
		if suite.delay > 0 {
			select {
			case <-time.After(suite.delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(suite.status)
		_, _ = w.Write([]byte(suite.body))
	}))
	suite.client = NewReadHistoryClient(suite.server.URL+"/", 200*time.Millisecond)
}

func (suite *ReadHistoryClientTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *ReadHistoryClientTestSuite) TestSuccess() {
	outcome := suite.client.GetBooksRead(context.Background(), 42)
	suite.Equal(Success, outcome.Kind)
	suite.Equal([]int64{1, 2, 3}, outcome.BookIDs)
	suite.Equal("/users/42/books-read", suite.path)
	suite.Equal(int32(1), suite.requests.Load())
}

func (suite *ReadHistoryClientTestSuite) TestExtraFields() {
	suite.body = `{"book_ids": [7], "user_id": 42, "source": "profile"}`
	outcome := suite.client.GetBooksRead(context.Background(), 42)
	suite.Equal(Success, outcome.Kind)
	suite.Equal([]int64{7}, outcome.BookIDs)
}

func (suite *ReadHistoryClientTestSuite) TestEmptyHistory() {
	suite.body = `{"book_ids": []}`
	outcome := suite.client.GetBooksRead(context.Background(), 42)
	suite.Equal(Success, outcome.Kind)
	suite.Empty(outcome.BookIDs)
}

func (suite *ReadHistoryClientTestSuite) TestClientRejected() {
	for _, status := range []int{400, 401, 403, 404} {
		suite.status = status
		outcome := suite.client.GetBooksRead(context.Background(), 42)
		suite.Equal(ClientRejected, outcome.Kind)
		suite.Equal(status, outcome.Status)
		suite.Nil(outcome.BookIDs)
		suite.Equal(fmt.Sprintf("client_rejected(%d)", status), outcome.String())
	}
}

func (suite *ReadHistoryClientTestSuite) TestServerRejected() {
	for _, status := range []int{500, 501, 502, 503, 504} {
		suite.status = status
		outcome := suite.client.GetBooksRead(context.Background(), 42)
		suite.Equal(ServerRejected, outcome.Kind)
		suite.Equal(status, outcome.Status)
		suite.Nil(outcome.BookIDs)
	}
	// no retry
	suite.Equal(int32(5), suite.requests.Load())
}

func (suite *ReadHistoryClientTestSuite) TestTimeout() {
	suite.delay = time.Second
	outcome := suite.client.GetBooksRead(context.Background(), 42)
	suite.Equal(TransportFailure, outcome.Kind)
	suite.Error(outcome.Err)
	suite.Equal(int32(1), suite.requests.Load())
}

func (suite *ReadHistoryClientTestSuite) TestContextCanceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := suite.client.GetBooksRead(ctx, 42)
	suite.Equal(TransportFailure, outcome.Kind)
}

func (suite *ReadHistoryClientTestSuite) TestMalformedBody() {
	for _, body := range []string{`not json`, `{"book_ids": ["a"]}`, `{"other": 1}`} {
		suite.body = body
		outcome := suite.client.GetBooksRead(context.Background(), 42)
		suite.Equal(TransportFailure, outcome.Kind, body)
		suite.Error(outcome.Err)
	}
}

func (suite *ReadHistoryClientTestSuite) TestUnreachable() {
	client := NewReadHistoryClient("http://127.0.0.1:1", 200*time.Millisecond)
	outcome := client.GetBooksRead(context.Background(), 42)
	suite.Equal(TransportFailure, outcome.Kind)
	suite.Contains(outcome.String(), "transport_failure")
}

func TestReadHistoryClient(t *testing.T) {
	suite.Run(t, new(ReadHistoryClientTestSuite))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success(2 books)", Outcome{Kind: Success, BookIDs: []int64{1, 2}}.String())
	assert.Equal(t, "client_rejected(404)", Outcome{Kind: ClientRejected, Status: 404}.String())
	assert.Equal(t, "server_rejected(503)", Outcome{Kind: ServerRejected, Status: 503}.String())
	assert.Equal(t, "transport_failure(timeout)", Outcome{Kind: TransportFailure, Err: errors.New("timeout")}.String())
}
