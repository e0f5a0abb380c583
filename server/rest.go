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
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/gorse-io/bookrec/artifacts"
	"github.com/gorse-io/bookrec/catalog"
	"github.com/gorse-io/bookrec/common/log"
	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/logics"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/swaggest/swgui/v5emb"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	apiDocsPath   = "/apidocs/"
	apiSpecPath   = "/apidocs.json"
	statusReady   = "Ready to Rock!"
	statusLoading = "Loading"
)

// RestServer implements a REST-ful API server.
type RestServer struct {
	Config      *config.Config
	Artifacts   *artifacts.Artifacts
	Recommender *logics.Recommender
	WebService  *restful.WebService
	ready       atomic.Bool
}

// SetReady publishes loaded artifacts and the pipeline built on them. Requests are served
// once it returns.
func (s *RestServer) SetReady(a *artifacts.Artifacts, recommender *logics.Recommender) {
	s.Artifacts = a
	s.Recommender = recommender
	s.ready.Store(true)
}

func (s *RestServer) IsReady() bool {
	return s.ready.Load()
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	// Create a server
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/")
	ws.Filter(RequestIDFilter)
	ws.Filter(otelrestful.OTelFilter("bookrec"))
	ws.Filter(LogFilter)

	ws.Route(ws.GET("/").To(s.welcome).
		Doc("Get service status.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"welcome"}).
		Returns(http.StatusOK, "OK", Status{}).
		Returns(http.StatusServiceUnavailable, "artifacts are not loaded", Status{}).
		Writes(Status{}))
	ws.Route(ws.GET("/info").To(s.info).
		Doc("Get model and catalog information.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"info"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Writes(Info{}))
	ws.Route(ws.GET("/predict/{user-id}").To(s.predict).
		Doc("Get book recommendations for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"prediction"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("genres", "genres every recommended book must carry").DataType("string").AllowMultiple(true)).
		Param(ws.QueryParameter("count", "number of returned books").DataType("integer")).
		Returns(http.StatusOK, "OK", Recommendation{}).
		Returns(http.StatusBadRequest, "invalid user id, genre or count", nil).
		Returns(http.StatusNotFound, "unknown user", nil).
		Writes(Recommendation{}))
}

// Handler creates a container serving the web service, API docs and metrics.
func (s *RestServer) Handler() *restful.Container {
	container := restful.NewContainer()
	container.Add(s.WebService)
	// register swagger UI
	specConfig := restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     apiSpecPath,
	}
	container.Add(restfulspec.NewOpenAPIService(specConfig))
	container.Handle(apiDocsPath, v5emb.New("bookrec", apiSpecPath, apiDocsPath))
	// register prometheus
	container.Handle("/metrics", promhttp.Handler())
	return container
}

// RequestIDFilter tags each response with a request id, generating one if the client did not send it.
func RequestIDFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter("X-Request-ID")
	if requestId == "" {
		requestId = uuid.New().String()
	}
	resp.Header().Set("X-Request-ID", requestId)
	chain.ProcessFilter(req, resp)
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	route := req.SelectedRoutePath()
	RequestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode())).Inc()
	log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)))
}

type Status struct {
	Status string `json:"status"`
}

type Info struct {
	EnvName string `json:"env_name"`
	Status  string `json:"status"`
	artifacts.Info
}

type RecommendedBook struct {
	BookID int64   `json:"book_id"`
	Title  string  `json:"title"`
	Author string  `json:"author,omitempty"`
	Score  float32 `json:"score"`
}

type Recommendation struct {
	Items           []RecommendedBook `json:"items"`
	Count           int               `json:"count"`
	TotalCandidates int               `json:"total_candidates"`
	ProcessingTime  float64           `json:"processing_time"`
}

func (s *RestServer) welcome(_ *restful.Request, response *restful.Response) {
	if !s.IsReady() {
		ServiceUnavailable(response, Status{Status: statusLoading})
		return
	}
	Ok(response, Status{Status: statusReady})
}

func (s *RestServer) info(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	if !s.IsReady() {
		ServiceUnavailable(response, Status{Status: statusLoading})
		return
	}
	Ok(response, Info{
		EnvName: s.Config.EnvName,
		Status:  statusReady,
		Info:    s.Artifacts.Info(),
	})
}

func (s *RestServer) predict(request *restful.Request, response *restful.Response) {
	if !s.auth(request, response) {
		return
	}
	if !s.IsReady() {
		ServiceUnavailable(response, Status{Status: statusLoading})
		return
	}
	start := time.Now()
	// parse arguments
	userId, err := strconv.ParseInt(request.PathParameter("user-id"), 10, 64)
	if err != nil || userId <= 0 {
		BadRequest(response, errors.NotValidf("user id %q", request.PathParameter("user-id")))
		return
	}
	tags := lo.FlatMap(request.QueryParameters("genres"), func(value string, _ int) []string {
		return strings.Split(value, ",")
	})
	genres, err := catalog.ParseGenres(tags)
	if err != nil {
		BadRequest(response, err)
		return
	}
	count, err := ParseInt(request, "count", s.Config.Recommend.DefaultCount)
	if err != nil {
		BadRequest(response, errors.NotValidf("count %q", request.QueryParameter("count")))
		return
	}
	if count < 1 || count > s.Config.Recommend.MaxResults {
		BadRequest(response, errors.NotValidf("count %d outside [1, %d]", count, s.Config.Recommend.MaxResults))
		return
	}
	// recommend
	result, err := s.Recommender.Predict(request.Request.Context(), userId, genres, count)
	if errors.Is(err, errors.NotFound) {
		PageNotFound(response, err)
		return
	} else if errors.Is(err, errors.NotValid) {
		BadRequest(response, err)
		return
	} else if err != nil {
		InternalServerError(response, err)
		return
	}
	PredictSeconds.Observe(time.Since(start).Seconds())
	Ok(response, Recommendation{
		Items: lo.Map(result.Items, func(item logics.ScoredItem, _ int) RecommendedBook {
			return RecommendedBook{BookID: item.BookID, Title: item.Title, Author: item.Author, Score: item.Score}
		}),
		Count:           result.Count,
		TotalCandidates: result.TotalCandidates,
		ProcessingTime:  result.Elapsed.Seconds(),
	})
}

// ParseInt parses an integer query parameter, falling back when it is absent.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

func (s *RestServer) auth(request *restful.Request, response *restful.Response) bool {
	if s.Config.Server.APIKey == "" {
		return true
	}
	apikey := request.HeaderParameter("X-API-Key")
	if apikey == s.Config.Server.APIKey {
		return true
	}
	log.ResponseLogger(response).Error("unauthorized", zap.String("X-API-Key", apikey))
	if err := response.WriteError(http.StatusUnauthorized, fmt.Errorf("unauthorized")); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
	return false
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Warn("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// ServiceUnavailable returns the status while artifacts are loading.
func ServiceUnavailable(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteHeaderAndJson(http.StatusServiceUnavailable, content, restful.MIME_JSON); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}
