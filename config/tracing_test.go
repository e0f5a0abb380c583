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

package config

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewTracerProvider(t *testing.T) {
	for _, exporter := range []string{"otlp", "otlphttp", "zipkin"} {
		cfg := TracingConfig{
			Enable:            true,
			Exporter:          exporter,
			CollectorEndpoint: "localhost:4317",
			Sampler:           "always",
		}
		if exporter == "zipkin" {
			cfg.CollectorEndpoint = "http://localhost:9411/api/v2/spans"
		}
		tp, err := cfg.NewTracerProvider()
		assert.NoError(t, err, exporter)
		assert.NoError(t, tp.Shutdown(context.Background()))
	}

	// disabled
	tp, err := (&TracingConfig{}).NewTracerProvider()
	assert.NoError(t, err)
	assert.NotNil(t, tp)

	_, err = (&TracingConfig{Enable: true, Exporter: "jaeger"}).NewTracerProvider()
	assert.True(t, errors.Is(err, errors.NotSupported))
}

func TestNewSampler(t *testing.T) {
	sampler, err := (&TracingConfig{Sampler: "always"}).NewSampler()
	assert.NoError(t, err)
	assert.Equal(t, tracesdk.AlwaysSample().Description(), sampler.Description())
	sampler, err = (&TracingConfig{Sampler: "never"}).NewSampler()
	assert.NoError(t, err)
	assert.Equal(t, tracesdk.NeverSample().Description(), sampler.Description())
	sampler, err = (&TracingConfig{Sampler: "ratio", Ratio: 0.5}).NewSampler()
	assert.NoError(t, err)
	assert.Equal(t, tracesdk.TraceIDRatioBased(0.5).Description(), sampler.Description())
	_, err = (&TracingConfig{Sampler: "sometimes"}).NewSampler()
	assert.Error(t, err)
}
