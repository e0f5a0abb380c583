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

package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	StoragePOSIX = "posix"
	StorageS3    = "s3"
	StorageGCS   = "gcs"
	StorageAzure = "azure"
)

// MaxResultsLimit is the hard cap on recommended books. recommend.max_results may only lower it.
const MaxResultsLimit = 100

// Config is the configuration for the recommender service.
type Config struct {
	EnvName     string            `mapstructure:"env_name" validate:"required"`
	Server      ServerConfig      `mapstructure:"server"`
	Artifacts   ArtifactsConfig   `mapstructure:"artifacts"`
	ReadHistory ReadHistoryConfig `mapstructure:"read_history"`
	Recommend   RecommendConfig   `mapstructure:"recommend"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

// ServerConfig is the configuration for the REST server.
type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	APIKey string `mapstructure:"api_key"`
}

// ArtifactsConfig locates the model artifacts produced by training.
type ArtifactsConfig struct {
	Storage     string          `mapstructure:"storage" validate:"oneof=posix s3 gcs azure"`
	Dir         string          `mapstructure:"dir"`
	LoadTimeout time.Duration   `mapstructure:"load_timeout" validate:"gte=0"`
	S3          S3Config        `mapstructure:"s3"`
	GCS         GCSConfig       `mapstructure:"gcs"`
	Azure       AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	Endpoint         string `mapstructure:"endpoint"`
	ConnectionString string `mapstructure:"connection_string"`
	Container        string `mapstructure:"container"`
	Prefix           string `mapstructure:"prefix"`
}

// ReadHistoryConfig is the configuration for the read-history service client.
type ReadHistoryConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// RecommendConfig is the configuration for the recommendation pipeline.
type RecommendConfig struct {
	MaxResults   int `mapstructure:"max_results" validate:"gt=0,lte=100"`
	DefaultCount int `mapstructure:"default_count" validate:"gt=0,ltefield=MaxResults"`
	ScoreJobs    int `mapstructure:"score_jobs" validate:"gt=0"`
}

// TracingConfig is the configuration for OpenTelemetry tracing.
type TracingConfig struct {
	Enable            bool    `mapstructure:"enable"`
	Exporter          string  `mapstructure:"exporter" validate:"oneof=otlp otlphttp zipkin"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	Sampler           string  `mapstructure:"sampler" validate:"oneof=always never ratio"`
	Ratio             float64 `mapstructure:"ratio" validate:"gte=0,lte=1"`
}

func GetDefaultConfig() *Config {
	return &Config{
		EnvName: "local",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Artifacts: ArtifactsConfig{
			Storage:     StoragePOSIX,
			Dir:         ".",
			LoadTimeout: time.Minute,
		},
		ReadHistory: ReadHistoryConfig{
			BaseURL: "http://localhost:8999",
			Timeout: 2 * time.Second,
		},
		Recommend: RecommendConfig{
			MaxResults:   100,
			DefaultCount: 20,
			ScoreJobs:    1,
		},
		Tracing: TracingConfig{
			Exporter: "otlp",
			Sampler:  "always",
			Ratio:    1,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	v.SetDefault("env_name", defaultConfig.EnvName)
	// [server]
	v.SetDefault("server.host", defaultConfig.Server.Host)
	v.SetDefault("server.port", defaultConfig.Server.Port)
	v.SetDefault("server.api_key", defaultConfig.Server.APIKey)
	// [artifacts]
	v.SetDefault("artifacts.storage", defaultConfig.Artifacts.Storage)
	v.SetDefault("artifacts.dir", defaultConfig.Artifacts.Dir)
	v.SetDefault("artifacts.load_timeout", defaultConfig.Artifacts.LoadTimeout)
	// [read_history]
	v.SetDefault("read_history.base_url", defaultConfig.ReadHistory.BaseURL)
	v.SetDefault("read_history.timeout", defaultConfig.ReadHistory.Timeout)
	// [recommend]
	v.SetDefault("recommend.max_results", defaultConfig.Recommend.MaxResults)
	v.SetDefault("recommend.default_count", defaultConfig.Recommend.DefaultCount)
	v.SetDefault("recommend.score_jobs", defaultConfig.Recommend.ScoreJobs)
	// [tracing]
	v.SetDefault("tracing.enable", defaultConfig.Tracing.Enable)
	v.SetDefault("tracing.exporter", defaultConfig.Tracing.Exporter)
	v.SetDefault("tracing.collector_endpoint", defaultConfig.Tracing.CollectorEndpoint)
	v.SetDefault("tracing.sampler", defaultConfig.Tracing.Sampler)
	v.SetDefault("tracing.ratio", defaultConfig.Tracing.Ratio)
}

type configBinding struct {
	key string
	env []string
}

var bindings = []configBinding{
	{"env_name", []string{"BOOKREC_ENV_NAME", "ENV_NAME"}},
	{"server.host", []string{"BOOKREC_SERVER_HOST"}},
	{"server.port", []string{"BOOKREC_SERVER_PORT"}},
	{"server.api_key", []string{"BOOKREC_SERVER_API_KEY"}},
	{"artifacts.storage", []string{"BOOKREC_ARTIFACTS_STORAGE"}},
	{"artifacts.dir", []string{"BOOKREC_ARTIFACTS_DIR", "MODEL_FOLDER"}},
	{"artifacts.s3.endpoint", []string{"S3_ENDPOINT"}},
	{"artifacts.s3.access_key_id", []string{"S3_ACCESS_KEY_ID"}},
	{"artifacts.s3.secret_access_key", []string{"S3_SECRET_ACCESS_KEY"}},
	{"artifacts.azure.connection_string", []string{"AZURE_STORAGE_CONNECTION_STRING"}},
	{"read_history.base_url", []string{"BOOKREC_READ_HISTORY_BASE_URL", "BOOK_RECOMMENDER_API_BASE_URL"}},
	{"read_history.timeout", []string{"BOOKREC_READ_HISTORY_TIMEOUT"}},
	{"tracing.enable", []string{"BOOKREC_TRACING_ENABLE"}},
	{"tracing.collector_endpoint", []string{"BOOKREC_TRACING_COLLECTOR_ENDPOINT"}},
}

// LoadConfig loads configuration from a toml file. An empty path loads defaults and
// environment variables only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	for _, binding := range bindings {
		if err := v.BindEnv(append([]string{binding.key}, binding.env...)...); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if path != "" {
		v.SetConfigType("toml")
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "failed to read config %s", path)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks field constraints and the storage-specific requirements.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Trace(err)
	}
	switch config.Artifacts.Storage {
	case StoragePOSIX:
		if strings.TrimSpace(config.Artifacts.Dir) == "" {
			return errors.NotValidf("artifacts.dir")
		}
	case StorageS3:
		if config.Artifacts.S3.Endpoint == "" || config.Artifacts.S3.Bucket == "" {
			return errors.NotValidf("artifacts.s3 requires endpoint and bucket")
		}
	case StorageGCS:
		if config.Artifacts.GCS.Bucket == "" {
			return errors.NotValidf("artifacts.gcs requires bucket")
		}
	case StorageAzure:
		if config.Artifacts.Azure.Container == "" {
			return errors.NotValidf("artifacts.azure requires container")
		}
	}
	if config.Tracing.Enable && config.Tracing.CollectorEndpoint == "" {
		return errors.NotValidf("tracing requires collector_endpoint")
	}
	return nil
}
