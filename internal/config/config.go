// Package config defines the configuration structures for MultiNLU. No I/O
// or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// HTTPConfig holds HTTP listener tunables.
type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodySize  int64         `mapstructure:"max_body_size"`

	// CORSOrigins enables CORS for the listed origins; "*" allows any.
	CORSOrigins []string `mapstructure:"cors_origins"`

	// RateLimit is the sustained per-client request rate on /nlu. 0 disables it.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// GRPCConfig holds the gRPC health listener settings.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// ServerConfig groups the listeners.
type ServerConfig struct {
	HTTP            HTTPConfig    `mapstructure:"http"`
	GRPC            GRPCConfig    `mapstructure:"grpc"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BackendConfig points a language at its model server.
type BackendConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Token    string `mapstructure:"token"`
}

// NLUConfig describes the locales served and where their models live.
type NLUConfig struct {
	// Languages are the two-letter base languages that get a registry slot.
	Languages []string `mapstructure:"languages"`

	// ModelRoot contains one "<ModelDirPrefix><lang>" directory per language.
	ModelRoot      string `mapstructure:"model_root"`
	ModelDirPrefix string `mapstructure:"model_dir_prefix"`

	// TaxonomyPath is the entity taxonomy JSON file. A missing file is not an error.
	TaxonomyPath string `mapstructure:"taxonomy_path"`

	// DefaultEndpoint is used for languages without a Backends entry. The
	// token "{lang}" is replaced by the language code.
	DefaultEndpoint string                   `mapstructure:"default_endpoint"`
	Backends        map[string]BackendConfig `mapstructure:"backends"`

	// ActivateModel makes the loader push the resolved artifact to the model
	// server before the locale becomes ready.
	ActivateModel bool `mapstructure:"activate_model"`

	LoadTimeout    time.Duration `mapstructure:"load_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EndpointFor returns the model server endpoint for lang.
func (c NLUConfig) EndpointFor(lang string) string {
	if b, ok := c.Backends[lang]; ok && b.Endpoint != "" {
		return strings.TrimRight(b.Endpoint, "/")
	}
	return strings.TrimRight(strings.ReplaceAll(c.DefaultEndpoint, "{lang}", lang), "/")
}

// TokenFor returns the bearer token configured for lang, if any.
func (c NLUConfig) TokenFor(lang string) string {
	return c.Backends[lang].Token
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// CacheConfig holds the Redis parse-result cache parameters.
type CacheConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TTL          time.Duration `mapstructure:"ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// EventsConfig holds the Kafka parse-event producer parameters.
type EventsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"` // -1 all, 0 none, 1 leader
	Async        bool          `mapstructure:"async"`
}

// MinIOConfig holds object storage parameters for model artifacts.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// ArtifactsConfig selects where model artifacts come from.
type ArtifactsConfig struct {
	Source string      `mapstructure:"source"` // "local" | "minio"
	MinIO  MinIOConfig `mapstructure:"minio"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Log       logging.LogConfig `mapstructure:"log"`
	NLU       NLUConfig         `mapstructure:"nlu"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
	Cache     CacheConfig       `mapstructure:"cache"`
	Events    EventsConfig      `mapstructure:"events"`
	Artifacts ArtifactsConfig   `mapstructure:"artifacts"`
}

var languagePattern = regexp.MustCompile(`^[a-z]{2}$`)

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Server.HTTP.Port <= 0 || c.Server.HTTP.Port > 65535 {
		return fmt.Errorf("config: server.http.port %d out of range", c.Server.HTTP.Port)
	}
	switch c.Server.HTTP.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.http.mode %q must be debug, release or test", c.Server.HTTP.Mode)
	}
	if c.Server.HTTP.RateLimit < 0 {
		return fmt.Errorf("config: server.http.rate_limit must not be negative")
	}
	if c.Server.GRPC.Enabled && (c.Server.GRPC.Port <= 0 || c.Server.GRPC.Port > 65535) {
		return fmt.Errorf("config: server.grpc.port %d out of range", c.Server.GRPC.Port)
	}

	if len(c.NLU.Languages) == 0 {
		return fmt.Errorf("config: nlu.languages must not be empty")
	}
	for _, lang := range c.NLU.Languages {
		if !languagePattern.MatchString(lang) {
			return fmt.Errorf("config: nlu.languages entry %q is not a two-letter lowercase code", lang)
		}
		if c.NLU.EndpointFor(lang) == "" {
			return fmt.Errorf("config: no model endpoint for language %q", lang)
		}
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("config: cache.addr is required when the cache is enabled")
	}
	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("config: events.brokers is required when events are enabled")
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("config: events.topic is required when events are enabled")
		}
	}

	switch c.Artifacts.Source {
	case ArtifactSourceLocal:
	case ArtifactSourceMinIO:
		if c.Artifacts.MinIO.Endpoint == "" || c.Artifacts.MinIO.Bucket == "" {
			return fmt.Errorf("config: artifacts.minio.endpoint and bucket are required for the minio source")
		}
	default:
		return fmt.Errorf("config: artifacts.source %q must be local or minio", c.Artifacts.Source)
	}
	return nil
}

//Personal.AI order the ending
