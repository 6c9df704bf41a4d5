package config

import (
	"time"

	"github.com/spf13/viper"
)

// Artifact sources.
const (
	ArtifactSourceLocal = "local"
	ArtifactSourceMinIO = "minio"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultHTTPPort        = 5005
	DefaultHTTPMode        = "release"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultMaxBodySize     = 1 << 20
	DefaultGRPCPort        = 5006
	DefaultShutdownTimeout = 15 * time.Second

	DefaultModelRoot       = "."
	DefaultModelDirPrefix  = "models_"
	DefaultTaxonomyPath    = "./entities.json"
	DefaultModelEndpoint   = "http://rasa-{lang}:5005"
	DefaultLoadTimeout     = 10 * time.Minute
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMetricsNS       = "multinlu"
	DefaultMetricsPath     = "/metrics"
	DefaultCacheAddr       = "localhost:6379"
	DefaultCacheTTL        = 10 * time.Minute
	DefaultCachePrefix     = "multinlu:parse:"
	DefaultCachePoolSize   = 10
	DefaultEventsTopic     = "nlu.parse.events"
	DefaultEventsBatchSize = 100
	DefaultEventsBatchWait = time.Second
	DefaultEventsTimeout   = 10 * time.Second
	DefaultMinIOBucket     = "multinlu-models"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultLanguages are the locales served when none are configured.
var DefaultLanguages = []string{"de", "en"}

// ApplyDefaults fills every zero-value field in cfg with its default.
// Explicitly configured values are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.HTTP.Port == 0 {
		cfg.Server.HTTP.Port = DefaultHTTPPort
	}
	if cfg.Server.HTTP.Mode == "" {
		cfg.Server.HTTP.Mode = DefaultHTTPMode
	}
	if cfg.Server.HTTP.ReadTimeout == 0 {
		cfg.Server.HTTP.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.HTTP.WriteTimeout == 0 {
		cfg.Server.HTTP.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.HTTP.MaxBodySize == 0 {
		cfg.Server.HTTP.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.HTTP.RateLimit > 0 && cfg.Server.HTTP.RateBurst == 0 {
		cfg.Server.HTTP.RateBurst = int(2*cfg.Server.HTTP.RateLimit) + 1
	}
	if cfg.Server.GRPC.Port == 0 {
		cfg.Server.GRPC.Port = DefaultGRPCPort
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── NLU ───────────────────────────────────────────────────────────────────
	if len(cfg.NLU.Languages) == 0 {
		cfg.NLU.Languages = append([]string(nil), DefaultLanguages...)
	}
	if cfg.NLU.ModelRoot == "" {
		cfg.NLU.ModelRoot = DefaultModelRoot
	}
	if cfg.NLU.ModelDirPrefix == "" {
		cfg.NLU.ModelDirPrefix = DefaultModelDirPrefix
	}
	if cfg.NLU.TaxonomyPath == "" {
		cfg.NLU.TaxonomyPath = DefaultTaxonomyPath
	}
	if cfg.NLU.DefaultEndpoint == "" {
		cfg.NLU.DefaultEndpoint = DefaultModelEndpoint
	}
	if cfg.NLU.LoadTimeout == 0 {
		cfg.NLU.LoadTimeout = DefaultLoadTimeout
	}
	if cfg.NLU.RequestTimeout == 0 {
		cfg.NLU.RequestTimeout = DefaultRequestTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNS
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.Addr == "" {
		cfg.Cache.Addr = DefaultCacheAddr
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultCachePrefix
	}
	if cfg.Cache.PoolSize == 0 {
		cfg.Cache.PoolSize = DefaultCachePoolSize
	}

	// ── Events ────────────────────────────────────────────────────────────────
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = DefaultEventsTopic
	}
	if cfg.Events.BatchSize == 0 {
		cfg.Events.BatchSize = DefaultEventsBatchSize
	}
	if cfg.Events.BatchTimeout == 0 {
		cfg.Events.BatchTimeout = DefaultEventsBatchWait
	}
	if cfg.Events.WriteTimeout == 0 {
		cfg.Events.WriteTimeout = DefaultEventsTimeout
	}

	// ── Artifacts ─────────────────────────────────────────────────────────────
	if cfg.Artifacts.Source == "" {
		cfg.Artifacts.Source = ArtifactSourceLocal
	}
	if cfg.Artifacts.MinIO.Bucket == "" {
		cfg.Artifacts.MinIO.Bucket = DefaultMinIOBucket
	}
}

// registerKeys declares every key on v so that AutomaticEnv can resolve
// MULTINLU_* variables during Unmarshal even when no file sets the key.
func registerKeys(v *viper.Viper) {
	v.SetDefault("server.http.host", "")
	v.SetDefault("server.http.port", DefaultHTTPPort)
	v.SetDefault("server.http.mode", DefaultHTTPMode)
	v.SetDefault("server.http.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.http.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.http.max_body_size", DefaultMaxBodySize)
	v.SetDefault("server.http.cors_origins", []string{})
	v.SetDefault("server.http.rate_limit", 0.0)
	v.SetDefault("server.http.rate_burst", 0)
	v.SetDefault("server.grpc.enabled", false)
	v.SetDefault("server.grpc.port", DefaultGRPCPort)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("nlu.languages", DefaultLanguages)
	v.SetDefault("nlu.model_root", DefaultModelRoot)
	v.SetDefault("nlu.model_dir_prefix", DefaultModelDirPrefix)
	v.SetDefault("nlu.taxonomy_path", DefaultTaxonomyPath)
	v.SetDefault("nlu.default_endpoint", DefaultModelEndpoint)
	v.SetDefault("nlu.activate_model", false)
	v.SetDefault("nlu.load_timeout", DefaultLoadTimeout)
	v.SetDefault("nlu.request_timeout", DefaultRequestTimeout)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNS)
	v.SetDefault("metrics.path", DefaultMetricsPath)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", DefaultCacheAddr)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.key_prefix", DefaultCachePrefix)

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", DefaultEventsTopic)
	v.SetDefault("events.required_acks", 1)
	v.SetDefault("events.async", true)

	v.SetDefault("artifacts.source", ArtifactSourceLocal)
	v.SetDefault("artifacts.minio.endpoint", "")
	v.SetDefault("artifacts.minio.access_key", "")
	v.SetDefault("artifacts.minio.secret_key", "")
	v.SetDefault("artifacts.minio.use_ssl", false)
	v.SetDefault("artifacts.minio.bucket", DefaultMinIOBucket)
	v.SetDefault("artifacts.minio.prefix", "")
}

//Personal.AI order the ending
