package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Dataset    DatasetConfig    `mapstructure:"dataset" yaml:"dataset"`
	Model      ModelConfig      `mapstructure:"model" yaml:"model"`
	Diagnosis  DiagnosisConfig  `mapstructure:"diagnosis" yaml:"diagnosis"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	History    HistoryConfig    `mapstructure:"history" yaml:"history"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string          `mapstructure:"host" yaml:"host"`
	Port         int             `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration   `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig represents per-client request throttling
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
	ClientTTL         time.Duration `mapstructure:"client_ttl" yaml:"client_ttl"`
}

// DatasetConfig locates the disease/symptom records used to build the catalogue
type DatasetConfig struct {
	// Path is a CSV file or a directory searched for one.
	Path string `mapstructure:"path" yaml:"path"`
}

// ModelConfig represents the persisted classifier artifact
type ModelConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	SaveOnTrain bool   `mapstructure:"save_on_train" yaml:"save_on_train"`
}

// DiagnosisConfig holds the resolution and ranking thresholds
type DiagnosisConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	FuzzyCacheSize      int     `mapstructure:"fuzzy_cache_size" yaml:"fuzzy_cache_size"`
	DisplayLimit        int     `mapstructure:"display_limit" yaml:"display_limit"`
}

// ClassifierConfig selects the classifier adapter
type ClassifierConfig struct {
	// Mode is "local" (artifact on disk) or "remote" (HTTP model server).
	Mode      string        `mapstructure:"mode" yaml:"mode"`
	RemoteURL string        `mapstructure:"remote_url" yaml:"remote_url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// CacheConfig represents prediction cache configuration
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxItems    int           `mapstructure:"max_items" yaml:"max_items"`
	TTL         time.Duration `mapstructure:"ttl" yaml:"ttl"`
	RedisURL    string        `mapstructure:"redis_url" yaml:"redis_url"`
	PoolSize    int           `mapstructure:"pool_size" yaml:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout" yaml:"pool_timeout"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// HistoryConfig represents the diagnosis audit trail
type HistoryConfig struct {
	// Driver is "none", "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`
	// DSN is a file path for sqlite or a connection URL for postgres.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}
