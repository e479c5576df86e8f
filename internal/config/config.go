package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/symptom-dx-server/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g.
// SYMPTOM_DX_SERVER_PORT for server.port.
const EnvPrefix = "SYMPTOM_DX"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// Option customizes a Manager.
type Option func(*Manager)

// WithConfigFile reads the given file instead of searching the default paths.
func WithConfigFile(path string) Option {
	return func(m *Manager) {
		m.configFile = path
	}
}

// NewManager creates a new configuration manager
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/symptom-dx/")
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || m.configFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests_per_second", 10)
	v.SetDefault("server.rate_limit.burst", 20)
	v.SetDefault("server.rate_limit.client_ttl", "10m")

	// Data defaults
	v.SetDefault("dataset.path", "./data")
	v.SetDefault("model.dir", "./model")
	v.SetDefault("model.save_on_train", true)

	// Diagnosis defaults
	v.SetDefault("diagnosis.similarity_threshold", domain.DefaultSimilarityThreshold)
	v.SetDefault("diagnosis.confidence_threshold", domain.DefaultConfidenceThreshold)
	v.SetDefault("diagnosis.fuzzy_cache_size", 4096)
	v.SetDefault("diagnosis.display_limit", 5)

	// Classifier defaults
	v.SetDefault("classifier.mode", "local")
	v.SetDefault("classifier.remote_url", "")
	v.SetDefault("classifier.timeout", "10s")
	v.SetDefault("classifier.rate_limit", 0)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_items", 1000)
	v.SetDefault("cache.ttl", "15m")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.max_retries", 3)

	// History defaults
	v.SetDefault("history.driver", "none")
	v.SetDefault("history.dsn", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetDatasetConfig returns dataset configuration
func (m *Manager) GetDatasetConfig() *domain.DatasetConfig {
	return &m.config.Dataset
}

// GetModelConfig returns model artifact configuration
func (m *Manager) GetModelConfig() *domain.ModelConfig {
	return &m.config.Model
}

// GetDiagnosisConfig returns resolution and ranking configuration
func (m *Manager) GetDiagnosisConfig() *domain.DiagnosisConfig {
	return &m.config.Diagnosis
}

// GetClassifierConfig returns classifier adapter configuration
func (m *Manager) GetClassifierConfig() *domain.ClassifierConfig {
	return &m.config.Classifier
}

// GetCacheConfig returns prediction cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// GetHistoryConfig returns history store configuration
func (m *Manager) GetHistoryConfig() *domain.HistoryConfig {
	return &m.config.History
}

// ConfigFileUsed returns the path of the file that was read, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return Validate(m.config)
}

// Validate checks a configuration for values the service cannot run with.
func Validate(config *domain.Config) error {
	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if rl := config.Server.RateLimit; rl.Enabled && (rl.RequestsPerSecond <= 0 || rl.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive requests_per_second and burst")
	}

	// Validate thresholds
	d := config.Diagnosis
	if d.SimilarityThreshold < 0 || d.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in [0,1]: %v", d.SimilarityThreshold)
	}
	if d.ConfidenceThreshold < 0 || d.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0,1]: %v", d.ConfidenceThreshold)
	}

	// Validate classifier configuration
	switch strings.ToLower(config.Classifier.Mode) {
	case "local":
	case "remote":
		if config.Classifier.RemoteURL == "" {
			return fmt.Errorf("classifier remote_url is required in remote mode")
		}
	default:
		return fmt.Errorf("invalid classifier mode: %s", config.Classifier.Mode)
	}
	if config.Classifier.Mode == "local" && config.Dataset.Path == "" && config.Model.Dir == "" {
		return fmt.Errorf("dataset path or model dir is required in local mode")
	}

	// Validate history configuration
	switch strings.ToLower(config.History.Driver) {
	case "", "none":
	case "sqlite", "postgres":
		if config.History.DSN == "" {
			return fmt.Errorf("history dsn is required for driver %s", config.History.Driver)
		}
	default:
		return fmt.Errorf("invalid history driver: %s", config.History.Driver)
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.v.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.v.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
