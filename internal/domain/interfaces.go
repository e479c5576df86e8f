package domain

import (
	"context"
)

// Classifier maps a resolved symptom set to a probability distribution over
// disease labels. Implementations must be deterministic for identical input
// and safe for concurrent use.
type Classifier interface {
	PredictDistribution(ctx context.Context, symptoms []string) (Distribution, error)
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, symptoms []string) (Distribution, error)

// PredictDistribution calls f.
func (f ClassifierFunc) PredictDistribution(ctx context.Context, symptoms []string) (Distribution, error) {
	return f(ctx, symptoms)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatasetConfig() *DatasetConfig
	GetModelConfig() *ModelConfig
	GetDiagnosisConfig() *DiagnosisConfig
	GetClassifierConfig() *ClassifierConfig
	GetCacheConfig() *CacheConfig
	GetHistoryConfig() *HistoryConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
