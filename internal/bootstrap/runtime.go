package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/symptom-dx-server/internal/cache"
	"github.com/symptom-dx-server/internal/catalogue"
	"github.com/symptom-dx-server/internal/classifier"
	"github.com/symptom-dx-server/internal/dataset"
	"github.com/symptom-dx-server/internal/domain"
	"github.com/symptom-dx-server/internal/history"
	"github.com/symptom-dx-server/internal/service"
)

// Loader builds the runtime from configuration. It owns the cache it opens.
type Loader struct {
	config *domain.Config
	logger *logrus.Logger
	cache  *cache.Layered
}

// NewLoader creates a runtime loader.
func NewLoader(cfg *domain.Config, logger *logrus.Logger) *Loader {
	return &Loader{config: cfg, logger: logger}
}

// Load is a service.InitFunc: it reads the dataset, builds the catalogue and
// obtains a classifier, loading the saved artifact or training a new one.
func (l *Loader) Load(ctx context.Context) (*service.Runtime, error) {
	start := time.Now()

	ds, err := dataset.Load(l.config.Dataset.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	cat := catalogue.New(ds.Symptoms())

	var (
		clf        domain.Classifier
		loaded     bool
		components = make(map[string]service.StatsReporter)
	)
	switch strings.ToLower(l.config.Classifier.Mode) {
	case "remote":
		remote, err := classifier.NewRemote(classifier.RemoteConfig{
			URL:       l.config.Classifier.RemoteURL,
			Timeout:   l.config.Classifier.Timeout,
			RateLimit: l.config.Classifier.RateLimit,
		}, l.logger)
		if err != nil {
			return nil, err
		}
		clf, loaded = remote, true
		components["classifier"] = remote
	default:
		model, fromDisk, err := LoadOrTrain(ctx, ds.Records, l.config.Model, l.logger)
		if err != nil {
			return nil, err
		}
		clf, loaded = model, fromDisk
		components["classifier"] = model
	}

	if l.config.Cache.Enabled {
		layered, err := cache.New(l.config.Cache, l.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create prediction cache: %w", err)
		}
		l.cache = layered
		components["cache"] = layered
		clf = classifier.NewCached(clf, layered)
	}

	l.logger.WithFields(logrus.Fields{
		"dataset":      ds.Path,
		"records":      len(ds.Records),
		"symptoms":     cat.Len(),
		"classifier":   l.config.Classifier.Mode,
		"model_loaded": loaded,
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Info("Diagnosis runtime initialized")

	return &service.Runtime{
		Catalogue:   cat,
		Classifier:  clf,
		ModelLoaded: loaded,
		Components:  components,
	}, nil
}

// Close releases the prediction cache, if one was opened.
func (l *Loader) Close() error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Close()
}

// LoadOrTrain returns the saved model from cfg.Dir, or trains one from records
// when no artifact exists. The boolean reports whether the model came from disk.
func LoadOrTrain(ctx context.Context, records []dataset.Record, cfg domain.ModelConfig, logger *logrus.Logger) (*classifier.Model, bool, error) {
	model, err := classifier.Load(cfg.Dir)
	if err == nil {
		logger.WithFields(logrus.Fields{
			"dir":    cfg.Dir,
			"labels": len(model.Labels),
		}).Info("Loaded saved model")
		return model, true, nil
	}
	if !errors.Is(err, classifier.ErrModelNotFound) {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	logger.WithField("dir", cfg.Dir).Info("No saved model found, training a new one")
	model, err = classifier.Train(records, classifier.DefaultAlpha)
	if err != nil {
		return nil, false, fmt.Errorf("failed to train model: %w", err)
	}

	if cfg.SaveOnTrain {
		if err := classifier.Save(model, cfg.Dir); err != nil {
			logger.WithError(err).Warn("Failed to save trained model")
		}
	}
	return model, false, nil
}

// Engine bundles a diagnosis engine with the resources it holds open.
type Engine struct {
	*service.Engine
	loader  *Loader
	history history.Store
}

// NewEngine opens the history store and creates an uninitialized engine over a
// Loader for cfg.
func NewEngine(cfg *domain.Config, logger *logrus.Logger) (*Engine, error) {
	store, err := history.Open(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	var opts []service.ControllerOption
	if store != nil {
		opts = append(opts, service.WithHistory(store))
		logger.WithField("driver", cfg.History.Driver).Info("Diagnosis history enabled")
	}

	loader := NewLoader(cfg, logger)
	engine := service.NewEngine(loader.Load, service.ControllerConfig{
		SimilarityThreshold: cfg.Diagnosis.SimilarityThreshold,
		ConfidenceThreshold: cfg.Diagnosis.ConfidenceThreshold,
		FuzzyCacheSize:      cfg.Diagnosis.FuzzyCacheSize,
	}, logger, opts...)

	return &Engine{Engine: engine, loader: loader, history: store}, nil
}

// Close releases the cache and the history store.
func (e *Engine) Close() error {
	var errs []error
	if err := e.loader.Close(); err != nil {
		errs = append(errs, err)
	}
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
