package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/symptom-dx-server/internal/catalogue"
	"github.com/symptom-dx-server/internal/domain"
)

// Runtime is the immutable handle built once at start-up and shared by every
// session.
type Runtime struct {
	Catalogue  *catalogue.Catalogue
	Classifier domain.Classifier
	// ModelLoaded is true when the classifier came from a saved artifact
	// rather than being trained at start-up.
	ModelLoaded bool
	// Components are reported on the health endpoint, keyed by name.
	Components map[string]StatsReporter
}

// StatsReporter is implemented by runtime components that expose statistics.
type StatsReporter interface {
	GetStats(ctx context.Context) (map[string]interface{}, error)
}

// Stats collects the statistics of every component. A failing component is
// reported with its error instead of its figures.
func (r *Runtime) Stats(ctx context.Context) map[string]interface{} {
	out := make(map[string]interface{}, len(r.Components))
	for name, component := range r.Components {
		stats, err := component.GetStats(ctx)
		if err != nil {
			if stats == nil {
				stats = make(map[string]interface{})
			}
			stats["error"] = err.Error()
		}
		out[name] = stats
	}
	return out
}

// InitFunc builds the runtime. It may block for a long time.
type InitFunc func(ctx context.Context) (*Runtime, error)

// EngineState is the readiness of an Engine.
type EngineState int32

const (
	EngineIdle EngineState = iota
	EngineInitializing
	EngineReady
	EngineFailed
)

func (s EngineState) String() string {
	switch s {
	case EngineIdle:
		return "idle"
	case EngineInitializing:
		return "initializing"
	case EngineReady:
		return "ready"
	case EngineFailed:
		return "failed"
	default:
		return fmt.Sprintf("EngineState(%d)", int32(s))
	}
}

// ErrAlreadyInitializing is returned when Initialize runs concurrently.
var ErrAlreadyInitializing = errors.New("engine initialization already in progress")

// Engine owns one-time initialization and hands out the controller once ready.
type Engine struct {
	mu         sync.Mutex
	state      atomic.Int32
	controller atomic.Pointer[Controller]
	initErr    atomic.Pointer[error]

	init   InitFunc
	config ControllerConfig
	opts   []ControllerOption
	logger *logrus.Logger
}

// NewEngine creates an idle engine.
func NewEngine(init InitFunc, cfg ControllerConfig, logger *logrus.Logger, opts ...ControllerOption) *Engine {
	return &Engine{
		init:   init,
		config: cfg,
		opts:   opts,
		logger: logger,
	}
}

// Initialize builds the runtime and the controller. It returns immediately
// with ErrAlreadyInitializing when another call is in flight, and is a no-op
// once the engine is ready. A failed engine may be initialized again.
func (e *Engine) Initialize(ctx context.Context) error {
	if !e.mu.TryLock() {
		return ErrAlreadyInitializing
	}
	defer e.mu.Unlock()

	if e.State() == EngineReady {
		return nil
	}

	e.state.Store(int32(EngineInitializing))
	start := time.Now()
	e.logger.Info("Initializing diagnosis engine")

	ctrl, err := e.build(ctx)
	if err != nil {
		e.initErr.Store(&err)
		e.state.Store(int32(EngineFailed))
		e.logger.WithError(err).Error("Diagnosis engine initialization failed")
		return err
	}

	e.controller.Store(ctrl)
	e.initErr.Store(nil)
	e.state.Store(int32(EngineReady))

	e.logger.WithFields(logrus.Fields{
		"symptoms":     ctrl.Runtime().Catalogue.Len(),
		"model_loaded": ctrl.Runtime().ModelLoaded,
		"duration":     time.Since(start).String(),
	}).Info("Diagnosis engine ready")
	return nil
}

func (e *Engine) build(ctx context.Context) (*Controller, error) {
	rt, err := e.init(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize runtime: %w", err)
	}
	ctrl, err := NewController(rt, e.config, e.logger, e.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}
	return ctrl, nil
}

// State returns the current readiness state.
func (e *Engine) State() EngineState {
	return EngineState(e.state.Load())
}

// Err returns the error of the last failed initialization.
func (e *Engine) Err() error {
	if p := e.initErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Controller returns the session controller, or a NOT_READY error until
// initialization has completed.
func (e *Engine) Controller() (*Controller, error) {
	if c := e.controller.Load(); c != nil {
		return c, nil
	}
	details := "engine is " + e.State().String()
	if err := e.Err(); err != nil {
		details = err.Error()
	}
	return nil, domain.NewNotReadyError(details)
}
