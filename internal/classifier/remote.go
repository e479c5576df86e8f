package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/symptom-dx-server/internal/domain"
)

// RemoteConfig represents configuration for the model server client
type RemoteConfig struct {
	URL       string        `json:"url"`
	Timeout   time.Duration `json:"timeout"`
	RateLimit float64       `json:"rate_limit"` // requests per second, 0 disables
}

type remoteRequest struct {
	Symptoms []string `json:"symptoms"`
}

type remoteResponse struct {
	Predictions []domain.Prediction `json:"predictions"`
}

// Remote asks an external model server for distributions. Calls go through a
// client-side rate limiter and a circuit breaker.
type Remote struct {
	url        string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewRemote creates a model server client.
func NewRemote(config RemoteConfig, logger *logrus.Logger) (*Remote, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("remote classifier url is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	r := &Remote{
		url:        config.URL,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
	if config.RateLimit > 0 {
		r.rateLimit = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ModelServer",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return r, nil
}

// PredictDistribution posts the symptoms to the model server.
func (r *Remote) PredictDistribution(ctx context.Context, symptoms []string) (domain.Distribution, error) {
	if r.rateLimit != nil {
		if err := r.rateLimit.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.call(ctx, symptoms)
	})
	if err != nil {
		return nil, fmt.Errorf("model server request failed: %w", err)
	}
	return result.(domain.Distribution), nil
}

// State returns the circuit breaker state.
func (r *Remote) State() gobreaker.State {
	return r.breaker.State()
}

// GetStats reports the circuit breaker state and counters.
func (r *Remote) GetStats(ctx context.Context) (map[string]interface{}, error) {
	counts := r.breaker.Counts()
	return map[string]interface{}{
		"mode":                 "remote",
		"url":                  r.url,
		"circuit_breaker":      r.State().String(),
		"requests":             counts.Requests,
		"total_failures":       counts.TotalFailures,
		"consecutive_failures": counts.ConsecutiveFailures,
	}, nil
}

func (r *Remote) call(ctx context.Context, symptoms []string) (domain.Distribution, error) {
	body, err := json.Marshal(remoteRequest{Symptoms: symptoms})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Predictions) == 0 {
		return nil, fmt.Errorf("model server returned no predictions")
	}
	return domain.Distribution(out.Predictions), nil
}
