package classifier

import (
	"context"

	"github.com/symptom-dx-server/internal/cache"
	"github.com/symptom-dx-server/internal/domain"
)

// DistributionCache stores distributions by key.
type DistributionCache interface {
	Get(ctx context.Context, key string) (domain.Distribution, bool)
	Set(ctx context.Context, key string, dist domain.Distribution)
}

// Cached memoizes another classifier. Errors are never cached.
type Cached struct {
	next  domain.Classifier
	cache DistributionCache
}

// NewCached wraps next with c.
func NewCached(next domain.Classifier, c DistributionCache) *Cached {
	return &Cached{next: next, cache: c}
}

// PredictDistribution serves from the cache or delegates and stores the result.
func (c *Cached) PredictDistribution(ctx context.Context, symptoms []string) (domain.Distribution, error) {
	key := cache.Key(symptoms)
	if dist, ok := c.cache.Get(ctx, key); ok {
		return dist, nil
	}

	dist, err := c.next.PredictDistribution(ctx, symptoms)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, dist)
	return dist, nil
}
