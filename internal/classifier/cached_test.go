package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-dx-server/internal/cache"
	"github.com/symptom-dx-server/internal/domain"
)

func TestCached_PredictDistribution(t *testing.T) {
	calls := 0
	next := domain.ClassifierFunc(func(ctx context.Context, symptoms []string) (domain.Distribution, error) {
		calls++
		return domain.Distribution{{Label: "flu", Probability: 1}}, nil
	})
	layered := cache.NewWithClient(domain.CacheConfig{MaxItems: 10, TTL: time.Minute}, nil, testLogger())
	c := NewCached(next, layered)
	ctx := context.Background()

	first, err := c.PredictDistribution(ctx, []string{"fever"})
	require.NoError(t, err)
	second, err := c.PredictDistribution(ctx, []string{"fever"})
	require.NoError(t, err)
	_, err = c.PredictDistribution(ctx, []string{"cough"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(1), layered.Stats().MemoryHits)
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	calls := 0
	next := domain.ClassifierFunc(func(ctx context.Context, symptoms []string) (domain.Distribution, error) {
		calls++
		return nil, errors.New("unavailable")
	})
	c := NewCached(next, cache.NewWithClient(domain.CacheConfig{}, nil, testLogger()))

	_, err := c.PredictDistribution(context.Background(), []string{"fever"})
	assert.Error(t, err)
	_, err = c.PredictDistribution(context.Background(), []string{"fever"})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}
