package descriptor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/simsal/internal/config"
)

func TestFromConfig(t *testing.T) {
	cfg := &config.DescriptorEnvConfig{
		DescriptorURL:     "http://127.0.0.1:5005",
		DescriptorTimeout: time.Second,
	}

	t.Run("remote without cache", func(t *testing.T) {
		gen, err := FromConfig(cfg, nil)
		require.NoError(t, err)
		assert.IsType(t, &Remote{}, gen)
	})

	t.Run("cached remote", func(t *testing.T) {
		withCache := *cfg
		withCache.CacheSize = 16
		withCache.CacheTTL = time.Minute

		gen, err := FromConfig(&withCache, newMemStore())
		require.NoError(t, err)

		cached, ok := gen.(*Cached)
		require.True(t, ok)
		assert.IsType(t, &Remote{}, cached.inner)
		assert.Equal(t, time.Minute, cached.ttl)
		assert.NotNil(t, cached.store)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := FromConfig(nil, nil)
		assert.Error(t, err)
	})
}
