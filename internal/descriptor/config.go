package descriptor

import (
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/simsal/internal/config"
)

// FromConfig returns the remote descriptor client, wrapped in a cache when
// a cache size is configured. store may be nil.
func FromConfig(cfg *config.DescriptorEnvConfig, store Store) (Generator, error) {
	remote, err := NewRemote(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize <= 0 {
		log.Info().Str("url", cfg.DescriptorURL).Msg("descriptor cache disabled")
		return remote, nil
	}

	cached, err := NewCached(remote, cfg.CacheSize, store, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("url", cfg.DescriptorURL).
		Int("cache_size", cfg.CacheSize).
		Bool("shared_cache", store != nil).
		Msg("descriptor cache enabled")
	return cached, nil
}
