package descriptor

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"iter"
	"math"
	"time"

	"github.com/bytedance/sonic"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/simsal/internal/imaging"
)

const cacheKeyPrefix = "descriptor:"

// Store is a shared string key/value cache such as Redis.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Cached memoizes another Generator by image content, first in a local
// LRU and then, when configured, in a shared Store. Store failures are
// logged and treated as misses.
type Cached struct {
	inner Generator
	local *lru.Cache[string, []float64]
	store Store
	ttl   time.Duration
}

// NewCached wraps inner with an LRU of size entries. store may be nil.
func NewCached(inner Generator, size int, store Store, ttl time.Duration) (*Cached, error) {
	if inner == nil {
		return nil, errors.New("inner descriptor generator cannot be nil")
	}

	local, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor lru")
	}

	return &Cached{inner: inner, local: local, store: store, ttl: ttl}, nil
}

// CacheKey identifies an image by its shape and exact sample values.
func CacheKey(img *imaging.Image) string {
	h := sha256.New()

	var buf [8]byte
	for _, dim := range []int{img.Height, img.Width, img.Channels} {
		binary.LittleEndian.PutUint64(buf[:], uint64(dim))
		h.Write(buf[:])
	}
	for _, v := range img.Pix {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}

	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *Cached) Describe(ctx context.Context, img *imaging.Image) ([]float64, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	key := CacheKey(img)

	if descr, ok := c.local.Get(key); ok {
		return clone(descr), nil
	}

	if descr, ok := c.fromStore(ctx, key); ok {
		c.local.Add(key, descr)
		return clone(descr), nil
	}

	descr, err := DescribeOne(ctx, c.inner, img)
	if err != nil {
		return nil, err
	}

	c.local.Add(key, clone(descr))
	c.toStore(ctx, key, descr)

	return descr, nil
}

func (c *Cached) GenerateArrays(ctx context.Context, images iter.Seq[*imaging.Image]) iter.Seq2[[]float64, error] {
	return Func(c.Describe).GenerateArrays(ctx, images)
}

// Len reports the number of locally cached descriptors.
func (c *Cached) Len() int {
	return c.local.Len()
}

func (c *Cached) fromStore(ctx context.Context, key string) ([]float64, bool) {
	if c.store == nil {
		return nil, false
	}

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("descriptor cache lookup failed")
		return nil, false
	}
	if raw == "" {
		return nil, false
	}

	var descr []float64
	if err := sonic.UnmarshalString(raw, &descr); err != nil || len(descr) == 0 {
		log.Warn().Err(err).Str("key", key).Msg("discarding malformed cached descriptor")
		return nil, false
	}

	return descr, true
}

func (c *Cached) toStore(ctx context.Context, key string, descr []float64) {
	if c.store == nil {
		return
	}

	raw, err := sonic.MarshalString(descr)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to encode descriptor for cache")
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to store descriptor in cache")
	}
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
