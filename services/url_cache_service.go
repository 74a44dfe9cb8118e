package services

import (
	"context"
	"fmt"
	"time"

	"wardrobeapi/config"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"go.uber.org/zap"
)

// This is the duration for which presigned URLs will be valid.
const presignedURLExpiration = 15 * time.Minute

// slightly less than expiration
const cacheCleanupInterval = 12 * time.Minute

type URLCacheServiceProvider interface {
	GetReadURL(ctx context.Context, objectKey string) (string, error)
}

// URLCacheService resolves object keys to readable URLs, caching presigned ones.
type URLCacheService struct {
	cache *cache.LoadableCache[string]
	store ObjectStore
}

func newRistrettoStore(maxCost int64) (*ristretto_store.RistrettoStore, error) {
	if maxCost <= 0 {
		maxCost = 1 << 27
	}
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e7,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return ristretto_store.NewRistretto(ristrettoCache), nil
}

func NewURLCacheService(objectStore ObjectStore, cfg config.CacheConfig) (*URLCacheService, error) {
	ristrettoStore, err := newRistrettoStore(cfg.MaxCost)
	if err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 || ttl >= presignedURLExpiration {
		ttl = cacheCleanupInterval
	}

	loadFunction := func(ctx context.Context, key any) (string, []store.Option, error) {
		objectKey, ok := key.(string)
		if !ok {
			return "", nil, fmt.Errorf("invalid key type provided to URL cache: expected string, got %T", key)
		}

		config.Logger.Debug("url cache miss", zap.String("key", objectKey))
		url, err := objectStore.PresignRead(ctx, objectKey)
		return url, []store.Option{store.WithExpiration(ttl), store.WithCost(1)}, err
	}

	loadableCache := cache.NewLoadable[string](
		loadFunction,
		cache.New[string](ristrettoStore),
	)
	return &URLCacheService{
		cache: loadableCache,
		store: objectStore,
	}, nil
}

func (s *URLCacheService) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	if public := s.store.PublicURL(objectKey); public != "" {
		return public, nil
	}

	return s.cache.Get(ctx, objectKey)
}

// ResolveImageURL prefers a fresh read URL for the stored object and falls
// back to the recorded URL when there is no object key or the lookup fails.
func ResolveImageURL(ctx context.Context, urls URLCacheServiceProvider, path *string, recorded *string) *string {
	if path == nil || *path == "" || urls == nil {
		return recorded
	}
	url, err := urls.GetReadURL(ctx, *path)
	if err != nil || url == "" {
		config.Logger.Warn("read url lookup failed", zap.String("key", *path), zap.Error(err))
		return recorded
	}
	return &url
}
