package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
)

const (
	cacheKeyPrefix  = "recipes:cache:" // recipes:cache:{collection}:...
	defaultCacheTTL = 30 * time.Second
)

var _ Store = (*CachedStore)(nil)

// CachedStore serves repeated page reads from Redis.
//
// Pages are keyed by a per-collection generation number and a hash of the
// query. Every successful mutation bumps the generation, so stale pages are
// never read again and simply expire. Redis failures are logged and the
// wrapped store is used directly.
type CachedStore struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	log    *zap.Logger
}

// NewCachedStore wraps next with a Redis page cache.
func NewCachedStore(next Store, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedStore{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (s *CachedStore) Create(ctx context.Context, collection string, rec domain.Recipe) (string, error) {
	id, err := s.next.Create(ctx, collection, rec)
	if err != nil {
		return "", err
	}
	s.invalidate(ctx, collection)
	return id, nil
}

func (s *CachedStore) Read(ctx context.Context, collection string, q domain.Query) (domain.Page, error) {
	gen, err := s.client.Get(ctx, s.generationKey(collection)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn("page cache unavailable", zap.String("collection", collection), zap.Error(err))
		return s.next.Read(ctx, collection, q)
	}

	key, err := s.pageKey(collection, gen, q)
	if err != nil {
		return s.next.Read(ctx, collection, q)
	}

	if data, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var page domain.Page
		if err := json.Unmarshal(data, &page); err == nil {
			s.log.Debug("page cache hit", zap.String("key", key))
			return page, nil
		}
		s.log.Warn("discarding undecodable cached page", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn("page cache read failed", zap.String("key", key), zap.Error(err))
	}

	// The shared read must outlive any single caller: each caller stops
	// waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		page, err := s.next.Read(shared, collection, q)
		if err != nil {
			return domain.Page{}, err
		}
		if data, err := json.Marshal(page); err == nil {
			if err := s.client.Set(shared, key, data, s.ttl).Err(); err != nil {
				s.log.Warn("page cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return page, nil
	})

	select {
	case <-ctx.Done():
		return domain.Page{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Page{}, res.Err
		}
		return res.Val.(domain.Page), nil
	}
}

func (s *CachedStore) Update(ctx context.Context, collection, id string, rec domain.Recipe) error {
	if err := s.next.Update(ctx, collection, id, rec); err != nil {
		return err
	}
	s.invalidate(ctx, collection)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.next.Delete(ctx, collection, id); err != nil {
		return err
	}
	s.invalidate(ctx, collection)
	return nil
}

// Ping checks Redis and, when supported, the wrapped store.
func (s *CachedStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if p, ok := s.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *CachedStore) invalidate(ctx context.Context, collection string) {
	if err := s.client.Incr(ctx, s.generationKey(collection)).Err(); err != nil {
		s.log.Warn("page cache invalidation failed", zap.String("collection", collection), zap.Error(err))
	}
}

func (s *CachedStore) generationKey(collection string) string {
	return fmt.Sprintf("%s%s:gen", cacheKeyPrefix, collection)
}

func (s *CachedStore) pageKey(collection string, gen int64, q domain.Query) (string, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s%s:page:%d:%s", cacheKeyPrefix, collection, gen, hex.EncodeToString(sum[:16])), nil
}
