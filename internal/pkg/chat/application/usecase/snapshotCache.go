package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	cacheport "shopchat/internal/infrastructure/cache/port"
	chat "shopchat/internal/pkg/chat/application/domain"

	"github.com/rs/zerolog/log"
)

// SnapshotCache keeps recently loaded conversation rows in the cache backend
// so the hot read path (inbox polling, message fetches) skips the database.
// Everything here is best-effort: a cache failure degrades to a repository
// read, never to a request failure.
//
// A nil *SnapshotCache is valid and disables caching.
type SnapshotCache struct {
	Cache cacheport.Cache
	TTL   time.Duration
}

func NewSnapshotCache(cache cacheport.Cache, ttl time.Duration) *SnapshotCache {
	if cache == nil || ttl <= 0 {
		return nil
	}
	return &SnapshotCache{Cache: cache, TTL: ttl}
}

func (s *SnapshotCache) key(id string) string { return "chat:conv:" + id }

// Get returns the cached conversation or nil on miss/error.
func (s *SnapshotCache) Get(ctx context.Context, id string) *chat.Conversation {
	if s == nil {
		return nil
	}
	raw, err := s.Cache.Get(ctx, s.key(id))
	if err != nil {
		if !errors.Is(err, cacheport.ErrMiss) {
			log.Debug().Err(err).Str("conversation_id", id).Msg("snapshot cache: get failed")
		}
		return nil
	}
	var c chat.Conversation
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		log.Debug().Err(err).Str("conversation_id", id).Msg("snapshot cache: corrupt entry")
		s.Drop(ctx, id)
		return nil
	}
	return &c
}

func (s *SnapshotCache) Put(ctx context.Context, c *chat.Conversation) {
	if s == nil || c == nil || c.ID == "" {
		return
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, s.key(c.ID), string(raw), s.TTL); err != nil {
		log.Debug().Err(err).Str("conversation_id", c.ID).Msg("snapshot cache: set failed")
	}
}

// Drop invalidates entries after any write that changes lifecycle state.
func (s *SnapshotCache) Drop(ctx context.Context, ids ...string) {
	if s == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}
	if _, err := s.Cache.Del(ctx, keys...); err != nil {
		log.Debug().Err(err).Msg("snapshot cache: del failed")
	}
}
