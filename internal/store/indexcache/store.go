// Package indexcache implements the index-store collaborator as a
// read-through chain: an in-process map, then Redis, then Postgres,
// populating each faster layer on the way back up.
package indexcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pathwatch/navguard/internal/navtypes"
)

// Store is the indexer/query planner's IndexStore/IndexGetter
// collaborator.
type Store struct {
	db    *sql.DB
	redis *redis.Client
	ttl   time.Duration

	cacheMu sync.RWMutex
	cache   map[string]*navtypes.UserIndex
}

// New constructs a Store. ttl governs only the Redis key expiry;
// Postgres rows never expire, they are superseded by the next Put.
func New(db *sql.DB, redisClient *redis.Client, ttl time.Duration) *Store {
	return &Store{
		db:    db,
		redis: redisClient,
		ttl:   ttl,
		cache: make(map[string]*navtypes.UserIndex),
	}
}

// Get returns the cached index for key, checking the in-process map,
// then Redis, then Postgres, populating faster layers as it goes.
func (s *Store) Get(ctx context.Context, key string) (*navtypes.UserIndex, bool, error) {
	s.cacheMu.RLock()
	if idx, ok := s.cache[key]; ok {
		s.cacheMu.RUnlock()
		return idx, true, nil
	}
	s.cacheMu.RUnlock()

	cached, err := s.redis.Get(ctx, redisKey(key)).Result()
	if err == nil {
		var idx navtypes.UserIndex
		if json.Unmarshal([]byte(cached), &idx) == nil {
			s.memoize(key, &idx)
			return &idx, true, nil
		}
	} else if err != redis.Nil {
		return nil, false, err
	}

	var blob []byte
	err = s.db.QueryRowContext(ctx, "SELECT payload FROM indices WHERE key = $1", key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var idx navtypes.UserIndex
	if err := json.Unmarshal(blob, &idx); err != nil {
		return nil, false, err
	}

	s.memoize(key, &idx)
	if payload, marshalErr := json.Marshal(&idx); marshalErr == nil {
		s.redis.Set(ctx, redisKey(key), payload, s.ttl)
	}

	return &idx, true, nil
}

// Put persists idx under key to Postgres, Redis, and the in-process
// map, in that order, so a reader never observes a faster layer ahead
// of the durable one.
func (s *Store) Put(ctx context.Context, key string, idx *navtypes.UserIndex) error {
	payload, err := json.Marshal(idx)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO indices (key, payload, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		key, payload, time.Now(),
	)
	if err != nil {
		return err
	}

	s.redis.Set(ctx, redisKey(key), payload, s.ttl)
	s.memoize(key, idx)
	return nil
}

// Invalidate drops key from every cache layer, forcing the next Get to
// rebuild from Postgres (or miss entirely if the row was also removed).
func (s *Store) Invalidate(ctx context.Context, key string) {
	s.cacheMu.Lock()
	delete(s.cache, key)
	s.cacheMu.Unlock()
	s.redis.Del(ctx, redisKey(key))
}

func (s *Store) memoize(key string, idx *navtypes.UserIndex) {
	s.cacheMu.Lock()
	s.cache[key] = idx
	s.cacheMu.Unlock()
}

func redisKey(key string) string {
	return "index:" + key
}
