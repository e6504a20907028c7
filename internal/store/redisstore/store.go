package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suPer8Hu/model-gateway/internal/usage"
)

// historyTTL keeps the cached history view short-lived; the history table
// is append-only and the cache is invalidated on new usage anyway.
const historyTTL = 60 * time.Second

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, dbNum int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbNum,
	})}
}

func historyKey(userID uint64) string {
	return fmt.Sprintf("usage:history:%d", userID)
}

func (s *Store) GetHistory(ctx context.Context, userID uint64) ([]usage.Record, bool, error) {
	b, err := s.rdb.Get(ctx, historyKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var recs []usage.Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, false, err
	}
	return recs, true, nil
}

func (s *Store) SetHistory(ctx context.Context, userID uint64, recs []usage.Record) error {
	b, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, historyKey(userID), b, historyTTL).Err()
}

func (s *Store) InvalidateHistory(ctx context.Context, userID uint64) error {
	return s.rdb.Del(ctx, historyKey(userID)).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
