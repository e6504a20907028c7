package usage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/suPer8Hu/model-gateway/internal/common"
)

// ErrRateLimitExceeded is returned by CheckAndAdmit once a user's active
// window holds the maximum number of requests.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

const (
	DefaultHourlyLimit = 100
	DefaultWindow      = time.Hour

	historyDays  = 30
	historyLimit = 100
)

// Publisher hands a history record to the append queue. Implemented by
// store/rabbitmq; nil disables queueing and records are inserted directly.
type Publisher interface {
	PublishRecord(ctx context.Context, rec Record) error
}

// Cache is a short-lived cache of the history view. Implemented by
// store/redisstore; nil disables caching.
type Cache interface {
	GetHistory(ctx context.Context, userID uint64) ([]Record, bool, error)
	SetHistory(ctx context.Context, userID uint64, recs []Record) error
	InvalidateHistory(ctx context.Context, userID uint64) error
}

type Service struct {
	repo   *Repo
	pub    Publisher
	cache  Cache
	limit  int64
	window time.Duration
}

func NewService(repo *Repo, pub Publisher, cache Cache, limit int, window time.Duration) *Service {
	if limit <= 0 {
		limit = DefaultHourlyLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{repo: repo, pub: pub, cache: cache, limit: int64(limit), window: window}
}

// CheckAndAdmit rejects the request once the active window is full. It runs
// before any provider call and reads the counter outside the increment
// transaction, so concurrent requests at the ceiling can overshoot by a
// bounded amount; increments themselves are never lost.
func (s *Service) CheckAndAdmit(ctx context.Context, userID uint64) error {
	c, err := s.repo.CurrentWindow(ctx, userID)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	if time.Since(c.WindowStart) <= s.window && c.RequestCount >= s.limit {
		return fmt.Errorf("%w: user %d: maximum %d requests per hour", ErrRateLimitExceeded, userID, s.limit)
	}
	return nil
}

// RecordUsage applies the request to the user's counter (resetting the
// window when it has expired) and appends a history record. The append is
// fire-and-forget relative to the counter: it goes through the queue when
// one is configured, falls back to a direct insert otherwise, and its
// failure never fails the call.
func (s *Service) RecordUsage(ctx context.Context, userID uint64, model string, inputTokens, outputTokens int, cost float64) error {
	now := time.Now()
	tokens := int64(inputTokens + outputTokens)

	if err := s.repo.Apply(ctx, userID, tokens, cost, now, s.window); err != nil {
		return err
	}

	id, err := common.NewULID()
	if err != nil {
		log.Printf("usage: ulid failed user=%d err=%v", userID, err)
		return nil
	}
	rec := Record{
		ID:           id,
		UserID:       userID,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		Timestamp:    now,
	}

	if s.pub != nil {
		if err := s.pub.PublishRecord(ctx, rec); err != nil {
			log.Printf("usage: publish record failed user=%d err=%v, inserting directly", userID, err)
			if err := s.repo.InsertRecord(ctx, &rec); err != nil {
				log.Printf("usage: insert record failed user=%d err=%v", userID, err)
			}
		}
	} else if err := s.repo.InsertRecord(ctx, &rec); err != nil {
		log.Printf("usage: insert record failed user=%d err=%v", userID, err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateHistory(ctx, userID); err != nil {
			log.Printf("usage: invalidate history cache failed user=%d err=%v", userID, err)
		}
	}
	return nil
}

type Stats struct {
	Current Counter  `json:"current"`
	History []Record `json:"history"`
}

// Stats reports the stored counter (zero-valued when the user has never
// made a request) and the last 30 days of history, newest first, capped at
// 100 records.
func (s *Service) Stats(ctx context.Context, userID uint64) (*Stats, error) {
	c, err := s.repo.CurrentWindow(ctx, userID)
	if err != nil {
		return nil, err
	}
	current := Counter{UserID: userID}
	if c != nil {
		current = *c
	}

	if s.cache != nil {
		if recs, okk, err := s.cache.GetHistory(ctx, userID); err == nil && okk {
			return &Stats{Current: current, History: recs}, nil
		}
	}

	since := time.Now().AddDate(0, 0, -historyDays)
	recs, err := s.repo.ListRecent(ctx, userID, since, historyLimit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetHistory(ctx, userID, recs); err != nil {
			log.Printf("usage: set history cache failed user=%d err=%v", userID, err)
		}
	}
	return &Stats{Current: current, History: recs}, nil
}
