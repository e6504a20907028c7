package usage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Apply runs the counter read-modify-write as one transaction. The counter
// row is locked for the duration, so concurrent requests from the same user
// serialize here and no increment is lost.
func (r *Repo) Apply(ctx context.Context, userID uint64, tokens int64, cost float64, now time.Time, window time.Duration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Ensure the row exists before taking the lock. On mysql a locked
		// read of a missing row takes a gap lock, and two first requests
		// racing on gap locks deadlock on insert; the idempotent insert
		// serializes them on the row itself instead.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&Counter{
			UserID:      userID,
			WindowStart: now,
		}).Error; err != nil {
			return err
		}

		q := tx.Where("user_id = ?", userID)
		// sqlite (tests) has a single writer and no FOR UPDATE syntax;
		// the row lock is needed on mysql only
		if tx.Dialector.Name() == "mysql" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var c Counter
		if err := q.First(&c).Error; err != nil {
			return err
		}

		if now.Sub(c.WindowStart) > window {
			// expired window: discard prior accumulation
			return tx.Model(&Counter{}).
				Where("user_id = ?", userID).
				Updates(map[string]any{
					"request_count": 1,
					"total_tokens":  tokens,
					"total_cost":    cost,
					"window_start":  now,
				}).Error
		}

		return tx.Model(&Counter{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"request_count": gorm.Expr("request_count + 1"),
				"total_tokens":  gorm.Expr("total_tokens + ?", tokens),
				"total_cost":    gorm.Expr("total_cost + ?", cost),
			}).Error
	})
}

// CurrentWindow returns the stored counter, or nil when the user has never
// made a request. Staleness is the caller's concern; windows expire lazily.
func (r *Repo) CurrentWindow(ctx context.Context, userID uint64) (*Counter, error) {
	var c Counter
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) InsertRecord(ctx context.Context, rec *Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// ListRecent returns history records for a user since the given time,
// newest first, capped at limit.
func (r *Repo) ListRecent(ctx context.Context, userID uint64, since time.Time, limit int) ([]Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var recs []Record
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ?", userID, since).
		Order("timestamp DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
