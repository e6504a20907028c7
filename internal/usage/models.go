package usage

import "time"

// Counter is the per-user hourly usage window. It is only ever mutated
// inside the repo's counter transaction; it is reset in place when a new
// request arrives after the window expired, never deleted.
type Counter struct {
	UserID       uint64    `gorm:"primaryKey" json:"user_id"`
	RequestCount int64     `gorm:"not null" json:"request_count"`
	TotalTokens  int64     `gorm:"not null" json:"total_tokens"`
	TotalCost    float64   `gorm:"not null" json:"total_cost"`
	WindowStart  time.Time `gorm:"not null" json:"window_start"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Counter) TableName() string { return "usage_counters" }

// Record is one append-only usage history row per completed request.
// Written once, never updated.
type Record struct {
	ID           string    `gorm:"primaryKey;size:26" json:"id"` // ULID length
	UserID       uint64    `gorm:"not null;index:idx_usage_history_user_ts,priority:1" json:"user_id"`
	Model        string    `gorm:"type:varchar(64);not null" json:"model"`
	InputTokens  int       `gorm:"not null" json:"input_tokens"`
	OutputTokens int       `gorm:"not null" json:"output_tokens"`
	Cost         float64   `gorm:"not null" json:"cost"`
	Timestamp    time.Time `gorm:"not null;index:idx_usage_history_user_ts,priority:2" json:"timestamp"`
}

func (Record) TableName() string { return "usage_history" }
