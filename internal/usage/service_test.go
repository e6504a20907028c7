package usage

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Counter{}, &Record{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestRecordUsage_FirstRequestCreatesWindow(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepo(db), nil, nil, 100, time.Hour)

	const uid = uint64(101)
	if err := svc.RecordUsage(context.Background(), uid, "claude-x", 10, 5, 0.000105); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	var c Counter
	if err := db.Where("user_id = ?", uid).First(&c).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if c.RequestCount != 1 || c.TotalTokens != 15 {
		t.Fatalf("unexpected counter: count=%d tokens=%d", c.RequestCount, c.TotalTokens)
	}
	if math.Abs(c.TotalCost-0.000105) > 1e-12 {
		t.Fatalf("unexpected cost: %v", c.TotalCost)
	}
	if c.WindowStart.IsZero() {
		t.Fatalf("window start not set")
	}

	var recs []Record
	if err := db.Where("user_id = ?", uid).Find(&recs).Error; err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(recs))
	}
	if recs[0].Model != "claude-x" || recs[0].InputTokens != 10 || recs[0].OutputTokens != 5 {
		t.Fatalf("unexpected record: %+v", recs[0])
	}
}

func TestRecordUsage_AccumulatesWithinWindow(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepo(db), nil, nil, 100, time.Hour)

	const uid = uint64(102)
	if err := svc.RecordUsage(context.Background(), uid, "gpt-4", 100, 50, 0.006); err != nil {
		t.Fatalf("record usage: %v", err)
	}
	var first Counter
	if err := db.Where("user_id = ?", uid).First(&first).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}

	if err := svc.RecordUsage(context.Background(), uid, "gpt-4", 200, 100, 0.012); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	var c Counter
	if err := db.Where("user_id = ?", uid).First(&c).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if c.RequestCount != 2 || c.TotalTokens != 450 {
		t.Fatalf("unexpected counter: count=%d tokens=%d", c.RequestCount, c.TotalTokens)
	}
	if math.Abs(c.TotalCost-0.018) > 1e-12 {
		t.Fatalf("unexpected cost: %v", c.TotalCost)
	}
	if !c.WindowStart.Equal(first.WindowStart) {
		t.Fatalf("window start must not move on accumulate")
	}
}

func TestRecordUsage_ResetsExpiredWindow(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepo(db), nil, nil, 100, time.Hour)

	const uid = uint64(103)
	if err := svc.RecordUsage(context.Background(), uid, "gpt-4", 100, 50, 0.006); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	// age the window past the hour boundary
	if err := db.Model(&Counter{}).Where("user_id = ?", uid).
		Update("window_start", time.Now().Add(-2*time.Hour)).Error; err != nil {
		t.Fatalf("age window: %v", err)
	}

	if err := svc.RecordUsage(context.Background(), uid, "gpt-4", 7, 3, 0.001); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	var c Counter
	if err := db.Where("user_id = ?", uid).First(&c).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	// prior accumulation is discarded, not carried over
	if c.RequestCount != 1 || c.TotalTokens != 10 {
		t.Fatalf("expected reset counter, got count=%d tokens=%d", c.RequestCount, c.TotalTokens)
	}
	if math.Abs(c.TotalCost-0.001) > 1e-12 {
		t.Fatalf("unexpected cost after reset: %v", c.TotalCost)
	}
	if time.Since(c.WindowStart) > time.Minute {
		t.Fatalf("window start not refreshed: %v", c.WindowStart)
	}
}

func TestApply_FoldsRacingCreateIntoIncrement(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)

	// a concurrent first request can have created the row but not yet
	// counted itself; applying on top of it must increment, never fail
	const uid = uint64(108)
	if err := db.Create(&Counter{UserID: uid, WindowStart: time.Now()}).Error; err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	if err := repo.Apply(context.Background(), uid, 15, 0.001, time.Now(), time.Hour); err != nil {
		t.Fatalf("apply over existing row: %v", err)
	}
	if err := repo.Apply(context.Background(), uid, 10, 0.002, time.Now(), time.Hour); err != nil {
		t.Fatalf("apply again: %v", err)
	}

	var c Counter
	if err := db.Where("user_id = ?", uid).First(&c).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if c.RequestCount != 2 || c.TotalTokens != 25 {
		t.Fatalf("increments lost: count=%d tokens=%d", c.RequestCount, c.TotalTokens)
	}
	if math.Abs(c.TotalCost-0.003) > 1e-12 {
		t.Fatalf("unexpected cost: %v", c.TotalCost)
	}
}

func TestCheckAndAdmit_RejectsAtLimit(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepo(db), nil, nil, 3, time.Hour)

	const uid = uint64(104)

	// a user with no window is always admitted
	if err := svc.CheckAndAdmit(context.Background(), uid); err != nil {
		t.Fatalf("admit new user: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.CheckAndAdmit(context.Background(), uid); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
		if err := svc.RecordUsage(context.Background(), uid, "gpt-4", 10, 10, 0.001); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	// third request fills the window
	if err := svc.CheckAndAdmit(context.Background(), uid); err != nil {
		t.Fatalf("admit at limit-1: %v", err)
	}
	if err := svc.RecordUsage(context.Background(), uid, "gpt-4", 10, 10, 0.001); err != nil {
		t.Fatalf("record at limit: %v", err)
	}

	err := svc.CheckAndAdmit(context.Background(), uid)
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}

	// the rejected attempt must not touch the counter
	var c Counter
	if err := db.Where("user_id = ?", uid).First(&c).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if c.RequestCount != 3 {
		t.Fatalf("rejected attempt mutated counter: count=%d", c.RequestCount)
	}
}

func TestCheckAndAdmit_ExpiredWindowAdmits(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepo(db), nil, nil, 1, time.Hour)

	const uid = uint64(105)
	if err := svc.RecordUsage(context.Background(), uid, "gpt-4", 10, 10, 0.001); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.CheckAndAdmit(context.Background(), uid); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected rejection, got %v", err)
	}

	if err := db.Model(&Counter{}).Where("user_id = ?", uid).
		Update("window_start", time.Now().Add(-61*time.Minute)).Error; err != nil {
		t.Fatalf("age window: %v", err)
	}

	// full but stale windows do not block
	if err := svc.CheckAndAdmit(context.Background(), uid); err != nil {
		t.Fatalf("expected admit after expiry, got %v", err)
	}
}

func TestStats_ZeroedWhenNoUsage(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepo(db), nil, nil, 100, time.Hour)

	stats, err := svc.Stats(context.Background(), 106)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Current.RequestCount != 0 || stats.Current.TotalTokens != 0 || stats.Current.TotalCost != 0 {
		t.Fatalf("expected zeroed counter, got %+v", stats.Current)
	}
	if len(stats.History) != 0 {
		t.Fatalf("expected empty history, got %d records", len(stats.History))
	}
}

func TestStats_HistoryNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := NewService(repo, nil, nil, 100, time.Hour)

	const uid = uint64(107)
	now := time.Now()
	for i, id := range []string{"01HISTREC0000000000000000A", "01HISTREC0000000000000000B", "01HISTREC0000000000000000C"} {
		rec := &Record{
			ID:           id,
			UserID:       uid,
			Model:        "gpt-4",
			InputTokens:  10,
			OutputTokens: 5,
			Cost:         0.001,
			Timestamp:    now.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.InsertRecord(context.Background(), rec); err != nil {
			t.Fatalf("insert record %d: %v", i, err)
		}
	}
	// a stale record outside the 30-day window
	if err := repo.InsertRecord(context.Background(), &Record{
		ID:        "01HISTREC0000000000000000D",
		UserID:    uid,
		Model:     "gpt-4",
		Timestamp: now.AddDate(0, 0, -31),
	}); err != nil {
		t.Fatalf("insert stale record: %v", err)
	}
	// another user's record must not leak in
	if err := repo.InsertRecord(context.Background(), &Record{
		ID:        "01HISTREC0000000000000000E",
		UserID:    uid + 1,
		Model:     "gpt-4",
		Timestamp: now,
	}); err != nil {
		t.Fatalf("insert other-user record: %v", err)
	}

	stats, err := svc.Stats(context.Background(), uid)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats.History) != 3 {
		t.Fatalf("expected 3 records, got %d", len(stats.History))
	}
	for i := 1; i < len(stats.History); i++ {
		if stats.History[i].Timestamp.After(stats.History[i-1].Timestamp) {
			t.Fatalf("history not newest-first at %d", i)
		}
	}
}
