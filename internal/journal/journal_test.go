package journal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestJournal_Record(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	j := &Journal{client: db}
	ctx := context.Background()

	entry := Entry{
		ID:        uuid.MustParse("6f1c2b1e-8a47-4f0e-9b7d-2f6c1d0e5a11"),
		Operation: "import:data",
		Target:    "backup_2026-10-16_09-30-00.sql",
		Success:   true,
		Summary:   "2 statements (3 rows) inserted, 4 skipped, 0 errors in 12ms",
		At:        time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
	}
	data, _ := json.Marshal(entry)

	mock.ExpectZAdd(historyKey, redis.Z{
		Score:  float64(entry.At.UnixMilli()),
		Member: data,
	}).SetVal(1)
	mock.ExpectZRemRangeByRank(historyKey, 0, -(maxEntries + 1)).SetVal(0)
	mock.ExpectPublish(eventsChannel, data).SetVal(1)

	if err := j.Record(ctx, entry); err != nil {
		t.Errorf("Record() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestJournal_RecordError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	j := &Journal{client: db}
	entry := Entry{
		ID:        uuid.MustParse("0d8a5c1f-3b2e-4c6d-8e9f-a1b2c3d4e5f6"),
		Operation: "backup:create",
		At:        time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC),
	}
	data, _ := json.Marshal(entry)

	mock.ExpectZAdd(historyKey, redis.Z{
		Score:  float64(entry.At.UnixMilli()),
		Member: data,
	}).SetErr(redis.ErrClosed)

	if err := j.Record(context.Background(), entry); err == nil {
		t.Error("Record() expected error when ZADD fails")
	}
}

func TestJournal_Recent(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	j := &Journal{client: db}

	newest := Entry{ID: uuid.New(), Operation: "import:full", Success: false, Error: "[1064] syntax error", At: time.Date(2026, 10, 16, 11, 0, 0, 0, time.UTC)}
	older := Entry{ID: uuid.New(), Operation: "backup:create", Success: true, At: time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)}
	a, _ := json.Marshal(newest)
	b, _ := json.Marshal(older)

	mock.ExpectZRevRange(historyKey, 0, 9).SetVal([]string{string(a), string(b)})

	entries, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent() returned %d entries, want 2", len(entries))
	}
	if entries[0].ID != newest.ID || entries[0].Error != newest.Error {
		t.Errorf("entries[0] = %+v, want %+v", entries[0], newest)
	}
	if !entries[1].At.Equal(older.At) {
		t.Errorf("entries[1].At = %v, want %v", entries[1].At, older.At)
	}
}

func TestJournal_RecentCorruptEntry(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	j := &Journal{client: db}
	mock.ExpectZRevRange(historyKey, 0, 4).SetVal([]string{"{not json"})

	if _, err := j.Recent(context.Background(), 5); err == nil {
		t.Error("Recent() expected error for corrupt entry")
	}
}

func TestJournal_Nil(t *testing.T) {
	var j *Journal
	ctx := context.Background()

	if err := j.Record(ctx, Entry{Operation: "backup:create"}); err != nil {
		t.Errorf("nil Record() error = %v", err)
	}
	if entries, err := j.Recent(ctx, 10); err != nil || entries != nil {
		t.Errorf("nil Recent() = %v, %v", entries, err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}

func TestOpen_InvalidURL(t *testing.T) {
	if _, err := Open("not a url"); err == nil {
		t.Error("Open() expected error for invalid URL")
	}
}
