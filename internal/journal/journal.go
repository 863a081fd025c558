// Package journal keeps a Redis-backed history of backup and import runs.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	historyKey    = "tnll:dbtool:history"
	eventsChannel = "tnll:dbtool:events"
	maxEntries    = 500
)

// Entry is one recorded operation
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Operation string    `json:"operation"`
	Target    string    `json:"target"`
	Success   bool      `json:"success"`
	Summary   string    `json:"summary,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Journal records entries in a sorted set scored by time and publishes each one.
// A nil *Journal accepts every call and records nothing.
type Journal struct {
	client *redis.Client
}

// Open connects to Redis at url
func Open(url string) (*Journal, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Journal{client: client}, nil
}

// Record stores the entry, trims history to the newest 500 and publishes it
func (j *Journal) Record(ctx context.Context, entry Entry) error {
	if j == nil {
		return nil
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	err = j.client.ZAdd(ctx, historyKey, redis.Z{
		Score:  float64(entry.At.UnixMilli()),
		Member: data,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to record entry: %w", err)
	}

	if err := j.client.ZRemRangeByRank(ctx, historyKey, 0, -(maxEntries + 1)).Err(); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	if err := j.client.Publish(ctx, eventsChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish entry: %w", err)
	}

	return nil
}

// Recent returns up to limit entries, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil || limit <= 0 {
		return nil, nil
	}

	results, err := j.client.ZRevRange(ctx, historyKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, raw := range results {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("corrupt history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Follow calls fn for every entry published until ctx ends
func (j *Journal) Follow(ctx context.Context, fn func(Entry)) error {
	if j == nil {
		return nil
	}

	sub := j.client.Subscribe(ctx, eventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e Entry
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				continue
			}
			fn(e)
		}
	}
}

// Close closes the Redis connection
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.client.Close()
}
