package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestOpen_SQLiteMemory(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, "sqlite::memory:", Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Dialect.Name() != "sqlite" {
		t.Errorf("Dialect = %v, want sqlite", db.Dialect.Name())
	}

	if _, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	exists, err := db.Dialect.TableExists(ctx, db, "t")
	if err != nil || !exists {
		t.Errorf("TableExists() = %v, %v; the single pooled connection should see the table", exists, err)
	}
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	if _, err := Open(context.Background(), "postgres://localhost/db", Options{}); err == nil {
		t.Error("expected error for postgres connection string")
	}
}

func TestConnectWithRetry(t *testing.T) {
	ctx := context.Background()
	calls := 0

	got, err := connectWithRetry(ctx, discardLogger(), 3, time.Millisecond, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("attempt %d failed", calls)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("connectWithRetry() error = %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("got %d after %d calls, want 42 after 3", got, calls)
	}

	calls = 0
	_, err = connectWithRetry(ctx, discardLogger(), 2, time.Millisecond, func() (int, error) {
		calls++
		return 0, errors.New("down")
	})
	if err == nil || err.Error() != "down" {
		t.Errorf("connectWithRetry() error = %v, want last error", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestConnectWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := connectWithRetry(ctx, discardLogger(), 5, time.Hour, func() (int, error) {
		return 0, errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("no such table: users"), "no such table: users"},
		{"mysql", &mysql.MySQLError{Number: 1146, Message: "Table 'tnll.users' doesn't exist"}, "[1146] Table 'tnll.users' doesn't exist"},
		{"wrapped mysql", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1'"}), "[1062] Duplicate entry '1'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescribeError(tt.err); got != tt.want {
				t.Errorf("DescribeError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 250)
	got := Truncate(long, MaxErrorLength)
	if len(got) != MaxErrorLength+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("Truncate() length = %d, want %d with ellipsis", len(got), MaxErrorLength+3)
	}

	if got := Truncate("short", MaxErrorLength); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}

	// "é" is two bytes; cutting at 2 would split the second one
	if got := Truncate("aéb", 2); got != "a..." {
		t.Errorf("Truncate(aéb, 2) = %q, want %q", got, "a...")
	}
}

func TestRedact(t *testing.T) {
	tests := map[string]string{
		"mysql://root:secret@db:3306/tnll": "mysql://root@db:3306/tnll",
		"sqlite:///tmp/tnll.db":            "sqlite:///tmp/tnll.db",
	}
	for in, want := range tests {
		if got := Redact(in); got != want {
			t.Errorf("Redact(%q) = %q, want %q", in, got, want)
		}
	}
}
