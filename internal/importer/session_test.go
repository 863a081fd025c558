package importer

import (
	"context"
	"errors"
	"testing"
)

func TestSession_CancelRestoresConstraints(t *testing.T) {
	imp, db := newTestImporter(t, nil)
	execAll(t, db, "CREATE TABLE flora (id INTEGER PRIMARY KEY)")

	ctx, cancel := context.WithCancel(context.Background())
	sess, err := imp.begin(ctx)
	if err != nil {
		t.Fatalf("begin() error = %v", err)
	}
	if err := sess.exec(ctx, "INSERT INTO flora VALUES (1)"); err != nil {
		t.Fatalf("exec() error = %v", err)
	}

	cancel()
	err = sess.abort(ctx, "", ctx.Err())

	var replayErr *ReplayError
	if !errors.As(err, &replayErr) || !errors.Is(err, context.Canceled) {
		t.Fatalf("abort() error = %v, want ReplayError wrapping context.Canceled", err)
	}
	if replayErr.Phase != PhaseReplaying {
		t.Errorf("Phase = %v, want %v", replayErr.Phase, PhaseReplaying)
	}
	if sess.phase != PhaseRolledBack {
		t.Errorf("session phase = %v, want %v", sess.phase, PhaseRolledBack)
	}
	if sess.restoreErr != nil {
		t.Errorf("foreign key checks not restored: %v", sess.restoreErr)
	}

	// the pinned connection is back in the pool and the insert was rolled back
	if got := countRows(t, db, "flora"); got != 0 {
		t.Errorf("flora rows = %d, want 0", got)
	}
	var deferred int
	if err := db.QueryRow("PRAGMA defer_foreign_keys").Scan(&deferred); err != nil {
		t.Fatal(err)
	}
	if deferred != 0 {
		t.Errorf("defer_foreign_keys = %d, want 0", deferred)
	}
}

func TestSession_CommitReleasesConnection(t *testing.T) {
	ctx := context.Background()
	imp, db := newTestImporter(t, nil)
	execAll(t, db, "CREATE TABLE fauna (id INTEGER PRIMARY KEY)")

	sess, err := imp.begin(ctx)
	if err != nil {
		t.Fatalf("begin() error = %v", err)
	}
	if err := sess.exec(ctx, "INSERT INTO fauna VALUES (7)"); err != nil {
		t.Fatalf("exec() error = %v", err)
	}
	if err := sess.commit(ctx); err != nil {
		t.Fatalf("commit() error = %v", err)
	}
	if sess.phase != PhaseCommitted {
		t.Errorf("phase = %v, want %v", sess.phase, PhaseCommitted)
	}
	if got := countRows(t, db, "fauna"); got != 1 {
		t.Errorf("fauna rows = %d, want 1", got)
	}
}
