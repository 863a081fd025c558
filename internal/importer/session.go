package importer

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"

	"tnll-dbtool/internal/database"
	"tnll-dbtool/pkg/dialect"
)

// Phase tracks where a replay transaction is
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConstraintsDisabled
	PhaseReplaying
	PhaseConstraintsRestored
	PhaseCommitted
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConstraintsDisabled:
		return "constraints_disabled"
	case PhaseReplaying:
		return "replaying"
	case PhaseConstraintsRestored:
		return "constraints_restored"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ReplayError reports a failed replay and the phase it failed in.
// The transaction has been rolled back when it is returned.
type ReplayError struct {
	Phase     Phase
	Statement string
	Err       error
}

func (e *ReplayError) Error() string {
	if e.Statement != "" {
		return fmt.Sprintf("import failed while %s: %s (statement: %s)",
			e.Phase, database.DescribeError(e.Err), database.Truncate(e.Statement, 120))
	}
	return fmt.Sprintf("import failed while %s: %s", e.Phase, database.DescribeError(e.Err))
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}

// session is one replay transaction with foreign-key checks suspended, on a
// connection pinned for its whole life. Constraints are restored on every
// exit path before commit or rollback.
type session struct {
	conn       *sql.Conn
	tx         *sql.Tx
	dialect    dialect.Dialect
	logger     *slog.Logger
	phase      Phase
	restoreErr error
}

func (imp *Importer) begin(ctx context.Context) (*session, error) {
	conn, err := imp.db.Conn(ctx)
	if err != nil {
		return nil, &ReplayError{Phase: PhaseIdle, Err: fmt.Errorf("failed to acquire connection: %w", err)}
	}

	// Cancelling ctx must not roll the transaction back behind our back:
	// checks have to be restored on this connection first. The replay loops
	// watch ctx themselves.
	tx, err := conn.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		conn.Close()
		return nil, &ReplayError{Phase: PhaseIdle, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}

	s := &session{conn: conn, tx: tx, dialect: imp.dialect, logger: imp.logger, phase: PhaseIdle}
	if _, err := tx.ExecContext(ctx, imp.dialect.DisableForeignKeyChecks()); err != nil {
		tx.Rollback()
		s.release(ctx)
		return nil, &ReplayError{Phase: PhaseIdle, Err: fmt.Errorf("failed to disable foreign key checks: %w", err)}
	}
	s.phase = PhaseConstraintsDisabled
	imp.logger.Debug("Foreign key checks disabled")

	return s, nil
}

func (s *session) exec(ctx context.Context, query string) error {
	s.phase = PhaseReplaying
	_, err := s.tx.ExecContext(ctx, query)
	return err
}

func (s *session) restoreConstraints(ctx context.Context) error {
	if s.phase != PhaseConstraintsDisabled && s.phase != PhaseReplaying {
		return nil
	}
	_, err := s.tx.ExecContext(context.WithoutCancel(ctx), s.dialect.EnableForeignKeyChecks())
	s.phase = PhaseConstraintsRestored
	if err != nil {
		return fmt.Errorf("failed to restore foreign key checks: %w", err)
	}
	s.logger.Debug("Foreign key checks restored")
	return nil
}

func (s *session) commit(ctx context.Context) error {
	if err := s.restoreConstraints(ctx); err != nil {
		s.tx.Rollback()
		s.phase = PhaseRolledBack
		s.release(ctx)
		return &ReplayError{Phase: PhaseConstraintsRestored, Err: err}
	}
	if err := s.tx.Commit(); err != nil {
		s.phase = PhaseRolledBack
		s.release(ctx)
		return &ReplayError{Phase: PhaseConstraintsRestored, Err: fmt.Errorf("commit failed: %w", err)}
	}
	s.phase = PhaseCommitted
	s.conn.Close()
	return nil
}

// abort restores constraints, rolls back and wraps cause with the phase it happened in
func (s *session) abort(ctx context.Context, statement string, cause error) error {
	failed := s.phase
	if err := s.restoreConstraints(ctx); err != nil {
		s.logger.Warn("Could not restore foreign key checks before rollback", "error", err)
	}
	if err := s.tx.Rollback(); err != nil {
		s.logger.Warn("Rollback failed", "error", err)
	}
	s.phase = PhaseRolledBack
	s.release(ctx)
	return &ReplayError{Phase: failed, Statement: statement, Err: cause}
}

// release re-enables foreign-key checks on the pinned connection, which keeps
// the setting after a rollback on MySQL, and hands the connection back. A
// connection that cannot be reset is discarded instead of pooled.
func (s *session) release(ctx context.Context) {
	_, err := s.conn.ExecContext(context.WithoutCancel(ctx), s.dialect.EnableForeignKeyChecks())
	if err != nil {
		s.restoreErr = err
		s.logger.Warn("Discarding connection with foreign key checks disabled", "error", err)
		s.conn.Raw(func(any) error { return driver.ErrBadConn })
	}
	s.conn.Close()
}
