// Package backup writes, lists and prunes SQL dumps of the live database.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tnll-dbtool/pkg/dialect"
)

// ErrInvalidName is returned for backup names that could escape the backup directory
var ErrInvalidName = errors.New("invalid backup name")

const (
	MethodExternal = "external"
	MethodManual   = "manual"

	nameLayout = "2006-01-02_15-04-05"
)

// Info describes one backup file
type Info struct {
	Name      string
	Path      string
	Size      int64
	HumanSize string
	ModTime   time.Time
	Method    string // set by Create only
	Tables    int    // set by Create for manual dumps
	Rows      int    // set by Create for manual dumps
}

// Manager owns the backup directory
type Manager struct {
	dir      string
	db       dialect.Querier
	dialect  dialect.Dialect
	external *ExternalDumper
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager creates a manager writing into dir. external may be nil to
// always use the manual writer.
func NewManager(dir string, db dialect.Querier, d dialect.Dialect, external *ExternalDumper, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:      dir,
		db:       db,
		dialect:  d,
		external: external,
		logger:   logger,
		now:      time.Now,
	}
}

// Dir returns the backup directory
func (m *Manager) Dir() string {
	return m.dir
}

// Create writes a new backup. An empty name becomes backup_YYYY-MM-DD_HH-MM-SS.sql.
// mysqldump is tried first when configured; an error or empty output falls
// back to the manual writer.
func (m *Manager) Create(ctx context.Context, name string) (*Info, error) {
	if name == "" {
		name = "backup_" + m.now().Format(nameLayout) + ".sql"
	} else if !strings.HasSuffix(strings.ToLower(name), ".sql") {
		name += ".sql"
	}
	path, err := m.Path(name)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	tmp := path + ".tmp"
	defer os.Remove(tmp)

	info := &Info{Name: name, Path: path}
	if m.external != nil && m.tryExternal(ctx, tmp) {
		info.Method = MethodExternal
	} else {
		stats, err := m.writeManual(ctx, tmp)
		if err != nil {
			return nil, err
		}
		info.Method = MethodManual
		info.Tables = stats.Tables
		info.Rows = stats.Rows
	}

	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("failed to finalize backup: %w", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	info.Size = st.Size()
	info.HumanSize = HumanSize(st.Size())
	info.ModTime = st.ModTime()

	m.logger.Info("Backup created", "name", name, "method", info.Method, "size", info.HumanSize)
	return info, nil
}

func (m *Manager) tryExternal(ctx context.Context, path string) bool {
	tables, err := m.dialect.ListTables(ctx, m.db)
	if err != nil {
		m.logger.Warn("Could not list tables for mysqldump", "error", err)
		return false
	}

	f, err := os.Create(path)
	if err != nil {
		m.logger.Warn("Could not create backup file", "error", err)
		return false
	}

	err = m.external.Dump(f, tables)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		m.logger.Warn("mysqldump failed, falling back to manual backup", "error", err)
		return false
	}

	st, err := os.Stat(path)
	if err != nil || st.Size() == 0 {
		m.logger.Warn("mysqldump produced no output, falling back to manual backup")
		return false
	}
	return true
}

func (m *Manager) writeManual(ctx context.Context, path string) (*WriteStats, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}

	stats, err := NewWriter(m.db, m.dialect, m.logger).Write(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close backup file: %w", cerr)
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// List returns the backups newest first. A missing directory is an empty list.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".sql") {
			continue
		}
		st, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Name:      entry.Name(),
			Path:      filepath.Join(m.dir, entry.Name()),
			Size:      st.Size(),
			HumanSize: HumanSize(st.Size()),
			ModTime:   st.ModTime(),
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].ModTime.Equal(backups[j].ModTime) {
			return backups[i].Name > backups[j].Name
		}
		return backups[i].ModTime.After(backups[j].ModTime)
	})
	return backups, nil
}

// Path resolves a backup name inside the backup directory
func (m *Manager) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(m.dir, name), nil
}

// Open returns a reader for the named backup
func (m *Manager) Open(name string) (io.ReadCloser, error) {
	path, err := m.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes the named backup. It reports false, without error, when
// the file does not exist.
func (m *Manager) Delete(name string) (bool, error) {
	path, err := m.Path(name)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete backup %s: %w", name, err)
	}
	m.logger.Info("Backup deleted", "name", name)
	return true, nil
}

// Prune keeps the newest keep backups and deletes the rest, returning the removed names
func (m *Manager) Prune(keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep must not be negative, got %d", keep)
	}

	backups, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(backups) <= keep {
		return nil, nil
	}

	var removed []string
	for _, b := range backups[keep:] {
		ok, err := m.Delete(b.Name)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, b.Name)
		}
	}
	return removed, nil
}
