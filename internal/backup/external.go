package backup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-mysql-org/go-mysql/dump"
	"github.com/go-sql-driver/mysql"
)

// ExternalDumper runs mysqldump through go-mysql's dump package
type ExternalDumper struct {
	Binary   string
	Addr     string
	User     string
	Password string
	Database string
}

// NewExternalDumper builds a dumper for the database described by cfg
func NewExternalDumper(binary string, cfg *mysql.Config) *ExternalDumper {
	return &ExternalDumper{
		Binary:   binary,
		Addr:     cfg.Addr,
		User:     cfg.User,
		Password: cfg.Passwd,
		Database: cfg.DBName,
	}
}

// Dump writes the given tables with structure and complete inserts to w
func (e *ExternalDumper) Dump(w io.Writer, tables []string) error {
	if e.Database == "" {
		return errors.New("no database selected for mysqldump")
	}

	d, err := dump.NewDumper(e.Binary, e.Addr, e.User, e.Password)
	if err != nil {
		return fmt.Errorf("mysqldump unavailable: %w", err)
	}
	if d == nil {
		return errors.New("mysqldump path not configured")
	}

	var stderr bytes.Buffer
	d.SetErrOut(&stderr)
	d.SkipMasterData(true)
	d.SetExtraOptions([]string{
		"--skip-no-create-info",
		"--add-drop-table",
		"--complete-insert",
		"--skip-lock-tables",
	})
	d.AddTables(e.Database, tables...)

	if err := d.Dump(w); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("mysqldump failed: %w: %s", err, msg)
		}
		return fmt.Errorf("mysqldump failed: %w", err)
	}
	return nil
}
