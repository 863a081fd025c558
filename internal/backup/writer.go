package backup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"tnll-dbtool/pkg/dialect"
	"tnll-dbtool/pkg/version"
)

// WriteStats counts what a manual dump contained
type WriteStats struct {
	Tables int
	Rows   int
}

// Writer serializes the live database into dump text without external tools:
// per table a DROP, the CREATE from introspection and one INSERT per row
type Writer struct {
	db      dialect.Querier
	dialect dialect.Dialect
	logger  *slog.Logger
}

// NewWriter creates a manual dump writer
func NewWriter(db dialect.Querier, d dialect.Dialect, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{db: db, dialect: d, logger: logger}
}

// Write dumps every base table to out
func (w *Writer) Write(ctx context.Context, out io.Writer) (*WriteStats, error) {
	tables, err := w.dialect.ListTables(ctx, w.db)
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriter(out)
	stats := &WriteStats{}

	fmt.Fprintf(bw, "-- TNLL Explore database backup\n")
	fmt.Fprintf(bw, "-- Generated by tnll-dbtool %s on %s\n", version.String(), time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(bw, "-- Dialect: %s\n\n", w.dialect.Name())
	fmt.Fprintf(bw, "%s;\n\n", w.dialect.DisableForeignKeyChecks())

	for _, table := range tables {
		rows, err := w.writeTable(ctx, bw, table)
		if err != nil {
			return nil, err
		}
		stats.Tables++
		stats.Rows += rows
		w.logger.Debug("Dumped table", "table", table, "rows", rows)
	}

	fmt.Fprintf(bw, "%s;\n", w.dialect.EnableForeignKeyChecks())

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write dump: %w", err)
	}
	return stats, nil
}

func (w *Writer) writeTable(ctx context.Context, bw *bufio.Writer, table string) (int, error) {
	ddl, err := w.dialect.ShowCreateTable(ctx, w.db, table)
	if err != nil {
		return 0, err
	}

	quoted := w.dialect.QuoteIdentifier(table)
	fmt.Fprintf(bw, "--\n-- Table structure for %s\n--\n\n", quoted)
	fmt.Fprintf(bw, "%s;\n", w.dialect.DropTable(table))
	fmt.Fprintf(bw, "%s;\n\n", strings.TrimSuffix(strings.TrimSpace(ddl), ";"))

	rows, err := w.db.QueryContext(ctx, "SELECT * FROM "+quoted)
	if err != nil {
		return 0, fmt.Errorf("failed to read rows of %s: %w", table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return 0, fmt.Errorf("failed to read column types of %s: %w", table, err)
	}

	columns := make([]string, len(types))
	for i, ct := range types {
		columns[i] = w.dialect.QuoteIdentifier(ct.Name())
	}
	head := fmt.Sprintf("INSERT INTO %s (%s) VALUES (", quoted, strings.Join(columns, ", "))

	values := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range values {
		ptrs[i] = &values[i]
	}

	count := 0
	formatted := make([]string, len(types))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return count, fmt.Errorf("failed to scan row of %s: %w", table, err)
		}
		if count == 0 {
			fmt.Fprintf(bw, "--\n-- Data for %s\n--\n\n", quoted)
		}
		for i, v := range values {
			formatted[i] = w.formatValue(v, types[i].DatabaseTypeName())
		}
		bw.WriteString(head)
		bw.WriteString(strings.Join(formatted, ", "))
		bw.WriteString(");\n")
		count++
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("failed to read rows of %s: %w", table, err)
	}
	if count > 0 {
		bw.WriteString("\n")
	}

	return count, nil
}

// formatValue renders one scanned value as a SQL literal. Text-protocol
// drivers hand back []byte for every type, so the column type decides
// between a bare number, a hex literal and a quoted string.
func (w *Writer) formatValue(v any, dbType string) string {
	switch val := v.(type) {
	case nil:
		return w.dialect.FormatNull()
	case int64:
		return w.dialect.FormatInt(val)
	case float64:
		return w.dialect.FormatFloat(val)
	case bool:
		return w.dialect.FormatBool(val)
	case time.Time:
		return w.dialect.FormatTimestamp(val)
	case string:
		return w.dialect.FormatString(val)
	case []byte:
		switch {
		case isBinaryType(dbType):
			return w.dialect.FormatBinary(val)
		case isNumericType(dbType) && len(val) > 0:
			return string(val)
		default:
			return w.dialect.FormatString(string(val))
		}
	default:
		return w.dialect.FormatString(fmt.Sprint(val))
	}
}

func isNumericType(dbType string) bool {
	t := strings.ToUpper(dbType)
	t = strings.TrimPrefix(t, "UNSIGNED ")
	switch t {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT",
		"DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL", "YEAR":
		return true
	}
	return false
}

func isBinaryType(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "BINARY", "VARBINARY", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BIT", "GEOMETRY":
		return true
	}
	return false
}
