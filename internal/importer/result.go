package importer

import (
	"fmt"
	"time"
)

// FullResult summarizes a full-schema import
type FullResult struct {
	TablesProcessed    int
	Tables             []string
	StatementsExecuted int
	StatementsSkipped  int
	MigrationOutput    string
	Duration           time.Duration
}

func (r *FullResult) Summary() string {
	return fmt.Sprintf("%d tables restored, %d statements executed, %d skipped in %s",
		r.TablesProcessed, r.StatementsExecuted, r.StatementsSkipped, r.Duration.Round(time.Millisecond))
}

// DataResult summarizes a data-only import. Inserted counts statements that
// wrote at least one row; Skipped counts skipped statements and rows,
// including every statement that is not an INSERT.
type DataResult struct {
	Inserted       int
	RowsInserted   int
	Skipped        int
	Errors         []string
	ClearedTables  []string
	DroppedColumns map[string][]string
	Duration       time.Duration
}

func (r *DataResult) Summary() string {
	return fmt.Sprintf("%d statements (%d rows) inserted, %d skipped, %d errors in %s",
		r.Inserted, r.RowsInserted, r.Skipped, len(r.Errors), r.Duration.Round(time.Millisecond))
}

func (r *DataResult) addDropped(table string, columns []string) {
	if len(columns) == 0 {
		return
	}
	if r.DroppedColumns == nil {
		r.DroppedColumns = make(map[string][]string)
	}
	seen := make(map[string]bool, len(r.DroppedColumns[table]))
	for _, col := range r.DroppedColumns[table] {
		seen[col] = true
	}
	for _, col := range columns {
		if !seen[col] {
			r.DroppedColumns[table] = append(r.DroppedColumns[table], col)
			seen[col] = true
		}
	}
}
