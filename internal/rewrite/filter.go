// Package rewrite adapts dump INSERT statements to the live schema and turns
// them into idempotent REPLACE statements.
package rewrite

import (
	"log/slog"
	"regexp"
	"strings"

	"tnll-dbtool/internal/parser"
)

var insertVerbRe = regexp.MustCompile(`(?is)^\s*INSERT(?:\s+(?:LOW_PRIORITY|DELAYED|HIGH_PRIORITY))?(?:\s+IGNORE)?\s+INTO\b`)

// Result is a rewritten statement and what was lost on the way
type Result struct {
	SQL            string
	Table          string
	TableToken     string
	Columns        []string // kept column tokens, nil when the source had no column list
	Rows           []string // kept row tuple bodies, in output form
	DroppedColumns []string
	SkippedRows    int
	Err            error // why the statement was rejected, if it was malformed
}

// RowStatements returns one REPLACE per kept row, for salvaging a statement
// whose multi-row form failed
func (r *Result) RowStatements() []string {
	if len(r.Rows) <= 1 {
		return nil
	}
	out := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, BuildReplace(r.TableToken, r.Columns, []string{row}))
	}
	return out
}

// Filter rewrites INSERT statements against live table columns
type Filter struct {
	logger *slog.Logger
}

// NewFilter creates a filter logging through logger (slog.Default when nil)
func NewFilter(logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{logger: logger}
}

// FilterInsert keeps only the columns of stmt present in live (case-insensitive)
// and converts the verb to REPLACE INTO. It returns false when no column or no
// row survives, or when the VALUES list is malformed, in which case the
// statement must be skipped.
func FilterInsert(stmt string, live []string) (*Result, bool) {
	return NewFilter(nil).FilterInsert(stmt, live)
}

func (f *Filter) FilterInsert(stmt string, live []string) (*Result, bool) {
	ins, err := parser.ParseInsert(stmt)
	if err != nil {
		f.logger.Debug("Unparseable INSERT, rewriting verb only", "error", err)
		return &Result{SQL: ToReplace(stmt), Table: parser.Classify(stmt).Table}, true
	}

	res := &Result{Table: ins.Table, TableToken: ins.TableToken}
	if err := parser.CheckValueSets(ins.Values); err != nil {
		f.logger.Warn("INSERT holds more than its row tuples, skipping",
			"table", ins.Table, "error", err)
		res.Err = err
		return res, false
	}

	rows := parser.ParseValueSets(ins.Values)

	if !ins.HasColumns() {
		res.SQL = ToReplace(stmt)
		res.Rows = rows
		return res, true
	}

	liveSet := make(map[string]bool, len(live))
	for _, col := range live {
		liveSet[strings.ToLower(col)] = true
	}

	var keep []int
	for i, name := range ins.ColumnNames {
		if liveSet[strings.ToLower(name)] {
			keep = append(keep, i)
			res.Columns = append(res.Columns, ins.Columns[i])
		} else {
			res.DroppedColumns = append(res.DroppedColumns, name)
		}
	}

	if len(keep) == 0 {
		f.logger.Warn("No columns of INSERT exist in live table, skipping",
			"table", ins.Table, "columns", ins.ColumnNames)
		return res, false
	}

	if len(keep) == len(ins.Columns) {
		res.SQL = ToReplace(stmt)
		res.Rows = rows
		return res, true
	}

	f.logger.Debug("Dropping columns missing from live table",
		"table", ins.Table, "dropped", res.DroppedColumns)

	for i, row := range rows {
		values := parser.ParseValueSet(row)
		if len(values) != len(ins.Columns) {
			f.logger.Warn("Row value count does not match column count, skipping row",
				"table", ins.Table, "row", i, "values", len(values), "columns", len(ins.Columns))
			res.SkippedRows++
			continue
		}
		kept := make([]string, len(keep))
		for j, idx := range keep {
			kept[j] = values[idx]
		}
		res.Rows = append(res.Rows, strings.Join(kept, ", "))
	}

	if len(res.Rows) == 0 {
		f.logger.Warn("No rows survived column filtering, skipping", "table", ins.Table)
		return res, false
	}

	res.SQL = BuildReplace(ins.TableToken, res.Columns, res.Rows)
	return res, true
}

// ToReplace swaps a leading INSERT [modifiers] [IGNORE] INTO for REPLACE INTO,
// leaving the rest of the statement untouched
func ToReplace(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	loc := insertVerbRe.FindStringIndex(stmt)
	if loc == nil {
		return stmt
	}
	return "REPLACE INTO" + stmt[loc[1]:]
}

// BuildReplace emits REPLACE INTO table (cols) VALUES (row), (row);
// columns may be nil to omit the column list
func BuildReplace(table string, columns, rows []string) string {
	var b strings.Builder
	b.WriteString("REPLACE INTO ")
	b.WriteString(table)
	if len(columns) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(columns, ", "))
		b.WriteString(")")
	}
	b.WriteString(" VALUES ")
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(row)
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String()
}
