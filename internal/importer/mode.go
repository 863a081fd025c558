package importer

import (
	"context"
	"fmt"
	"strings"
)

// Mode selects how a dump is replayed
type Mode int

const (
	// ModeFull drops and recreates every table in the dump
	ModeFull Mode = iota
	// ModeDataOnly merges rows into the existing schema
	ModeDataOnly
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeDataOnly:
		return "data"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "full" and "data" (or "data-only")
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return ModeFull, nil
	case "data", "data-only", "data_only":
		return ModeDataOnly, nil
	default:
		return 0, fmt.Errorf("unknown import mode: %q", s)
	}
}

// Report carries the result of whichever mode ran
type Report struct {
	Mode Mode
	Full *FullResult
	Data *DataResult
}

func (r *Report) Summary() string {
	switch r.Mode {
	case ModeFull:
		if r.Full != nil {
			return r.Full.Summary()
		}
	case ModeDataOnly:
		if r.Data != nil {
			return r.Data.Summary()
		}
	}
	return r.Mode.String() + " import"
}

// Run dispatches to ImportSQL or ImportSQLDataOnly
func (imp *Importer) Run(ctx context.Context, mode Mode, path string, opts DataOptions) (*Report, error) {
	report := &Report{Mode: mode}

	switch mode {
	case ModeFull:
		res, err := imp.ImportSQL(ctx, path)
		report.Full = res
		return report, err
	case ModeDataOnly:
		res, err := imp.ImportSQLDataOnly(ctx, path, opts)
		report.Data = res
		return report, err
	default:
		return nil, fmt.Errorf("unsupported import mode: %s", mode)
	}
}
