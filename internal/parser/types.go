package parser

import "time"

// Kind classifies a dump statement by its leading keywords
type Kind int

const (
	KindOther Kind = iota
	KindCreateTable
	KindDropTable
	KindInsert
)

func (k Kind) String() string {
	switch k {
	case KindCreateTable:
		return "CREATE_TABLE"
	case KindDropTable:
		return "DROP_TABLE"
	case KindInsert:
		return "INSERT"
	default:
		return "OTHER"
	}
}

// Statement is one classified unit of a dump
type Statement struct {
	Raw   string
	Kind  Kind
	Table string // unquoted, without database prefix; empty when not detected
}

// Document holds the statements of one dump, in source order
type Document struct {
	Statements []Statement
	Metadata   Metadata
}

// Metadata contains counters collected while reading a dump
type Metadata struct {
	SourceFile       string
	ParsedAt         time.Time
	Bytes            int64
	StatementCount   int
	CreateTableCount int
	DropTableCount   int
	InsertCount      int
	OtherCount       int
	TablesFound      []string
}

// Raw returns the statement texts in order
func (d *Document) Raw() []string {
	out := make([]string, len(d.Statements))
	for i, s := range d.Statements {
		out[i] = s.Raw
	}
	return out
}
