package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ErrTooLarge is returned when a dump exceeds DumpParser.MaxBytes
var ErrTooLarge = errors.New("dump exceeds size limit")

// DumpParser reads mysqldump-style SQL text into a Document
type DumpParser struct {
	// MaxBytes rejects dumps larger than this (0 = no limit)
	MaxBytes int64
}

// NewDumpParser creates a new dump parser
func NewDumpParser() *DumpParser {
	return &DumpParser{}
}

// Parse reads a dump file from disk
func (p *DumpParser) Parse(filename string) (*Document, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump file %s: %w", filename, err)
	}
	defer file.Close()

	doc, err := p.ParseStream(file)
	if err != nil {
		return nil, err
	}

	doc.Metadata.SourceFile = filename
	return doc, nil
}

// ParseStream reads the whole stream into memory and splits it
func (p *DumpParser) ParseStream(r io.Reader) (*Document, error) {
	if p.MaxBytes > 0 {
		r = io.LimitReader(r, p.MaxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading dump: %w", err)
	}
	if p.MaxBytes > 0 && int64(len(data)) > p.MaxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, p.MaxBytes)
	}

	doc := p.ParseString(string(data))
	doc.Metadata.Bytes = int64(len(data))
	return doc, nil
}

// ParseString splits and classifies an in-memory dump
func (p *DumpParser) ParseString(text string) *Document {
	doc := &Document{
		Metadata: Metadata{
			ParsedAt:    time.Now(),
			TablesFound: make([]string, 0),
		},
	}

	seen := make(map[string]bool)
	for _, raw := range SplitStatements(text) {
		stmt := Classify(raw)
		doc.Statements = append(doc.Statements, stmt)

		switch stmt.Kind {
		case KindCreateTable:
			doc.Metadata.CreateTableCount++
		case KindDropTable:
			doc.Metadata.DropTableCount++
		case KindInsert:
			doc.Metadata.InsertCount++
		default:
			doc.Metadata.OtherCount++
		}

		if stmt.Table != "" && !seen[strings.ToLower(stmt.Table)] {
			seen[strings.ToLower(stmt.Table)] = true
			doc.Metadata.TablesFound = append(doc.Metadata.TablesFound, stmt.Table)
		}
	}

	doc.Metadata.StatementCount = len(doc.Statements)
	return doc
}
