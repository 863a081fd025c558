package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotInsert is returned by ParseInsert for statements that are not INSERT/REPLACE
var ErrNotInsert = errors.New("not an INSERT statement")

const (
	identPattern     = "(?:`[^`]+`|\"[^\"]+\"|[\\w$]+)"
	qualifiedPattern = identPattern + `(?:\s*\.\s*` + identPattern + `)?`
)

var (
	identRe       = regexp.MustCompile(identPattern)
	insertHeadRe  = regexp.MustCompile(`(?is)^(INSERT(?:\s+(?:LOW_PRIORITY|DELAYED|HIGH_PRIORITY))?(?:\s+IGNORE)?\s+INTO|REPLACE(?:\s+(?:LOW_PRIORITY|DELAYED))?\s+INTO)\s+(` + qualifiedPattern + `)`)
	createTableRe = regexp.MustCompile(`(?is)^CREATE\s+(?:TEMPORARY\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?(` + qualifiedPattern + `)`)
	dropTableRe   = regexp.MustCompile(`(?is)^DROP\s+(?:TEMPORARY\s+)?TABLE\s+(?:IF\s+EXISTS\s+)?(` + qualifiedPattern + `)`)
	valuesRe      = regexp.MustCompile(`(?is)^VALUES?\b`)
)

// Insert is the decomposed head of an INSERT statement. Tokens keep the
// quoting they had in the source; the *Name fields are unquoted.
type Insert struct {
	Verb        string
	TableToken  string
	Table       string
	Columns     []string
	ColumnNames []string
	Values      string // everything after VALUES, without the terminating ';'
}

// HasColumns reports whether the statement carried an explicit column list
func (i *Insert) HasColumns() bool {
	return len(i.Columns) > 0
}

// Classify inspects the head of a statement and returns its kind and target table
func Classify(raw string) Statement {
	raw = strings.TrimSpace(raw)
	stmt := Statement{Raw: raw, Kind: KindOther}

	if m := insertHeadRe.FindStringSubmatch(raw); m != nil {
		stmt.Kind = KindInsert
		stmt.Table = TableName(m[2])
	} else if m := createTableRe.FindStringSubmatch(raw); m != nil {
		stmt.Kind = KindCreateTable
		stmt.Table = TableName(m[1])
	} else if m := dropTableRe.FindStringSubmatch(raw); m != nil {
		stmt.Kind = KindDropTable
		stmt.Table = TableName(m[1])
	}

	return stmt
}

// ParseInsert splits an INSERT statement into verb, table, column list and VALUES tail
func ParseInsert(raw string) (*Insert, error) {
	raw = strings.TrimSpace(raw)
	m := insertHeadRe.FindStringSubmatchIndex(raw)
	if m == nil {
		return nil, ErrNotInsert
	}

	ins := &Insert{
		Verb:       raw[m[2]:m[3]],
		TableToken: raw[m[4]:m[5]],
	}
	ins.Table = TableName(ins.TableToken)

	rest := strings.TrimSpace(raw[m[1]:])
	if strings.HasPrefix(rest, "(") {
		end := closingParen(rest)
		if end < 0 {
			return nil, fmt.Errorf("unterminated column list in INSERT into %s", ins.Table)
		}
		for _, col := range splitColumns(rest[1:end]) {
			ins.Columns = append(ins.Columns, col)
			ins.ColumnNames = append(ins.ColumnNames, UnquoteIdentifier(col))
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	loc := valuesRe.FindStringIndex(rest)
	if loc == nil {
		return nil, fmt.Errorf("no VALUES clause in INSERT into %s", ins.Table)
	}

	tail := strings.TrimSpace(rest[loc[1]:])
	ins.Values = strings.TrimSpace(strings.TrimSuffix(tail, ";"))
	return ins, nil
}

// TableName returns the unquoted table part of a possibly database-qualified name
func TableName(qualified string) string {
	parts := identRe.FindAllString(qualified, -1)
	if len(parts) == 0 {
		return ""
	}
	return UnquoteIdentifier(parts[len(parts)-1])
}

// UnquoteIdentifier strips backtick or double-quote identifier quoting
func UnquoteIdentifier(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= 2 {
		switch {
		case token[0] == '`' && token[len(token)-1] == '`':
			return strings.ReplaceAll(token[1:len(token)-1], "``", "`")
		case token[0] == '"' && token[len(token)-1] == '"':
			return strings.ReplaceAll(token[1:len(token)-1], `""`, `"`)
		}
	}
	return token
}

// closingParen returns the index of the ')' matching the '(' at s[0], or -1
func closingParen(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '`', '"', '\'':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitColumns splits a column list on commas outside identifier quotes
func splitColumns(list string) []string {
	var (
		cols    []string
		current strings.Builder
		quote   byte
	)
	flush := func() {
		if col := strings.TrimSpace(current.String()); col != "" {
			cols = append(cols, col)
		}
		current.Reset()
	}

	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			current.WriteByte(c)
		case c == '`' || c == '"':
			quote = c
			current.WriteByte(c)
		case c == ',':
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()

	return cols
}
