package parser

import "strings"

// SplitStatements splits a multi-statement SQL text into individual statements.
//
// The text is consumed line by line. Blank lines and "--" comment lines are
// dropped unless they sit inside an open string literal. The quote state
// ('single' or "double") carries across lines, and a backslash inside a
// string escapes the character after it. A statement ends on a line whose last
// non-whitespace character is ';' while no string is open. Text left over at
// the end of input is returned as a final statement.
func SplitStatements(text string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      byte
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)

		if quote == 0 && (trimmed == "" || strings.HasPrefix(trimmed, "--")) {
			continue
		}

		quote = scanQuotes(line, quote)

		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)

		if quote == 0 && strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}

	return statements
}

// scanQuotes walks one line and returns the quote state at its end.
// quote is 0 when outside a string, otherwise the opening quote character.
func scanQuotes(line string, quote byte) byte {
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
		}
	}
	return quote
}
