package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrMalformedValues is returned by CheckValueSets
var ErrMalformedValues = errors.New("malformed VALUES list")

// ParseValueSets splits the tail of an INSERT after VALUES, e.g.
// "(1,'a'),(2,'b')", into the bodies of its row tuples: ["1,'a'", "2,'b'"].
// Parentheses inside string literals do not affect nesting.
func ParseValueSets(valuesSection string) []string {
	var (
		sets    []string
		current strings.Builder
		quote   byte
		depth   int
	)

	for i := 0; i < len(valuesSection); i++ {
		char := valuesSection[i]

		if quote != 0 {
			current.WriteByte(char)
			if char == '\\' && i+1 < len(valuesSection) {
				i++
				current.WriteByte(valuesSection[i])
				continue
			}
			if char == quote {
				quote = 0
			}
			continue
		}

		switch {
		case char == '\'' || char == '"':
			quote = char
			current.WriteByte(char)

		case char == '(':
			depth++
			if depth == 1 {
				current.Reset()
				continue
			}
			current.WriteByte(char)

		case char == ')':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				if set := strings.TrimSpace(current.String()); set != "" {
					sets = append(sets, set)
				}
				current.Reset()
				continue
			}
			current.WriteByte(char)

		case char == ',' && depth == 0:
			// separator between tuples

		default:
			if depth > 0 {
				current.WriteByte(char)
			}
		}
	}

	return sets
}

// ParseValueSet splits one tuple body on top-level commas. Tokens keep their
// source form: quoted strings stay quoted, NULL stays NULL.
func ParseValueSet(valueSet string) []string {
	var (
		values  []string
		current strings.Builder
		quote   byte
	)

	for i := 0; i < len(valueSet); i++ {
		char := valueSet[i]

		if quote != 0 {
			current.WriteByte(char)
			if char == '\\' && i+1 < len(valueSet) {
				i++
				current.WriteByte(valueSet[i])
				continue
			}
			if char == quote {
				quote = 0
			}
			continue
		}

		switch char {
		case '\'', '"':
			quote = char
			current.WriteByte(char)
		case ',':
			values = append(values, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(char)
		}
	}

	if last := strings.TrimSpace(current.String()); last != "" {
		values = append(values, last)
	}

	return values
}

// CheckValueSets verifies that valuesSection holds nothing but row tuples
// separated by commas: every string and parenthesis is closed and no text
// sits between tuples. A string that swallowed its closing quote makes the
// following statements look like part of the tuples and fails here.
func CheckValueSets(valuesSection string) error {
	var quote byte
	depth := 0

	for i := 0; i < len(valuesSection); i++ {
		char := valuesSection[i]

		if quote != 0 {
			if char == '\\' {
				i++
				continue
			}
			if char == quote {
				quote = 0
			}
			continue
		}

		switch {
		case char == '\'' || char == '"':
			quote = char
		case char == '(':
			depth++
		case char == ')':
			if depth == 0 {
				return fmt.Errorf("%w: unbalanced ')' at offset %d", ErrMalformedValues, i)
			}
			depth--
		case depth == 0 && char != ',' && !unicode.IsSpace(rune(char)):
			end := min(i+40, len(valuesSection))
			return fmt.Errorf("%w: unexpected %q after row tuples", ErrMalformedValues, valuesSection[i:end])
		}
	}

	switch {
	case quote != 0:
		return fmt.Errorf("%w: unterminated string literal", ErrMalformedValues)
	case depth != 0:
		return fmt.Errorf("%w: unclosed row tuple", ErrMalformedValues)
	}
	return nil
}
