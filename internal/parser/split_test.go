package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "single statement",
			input: "INSERT INTO users (id) VALUES (1);",
			want:  []string{"INSERT INTO users (id) VALUES (1);"},
		},
		{
			name:  "comments and blank lines are dropped",
			input: "-- MySQL dump 10.13\n\n--\nDROP TABLE IF EXISTS `users`;\n\n   -- indented comment\nCREATE TABLE `users` (id int);\n",
			want:  []string{"DROP TABLE IF EXISTS `users`;", "CREATE TABLE `users` (id int);"},
		},
		{
			name:  "multi-line statement",
			input: "CREATE TABLE `users` (\n  `id` int NOT NULL,\n  PRIMARY KEY (`id`)\n) ENGINE=InnoDB;",
			want:  []string{"CREATE TABLE `users` (\n  `id` int NOT NULL,\n  PRIMARY KEY (`id`)\n) ENGINE=InnoDB;"},
		},
		{
			name:  "semicolon inside single quotes",
			input: "INSERT INTO notes (body) VALUES ('a; b;');\nINSERT INTO notes (body) VALUES ('c');",
			want: []string{
				"INSERT INTO notes (body) VALUES ('a; b;');",
				"INSERT INTO notes (body) VALUES ('c');",
			},
		},
		{
			name:  "string ending a line with semicolon spans lines",
			input: "INSERT INTO notes (body) VALUES ('first;\n-- not a comment\n\nlast');\nSELECT 1;",
			want: []string{
				"INSERT INTO notes (body) VALUES ('first;\n-- not a comment\n\nlast');",
				"SELECT 1;",
			},
		},
		{
			name:  "escaped quote does not close string",
			input: "INSERT INTO t (v) VALUES ('it\\';\n');\nSELECT 2;",
			want: []string{
				"INSERT INTO t (v) VALUES ('it\\';\n');",
				"SELECT 2;",
			},
		},
		{
			name:  "escaped backslash before closing quote",
			input: "INSERT INTO t (v) VALUES ('C:\\\\');\nSELECT 3;",
			want: []string{
				"INSERT INTO t (v) VALUES ('C:\\\\');",
				"SELECT 3;",
			},
		},
		{
			name:  "double quoted string",
			input: "INSERT INTO t (v) VALUES (\"x;\ny\");",
			want:  []string{"INSERT INTO t (v) VALUES (\"x;\ny\");"},
		},
		{
			name:  "doubled single quotes",
			input: "INSERT INTO t (v) VALUES ('it''s;');\nSELECT 4;",
			want: []string{
				"INSERT INTO t (v) VALUES ('it''s;');",
				"SELECT 4;",
			},
		},
		{
			name:  "unterminated trailing statement is kept",
			input: "SELECT 1;\nINSERT INTO t (v) VALUES (1)",
			want:  []string{"SELECT 1;", "INSERT INTO t (v) VALUES (1)"},
		},
		{
			name:  "windows line endings",
			input: "SELECT 1;\r\nSELECT 2;\r\n",
			want:  []string{"SELECT 1;", "SELECT 2;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitStatements(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitStatements() returned %d statements, want %d: %q", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("statement[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitStatements_GeneratedText(t *testing.T) {
	faker := gofakeit.New(42)
	escape := strings.NewReplacer(`\`, `\\`, `'`, `\'`)

	var (
		b    strings.Builder
		want []string
	)
	for i := 0; i < 200; i++ {
		text := faker.Sentence(8)
		switch i % 4 {
		case 0:
			text += ";"
		case 1:
			text = "O'" + text + "; -- x"
		case 2:
			text += "\n;\nnext line"
		case 3:
			text = `C:\` + text
		}
		stmt := fmt.Sprintf("INSERT INTO `articles` (`id`, `body`) VALUES (%d, '%s');", i, escape.Replace(text))
		want = append(want, stmt)
		b.WriteString("-- row\n")
		b.WriteString(stmt)
		b.WriteString("\n")
	}

	got := SplitStatements(b.String())
	if len(got) != len(want) {
		t.Fatalf("SplitStatements() returned %d statements, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statement[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
