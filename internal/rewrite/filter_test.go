package rewrite

import (
	"reflect"
	"testing"
)

func TestFilterInsert(t *testing.T) {
	tests := []struct {
		name        string
		stmt        string
		live        []string
		want        string
		wantOK      bool
		wantDropped []string
		wantSkipped int
		wantErr     bool
	}{
		{
			name:        "drops column missing from live table",
			stmt:        "INSERT INTO table (id, name, legacy_col) VALUES (1, 'Alice', 'x');",
			live:        []string{"id", "name"},
			want:        "REPLACE INTO table (id, name) VALUES (1, 'Alice');",
			wantOK:      true,
			wantDropped: []string{"legacy_col"},
		},
		{
			name:        "no surviving columns",
			stmt:        "INSERT INTO `users` (`legacy_a`, `legacy_b`) VALUES (1,2);",
			live:        []string{"id", "name"},
			wantOK:      false,
			wantDropped: []string{"legacy_a", "legacy_b"},
		},
		{
			name:   "all columns kept rewrites verb only",
			stmt:   "INSERT INTO `users` (`id`,`name`) VALUES (1,'Alice'),(2,'Bob');",
			live:   []string{"ID", "Name"},
			want:   "REPLACE INTO `users` (`id`,`name`) VALUES (1,'Alice'),(2,'Bob');",
			wantOK: true,
		},
		{
			name:   "no column list rewrites verb only",
			stmt:   "INSERT IGNORE INTO users VALUES (1,'Alice');",
			live:   []string{"id"},
			want:   "REPLACE INTO users VALUES (1,'Alice');",
			wantOK: true,
		},
		{
			name:        "case-insensitive match keeps source tokens",
			stmt:        "INSERT INTO `flora` (`ID`,`Species`,`old_habitat`) VALUES (1,'Lotus','pond'),(2,'Bamboo, giant','forest');",
			live:        []string{"id", "species"},
			want:        "REPLACE INTO `flora` (`ID`, `Species`) VALUES (1, 'Lotus'), (2, 'Bamboo, giant');",
			wantOK:      true,
			wantDropped: []string{"old_habitat"},
		},
		{
			name:        "malformed row skipped individually",
			stmt:        "INSERT INTO t (a, b, c) VALUES (1, 2, 3), (4, 5), (7, 8, 9);",
			live:        []string{"a", "c"},
			want:        "REPLACE INTO t (a, c) VALUES (1, 3), (7, 9);",
			wantOK:      true,
			wantDropped: []string{"b"},
			wantSkipped: 1,
		},
		{
			name:        "every row malformed",
			stmt:        "INSERT INTO t (a, b) VALUES (1), (2);",
			live:        []string{"a"},
			wantOK:      false,
			wantDropped: []string{"b"},
			wantSkipped: 2,
		},
		{
			name: "string swallowing the following statements is rejected",
			stmt: "INSERT INTO `files` (`path`) VALUES ('C:\\dir\\');\n" +
				"DROP TABLE \"flora\";\n" +
				"INSERT INTO \"flora\" VALUES (1, 'Lotus');",
			live:    []string{"path"},
			wantOK:  false,
			wantErr: true,
		},
		{
			name:   "unparseable insert falls back to verb rewrite",
			stmt:   "INSERT INTO t SELECT * FROM u;",
			live:   []string{"a"},
			want:   "REPLACE INTO t SELECT * FROM u;",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := FilterInsert(tt.stmt, tt.live)
			if ok != tt.wantOK {
				t.Fatalf("FilterInsert() ok = %v, want %v", ok, tt.wantOK)
			}
			if res == nil {
				t.Fatal("FilterInsert() returned nil result")
			}
			if ok && res.SQL != tt.want {
				t.Errorf("SQL = %q, want %q", res.SQL, tt.want)
			}
			if !reflect.DeepEqual(res.DroppedColumns, tt.wantDropped) {
				t.Errorf("DroppedColumns = %v, want %v", res.DroppedColumns, tt.wantDropped)
			}
			if res.SkippedRows != tt.wantSkipped {
				t.Errorf("SkippedRows = %d, want %d", res.SkippedRows, tt.wantSkipped)
			}
			if (res.Err != nil) != tt.wantErr {
				t.Errorf("Err = %v, wantErr %v", res.Err, tt.wantErr)
			}
		})
	}
}

func TestToReplace(t *testing.T) {
	tests := map[string]string{
		"INSERT INTO t VALUES (1);":                     "REPLACE INTO t VALUES (1);",
		"insert ignore into t values (1);":              "REPLACE INTO t values (1);",
		"INSERT LOW_PRIORITY IGNORE INTO t VALUES (1);": "REPLACE INTO t VALUES (1);",
		"REPLACE INTO t VALUES (1);":                    "REPLACE INTO t VALUES (1);",
		"  INSERT INTO t VALUES ('INSERT INTO');":       "REPLACE INTO t VALUES ('INSERT INTO');",
	}
	for in, want := range tests {
		if got := ToReplace(in); got != want {
			t.Errorf("ToReplace(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResult_RowStatements(t *testing.T) {
	res, ok := FilterInsert("INSERT INTO `users` (`id`,`name`,`nickname`) VALUES (1,'Alice','al'),(2,'Bob','bo');", []string{"id", "name"})
	if !ok {
		t.Fatal("FilterInsert() ok = false")
	}

	want := []string{
		"REPLACE INTO `users` (`id`, `name`) VALUES (1, 'Alice');",
		"REPLACE INTO `users` (`id`, `name`) VALUES (2, 'Bob');",
	}
	if got := res.RowStatements(); !reflect.DeepEqual(got, want) {
		t.Errorf("RowStatements() = %q, want %q", got, want)
	}

	single, _ := FilterInsert("INSERT INTO users VALUES (1);", nil)
	if got := single.RowStatements(); got != nil {
		t.Errorf("RowStatements() for one row = %q, want nil", got)
	}
}

func TestBuildReplace(t *testing.T) {
	got := BuildReplace("`t`", nil, []string{"1, 'a'", "2, 'b'"})
	want := "REPLACE INTO `t` VALUES (1, 'a'), (2, 'b');"
	if got != want {
		t.Errorf("BuildReplace() = %q, want %q", got, want)
	}
}
