package parser

import (
	"errors"
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  Kind
		wantTable string
	}{
		{"insert with backticks", "INSERT INTO `users` (`id`) VALUES (1);", KindInsert, "users"},
		{"insert lowercase", "insert into users values (1);", KindInsert, "users"},
		{"insert ignore", "INSERT IGNORE INTO `jobs` VALUES (1);", KindInsert, "jobs"},
		{"replace", "REPLACE INTO bookings (id) VALUES (1);", KindInsert, "bookings"},
		{"qualified table", "INSERT INTO `tnll`.`flora` VALUES (1);", KindInsert, "flora"},
		{"create table", "CREATE TABLE `destinations` (\n id int\n);", KindCreateTable, "destinations"},
		{"create table if not exists", "CREATE TABLE IF NOT EXISTS fauna (id int);", KindCreateTable, "fauna"},
		{"drop table", "DROP TABLE IF EXISTS `articles`;", KindDropTable, "articles"},
		{"set statement", "SET FOREIGN_KEY_CHECKS=0;", KindOther, ""},
		{"conditional comment", "/*!40101 SET NAMES utf8mb4 */;", KindOther, ""},
		{"lock tables", "LOCK TABLES `users` WRITE;", KindOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := Classify(tt.raw)
			if stmt.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", stmt.Kind, tt.wantKind)
			}
			if stmt.Table != tt.wantTable {
				t.Errorf("Table = %q, want %q", stmt.Table, tt.wantTable)
			}
		})
	}
}

func TestParseInsert(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantVerb    string
		wantTable   string
		wantColumns []string
		wantNames   []string
		wantValues  string
	}{
		{
			name:        "column list",
			raw:         "INSERT INTO `users` (`id`, `name`, `email`) VALUES (1,'Alice','a@x.io'),(2,'Bob','b@x.io');",
			wantVerb:    "INSERT INTO",
			wantTable:   "users",
			wantColumns: []string{"`id`", "`name`", "`email`"},
			wantNames:   []string{"id", "name", "email"},
			wantValues:  "(1,'Alice','a@x.io'),(2,'Bob','b@x.io')",
		},
		{
			name:       "no column list",
			raw:        "INSERT INTO users VALUES (1,'Alice');",
			wantVerb:   "INSERT INTO",
			wantTable:  "users",
			wantValues: "(1,'Alice')",
		},
		{
			name:        "no space before column list",
			raw:         "insert into flora(id,name) values(3,'Fern')",
			wantVerb:    "insert into",
			wantTable:   "flora",
			wantColumns: []string{"id", "name"},
			wantNames:   []string{"id", "name"},
			wantValues:  "(3,'Fern')",
		},
		{
			name:        "column name with comma in backticks",
			raw:         "INSERT INTO t (`a,b`, c) VALUE (1, 2);",
			wantVerb:    "INSERT INTO",
			wantTable:   "t",
			wantColumns: []string{"`a,b`", "c"},
			wantNames:   []string{"a,b", "c"},
			wantValues:  "(1, 2)",
		},
		{
			name:       "replace verb",
			raw:        "REPLACE INTO `db`.`t` VALUES (1);",
			wantVerb:   "REPLACE INTO",
			wantTable:  "t",
			wantValues: "(1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins, err := ParseInsert(tt.raw)
			if err != nil {
				t.Fatalf("ParseInsert() error = %v", err)
			}
			if ins.Verb != tt.wantVerb {
				t.Errorf("Verb = %q, want %q", ins.Verb, tt.wantVerb)
			}
			if ins.Table != tt.wantTable {
				t.Errorf("Table = %q, want %q", ins.Table, tt.wantTable)
			}
			if !reflect.DeepEqual(ins.Columns, tt.wantColumns) {
				t.Errorf("Columns = %q, want %q", ins.Columns, tt.wantColumns)
			}
			if !reflect.DeepEqual(ins.ColumnNames, tt.wantNames) {
				t.Errorf("ColumnNames = %q, want %q", ins.ColumnNames, tt.wantNames)
			}
			if ins.HasColumns() != (len(tt.wantColumns) > 0) {
				t.Errorf("HasColumns() = %v", ins.HasColumns())
			}
			if ins.Values != tt.wantValues {
				t.Errorf("Values = %q, want %q", ins.Values, tt.wantValues)
			}
		})
	}
}

func TestParseInsert_Errors(t *testing.T) {
	if _, err := ParseInsert("SELECT 1;"); !errors.Is(err, ErrNotInsert) {
		t.Errorf("ParseInsert(SELECT) error = %v, want ErrNotInsert", err)
	}
	if _, err := ParseInsert("INSERT INTO t (a, b VALUES (1, 2);"); err == nil {
		t.Error("expected error for unterminated column list")
	}
	if _, err := ParseInsert("INSERT INTO t SELECT * FROM u;"); err == nil {
		t.Error("expected error for INSERT without VALUES")
	}
}

func TestUnquoteIdentifier(t *testing.T) {
	tests := map[string]string{
		"`users`":    "users",
		`"users"`:    "users",
		"users":      "users",
		"`we``ird`":  "we`ird",
		" `padded` ": "padded",
		"`":          "`",
	}
	for in, want := range tests {
		if got := UnquoteIdentifier(in); got != want {
			t.Errorf("UnquoteIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}
