package importer

import (
	"context"
	"database/sql"
	"reflect"
	"strings"
	"testing"
)

const dataDump = "CREATE TABLE `users` (`id` INTEGER PRIMARY KEY, `name` TEXT);\n" +
	"INSERT INTO `users` (`id`, `name`, `legacy_col`) VALUES (1,'Alice','x'),(2,'Bob','y');\n" +
	"INSERT INTO `migrations` VALUES (1,'2024_01_01_000000_create_users_table',1);\n" +
	"INSERT INTO `sessions` VALUES ('abc',1);\n" +
	"INSERT INTO `bookings` (`id`) VALUES (1);\n" +
	"INSERT INTO `users` (`legacy_col`) VALUES ('z');\n" +
	"INSERT INTO `users` VALUES (3,'Carol','carol@tnll.test');\n"

func setupDataSchema(t *testing.T, db *sql.DB, imp *Importer) {
	t.Helper()

	execAll(t, db,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT)",
		imp.dialect.MigrationsTableDDL("migrations"),
		"CREATE TABLE sessions (id TEXT PRIMARY KEY, last_activity INTEGER)",
	)
}

func TestImportSQLDataOnly_MergesIntoLiveSchema(t *testing.T) {
	ctx := context.Background()
	imp, db := newTestImporter(t, nil)
	setupDataSchema(t, db, imp)
	path := writeDump(t, dataDump)

	first, err := imp.ImportSQLDataOnly(ctx, path, DataOptions{})
	if err != nil {
		t.Fatalf("ImportSQLDataOnly() error = %v", err)
	}

	if first.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", first.Inserted)
	}
	if first.RowsInserted != 3 {
		t.Errorf("RowsInserted = %d, want 3", first.RowsInserted)
	}
	// one CREATE, the migrations and sessions rows, the missing bookings
	// table and the legacy-only users insert
	if first.Skipped != 5 {
		t.Errorf("Skipped = %d, want 5", first.Skipped)
	}
	if len(first.Errors) != 0 {
		t.Errorf("Errors = %v, want none", first.Errors)
	}
	if want := map[string][]string{"users": {"legacy_col"}}; !reflect.DeepEqual(first.DroppedColumns, want) {
		t.Errorf("DroppedColumns = %v, want %v", first.DroppedColumns, want)
	}

	var name string
	var email sql.NullString
	if err := db.QueryRow("SELECT name, email FROM users WHERE id = 1").Scan(&name, &email); err != nil {
		t.Fatalf("failed to read merged row: %v", err)
	}
	if name != "Alice" || email.Valid {
		t.Errorf("row 1 = (%q, %v), want (Alice, NULL)", name, email)
	}
	if got := countRows(t, db, "migrations"); got != 0 {
		t.Errorf("migrations rows = %d, want 0", got)
	}
	if got := countRows(t, db, "sessions"); got != 0 {
		t.Errorf("sessions rows = %d, want 0", got)
	}

	// Replaying the same dump is idempotent
	second, err := imp.ImportSQLDataOnly(ctx, path, DataOptions{})
	if err != nil {
		t.Fatalf("second ImportSQLDataOnly() error = %v", err)
	}
	if len(second.Errors) != 0 {
		t.Errorf("second run Errors = %v, want none", second.Errors)
	}
	if second.Inserted != first.Inserted || second.RowsInserted != first.RowsInserted || second.Skipped != first.Skipped {
		t.Errorf("second run = %+v, want same counters as %+v", second, first)
	}
	if got := countRows(t, db, "users"); got != 3 {
		t.Errorf("users rows = %d, want 3", got)
	}
}

func TestImportSQLDataOnly_ClearExisting(t *testing.T) {
	ctx := context.Background()
	imp, db := newTestImporter(t, nil)
	setupDataSchema(t, db, imp)
	execAll(t, db, "INSERT INTO users VALUES (99, 'Old', NULL)")

	result, err := imp.ImportSQLDataOnly(ctx, writeDump(t, dataDump), DataOptions{ClearExisting: true})
	if err != nil {
		t.Fatalf("ImportSQLDataOnly() error = %v", err)
	}

	if want := []string{"users"}; !reflect.DeepEqual(result.ClearedTables, want) {
		t.Errorf("ClearedTables = %v, want %v", result.ClearedTables, want)
	}
	if got := countRows(t, db, "users"); got != 3 {
		t.Errorf("users rows = %d, want 3", got)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE id = 99").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("row 99 survived ClearExisting")
	}
}

func TestImportSQLDataOnly_SalvagesRows(t *testing.T) {
	ctx := context.Background()
	imp, db := newTestImporter(t, nil)
	execAll(t, db, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT CHECK (name <> 'bad'))")

	dump := "INSERT INTO `users` (`id`, `name`) VALUES (1,'ok'),(2,'bad'),(3,'fine');\n"
	result, err := imp.ImportSQLDataOnly(ctx, writeDump(t, dump), DataOptions{})
	if err != nil {
		t.Fatalf("ImportSQLDataOnly() error = %v", err)
	}

	if result.Inserted != 1 || result.RowsInserted != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 1 statement, 2 rows, 1 skipped", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "1 of 3 rows rejected") {
		t.Errorf("Errors = %v, want one salvage error", result.Errors)
	}
	if got := countRows(t, db, "users"); got != 2 {
		t.Errorf("users rows = %d, want 2", got)
	}
}

func TestImportSQLDataOnly_SingleRowFailureIsCounted(t *testing.T) {
	ctx := context.Background()
	imp, db := newTestImporter(t, nil)
	execAll(t, db, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT CHECK (name <> 'bad'))")

	dump := "INSERT INTO `users` VALUES (1,'bad');\nINSERT INTO `users` VALUES (2,'good');\n"
	result, err := imp.ImportSQLDataOnly(ctx, writeDump(t, dump), DataOptions{})
	if err != nil {
		t.Fatalf("ImportSQLDataOnly() error = %v", err)
	}
	if result.Inserted != 1 || result.Skipped != 1 || len(result.Errors) != 1 {
		t.Errorf("result = %+v, want 1 inserted, 1 skipped, 1 error", result)
	}
	if !strings.HasPrefix(result.Errors[0], "users: ") {
		t.Errorf("Errors[0] = %q, want table prefix", result.Errors[0])
	}
}

func TestImportSQLDataOnly_CancelledContext(t *testing.T) {
	imp, db := newTestImporter(t, nil)
	setupDataSchema(t, db, imp)
	path := writeDump(t, dataDump)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := imp.ImportSQLDataOnly(ctx, path, DataOptions{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if got := countRows(t, db, "users"); got != 0 {
		t.Errorf("users rows = %d, want 0", got)
	}
}
