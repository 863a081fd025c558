// Package sampledump writes a seeded, fake TNLL database as a SQL dump that
// both the full and data-only import paths can replay.
package sampledump

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/crypto/bcrypt"

	"tnll-dbtool/pkg/dialect"
)

// SamplePassword is the cleartext behind every generated user's hash
const SamplePassword = "password"

const (
	defaultDestinations  = 12
	defaultFloraPer      = 4
	defaultFaunaPer      = 4
	defaultArticles      = 20
	defaultUsers         = 25
	defaultBookings      = 60
	defaultRowsPerInsert = 25
	maxMonthsBack        = 24
)

// Options sizes the generated data. Zero values fall back to defaults; a zero
// Seed is replaced by one derived from Now and reported in the dump header.
type Options struct {
	Seed                uint64
	Destinations        int
	FloraPerDestination int
	FaunaPerDestination int
	Articles            int
	Users               int
	Bookings            int
	RowsPerInsert       int
	Now                 time.Time
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Destinations <= 0 {
		out.Destinations = defaultDestinations
	}
	if out.FloraPerDestination <= 0 {
		out.FloraPerDestination = defaultFloraPer
	}
	if out.FaunaPerDestination <= 0 {
		out.FaunaPerDestination = defaultFaunaPer
	}
	if out.Articles <= 0 {
		out.Articles = defaultArticles
	}
	if out.Users <= 0 {
		out.Users = defaultUsers
	}
	if out.Bookings <= 0 {
		out.Bookings = defaultBookings
	}
	if out.RowsPerInsert <= 0 {
		out.RowsPerInsert = defaultRowsPerInsert
	}
	if out.Now.IsZero() {
		out.Now = time.Now()
	}
	if out.Seed == 0 {
		out.Seed = uint64(out.Now.UnixNano())
	}
	return out
}

// Stats counts what Write produced
type Stats struct {
	Tables []string
	Rows   map[string]int
}

// TotalRows sums Rows over all tables
func (s *Stats) TotalRows() int {
	total := 0
	for _, n := range s.Rows {
		total += n
	}
	return total
}

type column struct {
	name string
	ddl  string
}

type table struct {
	name    string
	columns []column
	rows    [][]string
}

// Generator renders sample data for one dialect
type Generator struct {
	dialect dialect.Dialect
	opts    Options
	faker   *gofakeit.Faker
}

// New creates a generator; identical Seed and Now produce identical data
// apart from bcrypt salts.
func New(d dialect.Dialect, opts Options) *Generator {
	opts = opts.withDefaults()
	return &Generator{
		dialect: d,
		opts:    opts,
		faker:   gofakeit.New(opts.Seed),
	}
}

// Write emits the schema followed by batched multi-row INSERTs
func (g *Generator) Write(w io.Writer) (*Stats, error) {
	tables, err := g.generate()
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriter(w)
	stats := &Stats{Rows: make(map[string]int, len(tables))}

	fmt.Fprintf(bw, "-- TNLL sample dump (%s)\n", g.dialect.Name())
	fmt.Fprintf(bw, "-- Seed: %d\n", g.opts.Seed)
	fmt.Fprintf(bw, "-- Generated: %s\n\n", g.opts.Now.UTC().Format(time.RFC3339))
	fmt.Fprintf(bw, "%s;\n\n", g.dialect.DisableForeignKeyChecks())

	fmt.Fprintf(bw, "%s;\n", g.dialect.DropTable("migrations"))
	fmt.Fprintf(bw, "%s;\n\n", g.dialect.MigrationsTableDDL("migrations"))
	migrations := g.migrations()
	g.writeInserts(bw, migrations)
	stats.Tables = append(stats.Tables, migrations.name)
	stats.Rows[migrations.name] = len(migrations.rows)

	for _, t := range tables {
		fmt.Fprintf(bw, "--\n-- Table structure for table %s\n--\n\n", t.name)
		fmt.Fprintf(bw, "%s;\n", g.dialect.DropTable(t.name))
		fmt.Fprintf(bw, "%s;\n\n", g.createTable(t))
		fmt.Fprintf(bw, "--\n-- Dumping data for table %s\n--\n\n", t.name)
		g.writeInserts(bw, t)

		stats.Tables = append(stats.Tables, t.name)
		stats.Rows[t.name] = len(t.rows)
	}

	fmt.Fprintf(bw, "%s;\n", g.dialect.EnableForeignKeyChecks())

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write sample dump: %w", err)
	}
	return stats, nil
}

func (g *Generator) createTable(t table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", g.dialect.QuoteIdentifier(t.name))
	for i, col := range t.columns {
		fmt.Fprintf(&b, "  %s %s", g.dialect.QuoteIdentifier(col.name), col.ddl)
		if i < len(t.columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	if g.dialect.Name() == "mysql" {
		b.WriteString(" ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
	}
	return b.String()
}

func (g *Generator) writeInserts(bw *bufio.Writer, t table) {
	if len(t.rows) == 0 {
		return
	}

	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = g.dialect.QuoteIdentifier(col.name)
	}
	head := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", g.dialect.QuoteIdentifier(t.name), strings.Join(names, ", "))

	for start := 0; start < len(t.rows); start += g.opts.RowsPerInsert {
		end := min(start+g.opts.RowsPerInsert, len(t.rows))
		tuples := make([]string, 0, end-start)
		for _, row := range t.rows[start:end] {
			tuples = append(tuples, "("+strings.Join(row, ",")+")")
		}
		bw.WriteString(head)
		bw.WriteString(strings.Join(tuples, ","))
		bw.WriteString(";\n")
	}
	bw.WriteString("\n")
}

func (g *Generator) migrations() table {
	names := []string{
		"0001_01_01_000000_create_users_table",
		"2025_03_10_120000_create_destinations_table",
		"2025_03_10_120100_create_flora_table",
		"2025_03_10_120200_create_fauna_table",
		"2025_04_02_090000_create_articles_table",
		"2025_05_18_140000_create_bookings_table",
	}
	t := table{
		name:    "migrations",
		columns: []column{{name: "id"}, {name: "migration"}, {name: "batch"}},
	}
	for i, name := range names {
		t.rows = append(t.rows, []string{
			g.dialect.FormatInt(int64(i + 1)),
			g.dialect.FormatString(name),
			g.dialect.FormatInt(1),
		})
	}
	return t
}

func (g *Generator) generate() ([]table, error) {
	destinations, slugs := g.destinations()
	users, err := g.users()
	if err != nil {
		return nil, err
	}
	return []table{
		destinations,
		g.flora(),
		g.fauna(),
		users,
		g.articles(slugs),
		g.bookings(),
	}, nil
}

func (g *Generator) timestamps() (string, string) {
	created := g.faker.DateRange(g.opts.Now.AddDate(0, -maxMonthsBack, 0), g.opts.Now)
	updated := created
	if g.faker.Bool() {
		updated = g.faker.DateRange(created, g.opts.Now)
	}
	return g.dialect.FormatTimestamp(created), g.dialect.FormatTimestamp(updated)
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (g *Generator) destinations() (table, []string) {
	d := g.dialect
	t := table{
		name: "destinations",
		columns: []column{
			{"id", "INTEGER NOT NULL PRIMARY KEY"},
			{"name", "VARCHAR(255) NOT NULL"},
			{"slug", "VARCHAR(255) NOT NULL"},
			{"country", "VARCHAR(255) NOT NULL"},
			{"description", "TEXT"},
			{"latitude", "DECIMAL(10,7)"},
			{"longitude", "DECIMAL(10,7)"},
			{"featured", "BOOLEAN NOT NULL DEFAULT 0"},
			{"created_at", "TIMESTAMP NULL"},
			{"updated_at", "TIMESTAMP NULL"},
		},
	}

	slugs := make([]string, 0, g.opts.Destinations)
	for i := 1; i <= g.opts.Destinations; i++ {
		name := g.faker.City()
		slug := fmt.Sprintf("%s-%d", slugify(name), i)
		slugs = append(slugs, slug)

		description := d.FormatNull()
		if g.faker.IntRange(0, 9) > 0 {
			description = d.FormatString(g.faker.Paragraph(1, 3, 12, " "))
		}
		created, updated := g.timestamps()
		t.rows = append(t.rows, []string{
			d.FormatInt(int64(i)),
			d.FormatString(name),
			d.FormatString(slug),
			d.FormatString(g.faker.Country()),
			description,
			d.FormatFloat(roundTo(g.faker.Latitude(), 7)),
			d.FormatFloat(roundTo(g.faker.Longitude(), 7)),
			d.FormatBool(g.faker.IntRange(0, 3) == 0),
			created,
			updated,
		})
	}
	return t, slugs
}

func (g *Generator) flora() table {
	d := g.dialect
	t := table{
		name: "flora",
		columns: []column{
			{"id", "INTEGER NOT NULL PRIMARY KEY"},
			{"destination_id", "INTEGER NOT NULL REFERENCES " + d.QuoteIdentifier("destinations") + " (" + d.QuoteIdentifier("id") + ")"},
			{"common_name", "VARCHAR(255) NOT NULL"},
			{"scientific_name", "VARCHAR(255)"},
			{"description", "TEXT"},
			{"created_at", "TIMESTAMP NULL"},
			{"updated_at", "TIMESTAMP NULL"},
		},
	}

	id := 1
	for dest := 1; dest <= g.opts.Destinations; dest++ {
		for j := 0; j < g.opts.FloraPerDestination; j++ {
			created, updated := g.timestamps()
			t.rows = append(t.rows, []string{
				d.FormatInt(int64(id)),
				d.FormatInt(int64(dest)),
				d.FormatString(titleCase(g.faker.Adjective() + " " + g.faker.NounConcrete())),
				d.FormatString(titleCase(g.faker.Word()) + " " + strings.ToLower(g.faker.Word())),
				d.FormatString(g.faker.Sentence(10)),
				created,
				updated,
			})
			id++
		}
	}
	return t
}

func (g *Generator) fauna() table {
	d := g.dialect
	t := table{
		name: "fauna",
		columns: []column{
			{"id", "INTEGER NOT NULL PRIMARY KEY"},
			{"destination_id", "INTEGER NOT NULL REFERENCES " + d.QuoteIdentifier("destinations") + " (" + d.QuoteIdentifier("id") + ")"},
			{"common_name", "VARCHAR(255) NOT NULL"},
			{"category", "VARCHAR(64) NOT NULL"},
			{"endangered", "BOOLEAN NOT NULL DEFAULT 0"},
			{"description", "TEXT"},
			{"created_at", "TIMESTAMP NULL"},
			{"updated_at", "TIMESTAMP NULL"},
		},
	}

	id := 1
	for dest := 1; dest <= g.opts.Destinations; dest++ {
		for j := 0; j < g.opts.FaunaPerDestination; j++ {
			created, updated := g.timestamps()
			t.rows = append(t.rows, []string{
				d.FormatInt(int64(id)),
				d.FormatInt(int64(dest)),
				d.FormatString(titleCase(g.faker.Animal())),
				d.FormatString(g.faker.AnimalType()),
				d.FormatBool(g.faker.IntRange(0, 4) == 0),
				d.FormatString(g.faker.Sentence(12)),
				created,
				updated,
			})
			id++
		}
	}
	return t
}

func (g *Generator) users() (table, error) {
	d := g.dialect
	t := table{
		name: "users",
		columns: []column{
			{"id", "INTEGER NOT NULL PRIMARY KEY"},
			{"name", "VARCHAR(255) NOT NULL"},
			{"email", "VARCHAR(255) NOT NULL UNIQUE"},
			{"password", "VARCHAR(255) NOT NULL"},
			{"is_admin", "BOOLEAN NOT NULL DEFAULT 0"},
			{"remember_token", "VARCHAR(100)"},
			{"created_at", "TIMESTAMP NULL"},
			{"updated_at", "TIMESTAMP NULL"},
		},
	}

	for i := 1; i <= g.opts.Users; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte(SamplePassword), bcrypt.MinCost)
		if err != nil {
			return table{}, fmt.Errorf("failed to hash sample password: %w", err)
		}

		name := g.faker.Name()
		email := fmt.Sprintf("%s.%d@%s", slugify(name), i, g.faker.DomainName())
		created, updated := g.timestamps()
		t.rows = append(t.rows, []string{
			d.FormatInt(int64(i)),
			d.FormatString(name),
			d.FormatString(email),
			d.FormatString(string(hash)),
			d.FormatBool(i == 1),
			d.FormatNull(),
			created,
			updated,
		})
	}
	return t, nil
}

func (g *Generator) articles(destinationSlugs []string) table {
	d := g.dialect
	t := table{
		name: "articles",
		columns: []column{
			{"id", "INTEGER NOT NULL PRIMARY KEY"},
			{"author_id", "INTEGER NOT NULL REFERENCES " + d.QuoteIdentifier("users") + " (" + d.QuoteIdentifier("id") + ")"},
			{"title", "VARCHAR(255) NOT NULL"},
			{"slug", "VARCHAR(255) NOT NULL"},
			{"body", "TEXT NOT NULL"},
			{"published_at", "TIMESTAMP NULL"},
			{"created_at", "TIMESTAMP NULL"},
			{"updated_at", "TIMESTAMP NULL"},
		},
	}

	for i := 1; i <= g.opts.Articles; i++ {
		title := titleCase(g.faker.Sentence(5))
		title = strings.TrimSuffix(title, ".")
		slug := fmt.Sprintf("%s-%d", slugify(title), i)
		if len(destinationSlugs) > 0 && g.faker.Bool() {
			slug = destinationSlugs[g.faker.IntRange(0, len(destinationSlugs)-1)] + "-guide-" + fmt.Sprint(i)
		}

		published := d.FormatNull()
		if g.faker.IntRange(0, 4) > 0 {
			published = d.FormatTimestamp(g.faker.DateRange(g.opts.Now.AddDate(0, -maxMonthsBack, 0), g.opts.Now))
		}
		created, updated := g.timestamps()
		t.rows = append(t.rows, []string{
			d.FormatInt(int64(i)),
			d.FormatInt(int64(g.faker.IntRange(1, g.opts.Users))),
			d.FormatString(title),
			d.FormatString(slug),
			d.FormatString(g.faker.Paragraph(3, 4, 14, "\n\n")),
			published,
			created,
			updated,
		})
	}
	return t
}

func (g *Generator) bookings() table {
	d := g.dialect
	t := table{
		name: "bookings",
		columns: []column{
			{"id", "INTEGER NOT NULL PRIMARY KEY"},
			{"reference", "CHAR(36) NOT NULL"},
			{"user_id", "INTEGER NOT NULL REFERENCES " + d.QuoteIdentifier("users") + " (" + d.QuoteIdentifier("id") + ")"},
			{"destination_id", "INTEGER NOT NULL REFERENCES " + d.QuoteIdentifier("destinations") + " (" + d.QuoteIdentifier("id") + ")"},
			{"guests", "INTEGER NOT NULL"},
			{"starts_on", "DATE NOT NULL"},
			{"ends_on", "DATE NOT NULL"},
			{"status", "VARCHAR(32) NOT NULL"},
			{"notes", "TEXT"},
			{"created_at", "TIMESTAMP NULL"},
			{"updated_at", "TIMESTAMP NULL"},
		},
	}

	statuses := []string{"pending", "confirmed", "confirmed", "confirmed", "cancelled"}
	for i := 1; i <= g.opts.Bookings; i++ {
		start := g.faker.DateRange(g.opts.Now.AddDate(0, -6, 0), g.opts.Now.AddDate(0, 6, 0))
		end := start.AddDate(0, 0, g.faker.IntRange(1, 14))

		notes := d.FormatNull()
		if g.faker.IntRange(0, 2) == 0 {
			notes = d.FormatString(g.faker.Sentence(8))
		}
		created, updated := g.timestamps()
		t.rows = append(t.rows, []string{
			d.FormatInt(int64(i)),
			d.FormatString(g.faker.UUID()),
			d.FormatInt(int64(g.faker.IntRange(1, g.opts.Users))),
			d.FormatInt(int64(g.faker.IntRange(1, g.opts.Destinations))),
			d.FormatInt(int64(g.faker.IntRange(1, 6))),
			d.FormatString(start.Format(time.DateOnly)),
			d.FormatString(end.Format(time.DateOnly)),
			d.FormatString(statuses[g.faker.IntRange(0, len(statuses)-1)]),
			notes,
			created,
			updated,
		})
	}
	return t
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func roundTo(f float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(f*p)) / p
}
