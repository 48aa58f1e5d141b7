package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of *pgxpool.Conn / *pgx.Conn the migration runner,
// planner, and batched executor need. Both satisfy it without adaptation.
// SendBatch is what lets the executor dispatch a batch's statements as one
// pgx pipeline instead of one round trip per statement.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Migration is one append-only entry in the store's schema history. Either
// SQL is a literal statement, or Condition/Params customize it per spec
// §4.3: Condition is evaluated first and the migration is skipped when it
// returns false; Params values are callables evaluated against the store
// (e.g. to inject vector dimensions) and interpolated into SQL.
type Migration struct {
	SQL       string
	Condition func(*Store) bool
	Params    map[string]func(*Store) any
}

func literalMigration(sql string) Migration { return Migration{SQL: sql} }

// resolvedSQL evaluates Condition/Params against s and returns the final
// statement to execute, or ok=false if the migration should be skipped.
func (m Migration) resolvedSQL(s *Store) (string, bool) {
	if m.Condition != nil && !m.Condition(s) {
		return "", false
	}
	if len(m.Params) == 0 {
		return m.SQL, true
	}
	out := m.SQL
	for k, fn := range m.Params {
		out = replaceAll(out, "%("+k+")s", fmt.Sprintf("%v", fn(s)))
	}
	return out, true
}

func replaceAll(s, old, new string) string {
	for {
		i := indexOf(s, old)
		if i < 0 {
			return s
		}
		s = s[:i] + new + s[i+len(old):]
	}
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

// runMigrations reads the highest applied version from store_migrations
// (creating the table if it does not exist yet — the same UndefinedTable
// recovery original_source/aio.py's setup() performs) and applies entries
// with index strictly greater than that version. Each successfully applied
// migration is recorded by a separate insert right after it; a failure
// aborts without recording that entry's version.
func runMigrations(ctx context.Context, q querier, s *Store, migrations []Migration) error {
	version := -1
	row := q.QueryRow(ctx, "SELECT v FROM store_migrations ORDER BY v DESC LIMIT 1")
	switch err := row.Scan(&version); {
	case err == nil:
		// got a version
	case errors.Is(err, pgx.ErrNoRows):
		version = -1
	case isUndefinedTable(err):
		version = -1
		if _, err := q.Exec(ctx, "CREATE TABLE IF NOT EXISTS store_migrations (v INTEGER PRIMARY KEY)"); err != nil {
			return &DatabaseError{Op: "create store_migrations", Err: err}
		}
	default:
		return &DatabaseError{Op: "read store_migrations", Err: err}
	}

	for v := version + 1; v < len(migrations); v++ {
		sql, ok := migrations[v].resolvedSQL(s)
		if !ok {
			continue
		}
		log.Debug("store: applying migration", "version", v)
		if _, err := q.Exec(ctx, sql); err != nil {
			return &MigrationError{Version: v, Err: err}
		}
		if _, err := q.Exec(ctx, "INSERT INTO store_migrations (v) VALUES ($1)", v); err != nil {
			return &MigrationError{Version: v, Err: err}
		}
	}
	return nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

// coreMigrations is the store's own append-only migration list: the items
// table unconditionally, then the vector table only when indexing is
// configured against the default SQL backend (dims is injected via
// Params, matching spec §4.3/§6).
var coreMigrations = []Migration{
	literalMigration(`
		CREATE TABLE IF NOT EXISTS store (
			prefix TEXT NOT NULL,
			key TEXT NOT NULL,
			value JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (prefix, key)
		)
	`),
	literalMigration(`CREATE INDEX IF NOT EXISTS store_prefix_idx ON store (prefix)`),
	literalMigration(`CREATE INDEX IF NOT EXISTS store_updated_at_idx ON store (updated_at DESC, key ASC)`),
	{
		SQL: `CREATE EXTENSION IF NOT EXISTS vector`,
		Condition: func(s *Store) bool {
			return s.index != nil && s.index.Backend != "qdrant"
		},
	},
	{
		SQL: `
			CREATE TABLE IF NOT EXISTS store_vectors (
				prefix TEXT NOT NULL,
				key TEXT NOT NULL,
				field_name TEXT NOT NULL,
				embedding VECTOR(%(dims)s) NOT NULL,
				PRIMARY KEY (prefix, key, field_name),
				FOREIGN KEY (prefix, key) REFERENCES store (prefix, key) ON DELETE CASCADE
			)
		`,
		Condition: func(s *Store) bool {
			return s.index != nil && s.index.Backend != "qdrant"
		},
		Params: map[string]func(*Store) any{
			"dims": func(s *Store) any { return s.index.Dims },
		},
	},
	{
		SQL: `CREATE INDEX IF NOT EXISTS store_vectors_ann_idx ON store_vectors USING hnsw (embedding vector_cosine_ops)`,
		Condition: func(s *Store) bool {
			return s.index != nil && s.index.Backend != "qdrant"
		},
	},
}
