package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pavelanni/classquiz/internal/model"

	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL database behind a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

// New opens the database named by dsn and applies the schema. DSNs starting
// with postgres:// or postgresql:// use PostgreSQL; anything else is a SQLite
// path (":memory:" included).
func New(dsn string) (*Store, error) {
	dialect, driver, source := parseDSN(dsn)
	db, err := sqlx.Connect(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialect == DialectSQLite {
		// SQLite allows one writer; a single connection also keeps
		// ":memory:" databases shared across the pool.
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Debug("opened database", "dialect", dialect)
	return s, nil
}

func parseDSN(dsn string) (Dialect, string, string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DialectPostgres, "postgres", dsn
	}
	path := strings.TrimPrefix(dsn, "sqlite://")
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return DialectSQLite, "sqlite", path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect reports which database the store is connected to.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id {{pk}},
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		birth_date {{ts}},
		role TEXT NOT NULL CHECK (role IN ('instructor', 'student')),
		created_at {{ts}} NOT NULL
	);

	CREATE TABLE IF NOT EXISTS classes (
		id {{pk}},
		instructor_id BIGINT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at {{ts}} NOT NULL
	);

	CREATE TABLE IF NOT EXISTS class_students (
		class_id BIGINT NOT NULL REFERENCES classes(id),
		student_id BIGINT NOT NULL REFERENCES users(id),
		PRIMARY KEY (class_id, student_id)
	);

	CREATE TABLE IF NOT EXISTS quizzes (
		id {{pk}},
		instructor_id BIGINT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		time_limit INTEGER NOT NULL DEFAULT 0,
		created_at {{ts}} NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		quiz_id BIGINT NOT NULL REFERENCES quizzes(id),
		position INTEGER NOT NULL,
		prompt TEXT NOT NULL,
		options TEXT NOT NULL,
		answer TEXT NOT NULL,
		PRIMARY KEY (quiz_id, position)
	);

	CREATE TABLE IF NOT EXISTS scheduled_quizzes (
		id {{pk}},
		quiz_id BIGINT NOT NULL REFERENCES quizzes(id),
		class_id BIGINT NOT NULL REFERENCES classes(id),
		due_date {{ts}} NOT NULL,
		complete BOOLEAN NOT NULL DEFAULT FALSE,
		created_at {{ts}} NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scheduled_quizzes_open ON scheduled_quizzes (complete, due_date);

	CREATE TABLE IF NOT EXISTS grades (
		id {{pk}},
		scheduled_quiz_id BIGINT NOT NULL REFERENCES scheduled_quizzes(id),
		student_id BIGINT NOT NULL REFERENCES users(id),
		grade DOUBLE PRECISION NOT NULL CHECK (grade >= 0 AND grade <= 100),
		graded_at {{ts}} NOT NULL,
		UNIQUE (scheduled_quiz_id, student_id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at {{ts}} NOT NULL
	);

	CREATE TABLE IF NOT EXISTS revoked_tokens (
		id TEXT PRIMARY KEY,
		expires_at {{ts}} NOT NULL
	);
	`
	_, err := s.db.Exec(s.schemaFor(schema))
	return err
}

// schemaFor fills the dialect specific column types into a schema template.
func (s *Store) schemaFor(schema string) string {
	pk, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "DATETIME"
	if s.dialect == DialectPostgres {
		pk, ts = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}
	return strings.NewReplacer("{{pk}}", pk, "{{ts}}", ts).Replace(schema)
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// dbTime normalizes a timestamp before it is written. Times are stored in
// UTC with second precision so SQLite text comparisons order correctly.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// notFound maps sql.ErrNoRows to model.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// expectRow returns model.ErrNotFound when a statement touched no rows.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// in expands a query with slice arguments and rebinds it for the dialect.
func in(ext sqlx.Ext, query string, args ...any) (string, []any, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return ext.Rebind(q), a, nil
}
