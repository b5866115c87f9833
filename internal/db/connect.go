package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:testbank.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/testbank?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS textbooks (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  author TEXT NOT NULL DEFAULT '',
  version TEXT NOT NULL DEFAULT '',
  isbn TEXT NOT NULL DEFAULT '',
  UNIQUE (title, author, version, isbn)
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  crn TEXT NOT NULL DEFAULT '',
  semester TEXT NOT NULL DEFAULT '',
  textbook_id TEXT REFERENCES textbooks(id)
);

CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  ident TEXT NOT NULL DEFAULT '',
  cover_text TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS test_parts (
  id TEXT PRIMARY KEY,
  test_id TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS test_sections (
  id TEXT PRIMARY KEY,
  part_id TEXT NOT NULL REFERENCES test_parts(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  ident TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  course_id TEXT REFERENCES courses(id) ON DELETE CASCADE,
  textbook_id TEXT REFERENCES textbooks(id) ON DELETE CASCADE,
  qtype TEXT NOT NULL,
  prompt_html TEXT NOT NULL DEFAULT '',
  points REAL NOT NULL DEFAULT 1,
  answer TEXT NOT NULL DEFAULT '',
  CHECK ((course_id IS NULL) <> (textbook_id IS NULL))
);

CREATE TABLE IF NOT EXISTS options (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  text_html TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS answers (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  text TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS test_questions (
  test_id TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  section_id TEXT NOT NULL REFERENCES test_sections(id) ON DELETE CASCADE,
  points REAL NOT NULL DEFAULT 1,
  position INTEGER NOT NULL,
  PRIMARY KEY (test_id, question_id)
);

CREATE TABLE IF NOT EXISTS assets (
  id TEXT PRIMARY KEY,
  owner_kind TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  blob_key TEXT NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS textbooks (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  author TEXT NOT NULL DEFAULT '',
  version TEXT NOT NULL DEFAULT '',
  isbn TEXT NOT NULL DEFAULT '',
  UNIQUE (title, author, version, isbn)
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  crn TEXT NOT NULL DEFAULT '',
  semester TEXT NOT NULL DEFAULT '',
  textbook_id TEXT REFERENCES textbooks(id)
);

CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  ident TEXT NOT NULL DEFAULT '',
  cover_text TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS test_parts (
  id TEXT PRIMARY KEY,
  test_id TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS test_sections (
  id TEXT PRIMARY KEY,
  part_id TEXT NOT NULL REFERENCES test_parts(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  ident TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  course_id TEXT REFERENCES courses(id) ON DELETE CASCADE,
  textbook_id TEXT REFERENCES textbooks(id) ON DELETE CASCADE,
  qtype TEXT NOT NULL,
  prompt_html TEXT NOT NULL DEFAULT '',
  points DOUBLE PRECISION NOT NULL DEFAULT 1,
  answer TEXT NOT NULL DEFAULT '',
  CHECK ((course_id IS NULL) <> (textbook_id IS NULL))
);

CREATE TABLE IF NOT EXISTS options (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  text_html TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS answers (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  text TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS test_questions (
  test_id TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  section_id TEXT NOT NULL REFERENCES test_sections(id) ON DELETE CASCADE,
  points DOUBLE PRECISION NOT NULL DEFAULT 1,
  position INTEGER NOT NULL,
  PRIMARY KEY (test_id, question_id)
);

CREATE TABLE IF NOT EXISTS assets (
  id TEXT PRIMARY KEY,
  owner_kind TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  blob_key TEXT NOT NULL
);
`
