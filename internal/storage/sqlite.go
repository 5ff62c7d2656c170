package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // CGO-free SQLite driver

	"github.com/codewithboateng/drulift/internal/ir"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB is the concrete storage backed by SQLite or PostgreSQL.
type DB struct {
	conn    *sql.DB
	dialect string
}

// Open opens the store for the configured driver.
func Open(driver, dsn string) (*DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		return OpenSQLite(dsn)
	case DriverPostgres, "pgx":
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{conn: c, dialect: DriverSQLite}, nil
}

// OpenPostgres connects through pgx's database/sql adapter.
func OpenPostgres(dsn string) (*DB, error) {
	c, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := c.Ping(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{conn: c, dialect: DriverPostgres}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// rebind rewrites '?' placeholders for the active dialect.
func (db *DB) rebind(q string) string {
	if db.dialect != DriverPostgres {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (db *DB) exec(q string, args ...any) (sql.Result, error) {
	return db.conn.Exec(db.rebind(q), args...)
}

func (db *DB) query(q string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(db.rebind(q), args...)
}

func (db *DB) queryRow(q string, args ...any) *sql.Row {
	return db.conn.QueryRow(db.rebind(q), args...)
}

// CreateSchema ensures tables exist.
func (db *DB) CreateSchema() error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.dialect == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
  id         TEXT PRIMARY KEY,
  started_at TEXT,          -- UTC, fixed width
  source     TEXT,
  ir_version TEXT,
  run_json   TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS findings (
  id       TEXT,
  run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  file     TEXT,
  line     INTEGER,
  class    TEXT,
  method   TEXT,
  rule_id  TEXT,
  severity TEXT,
  message  TEXT,
  evidence TEXT,
  PRIMARY KEY (id, run_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_rule ON findings(rule_id)`,
		`CREATE TABLE IF NOT EXISTS users (
  id ` + serial + `,
  username TEXT UNIQUE NOT NULL,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'viewer',
  created_at TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS audit (
  id ` + serial + `,
  ts TEXT NOT NULL,
  username TEXT,
  action TEXT NOT NULL,
  resource TEXT,
  meta_json TEXT
)`,
		`CREATE TABLE IF NOT EXISTS waivers (
  id ` + serial + `,
  rule_id     TEXT NOT NULL,
  class       TEXT,              -- optional match; NULL = any
  method      TEXT,              -- optional match; NULL = any
  pattern_sub TEXT,              -- optional substring of message/file
  reason      TEXT NOT NULL,
  expires_at  TEXT NOT NULL,     -- UTC, fixed width
  created_by  TEXT NOT NULL,
  created_at  TEXT NOT NULL,
  revoked_at  TEXT               -- NULL = active
)`,
	}
	for _, s := range stmts {
		if _, err := db.conn.Exec(s); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// SaveRun upserts a run JSON and (re)writes its findings.
func (db *DB) SaveRun(run *ir.Run) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	ts := fmtTime(run.StartedAt)

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(db.rebind(
		`INSERT INTO runs (id, started_at, source, ir_version, run_json)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET started_at=excluded.started_at, source=excluded.source, ir_version=excluded.ir_version, run_json=excluded.run_json`),
		run.ID, ts, run.Source, run.IRVersion, string(b),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(db.rebind(`DELETE FROM findings WHERE run_id = ?`), run.ID); err != nil {
		return err
	}
	if len(run.Findings) > 0 {
		stmt, err := tx.Prepare(db.rebind(`
			INSERT INTO findings
			(id, run_id, file, line, class, method, rule_id, severity, message, evidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range run.Findings {
			if _, err := stmt.Exec(
				f.ID,
				run.ID,
				f.File,
				f.Line,
				f.Class,
				f.Method,
				f.RuleID,
				f.Severity,
				f.Message,
				f.Evidence,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// LoadRun returns the full run (from stored JSON).
func (db *DB) LoadRun(id string) (ir.Run, error) {
	var s string
	if err := db.queryRow(`SELECT run_json FROM runs WHERE id = ?`, id).Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return ir.Run{}, err
	}
	var run ir.Run
	if err := json.Unmarshal([]byte(s), &run); err != nil {
		return ir.Run{}, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, nil
}

// LoadLatestRun returns the most recently started run.
func (db *DB) LoadLatestRun() (ir.Run, error) {
	rows, err := db.ListRuns(1, 0)
	if err != nil {
		return ir.Run{}, err
	}
	if len(rows) == 0 {
		return ir.Run{}, ErrRunNotFound
	}
	return db.LoadRun(rows[0].ID)
}
