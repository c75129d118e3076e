// Package trace is an optional execution-trace sink: it observes the
// Answer->Answer trampoline from outside and records each step to a SQL
// backend. Nothing in internal/eval imports this package; a driver wires
// a Sink in by calling Record around each Resume call.
package trace

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Sink records trampoline steps to a SQL database. The zero value is not
// usable; construct with Open.
type Sink struct {
	db         *sql.DB
	driverName string
	mu         sync.Mutex

	steps int64
	runs  int64
}

// Open connects to dbType/dsn and ensures the trace table exists.
// Supported dbType values: sqlite, sqlite3, postgres, postgresql, mysql,
// sqlserver, mssql.
func Open(dbType, dsn string) (*Sink, error) {
	driverName, err := driverFor(dbType)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("trace: failed to open %s: %w", dbType, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: failed to ping %s: %w", dbType, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: failed to create table: %w", err)
	}

	return &Sink{db: db, driverName: driverName}, nil
}

func driverFor(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlserver", "mssql":
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("trace: unsupported database type: %s", dbType)
	}
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS cps_trace (
	run_id        TEXT NOT NULL,
	step_index    INTEGER NOT NULL,
	node_kind     TEXT NOT NULL,
	store_size    INTEGER NOT NULL,
	exception     TEXT,
	recorded_at   TIMESTAMP NOT NULL
)`

// Step is one recorded trampoline transition.
type Step struct {
	RunID      string
	StepIndex  int64
	NodeKind   string
	StoreSize  int
	Exception  string // empty when the step did not raise
}

// insertSQL renders the parameterized insert with the placeholder style
// the active driver expects: postgres wants $1.. and sqlserver wants
// @p1.., while sqlite/mysql both accept plain ?.
func (s *Sink) insertSQL() string {
	const cols = "run_id, step_index, node_kind, store_size, exception, recorded_at"
	switch s.driverName {
	case "postgres":
		return fmt.Sprintf("INSERT INTO cps_trace (%s) VALUES ($1, $2, $3, $4, $5, $6)", cols)
	case "sqlserver":
		return fmt.Sprintf("INSERT INTO cps_trace (%s) VALUES (@p1, @p2, @p3, @p4, @p5, @p6)", cols)
	default:
		return fmt.Sprintf("INSERT INTO cps_trace (%s) VALUES (?, ?, ?, ?, ?, ?)", cols)
	}
}

// Record inserts one Step. A write failure is reported to the caller
// rather than silently dropped, since a trace sink that goes quiet
// without telling anyone is worse than one that isn't wired up at all.
func (s *Sink) Record(step Step) error {
	s.mu.Lock()
	s.steps++
	s.mu.Unlock()

	var exc sql.NullString
	if step.Exception != "" {
		exc = sql.NullString{String: step.Exception, Valid: true}
	}

	_, err := s.db.Exec(
		s.insertSQL(),
		step.RunID, step.StepIndex, step.NodeKind, step.StoreSize, exc, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("trace: record failed: %w", err)
	}
	return nil
}

// BeginRun records that a new top-level Evaluate call started.
func (s *Sink) BeginRun() {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
}

// Summary renders a one-line, human-readable count of recorded activity
// for CLI/log output.
func (s *Sink) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%s runs, %s steps traced",
		humanize.Comma(s.runs), humanize.Comma(s.steps))
}

// Close closes the underlying database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}
