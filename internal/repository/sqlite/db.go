// Package sqlite is the embedded storage backend. It implements the same
// repository interfaces as the MongoDB backend, storing ObjectIDs as hex text.
package sqlite

import (
	"alcyxob/coach-scheduler/internal/repository"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	_ repository.CoachRepository        = (*CoachStore)(nil)
	_ repository.ClientRepository       = (*ClientStore)(nil)
	_ repository.SessionRepository      = (*SessionStore)(nil)
	_ repository.AvailabilityRepository = (*AvailabilityStore)(nil)
	_ repository.HolidayRepository      = (*HolidayStore)(nil)
	_ repository.ProgressRepository     = (*ProgressStore)(nil)
	_ repository.WorkoutRepository      = (*WorkoutStore)(nil)
	_ repository.TimeSlotRepository     = (*TimeSlotStore)(nil)
	_ repository.GradeRepository        = (*GradeStore)(nil)
)

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS coaches (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL UNIQUE,
	phone TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	specialization TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	experience_years INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clients (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	coach_id TEXT,
	coach_tag TEXT NOT NULL DEFAULT '',
	profile TEXT NOT NULL DEFAULT '{}',
	deleted_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clients_coach ON clients(coach_id);
CREATE INDEX IF NOT EXISTS idx_clients_coach_tag ON clients(coach_tag);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	coach_id TEXT NOT NULL,
	client_id TEXT NOT NULL,
	workout_id TEXT,
	scheduled_at TEXT NOT NULL,
	duration_minutes INTEGER NOT NULL DEFAULT 0,
	location TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	completed_at TEXT,
	metadata TEXT NOT NULL DEFAULT '{}',
	batch_id TEXT,
	batch_seq INTEGER,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE(batch_id, batch_seq)
);
CREATE INDEX IF NOT EXISTS idx_sessions_coach ON sessions(coach_id, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_sessions_client ON sessions(client_id, scheduled_at);

CREATE TABLE IF NOT EXISTS availability (
	coach_id TEXT PRIMARY KEY,
	working_days TEXT NOT NULL,
	recurrence_type TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS holidays (
	id TEXT PRIMARY KEY,
	coach_id TEXT NOT NULL,
	date TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	UNIQUE(coach_id, date)
);

CREATE TABLE IF NOT EXISTS progress (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	session_id TEXT,
	entry_type TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	attachment_key TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_progress_client ON progress(client_id, created_at);

CREATE TABLE IF NOT EXISTS time_slots (
	id TEXT PRIMARY KEY,
	coach_id TEXT NOT NULL,
	day_of_week INTEGER NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	duration_minutes INTEGER NOT NULL,
	location_type TEXT NOT NULL,
	location_address TEXT NOT NULL DEFAULT '',
	max_clients INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_time_slots_coach ON time_slots(coach_id, day_of_week, start_time);

CREATE TABLE IF NOT EXISTS session_grades (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	client_id TEXT NOT NULL,
	coach_id TEXT NOT NULL,
	session_scheduled_at TEXT NOT NULL,
	grade_value TEXT NOT NULL,
	numeric_score REAL NOT NULL,
	comments TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE(session_id, client_id)
);
CREATE INDEX IF NOT EXISTS idx_session_grades_client ON session_grades(client_id, session_scheduled_at);

CREATE TABLE IF NOT EXISTS workouts (
	id TEXT PRIMARY KEY,
	coach_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	exercises TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Open opens the database at path and applies the schema.
// ":memory:" is pinned to one connection so every query sees the same database.
func Open(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDB creates all tables and indexes. It is idempotent.
func InitDB(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatNullID(id *primitive.ObjectID) sql.NullString {
	if id == nil || *id == primitive.NilObjectID {
		return sql.NullString{}
	}
	return sql.NullString{String: id.Hex(), Valid: true}
}

func parseNullID(ns sql.NullString) (*primitive.ObjectID, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(ns.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
