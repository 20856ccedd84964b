// Package flightrecorder optionally persists each Manager tick's decision
// to a local SQLite database for later inspection. It is purely
// observational: nothing in this codebase reads it back to reconstruct
// control state after a restart.
package flightrecorder

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/prairiedogbeer/fermenator/ferr"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS ticks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	manager TEXT NOT NULL,
	beer TEXT NOT NULL,
	requires_heating INTEGER NOT NULL,
	requires_cooling INTEGER NOT NULL,
	temperature REAL,
	gravity REAL,
	recorded_at DATETIME NOT NULL
)`

const insertTickSQL = `
INSERT INTO ticks (manager, beer, requires_heating, requires_cooling, temperature, gravity, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

// Tick is a single Manager decision snapshot.
type Tick struct {
	Manager         string
	Beer            string
	RequiresHeating bool
	RequiresCooling bool
	Temperature     float64
	HasTemperature  bool
	Gravity         float64
	HasGravity      bool
	RecordedAt      time.Time
}

// Recorder writes Ticks to a SQLite database. Safe for concurrent use
// from multiple Manager goroutines: writes are serialized under a mutex,
// matching hub.Hub's dbLock convention for SQLite access.
type Recorder struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates (or attaches to) a SQLite database at path and ensures the
// ticks table exists.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, ferr.Wrap(ferr.ConfigInvalid, "flightrecorder", err, "opening database "+path)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, ferr.Wrap(ferr.ConfigInvalid, "flightrecorder", err, "creating ticks table")
	}
	return &Recorder{db: db}, nil
}

// Record inserts one Tick. Nullable fields (temperature, gravity) are
// written as SQL NULL when the caller marks them unavailable, rather than
// as a sentinel float, since a missing reading is not zero.
func (r *Recorder) Record(t Tick) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var temp, gravity interface{}
	if t.HasTemperature {
		temp = t.Temperature
	}
	if t.HasGravity {
		gravity = t.Gravity
	}
	_, err := r.db.Exec(insertTickSQL,
		t.Manager, t.Beer, t.RequiresHeating, t.RequiresCooling, temp, gravity, t.RecordedAt)
	if err != nil {
		return ferr.Wrap(ferr.ConfigInvalid, "flightrecorder", err, "recording tick")
	}
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}
