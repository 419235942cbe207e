package export

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/fenwick-cg/canopy/agent"
	"github.com/fenwick-cg/canopy/sim"
)

// Recorder wraps a SQLite connection for run recording. Each run gets a
// row in runs; sampled steps append to states.
type Recorder struct {
	conn  *sqlx.DB
	runID int64
}

// OpenRecorder opens or creates a SQLite database at the given path and
// registers a new run with the given seed and config snapshot.
func OpenRecorder(path string, seed int64, configYAML string) (*Recorder, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	r := &Recorder{conn: conn}
	if err := r.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	res, err := conn.Exec(
		`INSERT INTO runs (started_at, seed, config_yaml) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), seed, configYAML,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}
	r.runID, err = res.LastInsertId()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("run id: %w", err)
	}

	return r, nil
}

// RunID returns the identifier of the active run.
func (r *Recorder) RunID() int64 { return r.runID }

// Close closes the database connection.
func (r *Recorder) Close() error {
	return r.conn.Close()
}

func (r *Recorder) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		seed INTEGER NOT NULL,
		config_yaml TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS states (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		step INTEGER NOT NULL,
		agent INTEGER NOT NULL,
		u REAL NOT NULL,
		v REAL NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		z REAL NOT NULL,
		vx REAL NOT NULL,
		vy REAL NOT NULL,
		vz REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_states_run_step ON states(run_id, step);
	`
	_, err := r.conn.Exec(schema)
	return err
}

// WriteStep appends one sampled step of agent states to the database.
func (r *Recorder) WriteStep(step int, agents []agent.Agent, out []sim.Sample) error {
	tx, err := r.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO states
		(run_id, step, agent, u, v, x, y, z, vx, vy, vz)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, s := range out {
		_, err := stmt.Exec(
			r.runID, step, i,
			agents[i].Pos.X, agents[i].Pos.Y,
			s.Position.X, s.Position.Y, s.Position.Z,
			s.Velocity.X, s.Velocity.Y, s.Velocity.Z,
		)
		if err != nil {
			return fmt.Errorf("insert state step %d agent %d: %w", step, i, err)
		}
	}

	return tx.Commit()
}

// StepCount returns the number of distinct sampled steps recorded for
// the active run.
func (r *Recorder) StepCount() (int, error) {
	var n int
	err := r.conn.Get(&n, `SELECT COUNT(DISTINCT step) FROM states WHERE run_id = ?`, r.runID)
	return n, err
}
