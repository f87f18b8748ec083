package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"go-metronome/metronome"
)

// DefaultDBFile is the SQLite database name inside the config directory
const DefaultDBFile = "presets.sqlite3"

// SQLite keeps presets in a single table. Save replaces every row in one
// transaction, so the table always holds exactly the last saved map.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database and runs the schema migration
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	s := &SQLite{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS presets (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			tempo       INTEGER NOT NULL,
			volume      INTEGER NOT NULL,
			subdivision INTEGER NOT NULL,
			beats       INTEGER NOT NULL,
			unit        INTEGER NOT NULL,
			pattern     TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// Close ensures the DB connection is closed gracefully
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load reads every row. found is false until the first Save.
func (s *SQLite) Load(ctx context.Context) (map[string]Preset, bool, error) {
	var saved string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'saved'`).Scan(&saved)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, tempo, volume, subdivision, beats, unit, pattern
		FROM presets
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, false, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}
	defer rows.Close()

	presets := make(map[string]Preset)
	for rows.Next() {
		var (
			p           Preset
			patternJSON string
		)
		if err := rows.Scan(
			&p.Name,
			&p.Settings.Tempo,
			&p.Settings.Volume,
			&p.Settings.Subdivision,
			&p.Settings.TimeSignature.Beats,
			&p.Settings.TimeSignature.Unit,
			&patternJSON,
		); err != nil {
			return nil, false, &PersistenceError{Op: "load", Path: s.path, Err: err}
		}
		if err := json.Unmarshal([]byte(patternJSON), &p.Settings.Pattern); err != nil {
			return nil, false, &PersistenceError{
				Op:   "load",
				Path: s.path,
				Err:  fmt.Errorf("%w: preset %q pattern: %v", ErrMalformed, p.Name, err),
			}
		}
		presets[p.Name] = p
	}
	if err := rows.Err(); err != nil {
		return nil, false, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}
	return presets, true, nil
}

// Save replaces all rows with presets
func (s *SQLite) Save(ctx context.Context, presets map[string]Preset) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM presets`); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO presets (id, name, tempo, volume, subdivision, beats, unit, pattern)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	defer stmt.Close()

	for name, p := range presets {
		pattern := p.Settings.Pattern
		if pattern == nil {
			pattern = metronome.Pattern{}
		}
		patternJSON, mErr := json.Marshal(pattern)
		if mErr != nil {
			err = &PersistenceError{Op: "save", Path: s.path, Err: mErr}
			return err
		}
		if _, err = stmt.ExecContext(ctx,
			uuid.NewString(),
			name,
			p.Settings.Tempo,
			p.Settings.Volume,
			p.Settings.Subdivision,
			p.Settings.TimeSignature.Beats,
			p.Settings.TimeSignature.Unit,
			string(patternJSON),
		); err != nil {
			return &PersistenceError{Op: "save", Path: s.path, Err: err}
		}
	}

	if _, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES ('saved', 'true')`); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	if err = tx.Commit(); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}
