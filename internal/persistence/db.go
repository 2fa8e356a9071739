// Package persistence stores the environment mapping table in SQLite.
// Only the static mapping is stored; simulation history lives in memory.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/homesim/internal/environment"
	"github.com/talgya/homesim/internal/home"
)

// Meta keys written by SaveMappings.
const (
	MetaSource     = "source"
	MetaImportedAt = "imported_at"
	MetaRowCount   = "row_count"
)

// ErrNoMeta is returned by GetMeta for an unknown key.
var ErrNoMeta = errors.New("meta key not found")

// DB wraps a SQLite connection holding the mapping table.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS smart_home_mappings (
		Room TEXT NOT NULL,
		External_Temperature TEXT NOT NULL,
		External_Lighting TEXT NOT NULL,
		External_Noise TEXT NOT NULL,
		Internal_Temperature REAL NOT NULL,
		Internal_Lighting REAL NOT NULL,
		Internal_Music INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS table_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_mappings_key
		ON smart_home_mappings(Room, External_Temperature, External_Lighting, External_Noise);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// mappingRow is the column layout of smart_home_mappings.
type mappingRow struct {
	Room        string  `db:"Room"`
	ExtTemp     string  `db:"External_Temperature"`
	ExtLight    string  `db:"External_Lighting"`
	ExtNoise    string  `db:"External_Noise"`
	Temperature float64 `db:"Internal_Temperature"`
	Lighting    float64 `db:"Internal_Lighting"`
	Music       int     `db:"Internal_Music"`
}

// SaveMappings replaces the whole mapping table in one transaction and records
// the source, import time and row count.
func (db *DB) SaveMappings(rows []environment.Row, source string) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM smart_home_mappings"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO smart_home_mappings
		(Room, External_Temperature, External_Lighting, External_Noise,
		 Internal_Temperature, Internal_Lighting, Internal_Music)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(
			string(r.Key.Room),
			string(r.Key.Temperature), string(r.Key.Lighting), string(r.Key.Noise),
			r.Settings.Temperature, r.Settings.Lighting, int(r.Settings.Music),
		)
		if err != nil {
			return fmt.Errorf("insert %s: %w", r.Key, err)
		}
	}

	meta := map[string]string{
		MetaSource:     source,
		MetaImportedAt: time.Now().UTC().Format(time.RFC3339),
		MetaRowCount:   strconv.Itoa(len(rows)),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO table_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("mapping table saved", "rows", len(rows), "source", source)
	return nil
}

// LoadMappings returns every row in insertion order, so duplicate keys resolve
// the same way as the CSV they were imported from.
func (db *DB) LoadMappings() ([]environment.Row, error) {
	var stored []mappingRow
	err := db.conn.Select(&stored, `SELECT Room, External_Temperature, External_Lighting,
		External_Noise, Internal_Temperature, Internal_Lighting, Internal_Music
		FROM smart_home_mappings ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("load mappings: %w", err)
	}

	rows := make([]environment.Row, 0, len(stored))
	for i, s := range stored {
		row, err := s.toRow()
		if err != nil {
			return nil, fmt.Errorf("mapping row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s mappingRow) toRow() (environment.Row, error) {
	var cond environment.Conditions
	var err error
	if cond.Temperature, err = environment.ParseLevel(s.ExtTemp); err != nil {
		return environment.Row{}, fmt.Errorf("%s: %w", environment.ColExternalTemperature, err)
	}
	if cond.Lighting, err = environment.ParseLevel(s.ExtLight); err != nil {
		return environment.Row{}, fmt.Errorf("%s: %w", environment.ColExternalLighting, err)
	}
	if cond.Noise, err = environment.ParseLevel(s.ExtNoise); err != nil {
		return environment.Row{}, fmt.Errorf("%s: %w", environment.ColExternalNoise, err)
	}
	return environment.Row{
		Key: environment.Key{Room: home.Room(s.Room), Conditions: cond},
		Settings: environment.Settings{
			Temperature: s.Temperature,
			Lighting:    s.Lighting,
			Music:       environment.Genre(s.Music),
		},
	}, nil
}

// SaveMeta stores a key-value pair in the table metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO table_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value, or ErrNoMeta.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM table_meta WHERE key = ?", key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrNoMeta, key)
		}
		return "", err
	}
	return value, nil
}
