// Package persistence provides SQLite-based save slots for game snapshots.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/alt-history/internal/game"
)

// DB wraps a SQLite connection holding save slots and the notification log.
type DB struct {
	conn *sqlx.DB

	Now func() time.Time // wall clock for saveDate stamps
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, Now: time.Now}
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
	CREATE TABLE IF NOT EXISTS saves (
		slot TEXT PRIMARY KEY,
		save_name TEXT NOT NULL,
		save_date TEXT NOT NULL,
		version TEXT NOT NULL,
		era TEXT NOT NULL,
		country TEXT NOT NULL,
		days_passed INTEGER NOT NULL,
		payload BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		details TEXT NOT NULL,
		country TEXT NOT NULL,
		sim_date TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_seq ON notifications(seq);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

type notificationRow struct {
	ID      string `db:"id"`
	Type    string `db:"type"`
	Message string `db:"message"`
	Details string `db:"details"`
	Country string `db:"country"`
	SimDate string `db:"sim_date"`
}

// SaveNotifications appends notifications to the log. Ids already logged
// are skipped, so the full list can be passed on every flush.
func (db *DB) SaveNotifications(ns []game.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.Get(&seq, "SELECT COALESCE(MAX(seq), 0) FROM notifications"); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	for _, n := range ns {
		seq++
		_, err := tx.Exec(`INSERT OR IGNORE INTO notifications
			(id, seq, type, message, details, country, sim_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			n.ID, seq, n.Type, n.Message, n.Details, n.Country,
			n.Timestamp.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("insert notification %s: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// RecentNotifications returns up to limit logged notifications, newest first.
func (db *DB) RecentNotifications(limit int) ([]game.Notification, error) {
	var rows []notificationRow
	err := db.conn.Select(&rows,
		`SELECT id, type, message, details, country, sim_date
		 FROM notifications ORDER BY seq DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}

	out := make([]game.Notification, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse(time.RFC3339, r.SimDate)
		if err != nil {
			slog.Warn("bad notification date", "id", r.ID, "value", r.SimDate)
		}
		out = append(out, game.Notification{
			ID:        r.ID,
			Type:      r.Type,
			Message:   r.Message,
			Details:   r.Details,
			Country:   r.Country,
			Timestamp: ts,
		})
	}
	return out, nil
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
