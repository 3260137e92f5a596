// Snapshots: versioned, compressed copies of the whole game state.
package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/mod/semver"

	"github.com/talgya/alt-history/internal/game"
)

// Version is the snapshot format written by this build. Snapshots load
// when their major version matches.
const Version = "1.0.0"

// Save slots.
const (
	SlotManual   = "manual"
	SlotAutosave = "autosave"
)

// Default save names per slot.
const (
	ManualSaveName = "Manual Save"
	AutoSaveName   = "Auto Save"
)

// Snapshot is the game state plus save metadata. State fields are
// flattened into the top-level JSON object.
type Snapshot struct {
	game.State
	SaveName string    `json:"saveName"`
	SaveDate time.Time `json:"saveDate"`
	Version  string    `json:"version"`
}

// Result reports the outcome of a save-slot operation to the player.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Info describes a save slot without decoding its payload.
type Info struct {
	Slot       string    `json:"slot" db:"slot"`
	Name       string    `json:"name" db:"save_name"`
	Date       time.Time `json:"date" db:"-"`
	Country    string    `json:"country" db:"country"`
	Era        string    `json:"era" db:"era"`
	DaysPassed int       `json:"daysPassed" db:"days_passed"`
	Version    string    `json:"version" db:"version"`

	RawDate string `json:"-" db:"save_date"`
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

func validSlot(slot string) bool {
	return slot == SlotManual || slot == SlotAutosave
}

// NewSnapshot stamps s with save metadata.
func NewSnapshot(s game.State, name string, at time.Time) Snapshot {
	return Snapshot{State: s.Clone(), SaveName: name, SaveDate: at.UTC(), Version: Version}
}

// Validate checks version compatibility and the state invariants a
// well-formed snapshot must satisfy.
func Validate(snap Snapshot) error {
	v := "v" + snap.Version
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid version %q", snap.Version)
	}
	if semver.Major(v) != semver.Major("v"+Version) {
		return fmt.Errorf("incompatible version %s (want %s.x)", snap.Version, semver.Major("v"+Version)[1:])
	}

	s := snap.State
	switch {
	case s.Meta.Speed <= 0:
		return fmt.Errorf("speed %d must be positive", s.Meta.Speed)
	case s.Meta.Difficulty != "" && !s.Meta.Difficulty.Valid():
		return fmt.Errorf("unknown difficulty %q", s.Meta.Difficulty)
	case s.Resources.Treasury < 0:
		return fmt.Errorf("treasury %.0f is negative", s.Resources.Treasury)
	case s.Research.Points < 0:
		return fmt.Errorf("research points %.0f are negative", s.Research.Points)
	case outside(s.Morale.Current, 0, 100):
		return fmt.Errorf("morale %d out of range", s.Morale.Current)
	case outside(s.Morale.WarExhaustion, 0, 100):
		return fmt.Errorf("war exhaustion %d out of range", s.Morale.WarExhaustion)
	case outside(s.Military.Readiness, 0, 100):
		return fmt.Errorf("readiness %d out of range", s.Military.Readiness)
	case s.Military.Army < 0 || s.Military.Navy < 0 || s.Military.AirForce < 0:
		return fmt.Errorf("negative force count")
	}
	for country, r := range s.Diplomacy.Relationships {
		if outside(r, game.MinRelationship, game.MaxRelationship) {
			return fmt.Errorf("relationship with %s is %d, out of range", country, r)
		}
	}
	if s.Meta.GameStarted {
		if s.Time.DaysPassed < 0 {
			return fmt.Errorf("days passed %d is negative", s.Time.DaysPassed)
		}
		want := s.Time.StartDate.AddDate(0, 0, s.Time.DaysPassed)
		if !s.Time.CurrentDate.Equal(want) {
			return fmt.Errorf("current date %s does not match start + %d days",
				s.Time.CurrentDate.Format(time.DateOnly), s.Time.DaysPassed)
		}
	}
	return nil
}

func outside(v, lo, hi int) bool { return v < lo || v > hi }

// Encode serialises a snapshot to compressed JSON.
func Encode(snap Snapshot) ([]byte, error) {
	js, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return encoder.EncodeAll(js, make([]byte, 0, len(js)/4)), nil
}

// Decode reverses Encode and validates the result.
func Decode(b []byte) (Snapshot, error) {
	var snap Snapshot
	js, err := decoder.DecodeAll(b, nil)
	if err != nil {
		return snap, fmt.Errorf("decompress: %w", err)
	}
	if err := json.Unmarshal(js, &snap); err != nil {
		return snap, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := Validate(snap); err != nil {
		return snap, fmt.Errorf("validate: %w", err)
	}
	return snap, nil
}

// Save writes s to slot. An empty name uses the slot's default.
func (db *DB) Save(slot string, s game.State, name string) (Result, error) {
	if !validSlot(slot) {
		return Result{Message: "Unknown save slot"}, fmt.Errorf("unknown slot %q", slot)
	}
	if name == "" {
		name = ManualSaveName
		if slot == SlotAutosave {
			name = AutoSaveName
		}
	}

	snap := NewSnapshot(s, name, db.Now())
	payload, err := Encode(snap)
	if err != nil {
		return Result{Message: "Failed to save game"}, err
	}

	_, err = db.conn.Exec(`INSERT OR REPLACE INTO saves
		(slot, save_name, save_date, version, era, country, days_passed, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		slot, snap.SaveName, snap.SaveDate.Format(time.RFC3339Nano), snap.Version,
		s.Identity.Era, s.Identity.PlayerCountry, s.Time.DaysPassed, payload,
	)
	if err != nil {
		return Result{Message: "Failed to save game"}, fmt.Errorf("save %s: %w", slot, err)
	}
	if err := db.SaveMeta("last_save", slot); err != nil {
		slog.Warn("save meta failed", "error", err)
	}

	slog.Info("game saved", "slot", slot, "country", s.Identity.PlayerCountry,
		"day", s.Time.DaysPassed, "bytes", len(payload))
	return Result{Success: true, Message: "Game saved successfully!"}, nil
}

// Load reads and validates the snapshot in slot. Nothing is applied to
// the running game; the caller dispatches LoadGame on success.
func (db *DB) Load(slot string) (Snapshot, Result, error) {
	var payload []byte
	err := db.conn.Get(&payload, "SELECT payload FROM saves WHERE slot = ?", slot)
	if notFound(err) {
		return Snapshot{}, Result{Message: "No save found"}, nil
	}
	if err != nil {
		return Snapshot{}, Result{Message: "Failed to load game"}, fmt.Errorf("load %s: %w", slot, err)
	}

	snap, err := Decode(payload)
	if err != nil {
		return Snapshot{}, Result{Message: "Failed to load game"}, fmt.Errorf("load %s: %w", slot, err)
	}
	return snap, Result{Success: true, Message: "Game loaded successfully!"}, nil
}

// Info describes slot. ok is false when the slot is empty.
func (db *DB) Info(slot string) (info Info, ok bool, err error) {
	err = db.conn.Get(&info,
		`SELECT slot, save_name, save_date, country, era, days_passed, version
		 FROM saves WHERE slot = ?`, slot)
	if notFound(err) {
		return Info{}, false, nil
	}
	if err != nil {
		return Info{}, false, fmt.Errorf("info %s: %w", slot, err)
	}
	info.Date, _ = time.Parse(time.RFC3339Nano, info.RawDate)
	return info, true, nil
}

// List describes every occupied slot, manual first.
func (db *DB) List() ([]Info, error) {
	var out []Info
	for _, slot := range []string{SlotManual, SlotAutosave} {
		info, ok, err := db.Info(slot)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, info)
		}
	}
	return out, nil
}

// Has reports whether slot holds a save.
func (db *DB) Has(slot string) bool {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM saves WHERE slot = ?", slot); err != nil {
		slog.Error("check save slot", "slot", slot, "error", err)
		return false
	}
	return n > 0
}

// Delete empties the given slots, or every slot when none are named.
func (db *DB) Delete(slots ...string) error {
	if len(slots) == 0 {
		_, err := db.conn.Exec("DELETE FROM saves")
		return err
	}
	query, args, err := sqlx.In("DELETE FROM saves WHERE slot IN (?)", slots)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(db.conn.Rebind(query), args...)
	return err
}

// ExportFile writes snap to path as a zstd-compressed JSON stream.
func ExportFile(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)
	if err := json.NewEncoder(bw).Encode(snap); err != nil {
		enc.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

// ImportFile reads and validates a snapshot written by ExportFile.
func ImportFile(path string) (Snapshot, error) {
	var snap Snapshot
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	if err := json.NewDecoder(bufio.NewReader(dec)).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := Validate(snap); err != nil {
		return snap, fmt.Errorf("validate: %w", err)
	}
	return snap, nil
}
