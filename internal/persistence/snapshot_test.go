package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/alt-history/internal/game"
)

func TestEncodeDecode(t *testing.T) {
	snap := NewSnapshot(startedGame(t, 3), "x", saveTime)
	b, err := Encode(snap)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "x", got.SaveName)
	assert.Equal(t, snap.Identity, got.Identity)

	_, err = Decode([]byte("not zstd"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := NewSnapshot(startedGame(t, 5), "ok", saveTime)
	require.NoError(t, Validate(base))

	minor := base
	minor.Version = "1.4.2"
	assert.NoError(t, Validate(minor), "same major loads")

	cases := map[string]func(s *Snapshot){
		"major":      func(s *Snapshot) { s.Version = "2.0.0" },
		"garbage":    func(s *Snapshot) { s.Version = "one" },
		"speed":      func(s *Snapshot) { s.Meta.Speed = 0 },
		"treasury":   func(s *Snapshot) { s.Resources.Treasury = -1 },
		"morale":     func(s *Snapshot) { s.Morale.Current = 101 },
		"readiness":  func(s *Snapshot) { s.Military.Readiness = -5 },
		"army":       func(s *Snapshot) { s.Military.Army = -1 },
		"relation":   func(s *Snapshot) { s.Diplomacy.Relationships["France"] = -101 },
		"date":       func(s *Snapshot) { s.Time.DaysPassed++ },
		"difficulty": func(s *Snapshot) { s.Meta.Difficulty = "nightmare" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			snap := NewSnapshot(base.State, "bad", saveTime)
			mutate(&snap)
			assert.Error(t, Validate(snap))
		})
	}
}

func TestLoadRejectsIncompatibleSnapshot(t *testing.T) {
	db := openTemp(t)
	snap := NewSnapshot(startedGame(t, 1), "future", saveTime)
	snap.Version = "2.1.0"
	payload, err := Encode(snap)
	require.NoError(t, err)
	_, err = db.conn.Exec(`INSERT INTO saves
		(slot, save_name, save_date, version, era, country, days_passed, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		SlotManual, "future", "2026-01-01T00:00:00Z", "2.1.0", "World War II", "Germany", 1, payload)
	require.NoError(t, err)

	_, res, err := db.Load(SlotManual)
	assert.Error(t, err)
	assert.Equal(t, Result{Message: "Failed to load game"}, res)
}

func TestExportImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "game.json.zst")
	snap := NewSnapshot(startedGame(t, 20), "export", saveTime)

	require.NoError(t, ExportFile(path, snap))
	got, err := ImportFile(path)
	require.NoError(t, err)
	assert.Equal(t, "export", got.SaveName)
	assert.Equal(t, 20, got.Time.DaysPassed)

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, err = ImportFile(path)
	assert.Error(t, err)
}

func TestPreGameSnapshotIsValid(t *testing.T) {
	assert.NoError(t, Validate(NewSnapshot(game.New(), "empty", saveTime)))
}
