package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/alt-history/internal/data"
	"github.com/talgya/alt-history/internal/game"
)

var saveTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	db.Now = func() time.Time { return saveTime }
	t.Cleanup(func() { db.Close() })
	return db
}

func startedGame(t *testing.T, days int) game.State {
	t.Helper()
	r := game.NewReducer(data.MustDefault())
	s := r.Reduce(game.New(), game.InitializeGame{Era: "World War II", Country: "Germany"})
	require.True(t, s.Meta.GameStarted)
	return r.Reduce(s, game.AdvanceTime{Days: days})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTemp(t)
	st := startedGame(t, 45)

	res, err := db.Save(SlotManual, st, "")
	require.NoError(t, err)
	assert.Equal(t, Result{Success: true, Message: "Game saved successfully!"}, res)
	assert.True(t, db.Has(SlotManual))
	assert.False(t, db.Has(SlotAutosave))

	snap, res, err := db.Load(SlotManual)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, ManualSaveName, snap.SaveName)
	assert.Equal(t, Version, snap.Version)
	assert.True(t, saveTime.Equal(snap.SaveDate))
	assert.Equal(t, st.Identity, snap.Identity)
	assert.Equal(t, st.Time.DaysPassed, snap.Time.DaysPassed)
	assert.True(t, st.Time.CurrentDate.Equal(snap.Time.CurrentDate))
	assert.Equal(t, st.Diplomacy.Relationships, snap.Diplomacy.Relationships)
	assert.Equal(t, st.Resources, snap.Resources)

	last, err := db.GetMeta("last_save")
	require.NoError(t, err)
	assert.Equal(t, SlotManual, last)
}

func TestLoadEmptySlot(t *testing.T) {
	db := openTemp(t)
	_, res, err := db.Load(SlotAutosave)
	require.NoError(t, err)
	assert.Equal(t, Result{Message: "No save found"}, res)
}

func TestSaveRejectsUnknownSlot(t *testing.T) {
	db := openTemp(t)
	res, err := db.Save("slot9", game.New(), "")
	assert.Error(t, err)
	assert.False(t, res.Success)
}

func TestInfoListDelete(t *testing.T) {
	db := openTemp(t)
	st := startedGame(t, 10)

	_, err := db.Save(SlotAutosave, st, "")
	require.NoError(t, err)
	_, err = db.Save(SlotManual, st, "Before Poland")
	require.NoError(t, err)

	info, ok, err := db.Info(SlotAutosave)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, AutoSaveName, info.Name)
	assert.Equal(t, "Germany", info.Country)
	assert.Equal(t, "World War II", info.Era)
	assert.Equal(t, 10, info.DaysPassed)
	assert.True(t, saveTime.Equal(info.Date))

	list, err := db.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Before Poland", list[0].Name)

	require.NoError(t, db.Delete(SlotManual))
	assert.False(t, db.Has(SlotManual))
	assert.True(t, db.Has(SlotAutosave))

	require.NoError(t, db.Delete())
	_, ok, err = db.Info(SlotAutosave)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotificationLog(t *testing.T) {
	db := openTemp(t)
	day := time.Date(1939, 9, 1, 0, 0, 0, 0, time.UTC)
	ns := []game.Notification{
		{ID: "a", Type: game.NotifyInfo, Message: "first", Timestamp: day},
		{ID: "b", Type: game.NotifyWarning, Message: "second", Country: "France", Timestamp: day.AddDate(0, 0, 1)},
	}
	require.NoError(t, db.SaveNotifications(ns))
	require.NoError(t, db.SaveNotifications(append(ns, game.Notification{ID: "c", Type: game.NotifyWar, Message: "third"})))

	got, err := db.RecentNotifications(10)
	require.NoError(t, err)
	require.Len(t, got, 3, "already-logged ids are skipped")
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "France", got[1].Country)
	assert.True(t, day.AddDate(0, 0, 1).Equal(got[1].Timestamp))

	got, err = db.RecentNotifications(1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
