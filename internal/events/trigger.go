// Package events decides which scripted historical events are due for the
// player. It holds no state; deduplication is done against the game state.
package events

import (
	"sort"
	"time"

	"github.com/talgya/alt-history/internal/game"
)

// Source supplies the events defined for an era.
type Source interface {
	Events(era string) []game.Event
}

// Evaluate returns the era's events dated on or before date that involve
// country, ordered by date then id.
func Evaluate(src Source, date time.Time, country, era string) []game.Event {
	if src == nil {
		return nil
	}
	var out []game.Event
	for _, ev := range src.Events(era) {
		if ev.Date.After(date) {
			continue
		}
		if !ev.TriggerConditions.Involves(country) {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FilterNew drops candidates already queued or resolved in s, and
// duplicate ids within candidates. Order is preserved.
func FilterNew(candidates []game.Event, s game.State) []game.Event {
	var out []game.Event
	seen := make(map[string]bool, len(candidates))
	for _, ev := range candidates {
		if seen[ev.ID] || s.Events.Seen(ev.ID) {
			continue
		}
		seen[ev.ID] = true
		out = append(out, ev)
	}
	return out
}

// Due is Evaluate followed by FilterNew against s.
func Due(src Source, s game.State) []game.Event {
	return FilterNew(Evaluate(src, s.Time.CurrentDate, s.Identity.PlayerCountry, s.Identity.Era), s)
}
