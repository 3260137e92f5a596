package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/alt-history/internal/game"
)

type staticSource map[string][]game.Event

func (s staticSource) Events(era string) []game.Event { return s[era] }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func event(id string, date time.Time, countries ...string) game.Event {
	return game.Event{
		ID:                id,
		Date:              date,
		TriggerConditions: game.TriggerConditions{Date: date, Countries: countries},
		Choices:           []game.Choice{{ID: "ok"}},
	}
}

func testSource() staticSource {
	return staticSource{
		"Era": {
			event("late", day(1941, 6, 22), "A"),
			event("b_same_day", day(1939, 9, 1), "A", "B"),
			event("a_same_day", day(1939, 9, 1), "A"),
			event("other", day(1939, 9, 1), "B"),
		},
	}
}

func TestEvaluateDateAndCountry(t *testing.T) {
	src := testSource()

	got := Evaluate(src, day(1939, 9, 1), "A", "Era")
	assert.Equal(t, []string{"a_same_day", "b_same_day"}, ids(got))

	got = Evaluate(src, day(1939, 8, 31), "A", "Era")
	assert.Empty(t, got)

	got = Evaluate(src, day(1942, 1, 1), "A", "Era")
	assert.Equal(t, []string{"a_same_day", "b_same_day", "late"}, ids(got))

	assert.Empty(t, Evaluate(src, day(1942, 1, 1), "C", "Era"))
	assert.Empty(t, Evaluate(src, day(1942, 1, 1), "A", "Unknown"))
	assert.Empty(t, Evaluate(nil, day(1942, 1, 1), "A", "Era"))
}

func TestFilterNewAtMostOnce(t *testing.T) {
	src := testSource()
	s := game.New()
	s.Events.EventHistory = []game.ResolvedEvent{{Event: event("a_same_day", day(1939, 9, 1), "A")}}
	s.Events.ActiveEvents = []game.Event{event("late", day(1941, 6, 22), "A")}

	candidates := Evaluate(src, day(1942, 1, 1), "A", "Era")
	candidates = append(candidates, candidates...)

	got := FilterNew(candidates, s)
	assert.Equal(t, []string{"b_same_day"}, ids(got))
}

func TestDueUsesStateClockAndIdentity(t *testing.T) {
	s := game.New()
	s.Identity = game.Identity{Era: "Era", PlayerCountry: "B"}
	s.Time.CurrentDate = day(1939, 9, 1)

	assert.Equal(t, []string{"b_same_day", "other"}, ids(Due(testSource(), s)))
}

func ids(evs []game.Event) []string {
	var out []string
	for _, e := range evs {
		out = append(out, e.ID)
	}
	return out
}
