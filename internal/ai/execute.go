// Turn execution: decisions become reducer actions.
package ai

import (
	"fmt"
	"sort"

	"github.com/talgya/alt-history/internal/game"
)

// PassInterval is how many simulated days pass between AI turns.
const PassInterval = 30

var relationshipDelta = map[Action]int{
	DeclareWar:    -60,
	Threaten:      -20,
	SeekAlliance:  15,
	Diplomacy:     10,
	BuildMilitary: -3,
	Fortify:       -5,
}

var messages = map[Action]string{
	DeclareWar:    "%s has declared war on you!",
	BuildMilitary: "%s is building up military forces",
	Threaten:      "%s issues ultimatum to your nation",
	Research:      "%s advances their technology",
	SeekAlliance:  "%s proposes an alliance",
	Diplomacy:     "%s seeks to improve relations",
	Fortify:       "%s fortifies their borders",
}

// RelationshipDelta is the relationship change an action causes.
func RelationshipDelta(a Action) int { return relationshipDelta[a] }

// Actions returns the reducer actions that commit d against s, in order:
// memory, relationship, notification, then any war or alliance request.
// War and alliance requests are skipped when already in effect.
func (d Decision) Actions(s game.State) []game.Action {
	var out []game.Action

	if d.Memory != s.MemoryFor(d.Country) {
		out = append(out, game.RecordAIMemory{Country: d.Country, Memory: d.Memory})
	}
	if delta := relationshipDelta[d.Action]; delta != 0 {
		out = append(out, game.UpdateRelationship{Country: d.Country, Change: delta})
	}
	if msg, ok := messages[d.Action]; ok {
		out = append(out, game.AddNotification{Notification: game.Notification{
			Type:      game.NotifyAIAction,
			Message:   fmt.Sprintf(msg, d.Country),
			Country:   d.Country,
			Timestamp: s.Time.CurrentDate,
		}})
	}
	switch d.Action {
	case DeclareWar:
		if !s.Diplomacy.AtWar(d.Country) {
			out = append(out, game.DeclareWar{Country: d.Country})
		}
	case SeekAlliance:
		if !s.Diplomacy.Allied(d.Country) {
			out = append(out, game.AllianceProposal{Country: d.Country})
		}
	}
	return out
}

// Pass decides for every AI nation except the player's own, in name order.
func (e *Engine) Pass(s game.State) []Decision {
	names := make([]string, 0, len(s.AICountries))
	for name := range s.AICountries {
		if name == s.Identity.PlayerCountry {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Decision, 0, len(names))
	for _, name := range names {
		out = append(out, e.Decide(name, s.AICountries[name], s))
	}
	return out
}

// Due reports whether an AI pass should run on this day.
func Due(s game.State) bool {
	return s.Meta.GameStarted && s.Time.DaysPassed > 0 && s.Time.DaysPassed%PassInterval == 0
}
