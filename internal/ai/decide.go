// Package ai chooses what each non-player nation does on its turn.
//
// Decide is pure: it reads the game state and returns a Decision holding
// the chosen action and the nation's updated cooldown memory. Committing
// the decision is a separate step (Decision.Actions) that yields reducer
// actions for the caller to dispatch.
package ai

import (
	"github.com/talgya/alt-history/internal/entropy"
	"github.com/talgya/alt-history/internal/game"
)

// Action is an AI nation's move for one turn.
type Action string

const (
	DeclareWar    Action = "declare_war"
	BuildMilitary Action = "build_military"
	Threaten      Action = "threaten"
	Research      Action = "research"
	SeekAlliance  Action = "seek_alliance"
	Diplomacy     Action = "diplomacy"
	Fortify       Action = "fortify"
	Wait          Action = "wait"
)

// Actions lists every move in the fixed order used for weighted selection.
var Actions = [...]Action{DeclareWar, BuildMilitary, Threaten, Research, SeekAlliance, Diplomacy, Fortify, Wait}

// Cooldowns in simulated days.
const (
	AllianceCooldown = 60
	WarCooldown      = 90
	ThreatCooldown   = 45
	MaxRejections    = 2
)

// Weights maps each action to its probability mass.
type Weights map[Action]float64

// Total is the sum of all weights.
func (w Weights) Total() float64 {
	var t float64
	for _, a := range Actions {
		t += w[a]
	}
	return t
}

var baseWeights = map[game.Personality]Weights{
	game.Aggressive: {
		DeclareWar:    0.3,
		BuildMilitary: 0.4,
		Threaten:      0.2,
		Research:      0.1,
	},
	game.Defensive: {
		BuildMilitary: 0.4,
		Research:      0.3,
		SeekAlliance:  0.2,
		Fortify:       0.1,
	},
	game.Opportunistic: {
		BuildMilitary: 0.2,
		Research:      0.2,
		Diplomacy:     0.3,
		DeclareWar:    0.2,
		Wait:          0.1,
	},
}

// BaseWeights returns a copy of the personality's starting table.
// Unknown personalities are treated as opportunistic.
func BaseWeights(p game.Personality) Weights {
	src, ok := baseWeights[p]
	if !ok {
		src = baseWeights[game.Opportunistic]
	}
	w := make(Weights, len(Actions))
	for _, a := range Actions {
		w[a] = src[a]
	}
	return w
}

// PlayerStrength is the composite the AI measures itself against. It is
// never below 1.
func PlayerStrength(s game.State) float64 {
	m := s.Military
	military := (float64(m.Army)*1 + float64(m.Navy)*800 + float64(m.AirForce)*100) * float64(m.Readiness) / 100
	economy := s.Resources.GDP / 500
	morale := max(0.3, float64(s.Morale.Current)/100)
	return max(1, (military+economy)*morale)
}

// Decision is the outcome of one nation's turn.
type Decision struct {
	Country string
	Action  Action
	Memory  game.AIMemory // memory after the action
	Day     int           // daysPassed when decided
}

// Engine makes AI decisions with an injected random source.
type Engine struct {
	rng entropy.Source
}

// New creates an engine. A nil source falls back to crypto randomness.
func New(rng entropy.Source) *Engine {
	if rng == nil {
		rng = entropy.Crypto{}
	}
	return &Engine{rng: rng}
}

// Decide picks country's action for this turn. It never fails; anything
// impossible degrades to Wait.
func (e *Engine) Decide(country string, nation game.AINation, s game.State) Decision {
	w := Weigh(country, nation, s)
	choice := Pick(w, e.rng.Float())

	mem := s.MemoryFor(country)
	day := s.Time.DaysPassed
	switch choice {
	case SeekAlliance:
		mem.LastAllianceProposal = day
	case DeclareWar:
		mem.LastWarDeclaration = day
	case Threaten:
		mem.LastThreat = day
	}
	return Decision{Country: country, Action: choice, Memory: mem, Day: day}
}

// Weigh computes the final action weights for country without drawing.
func Weigh(country string, nation game.AINation, s game.State) Weights {
	rel := nation.Strength / PlayerStrength(s)
	r := s.Diplomacy.Relationship(country)
	allied := s.Diplomacy.Allied(country)
	atWar := s.Diplomacy.AtWar(country)
	mem := s.MemoryFor(country)
	day := s.Time.DaysPassed

	w := BaseWeights(nation.Personality)

	switch {
	case r >= 50:
		w[SeekAlliance] += 0.3
		w[DeclareWar] = 0
		w[Threaten] = 0
	case r >= 20:
		w[DeclareWar] = 0
		w[Threaten] = 0
	case r >= -20:
		w[DeclareWar] = 0
		w[Threaten] = min(w[Threaten], 0.1)
	case r >= -50:
		w[Threaten] += 0.1
		if rel <= 1.3 {
			w[DeclareWar] = 0
		}
	default:
		if rel > 1.5 {
			w[DeclareWar] += 0.3
		} else {
			w[BuildMilitary] += w[DeclareWar] + w[Threaten]
			w[DeclareWar] = 0
			w[Threaten] = 0
		}
	}

	if allied {
		w[SeekAlliance] = 0
		w[DeclareWar] = 0
		w[Threaten] = 0
		w[Diplomacy] += 0.2
		w[Research] += 0.1
		w[BuildMilitary] += 0.1
	}
	if atWar {
		w[DeclareWar] = 0
		w[SeekAlliance] = 0
		w[Threaten] = 0
		w[BuildMilitary] += 0.2
		w[Research] += 0.1
		w[Fortify] += 0.2
	}

	allianceReady := day-mem.LastAllianceProposal >= AllianceCooldown && mem.AllianceRejectedCount < MaxRejections
	warReady := day-mem.LastWarDeclaration >= WarCooldown
	threatReady := day-mem.LastThreat >= ThreatCooldown
	applyCooldowns(w, allianceReady, warReady, threatReady)

	if rel < 0.6 {
		w[DeclareWar] = 0
		if r <= 0 {
			w[SeekAlliance] = 0
		}
	} else if rel > 1.8 && r < 0 {
		w[DeclareWar] += 0.2
		w[Threaten] += 0.1
	}

	vulnerable := s.Morale.Current < 30 || s.Resources.Treasury < 5000
	if nation.Personality == game.Aggressive && vulnerable && rel > 1.2 && warReady {
		w[DeclareWar] += 0.5
	}
	if nation.Personality == game.Opportunistic && len(s.Diplomacy.Wars) >= 2 && rel >= 1.0 && warReady {
		w[DeclareWar] += 0.25
	}

	// Later steps may have re-added gated weight.
	applyCooldowns(w, allianceReady, warReady, threatReady)

	// Structural mask: never propose to an ally or attack an ally or enemy.
	if allied || s.Events.PendingAlliance(country) {
		w[SeekAlliance] = 0
	}
	if allied || atWar {
		w[DeclareWar] = 0
		w[Threaten] = 0
	}
	if atWar {
		w[SeekAlliance] = 0
	}
	return w
}

func applyCooldowns(w Weights, allianceReady, warReady, threatReady bool) {
	if !allianceReady {
		w[SeekAlliance] = 0
	}
	if !warReady {
		w[DeclareWar] = 0
	}
	if !threatReady {
		w[Threaten] = 0
	}
}

// Pick selects an action by weighted draw. u is uniform in [0, 1).
func Pick(w Weights, u float64) Action {
	total := w.Total()
	if total <= 0 {
		return Wait
	}
	draw := u * total
	last := Wait
	for _, a := range Actions {
		if w[a] <= 0 {
			continue
		}
		last = a
		draw -= w[a]
		if draw <= 0 {
			return a
		}
	}
	return last
}
