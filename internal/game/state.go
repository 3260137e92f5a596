// Package game provides the unified game-state model and the reducer that
// mutates it. Every state change goes through Reducer.Reduce.
package game

import "time"

// Personality is the archetype governing an AI nation's action weighting.
type Personality string

const (
	Aggressive    Personality = "aggressive"
	Defensive     Personality = "defensive"
	Opportunistic Personality = "opportunistic"
)

// Difficulty is the player-selected difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return true
	}
	return false
}

// NeverHappened is the default day stamp for AI memory entries.
const NeverHappened = -999

// State is the single root aggregate. Only the reducer writes it.
type State struct {
	Meta          Meta                `json:"meta"`
	Time          Clock               `json:"time"`
	Identity      Identity            `json:"identity"`
	Resources     Resources           `json:"resources"`
	Military      Military            `json:"military"`
	Research      Research            `json:"research"`
	Morale        Morale              `json:"morale"`
	Diplomacy     Diplomacy           `json:"diplomacy"`
	Events        EventLog            `json:"events"`
	AICountries   map[string]AINation `json:"aiCountries"`
	AIMemory      map[string]AIMemory `json:"aiMemory"`
	Notifications []Notification      `json:"notifications"`
}

// Meta holds session flags.
type Meta struct {
	GameStarted bool       `json:"gameStarted"`
	IsPaused    bool       `json:"isPaused"`
	Speed       int        `json:"speed"` // >0
	Difficulty  Difficulty `json:"difficulty"`
}

// Clock tracks simulated time. CurrentDate == StartDate + DaysPassed days.
type Clock struct {
	CurrentDate time.Time `json:"currentDate"`
	StartDate   time.Time `json:"startDate"`
	DaysPassed  int       `json:"daysPassed"`
}

// Identity names the era and the player's nation.
type Identity struct {
	Era           string `json:"era"`
	PlayerCountry string `json:"playerCountry"`
}

// Resources is the national budget. Treasury is never negative.
type Resources struct {
	Treasury float64 `json:"treasury"`
	Income   float64 `json:"income"`   // per day
	Expenses float64 `json:"expenses"` // per day
	GDP      float64 `json:"gdp"`
}

// Military holds force counts. Readiness is 0–100.
type Military struct {
	Army        int  `json:"army"`
	Navy        int  `json:"navy"`
	AirForce    int  `json:"airForce"`
	Readiness   int  `json:"readiness"`
	IsMobilized bool `json:"isMobilized"`
}

// Research tracks accumulated points and technologies.
type Research struct {
	Points          float64      `json:"points"`
	PointsPerDay    float64      `json:"pointsPerDay"`
	CurrentResearch *Technology  `json:"currentResearch"`
	CompletedTech   []Technology `json:"completedTech"` // unique by ID
	AvailableTech   []Technology `json:"availableTech"`
}

// HasCompleted reports whether a technology with the given id is done.
func (r Research) HasCompleted(id string) bool {
	for _, t := range r.CompletedTech {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Remaining returns available technologies not yet completed, in order.
func (r Research) Remaining() []Technology {
	var out []Technology
	for _, t := range r.AvailableTech {
		if !r.HasCompleted(t.ID) {
			out = append(out, t)
		}
	}
	return out
}

// Progress returns completion of the current research in percent (0–100).
func (r Research) Progress() float64 {
	if r.CurrentResearch == nil || r.CurrentResearch.Cost <= 0 {
		return 0
	}
	return min(100, r.Points/r.CurrentResearch.Cost*100)
}

// Morale is national morale. Both fields are clamped to 0–100.
type Morale struct {
	Current       int `json:"current"`
	WarExhaustion int `json:"warExhaustion"`
}

// Diplomacy holds relationships and the war/alliance sets.
type Diplomacy struct {
	Relationships map[string]int `json:"relationships"` // -100..100
	Alliances     []string       `json:"alliances"`     // set
	Wars          []string       `json:"wars"`          // set
	Treaties      []Treaty       `json:"treaties"`
}

// Allied reports whether country is in the alliance set.
func (d Diplomacy) Allied(country string) bool { return contains(d.Alliances, country) }

// AtWar reports whether country is in the war set.
func (d Diplomacy) AtWar(country string) bool { return contains(d.Wars, country) }

// Relationship returns the score with country, 0 when unknown.
func (d Diplomacy) Relationship(country string) int { return d.Relationships[country] }

// Treaty is a signed agreement with another nation.
type Treaty struct {
	Kind    string    `json:"kind"` // "trade", "non_aggression"
	Country string    `json:"country"`
	Signed  time.Time `json:"signed"`
}

// EventLog holds the event queue and resolution history.
type EventLog struct {
	ActiveEvents     []Event           `json:"activeEvents"`
	EventHistory     []ResolvedEvent   `json:"eventHistory"`
	PendingDecisions []PendingDecision `json:"pendingDecisions"`
}

// Seen reports whether an event id is queued or already resolved.
func (l EventLog) Seen(id string) bool {
	for _, e := range l.ActiveEvents {
		if e.ID == id {
			return true
		}
	}
	for _, h := range l.EventHistory {
		if h.Event.ID == id {
			return true
		}
	}
	return false
}

// PendingAlliance reports whether an alliance proposal from country awaits an answer.
func (l EventLog) PendingAlliance(country string) bool {
	for _, d := range l.PendingDecisions {
		if d.Type == DecisionAlliance && d.Country == country {
			return true
		}
	}
	return false
}

// ResolvedEvent is an event the player has answered.
type ResolvedEvent struct {
	Event     Event     `json:"event"`
	ChoiceID  string    `json:"choiceId"`
	Timestamp time.Time `json:"timestamp"`
}

// DecisionAlliance marks a pending alliance proposal.
const DecisionAlliance = "alliance"

// PendingDecision is an unanswered proposal from another nation.
type PendingDecision struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Country   string    `json:"country"`
	Timestamp time.Time `json:"timestamp"`
}

// AINation is a non-player nation's static profile.
type AINation struct {
	Personality Personality `json:"personality"`
	Strength    float64     `json:"strength"` // 0–100
}

// AIMemory is per-nation cooldown memory, stamped with DaysPassed.
type AIMemory struct {
	LastAllianceProposal  int `json:"lastAllianceProposal"`
	LastWarDeclaration    int `json:"lastWarDeclaration"`
	LastThreat            int `json:"lastThreat"`
	AllianceRejectedCount int `json:"allianceRejectedCount"`
}

// FreshMemory returns memory for a nation that has never acted.
func FreshMemory() AIMemory {
	return AIMemory{
		LastAllianceProposal: NeverHappened,
		LastWarDeclaration:   NeverHappened,
		LastThreat:           NeverHappened,
	}
}

// MemoryFor returns the AI memory for country, defaulting when absent.
func (s State) MemoryFor(country string) AIMemory {
	if m, ok := s.AIMemory[country]; ok {
		return m
	}
	return FreshMemory()
}

// Technology is an immutable research item from the data tables.
type Technology struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Cost        float64            `json:"cost"`
	Effects     map[string]float64 `json:"effects"`
}

// Event is a scripted historical decision point.
type Event struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Date              time.Time         `json:"date"`
	TriggerConditions TriggerConditions `json:"triggerConditions"`
	Choices           []Choice          `json:"choices"`
}

// Choice returns the choice with the given id.
func (e Event) Choice(id string) (Choice, bool) {
	for _, c := range e.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// TriggerConditions gate when and for whom an event fires.
type TriggerConditions struct {
	Date      time.Time `json:"date"`
	Countries []string  `json:"countries"`
}

// Involves reports whether country participates in the event.
func (t TriggerConditions) Involves(country string) bool { return contains(t.Countries, country) }

// Choice is one answer to an event.
type Choice struct {
	ID           string       `json:"id"`
	Text         string       `json:"text"`
	Consequences Consequences `json:"consequences"`
}

// Consequences are deltas applied when a choice is made.
type Consequences struct {
	Treasury      *float64       `json:"treasury,omitempty"`
	Morale        *int           `json:"morale,omitempty"`
	Military      *MilitaryDelta `json:"military,omitempty"`
	Relationships map[string]int `json:"relationships,omitempty"`
}

// MilitaryDelta is a partial change to force counts.
type MilitaryDelta struct {
	Army        int   `json:"army,omitempty"`
	Navy        int   `json:"navy,omitempty"`
	AirForce    int   `json:"airForce,omitempty"`
	IsMobilized *bool `json:"isMobilized,omitempty"`
}

// Notification kinds.
const (
	NotifyEvent     = "event"
	NotifyResearch  = "research"
	NotifyDiplomacy = "diplomacy"
	NotifyWar       = "war"
	NotifyEconomy   = "economy"
	NotifyMilitary  = "military"
	NotifySuccess   = "success"
	NotifyWarning   = "warning"
	NotifyInfo      = "info"
	NotifyAIAction  = "ai_action"
)

// Notification is a message for the player.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Country   string    `json:"country,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New returns the pre-game state.
func New() State {
	return State{
		Meta: Meta{
			Speed:      1,
			Difficulty: DifficultyNormal,
		},
		Morale:      Morale{Current: 100},
		Diplomacy:   Diplomacy{Relationships: map[string]int{}},
		AICountries: map[string]AINation{},
		AIMemory:    map[string]AIMemory{},
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
