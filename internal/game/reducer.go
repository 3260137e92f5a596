// State transitions. Each action kind maps to exactly one reduce function.
package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/alt-history/internal/format"
)

// Thresholds for edge-triggered warnings.
const (
	LowTreasury = 1000
	LowMorale   = 30
)

// Relationship bounds.
const (
	MinRelationship = -100
	MaxRelationship = 100
)

// Catalog supplies the static era and country tables the reducer needs
// to initialize a game.
type Catalog interface {
	Era(name string) (EraData, bool)
	Country(era, country string) (CountryData, bool)
}

// EraData is the per-era lookup record.
type EraData struct {
	Name         string
	StartDate    time.Time
	EndDate      time.Time
	Technologies []Technology
	AICountries  map[string]AINation
}

// CountryData is the per-(era, country) starting record.
type CountryData struct {
	Resources            Resources
	Military             Military
	ResearchRate         float64
	InitialRelationships map[string]int
}

// Reducer applies actions to state. It holds only read-only collaborators.
type Reducer struct {
	Catalog Catalog
	NewID   func() string // notification ids; defaults to random UUIDs
}

// NewReducer creates a reducer backed by catalog.
func NewReducer(catalog Catalog) *Reducer {
	return &Reducer{Catalog: catalog, NewID: uuid.NewString}
}

// Reduce returns the state that results from applying a to s. The input
// is never modified. Unknown or invalid actions return s unchanged.
func (r *Reducer) Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	next := s.Clone()

	switch act := a.(type) {
	case InitializeGame:
		return r.initialize(s, act)
	case AdvanceTime:
		if act.Days <= 0 {
			return s
		}
		r.advanceTime(&next, act.Days)
	case UpdateResources:
		r.updateResources(&next, act)
	case UpdateMilitary:
		r.updateMilitary(&next, act)
	case UpdateResearch:
		updateResearch(&next, act)
	case UpdateMorale:
		r.updateMorale(&next, act.Delta)
	case PauseGame:
		next.Meta.IsPaused = true
	case ResumeGame:
		next.Meta.IsPaused = false
	case SetSpeed:
		if act.Speed <= 0 {
			return s
		}
		next.Meta.Speed = act.Speed
	case TriggerEvent:
		if !r.triggerEvent(&next, act.Event) {
			return s
		}
	case MakeDecision:
		if !r.makeDecision(&next, act) {
			return s
		}
	case UpdateRelationship:
		if act.Country == "" {
			return s
		}
		adjustRelationship(&next, act.Country, act.Change)
	case CompleteResearch:
		if !r.completeResearch(&next, act.Tech) {
			return s
		}
	case DeclareWar:
		if !r.declareWar(&next, act.Country) {
			return s
		}
	case AllianceProposal:
		if !r.allianceProposal(&next, act.Country) {
			return s
		}
	case AcceptAlliance:
		if !r.acceptAlliance(&next, act.Country) {
			return s
		}
	case RejectAlliance:
		if act.Country == "" {
			return s
		}
		r.rejectAlliance(&next, act.Country)
	case BreakAlliance:
		if !r.breakAlliance(&next, act.Country) {
			return s
		}
	case SignTreaty:
		if act.Treaty.Country == "" || act.Treaty.Kind == "" {
			return s
		}
		t := act.Treaty
		if t.Signed.IsZero() {
			t.Signed = next.Time.CurrentDate
		}
		next.Diplomacy.Treaties = append(next.Diplomacy.Treaties, t)
	case AddNotification:
		n := act.Notification
		if n.ID == "" {
			n.ID = r.newID()
		}
		next.Notifications = append(next.Notifications, n)
	case ClearNotifications:
		next.Notifications = nil
	case RecordAIMemory:
		if act.Country == "" {
			return s
		}
		if next.AIMemory == nil {
			next.AIMemory = map[string]AIMemory{}
		}
		m := act.Memory
		m.AllianceRejectedCount = max(0, m.AllianceRejectedCount)
		next.AIMemory[act.Country] = m
	case LoadGame:
		return act.State.Clone()
	case ResetGame:
		return New()
	default:
		return s
	}
	return next
}

func (r *Reducer) newID() string {
	if r.NewID == nil {
		return uuid.NewString()
	}
	return r.NewID()
}

func (r *Reducer) notify(s *State, kind, message, details string) {
	s.Notifications = append(s.Notifications, Notification{
		ID:        r.newID(),
		Type:      kind,
		Message:   message,
		Details:   details,
		Timestamp: s.Time.CurrentDate,
	})
}

func (r *Reducer) initialize(prev State, act InitializeGame) State {
	if r.Catalog == nil {
		return prev
	}
	era, ok := r.Catalog.Era(act.Era)
	if !ok {
		slog.Warn("initialize refused: unknown era", "era", act.Era)
		return prev
	}
	country, ok := r.Catalog.Country(act.Era, act.Country)
	if !ok {
		slog.Warn("initialize refused: unknown country", "era", act.Era, "country", act.Country)
		return prev
	}
	difficulty := act.Difficulty
	if !difficulty.Valid() {
		difficulty = DifficultyNormal
	}

	s := New()
	s.Meta.GameStarted = true
	s.Meta.Difficulty = difficulty
	s.Time.CurrentDate = era.StartDate
	s.Time.StartDate = era.StartDate
	s.Identity = Identity{Era: act.Era, PlayerCountry: act.Country}

	s.Resources = country.Resources
	s.Resources.Treasury = max(0, s.Resources.Treasury)
	s.Military = country.Military
	s.Military.Readiness = clamp(s.Military.Readiness, 0, 100)
	s.Research.PointsPerDay = country.ResearchRate
	s.Research.AvailableTech = append([]Technology(nil), era.Technologies...)

	for name, score := range country.InitialRelationships {
		s.Diplomacy.Relationships[name] = clamp(score, MinRelationship, MaxRelationship)
	}
	for name, nation := range era.AICountries {
		if name == act.Country {
			continue
		}
		s.AICountries[name] = nation
		s.AIMemory[name] = FreshMemory()
	}

	r.notify(&s, NotifyInfo,
		fmt.Sprintf("You now lead %s", act.Country),
		fmt.Sprintf("%s begins on %s", act.Era, format.Date(era.StartDate)))
	return s
}

func (r *Reducer) advanceTime(s *State, days int) {
	before := s.Resources.Treasury

	s.Time.DaysPassed += days
	s.Time.CurrentDate = s.Time.StartDate.AddDate(0, 0, s.Time.DaysPassed)

	net := (s.Resources.Income - s.Resources.Expenses) * float64(days)
	s.Resources.Treasury = max(0, before+net)
	s.Research.Points = max(0, s.Research.Points+s.Research.PointsPerDay*float64(days))

	if before >= LowTreasury && s.Resources.Treasury < LowTreasury {
		r.notify(s, NotifyWarning, "Treasury Running Low",
			"Consider increasing taxes or reducing expenses")
	}
}

func (r *Reducer) updateResources(s *State, act UpdateResources) {
	before := s.Resources.Treasury
	if act.Treasury != nil {
		s.Resources.Treasury = max(0, *act.Treasury)
	}
	if act.Income != nil {
		s.Resources.Income = *act.Income
	}
	if act.Expenses != nil {
		s.Resources.Expenses = *act.Expenses
	}
	if act.GDP != nil {
		s.Resources.GDP = *act.GDP
	}
	if before >= LowTreasury && s.Resources.Treasury < LowTreasury {
		r.notify(s, NotifyWarning, "Treasury Running Low",
			"Consider increasing taxes or reducing expenses")
	}
}

func (r *Reducer) updateMilitary(s *State, act UpdateMilitary) {
	old := s.Military
	if act.Army != nil {
		s.Military.Army = max(0, *act.Army)
	}
	if act.Navy != nil {
		s.Military.Navy = max(0, *act.Navy)
	}
	if act.AirForce != nil {
		s.Military.AirForce = max(0, *act.AirForce)
	}
	if act.Readiness != nil {
		s.Military.Readiness = clamp(*act.Readiness, 0, 100)
	}
	if act.IsMobilized != nil {
		s.Military.IsMobilized = *act.IsMobilized
	}

	r.recruited(s, "Army", old.Army, s.Military.Army)
	r.recruited(s, "Navy", old.Navy, s.Military.Navy)
	r.recruited(s, "Air Force", old.AirForce, s.Military.AirForce)
}

func (r *Reducer) recruited(s *State, branch string, before, after int) {
	if after <= before {
		return
	}
	r.notify(s, NotifyMilitary,
		fmt.Sprintf("%s Recruited", branch),
		fmt.Sprintf("%s new %s units have joined your forces", format.Number(after-before), branch))
}

func updateResearch(s *State, act UpdateResearch) {
	if act.Points != nil {
		s.Research.Points = max(0, *act.Points)
	}
	if act.PointsPerDay != nil {
		s.Research.PointsPerDay = *act.PointsPerDay
	}
	if act.ClearCurrent {
		s.Research.CurrentResearch = nil
	}
	if act.CurrentResearch != nil {
		t := *act.CurrentResearch
		s.Research.CurrentResearch = &t
	}
}

func (r *Reducer) updateMorale(s *State, delta int) {
	before := s.Morale.Current
	s.Morale.Current = clamp(before+delta, 0, 100)
	if before >= LowMorale && s.Morale.Current < LowMorale {
		r.notify(s, NotifyWarning, "Morale Declining", "Your population is becoming unhappy")
	}
}

// triggerEvent refuses an event that is already queued or resolved, so an
// id reaches eventHistory at most once whoever dispatches it.
func (r *Reducer) triggerEvent(s *State, ev Event) bool {
	if ev.ID == "" || s.Events.Seen(ev.ID) {
		return false
	}
	s.Events.ActiveEvents = append(s.Events.ActiveEvents, ev)
	s.Meta.IsPaused = true
	r.notify(s, NotifyEvent, ev.Title, "A new event requires your attention")
	return true
}

func (r *Reducer) makeDecision(s *State, act MakeDecision) bool {
	idx := -1
	for i, e := range s.Events.ActiveEvents {
		if e.ID == act.EventID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	ev := s.Events.ActiveEvents[idx]
	s.Events.ActiveEvents = append(s.Events.ActiveEvents[:idx:idx], s.Events.ActiveEvents[idx+1:]...)
	s.Events.EventHistory = append(s.Events.EventHistory, ResolvedEvent{
		Event:     ev,
		ChoiceID:  act.Choice.ID,
		Timestamp: s.Time.CurrentDate,
	})

	c := act.Choice.Consequences
	if c.Treasury != nil {
		s.Resources.Treasury = max(0, s.Resources.Treasury+*c.Treasury)
	}
	if c.Morale != nil {
		r.updateMorale(s, *c.Morale)
	}
	if c.Military != nil {
		s.Military.Army = max(0, s.Military.Army+c.Military.Army)
		s.Military.Navy = max(0, s.Military.Navy+c.Military.Navy)
		s.Military.AirForce = max(0, s.Military.AirForce+c.Military.AirForce)
		if c.Military.IsMobilized != nil {
			s.Military.IsMobilized = *c.Military.IsMobilized
		}
	}
	for country, delta := range c.Relationships {
		adjustRelationship(s, country, delta)
	}

	s.Meta.IsPaused = len(s.Events.ActiveEvents) > 0
	return true
}

func adjustRelationship(s *State, country string, change int) {
	if s.Diplomacy.Relationships == nil {
		s.Diplomacy.Relationships = map[string]int{}
	}
	cur := s.Diplomacy.Relationships[country]
	s.Diplomacy.Relationships[country] = clamp(cur+change, MinRelationship, MaxRelationship)
}

func (r *Reducer) completeResearch(s *State, tech Technology) bool {
	if tech.ID == "" || s.Research.HasCompleted(tech.ID) {
		return false
	}
	s.Research.CurrentResearch = nil
	s.Research.CompletedTech = append(s.Research.CompletedTech, tech)
	s.Research.Points = max(0, s.Research.Points-tech.Cost)
	if m, ok := tech.Effects["morale"]; ok {
		r.updateMorale(s, int(m))
	}
	r.notify(s, NotifyResearch,
		fmt.Sprintf("Research Completed: %s", tech.Name),
		"Your scientists have made a breakthrough!")
	return true
}

// declareWar adds country to the war set. Declaring war on an ally
// dissolves the alliance first so the two sets stay disjoint.
func (r *Reducer) declareWar(s *State, country string) bool {
	if country == "" || s.Diplomacy.AtWar(country) {
		return false
	}
	if s.Diplomacy.Allied(country) {
		s.Diplomacy.Alliances = remove(s.Diplomacy.Alliances, country)
	}
	s.Diplomacy.Wars = append(s.Diplomacy.Wars, country)
	if s.Diplomacy.Relationships == nil {
		s.Diplomacy.Relationships = map[string]int{}
	}
	s.Diplomacy.Relationships[country] = MinRelationship
	r.updateMorale(s, -10)
	r.notify(s, NotifyWar, "War Declared!", fmt.Sprintf("You are now at war with %s", country))
	return true
}

func (r *Reducer) allianceProposal(s *State, country string) bool {
	if country == "" || s.Diplomacy.Allied(country) || s.Events.PendingAlliance(country) {
		return false
	}
	s.Events.PendingDecisions = append(s.Events.PendingDecisions, PendingDecision{
		ID:        r.newID(),
		Type:      DecisionAlliance,
		Country:   country,
		Timestamp: s.Time.CurrentDate,
	})
	r.notify(s, NotifyDiplomacy, "Alliance Proposed",
		fmt.Sprintf("%s wishes to form an alliance with you", country))
	return true
}

// acceptAlliance refuses while at war with country.
func (r *Reducer) acceptAlliance(s *State, country string) bool {
	if country == "" || s.Diplomacy.AtWar(country) {
		return false
	}
	if !s.Diplomacy.Allied(country) {
		s.Diplomacy.Alliances = append(s.Diplomacy.Alliances, country)
	}
	adjustRelationship(s, country, 30)
	s.Events.PendingDecisions = removePending(s.Events.PendingDecisions, country)
	r.notify(s, NotifySuccess, "Alliance Formed", fmt.Sprintf("You are now allied with %s", country))
	return true
}

func (r *Reducer) rejectAlliance(s *State, country string) {
	adjustRelationship(s, country, -20)
	s.Events.PendingDecisions = removePending(s.Events.PendingDecisions, country)
	if _, ok := s.AICountries[country]; ok {
		if s.AIMemory == nil {
			s.AIMemory = map[string]AIMemory{}
		}
		m := s.MemoryFor(country)
		m.AllianceRejectedCount++
		s.AIMemory[country] = m
	}
	r.notify(s, NotifyDiplomacy, "Alliance Rejected",
		fmt.Sprintf("You declined the alliance offer from %s", country))
}

func (r *Reducer) breakAlliance(s *State, country string) bool {
	if !s.Diplomacy.Allied(country) {
		return false
	}
	s.Diplomacy.Alliances = remove(s.Diplomacy.Alliances, country)
	adjustRelationship(s, country, -40)
	r.notify(s, NotifyWar, "Alliance Broken",
		fmt.Sprintf("You broke your alliance with %s (-40 relations)", country))
	return true
}

func removePending(list []PendingDecision, country string) []PendingDecision {
	var out []PendingDecision
	for _, d := range list {
		if d.Country != country {
			out = append(out, d)
		}
	}
	return out
}

func remove(list []string, v string) []string {
	var out []string
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
