package game_test

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/alt-history/internal/data"
	"github.com/talgya/alt-history/internal/game"
)

func newReducer(t *testing.T) *game.Reducer {
	t.Helper()
	r := game.NewReducer(data.MustDefault())
	n := 0
	r.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return r
}

func started(t *testing.T, r *game.Reducer, country string) game.State {
	t.Helper()
	s := r.Reduce(game.New(), game.InitializeGame{Era: "World War II", Country: country, Difficulty: game.DifficultyNormal})
	require.True(t, s.Meta.GameStarted)
	return s
}

func eventByID(t *testing.T, id string) game.Event {
	t.Helper()
	for _, ev := range data.MustDefault().Events("World War II") {
		if ev.ID == id {
			return ev
		}
	}
	t.Fatalf("no event %s", id)
	return game.Event{}
}

func ptr[T any](v T) *T { return &v }

func count(ns []game.Notification, kind string) int {
	n := 0
	for _, x := range ns {
		if x.Type == kind {
			n++
		}
	}
	return n
}

func TestInitializeGermany(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "Germany")

	assert.Equal(t, 50000.0, s.Resources.Treasury)
	assert.Equal(t, 4500000, s.Military.Army)
	assert.Equal(t, -80, s.Diplomacy.Relationships["Soviet Union"])
	assert.Equal(t, time.Date(1939, 9, 1, 0, 0, 0, 0, time.UTC), s.Time.CurrentDate)
	assert.Equal(t, s.Time.StartDate, s.Time.CurrentDate)
	assert.Equal(t, 15.0, s.Research.PointsPerDay)
	assert.Len(t, s.Research.AvailableTech, 8)
	assert.Equal(t, "Germany", s.Identity.PlayerCountry)

	assert.NotContains(t, s.AICountries, "Germany")
	assert.Contains(t, s.AICountries, "Soviet Union")
	assert.Equal(t, game.FreshMemory(), s.AIMemory["Italy"])
	assert.Len(t, s.Notifications, 1)
}

func TestInitializeUnknownEraOrCountryIsNoop(t *testing.T) {
	r := newReducer(t)
	in := game.New()

	assert.Equal(t, in, r.Reduce(in, game.InitializeGame{Era: "Bronze Age", Country: "Germany"}))
	assert.Equal(t, in, r.Reduce(in, game.InitializeGame{Era: "World War II", Country: "Atlantis"}))
}

func TestAdvanceTimeWarnsOnceOnLowTreasury(t *testing.T) {
	r := newReducer(t)
	s := game.New()
	s.Resources = game.Resources{Treasury: 1500, Income: 100, Expenses: 200}

	s = r.Reduce(s, game.AdvanceTime{Days: 10})

	assert.Equal(t, 500.0, s.Resources.Treasury)
	assert.Equal(t, 10, s.Time.DaysPassed)
	assert.Equal(t, 1, count(s.Notifications, game.NotifyWarning))

	s = r.Reduce(s, game.AdvanceTime{Days: 5})
	assert.Equal(t, 0.0, s.Resources.Treasury)
	assert.Equal(t, 1, count(s.Notifications, game.NotifyWarning), "already below threshold")
}

func TestAdvanceTimeClampsTreasuryAtZero(t *testing.T) {
	r := newReducer(t)
	s := game.New()
	s.Resources = game.Resources{Treasury: 1500, Income: 100, Expenses: 300}

	s = r.Reduce(s, game.AdvanceTime{Days: 10})

	assert.Equal(t, 0.0, s.Resources.Treasury)
	assert.Equal(t, 1, count(s.Notifications, game.NotifyWarning))
}

func TestAdvanceTimeMovesClockAndResearch(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "Germany")

	s = r.Reduce(s, game.AdvanceTime{Days: 30})

	assert.Equal(t, 30, s.Time.DaysPassed)
	assert.Equal(t, s.Time.StartDate.AddDate(0, 0, 30), s.Time.CurrentDate)
	assert.Equal(t, 450.0, s.Research.Points)
	assert.Equal(t, 50000.0+500*30, s.Resources.Treasury)

	assert.Equal(t, s, r.Reduce(s, game.AdvanceTime{Days: 0}))
	assert.Equal(t, s, r.Reduce(s, game.AdvanceTime{Days: -3}))
}

func TestUpdateRelationshipClamps(t *testing.T) {
	r := newReducer(t)
	s := r.Reduce(game.New(), game.UpdateRelationship{Country: "France", Change: 150})
	assert.Equal(t, 100, s.Diplomacy.Relationships["France"])

	s = r.Reduce(s, game.UpdateRelationship{Country: "France", Change: -500})
	assert.Equal(t, -100, s.Diplomacy.Relationships["France"])
}

func TestDeclareWarTwiceIsIdempotent(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "United States")

	s = r.Reduce(s, game.DeclareWar{Country: "Japan"})
	once := s
	s = r.Reduce(s, game.DeclareWar{Country: "Japan"})

	assert.Equal(t, []string{"Japan"}, s.Diplomacy.Wars)
	assert.Equal(t, -100, s.Diplomacy.Relationships["Japan"])
	assert.Equal(t, once, s)
}

func TestDeclareWarOnAllyDissolvesAlliance(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "United States")
	s = r.Reduce(s, game.AcceptAlliance{Country: "United Kingdom"})
	require.True(t, s.Diplomacy.Allied("United Kingdom"))

	s = r.Reduce(s, game.DeclareWar{Country: "United Kingdom"})

	assert.True(t, s.Diplomacy.AtWar("United Kingdom"))
	assert.False(t, s.Diplomacy.Allied("United Kingdom"))
}

func TestAcceptAllianceRefusedWhileAtWar(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "United States")
	s = r.Reduce(s, game.DeclareWar{Country: "Japan"})

	after := r.Reduce(s, game.AcceptAlliance{Country: "Japan"})
	assert.Equal(t, s, after)
}

func TestAllianceProposalFlow(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "United States")

	s = r.Reduce(s, game.AllianceProposal{Country: "France"})
	s = r.Reduce(s, game.AllianceProposal{Country: "France"})
	require.Len(t, s.Events.PendingDecisions, 1)
	assert.Equal(t, game.DecisionAlliance, s.Events.PendingDecisions[0].Type)

	s = r.Reduce(s, game.AcceptAlliance{Country: "France"})
	assert.Empty(t, s.Events.PendingDecisions)
	assert.Equal(t, []string{"France"}, s.Diplomacy.Alliances)
	assert.Equal(t, 100, s.Diplomacy.Relationships["France"])

	s = r.Reduce(s, game.AcceptAlliance{Country: "France"})
	assert.Equal(t, []string{"France"}, s.Diplomacy.Alliances)

	before := s
	assert.Equal(t, before, r.Reduce(s, game.AllianceProposal{Country: "France"}), "already allied")
}

func TestRejectAllianceCountsRejections(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "United States")
	s = r.Reduce(s, game.AllianceProposal{Country: "Soviet Union"})

	s = r.Reduce(s, game.RejectAlliance{Country: "Soviet Union"})

	assert.Empty(t, s.Events.PendingDecisions)
	assert.Equal(t, 0, s.Diplomacy.Relationships["Soviet Union"])
	assert.Equal(t, 1, s.AIMemory["Soviet Union"].AllianceRejectedCount)
}

func TestBreakAlliance(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "United States")
	assert.Equal(t, s, r.Reduce(s, game.BreakAlliance{Country: "France"}), "not allied")

	s = r.Reduce(s, game.AcceptAlliance{Country: "France"})
	s = r.Reduce(s, game.BreakAlliance{Country: "France"})
	assert.Empty(t, s.Diplomacy.Alliances)
	assert.Equal(t, 60, s.Diplomacy.Relationships["France"])
}

func TestTriggerAndDecidePauses(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "Germany")
	poland, barbarossa := eventByID(t, "invasion_of_poland"), eventByID(t, "operation_barbarossa")

	s = r.Reduce(s, game.TriggerEvent{Event: poland})
	s = r.Reduce(s, game.TriggerEvent{Event: barbarossa})
	assert.True(t, s.Meta.IsPaused)

	choice, _ := poland.Choice("stay_neutral")
	s = r.Reduce(s, game.MakeDecision{EventID: poland.ID, Choice: choice})
	assert.True(t, s.Meta.IsPaused, "one event still active")
	assert.Equal(t, 95, s.Morale.Current)

	choice, _ = barbarossa.Choice("defend")
	s = r.Reduce(s, game.MakeDecision{EventID: barbarossa.ID, Choice: choice})
	assert.False(t, s.Meta.IsPaused)
	assert.Empty(t, s.Events.ActiveEvents)
	assert.Len(t, s.Events.EventHistory, 2)
	assert.Equal(t, 4000000, s.Military.Army)
	assert.Equal(t, 75, s.Morale.Current)

	assert.Equal(t, s, r.Reduce(s, game.MakeDecision{EventID: poland.ID, Choice: choice}), "not active")
}

func TestTriggerEventRefusesSeenIDs(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "Germany")
	poland := eventByID(t, "invasion_of_poland")

	s = r.Reduce(s, game.TriggerEvent{Event: poland})
	assert.Equal(t, s, r.Reduce(s, game.TriggerEvent{Event: poland}), "already active")

	choice, _ := poland.Choice("stay_neutral")
	s = r.Reduce(s, game.MakeDecision{EventID: poland.ID, Choice: choice})
	assert.Equal(t, s, r.Reduce(s, game.TriggerEvent{Event: poland}), "already resolved")
	assert.Len(t, s.Events.EventHistory, 1)

	assert.Equal(t, s, r.Reduce(s, game.TriggerEvent{Event: game.Event{Title: "Nameless"}}))
}

func TestMakeDecisionClampsMilitary(t *testing.T) {
	r := newReducer(t)
	s := game.New()
	ev := game.Event{ID: "e", Choices: []game.Choice{{
		ID: "c",
		Consequences: game.Consequences{
			Treasury: ptr(-100.0),
			Military: &game.MilitaryDelta{Army: -10, IsMobilized: ptr(true)},
		},
	}}}
	s = r.Reduce(s, game.TriggerEvent{Event: ev})
	s = r.Reduce(s, game.MakeDecision{EventID: "e", Choice: ev.Choices[0]})

	assert.Equal(t, 0, s.Military.Army)
	assert.True(t, s.Military.IsMobilized)
	assert.Equal(t, 0.0, s.Resources.Treasury)
}

func TestCompleteResearch(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "Germany")
	pen := s.Research.AvailableTech[6]
	require.Equal(t, "ww2_penicillin", pen.ID)

	s = r.Reduce(s, game.UpdateMorale{Delta: -50})
	s = r.Reduce(s, game.UpdateResearch{Points: ptr(40.0), CurrentResearch: &pen})
	s = r.Reduce(s, game.CompleteResearch{Tech: pen})

	assert.Equal(t, 0.0, s.Research.Points, "clamped at zero")
	assert.Nil(t, s.Research.CurrentResearch)
	assert.True(t, s.Research.HasCompleted(pen.ID))
	assert.Equal(t, 60, s.Morale.Current)
	assert.Len(t, s.Research.Remaining(), 7)

	assert.Equal(t, s, r.Reduce(s, game.CompleteResearch{Tech: pen}), "already completed")
}

func TestMoraleWarningOnDownwardCrossing(t *testing.T) {
	r := newReducer(t)
	s := game.New()
	s = r.Reduce(s, game.UpdateMorale{Delta: -60})
	assert.Equal(t, 0, count(s.Notifications, game.NotifyWarning))
	s = r.Reduce(s, game.UpdateMorale{Delta: -20})
	assert.Equal(t, 1, count(s.Notifications, game.NotifyWarning))
	s = r.Reduce(s, game.UpdateMorale{Delta: -200})
	assert.Equal(t, 0, s.Morale.Current)
	assert.Equal(t, 1, count(s.Notifications, game.NotifyWarning))
}

func TestUpdateMilitaryRecruitmentNotice(t *testing.T) {
	r := newReducer(t)
	s := game.New()
	s = r.Reduce(s, game.UpdateMilitary{Army: ptr(1500), Readiness: ptr(250)})

	assert.Equal(t, 100, s.Military.Readiness)
	require.Len(t, s.Notifications, 1)
	assert.Contains(t, s.Notifications[0].Details, "1,500")

	s = r.Reduce(s, game.UpdateMilitary{Army: ptr(-5)})
	assert.Equal(t, 0, s.Military.Army)
}

func TestSpeedPauseAndNotifications(t *testing.T) {
	r := newReducer(t)
	s := game.New()

	s = r.Reduce(s, game.SetSpeed{Speed: 10})
	assert.Equal(t, 10, s.Meta.Speed)
	assert.Equal(t, s, r.Reduce(s, game.SetSpeed{Speed: 0}))

	s = r.Reduce(s, game.PauseGame{})
	assert.True(t, s.Meta.IsPaused)
	s = r.Reduce(s, game.ResumeGame{})
	assert.False(t, s.Meta.IsPaused)

	s = r.Reduce(s, game.AddNotification{Notification: game.Notification{Type: game.NotifyInfo, Message: "hi"}})
	require.Len(t, s.Notifications, 1)
	assert.NotEmpty(t, s.Notifications[0].ID)
	s = r.Reduce(s, game.ClearNotifications{})
	assert.Empty(t, s.Notifications)
}

func TestSignTreatyAndMemory(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "Italy")

	s = r.Reduce(s, game.SignTreaty{Treaty: game.Treaty{Kind: "trade", Country: "Japan"}})
	require.Len(t, s.Diplomacy.Treaties, 1)
	assert.Equal(t, s.Time.CurrentDate, s.Diplomacy.Treaties[0].Signed)

	m := game.FreshMemory()
	m.LastThreat = 30
	s = r.Reduce(s, game.RecordAIMemory{Country: "Japan", Memory: m})
	assert.Equal(t, 30, s.MemoryFor("Japan").LastThreat)
	assert.Equal(t, game.FreshMemory(), s.MemoryFor("Nowhere"))
}

func TestLoadAndReset(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "Japan")
	s = r.Reduce(s, game.AdvanceTime{Days: 3})

	loaded := r.Reduce(game.New(), game.LoadGame{State: s})
	assert.Equal(t, s, loaded)

	assert.Equal(t, game.New(), r.Reduce(s, game.ResetGame{}))
}

func TestNilActionReturnsInput(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "Japan")
	assert.Equal(t, s, r.Reduce(s, nil))
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	r := newReducer(t)
	s := started(t, r, "United Kingdom")
	s = r.Reduce(s, game.AllianceProposal{Country: "France"})
	snapshot := s.Clone()

	actions := []game.Action{
		game.DeclareWar{Country: "Germany"},
		game.AcceptAlliance{Country: "France"},
		game.UpdateRelationship{Country: "Italy", Change: 10},
		game.AddNotification{Notification: game.Notification{Message: "x"}},
		game.RecordAIMemory{Country: "Germany", Memory: game.AIMemory{LastThreat: 5}},
		game.CompleteResearch{Tech: s.Research.AvailableTech[0]},
		game.ClearNotifications{},
	}
	for _, a := range actions {
		_ = r.Reduce(s, a)
		assert.Equal(t, snapshot, s, "mutated by %s", a.Kind())
	}
}

func TestClampInvariantsHoldForRandomSequences(t *testing.T) {
	r := newReducer(t)
	rng := rand.New(rand.NewPCG(1, 2))
	countries := []string{"France", "Japan", "Italy", "Germany"}

	for run := 0; run < 20; run++ {
		s := started(t, r, "United Kingdom")
		for step := 0; step < 200; step++ {
			c := countries[rng.IntN(len(countries))]
			var a game.Action
			switch rng.IntN(9) {
			case 0:
				a = game.AdvanceTime{Days: rng.IntN(60)}
			case 1:
				a = game.UpdateMorale{Delta: rng.IntN(300) - 150}
			case 2:
				a = game.UpdateRelationship{Country: c, Change: rng.IntN(400) - 200}
			case 3:
				a = game.UpdateMilitary{Readiness: ptr(rng.IntN(400) - 200), Army: ptr(rng.IntN(2000) - 1000)}
			case 4:
				a = game.UpdateResources{Treasury: ptr(float64(rng.IntN(20000) - 10000)), Expenses: ptr(float64(rng.IntN(10000)))}
			case 5:
				a = game.DeclareWar{Country: c}
			case 6:
				a = game.AcceptAlliance{Country: c}
			case 7:
				a = game.AllianceProposal{Country: c}
			case 8:
				a = game.BreakAlliance{Country: c}
			}
			s = r.Reduce(s, a)

			require.GreaterOrEqual(t, s.Morale.Current, 0)
			require.LessOrEqual(t, s.Morale.Current, 100)
			require.GreaterOrEqual(t, s.Military.Readiness, 0)
			require.LessOrEqual(t, s.Military.Readiness, 100)
			require.GreaterOrEqual(t, s.Resources.Treasury, 0.0)
			require.GreaterOrEqual(t, s.Research.Points, 0.0)
			for _, v := range s.Diplomacy.Relationships {
				require.GreaterOrEqual(t, v, -100)
				require.LessOrEqual(t, v, 100)
			}
			for _, w := range s.Diplomacy.Wars {
				require.False(t, s.Diplomacy.Allied(w), "%s both ally and enemy", w)
			}
			require.Equal(t, s.Time.StartDate.AddDate(0, 0, s.Time.DaysPassed), s.Time.CurrentDate)
		}
	}
}
