package ai

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/alt-history/internal/entropy"
	"github.com/talgya/alt-history/internal/game"
)

// stateWithStrength returns a player state whose PlayerStrength equals ps.
func stateWithStrength(ps float64) game.State {
	s := game.New()
	s.Meta.GameStarted = true
	s.Identity = game.Identity{Era: "Test", PlayerCountry: "Player"}
	s.Resources.GDP = ps * 500
	s.Resources.Treasury = 50000
	return s
}

func TestPlayerStrength(t *testing.T) {
	s := game.New()
	s.Military = game.Military{Army: 1000, Navy: 1, AirForce: 10, Readiness: 50}
	s.Resources.GDP = 5000
	s.Morale.Current = 50
	assert.InDelta(t, 705.0, PlayerStrength(s), 1e-9)

	s.Morale.Current = 10
	assert.InDelta(t, 1410*0.3, PlayerStrength(s), 1e-9)

	assert.Equal(t, 1.0, PlayerStrength(game.New()), "floored")
}

func TestPick(t *testing.T) {
	assert.Equal(t, Wait, Pick(Weights{}, 0.5))

	w := BaseWeights(game.Aggressive)
	assert.Equal(t, DeclareWar, Pick(w, 0))
	assert.Equal(t, BuildMilitary, Pick(w, 0.5))
	assert.Equal(t, Research, Pick(w, 0.95))
	assert.Equal(t, Research, Pick(w, 0.999999))
}

func TestBaseWeightsAreCopies(t *testing.T) {
	w := BaseWeights(game.Defensive)
	w[Fortify] = 9
	assert.Equal(t, 0.1, BaseWeights(game.Defensive)[Fortify])
	assert.Equal(t, BaseWeights(game.Opportunistic), BaseWeights("unknown"))
}

func TestFriendlyNationFavoursAlliance(t *testing.T) {
	s := stateWithStrength(50)
	s.Diplomacy.Relationships["Friend"] = 60

	w := Weigh("Friend", game.AINation{Personality: game.Defensive, Strength: 50}, s)

	assert.InDelta(t, 0.5, w[SeekAlliance], 1e-9)
	assert.Zero(t, w[DeclareWar])
	assert.Zero(t, w[Threaten])
}

func TestHostileWeakerNationBuildsUp(t *testing.T) {
	s := stateWithStrength(50)
	s.Diplomacy.Relationships["Rival"] = -60

	w := Weigh("Rival", game.AINation{Personality: game.Aggressive, Strength: 50}, s)

	assert.Zero(t, w[DeclareWar])
	assert.Zero(t, w[Threaten])
	assert.InDelta(t, 0.9, w[BuildMilitary], 1e-9)
}

func TestHostileStrongerNationMayAttack(t *testing.T) {
	s := stateWithStrength(50)
	s.Diplomacy.Relationships["Rival"] = -60

	w := Weigh("Rival", game.AINation{Personality: game.Aggressive, Strength: 85}, s)

	assert.InDelta(t, 0.6, w[DeclareWar], 1e-9, "base + hostile band")
}

func TestVulnerablePlayerDrawsAggression(t *testing.T) {
	nation := game.AINation{Personality: game.Aggressive, Strength: 85}
	s := stateWithStrength(50)
	s.Diplomacy.Relationships["Rival"] = -30

	calm := Weigh("Rival", nation, s)
	s.Resources.Treasury = 1000
	broke := Weigh("Rival", nation, s)

	assert.InDelta(t, 0.3, calm[DeclareWar], 1e-9)
	assert.InDelta(t, 0.8, broke[DeclareWar], 1e-9)
}

func TestOpportunistJoinsPileOn(t *testing.T) {
	nation := game.AINation{Personality: game.Opportunistic, Strength: 50}
	s := stateWithStrength(50)
	s.Diplomacy.Relationships["Jackal"] = -30
	s.Diplomacy.Wars = []string{"A", "B"}

	w := Weigh("Jackal", nation, s)
	assert.InDelta(t, 0.25, w[DeclareWar], 1e-9)
}

func TestAtWarNationDigsIn(t *testing.T) {
	s := stateWithStrength(50)
	s.Diplomacy.Relationships["Enemy"] = -100
	s.Diplomacy.Wars = []string{"Enemy"}

	w := Weigh("Enemy", game.AINation{Personality: game.Aggressive, Strength: 95}, s)

	assert.Zero(t, w[DeclareWar])
	assert.Zero(t, w[SeekAlliance])
	assert.Zero(t, w[Threaten])
	assert.InDelta(t, 0.2, w[Fortify], 1e-9)
}

func TestAllyNeverSeeksAlliance(t *testing.T) {
	e := New(entropy.NewSeeded(1234))
	rng := rand.New(rand.NewPCG(5, 6))
	personalities := []game.Personality{game.Aggressive, game.Defensive, game.Opportunistic}

	for i := 0; i < 1000; i++ {
		s := stateWithStrength(1 + rng.Float64()*150)
		s.Morale.Current = rng.IntN(101)
		s.Resources.Treasury = rng.Float64() * 20000
		s.Diplomacy.Relationships["Ally"] = rng.IntN(201) - 100
		s.Diplomacy.Alliances = []string{"Ally"}
		nation := game.AINation{
			Personality: personalities[rng.IntN(len(personalities))],
			Strength:    rng.Float64() * 100,
		}

		d := e.Decide("Ally", nation, s)
		require.NotEqual(t, SeekAlliance, d.Action, "trial %d", i)
	}
}

func TestCooldownsGateActions(t *testing.T) {
	e := New(entropy.NewSeeded(99))
	nation := game.AINation{Personality: game.Aggressive, Strength: 95}

	s := stateWithStrength(50)
	s.Time.DaysPassed = 100
	s.Diplomacy.Relationships["Rival"] = -60
	s.AICountries["Rival"] = nation
	s.AIMemory["Rival"] = game.AIMemory{
		LastWarDeclaration:   100 - WarCooldown + 1,
		LastThreat:           100 - ThreatCooldown + 1,
		LastAllianceProposal: game.NeverHappened,
	}

	w := Weigh("Rival", nation, s)
	assert.Zero(t, w[DeclareWar])
	assert.Zero(t, w[Threaten])

	for i := 0; i < 500; i++ {
		a := e.Decide("Rival", nation, s).Action
		require.NotEqual(t, DeclareWar, a)
		require.NotEqual(t, Threaten, a)
	}

	s.AIMemory["Rival"] = game.FreshMemory()
	assert.Positive(t, Weigh("Rival", nation, s)[DeclareWar])
}

func TestAllianceCooldownAndRejections(t *testing.T) {
	nation := game.AINation{Personality: game.Defensive, Strength: 50}
	s := stateWithStrength(50)
	s.Time.DaysPassed = 200
	s.Diplomacy.Relationships["Friend"] = 70

	m := game.FreshMemory()
	m.LastAllianceProposal = 150
	s.AIMemory["Friend"] = m
	assert.Zero(t, Weigh("Friend", nation, s)[SeekAlliance])

	m = game.FreshMemory()
	m.AllianceRejectedCount = MaxRejections
	s.AIMemory["Friend"] = m
	assert.Zero(t, Weigh("Friend", nation, s)[SeekAlliance])

	s.AIMemory["Friend"] = game.FreshMemory()
	s.Events.PendingDecisions = []game.PendingDecision{{Type: game.DecisionAlliance, Country: "Friend"}}
	assert.Zero(t, Weigh("Friend", nation, s)[SeekAlliance])
}

func TestDecideStampsMemory(t *testing.T) {
	nation := game.AINation{Personality: game.Aggressive, Strength: 85}
	s := stateWithStrength(50)
	s.Time.DaysPassed = 60
	s.Diplomacy.Relationships["Rival"] = -60

	d := New(entropy.NewFixed(0)).Decide("Rival", nation, s)

	require.Equal(t, DeclareWar, d.Action)
	assert.Equal(t, 60, d.Memory.LastWarDeclaration)
	assert.Equal(t, game.NeverHappened, d.Memory.LastThreat)
	assert.Equal(t, 60, d.Day)
}
