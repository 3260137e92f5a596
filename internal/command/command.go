// Package command turns player orders from the management screens into
// reducer actions. Orders the player cannot afford, or that make no sense
// in the current state, are refused with a warning notification and
// nothing else changes.
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/alt-history/internal/ai"
	"github.com/talgya/alt-history/internal/format"
	"github.com/talgya/alt-history/internal/game"
)

// Name identifies a player order.
type Name string

const (
	Recruit         Name = "recruit"
	Mobilize        Name = "mobilize"
	Demobilize      Name = "demobilize"
	SetTaxes        Name = "set_taxes"
	Invest          Name = "invest"
	StartResearch   Name = "start_research"
	Gift            Name = "gift"
	Trade           Name = "trade"
	ProposeAlliance Name = "propose_alliance"
	BreakAlliance   Name = "break_alliance"
	NonAggression   Name = "non_aggression"
	Spy             Name = "spy"
	Threaten        Name = "threaten"
	Embargo         Name = "embargo"
	DeclareWar      Name = "declare_war"
	AcceptAlliance  Name = "accept_alliance"
	RejectAlliance  Name = "reject_alliance"
)

// Prices and effects.
const (
	RecruitCostPerUnit = 10
	MaxRecruit         = 1_000_000 // units per order
	MobilizationUpkeep = 1000      // added to daily expenses while mobilized

	GiftCost          = 2500
	TradeCost         = 1500
	AllianceCost      = 3000
	NonAggressionCost = 2000
	SpyCost           = 1000

	TradeIncome     = 150
	EmbargoIncome   = -100
	AllianceMinimum = 30 // relationship needed before an alliance is considered
	BaselineTaxRate = 50
	MinIncome       = 100
)

// Military branches accepted by Recruit.
const (
	Army     = "army"
	Navy     = "navy"
	AirForce = "airForce"
)

// Treaty kinds recorded by diplomacy orders.
const (
	TreatyTrade         = "trade"
	TreatyNonAggression = "non_aggression"
)

// Command is one player order. Fields not used by Name are ignored.
type Command struct {
	Name    Name    `json:"name"`
	Country string  `json:"country,omitempty"`
	Branch  string  `json:"branch,omitempty"`
	Amount  float64 `json:"amount,omitempty"` // units for recruit, money for invest
	Rate    int     `json:"rate,omitempty"`   // tax rate 0–100
	TechID  string  `json:"techId,omitempty"`
}

// ErrNoGame is returned for orders given before a game starts.
var ErrNoGame = errors.New("no game in progress")

// Refusal is an order the game turned down. It is shown to the player as
// a warning notification.
type Refusal struct {
	Title   string
	Details string
}

func (r *Refusal) Error() string { return r.Title + ": " + r.Details }

func refuse(title, msg string, args ...any) *Refusal {
	return &Refusal{Title: title, Details: fmt.Sprintf(msg, args...)}
}

// Dispatcher applies a plan atomically against the state it was planned
// on. *engine.Store satisfies it.
type Dispatcher interface {
	Update(plan func(game.State) []game.Action) game.State
}

// Run plans c against the current state and applies the result in the
// same transition, so no tick can land between the two. A refused order
// applies only its warning notification.
func Run(d Dispatcher, c Command) (game.State, error) {
	var err error
	st := d.Update(func(s game.State) []game.Action {
		var actions []game.Action
		actions, err = Plan(s, c)

		var ref *Refusal
		if errors.As(err, &ref) {
			return []game.Action{game.AddNotification{Notification: game.Notification{
				Type:      game.NotifyWarning,
				Message:   ref.Title,
				Details:   ref.Details,
				Country:   c.Country,
				Timestamp: s.Time.CurrentDate,
			}}}
		}
		if err != nil {
			return nil
		}
		return actions
	})

	var ref *Refusal
	switch {
	case errors.As(err, &ref):
		slog.Warn("command refused", "command", c.Name, "country", c.Country, "reason", ref.Title)
	case err == nil:
		slog.Debug("command", "command", c.Name, "country", c.Country)
	}
	return st, err
}

// Plan returns the actions that carry out c in state s.
func Plan(s game.State, c Command) ([]game.Action, error) {
	if !s.Meta.GameStarted {
		return nil, ErrNoGame
	}
	p := planner{s: s, c: c}

	switch c.Name {
	case Recruit:
		return p.recruit()
	case Mobilize:
		return p.mobilize(true)
	case Demobilize:
		return p.mobilize(false)
	case SetTaxes:
		return p.setTaxes()
	case Invest:
		return p.invest()
	case StartResearch:
		return p.startResearch()
	case Gift, Trade, ProposeAlliance, BreakAlliance, NonAggression,
		Spy, Threaten, Embargo, DeclareWar, AcceptAlliance, RejectAlliance:
		if err := p.checkCountry(); err != nil {
			return nil, err
		}
		return p.diplomacy()
	}
	return nil, fmt.Errorf("unknown command %q", c.Name)
}

type planner struct {
	s game.State
	c Command
}

func (p planner) afford(cost float64) error {
	if cost > p.s.Resources.Treasury {
		return refuse("Insufficient Funds", "Need %s for this action", format.Currency(cost))
	}
	return nil
}

func (p planner) spend(cost float64) game.Action {
	return game.UpdateResources{Treasury: ptr(p.s.Resources.Treasury - cost)}
}

func (p planner) note(kind, message, details string) game.Action {
	return game.AddNotification{Notification: game.Notification{
		Type:      kind,
		Message:   message,
		Details:   details,
		Country:   p.c.Country,
		Timestamp: p.s.Time.CurrentDate,
	}}
}

func (p planner) recruit() ([]game.Action, error) {
	if p.c.Amount < 1 {
		return nil, refuse("Invalid Order", "Recruit at least one unit")
	}
	if p.c.Amount > MaxRecruit {
		return nil, refuse("Invalid Order", "At most %s units per order", format.Number(MaxRecruit))
	}
	units := int(p.c.Amount)
	cost := float64(units) * RecruitCostPerUnit
	if err := p.afford(cost); err != nil {
		return nil, err
	}

	m := p.s.Military
	var update game.UpdateMilitary
	switch p.c.Branch {
	case Army:
		update.Army = ptr(m.Army + units)
	case Navy:
		update.Navy = ptr(m.Navy + units)
	case AirForce:
		update.AirForce = ptr(m.AirForce + units)
	default:
		return nil, refuse("Invalid Order", "Unknown branch %q", p.c.Branch)
	}
	return []game.Action{update, p.spend(cost)}, nil
}

func (p planner) mobilize(on bool) ([]game.Action, error) {
	m, r := p.s.Military, p.s.Resources
	if m.IsMobilized == on {
		if on {
			return nil, refuse("Already Mobilized", "The nation is already on a war footing")
		}
		return nil, refuse("Not Mobilized", "The nation is already at peace footing")
	}

	if on {
		return []game.Action{
			game.UpdateMilitary{IsMobilized: ptr(true), Readiness: ptr(100)},
			game.UpdateResources{Expenses: ptr(r.Expenses + MobilizationUpkeep)},
			p.note(game.NotifyMilitary, "General Mobilization",
				fmt.Sprintf("Forces on war footing, expenses +%s/day", format.Currency(MobilizationUpkeep))),
		}, nil
	}
	return []game.Action{
		game.UpdateMilitary{IsMobilized: ptr(false), Readiness: ptr(50)},
		game.UpdateResources{Expenses: ptr(math.Max(0, r.Expenses-MobilizationUpkeep))},
		p.note(game.NotifyMilitary, "Demobilization", "Forces returned to peacetime footing"),
	}, nil
}

func (p planner) setTaxes() ([]game.Action, error) {
	rate := p.c.Rate
	if rate < 0 || rate > 100 {
		return nil, refuse("Invalid Order", "Tax rate must be between 0 and 100")
	}
	diff := float64(rate - BaselineTaxRate)
	income := math.Max(MinIncome, p.s.Resources.Income+diff/BaselineTaxRate*1000)
	morale := int(math.Round(-diff / 5))

	return []game.Action{
		game.UpdateResources{Income: ptr(income)},
		game.UpdateMorale{Delta: morale},
		p.note(game.NotifyEconomy, "Tax Policy Changed",
			fmt.Sprintf("Tax rate set to %d%%: income %s/day, morale %+d", rate, format.Currency(income), morale)),
	}, nil
}

func (p planner) invest() ([]game.Action, error) {
	amount := p.c.Amount
	if amount <= 0 {
		return nil, refuse("Invalid Order", "Investment must be positive")
	}
	if err := p.afford(amount); err != nil {
		return nil, err
	}
	r := p.s.Resources
	return []game.Action{
		game.UpdateResources{
			Treasury: ptr(r.Treasury - amount),
			GDP:      ptr(r.GDP + amount*2),
			Income:   ptr(r.Income + amount*0.1),
		},
		p.note(game.NotifyEconomy, "Industrial Investment",
			fmt.Sprintf("Invested %s: GDP +%s", format.Currency(amount), format.Currency(amount*2))),
	}, nil
}

func (p planner) startResearch() ([]game.Action, error) {
	if cur := p.s.Research.CurrentResearch; cur != nil {
		return nil, refuse("Research In Progress", "Already researching %s", cur.Name)
	}
	for _, t := range p.s.Research.Remaining() {
		if t.ID == p.c.TechID {
			return []game.Action{
				game.UpdateResearch{CurrentResearch: &t},
				p.note(game.NotifyResearch, "Research Started",
					fmt.Sprintf("%s (%s points)", t.Name, format.Float(t.Cost))),
			}, nil
		}
	}
	return nil, refuse("Unknown Technology", "%q is not available for research", p.c.TechID)
}

func (p planner) checkCountry() error {
	country := p.c.Country
	switch {
	case country == "":
		return refuse("No Country Selected", "Choose a nation first")
	case country == p.s.Identity.PlayerCountry:
		return refuse("Invalid Target", "You cannot target your own nation")
	}
	_, known := p.s.AICountries[country]
	if _, rel := p.s.Diplomacy.Relationships[country]; !known && !rel {
		return refuse("Unknown Country", "%s is not part of this era", country)
	}
	return nil
}

// reaction describes how an AI nation receives an overture.
func (p planner) reaction(o ai.Overture) ai.Response {
	nation, ok := p.s.AICountries[p.c.Country]
	if !ok {
		return ai.Ignore
	}
	return ai.Respond(nation.Personality, o)
}

func (p planner) diplomacy() ([]game.Action, error) {
	s, country := p.s, p.c.Country
	dip := s.Diplomacy
	rel := func(change int) game.Action {
		return game.UpdateRelationship{Country: country, Change: change}
	}

	switch p.c.Name {
	case Gift:
		if err := p.afford(GiftCost); err != nil {
			return nil, err
		}
		return []game.Action{
			rel(15),
			p.spend(GiftCost),
			p.note(game.NotifyDiplomacy, "Gift to "+country,
				fmt.Sprintf("Sent %s as goodwill gesture (+15 relations), reaction: %s",
					format.Currency(GiftCost), p.reaction(ai.Gift))),
		}, nil

	case Trade:
		if err := p.afford(TradeCost); err != nil {
			return nil, err
		}
		return []game.Action{
			rel(10),
			game.UpdateResources{
				Treasury: ptr(s.Resources.Treasury - TradeCost),
				Income:   ptr(s.Resources.Income + TradeIncome),
			},
			game.SignTreaty{Treaty: game.Treaty{Kind: TreatyTrade, Country: country}},
			p.note(game.NotifySuccess, "Trade Agreement",
				fmt.Sprintf("Trade deal with %s: +%s income (+10 relations), reaction: %s",
					country, format.Currency(TradeIncome), p.reaction(ai.Trade))),
		}, nil

	case ProposeAlliance:
		if dip.Allied(country) {
			return nil, refuse("Already Allied", "You are already allied with %s", country)
		}
		if dip.AtWar(country) {
			return nil, refuse("At War", "Make peace with %s before proposing an alliance", country)
		}
		if err := p.afford(AllianceCost); err != nil {
			return nil, err
		}
		if dip.Relationship(country) < AllianceMinimum {
			return p.allianceRejected("relations too low"), nil
		}
		if r := p.reaction(ai.Alliance); r != ai.Ignore && !r.Accepts() {
			return p.allianceRejected(string(r)), nil
		}
		return []game.Action{game.AcceptAlliance{Country: country}, p.spend(AllianceCost)}, nil

	case BreakAlliance:
		if !dip.Allied(country) {
			return nil, refuse("Not Allied", "You have no alliance with %s", country)
		}
		return []game.Action{game.BreakAlliance{Country: country}}, nil

	case NonAggression:
		if dip.AtWar(country) {
			return nil, refuse("At War", "You are at war with %s", country)
		}
		if err := p.afford(NonAggressionCost); err != nil {
			return nil, err
		}
		return []game.Action{
			rel(20),
			p.spend(NonAggressionCost),
			game.SignTreaty{Treaty: game.Treaty{Kind: TreatyNonAggression, Country: country}},
			p.note(game.NotifyDiplomacy, "Non-Aggression Pact",
				fmt.Sprintf("Signed with %s (+20 relations)", country)),
		}, nil

	case Spy:
		if err := p.afford(SpyCost); err != nil {
			return nil, err
		}
		return []game.Action{p.spend(SpyCost), p.note(game.NotifyInfo, "Intelligence Report", p.intel())}, nil

	case Threaten:
		actions := []game.Action{rel(-20)}
		details := "Military threats issued (-20 relations"
		if s.Morale.Current < 70 {
			actions = append(actions, game.UpdateMorale{Delta: 5})
			details += ", +5 morale"
		}
		details += "), reaction: " + string(p.reaction(ai.Threat))
		return append(actions, p.note(game.NotifyWarning, "Ultimatum to "+country, details)), nil

	case Embargo:
		return []game.Action{
			rel(-30),
			game.UpdateResources{Income: ptr(math.Max(0, s.Resources.Income+EmbargoIncome))},
			p.note(game.NotifyWarning, "Embargo on "+country,
				fmt.Sprintf("Trade embargo imposed (-30 relations, -%s income), reaction: %s",
					format.Currency(-EmbargoIncome), p.reaction(ai.Embargo))),
		}, nil

	case DeclareWar:
		if dip.Allied(country) {
			return nil, refuse("Cannot Declare War", "%s is your ally! Break alliance first.", country)
		}
		if dip.AtWar(country) {
			return nil, refuse("Already At War", "You are already at war with %s", country)
		}
		return []game.Action{game.DeclareWar{Country: country}}, nil

	case AcceptAlliance, RejectAlliance:
		if !s.Events.PendingAlliance(country) {
			return nil, refuse("No Pending Proposal", "%s has not proposed an alliance", country)
		}
		if p.c.Name == RejectAlliance {
			return []game.Action{game.RejectAlliance{Country: country}}, nil
		}
		if dip.AtWar(country) {
			return nil, refuse("At War", "You cannot ally with %s while at war", country)
		}
		return []game.Action{game.AcceptAlliance{Country: country}}, nil
	}
	return nil, fmt.Errorf("unknown command %q", p.c.Name)
}

func (p planner) allianceRejected(reason string) []game.Action {
	country := p.c.Country
	return []game.Action{
		p.note(game.NotifyWarning, "Alliance Rejected",
			fmt.Sprintf("%s rejected your alliance (%s)", country, reason)),
		game.UpdateRelationship{Country: country, Change: -10},
	}
}

func (p planner) intel() string {
	country := p.c.Country
	details := fmt.Sprintf("Spy operation in %s - detailed intel gathered. Relations: %s",
		country, format.Relationship(p.s.Diplomacy.Relationship(country)))
	if n, ok := p.s.AICountries[country]; ok {
		details += fmt.Sprintf(", standing: %s, posture: %s", format.Strength(n.Strength), n.Personality)
	}
	return details
}

func ptr[T any](v T) *T { return &v }
