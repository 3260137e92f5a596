package ai

import "github.com/talgya/alt-history/internal/game"

// Overture is a diplomatic move the player makes toward an AI nation.
type Overture string

const (
	Gift     Overture = "gift"
	Trade    Overture = "trade"
	Alliance Overture = "alliance"
	Threat   Overture = "threaten"
	Embargo  Overture = "embargo"
)

// Response is how an AI nation reacts to an overture.
type Response string

const (
	AcceptSuspicious  Response = "accept_suspicious"
	AcceptGrateful    Response = "accept_grateful"
	Accept            Response = "accept"
	AcceptCautious    Response = "accept_cautious"
	AcceptConditional Response = "accept_conditional"
	DemandMore        Response = "demand_more"
	Negotiate         Response = "negotiate"
	Reject            Response = "reject"
	ThreatenBack      Response = "threaten_back"
	FortifyResponse   Response = "fortify"
	AssessStrength    Response = "assess_strength"
	DeclareWarBack    Response = "declare_war"
	EmbargoBack       Response = "embargo_back"
	SeekAlternatives  Response = "seek_alternatives"
	Ignore            Response = "ignore"
)

var responses = map[game.Personality]map[Overture]Response{
	game.Aggressive: {
		Gift:     AcceptSuspicious,
		Trade:    DemandMore,
		Alliance: Reject,
		Threat:   ThreatenBack,
		Embargo:  DeclareWarBack,
	},
	game.Defensive: {
		Gift:     AcceptGrateful,
		Trade:    Accept,
		Alliance: AcceptCautious,
		Threat:   FortifyResponse,
		Embargo:  EmbargoBack,
	},
	game.Opportunistic: {
		Gift:     Accept,
		Trade:    Negotiate,
		Alliance: AcceptConditional,
		Threat:   AssessStrength,
		Embargo:  SeekAlternatives,
	},
}

// Respond returns the personality's reaction to an overture, Ignore when
// the table has no entry.
func Respond(p game.Personality, o Overture) Response {
	if r, ok := responses[p][o]; ok {
		return r
	}
	return Ignore
}

// Accepts reports whether a response agrees to the overture.
func (r Response) Accepts() bool {
	switch r {
	case Accept, AcceptGrateful, AcceptSuspicious, AcceptCautious, AcceptConditional:
		return true
	}
	return false
}
