// Action catalogue: one type per state transition.
package game

// Action is a request to change state. The set of implementations is closed.
type Action interface {
	Kind() Kind
	action()
}

// Kind is the wire discriminator of an action.
type Kind string

const (
	KindInitializeGame     Kind = "INITIALIZE_GAME"
	KindAdvanceTime        Kind = "ADVANCE_TIME"
	KindUpdateResources    Kind = "UPDATE_RESOURCES"
	KindUpdateMilitary     Kind = "UPDATE_MILITARY"
	KindUpdateResearch     Kind = "UPDATE_RESEARCH"
	KindUpdateMorale       Kind = "UPDATE_MORALE"
	KindPauseGame          Kind = "PAUSE_GAME"
	KindResumeGame         Kind = "RESUME_GAME"
	KindSetSpeed           Kind = "SET_SPEED"
	KindTriggerEvent       Kind = "TRIGGER_EVENT"
	KindMakeDecision       Kind = "MAKE_DECISION"
	KindUpdateRelationship Kind = "UPDATE_RELATIONSHIP"
	KindCompleteResearch   Kind = "COMPLETE_RESEARCH"
	KindDeclareWar         Kind = "DECLARE_WAR"
	KindAllianceProposal   Kind = "ALLIANCE_PROPOSAL"
	KindAcceptAlliance     Kind = "ACCEPT_ALLIANCE"
	KindRejectAlliance     Kind = "REJECT_ALLIANCE"
	KindBreakAlliance      Kind = "BREAK_ALLIANCE"
	KindSignTreaty         Kind = "SIGN_TREATY"
	KindAddNotification    Kind = "ADD_NOTIFICATION"
	KindClearNotifications Kind = "CLEAR_NOTIFICATIONS"
	KindRecordAIMemory     Kind = "RECORD_AI_MEMORY"
	KindLoadGame           Kind = "LOAD_GAME"
	KindResetGame          Kind = "RESET_GAME"
)

// InitializeGame starts a new session for country in era.
type InitializeGame struct {
	Era        string     `json:"era"`
	Country    string     `json:"country"`
	Difficulty Difficulty `json:"difficulty"`
}

// AdvanceTime moves the clock forward by whole days.
type AdvanceTime struct {
	Days int `json:"days"`
}

// UpdateResources shallow-merges the non-nil fields.
type UpdateResources struct {
	Treasury *float64 `json:"treasury,omitempty"`
	Income   *float64 `json:"income,omitempty"`
	Expenses *float64 `json:"expenses,omitempty"`
	GDP      *float64 `json:"gdp,omitempty"`
}

// UpdateMilitary shallow-merges the non-nil fields.
type UpdateMilitary struct {
	Army        *int  `json:"army,omitempty"`
	Navy        *int  `json:"navy,omitempty"`
	AirForce    *int  `json:"airForce,omitempty"`
	Readiness   *int  `json:"readiness,omitempty"`
	IsMobilized *bool `json:"isMobilized,omitempty"`
}

// UpdateResearch shallow-merges the non-nil fields. ClearCurrent drops
// the current research project.
type UpdateResearch struct {
	Points          *float64    `json:"points,omitempty"`
	PointsPerDay    *float64    `json:"pointsPerDay,omitempty"`
	CurrentResearch *Technology `json:"currentResearch,omitempty"`
	ClearCurrent    bool        `json:"clearCurrent,omitempty"`
}

// UpdateMorale adds Delta to current morale.
type UpdateMorale struct {
	Delta int `json:"delta"`
}

// PauseGame halts the simulation.
type PauseGame struct{}

// ResumeGame restarts the simulation.
type ResumeGame struct{}

// SetSpeed sets ticks per wall-clock second.
type SetSpeed struct {
	Speed int `json:"speed"`
}

// TriggerEvent queues an event and pauses.
type TriggerEvent struct {
	Event Event `json:"event"`
}

// MakeDecision resolves an active event with a choice.
type MakeDecision struct {
	EventID string `json:"eventId"`
	Choice  Choice `json:"choice"`
}

// UpdateRelationship adds Change to the score with Country.
type UpdateRelationship struct {
	Country string `json:"country"`
	Change  int    `json:"change"`
}

// CompleteResearch finishes Tech and spends its cost.
type CompleteResearch struct {
	Tech Technology `json:"tech"`
}

// DeclareWar puts the player at war with Country.
type DeclareWar struct {
	Country string `json:"country"`
}

// AllianceProposal records an alliance offer from Country.
type AllianceProposal struct {
	Country string `json:"country"`
}

// AcceptAlliance allies the player with Country.
type AcceptAlliance struct {
	Country string `json:"country"`
}

// RejectAlliance turns down Country's offer.
type RejectAlliance struct {
	Country string `json:"country"`
}

// BreakAlliance leaves the alliance with Country.
type BreakAlliance struct {
	Country string `json:"country"`
}

// SignTreaty records a treaty with Country.
type SignTreaty struct {
	Treaty Treaty `json:"treaty"`
}

// AddNotification appends a notification.
type AddNotification struct {
	Notification Notification `json:"notification"`
}

// ClearNotifications empties the notification list.
type ClearNotifications struct{}

// RecordAIMemory commits an AI nation's cooldown memory.
type RecordAIMemory struct {
	Country string   `json:"country"`
	Memory  AIMemory `json:"memory"`
}

// LoadGame replaces the whole state tree.
type LoadGame struct {
	State State `json:"state"`
}

// ResetGame returns to the pre-game state.
type ResetGame struct{}

func (InitializeGame) Kind() Kind     { return KindInitializeGame }
func (AdvanceTime) Kind() Kind        { return KindAdvanceTime }
func (UpdateResources) Kind() Kind    { return KindUpdateResources }
func (UpdateMilitary) Kind() Kind     { return KindUpdateMilitary }
func (UpdateResearch) Kind() Kind     { return KindUpdateResearch }
func (UpdateMorale) Kind() Kind       { return KindUpdateMorale }
func (PauseGame) Kind() Kind          { return KindPauseGame }
func (ResumeGame) Kind() Kind         { return KindResumeGame }
func (SetSpeed) Kind() Kind           { return KindSetSpeed }
func (TriggerEvent) Kind() Kind       { return KindTriggerEvent }
func (MakeDecision) Kind() Kind       { return KindMakeDecision }
func (UpdateRelationship) Kind() Kind { return KindUpdateRelationship }
func (CompleteResearch) Kind() Kind   { return KindCompleteResearch }
func (DeclareWar) Kind() Kind         { return KindDeclareWar }
func (AllianceProposal) Kind() Kind   { return KindAllianceProposal }
func (AcceptAlliance) Kind() Kind     { return KindAcceptAlliance }
func (RejectAlliance) Kind() Kind     { return KindRejectAlliance }
func (BreakAlliance) Kind() Kind      { return KindBreakAlliance }
func (SignTreaty) Kind() Kind         { return KindSignTreaty }
func (AddNotification) Kind() Kind    { return KindAddNotification }
func (ClearNotifications) Kind() Kind { return KindClearNotifications }
func (RecordAIMemory) Kind() Kind     { return KindRecordAIMemory }
func (LoadGame) Kind() Kind           { return KindLoadGame }
func (ResetGame) Kind() Kind          { return KindResetGame }

func (InitializeGame) action()     {}
func (AdvanceTime) action()        {}
func (UpdateResources) action()    {}
func (UpdateMilitary) action()     {}
func (UpdateResearch) action()     {}
func (UpdateMorale) action()       {}
func (PauseGame) action()          {}
func (ResumeGame) action()         {}
func (SetSpeed) action()           {}
func (TriggerEvent) action()       {}
func (MakeDecision) action()       {}
func (UpdateRelationship) action() {}
func (CompleteResearch) action()   {}
func (DeclareWar) action()         {}
func (AllianceProposal) action()   {}
func (AcceptAlliance) action()     {}
func (RejectAlliance) action()     {}
func (BreakAlliance) action()      {}
func (SignTreaty) action()         {}
func (AddNotification) action()    {}
func (ClearNotifications) action() {}
func (RecordAIMemory) action()     {}
func (LoadGame) action()           {}
func (ResetGame) action()          {}
