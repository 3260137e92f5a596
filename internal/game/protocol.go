// Wire form of the action dispatch protocol.
package game

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when an envelope names no known action.
var ErrUnknownKind = errors.New("unknown action kind")

// Envelope is the tagged-union message accepted at the dispatch boundary.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeAction wraps an action in an envelope.
func EncodeAction(a Action) (Envelope, error) {
	if a == nil {
		return Envelope{}, fmt.Errorf("encode: nil action")
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", a.Kind(), err)
	}
	return Envelope{Kind: a.Kind(), Payload: payload}, nil
}

// DecodeAction turns an envelope back into a typed action. Unknown kinds
// and malformed payloads are refused so they never reach the reducer.
func DecodeAction(env Envelope) (Action, error) {
	var a Action
	switch env.Kind {
	case KindInitializeGame:
		a = &InitializeGame{}
	case KindAdvanceTime:
		a = &AdvanceTime{}
	case KindUpdateResources:
		a = &UpdateResources{}
	case KindUpdateMilitary:
		a = &UpdateMilitary{}
	case KindUpdateResearch:
		a = &UpdateResearch{}
	case KindUpdateMorale:
		a = &UpdateMorale{}
	case KindPauseGame:
		return PauseGame{}, nil
	case KindResumeGame:
		return ResumeGame{}, nil
	case KindSetSpeed:
		a = &SetSpeed{}
	case KindTriggerEvent:
		a = &TriggerEvent{}
	case KindMakeDecision:
		a = &MakeDecision{}
	case KindUpdateRelationship:
		a = &UpdateRelationship{}
	case KindCompleteResearch:
		a = &CompleteResearch{}
	case KindDeclareWar:
		a = &DeclareWar{}
	case KindAllianceProposal:
		a = &AllianceProposal{}
	case KindAcceptAlliance:
		a = &AcceptAlliance{}
	case KindRejectAlliance:
		a = &RejectAlliance{}
	case KindBreakAlliance:
		a = &BreakAlliance{}
	case KindSignTreaty:
		a = &SignTreaty{}
	case KindAddNotification:
		a = &AddNotification{}
	case KindClearNotifications:
		return ClearNotifications{}, nil
	case KindRecordAIMemory:
		a = &RecordAIMemory{}
	case KindLoadGame:
		a = &LoadGame{}
	case KindResetGame:
		return ResetGame{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}

	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("decode %s: missing payload", env.Kind)
	}
	if err := json.Unmarshal(env.Payload, a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
	}
	return deref(a), nil
}

// deref converts the pointer used for decoding into the value type the
// reducer switches on.
func deref(a Action) Action {
	switch v := a.(type) {
	case *InitializeGame:
		return *v
	case *AdvanceTime:
		return *v
	case *UpdateResources:
		return *v
	case *UpdateMilitary:
		return *v
	case *UpdateResearch:
		return *v
	case *UpdateMorale:
		return *v
	case *SetSpeed:
		return *v
	case *TriggerEvent:
		return *v
	case *MakeDecision:
		return *v
	case *UpdateRelationship:
		return *v
	case *CompleteResearch:
		return *v
	case *DeclareWar:
		return *v
	case *AllianceProposal:
		return *v
	case *AcceptAlliance:
		return *v
	case *RejectAlliance:
		return *v
	case *BreakAlliance:
		return *v
	case *SignTreaty:
		return *v
	case *AddNotification:
		return *v
	case *RecordAIMemory:
		return *v
	case *LoadGame:
		return *v
	}
	return a
}
