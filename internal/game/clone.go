package game

import "maps"

// Clone returns a deep copy of s. Technologies and events are treated as
// immutable values, but their containing slices and maps are copied.
func (s State) Clone() State {
	c := s

	c.Research.CompletedTech = cloneSlice(s.Research.CompletedTech)
	c.Research.AvailableTech = cloneSlice(s.Research.AvailableTech)
	if s.Research.CurrentResearch != nil {
		t := *s.Research.CurrentResearch
		c.Research.CurrentResearch = &t
	}

	c.Diplomacy.Relationships = maps.Clone(s.Diplomacy.Relationships)
	c.Diplomacy.Alliances = cloneSlice(s.Diplomacy.Alliances)
	c.Diplomacy.Wars = cloneSlice(s.Diplomacy.Wars)
	c.Diplomacy.Treaties = cloneSlice(s.Diplomacy.Treaties)

	c.Events.ActiveEvents = cloneSlice(s.Events.ActiveEvents)
	c.Events.EventHistory = cloneSlice(s.Events.EventHistory)
	c.Events.PendingDecisions = cloneSlice(s.Events.PendingDecisions)

	c.AICountries = maps.Clone(s.AICountries)
	c.AIMemory = maps.Clone(s.AIMemory)
	c.Notifications = cloneSlice(s.Notifications)
	return c
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
