// Package domain holds the value types shared across the brigade core:
// participant and message identities, slot configurations, teams, rotation
// history, and the team-building configuration.
package domain

// User identifies one chat participant. Values are opaque and compared by
// equality only.
type User string

// Role labels one position within a team.
type Role string

// MessageID correlates a command batch with the chat message that carried it.
type MessageID string

// ChannelID identifies the chat channel one brigade serves.
type ChannelID string

// Users is an ordered set of participants. Order is preserved for
// deterministic iteration; membership checks use Contains.
type Users []User

// Contains reports whether user is in the set.
func (u Users) Contains(user User) bool {
	for _, candidate := range u {
		if candidate == user {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the set.
func (u Users) Clone() Users {
	if len(u) == 0 {
		return nil
	}
	out := make(Users, len(u))
	copy(out, u)
	return out
}

// Slot pairs a role with the number of seats it offers per team.
type Slot struct {
	Role     Role
	Capacity int
}

// Slots is an ordered role-to-capacity mapping. The order controls both the
// fill order during team building and the display order of rendered teams.
type Slots []Slot

// Capacity returns the per-team seat count for role, or zero when the role is
// not part of the configuration.
func (s Slots) Capacity(role Role) int {
	for _, slot := range s {
		if slot.Role == role {
			return slot.Capacity
		}
	}
	return 0
}

// TotalCapacity returns the number of seats a full team holds.
func (s Slots) TotalCapacity() int {
	total := 0
	for _, slot := range s {
		total += slot.Capacity
	}
	return total
}

// Clone returns an independent copy of the slot configuration.
func (s Slots) Clone() Slots {
	if len(s) == 0 {
		return nil
	}
	out := make(Slots, len(s))
	copy(out, s)
	return out
}
