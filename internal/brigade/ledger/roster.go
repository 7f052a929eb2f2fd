package ledger

import (
	"github.com/teamforge/brigade/internal/brigade/command"
	"github.com/teamforge/brigade/internal/brigade/domain"
)

// Assignment is one explicit user-to-role placement made by an organizer.
type Assignment struct {
	User domain.User
	Role domain.Role
}

// VolunteerEntry is one user's standing offer for a role. Priority is the
// replay-order position of the offer; lower values are placed first.
type VolunteerEntry struct {
	User     domain.User
	Role     domain.Role
	Priority int
}

// Roster is the derived view of a ledger replay: who is explicitly assigned
// and who is volunteering, in offer order. Rosters are values; they are never
// stored and never mutated in place.
type Roster struct {
	// Assignments holds explicit placements in replay order, one per
	// (user, role) pair.
	Assignments []Assignment
	// Volunteers holds standing offers in priority order, one per
	// (user, role) pair.
	Volunteers []VolunteerEntry
}

// Mutation precedence, applied during replay:
//
//   - An explicit assignment supersedes a volunteer offer for the same
//     (user, role) pair, regardless of submission order.
//   - A repeated volunteer offer for the same (user, role) collapses to the
//     most recent occurrence, moving the offer to the back of the priority
//     order.
//   - Withdraw retracts only the author's own offer for the named role.
//   - Assign and Unassign are honored only when the recording author is in
//     the organizer set at replay time; otherwise they are no-ops.
func (r Roster) apply(author domain.User, mutation command.Mutation, organizers domain.Users) Roster {
	switch m := mutation.(type) {
	case command.Volunteer:
		if r.assigned(author, m.Role) {
			return r
		}
		r.Volunteers = removeVolunteer(r.Volunteers, author, m.Role)
		r.Volunteers = append(r.Volunteers, VolunteerEntry{
			User:     author,
			Role:     m.Role,
			Priority: r.nextPriority(),
		})
	case command.Withdraw:
		r.Volunteers = removeVolunteer(r.Volunteers, author, m.Role)
	case command.Assign:
		if !organizers.Contains(author) {
			return r
		}
		if r.assigned(m.User, m.Role) {
			return r
		}
		r.Volunteers = removeVolunteer(r.Volunteers, m.User, m.Role)
		r.Assignments = append(r.Assignments, Assignment{User: m.User, Role: m.Role})
	case command.Unassign:
		if !organizers.Contains(author) {
			return r
		}
		r.Assignments = removeAssignment(r.Assignments, m.User, m.Role)
	}
	return r
}

// AssignedRoles returns the roles user is explicitly assigned to, in replay
// order, de-duplicated.
func (r Roster) AssignedRoles(user domain.User) []domain.Role {
	var roles []domain.Role
	for _, assignment := range r.Assignments {
		if assignment.User != user {
			continue
		}
		if !containsRole(roles, assignment.Role) {
			roles = append(roles, assignment.Role)
		}
	}
	return roles
}

// VolunteeredRoles returns the roles user is volunteering for, sorted by
// priority, de-duplicated by role.
func (r Roster) VolunteeredRoles(user domain.User) []domain.Role {
	var roles []domain.Role
	for _, entry := range r.Volunteers {
		if entry.User != user {
			continue
		}
		if !containsRole(roles, entry.Role) {
			roles = append(roles, entry.Role)
		}
	}
	return roles
}

// AssignedUsers returns every user holding at least one explicit assignment,
// in replay order.
func (r Roster) AssignedUsers() domain.Users {
	var users domain.Users
	for _, assignment := range r.Assignments {
		if !users.Contains(assignment.User) {
			users = append(users, assignment.User)
		}
	}
	return users
}

func (r Roster) assigned(user domain.User, role domain.Role) bool {
	for _, assignment := range r.Assignments {
		if assignment.User == user && assignment.Role == role {
			return true
		}
	}
	return false
}

// nextPriority keeps priorities strictly increasing across the replay even
// after removals, so re-volunteering demotes the offer.
func (r Roster) nextPriority() int {
	highest := -1
	for _, entry := range r.Volunteers {
		if entry.Priority > highest {
			highest = entry.Priority
		}
	}
	return highest + 1
}

func removeVolunteer(entries []VolunteerEntry, user domain.User, role domain.Role) []VolunteerEntry {
	out := entries[:0:0]
	for _, entry := range entries {
		if entry.User == user && entry.Role == role {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func removeAssignment(assignments []Assignment, user domain.User, role domain.Role) []Assignment {
	out := assignments[:0:0]
	for _, assignment := range assignments {
		if assignment.User == user && assignment.Role == role {
			continue
		}
		out = append(out, assignment)
	}
	return out
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}
