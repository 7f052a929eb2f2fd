// Package team derives teams from a replayed roster. Building is a pure
// function of the roster, the slot configuration, and the rotation history;
// the same inputs always produce the same teams.
//
// Placement policy:
//
//   - Explicit assignments are honored first, in replay order. When every
//     existing team is full for the assigned role, a new team is opened for
//     the assignment. Assignments to roles outside the slot configuration
//     cannot occupy a seat and are skipped; they remain visible through
//     roster queries.
//   - Volunteers fill the remaining capacity in priority order, one seat per
//     user across all teams. A user holding an explicit assignment is not
//     considered for volunteer seats.
//   - Under a cycle configuration, a volunteer who held the same role in the
//     most recent recorded round is seated only after every fresh candidate
//     for that role, so last round's groupings repeat only when the role
//     could not otherwise be filled. Ties are broken by offer priority,
//     which is unique, making placement fully deterministic.
package team

import (
	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/brigade/ledger"
)

// Build partitions a roster into one or more teams bounded per role by the
// slot capacities. With a non-empty slot configuration the result always
// contains at least one team, possibly empty.
func Build(roster ledger.Roster, slots domain.Slots, cfg domain.Configuration) []domain.Team {
	if len(slots) == 0 {
		return nil
	}
	teams := []domain.Team{domain.NewTeam()}

	for _, assignment := range roster.Assignments {
		if slots.Capacity(assignment.Role) == 0 {
			continue
		}
		seated := false
		for i := range teams {
			if teams[i].HasUser(assignment.User) {
				continue
			}
			if len(teams[i].Members[assignment.Role]) >= slots.Capacity(assignment.Role) {
				continue
			}
			teams[i] = teams[i].Seat(assignment.Role, assignment.User)
			seated = true
			break
		}
		if !seated {
			teams = append(teams, domain.NewTeam().Seat(assignment.Role, assignment.User))
		}
	}

	assignedUsers := roster.AssignedUsers()
	var available []ledger.VolunteerEntry
	for _, offer := range roster.Volunteers {
		if slots.Capacity(offer.Role) == 0 {
			continue
		}
		if assignedUsers.Contains(offer.User) {
			continue
		}
		available = append(available, offer)
	}

	for index := 0; len(available) > 0; index++ {
		if index == len(teams) {
			teams = append(teams, domain.NewTeam())
		}
		for _, slot := range slots {
			for len(teams[index].Members[slot.Role]) < slot.Capacity {
				pick := pickVolunteer(available, slot.Role, cfg)
				if pick < 0 {
					break
				}
				teams[index] = teams[index].Seat(slot.Role, available[pick].User)
				available = removeUser(available, available[pick].User)
			}
		}
	}

	return teams
}

// Finalize keeps only the teams whose filled-slot count matches the full
// team size. Incomplete teams are dropped, never partially published.
func Finalize(teams []domain.Team, slots domain.Slots) []domain.Team {
	full := slots.TotalCapacity()
	var out []domain.Team
	for _, team := range teams {
		if team.FilledCount() >= full {
			out = append(out, team)
		}
	}
	return out
}

// pickVolunteer returns the index of the next offer for role, preferring
// candidates who did not hold the role in the most recent recorded round when
// a cycle configuration is active. Offers are already in priority order, so
// the first eligible index wins.
func pickVolunteer(available []ledger.VolunteerEntry, role domain.Role, cfg domain.Configuration) int {
	repeat := -1
	for i, offer := range available {
		if offer.Role != role {
			continue
		}
		if cfg.Kind == domain.ConfigurationCycle && cfg.History.HeldRole(offer.User, role) {
			if repeat < 0 {
				repeat = i
			}
			continue
		}
		return i
	}
	return repeat
}

// removeUser drops every remaining offer from user: a seated volunteer holds
// exactly one seat across all teams.
func removeUser(available []ledger.VolunteerEntry, user domain.User) []ledger.VolunteerEntry {
	out := available[:0:0]
	for _, offer := range available {
		if offer.User == user {
			continue
		}
		out = append(out, offer)
	}
	return out
}
