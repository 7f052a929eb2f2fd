package domain

// Team groups members by role. The builder guarantees that the member count
// for a role never exceeds that role's slot capacity.
type Team struct {
	// Members maps each role to its seated users, in seating order.
	Members map[Role][]User
}

// NewTeam returns an empty team.
func NewTeam() Team {
	return Team{Members: make(map[Role][]User)}
}

// Seat adds user to role. It does not check capacity; callers enforce it.
func (t Team) Seat(role Role, user User) Team {
	if t.Members == nil {
		t.Members = make(map[Role][]User)
	}
	t.Members[role] = append(t.Members[role], user)
	return t
}

// FilledCount returns the total number of seated members across roles.
func (t Team) FilledCount() int {
	total := 0
	for _, members := range t.Members {
		total += len(members)
	}
	return total
}

// HasUser reports whether user holds any seat in the team.
func (t Team) HasUser(user User) bool {
	for _, members := range t.Members {
		for _, member := range members {
			if member == user {
				return true
			}
		}
	}
	return false
}

// Roles returns the roles user holds in the team. Map iteration makes the
// order unspecified; callers needing determinism should iterate slots instead.
func (t Team) Roles(user User) []Role {
	var roles []Role
	for role, members := range t.Members {
		for _, member := range members {
			if member == user {
				roles = append(roles, role)
				break
			}
		}
	}
	return roles
}

// Clone returns a deep copy of the team.
func (t Team) Clone() Team {
	out := NewTeam()
	for role, members := range t.Members {
		out.Members[role] = append([]User(nil), members...)
	}
	return out
}

// CloneTeams returns a deep copy of a team list.
func CloneTeams(teams []Team) []Team {
	if teams == nil {
		return nil
	}
	out := make([]Team, len(teams))
	for i, team := range teams {
		out[i] = team.Clone()
	}
	return out
}
