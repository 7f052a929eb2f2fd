package domain

// History is a bounded trailing record of finalized team-sets, most recent
// first. It feeds the rotation-avoidance constraint during team building.
type History struct {
	// Depth bounds the number of retained rounds. Zero retains nothing.
	Depth int
	// Rounds holds past finalized team-sets, most recent first.
	Rounds [][]Team
}

// NewHistory returns an empty history bounded to depth rounds.
func NewHistory(depth int) History {
	if depth < 0 {
		depth = 0
	}
	return History{Depth: depth}
}

// Prepend records a finalized team-set as the most recent round, dropping the
// oldest round beyond the configured depth. The receiver is not mutated.
func (h History) Prepend(teams []Team) History {
	if h.Depth <= 0 {
		return h
	}
	rounds := make([][]Team, 0, len(h.Rounds)+1)
	rounds = append(rounds, CloneTeams(teams))
	rounds = append(rounds, h.Rounds...)
	if len(rounds) > h.Depth {
		rounds = rounds[:h.Depth]
	}
	return History{Depth: h.Depth, Rounds: rounds}
}

// Latest returns the most recent recorded round.
func (h History) Latest() ([]Team, bool) {
	if len(h.Rounds) == 0 {
		return nil, false
	}
	return h.Rounds[0], true
}

// HeldRole reports whether user held role in the most recent recorded round.
func (h History) HeldRole(user User, role Role) bool {
	latest, ok := h.Latest()
	if !ok {
		return false
	}
	for _, team := range latest {
		for _, member := range team.Members[role] {
			if member == user {
				return true
			}
		}
	}
	return false
}

// ConfigurationKind selects the team-derivation strategy.
type ConfigurationKind int

const (
	// ConfigurationDefault derives teams without rotation input.
	ConfigurationDefault ConfigurationKind = iota
	// ConfigurationCycle derives teams while avoiding the most recent
	// round's role assignments where an alternative placement exists.
	ConfigurationCycle
)

// Configuration describes how teams are derived from a roster.
type Configuration struct {
	Kind    ConfigurationKind
	History History
}

// DefaultConfiguration returns a configuration without rotation input.
func DefaultConfiguration() Configuration {
	return Configuration{Kind: ConfigurationDefault}
}

// CycleConfiguration returns a rotation-aware configuration carrying history.
func CycleConfiguration(history History) Configuration {
	return Configuration{Kind: ConfigurationCycle, History: history}
}

// RecordRound threads a finalized team-set into the rotation history. It is a
// no-op for the default configuration.
func (c Configuration) RecordRound(teams []Team) Configuration {
	if c.Kind != ConfigurationCycle {
		return c
	}
	c.History = c.History.Prepend(teams)
	return c
}
