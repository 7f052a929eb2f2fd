// Package reply defines the closed set of replies a transition can emit.
// Replies are structured values; rendering them as chat text belongs to the
// transport's presentation layer.
package reply

import "github.com/teamforge/brigade/internal/brigade/domain"

// Reply is one outcome message produced by a transition.
type Reply interface {
	isReply()
}

// Usage answers a help request with the command vocabulary.
type Usage struct {
	// Commands lists the canonical command verbs the engine understands.
	Commands []string
}

// Vocabulary is the canonical command verb list carried by Usage replies.
func Vocabulary() []string {
	return []string{"open", "help", "query", "volunteer", "withdraw", "assign", "unassign", "abort", "close"}
}

// NewUsage returns a usage reply carrying the command vocabulary.
func NewUsage() Usage {
	return Usage{Commands: Vocabulary()}
}

// Status reports one user's standing in the current round.
type Status struct {
	User domain.User
	// Assigned lists the user's distinct explicitly assigned roles.
	Assigned []domain.Role
	// Volunteered lists the user's distinct volunteered roles in priority
	// order.
	Volunteered []domain.Role
}

// UpdateTeams refreshes the team display with the current, possibly partial,
// teams. Emitted only when the round has a display.
type UpdateTeams struct {
	DisplayID domain.MessageID
	Teams     []domain.Team
}

// FinalizeTeams announces the completed teams of a finished round. Incomplete
// teams are already stripped. DisplayID is zero when the round ran without a
// display.
type FinalizeTeams struct {
	DisplayID domain.MessageID
	Teams     []domain.Team
}

// AbandonTeams retires the team display of an aborted or collapsed round.
type AbandonTeams struct {
	DisplayID domain.MessageID
}

func (Usage) isReply()         {}
func (Status) isReply()        {}
func (UpdateTeams) isReply()   {}
func (FinalizeTeams) isReply() {}
func (AbandonTeams) isReply()  {}
