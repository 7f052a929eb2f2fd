// Package command defines the closed set of instructions a chat message can
// carry into the session engine. The variant set is sealed through unexported
// marker methods; transition code switches exhaustively over the concrete
// types below.
package command

import "github.com/teamforge/brigade/internal/brigade/domain"

// Command is one parsed instruction from a chat message.
type Command interface {
	isCommand()
}

// Open starts a signup round, or reshapes the current one when it arrives on
// the round's opening message.
type Open struct {
	// Slots is the ordered role-to-capacity map for the round.
	Slots domain.Slots
	// DisplayID identifies the chat message that renders the team display.
	// Zero when the round runs without a display.
	DisplayID domain.MessageID
}

// Help requests a usage reply.
type Help struct{}

// Query requests a status reply for one user.
type Query struct {
	User domain.User
}

// Mutation is a roster-affecting command. Mutations are accumulated into the
// ledger and interpreted during roster replay.
type Mutation interface {
	Command
	isMutation()
}

// Volunteer offers the batch author for a role.
type Volunteer struct {
	Role domain.Role
}

// Withdraw retracts the batch author's volunteer offer for a role.
type Withdraw struct {
	Role domain.Role
}

// Assign explicitly seats a user in a role. Honored during replay only when
// the recording author was an organizer.
type Assign struct {
	User domain.User
	Role domain.Role
}

// Unassign removes an explicit assignment. Honored during replay only when
// the recording author was an organizer.
type Unassign struct {
	User domain.User
	Role domain.Role
}

// Terminal is a command that ends the current round.
type Terminal interface {
	Command
	isTerminal()
}

// Abort ends the round discarding its outcome.
type Abort struct{}

// Close ends the round publishing its finalized teams.
type Close struct{}

func (Open) isCommand()  {}
func (Help) isCommand()  {}
func (Query) isCommand() {}

func (Volunteer) isCommand() {}
func (Withdraw) isCommand()  {}
func (Assign) isCommand()    {}
func (Unassign) isCommand()  {}

func (Volunteer) isMutation() {}
func (Withdraw) isMutation()  {}
func (Assign) isMutation()    {}
func (Unassign) isMutation()  {}

func (Abort) isCommand() {}
func (Close) isCommand() {}

func (Abort) isTerminal() {}
func (Close) isTerminal() {}
