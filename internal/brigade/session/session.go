// Package session implements the state machine driving one channel's signup
// round: command intake, ledger growth, and reply emission. Every transition
// is a pure function from the previous session value to a successor plus
// replies; prior values are never mutated.
package session

import (
	"time"

	"github.com/teamforge/brigade/internal/brigade/command"
	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/brigade/ledger"
	"github.com/teamforge/brigade/internal/brigade/reply"
	"github.com/teamforge/brigade/internal/brigade/team"
)

// Status describes the lifecycle state of a session.
type Status int

const (
	// StatusInactive indicates no signup round is open. The zero session is
	// inactive at epoch zero, which is also how a missing snapshot loads.
	StatusInactive Status = iota
	// StatusActive indicates a signup round is collecting commands.
	StatusActive
)

// Session tracks one channel's signup round.
type Session struct {
	Status Status
	// Organizer owns the current round. Meaningful only while active.
	Organizer domain.User
	// OpenMessageID is the chat message that opened the round. A batch
	// arriving on this message reshapes or collapses the round.
	OpenMessageID domain.MessageID
	// DisplayID is the chat message rendering the team display. Zero when
	// the round runs without a display.
	DisplayID domain.MessageID
	// Slots is the round's ordered role-to-capacity map.
	Slots domain.Slots
	// Ledger records the round's committed mutation batches.
	Ledger ledger.Ledger
	// LastModified advances monotonically across transitions.
	LastModified time.Time
}

// Inactive returns an inactive session stamped at lastModified.
func Inactive(lastModified time.Time) Session {
	return Session{Status: StatusInactive, LastModified: lastModified}
}

// Apply processes one command batch tagged with its author, message, and
// timestamp, returning the successor session and the replies to post.
func (s Session) Apply(organizers domain.Users, cfg domain.Configuration, author domain.User, messageID domain.MessageID, commands []command.Command, at time.Time) (Session, []reply.Reply) {
	switch s.Status {
	case StatusActive:
		if messageID == s.OpenMessageID {
			return s.reopen(organizers, cfg, author, messageID, commands, at)
		}
		return s.continueActive(organizers, cfg, author, messageID, commands, at)
	default:
		return s.openFromInactive(organizers, cfg, author, messageID, commands, at)
	}
}

// CurrentTeams derives the round's teams from the committed ledger. When
// finalize is true, incomplete teams are stripped.
func (s Session) CurrentTeams(organizers domain.Users, cfg domain.Configuration, finalize bool) []domain.Team {
	roster := s.Ledger.BuildRoster(organizers)
	teams := team.Build(roster, s.Slots, cfg)
	if finalize {
		return team.Finalize(teams, s.Slots)
	}
	return teams
}

// openFromInactive scans for the first authorized open command. Commands
// before it form a prefix that can still surface a usage reply; everything
// after it is processed under the freshly opened round.
func (s Session) openFromInactive(organizers domain.Users, cfg domain.Configuration, author domain.User, messageID domain.MessageID, commands []command.Command, at time.Time) (Session, []reply.Reply) {
	prefix, match, rest, found := command.Scan(commands, func(cmd command.Command) bool {
		_, isOpen := cmd.(command.Open)
		return isOpen && organizers.Contains(author)
	})

	var prelude []reply.Reply
	if len(organizers) > 0 && containsHelp(prefix) {
		prelude = append(prelude, reply.NewUsage())
	}

	if !found {
		next := s
		next.LastModified = maxTime(s.LastModified, at)
		return next, prelude
	}

	open := match.(command.Open)
	active := Session{
		Status:        StatusActive,
		Organizer:     author,
		OpenMessageID: messageID,
		DisplayID:     open.DisplayID,
		Slots:         open.Slots.Clone(),
		Ledger:        ledger.New(),
		LastModified:  maxTime(s.LastModified, at),
	}
	if open.DisplayID != "" {
		prelude = append(prelude, reply.UpdateTeams{
			DisplayID: open.DisplayID,
			Teams:     active.CurrentTeams(organizers, cfg, false),
		})
	}

	next, continued := active.continueActive(organizers, cfg, author, messageID, rest, at)
	return next, append(prelude, continued...)
}

// reopen handles a batch arriving on the round's opening message: the message
// was edited or resubmitted. A new authorized open reshapes the round while
// keeping the ledger; anything else collapses the round.
func (s Session) reopen(organizers domain.Users, cfg domain.Configuration, author domain.User, messageID domain.MessageID, commands []command.Command, at time.Time) (Session, []reply.Reply) {
	_, match, rest, found := command.Scan(commands, func(cmd command.Command) bool {
		_, isOpen := cmd.(command.Open)
		return isOpen && organizers.Contains(author)
	})

	if !found {
		collapsed := Inactive(maxTime(s.LastModified, at))
		var replies []reply.Reply
		if s.DisplayID != "" {
			replies = append(replies, reply.AbandonTeams{DisplayID: s.DisplayID})
		}
		return collapsed, replies
	}

	open := match.(command.Open)
	reshaped := s
	reshaped.Organizer = author
	reshaped.DisplayID = open.DisplayID
	reshaped.Slots = open.Slots.Clone()
	reshaped.LastModified = maxTime(s.LastModified, at)

	var prelude []reply.Reply
	if s.DisplayID != "" && s.DisplayID != open.DisplayID {
		prelude = append(prelude, reply.AbandonTeams{DisplayID: s.DisplayID})
	}
	if open.DisplayID != "" {
		prelude = append(prelude, reply.UpdateTeams{
			DisplayID: open.DisplayID,
			Teams:     reshaped.CurrentTeams(organizers, cfg, false),
		})
	}

	next, continued := reshaped.continueActive(organizers, cfg, author, messageID, rest, at)
	return next, append(prelude, continued...)
}

// continueActive folds over the batch up to the first authorized terminal
// command, accumulating replies and an in-flight mutation batch, then
// resolves the terminal outcome.
func (s Session) continueActive(organizers domain.Users, cfg domain.Configuration, author domain.User, messageID domain.MessageID, commands []command.Command, at time.Time) (Session, []reply.Reply) {
	pre, terminal, _, hasTerminal := command.Scan(commands, func(cmd command.Command) bool {
		_, isTerminal := cmd.(command.Terminal)
		return isTerminal && organizers.Contains(author)
	})

	var replies []reply.Reply
	var batch []command.Mutation
	for _, cmd := range pre {
		switch cmd := cmd.(type) {
		case command.Help:
			replies = append(replies, reply.NewUsage())
		case command.Query:
			// The hypothetical roster includes the mutations folded so
			// far in this batch, before they are committed.
			hypothetical := s.Ledger
			if len(batch) > 0 {
				hypothetical = hypothetical.Append(ledger.Entry{
					MessageID: messageID,
					Author:    author,
					Mutations: append([]command.Mutation(nil), batch...),
				})
			}
			roster := hypothetical.BuildRoster(organizers)
			replies = append(replies, reply.Status{
				User:        cmd.User,
				Assigned:    roster.AssignedRoles(cmd.User),
				Volunteered: roster.VolunteeredRoles(cmd.User),
			})
		case command.Mutation:
			batch = append(batch, cmd)
		default:
			// Stray opens and unauthorized terminals are absorbed as
			// no-ops.
		}
	}

	if _, aborted := terminal.(command.Abort); aborted {
		next := Inactive(maxTime(s.LastModified, at))
		if s.DisplayID != "" {
			replies = append(replies, reply.AbandonTeams{DisplayID: s.DisplayID})
		}
		return next, replies
	}

	next := s
	if len(batch) > 0 {
		next.Ledger = next.Ledger.Append(ledger.Entry{
			MessageID: messageID,
			Author:    author,
			Mutations: batch,
		})
	}
	next.LastModified = maxTime(s.LastModified, at)

	if hasTerminal {
		replies = append(replies, reply.FinalizeTeams{
			DisplayID: next.DisplayID,
			Teams:     next.CurrentTeams(organizers, cfg, true),
		})
		return Inactive(next.LastModified), replies
	}

	// A non-terminal batch on a displayed round always re-renders the
	// display, even when nothing was committed.
	if next.DisplayID != "" {
		replies = append(replies, reply.UpdateTeams{
			DisplayID: next.DisplayID,
			Teams:     next.CurrentTeams(organizers, cfg, false),
		})
	}
	return next, replies
}

func containsHelp(commands []command.Command) bool {
	for _, cmd := range commands {
		if _, ok := cmd.(command.Help); ok {
			return true
		}
	}
	return false
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
