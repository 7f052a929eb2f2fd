// Package brigade binds one channel's organizer set, team-building
// configuration, and session together, and threads finalized rounds back
// into the rotation history.
package brigade

import (
	"time"

	"github.com/teamforge/brigade/internal/brigade/command"
	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/brigade/reply"
	"github.com/teamforge/brigade/internal/brigade/session"
)

// Brigade is one channel's signup engine. It is a value: every operation
// returns a successor brigade and leaves the receiver untouched.
type Brigade struct {
	// Organizers may open and end rounds. An empty set disables the
	// brigade.
	Organizers domain.Users
	// Configuration selects the team-derivation strategy and carries the
	// rotation history.
	Configuration domain.Configuration
	// Session is the channel's current round state.
	Session session.Session
}

// New returns a brigade with an inactive session stamped at lastModified.
func New(organizers domain.Users, cfg domain.Configuration, lastModified time.Time) Brigade {
	return Brigade{
		Organizers:    organizers.Clone(),
		Configuration: cfg,
		Session:       session.Inactive(lastModified),
	}
}

// Configure swaps the organizer set and configuration.
//
// Against an active session the swap keeps the round running as long as the
// round's organizer survives in the new set; the team display, if any, is
// re-rendered under the new configuration. When the round's organizer is
// demoted the session collapses and any display is abandoned. The ledger is
// never touched.
func (b Brigade) Configure(organizers domain.Users, cfg domain.Configuration, at time.Time) (Brigade, []reply.Reply) {
	next := b
	next.Organizers = organizers.Clone()
	next.Configuration = cfg

	switch b.Session.Status {
	case session.StatusActive:
		if !organizers.Contains(b.Session.Organizer) {
			var replies []reply.Reply
			if b.Session.DisplayID != "" {
				replies = append(replies, reply.AbandonTeams{DisplayID: b.Session.DisplayID})
			}
			next.Session = session.Inactive(bump(b.Session.LastModified, at))
			return next, replies
		}
		next.Session.LastModified = bump(b.Session.LastModified, at)
		var replies []reply.Reply
		if b.Session.DisplayID != "" {
			replies = append(replies, reply.UpdateTeams{
				DisplayID: b.Session.DisplayID,
				Teams:     next.Session.CurrentTeams(organizers, cfg, false),
			})
		}
		return next, replies
	default:
		next.Session.LastModified = bump(b.Session.LastModified, at)
		return next, nil
	}
}

// Submit routes a command batch to the session and threads any finalized
// team-set into the rotation history.
func (b Brigade) Submit(author domain.User, messageID domain.MessageID, commands []command.Command, at time.Time) (Brigade, []reply.Reply) {
	next := b
	nextSession, replies := b.Session.Apply(b.Organizers, b.Configuration, author, messageID, commands, at)
	next.Session = nextSession

	for _, r := range replies {
		if finalized, ok := r.(reply.FinalizeTeams); ok {
			next.Configuration = next.Configuration.RecordRound(finalized.Teams)
		}
	}
	return next, replies
}

func bump(last, at time.Time) time.Time {
	if at.After(last) {
		return at
	}
	return last
}
