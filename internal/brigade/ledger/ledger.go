// Package ledger records submitted mutation batches and replays them into a
// roster. The ledger itself is semantics-free: it only guarantees
// order-preserving, repeatable replay. Mutation interpretation, including
// precedence between volunteer offers and explicit assignments, lives in the
// replay accumulator.
package ledger

import (
	"github.com/teamforge/brigade/internal/brigade/command"
	"github.com/teamforge/brigade/internal/brigade/domain"
)

// Entry records one author's mutation batch for one message. Entries are
// immutable once appended.
type Entry struct {
	MessageID domain.MessageID
	Author    domain.User
	Mutations []command.Mutation
}

// Ledger is an append-only ordered sequence of entries.
type Ledger struct {
	entries []Entry
}

// New returns an empty ledger.
func New() Ledger {
	return Ledger{}
}

// FromEntries returns a ledger holding a copy of entries in order. It is the
// inverse of Entries and exists so persisted snapshots can be restored.
func FromEntries(entries []Entry) Ledger {
	if len(entries) == 0 {
		return Ledger{}
	}
	owned := make([]Entry, len(entries))
	copy(owned, entries)
	return Ledger{entries: owned}
}

// Append returns a new ledger with entry appended. The receiver is left
// untouched: the backing array is copied so older ledger values held by
// callers stay valid for replay regardless of later appends.
func (l Ledger) Append(entry Entry) Ledger {
	entries := make([]Entry, len(l.entries)+1)
	copy(entries, l.entries)
	entries[len(l.entries)] = entry
	return Ledger{entries: entries}
}

// Len returns the number of appended entries.
func (l Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the appended entries in append order.
func (l Ledger) Entries() []Entry {
	if len(l.entries) == 0 {
		return nil
	}
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// BuildRoster replays every entry's mutation batch in append order against an
// empty roster. Replay is a pure function of the entry sequence and the
// organizer set: the same inputs always produce an identical roster.
func (l Ledger) BuildRoster(organizers domain.Users) Roster {
	roster := Roster{}
	for _, entry := range l.entries {
		for _, mutation := range entry.Mutations {
			roster = roster.apply(entry.Author, mutation, organizers)
		}
	}
	return roster
}
