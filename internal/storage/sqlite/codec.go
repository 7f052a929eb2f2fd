package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/teamforge/brigade/internal/brigade/command"
	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/brigade/ledger"
	"github.com/teamforge/brigade/internal/brigade/session"
	apperrors "github.com/teamforge/brigade/internal/errors"
)

// Mutation kinds stored in session snapshots. Decoding rejects anything else
// so a snapshot written by a newer build fails loudly instead of replaying
// with silently dropped entries.
const (
	mutationKindVolunteer = "volunteer"
	mutationKindWithdraw  = "withdraw"
	mutationKindAssign    = "assign"
	mutationKindUnassign  = "unassign"
)

type mutationRecord struct {
	Kind string `json:"kind"`
	User string `json:"user,omitempty"`
	Role string `json:"role"`
}

type entryRecord struct {
	MessageID string           `json:"message_id"`
	Author    string           `json:"author"`
	Mutations []mutationRecord `json:"mutations"`
}

type slotRecord struct {
	Role     string `json:"role"`
	Capacity int    `json:"capacity"`
}

type sessionRecord struct {
	Status        int           `json:"status"`
	Organizer     string        `json:"organizer,omitempty"`
	OpenMessageID string        `json:"open_message_id,omitempty"`
	DisplayID     string        `json:"display_id,omitempty"`
	Slots         []slotRecord  `json:"slots,omitempty"`
	Entries       []entryRecord `json:"entries,omitempty"`
}

type teamRecord struct {
	Members map[string][]string `json:"members"`
}

func encodeMutation(m command.Mutation) (mutationRecord, error) {
	switch m := m.(type) {
	case command.Volunteer:
		return mutationRecord{Kind: mutationKindVolunteer, Role: string(m.Role)}, nil
	case command.Withdraw:
		return mutationRecord{Kind: mutationKindWithdraw, Role: string(m.Role)}, nil
	case command.Assign:
		return mutationRecord{Kind: mutationKindAssign, User: string(m.User), Role: string(m.Role)}, nil
	case command.Unassign:
		return mutationRecord{Kind: mutationKindUnassign, User: string(m.User), Role: string(m.Role)}, nil
	default:
		return mutationRecord{}, fmt.Errorf("unsupported mutation type %T", m)
	}
}

func decodeMutation(record mutationRecord) (command.Mutation, error) {
	switch record.Kind {
	case mutationKindVolunteer:
		return command.Volunteer{Role: domain.Role(record.Role)}, nil
	case mutationKindWithdraw:
		return command.Withdraw{Role: domain.Role(record.Role)}, nil
	case mutationKindAssign:
		return command.Assign{User: domain.User(record.User), Role: domain.Role(record.Role)}, nil
	case mutationKindUnassign:
		return command.Unassign{User: domain.User(record.User), Role: domain.Role(record.Role)}, nil
	default:
		return nil, fmt.Errorf("unknown mutation kind %q", record.Kind)
	}
}

func encodeSession(s session.Session) ([]byte, error) {
	record := sessionRecord{
		Status:        int(s.Status),
		Organizer:     string(s.Organizer),
		OpenMessageID: string(s.OpenMessageID),
		DisplayID:     string(s.DisplayID),
	}
	for _, slot := range s.Slots {
		record.Slots = append(record.Slots, slotRecord{
			Role:     string(slot.Role),
			Capacity: slot.Capacity,
		})
	}
	for _, entry := range s.Ledger.Entries() {
		encoded := entryRecord{
			MessageID: string(entry.MessageID),
			Author:    string(entry.Author),
		}
		for _, mutation := range entry.Mutations {
			mr, err := encodeMutation(mutation)
			if err != nil {
				return nil, fmt.Errorf("encode session entry: %w", err)
			}
			encoded.Mutations = append(encoded.Mutations, mr)
		}
		record.Entries = append(record.Entries, encoded)
	}
	return json.Marshal(record)
}

func decodeSession(data []byte) (session.Session, error) {
	var record sessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return session.Session{}, apperrors.Wrap(apperrors.CodeSnapshotCorrupt, "decode session snapshot", err)
	}
	s := session.Session{
		Status:        session.Status(record.Status),
		Organizer:     domain.User(record.Organizer),
		OpenMessageID: domain.MessageID(record.OpenMessageID),
		DisplayID:     domain.MessageID(record.DisplayID),
	}
	for _, slot := range record.Slots {
		s.Slots = append(s.Slots, domain.Slot{
			Role:     domain.Role(slot.Role),
			Capacity: slot.Capacity,
		})
	}
	var entries []ledger.Entry
	for _, encoded := range record.Entries {
		entry := ledger.Entry{
			MessageID: domain.MessageID(encoded.MessageID),
			Author:    domain.User(encoded.Author),
		}
		for _, mr := range encoded.Mutations {
			mutation, err := decodeMutation(mr)
			if err != nil {
				return session.Session{}, apperrors.Wrap(apperrors.CodeSnapshotCorrupt, "decode session snapshot", err)
			}
			entry.Mutations = append(entry.Mutations, mutation)
		}
		entries = append(entries, entry)
	}
	s.Ledger = ledger.FromEntries(entries)
	return s, nil
}

func encodeTeams(teams []domain.Team) ([]byte, error) {
	records := make([]teamRecord, 0, len(teams))
	for _, team := range teams {
		record := teamRecord{Members: make(map[string][]string, len(team.Members))}
		for role, users := range team.Members {
			names := make([]string, 0, len(users))
			for _, user := range users {
				names = append(names, string(user))
			}
			record.Members[string(role)] = names
		}
		records = append(records, record)
	}
	return json.Marshal(records)
}

func decodeTeams(data []byte) ([]domain.Team, error) {
	var records []teamRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode history round: %w", err)
	}
	teams := make([]domain.Team, 0, len(records))
	for _, record := range records {
		team := domain.NewTeam()
		for role, names := range record.Members {
			users := make([]domain.User, 0, len(names))
			for _, name := range names {
				users = append(users, domain.User(name))
			}
			team.Members[domain.Role(role)] = users
		}
		teams = append(teams, team)
	}
	return teams, nil
}

func encodeUsers(users domain.Users) ([]byte, error) {
	names := make([]string, 0, len(users))
	for _, user := range users {
		names = append(names, string(user))
	}
	return json.Marshal(names)
}

func decodeUsers(data []byte) (domain.Users, error) {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("decode organizers: %w", err)
	}
	users := make(domain.Users, 0, len(names))
	for _, name := range names {
		users = append(users, domain.User(name))
	}
	return users, nil
}
