// Package wire defines the JSON contract carried over NATS between chat
// integrations and the brigade gateway. Inbound envelopes carry either a
// channel configuration or a command batch; outbound envelopes carry one
// reply each.
package wire

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/teamforge/brigade/internal/brigade/command"
	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/brigade/reply"
	apperrors "github.com/teamforge/brigade/internal/errors"
)

// Inbound envelope kinds.
const (
	EnvelopeConfigure = "configure"
	EnvelopeSubmit    = "submit"
)

// Command kinds accepted in submit envelopes. The set mirrors the usage
// vocabulary the engine reports.
const (
	CommandOpen      = "open"
	CommandHelp      = "help"
	CommandQuery     = "query"
	CommandVolunteer = "volunteer"
	CommandWithdraw  = "withdraw"
	CommandAssign    = "assign"
	CommandUnassign  = "unassign"
	CommandAbort     = "abort"
	CommandClose     = "close"
)

// Reply kinds carried by outbound envelopes.
const (
	ReplyUsage         = "usage"
	ReplyStatus        = "status"
	ReplyUpdateTeams   = "update_teams"
	ReplyFinalizeTeams = "finalize_teams"
	ReplyAbandonTeams  = "abandon_teams"
)

// SlotRecord is one role-to-capacity pair in an open command.
type SlotRecord struct {
	Role     string `json:"role"`
	Capacity int    `json:"capacity"`
}

// CommandRecord is one command in a submit envelope. Kind selects the
// variant; the remaining fields are read per kind.
type CommandRecord struct {
	Kind      string       `json:"kind"`
	User      string       `json:"user,omitempty"`
	Role      string       `json:"role,omitempty"`
	Slots     []SlotRecord `json:"slots,omitempty"`
	DisplayID string       `json:"display_id,omitempty"`
}

// ConfigureRequest replaces a channel's organizer set and derivation mode.
type ConfigureRequest struct {
	Organizers []string `json:"organizers"`
	Rotation   bool     `json:"rotation"`
}

// SubmitRequest carries one author's command batch for one chat message.
type SubmitRequest struct {
	Author    string          `json:"author"`
	MessageID string          `json:"message_id"`
	Commands  []CommandRecord `json:"commands"`
}

// Envelope is the inbound message published to brigade.cmd.<channel>.
type Envelope struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	ChannelID string            `json:"channel_id"`
	Timestamp time.Time         `json:"timestamp"`
	Configure *ConfigureRequest `json:"configure,omitempty"`
	Submit    *SubmitRequest    `json:"submit,omitempty"`
}

// ParseEnvelope decodes and validates one inbound envelope. Every failure
// carries a coded error so the gateway can count drops by cause. Validation
// failures return the decoded envelope alongside the error so a drop can
// still be attributed to its channel; only unparseable JSON yields a zero
// envelope.
func ParseEnvelope(payload []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return Envelope{}, apperrors.Wrap(apperrors.CodeEnvelopeInvalid, "decode envelope", err)
	}
	if strings.TrimSpace(envelope.ChannelID) == "" {
		return envelope, apperrors.New(apperrors.CodeChannelIDRequired, "envelope channel id is required")
	}
	switch envelope.Kind {
	case EnvelopeConfigure:
		if envelope.Configure == nil {
			return envelope, apperrors.New(apperrors.CodeEnvelopeInvalid, "configure envelope without configure body")
		}
	case EnvelopeSubmit:
		if envelope.Submit == nil {
			return envelope, apperrors.New(apperrors.CodeEnvelopeInvalid, "submit envelope without submit body")
		}
		if strings.TrimSpace(envelope.Submit.Author) == "" {
			return envelope, apperrors.New(apperrors.CodeEnvelopeInvalid, "submit envelope without author")
		}
		if strings.TrimSpace(envelope.Submit.MessageID) == "" {
			return envelope, apperrors.New(apperrors.CodeEnvelopeInvalid, "submit envelope without message id")
		}
	default:
		return envelope, apperrors.New(apperrors.CodeEnvelopeUnknown, fmt.Sprintf("unknown envelope kind %q", envelope.Kind))
	}
	return envelope, nil
}

// DecodeCommands translates command records into engine commands in order.
func DecodeCommands(records []CommandRecord) ([]command.Command, error) {
	commands := make([]command.Command, 0, len(records))
	for _, record := range records {
		decoded, err := decodeCommand(record)
		if err != nil {
			return nil, err
		}
		commands = append(commands, decoded)
	}
	return commands, nil
}

func decodeCommand(record CommandRecord) (command.Command, error) {
	switch record.Kind {
	case CommandOpen:
		slots := make(domain.Slots, 0, len(record.Slots))
		for _, slot := range record.Slots {
			if strings.TrimSpace(slot.Role) == "" {
				return nil, apperrors.New(apperrors.CodeCommandInvalid, "open slot without role")
			}
			if slot.Capacity < 0 {
				return nil, apperrors.New(apperrors.CodeCommandInvalid, "open slot with negative capacity")
			}
			slots = append(slots, domain.Slot{Role: domain.Role(slot.Role), Capacity: slot.Capacity})
		}
		return command.Open{Slots: slots, DisplayID: domain.MessageID(record.DisplayID)}, nil
	case CommandHelp:
		return command.Help{}, nil
	case CommandQuery:
		if strings.TrimSpace(record.User) == "" {
			return nil, apperrors.New(apperrors.CodeCommandInvalid, "query without user")
		}
		return command.Query{User: domain.User(record.User)}, nil
	case CommandVolunteer:
		if strings.TrimSpace(record.Role) == "" {
			return nil, apperrors.New(apperrors.CodeCommandInvalid, "volunteer without role")
		}
		return command.Volunteer{Role: domain.Role(record.Role)}, nil
	case CommandWithdraw:
		if strings.TrimSpace(record.Role) == "" {
			return nil, apperrors.New(apperrors.CodeCommandInvalid, "withdraw without role")
		}
		return command.Withdraw{Role: domain.Role(record.Role)}, nil
	case CommandAssign:
		if strings.TrimSpace(record.User) == "" || strings.TrimSpace(record.Role) == "" {
			return nil, apperrors.New(apperrors.CodeCommandInvalid, "assign requires user and role")
		}
		return command.Assign{User: domain.User(record.User), Role: domain.Role(record.Role)}, nil
	case CommandUnassign:
		if strings.TrimSpace(record.User) == "" || strings.TrimSpace(record.Role) == "" {
			return nil, apperrors.New(apperrors.CodeCommandInvalid, "unassign requires user and role")
		}
		return command.Unassign{User: domain.User(record.User), Role: domain.Role(record.Role)}, nil
	case CommandAbort:
		return command.Abort{}, nil
	case CommandClose:
		return command.Close{}, nil
	default:
		return nil, apperrors.New(apperrors.CodeCommandInvalid, fmt.Sprintf("unknown command kind %q", record.Kind))
	}
}

// TeamRecord is one team in an outbound reply.
type TeamRecord struct {
	Members map[string][]string `json:"members"`
}

// ReplyEnvelope is the outbound message published to brigade.reply.<channel>.
// Kind selects which payload pointer is set.
type ReplyEnvelope struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	Usage         *UsagePayload   `json:"usage,omitempty"`
	Status        *StatusPayload  `json:"status,omitempty"`
	UpdateTeams   *TeamsPayload   `json:"update_teams,omitempty"`
	FinalizeTeams *TeamsPayload   `json:"finalize_teams,omitempty"`
	AbandonTeams  *AbandonPayload `json:"abandon_teams,omitempty"`
}

// UsagePayload carries the command vocabulary.
type UsagePayload struct {
	Commands []string `json:"commands"`
}

// StatusPayload reports one user's standing.
type StatusPayload struct {
	User        string   `json:"user"`
	Assigned    []string `json:"assigned"`
	Volunteered []string `json:"volunteered"`
}

// TeamsPayload carries a team display refresh or the finalized teams.
type TeamsPayload struct {
	DisplayID string       `json:"display_id,omitempty"`
	Teams     []TeamRecord `json:"teams"`
}

// AbandonPayload retires a team display.
type AbandonPayload struct {
	DisplayID string `json:"display_id"`
}

// EncodeReply wraps one engine reply in an outbound envelope.
func EncodeReply(id string, channelID domain.ChannelID, r reply.Reply, at time.Time) ([]byte, error) {
	envelope := ReplyEnvelope{
		ID:        id,
		ChannelID: string(channelID),
		Timestamp: at.UTC(),
	}
	switch r := r.(type) {
	case reply.Usage:
		envelope.Kind = ReplyUsage
		envelope.Usage = &UsagePayload{Commands: r.Commands}
	case reply.Status:
		envelope.Kind = ReplyStatus
		envelope.Status = &StatusPayload{
			User:        string(r.User),
			Assigned:    roleNames(r.Assigned),
			Volunteered: roleNames(r.Volunteered),
		}
	case reply.UpdateTeams:
		envelope.Kind = ReplyUpdateTeams
		envelope.UpdateTeams = &TeamsPayload{
			DisplayID: string(r.DisplayID),
			Teams:     teamRecords(r.Teams),
		}
	case reply.FinalizeTeams:
		envelope.Kind = ReplyFinalizeTeams
		envelope.FinalizeTeams = &TeamsPayload{
			DisplayID: string(r.DisplayID),
			Teams:     teamRecords(r.Teams),
		}
	case reply.AbandonTeams:
		envelope.Kind = ReplyAbandonTeams
		envelope.AbandonTeams = &AbandonPayload{DisplayID: string(r.DisplayID)}
	default:
		return nil, fmt.Errorf("unsupported reply type %T", r)
	}
	return json.Marshal(envelope)
}

func roleNames(roles []domain.Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return names
}

func teamRecords(teams []domain.Team) []TeamRecord {
	records := make([]TeamRecord, 0, len(teams))
	for _, team := range teams {
		record := TeamRecord{Members: make(map[string][]string, len(team.Members))}
		for role, users := range team.Members {
			names := make([]string, 0, len(users))
			for _, user := range users {
				names = append(names, string(user))
			}
			record.Members[string(role)] = names
		}
		records = append(records, record)
	}
	return records
}
