// Package storage defines the persistence contracts for the brigade engine:
// per-channel session snapshots, brigade configuration, rotation history, and
// operational telemetry. Implementations live in subpackages.
package storage

import (
	"context"
	"time"

	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/brigade/session"
	apperrors "github.com/teamforge/brigade/internal/errors"
)

// ErrNotFound indicates a requested record is missing. Callers loading a
// session treat it as "no session": an inactive session at epoch zero.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ChannelRecord stores one channel's organizer set and derivation settings.
type ChannelRecord struct {
	ChannelID    domain.ChannelID
	Organizers   domain.Users
	Rotation     bool
	HistoryDepth int
	UpdatedAt    time.Time
}

// ChannelStore persists per-channel brigade configuration.
type ChannelStore interface {
	PutChannel(ctx context.Context, record ChannelRecord) error
	GetChannel(ctx context.Context, channelID domain.ChannelID) (ChannelRecord, error)
}

// SessionStore persists one session snapshot per channel.
type SessionStore interface {
	SaveSession(ctx context.Context, channelID domain.ChannelID, s session.Session) error
	LoadSession(ctx context.Context, channelID domain.ChannelID) (session.Session, error)
}

// HistoryStore persists finalized team-sets, most recent first.
type HistoryStore interface {
	PrependHistory(ctx context.Context, channelID domain.ChannelID, teams []domain.Team) error
	LoadHistory(ctx context.Context, channelID domain.ChannelID, depth int) (domain.History, error)
}

// TelemetryEvent records one operational event.
type TelemetryEvent struct {
	Timestamp time.Time
	ChannelID domain.ChannelID
	Kind      string
	Detail    string
}

// TelemetryStore appends operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, event TelemetryEvent) error
}
