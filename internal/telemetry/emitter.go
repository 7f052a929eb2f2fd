// Package telemetry records operational events for a brigade deployment:
// round lifecycle, dropped envelopes, and storage fallbacks.
package telemetry

import (
	"context"
	"time"

	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/storage"
)

// Event kinds emitted by the gateway.
const (
	KindRoundOpened      = "round.opened"
	KindRoundClosed      = "round.closed"
	KindRoundAborted     = "round.aborted"
	KindEnvelopeDropped  = "envelope.dropped"
	KindSnapshotRecycled = "snapshot.recycled"
)

// Emitter records operational telemetry events.
type Emitter struct {
	store storage.TelemetryStore
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter.
func NewEmitter(store storage.TelemetryStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records a telemetry event. It is a no-op when the store is nil.
func (e *Emitter) Emit(ctx context.Context, evt storage.TelemetryEvent) error {
	if e == nil || e.store == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		if e.clock == nil {
			evt.Timestamp = time.Now().UTC()
		} else {
			evt.Timestamp = e.clock().UTC()
		}
	}
	return e.store.AppendTelemetryEvent(ctx, evt)
}

// EmitKind records a telemetry event for one channel with a free-form detail.
func (e *Emitter) EmitKind(ctx context.Context, channelID domain.ChannelID, kind, detail string) error {
	return e.Emit(ctx, storage.TelemetryEvent{
		ChannelID: channelID,
		Kind:      kind,
		Detail:    detail,
	})
}
