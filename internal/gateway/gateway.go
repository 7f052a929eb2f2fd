// Package gateway bridges NATS JetStream and the brigade engine. Inbound
// envelopes on brigade.cmd.<channel> are serialized per channel through a
// worker goroutine, applied to the channel's brigade, and the resulting
// replies are published to brigade.reply.<channel>. State is snapshotted
// after every transition.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nuid"
	"github.com/teamforge/brigade/internal/brigade"
	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/brigade/reply"
	"github.com/teamforge/brigade/internal/brigade/session"
	apperrors "github.com/teamforge/brigade/internal/errors"
	"github.com/teamforge/brigade/internal/gateway/wire"
	"github.com/teamforge/brigade/internal/id"
	"github.com/teamforge/brigade/internal/platform/natsutil"
	"github.com/teamforge/brigade/internal/storage"
	"github.com/teamforge/brigade/internal/telemetry"
)

const mailboxDepth = 64

// Stores bundles the persistence contracts the gateway depends on.
type Stores struct {
	Channels storage.ChannelStore
	Sessions storage.SessionStore
	History  storage.HistoryStore
}

// Gateway consumes inbound envelopes and publishes replies.
type Gateway struct {
	stores       Stores
	publisher    natsutil.Publisher
	emitter      *telemetry.Emitter
	historyDepth int
	clock        func() time.Time
	newID        func() string

	mu      sync.Mutex
	stopped bool
	workers map[domain.ChannelID]*channelWorker
	wg      sync.WaitGroup
}

// New creates a gateway over the given stores and publisher.
func New(stores Stores, publisher natsutil.Publisher, emitter *telemetry.Emitter, historyDepth int) *Gateway {
	if historyDepth < 0 {
		historyDepth = 0
	}
	return &Gateway{
		stores:       stores,
		publisher:    publisher,
		emitter:      emitter,
		historyDepth: historyDepth,
		clock:        func() time.Time { return time.Now().UTC() },
		newID:        nuid.Next,
		workers:      make(map[domain.ChannelID]*channelWorker),
	}
}

// Run subscribes to the command stream and processes envelopes until ctx is
// canceled. It drains per-channel workers before returning.
func (g *Gateway) Run(ctx context.Context, js nats.JetStreamContext) error {
	sub, err := js.Subscribe(
		natsutil.CommandSubjectPrefix+">",
		func(msg *nats.Msg) {
			g.Dispatch(ctx, msg.Data)
			if err := msg.Ack(); err != nil {
				log.Printf("ack envelope: %v", err)
			}
		},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.BindStream(natsutil.CommandStream),
	)
	if err != nil {
		return fmt.Errorf("subscribe command stream: %w", err)
	}
	<-ctx.Done()
	// Drain first so no new deliveries race the mailbox close below.
	if err := sub.Drain(); err != nil {
		log.Printf("drain command subscription: %v", err)
	}
	g.stop()
	return nil
}

// Dispatch parses one envelope payload and hands it to the owning channel's
// worker. Malformed envelopes are dropped with a telemetry event.
func (g *Gateway) Dispatch(ctx context.Context, payload []byte) {
	envelope, err := wire.ParseEnvelope(payload)
	if err != nil {
		log.Printf("drop envelope: %v", err)
		channelID := domain.ChannelID(envelope.ChannelID)
		if emitErr := g.emitter.EmitKind(ctx, channelID, telemetry.KindEnvelopeDropped, err.Error()); emitErr != nil {
			log.Printf("emit drop telemetry: %v", emitErr)
		}
		return
	}
	if envelope.ID == "" {
		// Integrations are not required to send ids; assign one so log
		// lines for this envelope stay correlatable.
		if generated, err := id.NewID(); err == nil {
			envelope.ID = generated
		}
	}
	g.enqueue(ctx, domain.ChannelID(envelope.ChannelID), envelope)
}

// enqueue hands the envelope to the owning channel's worker, creating one on
// first use. The send happens under g.mu, the same lock stop takes before
// closing mailboxes, so a late delivery during shutdown is dropped instead of
// racing the close.
func (g *Gateway) enqueue(ctx context.Context, channelID domain.ChannelID, envelope wire.Envelope) {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		log.Printf("gateway stopping, dropping envelope %s", envelope.ID)
		if err := g.emitter.EmitKind(ctx, channelID, telemetry.KindEnvelopeDropped, "gateway stopping"); err != nil {
			log.Printf("emit drop telemetry: %v", err)
		}
		return
	}
	worker, ok := g.workers[channelID]
	if !ok {
		worker = &channelWorker{
			gateway:   g,
			channelID: channelID,
			mailbox:   make(chan task, mailboxDepth),
		}
		g.workers[channelID] = worker
		g.wg.Add(1)
		go worker.run()
	}
	select {
	case worker.mailbox <- task{ctx: ctx, envelope: envelope}:
		g.mu.Unlock()
	default:
		g.mu.Unlock()
		log.Printf("channel %s mailbox full, dropping envelope %s", channelID, envelope.ID)
		if err := g.emitter.EmitKind(ctx, channelID, telemetry.KindEnvelopeDropped, "mailbox full"); err != nil {
			log.Printf("emit drop telemetry: %v", err)
		}
	}
}

func (g *Gateway) stop() {
	g.mu.Lock()
	g.stopped = true
	for _, worker := range g.workers {
		close(worker.mailbox)
	}
	g.workers = make(map[domain.ChannelID]*channelWorker)
	g.mu.Unlock()
	g.wg.Wait()
}

type task struct {
	ctx      context.Context
	envelope wire.Envelope
}

// channelWorker serializes envelope processing for one channel. The brigade
// value is loaded lazily on the first envelope and kept in memory; storage is
// written after every transition so a restart resumes from the snapshot.
type channelWorker struct {
	gateway   *Gateway
	channelID domain.ChannelID
	mailbox   chan task

	loaded  bool
	brigade brigade.Brigade
}

func (w *channelWorker) run() {
	defer w.gateway.wg.Done()
	for t := range w.mailbox {
		if err := w.handle(t.ctx, t.envelope); err != nil {
			log.Printf("channel %s envelope %s: %v", w.channelID, t.envelope.ID, err)
		}
	}
}

// handle applies one envelope to the channel's brigade and publishes the
// resulting replies.
func (w *channelWorker) handle(ctx context.Context, envelope wire.Envelope) error {
	if !w.loaded {
		if err := w.load(ctx); err != nil {
			return err
		}
	}

	at := envelope.Timestamp
	if at.IsZero() {
		at = w.gateway.clock()
	}

	var replies []reply.Reply
	switch envelope.Kind {
	case wire.EnvelopeConfigure:
		next, out, err := w.configure(ctx, *envelope.Configure, at)
		if err != nil {
			return err
		}
		w.brigade = next
		replies = out
	case wire.EnvelopeSubmit:
		next, out, err := w.submit(ctx, *envelope.Submit, at)
		if err != nil {
			return err
		}
		w.brigade = next
		replies = out
	default:
		return apperrors.New(apperrors.CodeEnvelopeUnknown, fmt.Sprintf("unknown envelope kind %q", envelope.Kind))
	}

	if err := w.gateway.stores.Sessions.SaveSession(ctx, w.channelID, w.brigade.Session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	w.publish(replies, at)
	return nil
}

func (w *channelWorker) configure(ctx context.Context, request wire.ConfigureRequest, at time.Time) (brigade.Brigade, []reply.Reply, error) {
	organizers := make(domain.Users, 0, len(request.Organizers))
	for _, name := range request.Organizers {
		if strings.TrimSpace(name) == "" {
			continue
		}
		organizers = append(organizers, domain.User(name))
	}

	cfg := domain.DefaultConfiguration()
	if request.Rotation {
		history, err := w.gateway.stores.History.LoadHistory(ctx, w.channelID, w.gateway.historyDepth)
		if err != nil {
			return brigade.Brigade{}, nil, fmt.Errorf("load history: %w", err)
		}
		cfg = domain.CycleConfiguration(history)
	}

	next, replies := w.brigade.Configure(organizers, cfg, at)

	record := storage.ChannelRecord{
		ChannelID:    w.channelID,
		Organizers:   organizers,
		Rotation:     request.Rotation,
		HistoryDepth: w.gateway.historyDepth,
		UpdatedAt:    at,
	}
	if err := w.gateway.stores.Channels.PutChannel(ctx, record); err != nil {
		return brigade.Brigade{}, nil, fmt.Errorf("put channel: %w", err)
	}
	return next, replies, nil
}

func (w *channelWorker) submit(ctx context.Context, request wire.SubmitRequest, at time.Time) (brigade.Brigade, []reply.Reply, error) {
	commands, err := wire.DecodeCommands(request.Commands)
	if err != nil {
		if emitErr := w.gateway.emitter.EmitKind(ctx, w.channelID, telemetry.KindEnvelopeDropped, err.Error()); emitErr != nil {
			log.Printf("emit drop telemetry: %v", emitErr)
		}
		return brigade.Brigade{}, nil, err
	}

	before := w.brigade.Session.Status
	next, replies := w.brigade.Submit(domain.User(request.Author), domain.MessageID(request.MessageID), commands, at)

	for _, r := range replies {
		switch r := r.(type) {
		case reply.FinalizeTeams:
			if err := w.gateway.stores.History.PrependHistory(ctx, w.channelID, r.Teams); err != nil {
				return brigade.Brigade{}, nil, fmt.Errorf("prepend history: %w", err)
			}
			detail := fmt.Sprintf("%d teams finalized", len(r.Teams))
			if err := w.gateway.emitter.EmitKind(ctx, w.channelID, telemetry.KindRoundClosed, detail); err != nil {
				log.Printf("emit close telemetry: %v", err)
			}
		case reply.AbandonTeams:
			if err := w.gateway.emitter.EmitKind(ctx, w.channelID, telemetry.KindRoundAborted, string(r.DisplayID)); err != nil {
				log.Printf("emit abort telemetry: %v", err)
			}
		}
	}
	if before == session.StatusInactive && next.Session.Status == session.StatusActive {
		if err := w.gateway.emitter.EmitKind(ctx, w.channelID, telemetry.KindRoundOpened, string(request.MessageID)); err != nil {
			log.Printf("emit open telemetry: %v", err)
		}
	}
	return next, replies, nil
}

// load rebuilds the channel's brigade from storage. Missing records fall
// back to an empty brigade; a corrupt snapshot is recycled as an inactive
// session so the channel stays usable.
func (w *channelWorker) load(ctx context.Context) error {
	organizers := domain.Users(nil)
	cfg := domain.DefaultConfiguration()
	record, err := w.gateway.stores.Channels.GetChannel(ctx, w.channelID)
	switch {
	case err == nil:
		organizers = record.Organizers
		if record.Rotation {
			history, err := w.gateway.stores.History.LoadHistory(ctx, w.channelID, record.HistoryDepth)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}
			cfg = domain.CycleConfiguration(history)
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return fmt.Errorf("get channel: %w", err)
	}

	w.brigade = brigade.New(organizers, cfg, time.Time{})
	sess, err := w.gateway.stores.Sessions.LoadSession(ctx, w.channelID)
	switch {
	case err == nil:
		w.brigade.Session = sess
	case errors.Is(err, storage.ErrNotFound):
	case isSnapshotCorrupt(err):
		log.Printf("channel %s snapshot corrupt, starting inactive: %v", w.channelID, err)
		if emitErr := w.gateway.emitter.EmitKind(ctx, w.channelID, telemetry.KindSnapshotRecycled, err.Error()); emitErr != nil {
			log.Printf("emit snapshot telemetry: %v", emitErr)
		}
	default:
		return fmt.Errorf("load session: %w", err)
	}
	w.loaded = true
	return nil
}

func (w *channelWorker) publish(replies []reply.Reply, at time.Time) {
	subject := natsutil.ReplySubjectPrefix + string(w.channelID)
	for _, r := range replies {
		payload, err := wire.EncodeReply(w.gateway.newID(), w.channelID, r, at)
		if err != nil {
			log.Printf("encode reply: %v", err)
			continue
		}
		if err := w.gateway.publisher.Publish(subject, payload); err != nil {
			log.Printf("publish reply: %v", err)
		}
	}
}

func isSnapshotCorrupt(err error) bool {
	var coded *apperrors.Error
	return errors.As(err, &coded) && coded.Code == apperrors.CodeSnapshotCorrupt
}
