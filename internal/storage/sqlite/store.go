// Package sqlite provides a SQLite-backed brigade storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/brigade/session"
	sqlitemigrate "github.com/teamforge/brigade/internal/platform/storage/sqlitemigrate"
	"github.com/teamforge/brigade/internal/storage"
	"github.com/teamforge/brigade/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists brigade state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite brigade store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutChannel upserts one channel configuration record.
func (s *Store) PutChannel(ctx context.Context, record storage.ChannelRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	channelID := strings.TrimSpace(string(record.ChannelID))
	if channelID == "" {
		return fmt.Errorf("channel id is required")
	}
	organizers, err := encodeUsers(record.Organizers)
	if err != nil {
		return fmt.Errorf("put channel: %w", err)
	}
	updatedAt := record.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	rotation := 0
	if record.Rotation {
		rotation = 1
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO channels (channel_id, organizers, rotation, history_depth, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(channel_id) DO UPDATE SET
		   organizers = excluded.organizers,
		   rotation = excluded.rotation,
		   history_depth = excluded.history_depth,
		   updated_at = excluded.updated_at`,
		channelID,
		string(organizers),
		rotation,
		record.HistoryDepth,
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("put channel: %w", err)
	}
	return nil
}

// GetChannel returns one channel configuration record.
func (s *Store) GetChannel(ctx context.Context, channelID domain.ChannelID) (storage.ChannelRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ChannelRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ChannelRecord{}, fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(string(channelID))
	if id == "" {
		return storage.ChannelRecord{}, fmt.Errorf("channel id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT organizers, rotation, history_depth, updated_at
		   FROM channels
		  WHERE channel_id = ?`,
		id,
	)

	var organizers string
	var rotation int
	var depth int
	var updatedAt int64
	if err := row.Scan(&organizers, &rotation, &depth, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ChannelRecord{}, storage.ErrNotFound
		}
		return storage.ChannelRecord{}, fmt.Errorf("get channel: %w", err)
	}

	record := storage.ChannelRecord{
		ChannelID:    domain.ChannelID(id),
		Rotation:     rotation != 0,
		HistoryDepth: depth,
		UpdatedAt:    fromMillis(updatedAt),
	}
	users, err := decodeUsers([]byte(organizers))
	if err != nil {
		return storage.ChannelRecord{}, fmt.Errorf("get channel: %w", err)
	}
	record.Organizers = users
	return record, nil
}

// SaveSession upserts one channel's session snapshot.
func (s *Store) SaveSession(ctx context.Context, channelID domain.ChannelID, sess session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(string(channelID))
	if id == "" {
		return fmt.Errorf("channel id is required")
	}
	snapshot, err := encodeSession(sess)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO sessions (channel_id, snapshot, last_modified)
		 VALUES (?, ?, ?)
		 ON CONFLICT(channel_id) DO UPDATE SET
		   snapshot = excluded.snapshot,
		   last_modified = excluded.last_modified`,
		id,
		string(snapshot),
		toMillis(sess.LastModified),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns one channel's session snapshot. A missing snapshot
// returns storage.ErrNotFound; a snapshot that cannot be decoded returns an
// error carrying the snapshot-corrupt code so callers can fall back to an
// inactive session.
func (s *Store) LoadSession(ctx context.Context, channelID domain.ChannelID) (session.Session, error) {
	if err := ctx.Err(); err != nil {
		return session.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return session.Session{}, fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(string(channelID))
	if id == "" {
		return session.Session{}, fmt.Errorf("channel id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT snapshot, last_modified FROM sessions WHERE channel_id = ?`,
		id,
	)

	var snapshot string
	var lastModified int64
	if err := row.Scan(&snapshot, &lastModified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Session{}, storage.ErrNotFound
		}
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}

	sess, err := decodeSession([]byte(snapshot))
	if err != nil {
		return session.Session{}, err
	}
	sess.LastModified = fromMillis(lastModified)
	return sess, nil
}

// PrependHistory records one finalized team-set as the channel's most recent
// round.
func (s *Store) PrependHistory(ctx context.Context, channelID domain.ChannelID, teams []domain.Team) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(string(channelID))
	if id == "" {
		return fmt.Errorf("channel id is required")
	}
	encoded, err := encodeTeams(teams)
	if err != nil {
		return fmt.Errorf("prepend history: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO history_rounds (channel_id, teams, created_at) VALUES (?, ?, ?)`,
		id,
		string(encoded),
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("prepend history: %w", err)
	}
	return nil
}

// LoadHistory returns the channel's most recent rounds bounded to depth.
func (s *Store) LoadHistory(ctx context.Context, channelID domain.ChannelID, depth int) (domain.History, error) {
	if err := ctx.Err(); err != nil {
		return domain.History{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.History{}, fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(string(channelID))
	if id == "" {
		return domain.History{}, fmt.Errorf("channel id is required")
	}
	history := domain.NewHistory(depth)
	if depth <= 0 {
		return history, nil
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT teams FROM history_rounds
		  WHERE channel_id = ?
		  ORDER BY id DESC
		  LIMIT ?`,
		id,
		depth,
	)
	if err != nil {
		return domain.History{}, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var rounds [][]domain.Team
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return domain.History{}, fmt.Errorf("load history: %w", err)
		}
		teams, err := decodeTeams([]byte(encoded))
		if err != nil {
			return domain.History{}, fmt.Errorf("load history: %w", err)
		}
		rounds = append(rounds, teams)
	}
	if err := rows.Err(); err != nil {
		return domain.History{}, fmt.Errorf("load history: %w", err)
	}

	// Rows arrive most recent first; Prepend oldest first to rebuild.
	for i := len(rounds) - 1; i >= 0; i-- {
		history = history.Prepend(rounds[i])
	}
	return history, nil
}

// AppendTelemetryEvent inserts one operational telemetry event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, event storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	kind := strings.TrimSpace(event.Kind)
	if kind == "" {
		return fmt.Errorf("telemetry kind is required")
	}
	timestamp := event.Timestamp.UTC()
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO telemetry_events (channel_id, kind, detail, created_at)
		 VALUES (?, ?, ?, ?)`,
		string(event.ChannelID),
		kind,
		event.Detail,
		toMillis(timestamp),
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

var _ storage.ChannelStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.HistoryStore = (*Store)(nil)
var _ storage.TelemetryStore = (*Store)(nil)
