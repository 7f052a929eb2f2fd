// Package ops exposes the gateway's operational HTTP surface: liveness and
// per-channel status for on-call inspection.
package ops

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/teamforge/brigade/internal/brigade/domain"
	"github.com/teamforge/brigade/internal/brigade/session"
	"github.com/teamforge/brigade/internal/storage"
)

// Handler serves operational endpoints from the persisted state.
type Handler struct {
	Channels storage.ChannelStore
	Sessions storage.SessionStore
}

// NewHandler creates an operational handler over the given stores.
func NewHandler(channels storage.ChannelStore, sessions storage.SessionStore) *Handler {
	return &Handler{Channels: channels, Sessions: sessions}
}

// Router builds the operational route table.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.handleHealth)
	r.Get("/channels/{channelID}", h.handleChannelStatus)
	return r
}

type channelStatusResponse struct {
	ChannelID     string    `json:"channel_id"`
	Organizers    []string  `json:"organizers"`
	Rotation      bool      `json:"rotation"`
	SessionStatus string    `json:"session_status"`
	LedgerEntries int       `json:"ledger_entries"`
	LastModified  time.Time `json:"last_modified"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleChannelStatus(w http.ResponseWriter, r *http.Request) {
	channelID := domain.ChannelID(chi.URLParam(r, "channelID"))

	record, err := h.Channels.GetChannel(r.Context(), channelID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "channel not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := channelStatusResponse{
		ChannelID:     string(channelID),
		Organizers:    userNames(record.Organizers),
		Rotation:      record.Rotation,
		SessionStatus: "inactive",
	}
	sess, err := h.Sessions.LoadSession(r.Context(), channelID)
	switch {
	case err == nil:
		if sess.Status == session.StatusActive {
			response.SessionStatus = "active"
		}
		response.LedgerEntries = sess.Ledger.Len()
		response.LastModified = sess.LastModified
	case errors.Is(err, storage.ErrNotFound):
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, response)
}

func userNames(users domain.Users) []string {
	names := make([]string, 0, len(users))
	for _, user := range users {
		names = append(names, string(user))
	}
	return names
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
