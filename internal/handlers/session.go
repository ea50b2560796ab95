package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"watchwise-backend/internal/middleware"
	"watchwise-backend/internal/models"
	"watchwise-backend/internal/storage"
)

// sessionStore is the slice of the storage façade the session endpoints
// need. The façade decides which medium serves each call.
type sessionStore interface {
	ListSessions(ctx context.Context, userID string) ([]models.ViewingSession, error)
	SaveSession(ctx context.Context, s *models.ViewingSession) error
}

type SessionHandler struct {
	store sessionStore
}

func NewSessionHandler(store sessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// List returns the caller's sessions, most recently watched first.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessions, err := h.store.ListSessions(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list sessions", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// Save creates the session or updates the record already retained for the
// same video.
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.VideoID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "video_id is required", r))
		return
	}
	if req.Progress < 0 || req.Duration < 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "progress and duration must be non-negative", r))
		return
	}

	session := &models.ViewingSession{
		ID:           req.ID,
		VideoID:      req.VideoID,
		Title:        req.Title,
		ThumbnailURL: req.ThumbnailURL,
		Progress:     req.Progress,
		Duration:     req.Duration,
		LastWatched:  time.Now().UTC(),
		UserID:       userID,
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	if err := h.store.SaveSession(r.Context(), session); err != nil {
		var verr *storage.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", verr.Message, r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save session", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
	})
}
