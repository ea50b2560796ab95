package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"watchwise-backend/internal/middleware"
	"watchwise-backend/internal/models"
)

type insightStore interface {
	ListInsights(ctx context.Context, sessionID string) ([]models.PauseInsight, error)
}

type jobQueue interface {
	Enqueue(ctx context.Context, job *models.InsightJob) error
	Get(ctx context.Context, jobID string) (*models.InsightJob, error)
}

type InsightHandler struct {
	store insightStore
	queue jobQueue
}

func NewInsightHandler(store insightStore, queue jobQueue) *InsightHandler {
	return &InsightHandler{store: store, queue: queue}
}

// List returns a session's insights, ascending by pause timestamp.
func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	insights, err := h.store.ListInsights(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list insights", r))
		return
	}

	// Sessions are private: an insight list that belongs to someone else is
	// indistinguishable from an empty one.
	userID := middleware.GetUserID(r.Context())
	filtered := insights[:0]
	for _, in := range insights {
		if in.UserID == userID {
			filtered = append(filtered, in)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"insights": filtered,
	})
}

// Pause accepts a pause event and queues insight generation. Pauses inside
// the first 30 seconds are seeking noise and acknowledged without a job.
func (h *InsightHandler) Pause(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req models.PauseEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.VideoID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "video_id is required", r))
		return
	}
	if req.Timestamp < 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "timestamp must be non-negative", r))
		return
	}

	if req.Timestamp < models.MinInsightPauseSeconds {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"queued":  false,
			"message": "Pause too early for an insight",
		})
		return
	}

	job := &models.InsightJob{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		VideoID:   req.VideoID,
		Timestamp: req.Timestamp,
		Status:    "pending",
		CreatedAt: time.Now().UTC(),
	}

	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Insight queue is unavailable", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"queued": true,
		"job":    job,
	})
}

// GetJob reports insight-generation progress for polling clients.
func (h *InsightHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	jobID := chi.URLParam(r, "id")

	job, err := h.queue.Get(r.Context(), jobID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load job", r))
		return
	}
	if job == nil || job.UserID != userID {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job": job,
	})
}
