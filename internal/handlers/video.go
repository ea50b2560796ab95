package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"watchwise-backend/internal/models"
	"watchwise-backend/internal/services"
)

type VideoHandler struct {
	youtube *services.YouTubeService
}

func NewVideoHandler(youtube *services.YouTubeService) *VideoHandler {
	return &VideoHandler{youtube: youtube}
}

// Validate resolves a YouTube URL to the metadata a new viewing session
// starts from.
func (h *VideoHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "url is required", r))
		return
	}

	videoID, err := h.youtube.ExtractVideoID(req.URL)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Not a valid YouTube URL", r))
		return
	}

	meta, err := h.youtube.GetMetadata(videoID)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", "Failed to fetch video metadata", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]*models.VideoMetadata{
		"video": meta,
	})
}
