package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"watchwise-backend/internal/middleware"
	"watchwise-backend/internal/models"
)

type chatService interface {
	ChatWithInsights(ctx context.Context, insightContext, message string, history []models.ChatMessage) (string, error)
}

type ChatHandler struct {
	store  insightStore
	gemini chatService
}

func NewChatHandler(store insightStore, gemini chatService) *ChatHandler {
	return &ChatHandler{store: store, gemini: gemini}
}

// AskQuestion answers a learner's question grounded in the insights
// accumulated for this viewing session.
func (h *ChatHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	insights, err := h.store.ListInsights(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load insights", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	insightContext := buildInsightContext(insights, userID)
	if insightContext == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No insights for this session to chat about", r))
		return
	}

	reply, err := h.gemini.ChatWithInsights(r.Context(), insightContext, req.Message, req.History)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("AI_ERROR", "Failed to get AI response", r))
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}

func buildInsightContext(insights []models.PauseInsight, userID string) string {
	var parts []string
	for _, in := range insights {
		if in.UserID != userID {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "At %ds: %s", in.Timestamp, in.Summary)
		for _, f := range in.Flashcards {
			fmt.Fprintf(&b, "\nQ: %s\nA: %s", f.Question, f.Answer)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}
