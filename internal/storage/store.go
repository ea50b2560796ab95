package storage

import (
	"context"
	"fmt"

	"watchwise-backend/internal/models"
)

// MaxSessionsPerUser caps the retained viewing-session set per user. Both
// media enforce the same cap so the caller cannot tell them apart.
const MaxSessionsPerUser = 20

// Store is one persistence medium for viewing sessions and pause insights.
// The Manager holds two implementations — a remote Postgres store and a
// local file-backed store — and hides the choice from its callers.
type Store interface {
	// Ping is a minimal bounded probe. It must be cheap and side-effect free.
	Ping(ctx context.Context) error

	// ListSessions returns a user's sessions, most recently watched first,
	// at most MaxSessionsPerUser entries.
	ListSessions(ctx context.Context, userID string) ([]models.ViewingSession, error)

	// SaveSession inserts the session, or updates the existing record for
	// the same (user, video) pair in place. The session id, video id and
	// user id of an existing record are never changed by an update.
	SaveSession(ctx context.Context, s *models.ViewingSession) error

	// ListInsights returns a session's insights ascending by pause timestamp.
	ListInsights(ctx context.Context, sessionID string) ([]models.PauseInsight, error)

	// SaveInsight appends the insight. Insights are never replaced.
	SaveInsight(ctx context.Context, in *models.PauseInsight) error
}

// ValidationError reports a precondition violation on a record handed to the
// Manager. It is the caller's bug, not a storage failure, so it is never
// absorbed by the fallback path.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validateSession(s *models.ViewingSession) error {
	if s == nil {
		return &ValidationError{Message: "session is nil"}
	}
	if s.UserID == "" {
		return &ValidationError{Message: "session user_id is required"}
	}
	if s.VideoID == "" {
		return &ValidationError{Message: "session video_id is required"}
	}
	return nil
}

func validateInsight(in *models.PauseInsight) error {
	if in == nil {
		return &ValidationError{Message: "insight is nil"}
	}
	if in.UserID == "" {
		return &ValidationError{Message: "insight user_id is required"}
	}
	if in.SessionID == "" {
		return &ValidationError{Message: "insight session_id is required"}
	}
	for i, q := range in.Quiz {
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return &ValidationError{
				Message: fmt.Sprintf("quiz question %d: correct_index %d out of range for %d options", i, q.CorrectIndex, len(q.Options)),
			}
		}
	}
	return nil
}
