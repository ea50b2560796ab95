package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"watchwise-backend/internal/models"
)

// LocalStore is the on-device fallback. Each user's sessions live as one
// JSON array under "video_sessions_<userId>" and each session's insights
// under "pause_insights_<sessionId>".
//
// The mutex serializes the read-modify-write of a save so a stored document
// is never torn by concurrent writers. That is deliberately the whole
// guarantee: two racing saves still resolve to whichever writer ran last.
type LocalStore struct {
	mu sync.Mutex
	kv *FileKV
}

func NewLocalStore(kv *FileKV) *LocalStore {
	return &LocalStore{kv: kv}
}

// Ping never fails: local storage is the floor everything degrades onto.
func (s *LocalStore) Ping(ctx context.Context) error {
	return nil
}

func sessionsKey(userID string) string {
	return "video_sessions_" + userID
}

func insightsKey(sessionID string) string {
	return "pause_insights_" + sessionID
}

func (s *LocalStore) ListSessions(ctx context.Context, userID string) ([]models.ViewingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSessions(userID), nil
}

// loadSessions treats absence and corrupt JSON alike: no data.
func (s *LocalStore) loadSessions(userID string) []models.ViewingSession {
	value, ok, err := s.kv.Get(sessionsKey(userID))
	if err != nil || !ok {
		return []models.ViewingSession{}
	}
	sessions, err := decodeSessions(value)
	if err != nil {
		return []models.ViewingSession{}
	}
	return sessions
}

func (s *LocalStore) SaveSession(ctx context.Context, vs *models.ViewingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.loadSessions(vs.UserID)

	// Replace the record for this video if present, keeping its original id,
	// else prepend. Either way the saved record moves to the head so the
	// list stays most-recently-watched first.
	updated := *vs
	rest := make([]models.ViewingSession, 0, len(sessions))
	for _, existing := range sessions {
		if existing.VideoID == vs.VideoID {
			updated.ID = existing.ID
			vs.ID = existing.ID
			continue
		}
		rest = append(rest, existing)
	}
	sessions = append([]models.ViewingSession{updated}, rest...)

	if len(sessions) > MaxSessionsPerUser {
		sessions = sessions[:MaxSessionsPerUser]
	}

	value, err := encodeSessions(sessions)
	if err != nil {
		return fmt.Errorf("encode sessions for user %s: %w", vs.UserID, err)
	}
	return s.kv.Set(sessionsKey(vs.UserID), value)
}

func (s *LocalStore) ListInsights(ctx context.Context, sessionID string) ([]models.PauseInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	insights := s.loadInsights(sessionID)
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Timestamp < insights[j].Timestamp
	})
	return insights, nil
}

func (s *LocalStore) loadInsights(sessionID string) []models.PauseInsight {
	value, ok, err := s.kv.Get(insightsKey(sessionID))
	if err != nil || !ok {
		return []models.PauseInsight{}
	}
	insights, err := decodeInsights(value)
	if err != nil {
		return []models.PauseInsight{}
	}
	return insights
}

// SaveInsight appends; there is no replace-by-id for insights.
func (s *LocalStore) SaveInsight(ctx context.Context, in *models.PauseInsight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	insights := append(s.loadInsights(in.SessionID), *in)

	value, err := encodeInsights(insights)
	if err != nil {
		return fmt.Errorf("encode insights for session %s: %w", in.SessionID, err)
	}
	return s.kv.Set(insightsKey(in.SessionID), value)
}
