package storage

import (
	"encoding/json"
	"time"

	"watchwise-backend/internal/models"
)

// Stored documents use camelCase field names — the wire convention of the
// record-store clients that wrote the original data — while the in-memory
// models marshal snake_case for the API. The mapping below must stay exact
// and bidirectional for every persisted field; codec_test.go walks both
// directions field by field.

type wireSession struct {
	ID           string    `json:"id"`
	VideoID      string    `json:"videoId"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Progress     int       `json:"progress"`
	Duration     int       `json:"duration"`
	LastWatched  time.Time `json:"lastWatched"`
	UserID       string    `json:"userId"`
}

type wireFlashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type wireQuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

type wireInsight struct {
	ID         string             `json:"id"`
	SessionID  string             `json:"sessionId"`
	Timestamp  int                `json:"timestamp"`
	Summary    string             `json:"summary"`
	Flashcards []wireFlashcard    `json:"flashcards"`
	Quiz       []wireQuizQuestion `json:"quiz"`
	UserID     string             `json:"userId"`
	CreatedAt  time.Time          `json:"createdAt"`
}

func sessionToWire(s models.ViewingSession) wireSession {
	return wireSession{
		ID:           s.ID,
		VideoID:      s.VideoID,
		Title:        s.Title,
		ThumbnailURL: s.ThumbnailURL,
		Progress:     s.Progress,
		Duration:     s.Duration,
		LastWatched:  s.LastWatched,
		UserID:       s.UserID,
	}
}

func sessionFromWire(w wireSession) models.ViewingSession {
	return models.ViewingSession{
		ID:           w.ID,
		VideoID:      w.VideoID,
		Title:        w.Title,
		ThumbnailURL: w.ThumbnailURL,
		Progress:     w.Progress,
		Duration:     w.Duration,
		LastWatched:  w.LastWatched,
		UserID:       w.UserID,
	}
}

func insightToWire(in models.PauseInsight) wireInsight {
	w := wireInsight{
		ID:         in.ID,
		SessionID:  in.SessionID,
		Timestamp:  in.Timestamp,
		Summary:    in.Summary,
		Flashcards: make([]wireFlashcard, len(in.Flashcards)),
		Quiz:       make([]wireQuizQuestion, len(in.Quiz)),
		UserID:     in.UserID,
		CreatedAt:  in.CreatedAt,
	}
	for i, f := range in.Flashcards {
		w.Flashcards[i] = wireFlashcard(f)
	}
	for i, q := range in.Quiz {
		w.Quiz[i] = wireQuizQuestion{Question: q.Question, Options: q.Options, CorrectIndex: q.CorrectIndex}
	}
	return w
}

func insightFromWire(w wireInsight) models.PauseInsight {
	in := models.PauseInsight{
		ID:         w.ID,
		SessionID:  w.SessionID,
		Timestamp:  w.Timestamp,
		Summary:    w.Summary,
		Flashcards: make([]models.Flashcard, len(w.Flashcards)),
		Quiz:       make([]models.QuizQuestion, len(w.Quiz)),
		UserID:     w.UserID,
		CreatedAt:  w.CreatedAt,
	}
	for i, f := range w.Flashcards {
		in.Flashcards[i] = models.Flashcard(f)
	}
	for i, q := range w.Quiz {
		in.Quiz[i] = models.QuizQuestion{Question: q.Question, Options: q.Options, CorrectIndex: q.CorrectIndex}
	}
	return in
}

// encodeSessions serializes a session collection as the plain JSON array
// stored under one composite key.
func encodeSessions(sessions []models.ViewingSession) (string, error) {
	wire := make([]wireSession, len(sessions))
	for i, s := range sessions {
		wire[i] = sessionToWire(s)
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeSessions(value string) ([]models.ViewingSession, error) {
	var wire []wireSession
	if err := json.Unmarshal([]byte(value), &wire); err != nil {
		return nil, err
	}
	sessions := make([]models.ViewingSession, len(wire))
	for i, w := range wire {
		sessions[i] = sessionFromWire(w)
	}
	return sessions, nil
}

func encodeInsights(insights []models.PauseInsight) (string, error) {
	wire := make([]wireInsight, len(insights))
	for i, in := range insights {
		wire[i] = insightToWire(in)
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeInsights(value string) ([]models.PauseInsight, error) {
	var wire []wireInsight
	if err := json.Unmarshal([]byte(value), &wire); err != nil {
		return nil, err
	}
	insights := make([]models.PauseInsight, len(wire))
	for i, w := range wire {
		insights[i] = insightFromWire(w)
	}
	return insights, nil
}
