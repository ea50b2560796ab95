package models

import "time"

// MinInsightPauseSeconds is the earliest playback position at which a pause
// produces an insight. Pauses before this are treated as seeking noise.
const MinInsightPauseSeconds = 30

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// PauseInsight holds the AI-generated study material for a single pause
// event. Insights are append-only per session and never updated.
type PauseInsight struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	Timestamp  int            `json:"timestamp"`
	Summary    string         `json:"summary"`
	Flashcards []Flashcard    `json:"flashcards"`
	Quiz       []QuizQuestion `json:"quiz"`
	UserID     string         `json:"user_id"`
	CreatedAt  time.Time      `json:"created_at"`
}

type PauseEventRequest struct {
	VideoID   string `json:"video_id"`
	Timestamp int    `json:"timestamp"`
}
