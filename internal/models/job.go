package models

import "time"

// InsightJob is the envelope pushed onto the redis queue when a qualifying
// pause event arrives, and the status record the UI can poll while the
// worker generates the insight.
type InsightJob struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	SessionID    string     `json:"session_id"`
	VideoID      string     `json:"video_id"`
	Timestamp    int        `json:"timestamp"`
	Status       string     `json:"status"` // "pending" | "processing" | "completed" | "failed"
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// WebSocket message types

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID    string `json:"job_id"`
	Step     int    `json:"step"`
	StepName string `json:"step_name"`
}

type CompletedEvent struct {
	JobID     string `json:"job_id"`
	InsightID string `json:"insight_id"`
	SessionID string `json:"session_id"`
}

type ErrorEvent struct {
	JobID        string `json:"job_id"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// API Error response

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
