package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"watchwise-backend/internal/models"
)

// PostgresStore is the remote backend. The video_sessions table carries
// UNIQUE(user_id, video_id), which is the one-session-per-video invariant
// stated as schema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	return s.pool.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (s *PostgresStore) ListSessions(ctx context.Context, userID string) ([]models.ViewingSession, error) {
	query := `SELECT id, video_id, title, thumbnail_url, progress, duration, last_watched, user_id
		FROM video_sessions
		WHERE user_id = $1
		ORDER BY last_watched DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, userID, MaxSessionsPerUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.ViewingSession{}
	for rows.Next() {
		var vs models.ViewingSession
		if err := rows.Scan(&vs.ID, &vs.VideoID, &vs.Title, &vs.ThumbnailURL,
			&vs.Progress, &vs.Duration, &vs.LastWatched, &vs.UserID); err != nil {
			return nil, err
		}
		sessions = append(sessions, vs)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) SaveSession(ctx context.Context, vs *models.ViewingSession) error {
	// On conflict the stored id wins: updates change only the mutable
	// fields, and the caller's copy is realigned with the retained record.
	query := `INSERT INTO video_sessions (id, video_id, title, thumbnail_url, progress, duration, last_watched, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, video_id) DO UPDATE SET
			title = EXCLUDED.title,
			thumbnail_url = EXCLUDED.thumbnail_url,
			progress = EXCLUDED.progress,
			duration = EXCLUDED.duration,
			last_watched = EXCLUDED.last_watched
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		vs.ID, vs.VideoID, vs.Title, vs.ThumbnailURL, vs.Progress, vs.Duration, vs.LastWatched, vs.UserID,
	).Scan(&vs.ID)
}

func (s *PostgresStore) ListInsights(ctx context.Context, sessionID string) ([]models.PauseInsight, error) {
	query := `SELECT id, session_id, pause_timestamp, summary, flashcards_json, quiz_json, user_id, created_at
		FROM pause_insights
		WHERE session_id = $1
		ORDER BY pause_timestamp ASC, created_at ASC`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	insights := []models.PauseInsight{}
	for rows.Next() {
		var in models.PauseInsight
		var flashcards, quiz []byte
		if err := rows.Scan(&in.ID, &in.SessionID, &in.Timestamp, &in.Summary,
			&flashcards, &quiz, &in.UserID, &in.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(flashcards, &in.Flashcards); err != nil {
			return nil, fmt.Errorf("decode flashcards for insight %s: %w", in.ID, err)
		}
		if err := json.Unmarshal(quiz, &in.Quiz); err != nil {
			return nil, fmt.Errorf("decode quiz for insight %s: %w", in.ID, err)
		}
		insights = append(insights, in)
	}
	return insights, rows.Err()
}

func (s *PostgresStore) SaveInsight(ctx context.Context, in *models.PauseInsight) error {
	flashcards, err := json.Marshal(in.Flashcards)
	if err != nil {
		return fmt.Errorf("encode flashcards: %w", err)
	}
	if in.Flashcards == nil {
		flashcards = []byte("[]")
	}
	quiz, err := json.Marshal(in.Quiz)
	if err != nil {
		return fmt.Errorf("encode quiz: %w", err)
	}
	if in.Quiz == nil {
		quiz = []byte("[]")
	}

	query := `INSERT INTO pause_insights (id, session_id, pause_timestamp, summary, flashcards_json, quiz_json, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.pool.Exec(ctx, query,
		in.ID, in.SessionID, in.Timestamp, in.Summary, flashcards, quiz, in.UserID, in.CreatedAt)
	return err
}
