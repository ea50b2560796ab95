package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"watchwise-backend/internal/middleware"
	"watchwise-backend/internal/models"
	"watchwise-backend/internal/storage"
)

// ─── Test Fakes ───

type fakeSessionStore struct {
	sessions []models.ViewingSession
	saved    []*models.ViewingSession
	listErr  error
	saveErr  error
}

func (f *fakeSessionStore) ListSessions(ctx context.Context, userID string) ([]models.ViewingSession, error) {
	return f.sessions, f.listErr
}

func (f *fakeSessionStore) SaveSession(ctx context.Context, s *models.ViewingSession) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, s)
	return nil
}

type fakeInsightStore struct {
	insights []models.PauseInsight
	listErr  error
}

func (f *fakeInsightStore) ListInsights(ctx context.Context, sessionID string) ([]models.PauseInsight, error) {
	return f.insights, f.listErr
}

type fakeQueue struct {
	enqueued []*models.InsightJob
	jobs     map[string]*models.InsightJob
	err      error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job *models.InsightJob) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, job)
	return nil
}

func (f *fakeQueue) Get(ctx context.Context, jobID string) (*models.InsightJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.jobs[jobID], nil
}

type fakeAvailability struct {
	available bool
}

func (f *fakeAvailability) IsAvailable() bool { return f.available }

func authedRequest(method, target string, body []byte, userID string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// ─── Session Handler Tests ───

func TestSessionSave_GeneratesIDAndTimestamp(t *testing.T) {
	store := &fakeSessionStore{}
	h := NewSessionHandler(store)

	body, _ := json.Marshal(map[string]interface{}{
		"video_id": "dQw4w9WgXcQ",
		"title":    "Intro to Graphs",
		"progress": 42,
		"duration": 600,
	})
	req := authedRequest(http.MethodPost, "/api/v1/sessions", body, "user-1")
	rr := httptest.NewRecorder()

	h.Save(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(store.saved) != 1 {
		t.Fatalf("Expected 1 saved session, got %d", len(store.saved))
	}

	s := store.saved[0]
	if s.ID == "" {
		t.Error("Expected a generated session ID")
	}
	if s.UserID != "user-1" {
		t.Errorf("Expected owner user-1, got %q", s.UserID)
	}
	if s.LastWatched.IsZero() {
		t.Error("Expected last_watched to be stamped")
	}
}

func TestSessionSave_RejectsMissingVideoID(t *testing.T) {
	store := &fakeSessionStore{}
	h := NewSessionHandler(store)

	body, _ := json.Marshal(map[string]interface{}{
		"title":    "No video here",
		"progress": 1,
	})
	req := authedRequest(http.MethodPost, "/api/v1/sessions", body, "user-1")
	rr := httptest.NewRecorder()

	h.Save(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	if len(store.saved) != 0 {
		t.Errorf("Expected no save, got %d", len(store.saved))
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %q", resp.Error.Code)
	}
}

func TestSessionSave_RejectsNegativeProgress(t *testing.T) {
	h := NewSessionHandler(&fakeSessionStore{})

	body, _ := json.Marshal(map[string]interface{}{
		"video_id": "dQw4w9WgXcQ",
		"progress": -3,
	})
	req := authedRequest(http.MethodPost, "/api/v1/sessions", body, "user-1")
	rr := httptest.NewRecorder()

	h.Save(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestSessionSave_MapsStoreValidationError(t *testing.T) {
	store := &fakeSessionStore{
		saveErr: &storage.ValidationError{Message: "video_id is required"},
	}
	h := NewSessionHandler(store)

	body, _ := json.Marshal(map[string]interface{}{"video_id": "abc12345678"})
	req := authedRequest(http.MethodPost, "/api/v1/sessions", body, "user-1")
	rr := httptest.NewRecorder()

	h.Save(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for validation error, got %d", rr.Code)
	}
}

func TestSessionList_ReturnsStoreContents(t *testing.T) {
	store := &fakeSessionStore{
		sessions: []models.ViewingSession{
			{ID: "s1", VideoID: "v1", UserID: "user-1"},
			{ID: "s2", VideoID: "v2", UserID: "user-1"},
		},
	}
	h := NewSessionHandler(store)

	req := authedRequest(http.MethodGet, "/api/v1/sessions", nil, "user-1")
	rr := httptest.NewRecorder()

	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp struct {
		Sessions []models.ViewingSession `json:"sessions"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(resp.Sessions))
	}
}

func TestSessionList_StoreFailure(t *testing.T) {
	store := &fakeSessionStore{listErr: errors.New("boom")}
	h := NewSessionHandler(store)

	req := authedRequest(http.MethodGet, "/api/v1/sessions", nil, "user-1")
	rr := httptest.NewRecorder()

	h.List(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rr.Code)
	}
}

// ─── Insight Handler Tests ───

func TestPause_QueuesJob(t *testing.T) {
	queue := &fakeQueue{}
	h := NewInsightHandler(&fakeInsightStore{}, queue)

	body, _ := json.Marshal(map[string]interface{}{
		"video_id":  "dQw4w9WgXcQ",
		"timestamp": 125,
	})
	req := authedRequest(http.MethodPost, "/api/v1/sessions/sess-1/pause", body, "user-1")
	req = withURLParam(req, "id", "sess-1")
	rr := httptest.NewRecorder()

	h.Pause(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("Expected 1 queued job, got %d", len(queue.enqueued))
	}

	job := queue.enqueued[0]
	if job.SessionID != "sess-1" || job.VideoID != "dQw4w9WgXcQ" || job.Timestamp != 125 {
		t.Errorf("Job carries wrong pause event: %+v", job)
	}
	if job.Status != "pending" {
		t.Errorf("Expected pending status, got %q", job.Status)
	}
	if job.UserID != "user-1" {
		t.Errorf("Expected owner user-1, got %q", job.UserID)
	}
}

func TestPause_EarlyPauseIgnored(t *testing.T) {
	tests := []struct {
		name      string
		timestamp int
	}{
		{"at zero", 0},
		{"mid warmup", 15},
		{"just under threshold", models.MinInsightPauseSeconds - 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			queue := &fakeQueue{}
			h := NewInsightHandler(&fakeInsightStore{}, queue)

			body, _ := json.Marshal(map[string]interface{}{
				"video_id":  "dQw4w9WgXcQ",
				"timestamp": tc.timestamp,
			})
			req := authedRequest(http.MethodPost, "/api/v1/sessions/sess-1/pause", body, "user-1")
			req = withURLParam(req, "id", "sess-1")
			rr := httptest.NewRecorder()

			h.Pause(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("Expected 200 acknowledgement, got %d", rr.Code)
			}
			if len(queue.enqueued) != 0 {
				t.Errorf("Expected no job for early pause, got %d", len(queue.enqueued))
			}

			var resp map[string]interface{}
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if queued, _ := resp["queued"].(bool); queued {
				t.Error("Expected queued=false for early pause")
			}
		})
	}
}

func TestPause_ThresholdBoundary(t *testing.T) {
	queue := &fakeQueue{}
	h := NewInsightHandler(&fakeInsightStore{}, queue)

	body, _ := json.Marshal(map[string]interface{}{
		"video_id":  "dQw4w9WgXcQ",
		"timestamp": models.MinInsightPauseSeconds,
	})
	req := authedRequest(http.MethodPost, "/api/v1/sessions/sess-1/pause", body, "user-1")
	req = withURLParam(req, "id", "sess-1")
	rr := httptest.NewRecorder()

	h.Pause(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected 202 at exactly the threshold, got %d", rr.Code)
	}
	if len(queue.enqueued) != 1 {
		t.Errorf("Expected job at threshold, got %d", len(queue.enqueued))
	}
}

func TestPause_RejectsNegativeTimestamp(t *testing.T) {
	h := NewInsightHandler(&fakeInsightStore{}, &fakeQueue{})

	body, _ := json.Marshal(map[string]interface{}{
		"video_id":  "dQw4w9WgXcQ",
		"timestamp": -5,
	})
	req := authedRequest(http.MethodPost, "/api/v1/sessions/sess-1/pause", body, "user-1")
	req = withURLParam(req, "id", "sess-1")
	rr := httptest.NewRecorder()

	h.Pause(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestInsightList_FiltersOtherUsers(t *testing.T) {
	store := &fakeInsightStore{
		insights: []models.PauseInsight{
			{ID: "i1", SessionID: "sess-1", UserID: "user-1", Timestamp: 40},
			{ID: "i2", SessionID: "sess-1", UserID: "someone-else", Timestamp: 90},
			{ID: "i3", SessionID: "sess-1", UserID: "user-1", Timestamp: 150},
		},
	}
	h := NewInsightHandler(store, &fakeQueue{})

	req := authedRequest(http.MethodGet, "/api/v1/sessions/sess-1/insights", nil, "user-1")
	req = withURLParam(req, "id", "sess-1")
	rr := httptest.NewRecorder()

	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp struct {
		Insights []models.PauseInsight `json:"insights"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Insights) != 2 {
		t.Fatalf("Expected 2 insights for owner, got %d", len(resp.Insights))
	}
	for _, in := range resp.Insights {
		if in.UserID != "user-1" {
			t.Errorf("Leaked insight %s owned by %q", in.ID, in.UserID)
		}
	}
}

func TestGetJob_OwnershipAndMissing(t *testing.T) {
	queue := &fakeQueue{
		jobs: map[string]*models.InsightJob{
			"job-1": {ID: "job-1", UserID: "user-1", Status: "completed"},
			"job-2": {ID: "job-2", UserID: "someone-else", Status: "pending"},
		},
	}
	h := NewInsightHandler(&fakeInsightStore{}, queue)

	tests := []struct {
		name     string
		jobID    string
		wantCode int
	}{
		{"own job", "job-1", http.StatusOK},
		{"foreign job hidden", "job-2", http.StatusNotFound},
		{"unknown job", "job-404", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := authedRequest(http.MethodGet, "/api/v1/jobs/"+tc.jobID, nil, "user-1")
			req = withURLParam(req, "id", tc.jobID)
			rr := httptest.NewRecorder()

			h.GetJob(rr, req)

			if rr.Code != tc.wantCode {
				t.Errorf("Expected %d, got %d", tc.wantCode, rr.Code)
			}
		})
	}
}

// ─── Storage Status Tests ───

func TestStorageStatus(t *testing.T) {
	tests := []struct {
		name        string
		available   bool
		wantBackend string
	}{
		{"remote reachable", true, "remote"},
		{"degraded to local", false, "local"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewStorageStatusHandler(&fakeAvailability{available: tc.available})

			req := authedRequest(http.MethodGet, "/api/v1/storage/status", nil, "user-1")
			rr := httptest.NewRecorder()

			h.Status(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rr.Code)
			}

			var resp map[string]interface{}
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if got, _ := resp["backend"].(string); got != tc.wantBackend {
				t.Errorf("Expected backend %q, got %q", tc.wantBackend, got)
			}
			if got, _ := resp["available"].(bool); got != tc.available {
				t.Errorf("Expected available %v, got %v", tc.available, got)
			}
		})
	}
}

// ─── Chat Context Tests ───

func TestBuildInsightContext_FiltersAndFormats(t *testing.T) {
	insights := []models.PauseInsight{
		{
			ID:        "i1",
			UserID:    "user-1",
			Timestamp: 45,
			Summary:   "Dijkstra relaxes edges in priority order.",
			Flashcards: []models.Flashcard{
				{Question: "What structure drives Dijkstra?", Answer: "A min-priority queue."},
			},
		},
		{ID: "i2", UserID: "someone-else", Timestamp: 90, Summary: "Not yours."},
	}

	ctxText := buildInsightContext(insights, "user-1")

	if !bytes.Contains([]byte(ctxText), []byte("At 45s")) {
		t.Errorf("Expected timestamp marker in context, got %q", ctxText)
	}
	if !bytes.Contains([]byte(ctxText), []byte("min-priority queue")) {
		t.Errorf("Expected flashcard answer in context, got %q", ctxText)
	}
	if bytes.Contains([]byte(ctxText), []byte("Not yours")) {
		t.Errorf("Context leaked another user's insight: %q", ctxText)
	}
}
