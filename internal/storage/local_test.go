package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"watchwise-backend/internal/models"
)

func newTestLocalStore(t *testing.T) (*LocalStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewLocalStore(NewFileKV(dir)), dir
}

func TestFileKV_SetGet(t *testing.T) {
	kv := NewFileKV(t.TempDir())

	if _, ok, err := kv.Get("missing"); err != nil || ok {
		t.Fatalf("expected miss for absent key, ok=%v err=%v", ok, err)
	}

	if err := kv.Set("video_sessions_u1", `[{"id":"s1"}]`); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	value, ok, err := kv.Get("video_sessions_u1")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if value != `[{"id":"s1"}]` {
		t.Errorf("unexpected value %q", value)
	}
}

func TestLocalStore_CorruptDocumentReadsAsEmpty(t *testing.T) {
	store, dir := newTestLocalStore(t)

	path := filepath.Join(dir, "video_sessions_u1.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListSessions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("corrupt document must not raise: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result for corrupt document, got %d", len(got))
	}
}

func TestLocalStore_ReplaceByVideoKeepsStoredID(t *testing.T) {
	store, _ := newTestLocalStore(t)
	ctx := context.Background()

	first := session("s1", "v1", "u1", 0, time.Now())
	if err := store.SaveSession(ctx, first); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// A second client generates its own id for the same video; the stored
	// record's id must not change.
	second := session("s-other", "v1", "u1", 300, time.Now())
	if err := store.SaveSession(ctx, second); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, _ := store.ListSessions(ctx, "u1")
	if len(got) != 1 {
		t.Fatalf("expected 1 session, got %d", len(got))
	}
	if got[0].ID != "s1" {
		t.Errorf("expected stored id s1 to survive the update, got %s", got[0].ID)
	}
	if got[0].Progress != 300 {
		t.Errorf("expected updated progress 300, got %d", got[0].Progress)
	}
	if second.ID != "s1" {
		t.Errorf("expected caller's copy realigned to stored id, got %s", second.ID)
	}
}

func TestLocalStore_TruncatesToCap(t *testing.T) {
	store, _ := newTestLocalStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxSessionsPerUser+5; i++ {
		vs := session(fmt.Sprintf("s%d", i), fmt.Sprintf("v%d", i), "u1", 0, base.Add(time.Duration(i)*time.Minute))
		if err := store.SaveSession(ctx, vs); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	got, _ := store.ListSessions(ctx, "u1")
	if len(got) != MaxSessionsPerUser {
		t.Fatalf("expected %d sessions, got %d", MaxSessionsPerUser, len(got))
	}
	// The oldest entries fell off the tail.
	for _, vs := range got {
		if vs.VideoID == "v0" || vs.VideoID == "v4" {
			t.Errorf("expected oldest session %s to be evicted", vs.VideoID)
		}
	}
}

func TestLocalStore_InsightsAppendAndSortAscending(t *testing.T) {
	store, _ := newTestLocalStore(t)
	ctx := context.Background()

	// Deliberately out of order: a slow worker can finish a later pause
	// first. The read side sorts by pause timestamp.
	for _, ts := range []int{150, 30, 90} {
		in := &models.PauseInsight{
			ID:        fmt.Sprintf("i%d", ts),
			SessionID: "sess1",
			Timestamp: ts,
			Summary:   "s",
			UserID:    "u1",
			CreatedAt: time.Now(),
		}
		if err := store.SaveInsight(ctx, in); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	got, _ := store.ListInsights(ctx, "sess1")
	if len(got) != 3 {
		t.Fatalf("expected 3 insights, got %d", len(got))
	}
	for i, want := range []int{30, 90, 150} {
		if got[i].Timestamp != want {
			t.Errorf("index %d: expected timestamp %d, got %d", i, want, got[i].Timestamp)
		}
	}
}

func TestLocalStore_ConcurrentSavesNeverTearDocument(t *testing.T) {
	store, _ := newTestLocalStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.SaveSession(ctx, session(fmt.Sprintf("s%d", i), "v1", "u1", i, time.Now()))
		}(i)
	}
	wg.Wait()

	got, err := store.ListSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected a single (u1, v1) record, got %d", len(got))
	}
}

func TestLocalStore_KeysPerUserAndSession(t *testing.T) {
	store, dir := newTestLocalStore(t)
	ctx := context.Background()

	store.SaveSession(ctx, session("s1", "v1", "u1", 0, time.Now()))
	store.SaveInsight(ctx, &models.PauseInsight{ID: "i1", SessionID: "sess1", Timestamp: 40, UserID: "u1"})

	for _, name := range []string{"video_sessions_u1.json", "pause_insights_sess1.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected document %s: %v", name, err)
		}
	}
}

func TestLocalStore_WriteFailureSurfaces(t *testing.T) {
	// Point the store at a path occupied by a regular file: every write must
	// fail loudly, while reads still behave as "no data".
	blocked := filepath.Join(t.TempDir(), "not-a-directory")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	store := NewLocalStore(NewFileKV(blocked))
	ctx := context.Background()

	err := store.SaveSession(ctx, &models.ViewingSession{
		ID: "s1", VideoID: "v1", UserID: "u1", LastWatched: time.Now().UTC(),
	})
	if err == nil {
		t.Fatal("expected save to an unwritable data dir to fail")
	}

	err = store.SaveInsight(ctx, &models.PauseInsight{
		ID: "i1", SessionID: "sess1", Timestamp: 60, UserID: "u1",
	})
	if err == nil {
		t.Fatal("expected insight save to an unwritable data dir to fail")
	}

	sessions, err := store.ListSessions(ctx, "u1")
	if err != nil || len(sessions) != 0 {
		t.Errorf("expected empty read from broken dir, got %v sessions, err=%v", len(sessions), err)
	}
	insights, err := store.ListInsights(ctx, "sess1")
	if err != nil || len(insights) != 0 {
		t.Errorf("expected empty read from broken dir, got %v insights, err=%v", len(insights), err)
	}
}
