package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"watchwise-backend/internal/models"
	"watchwise-backend/internal/services"
	"watchwise-backend/internal/storage"
)

const (
	// InsightQueue is the redis list pause events are pushed onto.
	InsightQueue = "queue:insight-generation"

	jobKeyPrefix = "insight_job:"
	jobTTL       = 24 * time.Hour
)

// Pool runs the asynchronous half of a pause event: fetch the transcript
// window, generate the study material, persist it through the storage
// façade (so generation survives a backend outage the same way every other
// write does) and notify the user.
type Pool struct {
	redis       *redis.Client
	gemini      *services.GeminiService
	youtube     *services.YouTubeService
	store       *storage.Manager
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	gemini *services.GeminiService,
	youtube *services.YouTubeService,
	store *storage.Manager,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		gemini:      gemini,
		youtube:     youtube,
		store:       store,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d insight worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

// Queue is the handlers' view of the job pipeline: push a pause event in,
// poll its status later.
type Queue struct {
	redis *redis.Client
}

func NewQueue(redisClient *redis.Client) *Queue {
	return &Queue{redis: redisClient}
}

// Enqueue records the job and pushes it onto the queue.
func (q *Queue) Enqueue(ctx context.Context, job *models.InsightJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.redis.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL).Err(); err != nil {
		return err
	}
	return q.redis.LPush(ctx, InsightQueue, data).Err()
}

// Get loads a job status record. Returns nil when unknown or expired.
func (q *Queue) Get(ctx context.Context, jobID string) (*models.InsightJob, error) {
	data, err := q.redis.Get(ctx, jobKeyPrefix+jobID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job models.InsightJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, InsightQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.InsightJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := "job_lock:" + job.ID
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: generating insight for session %s at %ds", id, job.SessionID, job.Timestamp)

		p.updateStatus(ctx, &job, "processing", nil)
		p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:    job.ID,
				Step:     1,
				StepName: "Reading transcript",
			},
		})

		if err := p.processInsight(ctx, &job); err != nil {
			p.handleFailure(ctx, &job, err)
		} else {
			p.handleSuccess(ctx, &job)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) processInsight(ctx context.Context, job *models.InsightJob) error {
	window, err := p.youtube.GetTranscriptWindow(job.VideoID, job.Timestamp)
	if err != nil {
		return fmt.Errorf("transcript unavailable: %w", err)
	}

	// Session title feeds the prompt; a miss is fine, the transcript alone
	// is enough.
	var title string
	if sessions, err := p.store.ListSessions(ctx, job.UserID); err == nil {
		for _, s := range sessions {
			if s.ID == job.SessionID {
				title = s.Title
				break
			}
		}
	}

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:    job.ID,
			Step:     2,
			StepName: "Generating study material",
		},
	})

	content, err := p.gemini.GenerateInsight(ctx, title, window, job.Timestamp)
	if err != nil {
		return err
	}

	insight := &models.PauseInsight{
		ID:         uuid.NewString(),
		SessionID:  job.SessionID,
		Timestamp:  job.Timestamp,
		Summary:    content.Summary,
		Flashcards: content.Flashcards,
		Quiz:       content.Quiz,
		UserID:     job.UserID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := p.store.SaveInsight(ctx, insight); err != nil {
		return fmt.Errorf("persist insight: %w", err)
	}

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "insight_ready",
		Payload: models.CompletedEvent{
			JobID:     job.ID,
			InsightID: insight.ID,
			SessionID: job.SessionID,
		},
	})
	return nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.InsightJob) {
	now := time.Now().UTC()
	job.CompletedAt = &now
	p.updateStatus(ctx, job, "completed", nil)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.InsightJob, cause error) {
	log.Printf("Insight job %s failed: %v", job.ID, cause)

	msg := cause.Error()
	now := time.Now().UTC()
	job.CompletedAt = &now
	p.updateStatus(ctx, job, "failed", &msg)

	p.gemini.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "INSIGHT_FAILED",
			ErrorMessage: msg,
		},
	})
}

func (p *Pool) updateStatus(ctx context.Context, job *models.InsightJob, status string, errMsg *string) {
	job.Status = status
	job.ErrorMessage = errMsg
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := p.redis.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL).Err(); err != nil {
		log.Printf("Failed to update job %s status: %v", job.ID, err)
	}
}
