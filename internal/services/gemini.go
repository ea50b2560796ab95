package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/redis/go-redis/v9"

	"google.golang.org/api/option"

	"watchwise-backend/internal/models"
	"watchwise-backend/internal/websocket"
)

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	redis    *redis.Client
	rateChan chan struct{} // Token bucket
}

// InsightContent is the AI-generated part of a pause insight, before it is
// stamped with ids and timestamps.
type InsightContent struct {
	Summary    string                `json:"summary"`
	Flashcards []models.Flashcard    `json:"flashcards"`
	Quiz       []models.QuizQuestion `json:"quiz"`
}

func NewGeminiService(apiKey string, concurrentReqs int, redisClient *redis.Client) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		redis:    redisClient,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (s *GeminiService) PublishUpdate(ctx context.Context, userID string, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, websocket.UserChannel(userID), string(data))
}

// GenerateInsight turns the transcript window leading up to a pause into a
// summary, flashcards and a short quiz.
func (s *GeminiService) GenerateInsight(ctx context.Context, videoTitle, transcriptWindow string, pauseSeconds int) (*InsightContent, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildInsightPrompt(videoTitle, transcriptWindow, pauseSeconds)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := extractText(resp)
	rawText = strings.TrimPrefix(rawText, "```json")
	rawText = strings.TrimPrefix(rawText, "```")
	rawText = strings.TrimSuffix(rawText, "```")
	rawText = strings.TrimSpace(rawText)

	var content InsightContent
	if err := json.Unmarshal([]byte(rawText), &content); err != nil {
		// Try to extract the JSON object
		start := strings.Index(rawText, "{")
		end := strings.LastIndex(rawText, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("Gemini reply is not valid JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(rawText[start:end+1]), &content); err != nil {
			return nil, fmt.Errorf("Gemini reply is not valid JSON: %w", err)
		}
	}

	validated := validateInsightContent(content)
	if validated.Summary == "" {
		return nil, fmt.Errorf("Gemini reply has no summary")
	}

	return &validated, nil
}

// ChatWithInsights answers a question grounded in the study material
// accumulated for one viewing session.
func (s *GeminiService) ChatWithInsights(ctx context.Context, insightContext, message string, history []models.ChatMessage) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	var b strings.Builder
	b.WriteString("You are a study companion helping a learner understand a video they are watching. ")
	b.WriteString("Answer using the study notes below. If the answer is not in the notes, say so briefly and answer from general knowledge.\n\n")
	b.WriteString("---STUDY NOTES---\n")
	b.WriteString(insightContext)
	b.WriteString("\n---END NOTES---\n\n")

	for _, msg := range history {
		switch msg.Role {
		case "user":
			b.WriteString("Learner: " + msg.Content + "\n")
		case "assistant":
			b.WriteString("Companion: " + msg.Content + "\n")
		}
	}
	b.WriteString("Learner: " + message + "\nCompanion:")

	resp, err := s.model.GenerateContent(ctx, genai.Text(b.String()))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	reply := strings.TrimSpace(extractText(resp))
	if reply == "" {
		return "", fmt.Errorf("Gemini returned an empty reply")
	}
	return reply, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func buildInsightPrompt(videoTitle, transcriptWindow string, pauseSeconds int) string {
	var b strings.Builder

	b.WriteString("You are an expert study-aid generator. A learner paused the video ")
	if videoTitle != "" {
		b.WriteString(fmt.Sprintf("%q ", videoTitle))
	}
	b.WriteString(fmt.Sprintf("at %d seconds. The transcript of the section they just watched follows.\n\n", pauseSeconds))

	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")

	b.WriteString(`JSON schema:
{
  "summary": "2-4 sentence recap of the section just watched",
  "flashcards": [{"question": "string", "answer": "string"}],
  "quiz": [{"question": "string", "options": ["string"], "correct_index": int}]
}

Rules:
- 3 flashcards: question under 15 words, answer under 40 words, each testing a different concept.
- 2 quiz questions: exactly 4 options each, exactly one correct, correct_index is the 0-based position of the correct option.
- Everything must be answerable from the transcript section alone.
`)

	b.WriteString("\n---TRANSCRIPT SECTION---\n")
	b.WriteString(transcriptWindow)
	b.WriteString("\n---END---\n")

	return b.String()
}

const (
	maxInsightFlashcards = 5
	maxInsightQuiz       = 5
)

func validateInsightContent(content InsightContent) InsightContent {
	out := InsightContent{Summary: strings.TrimSpace(content.Summary)}

	for _, f := range content.Flashcards {
		if strings.TrimSpace(f.Question) == "" || strings.TrimSpace(f.Answer) == "" {
			continue
		}
		out.Flashcards = append(out.Flashcards, f)
		if len(out.Flashcards) == maxInsightFlashcards {
			break
		}
	}

	for _, q := range content.Quiz {
		if strings.TrimSpace(q.Question) == "" || len(q.Options) < 2 {
			continue
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			continue
		}
		out.Quiz = append(out.Quiz, q)
		if len(out.Quiz) == maxInsightQuiz {
			break
		}
	}

	return out
}
