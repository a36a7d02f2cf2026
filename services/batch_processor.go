package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sashabaranov/go-openai"

	"shopbot/models"
)

// BatchProcessor periodically condenses recent chat activity into one
// summary row (plus embedding vector) per session, feeding later analysis
// without replaying full transcripts.
type BatchProcessor struct {
	db     *sql.DB
	openai *openai.Client
}

func NewBatchProcessor(db *sql.DB, openaiKey string) (*BatchProcessor, error) {
	if openaiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	return &BatchProcessor{
		db:     db,
		openai: openai.NewClient(openaiKey),
	}, nil
}

// EnsureSchema creates the session_summaries table if needed.
func (bp *BatchProcessor) EnsureSchema(ctx context.Context) error {
	_, err := bp.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_summaries (
			id VARCHAR(36) PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL,
			summary TEXT NOT NULL,
			vector FLOAT8[],
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (session_id, start_time, end_time)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create session_summaries table: %w", err)
	}
	return nil
}

// ProcessSessions summarizes every session with chat activity inside the
// window ending now. Per-session failures are logged and skipped so one bad
// session cannot stall the run.
func (bp *BatchProcessor) ProcessSessions(ctx context.Context, window time.Duration) error {
	now := time.Now()
	since := now.Add(-window)

	sessionIDs, err := bp.activeSessions(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to get active sessions: %w", err)
	}

	for _, sessionID := range sessionIDs {
		turns, err := bp.turnsInPeriod(ctx, sessionID, since, now)
		if err != nil {
			log.Printf("Error getting turns for session %s: %v", sessionID, err)
			continue
		}
		if len(turns) == 0 {
			continue
		}

		summary, err := bp.summarizeTurns(ctx, turns)
		if err != nil {
			log.Printf("Error summarizing session %s: %v", sessionID, err)
			continue
		}

		vector, err := bp.vectorizeText(ctx, summary)
		if err != nil {
			log.Printf("Error vectorizing summary for session %s: %v", sessionID, err)
			continue
		}

		if err := bp.saveSummary(ctx, models.SessionSummary{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			Summary:   summary,
			Vector:    pq.Float64Array(vector),
			StartTime: since,
			EndTime:   now,
		}); err != nil {
			log.Printf("Error saving summary for session %s: %v", sessionID, err)
			continue
		}

		log.Printf("Summarized session %s (%d turns)", sessionID, len(turns))
	}

	return nil
}

func (bp *BatchProcessor) activeSessions(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := bp.db.QueryContext(ctx, `
		SELECT DISTINCT session_id FROM chat_history WHERE created_at >= $1
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

func (bp *BatchProcessor) turnsInPeriod(ctx context.Context, sessionID string, start, end time.Time) ([]models.ChatTurn, error) {
	rows, err := bp.db.QueryContext(ctx, `
		SELECT user_message, bot_response, created_at
		FROM chat_history
		WHERE session_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at ASC
	`, sessionID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []models.ChatTurn
	for rows.Next() {
		turn := models.ChatTurn{SessionID: sessionID}
		if err := rows.Scan(&turn.UserMessage, &turn.BotResponse, &turn.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func (bp *BatchProcessor) summarizeTurns(ctx context.Context, turns []models.ChatTurn) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Summarize the following shopping-assistant conversation. Capture which products the customer asked about, what was recommended, and any unresolved questions.",
		},
	}
	for _, turn := range turns {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.UserMessage},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.BotResponse},
		)
	}

	resp, err := bp.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    openai.GPT4TurboPreview,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (bp *BatchProcessor) vectorizeText(ctx context.Context, text string) ([]float64, error) {
	resp, err := bp.openai.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.AdaEmbeddingV2,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding creation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings received")
	}

	embedding := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		embedding[i] = float64(v)
	}
	return embedding, nil
}

func (bp *BatchProcessor) saveSummary(ctx context.Context, summary models.SessionSummary) error {
	_, err := bp.db.ExecContext(ctx, `
		INSERT INTO session_summaries (id, session_id, summary, vector, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, start_time, end_time)
		DO UPDATE SET
			summary = EXCLUDED.summary,
			vector = EXCLUDED.vector
	`, summary.ID, summary.SessionID, summary.Summary, summary.Vector, summary.StartTime, summary.EndTime)
	if err != nil {
		return fmt.Errorf("failed to save session summary: %w", err)
	}
	return nil
}
