package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"shopbot/models"
)

const DefaultHistoryLimit = 10

// HistoryService is the durable append-only log of chat turns, partitioned
// by session_id. Appends are not idempotent; a retried append creates a
// duplicate row.
type HistoryService struct {
	db *sql.DB
}

func NewHistoryService(db *sql.DB) *HistoryService {
	return &HistoryService{db: db}
}

// EnsureSchema creates the chat_history table and its session index if they
// do not exist yet. Safe to run on every startup.
func (hs *HistoryService) EnsureSchema(ctx context.Context) error {
	_, err := hs.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chat_history (
			id SERIAL PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			product_context TEXT,
			product_links TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create chat_history table: %w", err)
	}

	_, err = hs.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_chat_history_session_id ON chat_history (session_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create chat_history index: %w", err)
	}
	return nil
}

// Append stores one completed turn. ProductLinks is persisted as JSON text,
// or NULL when the turn did not trigger link inclusion.
func (hs *HistoryService) Append(ctx context.Context, turn models.ChatTurn) error {
	links := sql.NullString{}
	if turn.ProductLinks != nil {
		encoded, err := json.Marshal(turn.ProductLinks)
		if err != nil {
			return fmt.Errorf("%w: encode product links: %v", ErrPersistence, err)
		}
		links = sql.NullString{String: string(encoded), Valid: true}
	}

	_, err := hs.db.ExecContext(ctx, `
		INSERT INTO chat_history (session_id, user_message, bot_response, product_context, product_links)
		VALUES ($1, $2, $3, $4, $5)
	`, turn.SessionID, turn.UserMessage, turn.BotResponse, turn.ProductContext, links)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// ListBySession returns up to limit turns for one session, most recent
// first. Turns from other sessions never leak into the result.
func (hs *HistoryService) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ChatTurn, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := hs.db.QueryContext(ctx, `
		SELECT id, session_id, user_message, bot_response, product_links, created_at
		FROM chat_history
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer rows.Close()

	turns := make([]models.ChatTurn, 0)
	for rows.Next() {
		var (
			turn  models.ChatTurn
			links sql.NullString
		)
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.UserMessage, &turn.BotResponse, &links, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if links.Valid {
			if err := json.Unmarshal([]byte(links.String), &turn.ProductLinks); err != nil {
				return nil, fmt.Errorf("%w: decode product links: %v", ErrPersistence, err)
			}
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return turns, nil
}

// ClearSession deletes all turns for one session. Irreversible; used by
// logout.
func (hs *HistoryService) ClearSession(ctx context.Context, sessionID string) error {
	_, err := hs.db.ExecContext(ctx, `DELETE FROM chat_history WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
