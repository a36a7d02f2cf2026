package models

import (
	"time"
)

// ChatTurn is one persisted request/response exchange. Rows are append-only
// and partitioned by SessionID; ProductLinks is nil for turns where link
// inclusion was not triggered.
type ChatTurn struct {
	ID             int           `json:"id,omitempty"`
	SessionID      string        `json:"session_id"`
	UserMessage    string        `json:"user_message"`
	BotResponse    string        `json:"bot_response"`
	ProductContext string        `json:"product_context,omitempty"`
	ProductLinks   []ProductLink `json:"product_links,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
