package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"shopbot/models"
)

// persistTimeout bounds the detached history write so a hung database
// connection cannot leak goroutines.
const persistTimeout = 5 * time.Second

type catalogReader interface {
	FetchAvailable(ctx context.Context) ([]models.Product, error)
}

type turnWriter interface {
	Append(ctx context.Context, turn models.ChatTurn) error
}

// TurnResult is what one successful conversation turn returns to the
// transport layer.
type TurnResult struct {
	Response     string               `json:"response"`
	Products     []models.Product     `json:"products"`
	ProductLinks []models.ProductLink `json:"product_links"`
}

// ChatService is the conversation-turn pipeline: catalog fetch, prompt
// composition, model invocation, link extraction, best-effort history write.
type ChatService struct {
	catalog  catalogReader
	history  turnWriter
	sessions *SessionRegistry
}

func NewChatService(catalog catalogReader, history turnWriter, sessions *SessionRegistry) *ChatService {
	return &ChatService{
		catalog:  catalog,
		history:  history,
		sessions: sessions,
	}
}

// ProcessTurn runs one full conversation turn for the given client session.
// History persistence is best-effort: a failed write is logged but the reply
// still reaches the caller. Catalog and model failures abort the turn and
// nothing is persisted.
func (cs *ChatService) ProcessTurn(ctx context.Context, sessionID, userMessage string) (*TurnResult, error) {
	if userMessage == "" {
		return nil, fmt.Errorf("%w: message", ErrInvalidRequest)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id", ErrInvalidRequest)
	}

	products, err := cs.catalog.FetchAvailable(ctx)
	if err != nil {
		return nil, err
	}

	productContext := BuildProductContext(products)
	productLinks := BuildProductLinks(products)
	prompt := BuildPrompt(userMessage, productContext)

	session, err := cs.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	reply, err := session.Submit(ctx, prompt)
	if err != nil {
		return nil, err
	}

	includeLinks := ShouldIncludeLinks(userMessage)

	turn := models.ChatTurn{
		SessionID:      sessionID,
		UserMessage:    userMessage,
		BotResponse:    reply,
		ProductContext: productContext,
	}
	if includeLinks {
		turn.ProductLinks = productLinks
	}
	go cs.persistTurn(turn)

	responseLinks := productLinks
	if !includeLinks {
		responseLinks = []models.ProductLink{}
	}

	return &TurnResult{
		Response:     reply,
		Products:     products,
		ProductLinks: responseLinks,
	}, nil
}

// persistTurn runs detached from the request path; durability is secondary
// to responsiveness here.
func (cs *ChatService) persistTurn(turn models.ChatTurn) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := cs.history.Append(ctx, turn); err != nil {
		log.Printf("Warning: Failed to save chat history for session %s: %v", turn.SessionID, err)
	}
}
