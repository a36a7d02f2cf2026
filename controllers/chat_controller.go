package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopbot/models"
	"shopbot/services"
)

type turnProcessor interface {
	ProcessTurn(ctx context.Context, sessionID, userMessage string) (*services.TurnResult, error)
}

type historyStore interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ChatTurn, error)
	ClearSession(ctx context.Context, sessionID string) error
}

type sessionEvictor interface {
	Remove(sessionID string)
}

type ChatController struct {
	chat     turnProcessor
	history  historyStore
	sessions sessionEvictor
}

func NewChatController(chat turnProcessor, history historyStore, sessions sessionEvictor) *ChatController {
	return &ChatController{
		chat:     chat,
		history:  history,
		sessions: sessions,
	}
}

func (ctrl *ChatController) HandleChat(c *gin.Context) {
	var request struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		log.Printf("Error binding JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if request.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No message provided"})
		return
	}
	if request.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No session ID provided"})
		return
	}

	result, err := ctrl.chat.ProcessTurn(c.Request.Context(), request.SessionID, request.Message)
	if err != nil {
		log.Printf("Error processing turn for session %s: %v", request.SessionID, err)
		switch {
		case errors.Is(err, services.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrCatalogUnavailable):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products from database"})
		case errors.Is(err, services.ErrMalformedCatalog):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid product data format"})
		case errors.Is(err, services.ErrModelUnavailable):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate response"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":      result.Response,
		"products":      result.Products,
		"product_links": result.ProductLinks,
	})
}

func (ctrl *ChatController) GetHistory(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No session ID provided"})
		return
	}

	history, err := ctrl.history.ListBySession(c.Request.Context(), sessionID, services.DefaultHistoryLimit)
	if err != nil {
		log.Printf("Error fetching chat history for session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chat history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// Logout clears the durable history for a session and drops its live model
// conversation, so both memories reset together.
func (ctrl *ChatController) Logout(c *gin.Context) {
	var request struct {
		SessionID string `json:"session_id"`
	}

	if err := c.ShouldBindJSON(&request); err != nil || request.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No session ID provided"})
		return
	}

	if err := ctrl.history.ClearSession(c.Request.Context(), request.SessionID); err != nil {
		log.Printf("Error clearing chat history for session %s: %v", request.SessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear chat history"})
		return
	}

	ctrl.sessions.Remove(request.SessionID)

	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared successfully"})
}

func (ctrl *ChatController) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"message": "Chatbot API is running",
	})
}
