package routes

import (
	"shopbot/controllers"
	"shopbot/middlewares"

	"github.com/gin-gonic/gin"
)

func SetupRouter(chat *controllers.ChatController) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CORS())
	r.Use(middlewares.RequestLogger())

	r.GET("/", chat.Home)

	// Send a chat message
	r.POST("/chat", chat.HandleChat)

	// Fetch recent turns for a session
	r.GET("/chat/history/:session_id", chat.GetHistory)

	// Clear a session's history and model memory
	r.POST("/chat/logout", chat.Logout)

	return r
}
