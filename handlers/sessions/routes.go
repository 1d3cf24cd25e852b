package sessions

import (
	"api/session"

	"github.com/gin-gonic/gin"
)

var manager *session.Manager

// RegisterRoutes registers all routes related to quiz attempt sessions
// r: the RouterGroup to which the routes are added
// m: the session manager backing the handlers
func RegisterRoutes(r *gin.RouterGroup, m *session.Manager) {
	manager = m

	routes := r.Group("/sessions")
	{
		routes.POST("/", CreateSession)
		routes.GET("/:id", GetSession)
		routes.PUT("/:id/progress", UpdateProgress)
		routes.POST("/:id/complete", CompleteSession)
		routes.POST("/:id/abandon", AbandonSession)
		routes.GET("/user/:user_id", GetUserSessions)
		routes.GET("/quiz/:quiz_id/ws", QuizAttemptsWebSocket)
	}
}
