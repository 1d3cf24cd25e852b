package sessions

import (
	"log"
	"net/http"

	"api/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// QuizAttemptsWebSocket streams attempt updates for a specific quiz
func QuizAttemptsWebSocket(c *gin.Context) {
	quizID := c.Param("quiz_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	realtime.RegisterClient(quizID, conn)
	defer func() {
		realtime.UnregisterClient(quizID, conn)
		conn.Close()
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}
