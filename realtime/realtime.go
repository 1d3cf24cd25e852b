package realtime

import (
	"log"
	"sync"

	"api/models"

	"github.com/gorilla/websocket"
)

var (
	quizClients = make(map[string]map[*websocket.Conn]bool) // Map of quiz ID to connected clients
	broadcast   = make(chan AttemptUpdate)                  // Broadcast channel for updates
	mutex       sync.Mutex                                  // Mutex to protect quizClients map
)

// AttemptUpdate represents a new or updated attempt on a quiz
type AttemptUpdate struct {
	QuizID     string         `json:"quiz_id"`
	Attempt    models.Attempt `json:"attempt"`
	UpdateType string         `json:"update_type"` // "created", "progress" or "finished"
}

// RegisterClient adds a WebSocket client to a specific quiz
func RegisterClient(quizID string, conn *websocket.Conn) {
	mutex.Lock()
	if quizClients[quizID] == nil {
		quizClients[quizID] = make(map[*websocket.Conn]bool)
	}
	quizClients[quizID][conn] = true
	mutex.Unlock()
}

// UnregisterClient removes a WebSocket client from a specific quiz
func UnregisterClient(quizID string, conn *websocket.Conn) {
	mutex.Lock()
	if clients, exists := quizClients[quizID]; exists {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(quizClients, quizID)
		}
	}
	mutex.Unlock()
}

// BroadcastAttemptUpdate sends updates to all clients watching a quiz
func BroadcastAttemptUpdate(update AttemptUpdate) {
	broadcast <- update
}

func handleBroadcast() {
	for {
		update := <-broadcast
		mutex.Lock()
		if clients, exists := quizClients[update.QuizID]; exists {
			for client := range clients {
				if err := client.WriteJSON(update); err != nil {
					log.Printf("WebSocket write error: %v", err)
					client.Close()
					delete(clients, client)
				}
			}
		}
		mutex.Unlock()
	}
}

func init() {
	go handleBroadcast()
}
