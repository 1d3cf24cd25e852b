package sessions

import (
	"errors"
	"net/http"

	"api/realtime"
	"api/services"
	"api/session"
	"api/utils/response"

	"github.com/gin-gonic/gin"
)

// CreateSession starts a new quiz attempt session
// @Summary Create a quiz session
// @Description Starts a new attempt for the given user and quiz
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "Session details"
// @Success 201 {object} models.Attempt
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /sessions [post]
func CreateSession(c *gin.Context) {
	var request CreateSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	attempt, err := manager.Create(c.Request.Context(), request.UserID, request.QuizID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to create session")
		return
	}

	realtime.BroadcastAttemptUpdate(realtime.AttemptUpdate{
		QuizID:     attempt.QuizID,
		Attempt:    *attempt,
		UpdateType: "created",
	})

	c.JSON(http.StatusCreated, attempt)
}

// GetSession retrieves a quiz attempt session
// @Summary Get a quiz session
// @Description Gets the current state of an attempt
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.Attempt
// @Failure 404 {object} map[string]string
// @Router /sessions/{id} [get]
func GetSession(c *gin.Context) {
	attempt, err := manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			response.NotFound(c, "Session not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to fetch session")
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// UpdateProgress records an answer on an active session
// @Summary Update session progress
// @Description Stores the answer for a question under optimistic locking
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body UpdateProgressRequest true "Answer details"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /sessions/{id}/progress [put]
func UpdateProgress(c *gin.Context) {
	var request UpdateProgressRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	id := c.Param("id")
	ok, err := manager.UpdateProgress(c.Request.Context(), id, *request.QuestionIndex, request.Answer)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to update session")
		return
	}
	if !ok {
		// Missing session and lost race both come back false, the re-read
		// picks the right status code
		if _, err := manager.Get(c.Request.Context(), id); errors.Is(err, session.ErrNotFound) {
			response.NotFound(c, "Session not found")
			return
		}
		response.Conflict(c, "Update conflict - session may have been modified")
		return
	}

	if attempt, err := manager.Get(c.Request.Context(), id); err == nil {
		realtime.BroadcastAttemptUpdate(realtime.AttemptUpdate{
			QuizID:     attempt.QuizID,
			Attempt:    *attempt,
			UpdateType: "progress",
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Progress updated successfully"})
}

// CompleteSession marks a session as completed
// @Summary Complete a quiz session
// @Description Marks the attempt completed and stops its keep-alive task
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sessions/{id}/complete [post]
func CompleteSession(c *gin.Context) {
	finishSession(c, func(id string) (bool, error) {
		return manager.Complete(c.Request.Context(), id)
	}, "Session completed successfully")
}

// AbandonSession marks a session as abandoned
// @Summary Abandon a quiz session
// @Description Marks the attempt abandoned and stops its keep-alive task
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sessions/{id}/abandon [post]
func AbandonSession(c *gin.Context) {
	finishSession(c, func(id string) (bool, error) {
		return manager.Abandon(c.Request.Context(), id)
	}, "Session abandoned successfully")
}

func finishSession(c *gin.Context, finish func(string) (bool, error), message string) {
	id := c.Param("id")

	ok, err := finish(id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to finish session")
		return
	}
	if !ok {
		response.NotFound(c, "Session not found or already finished")
		return
	}

	if attempt, err := manager.Get(c.Request.Context(), id); err == nil {
		realtime.BroadcastAttemptUpdate(realtime.AttemptUpdate{
			QuizID:     attempt.QuizID,
			Attempt:    *attempt,
			UpdateType: "finished",
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// GetUserSessions lists all attempts of a user
// @Summary Get a user's sessions
// @Description Lists every attempt of the user, newest first
// @Tags Sessions
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /sessions/user/{user_id} [get]
func GetUserSessions(c *gin.Context) {
	attempts, err := services.ListUserAttempts(c.Param("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to fetch user sessions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": attempts})
}
