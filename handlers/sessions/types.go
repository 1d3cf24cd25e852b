package sessions

// CreateSessionRequest model for starting a new quiz attempt
type CreateSessionRequest struct {
	UserID string `json:"user_id" binding:"required"`
	QuizID string `json:"quiz_id" binding:"required"`
}

// UpdateProgressRequest model for recording an answer
type UpdateProgressRequest struct {
	QuestionIndex *int   `json:"question_index" binding:"required"`
	Answer        string `json:"answer" binding:"required"`
}
