package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AttemptStatus is the lifecycle state of a quiz attempt
type AttemptStatus string

const (
	AttemptStarted    AttemptStatus = "started"
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptExpired    AttemptStatus = "expired"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// IsTerminal reports whether no further progress updates are allowed
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptCompleted || s == AttemptExpired || s == AttemptAbandoned
}

// AnswerMap maps a question index to the answer text. Stored as JSONB in
// PostgreSQL, as serialized JSON text elsewhere.
type AnswerMap map[int]string

func (a AnswerMap) Value() (driver.Value, error) {
	if a == nil {
		a = AnswerMap{}
	}
	return json.Marshal(a)
}

func (a *AnswerMap) Scan(value interface{}) error {
	if value == nil {
		*a = AnswerMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported answers column type %T", value)
	}
}

// Attempt represents a user's pass at answering a quiz's questions
type Attempt struct {
	ID              string        `gorm:"type:varchar(36);primary_key" json:"id"`
	UserID          string        `gorm:"type:varchar(36);not null;column:user_id;index:idx_user_attempts" json:"user_id"`
	QuizID          string        `gorm:"type:varchar(36);not null;column:quiz_id;index:idx_quiz_attempts" json:"quiz_id"`
	StartedAt       time.Time     `gorm:"not null;column:started_at" json:"started_at"`
	CurrentQuestion int           `gorm:"type:integer;not null;default:0;column:current_question" json:"current_question"`
	Answers         AnswerMap     `gorm:"type:jsonb;not null;default:'{}'" json:"answers"`
	Status          AttemptStatus `gorm:"type:varchar(20);not null;default:'started';index:idx_status_attempts" json:"status"`
	TimeRemaining   int           `gorm:"type:integer;not null;column:time_remaining" json:"time_remaining"`
	LastUpdated     time.Time     `gorm:"not null;column:last_updated" json:"last_updated"`
	Version         int           `gorm:"type:integer;not null;default:1" json:"version"`
}

func (Attempt) TableName() string {
	return "quiz_attempts"
}

// MarshalBinary implements the serialization contract used for cache storage
func (a Attempt) MarshalBinary() ([]byte, error) {
	return json.Marshal(a)
}

// UnmarshalBinary restores an attempt from its cached form
func (a *Attempt) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, a)
}
