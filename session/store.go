package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"api/metrics"
	"api/models"

	"gorm.io/gorm"
)

// DurableStore is the authoritative storage tier for quiz attempts. Every
// call may block on network I/O and must be given a context.
type DurableStore interface {
	// Insert stores a brand-new attempt, failing with ErrDuplicateID if the
	// id is already taken.
	Insert(ctx context.Context, attempt *models.Attempt) error

	// FetchByID returns the stored attempt or ErrNotFound.
	FetchByID(ctx context.Context, id string) (*models.Attempt, error)

	// CompareAndSwapUpdate applies mutate to the stored attempt only if its
	// version still equals expectedVersion, bumping the version by exactly
	// one. Returns ErrVersionConflict if a concurrent writer won, ErrNotFound
	// if the id is unknown.
	CompareAndSwapUpdate(ctx context.Context, id string, expectedVersion int, mutate func(*models.Attempt)) (*models.Attempt, error)

	// MarkStatus moves the attempt to newStatus unless it is already in a
	// terminal status. Returns false without error when nothing was updated.
	MarkStatus(ctx context.Context, id string, newStatus models.AttemptStatus) (bool, error)

	// Touch refreshes last_updated as a liveness signal. It does not change
	// the version.
	Touch(ctx context.Context, id string) error
}

var terminalStatuses = []models.AttemptStatus{
	models.AttemptCompleted,
	models.AttemptExpired,
	models.AttemptAbandoned,
}

// GormStore implements DurableStore on top of a relational database
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Insert(ctx context.Context, attempt *models.Attempt) error {
	defer observeStoreOp("insert")()

	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateID
		}
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

func (s *GormStore) FetchByID(ctx context.Context, id string) (*models.Attempt, error) {
	defer observeStoreOp("fetch")()

	var attempt models.Attempt
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch attempt: %w", err)
	}
	return &attempt, nil
}

func (s *GormStore) CompareAndSwapUpdate(ctx context.Context, id string, expectedVersion int, mutate func(*models.Attempt)) (*models.Attempt, error) {
	defer observeStoreOp("cas_update")()

	current, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		metrics.VersionConflicts.Inc()
		return nil, ErrVersionConflict
	}

	updated := *current
	mutate(&updated)

	// Immutable fields are pinned regardless of what the mutation touched
	updated.ID = current.ID
	updated.UserID = current.UserID
	updated.QuizID = current.QuizID
	updated.StartedAt = current.StartedAt
	updated.Version = expectedVersion + 1
	updated.LastUpdated = time.Now().UTC()

	// The version predicate in the WHERE clause is the single point of
	// serialization between concurrent writers on the same id
	result := s.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"answers":          updated.Answers,
			"current_question": updated.CurrentQuestion,
			"status":           updated.Status,
			"time_remaining":   updated.TimeRemaining,
			"version":          updated.Version,
			"last_updated":     updated.LastUpdated,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Lost the race between the read and the update, or the row vanished
		if _, err := s.FetchByID(ctx, id); err != nil {
			return nil, err
		}
		metrics.VersionConflicts.Inc()
		return nil, ErrVersionConflict
	}

	return &updated, nil
}

func (s *GormStore) MarkStatus(ctx context.Context, id string, newStatus models.AttemptStatus) (bool, error) {
	defer observeStoreOp("mark_status")()

	result := s.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses).
		Updates(map[string]interface{}{
			"status":       newStatus,
			"last_updated": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark attempt status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) Touch(ctx context.Context, id string) error {
	defer observeStoreOp("touch")()

	result := s.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("id = ?", id).
		Update("last_updated", time.Now().UTC())
	if result.Error != nil {
		return fmt.Errorf("failed to touch attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func observeStoreOp(operation string) func() {
	start := time.Now()
	return func() {
		metrics.DatabaseOperationDuration.WithLabelValues(operation, models.Attempt{}.TableName()).
			Observe(time.Since(start).Seconds())
	}
}
