package services

import (
	"fmt"
	"time"

	"api/database"
	"api/models"
)

// ListUserAttempts returns all attempts belonging to a user, newest first
func ListUserAttempts(userID string) ([]models.Attempt, error) {
	var attempts []models.Attempt
	if err := database.DB.Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch user attempts: %w", err)
	}
	return attempts, nil
}

// ExpireOverdueAttempts marks every non-terminal attempt whose time budget
// ran out as expired. The countdown is computed lazily from started_at, the
// stored time_remaining snapshot is not consulted. Returns the number of
// attempts expired.
func ExpireOverdueAttempts(budget time.Duration) (int64, error) {
	deadline := time.Now().UTC().Add(-budget)

	result := database.DB.Model(&models.Attempt{}).
		Where("status NOT IN ? AND started_at < ?",
			[]models.AttemptStatus{models.AttemptCompleted, models.AttemptExpired, models.AttemptAbandoned},
			deadline).
		Updates(map[string]interface{}{
			"status":       models.AttemptExpired,
			"last_updated": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire overdue attempts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
