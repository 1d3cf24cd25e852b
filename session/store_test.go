package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"api/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *GormStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Attempt{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return NewGormStore(db)
}

func testAttempt(id string) *models.Attempt {
	now := time.Now().UTC()
	return &models.Attempt{
		ID:            id,
		UserID:        "u1",
		QuizID:        "q1",
		StartedAt:     now,
		Answers:       models.AnswerMap{},
		Status:        models.AttemptStarted,
		TimeRemaining: 1800,
		LastUpdated:   now,
		Version:       1,
	}
}

func TestGormStore_InsertAndFetch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testAttempt("a1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	fetched, err := store.FetchByID(ctx, "a1")
	if err != nil {
		t.Fatalf("FetchByID failed: %v", err)
	}
	if fetched.UserID != "u1" || fetched.QuizID != "q1" {
		t.Errorf("Fetched wrong record: %+v", fetched)
	}
	if fetched.Version != 1 {
		t.Errorf("Expected version 1, got %d", fetched.Version)
	}
	if fetched.Answers == nil || len(fetched.Answers) != 0 {
		t.Errorf("Expected empty answers map, got %v", fetched.Answers)
	}
}

func TestGormStore_Insert_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testAttempt("a1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testAttempt("a1")); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Expected ErrDuplicateID, got %v", err)
	}
}

func TestGormStore_Fetch_NotFound(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.FetchByID(context.Background(), "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGormStore_CompareAndSwapUpdate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testAttempt("a1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	updated, err := store.CompareAndSwapUpdate(ctx, "a1", 1, func(a *models.Attempt) {
		a.Answers[0] = "A"
		a.CurrentQuestion = 0
		a.Status = models.AttemptInProgress
	})
	if err != nil {
		t.Fatalf("CompareAndSwapUpdate failed: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("Expected version 2, got %d", updated.Version)
	}

	persisted, err := store.FetchByID(ctx, "a1")
	if err != nil {
		t.Fatalf("FetchByID failed: %v", err)
	}
	if persisted.Version != 2 {
		t.Errorf("Expected persisted version 2, got %d", persisted.Version)
	}
	if persisted.Answers[0] != "A" {
		t.Errorf("Expected answer A at index 0, got %v", persisted.Answers)
	}
	if persisted.Status != models.AttemptInProgress {
		t.Errorf("Expected status in_progress, got %s", persisted.Status)
	}
}

func TestGormStore_CompareAndSwapUpdate_VersionConflict(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testAttempt("a1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := store.CompareAndSwapUpdate(ctx, "a1", 1, func(a *models.Attempt) {
		a.Answers[0] = "winner"
	}); err != nil {
		t.Fatalf("Winner update failed: %v", err)
	}

	// Second writer still holds version 1
	_, err := store.CompareAndSwapUpdate(ctx, "a1", 1, func(a *models.Attempt) {
		a.Answers[0] = "loser"
	})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("Expected ErrVersionConflict, got %v", err)
	}

	persisted, _ := store.FetchByID(ctx, "a1")
	if persisted.Answers[0] != "winner" {
		t.Errorf("Loser's mutation was applied: %v", persisted.Answers)
	}
	if persisted.Version != 2 {
		t.Errorf("Expected version 2, got %d", persisted.Version)
	}
}

func TestGormStore_CompareAndSwapUpdate_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.CompareAndSwapUpdate(context.Background(), "nonexistent", 1, func(a *models.Attempt) {})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGormStore_CompareAndSwapUpdate_PinsImmutableFields(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	original := testAttempt("a1")
	if err := store.Insert(ctx, original); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	updated, err := store.CompareAndSwapUpdate(ctx, "a1", 1, func(a *models.Attempt) {
		a.UserID = "someone-else"
		a.QuizID = "other-quiz"
		a.Version = 99
	})
	if err != nil {
		t.Fatalf("CompareAndSwapUpdate failed: %v", err)
	}
	if updated.UserID != "u1" || updated.QuizID != "q1" {
		t.Errorf("Immutable fields were overwritten: %+v", updated)
	}
	if updated.Version != 2 {
		t.Errorf("Version must advance by exactly one, got %d", updated.Version)
	}
}

func TestGormStore_MarkStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testAttempt("a1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	ok, err := store.MarkStatus(ctx, "a1", models.AttemptCompleted)
	if err != nil {
		t.Fatalf("MarkStatus failed: %v", err)
	}
	if !ok {
		t.Fatal("First MarkStatus should report an update")
	}

	// Terminal records reject every further status transition
	for _, status := range []models.AttemptStatus{models.AttemptCompleted, models.AttemptAbandoned, models.AttemptExpired} {
		ok, err := store.MarkStatus(ctx, "a1", status)
		if err != nil {
			t.Fatalf("MarkStatus(%s) errored: %v", status, err)
		}
		if ok {
			t.Errorf("MarkStatus(%s) updated a terminal record", status)
		}
	}

	persisted, _ := store.FetchByID(ctx, "a1")
	if persisted.Status != models.AttemptCompleted {
		t.Errorf("Expected status completed, got %s", persisted.Status)
	}
}

func TestGormStore_MarkStatus_Missing(t *testing.T) {
	store := setupTestStore(t)

	ok, err := store.MarkStatus(context.Background(), "nonexistent", models.AttemptCompleted)
	if err != nil {
		t.Fatalf("MarkStatus errored: %v", err)
	}
	if ok {
		t.Error("MarkStatus on a missing record should report false")
	}
}

func TestGormStore_Touch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	attempt := testAttempt("a1")
	attempt.LastUpdated = time.Now().UTC().Add(-time.Hour)
	if err := store.Insert(ctx, attempt); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.Touch(ctx, "a1"); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	persisted, _ := store.FetchByID(ctx, "a1")
	if !persisted.LastUpdated.After(attempt.LastUpdated) {
		t.Error("Touch did not refresh last_updated")
	}
	if persisted.Version != 1 {
		t.Errorf("Touch must not change the version, got %d", persisted.Version)
	}

	if err := store.Touch(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
