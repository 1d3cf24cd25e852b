package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"api/config"
	"api/metrics"
	"api/models"

	"github.com/google/uuid"
)

// Manager coordinates the durable store and the fast cache for quiz attempt
// sessions. Attempts are only ever mutated through a Manager; callers never
// touch either storage tier directly.
//
// Concurrency control is purely optimistic: the store's version predicate is
// the only point of serialization, and a lost race surfaces as a false
// result that the caller must resolve by re-reading.
type Manager struct {
	store DurableStore
	cache AttemptCache
	cfg   config.SessionConfig

	mu       sync.Mutex
	renewals map[string]context.CancelFunc
	closed   bool
}

func NewManager(store DurableStore, cache AttemptCache, cfg config.SessionConfig) *Manager {
	return &Manager{
		store:    store,
		cache:    cache,
		cfg:      cfg,
		renewals: make(map[string]context.CancelFunc),
	}
}

// Create starts a new attempt session for the given user and quiz, persists
// it, caches it, and starts its background renewal task
func (m *Manager) Create(ctx context.Context, userID string, quizID string) (*models.Attempt, error) {
	now := time.Now().UTC()
	attempt := &models.Attempt{
		ID:            uuid.NewString(),
		UserID:        userID,
		QuizID:        quizID,
		StartedAt:     now,
		Answers:       models.AnswerMap{},
		Status:        models.AttemptStarted,
		TimeRemaining: int(m.cfg.TimeBudget.Seconds()),
		LastUpdated:   now,
		Version:       1,
	}

	if err := m.store.Insert(ctx, attempt); err != nil {
		if !errors.Is(err, ErrDuplicateID) {
			return nil, err
		}
		// Pathological uuid collision, retry exactly once with a fresh id
		log.Printf("Attempt id collision on %s, regenerating", attempt.ID)
		attempt.ID = uuid.NewString()
		if err := m.store.Insert(ctx, attempt); err != nil {
			return nil, fmt.Errorf("failed to create session after id retry: %w", err)
		}
	}

	m.cachePut(ctx, attempt)
	m.startRenewal(attempt.ID)

	log.Printf("Created session %s for user %s on quiz %s", attempt.ID, userID, quizID)
	return attempt, nil
}

// Get reads an attempt cache-aside: the fast cache first, then the durable
// store with a write-back on hit. Returns ErrNotFound if neither tier has it.
func (m *Manager) Get(ctx context.Context, id string) (*models.Attempt, error) {
	cached, err := m.cache.Get(ctx, id)
	if err != nil {
		// Cache trouble only costs latency, the durable store still answers
		log.Printf("Cache read failed for session %s: %v", id, err)
	}
	if cached != nil {
		return cached, nil
	}

	attempt, err := m.store.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.cachePut(ctx, attempt)
	return attempt, nil
}

// UpdateProgress records an answer under optimistic concurrency. It returns
// false when the attempt is missing, already terminal, or when a concurrent
// writer won the version race; it never retries a conflict internally, so
// the caller can re-read and decide whether its intent still applies.
func (m *Manager) UpdateProgress(ctx context.Context, id string, questionIndex int, answer string) (bool, error) {
	attempt, err := m.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if attempt.Status.IsTerminal() {
		return false, nil
	}

	updated, err := m.store.CompareAndSwapUpdate(ctx, id, attempt.Version, func(a *models.Attempt) {
		if a.Answers == nil {
			a.Answers = models.AnswerMap{}
		}
		a.Answers[questionIndex] = answer
		a.CurrentQuestion = questionIndex
		if a.Status == models.AttemptStarted {
			a.Status = models.AttemptInProgress
		}
		a.TimeRemaining = int(m.remainingBudget(a).Seconds())
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			log.Printf("Version conflict for session %s at version %d", id, attempt.Version)
			return false, nil
		}
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	m.cachePut(ctx, updated)
	return true, nil
}

// Complete moves the attempt to the completed status. The second call on the
// same attempt returns false.
func (m *Manager) Complete(ctx context.Context, id string) (bool, error) {
	return m.finish(ctx, id, models.AttemptCompleted)
}

// Abandon moves the attempt to the abandoned status, with the same cache and
// renewal teardown as Complete
func (m *Manager) Abandon(ctx context.Context, id string) (bool, error) {
	return m.finish(ctx, id, models.AttemptAbandoned)
}

func (m *Manager) finish(ctx context.Context, id string, status models.AttemptStatus) (bool, error) {
	ok, err := m.store.MarkStatus(ctx, id, status)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := m.cache.Invalidate(ctx, id); err != nil {
		log.Printf("Cache invalidation failed for session %s: %v", id, err)
	}
	m.stopRenewal(id)

	log.Printf("Session %s moved to %s", id, status)
	return true, nil
}

// Close stops every background renewal task owned by this manager
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	cancels := make([]context.CancelFunc, 0, len(m.renewals))
	for id, cancel := range m.renewals {
		cancels = append(cancels, cancel)
		delete(m.renewals, id)
	}
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		metrics.ActiveSessions.Dec()
	}
}

func (m *Manager) cachePut(ctx context.Context, attempt *models.Attempt) {
	if err := m.cache.Put(ctx, attempt, m.cacheTTL(attempt)); err != nil {
		log.Printf("Cache write failed for session %s: %v", attempt.ID, err)
	}
}

// cacheTTL is the remaining time budget at refresh time, floored so an
// almost-expired attempt still caches long enough to finish a request
func (m *Manager) cacheTTL(attempt *models.Attempt) time.Duration {
	remaining := m.remainingBudget(attempt)
	if remaining < m.cfg.CacheTTLFloor {
		return m.cfg.CacheTTLFloor
	}
	return remaining
}

// remainingBudget computes the countdown lazily from the creation timestamp;
// the stored time_remaining field is a snapshot, not a ticking clock
func (m *Manager) remainingBudget(attempt *models.Attempt) time.Duration {
	remaining := m.cfg.TimeBudget - time.Since(attempt.StartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (m *Manager) startRenewal(id string) {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return
	}
	m.renewals[id] = cancel
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	go m.renewalLoop(ctx, id)
}

func (m *Manager) stopRenewal(id string) {
	m.mu.Lock()
	cancel, ok := m.renewals[id]
	if ok {
		delete(m.renewals, id)
	}
	m.mu.Unlock()

	if ok {
		cancel()
		metrics.ActiveSessions.Dec()
	}
}

// renewalLoop is the per-session keep-alive task: every interval it touches
// last_updated in the durable store, and it stops on its own once the
// session is terminal or gone. Transient store errors are logged and the
// loop carries on to the next tick.
func (m *Manager) renewalLoop(ctx context.Context, id string) {
	ticker := time.NewTicker(m.cfg.RenewalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Renewal stopped for session %s", id)
			return
		case <-ticker.C:
			attempt, err := m.Get(ctx, id)
			if errors.Is(err, ErrNotFound) {
				m.stopRenewal(id)
				return
			}
			if err != nil {
				metrics.RenewalFailures.Inc()
				log.Printf("Renewal read failed for session %s: %v", id, err)
				continue
			}
			if attempt.Status.IsTerminal() {
				m.stopRenewal(id)
				return
			}

			if err := m.store.Touch(ctx, id); err != nil && !errors.Is(err, context.Canceled) {
				metrics.RenewalFailures.Inc()
				log.Printf("Renewal touch failed for session %s: %v", id, err)
			}
		}
	}
}
