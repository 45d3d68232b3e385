package service

import (
	"context"
	"errors"
	"time"

	"github.com/25x8/foodvrse/internal/foodvrse/impact"
	"github.com/25x8/foodvrse/internal/foodvrse/logger"
	"github.com/25x8/foodvrse/internal/foodvrse/models"
	"github.com/25x8/foodvrse/internal/foodvrse/repository"
)

const (
	defaultMaxAttempts = 5
	notifyTimeout      = 2 * time.Second
)

// Origin identifies the purchase an impact delta was derived from
type Origin struct {
	// PurchaseID makes the write idempotent; empty means the delta is
	// applied unconditionally and the write is never retried.
	PurchaseID string
	At         time.Time
}

// ProgressService folds impact deltas into per-user progress
type ProgressService struct {
	repo        repository.Repository
	notifier    Notifier
	streak      impact.StreakPolicy
	store       storeCaller
	log         *logger.Logger
	maxAttempts int
	now         func() time.Time
}

// NewProgressService creates a progress service
func NewProgressService(repo repository.Repository, notifier Notifier, streak impact.StreakPolicy, storeTimeout time.Duration, log *logger.Logger) *ProgressService {
	if streak == nil {
		streak = impact.PurchaseStreak{}
	}
	log = log.With("service", "ProgressService")
	return &ProgressService{
		repo:        repo,
		notifier:    notifier,
		streak:      streak,
		store:       storeCaller{timeout: storeTimeout, log: log},
		log:         log,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
}

// GetProgress returns the stored progress of a user, or nil if the user has none yet
func (s *ProgressService) GetProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	var progress *models.UserProgress
	err := s.store.call(ctx, "get progress", true, func(ctx context.Context) error {
		var err error
		progress, err = s.repo.GetUserProgress(ctx, userID)
		return err
	})
	if err != nil {
		return nil, &PersistenceError{Op: "get progress", Err: err}
	}
	return progress, nil
}

// ApplyPurchase derives the impact of a purchase and applies it to its owner's progress.
// Return values follow ApplyDelta, including the non-nil progress on ErrAlreadyApplied.
func (s *ProgressService) ApplyPurchase(ctx context.Context, purchase models.PurchaseRecord) (*models.UserProgress, error) {
	delta, err := impact.ComputeDelta(purchase)
	if err != nil {
		return nil, err
	}
	return s.ApplyDelta(ctx, purchase.UserID, delta, Origin{PurchaseID: purchase.ID, At: purchase.CreatedAt})
}

// ApplyDelta merges delta into the user's progress as one atomic read-modify-write.
// Concurrent writers are resolved by re-reading and recomputing on version conflicts.
//
// A delta with a negative field, or one that would overflow a stored total, is
// rejected with a *impact.ValidationError and nothing is written.
//
// When origin.PurchaseID was already applied, ApplyDelta returns both a non-nil
// progress and ErrAlreadyApplied: the progress is the current stored record with
// the purchase counted once. Callers treating any error as failure must check
// errors.Is(err, ErrAlreadyApplied) first.
func (s *ProgressService) ApplyDelta(ctx context.Context, userID string, delta models.ImpactDelta, origin Origin) (*models.UserProgress, error) {
	if err := impact.ValidateDelta(delta); err != nil {
		return nil, err
	}

	at := origin.At
	if at.IsZero() {
		at = s.now()
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current, err := s.GetProgress(ctx, userID)
		if err != nil {
			return nil, err
		}

		if err := impact.CheckHeadroom(current, delta); err != nil {
			return nil, err
		}

		next := impact.Merge(current, userID, delta, at, s.streak)
		if current != nil {
			next.Version = current.Version
		}

		var stored *models.UserProgress
		err = s.store.call(ctx, "save progress", origin.PurchaseID != "", func(ctx context.Context) error {
			var saveErr error
			stored, saveErr = s.repo.SaveUserProgress(ctx, &next, origin.PurchaseID)
			return saveErr
		})
		switch {
		case err == nil:
			s.log.Info("progress updated",
				"user_id", userID,
				"purchase_id", origin.PurchaseID,
				"meals_saved", stored.TotalMealsSaved,
				"xp", stored.ExperiencePoints,
				"level", stored.Level,
				"streak", stored.CurrentStreak,
			)
			s.notify(ctx, userID, delta)
			return stored, nil
		case errors.Is(err, repository.ErrVersionConflict):
			s.log.Debug("progress version conflict", "user_id", userID, "attempt", attempt)
			continue
		case errors.Is(err, repository.ErrAlreadyApplied):
			s.log.Info("purchase already applied", "user_id", userID, "purchase_id", origin.PurchaseID)
			current, getErr := s.GetProgress(ctx, userID)
			if getErr != nil {
				return nil, getErr
			}
			return current, ErrAlreadyApplied
		default:
			return nil, &PersistenceError{Op: "save progress", Err: err}
		}
	}

	return nil, &PersistenceError{Op: "save progress", Err: repository.ErrVersionConflict}
}

// notify is fire-and-forget: a failed notification never fails the update
func (s *ProgressService) notify(ctx context.Context, userID string, delta models.ImpactDelta) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, impactNotification(userID, delta, s.now())); err != nil {
		s.log.Warn("notification failed", "user_id", userID, "error", err)
	}
}
