package service

import (
	"context"
	"sync"
	"time"

	"github.com/25x8/foodvrse/internal/foodvrse/impact"
	"github.com/25x8/foodvrse/internal/foodvrse/logger"
	"github.com/25x8/foodvrse/internal/foodvrse/models"
	"github.com/25x8/foodvrse/internal/foodvrse/repository"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// flakyRepo fails selected calls before delegating to the memory repository
type flakyRepo struct {
	*repository.MemoryRepository
	mu        sync.Mutex
	getErrs   []error
	saveErrs  []error
	saveCalls int
}

func (r *flakyRepo) GetUserProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	r.mu.Lock()
	if len(r.getErrs) > 0 {
		err := r.getErrs[0]
		r.getErrs = r.getErrs[1:]
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()
	return r.MemoryRepository.GetUserProgress(ctx, userID)
}

func (r *flakyRepo) SaveUserProgress(ctx context.Context, p *models.UserProgress, purchaseID string) (*models.UserProgress, error) {
	r.mu.Lock()
	r.saveCalls++
	if len(r.saveErrs) > 0 {
		err := r.saveErrs[0]
		r.saveErrs = r.saveErrs[1:]
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()
	return r.MemoryRepository.SaveUserProgress(ctx, p, purchaseID)
}

func newTestProgress(repo repository.Repository, n Notifier, policy impact.StreakPolicy) *ProgressService {
	s := NewProgressService(repo, n, policy, time.Second, logger.Nop())
	s.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func purchase(id, userID string, items ...models.LineItem) models.PurchaseRecord {
	return models.PurchaseRecord{
		ID:        id,
		UserID:    userID,
		Items:     items,
		CreatedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func bag(qty, price, original int64) models.LineItem {
	return models.LineItem{Name: "Mystery bag", Quantity: qty, UnitPrice: price, OriginalPrice: original}
}
