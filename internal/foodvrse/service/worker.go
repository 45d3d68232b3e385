package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/25x8/foodvrse/internal/foodvrse/impact"
	"github.com/25x8/foodvrse/internal/foodvrse/logger"
	"github.com/25x8/foodvrse/internal/foodvrse/models"
	"github.com/25x8/foodvrse/internal/foodvrse/repository"
)

const processBatchSize = 50

// PurchaseProcessor applies completed purchases to user progress in the background
type PurchaseProcessor struct {
	repo     repository.Repository
	progress *ProgressService
	log      *logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewPurchaseProcessor creates a new purchase processor
func NewPurchaseProcessor(repo repository.Repository, progress *ProgressService, interval time.Duration, log *logger.Logger) *PurchaseProcessor {
	return &PurchaseProcessor{
		repo:     repo,
		progress: progress,
		log:      log.With("service", "PurchaseProcessor"),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the purchase processor. It is a no-op once Stop has been called.
func (p *PurchaseProcessor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.processLoop()
	}()
}

// Stop stops the purchase processor and waits for the current batch.
// It is safe to call before Start and more than once.
func (p *PurchaseProcessor) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.stopCh)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *PurchaseProcessor) processLoop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), p.interval*4)
			p.ProcessPending(ctx)
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// ProcessPending applies one batch of NEW purchases and returns how many reached a final status
func (p *PurchaseProcessor) ProcessPending(ctx context.Context) int {
	purchases, err := p.repo.GetPendingPurchases(ctx, processBatchSize)
	if err != nil {
		p.log.Error("loading pending purchases", "error", err)
		return 0
	}

	done := 0
	for i := range purchases {
		if ctx.Err() != nil {
			break
		}
		if p.processPurchase(ctx, &purchases[i]) {
			done++
		}
	}
	return done
}

// processPurchase reports whether the purchase reached PROCESSED or INVALID
func (p *PurchaseProcessor) processPurchase(ctx context.Context, purchase *models.PurchaseRecord) bool {
	_, err := p.progress.ApplyPurchase(ctx, *purchase)
	switch {
	case err == nil:
		return true
	case errors.Is(err, impact.ErrValidation):
		p.log.Warn("rejecting invalid purchase", "purchase_id", purchase.ID, "error", err)
		if err := p.repo.UpdatePurchaseStatus(ctx, purchase.ID, models.StatusInvalid); err != nil {
			p.log.Error("updating purchase status", "purchase_id", purchase.ID, "error", err)
			return false
		}
		return true
	case errors.Is(err, ErrAlreadyApplied):
		if err := p.repo.UpdatePurchaseStatus(ctx, purchase.ID, models.StatusProcessed); err != nil {
			p.log.Error("updating purchase status", "purchase_id", purchase.ID, "error", err)
			return false
		}
		return true
	default:
		// left NEW, the next tick retries it
		p.log.Error("applying purchase", "purchase_id", purchase.ID, "error", err)
		return false
	}
}
