package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukasync/storesync/internal/adapter/remote"
	"github.com/dukasync/storesync/internal/domain/model"
)

// SyncFacade exposes the subset of application functionality required by the
// background processor.
type SyncFacade interface {
	Reconcile(ctx context.Context)
	PendingRemoteOrders(ctx context.Context, limit int) ([]model.Order, error)
	ReplayOrder(ctx context.Context, order *model.Order) error
}

// SyncProcessor periodically reconciles the catalog and replays orders whose
// remote commit is still outstanding, fanning replays out over a small
// worker pool.
type SyncProcessor struct {
	facade       SyncFacade
	syncInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.Order
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewSyncProcessor constructs the background processor.
func NewSyncProcessor(facade SyncFacade, syncInterval time.Duration, batchSize, workers int, logger *slog.Logger) *SyncProcessor {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &SyncProcessor{
		facade:       facade,
		syncInterval: syncInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.Order, batchSize*workers),
	}
}

// Start launches background processing.
func (p *SyncProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (p *SyncProcessor) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *SyncProcessor) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)
	ticker := time.NewTicker(p.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.facade.Reconcile(ctx)
			p.fetchAndDispatch(ctx)
		}
	}
}

func (p *SyncProcessor) fetchAndDispatch(ctx context.Context) {
	orders, err := p.facade.PendingRemoteOrders(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("fetch pending orders failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case p.jobs <- order:
		}
	}
}

func (p *SyncProcessor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-p.jobs:
			if !ok {
				return
			}
			p.handleOrder(ctx, order)
		}
	}
}

func (p *SyncProcessor) handleOrder(ctx context.Context, order model.Order) {
	err := p.facade.ReplayOrder(ctx, &order)
	if err == nil {
		return
	}

	var tooMany remote.TooManyRequestsError
	switch {
	case errors.As(err, &tooMany):
		p.logger.Warn("remote rate limited", slog.Duration("retry_after", tooMany.RetryAfter))
		select {
		case <-ctx.Done():
		case <-time.After(tooMany.RetryAfter):
		}
	default:
		p.logger.Error("order replay failed",
			slog.String("order", order.ID), slog.String("error", err.Error()))
	}
}
