package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/orderboard/internal/adapter/payment"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

// PaymentFacade exposes the subset of application functionality required by the poller.
type PaymentFacade interface {
	PendingIntents(ctx context.Context, limit int) ([]model.PaymentIntent, error)
	GatewayStatus(ctx context.Context, ref string) (*model.GatewayPayment, error)
	ConfirmPayment(ctx context.Context, orderID, transactionID string) error
	ResolveIntent(ctx context.Context, id string, status model.PaymentIntentStatus) error
}

// PaymentPoller polls the payment gateway for pending QR payments and settles
// the ones the gateway reports as final.
type PaymentPoller struct {
	facade       PaymentFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs     chan model.PaymentIntent
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewPaymentPoller constructs the poller worker pool.
func NewPaymentPoller(facade PaymentFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *PaymentPoller {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &PaymentPoller{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		inflight:     make(map[string]struct{}),
	}
}

// Start launches background polling.
func (p *PaymentPoller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.jobs = make(chan model.PaymentIntent, p.batchSize*p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx, p.jobs)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx, p.jobs)
}

// Stop cancels polling and waits for in-flight intents.
func (p *PaymentPoller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *PaymentPoller) dispatch(ctx context.Context, jobs chan<- model.PaymentIntent) {
	defer p.wg.Done()
	defer close(jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchAndDispatch(ctx, jobs)
		}
	}
}

func (p *PaymentPoller) fetchAndDispatch(ctx context.Context, jobs chan<- model.PaymentIntent) {
	intents, err := p.facade.PendingIntents(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("fetch pending payment intents failed", slog.String("error", err.Error()))
		}
		return
	}
	for _, intent := range intents {
		if !p.claim(intent.ID) {
			continue
		}
		select {
		case <-ctx.Done():
			p.release(intent.ID)
			return
		case jobs <- intent:
		}
	}
}

func (p *PaymentPoller) claim(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[id]; busy {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *PaymentPoller) release(id string) {
	p.mu.Lock()
	delete(p.inflight, id)
	p.mu.Unlock()
}

func (p *PaymentPoller) worker(ctx context.Context, jobs <-chan model.PaymentIntent) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case intent, ok := <-jobs:
			if !ok {
				return
			}
			p.handleIntent(ctx, intent)
			p.release(intent.ID)
		}
	}
}

func (p *PaymentPoller) handleIntent(ctx context.Context, intent model.PaymentIntent) {
	result, err := p.facade.GatewayStatus(ctx, intent.GatewayRef)
	if err != nil {
		var limited payment.TooManyRequestsError
		switch {
		case errors.As(err, &limited):
			p.logger.Warn("payment gateway rate limited", slog.Duration("retry_after", limited.RetryAfter))
			p.sleep(ctx, limited.RetryAfter)
		case errors.Is(err, payment.ErrPaymentNotFound):
			p.logger.Warn("payment request unknown to gateway", slog.String("intent", intent.ID), slog.String("ref", intent.GatewayRef))
			p.resolve(ctx, intent, model.PaymentIntentFailed)
		default:
			if ctx.Err() == nil {
				p.logger.Error("payment status fetch failed", slog.String("intent", intent.ID), slog.String("error", err.Error()))
			}
		}
		return
	}

	switch result.Status {
	case model.PaymentIntentPaid:
		if err := p.facade.ConfirmPayment(ctx, intent.OrderID, result.TransactionID); err != nil {
			p.logger.Error("confirm payment failed",
				slog.String("intent", intent.ID),
				slog.String("order_id", intent.OrderID),
				slog.String("error", err.Error()))
			return
		}
		p.resolve(ctx, intent, model.PaymentIntentPaid)
	case model.PaymentIntentFailed, model.PaymentIntentExpired:
		p.resolve(ctx, intent, result.Status)
	}
}

func (p *PaymentPoller) resolve(ctx context.Context, intent model.PaymentIntent, status model.PaymentIntentStatus) {
	if err := p.facade.ResolveIntent(ctx, intent.ID, status); err != nil {
		p.logger.Error("resolve payment intent failed",
			slog.String("intent", intent.ID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return
	}
	p.logger.Info("payment intent resolved", slog.String("intent", intent.ID), slog.String("status", string(status)))
}

func (p *PaymentPoller) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
