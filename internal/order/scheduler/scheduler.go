// Package scheduler moves orders along their status progression when their timers expire.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/domain"
	"comanda/internal/order/flow"
)

const (
	defaultInterval          = 5 * time.Second
	defaultProgressThreshold = 5
)

type OrderSource interface {
	Orders() []domain.Order
}

type DurationResolver interface {
	Duration(orderType domain.OrderType, status domain.OrderStatus) time.Duration
}

// OrderHooks apply scheduler decisions. Each hook re-checks the order and reports false
// when the decision no longer applies.
type OrderHooks interface {
	AdvanceOrder(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error)
	CompleteAutoProgress(ctx context.Context, id string) (bool, error)
	RecordProgress(ctx context.Context, id string, percent int, persist bool) (bool, error)
}

type Metrics interface {
	SchedulerPass(duration time.Duration)
	SchedulerDecision(kind string)
}

type Options struct {
	Interval          time.Duration
	ProgressThreshold float64
}

type Scheduler struct {
	orders   OrderSource
	resolver DurationResolver
	hooks    OrderHooks
	metrics  Metrics
	clock    commons.Clock
	logger   *zap.Logger
	opts     Options

	pass sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(
	orders OrderSource,
	resolver DurationResolver,
	hooks OrderHooks,
	metrics Metrics,
	clock commons.Clock,
	logger *zap.Logger,
	opts Options,
) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.ProgressThreshold <= 0 {
		opts.ProgressThreshold = defaultProgressThreshold
	}
	return &Scheduler{
		orders:   orders,
		resolver: resolver,
		hooks:    hooks,
		metrics:  metrics,
		clock:    clock,
		logger:   logger,
		opts:     opts,
	}
}

// Start runs a pass immediately and then on every interval until ctx is done or Stop is
// called. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)

	s.logger.Info("order scheduler started", zap.Duration("interval", s.opts.Interval))
}

// Stop cancels the loop and waits for the current pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.logger.Info("order scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.RunPass(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunPass(ctx)
		}
	}
}

// RunPass evaluates every order once. A pass requested while another one is running is
// skipped.
func (s *Scheduler) RunPass(ctx context.Context) {
	if !s.pass.TryLock() {
		s.logger.Debug("scheduler pass already running, skipping")
		return
	}
	defer s.pass.Unlock()

	started := time.Now()
	now := s.clock.Now()

	for _, order := range s.orders.Orders() {
		if ctx.Err() != nil {
			break
		}
		if !flow.Eligible(order) {
			continue
		}

		total := s.resolver.Duration(order.OrderType, order.Status)
		decision := flow.EvaluateTick(order, total, now, s.opts.ProgressThreshold)
		s.apply(ctx, order, decision)
	}

	if s.metrics != nil {
		s.metrics.SchedulerPass(time.Since(started))
	}
}

func (s *Scheduler) apply(ctx context.Context, order domain.Order, decision flow.TickDecision) {
	var (
		applied bool
		err     error
	)

	switch decision.Kind {
	case flow.TickAdvance:
		applied, err = s.hooks.AdvanceOrder(ctx, order.ID, order.Status, decision.Next)
	case flow.TickComplete:
		applied, err = s.hooks.CompleteAutoProgress(ctx, order.ID)
	case flow.TickPersistProgress:
		applied, err = s.hooks.RecordProgress(ctx, order.ID, decision.Progress, true)
	case flow.TickLocalProgress:
		applied, err = s.hooks.RecordProgress(ctx, order.ID, decision.Progress, false)
	default:
		return
	}

	if err != nil {
		s.logger.Warn("scheduler decision failed",
			zap.String("orderId", order.ID),
			zap.String("decision", decision.Kind.String()),
			zap.Error(err),
		)
		return
	}
	if applied && s.metrics != nil {
		s.metrics.SchedulerDecision(decision.Kind.String())
	}
}
