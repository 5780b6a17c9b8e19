// Package printing turns finalized orders into print jobs for the kitchen and the counter.
package printing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/domain"
	"comanda/internal/notice"
)

type Kind string

const (
	// KindKitchen is the slip the kitchen prepares the order from.
	KindKitchen Kind = "kitchen"
	// KindOrder is the customer copy with totals and payment.
	KindOrder Kind = "order"
)

const publishTimeout = 5 * time.Second

type Job struct {
	ID          string       `json:"id"`
	OrderID     string       `json:"orderId"`
	Kind        Kind         `json:"kind"`
	Order       domain.Order `json:"order"`
	RequestedAt time.Time    `json:"requestedAt"`
}

type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

// Dispatcher hands print jobs to a Publisher. Failures are reported as notices and never
// returned to the caller.
type Dispatcher struct {
	publisher Publisher
	notifier  notice.Notifier
	clock     commons.Clock
	logger    *zap.Logger
}

func NewDispatcher(publisher Publisher, notifier notice.Notifier, clock commons.Clock, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		notifier:  notifier,
		clock:     clock,
		logger:    logger,
	}
}

// Print sends the kitchen slip of an order that is still being worked on and the order
// slip in every case.
func (d *Dispatcher) Print(ctx context.Context, order domain.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	kinds := []Kind{KindOrder}
	if !order.Status.IsTerminal() {
		kinds = []Kind{KindKitchen, KindOrder}
	}

	now := d.clock.Now()
	for _, kind := range kinds {
		job := Job{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			Kind:        kind,
			Order:       order.Clone(),
			RequestedAt: now,
		}
		if err := d.publisher.Publish(ctx, job); err != nil {
			d.logger.Error("failed to publish print job",
				zap.String("orderId", order.ID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			d.notifier.Notify(notice.Failure("Failed to print "+string(kind)+" slip for order #"+shortID(order.ID), err))
			continue
		}
		d.logger.Debug("print job published", zap.String("orderId", order.ID), zap.String("kind", string(kind)))
	}
}

// LogPublisher writes print jobs to the log. It is used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, job Job) error {
	p.logger.Info("print job",
		zap.String("jobId", job.ID),
		zap.String("orderId", job.OrderID),
		zap.String("kind", string(job.Kind)),
		zap.String("customer", job.Order.CustomerName),
		zap.Int("items", len(job.Order.Items)),
		zap.String("total", job.Order.TotalAmount.StringFixed(2)),
	)
	return nil
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
