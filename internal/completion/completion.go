// Package completion moves a pending ticket into the day's history and
// revenue ledgers and then off the queue.
package completion

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Beto0829/Barber-ticket/internal/ledger"
	"github.com/Beto0829/Barber-ticket/internal/models"
	"github.com/Beto0829/Barber-ticket/internal/queue"
	"github.com/Beto0829/Barber-ticket/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Publisher receives events after a completion succeeds.
type Publisher interface {
	Publish(topic, eventType string, payload interface{})
}

type Options struct {
	Now       func() time.Time
	Publisher Publisher
	Logger    *zap.Logger
}

type Workflow struct {
	queue     *queue.Queue
	ledger    *ledger.Ledger
	now       func() time.Time
	publisher Publisher
	logger    *zap.Logger
}

func New(q *queue.Queue, l *ledger.Ledger, options Options) *Workflow {
	w := &Workflow{
		queue:     q,
		ledger:    l,
		now:       options.Now,
		publisher: options.Publisher,
		logger:    options.Logger,
	}
	if w.now == nil {
		w.now = func() time.Time { return time.Now().UTC() }
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Complete records the pending ticket with number as served for price. The
// ledger writes skip tickets they already hold, so calling Complete again
// after a failed step finishes the remaining steps without counting twice.
// Such a retry keeps the completion time, date and price of the history
// entry the first attempt wrote; the price argument is then ignored.
// Completed steps are not rolled back on failure.
func (w *Workflow) Complete(ctx context.Context, number int, price float64) (models.Ticket, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "completion.Complete")
	defer span.End()
	span.SetAttributes(attribute.Int("ticket.number", number))

	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return models.Ticket{}, ErrInvalidPrice
	}

	ticket, pending, err := w.queue.Get(ctx, number)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return models.Ticket{}, err
	}
	if !pending {
		return models.Ticket{}, ErrTicketNotPending
	}

	now := w.now()
	ticket.ServicePrice = &price
	ticket.CompletedAt = &now
	dateKey := models.DateKey(now, w.ledger.Location())
	span.SetAttributes(attribute.String("ledger.date", dateKey))

	var revenueRecorded bool
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"resume", func(ctx context.Context) error {
			recorded, recordedKey, found, err := w.ledger.RecordedCompletion(ctx, ticket)
			if err != nil || !found {
				return err
			}
			if recorded.ServicePrice == nil {
				recorded.ServicePrice = ticket.ServicePrice
			}
			if *recorded.ServicePrice != price {
				w.logger.Warn("retried completion keeps recorded price",
					zap.Int("number", number),
					zap.Float64("recorded_price", *recorded.ServicePrice),
					zap.Float64("requested_price", price),
				)
			}
			ticket = recorded
			price = *recorded.ServicePrice
			dateKey = recordedKey
			span.SetAttributes(attribute.String("ledger.date", dateKey), attribute.Bool("completion.resumed", true))
			return nil
		}},
		{"history", func(ctx context.Context) error {
			_, err := w.ledger.RecordHistory(ctx, dateKey, ticket)
			return err
		}},
		{"revenue", func(ctx context.Context) error {
			var err error
			revenueRecorded, err = w.ledger.RecordRevenue(ctx, dateKey, ticket)
			return err
		}},
		{"dequeue", func(ctx context.Context) error {
			return w.queue.DequeueByNumber(ctx, number)
		}},
	}
	for _, step := range steps {
		if err := w.runStep(ctx, step.name, number, step.run); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return models.Ticket{}, err
		}
	}

	telemetry.TicketsCompleted.Inc()
	if revenueRecorded {
		telemetry.RevenueTotal.Add(price)
	}
	w.logger.Info("ticket completed",
		zap.Int("number", number),
		zap.String("ticket_id", ticket.ID),
		zap.String("date", dateKey),
		zap.Float64("service_price", price),
	)
	w.publish(ctx, ticket)
	return ticket, nil
}

func (w *Workflow) runStep(ctx context.Context, name string, number int, run func(context.Context) error) error {
	ctx, span := telemetry.Tracer().Start(ctx, "completion."+name)
	defer span.End()

	if err := run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.logger.Error("completion step failed", zap.String("step", name), zap.Int("number", number), zap.Error(err))
		return fmt.Errorf("complete ticket %d: %s: %w", number, name, err)
	}
	return nil
}

func (w *Workflow) publish(ctx context.Context, ticket models.Ticket) {
	if w.publisher == nil {
		return
	}
	w.publisher.Publish(models.TopicAdmin, models.EventTicketCompleted, ticket)

	board, err := w.queue.Board(ctx)
	if err != nil {
		w.logger.Warn("queue snapshot after completion failed", zap.Error(err))
		return
	}
	w.publisher.Publish(models.TopicQueue, models.EventQueueUpdated, board)
}
