// Package queue owns the pending-ticket document: intake numbering,
// removal, and the lookups the public board runs against it.
package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Beto0829/Barber-ticket/internal/docstore"
	"github.com/Beto0829/Barber-ticket/internal/models"
	"github.com/Beto0829/Barber-ticket/internal/telemetry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ticketsField = "tickets"

type Options struct {
	Collection string
	Document   string
	Now        func() time.Time
	NewID      func() string
	Logger     *zap.Logger
}

type Queue struct {
	store      docstore.Store
	collection string
	document   string
	now        func() time.Time
	newID      func() string
	logger     *zap.Logger
}

// entry pairs a decoded ticket with the exact stored element, which is what
// ArrayRemove has to match against.
type entry struct {
	ticket models.Ticket
	raw    interface{}
}

func New(store docstore.Store, options Options) *Queue {
	q := &Queue{
		store:      store,
		collection: options.Collection,
		document:   options.Document,
		now:        options.Now,
		newID:      options.NewID,
		logger:     options.Logger,
	}
	if q.collection == "" {
		q.collection = "turns"
	}
	if q.document == "" {
		q.document = "tickets"
	}
	if q.now == nil {
		q.now = func() time.Time { return time.Now().UTC() }
	}
	if q.newID == nil {
		q.newID = uuid.NewString
	}
	if q.logger == nil {
		q.logger = zap.NewNop()
	}
	return q
}

// ListPending returns the pending tickets in arrival order. A missing queue
// document is an empty queue.
func (q *Queue) ListPending(ctx context.Context) ([]models.Ticket, error) {
	entries, _, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	tickets := make([]models.Ticket, 0, len(entries))
	for _, e := range entries {
		tickets = append(tickets, e.ticket)
	}
	return tickets, nil
}

// Get returns the pending ticket holding number.
func (q *Queue) Get(ctx context.Context, number int) (models.Ticket, bool, error) {
	entries, _, err := q.load(ctx)
	if err != nil {
		return models.Ticket{}, false, err
	}
	for _, e := range entries {
		if e.ticket.Number == number {
			return e.ticket, true, nil
		}
	}
	return models.Ticket{}, false, nil
}

func (q *Queue) Enqueue(ctx context.Context, name string) (models.Ticket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Ticket{}, ErrEmptyName
	}

	entries, exists, err := q.load(ctx)
	if err != nil {
		return models.Ticket{}, err
	}

	ticket := models.Ticket{
		ID:        q.newID(),
		Name:      name,
		Number:    nextNumber(entries),
		CreatedAt: q.now(),
	}
	encoded, err := docstore.Encode(ticket)
	if err != nil {
		return models.Ticket{}, err
	}

	if !exists {
		err = q.store.Set(ctx, q.collection, q.document, map[string]interface{}{
			ticketsField: []interface{}{encoded},
		})
	} else {
		err = q.store.Update(ctx, q.collection, q.document, []docstore.Update{
			{Path: ticketsField, Value: docstore.ArrayUnion{encoded}},
		})
	}
	if err != nil {
		q.logger.Error("enqueue ticket failed", zap.Int("number", ticket.Number), zap.Error(err))
		return models.Ticket{}, fmt.Errorf("enqueue ticket: %w", err)
	}

	telemetry.TicketsEnqueued.Inc()
	q.logger.Info("ticket enqueued", zap.Int("number", ticket.Number), zap.String("ticket_id", ticket.ID))
	return ticket, nil
}

// DequeueByNumber removes the pending ticket with number. Removal is done
// with ArrayRemove on the stored element, so tickets appended by another
// session since the caller last read the queue are left in place. An unknown
// number is a no-op.
func (q *Queue) DequeueByNumber(ctx context.Context, number int) error {
	entries, exists, err := q.load(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	var removals docstore.ArrayRemove
	for _, e := range entries {
		if e.ticket.Number == number {
			removals = append(removals, e.raw)
		}
	}
	if len(removals) == 0 {
		return nil
	}
	if err := q.store.Update(ctx, q.collection, q.document, []docstore.Update{
		{Path: ticketsField, Value: removals},
	}); err != nil {
		q.logger.Error("dequeue ticket failed", zap.Int("number", number), zap.Error(err))
		return fmt.Errorf("dequeue ticket %d: %w", number, err)
	}
	return nil
}

func (q *Queue) load(ctx context.Context) ([]entry, bool, error) {
	snap, err := q.store.Get(ctx, q.collection, q.document)
	if err != nil {
		q.logger.Error("load queue failed", zap.Error(err))
		return nil, false, fmt.Errorf("load queue: %w", err)
	}
	if !snap.Exists {
		return nil, false, nil
	}
	items, _ := snap.Data[ticketsField].([]interface{})
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		var ticket models.Ticket
		if err := docstore.Decode(item, &ticket); err != nil {
			q.logger.Warn("skipping malformed queue entry", zap.Error(err))
			continue
		}
		entries = append(entries, entry{ticket: ticket, raw: item})
	}
	return entries, true, nil
}

// nextNumber is the queue length plus one. Completed tickets are removed
// without renumbering, so when that value is still held by a pending ticket
// the highest pending number plus one is used instead.
func nextNumber(entries []entry) int {
	next := len(entries) + 1
	highest := 0
	for _, e := range entries {
		if e.ticket.Number > highest {
			highest = e.ticket.Number
		}
	}
	if highest >= next {
		next = highest + 1
	}
	return next
}
