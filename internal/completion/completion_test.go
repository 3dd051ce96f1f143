package completion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Beto0829/Barber-ticket/internal/docstore/docstoretest"
	"github.com/Beto0829/Barber-ticket/internal/ledger"
	"github.com/Beto0829/Barber-ticket/internal/models"
	"github.com/Beto0829/Barber-ticket/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

type event struct {
	topic     string
	eventType string
	payload   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event
}

func (p *recordingPublisher) Publish(topic, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event{topic: topic, eventType: eventType, payload: payload})
}

type fixture struct {
	now       time.Time
	store     *docstoretest.Store
	queue     *queue.Queue
	ledger    *ledger.Ledger
	workflow  *Workflow
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := docstoretest.New()
	seq := 0
	q := queue.New(st, queue.Options{
		Now: func() time.Time { return testNow.Add(-time.Hour) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("ticket-%d", seq)
		},
	})
	l := ledger.New(st, ledger.Options{})
	f := &fixture{now: testNow, store: st, queue: q, ledger: l, publisher: &recordingPublisher{}}
	f.workflow = New(q, l, Options{
		Now:       func() time.Time { return f.now },
		Publisher: f.publisher,
	})
	return f
}

func (f *fixture) failDequeue() {
	f.store.FailFn = func(call docstoretest.Call) error {
		if call.Op == docstoretest.OpUpdate && call.ID == "tickets" {
			return errors.New("deadline exceeded")
		}
		return nil
	}
}

func (f *fixture) enqueue(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := f.queue.Enqueue(context.Background(), name)
		require.NoError(t, err)
	}
}

func TestCompleteMovesTicketIntoLedgers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enqueue(t, "Ana", "Bruno")

	ticket, err := f.workflow.Complete(ctx, 1, 25)
	require.NoError(t, err)
	assert.Equal(t, "Ana", ticket.Name)
	require.NotNil(t, ticket.ServicePrice)
	assert.Equal(t, 25.0, *ticket.ServicePrice)
	require.NotNil(t, ticket.CompletedAt)
	assert.True(t, ticket.CompletedAt.Equal(testNow))

	pending, err := f.queue.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Bruno", pending[0].Name)

	day, err := f.ledger.ServedOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 1, day.TotalCustomersServed)
	require.Len(t, day.Tickets, 1)
	assert.Equal(t, ticket.ID, day.Tickets[0].ID)

	revenue, err := f.ledger.RevenueOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 25.0, revenue.TotalRevenue)
}

func TestSecondCompletionOfTheDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enqueue(t, "Ana", "Bruno")

	_, err := f.workflow.Complete(ctx, 1, 20)
	require.NoError(t, err)
	_, err = f.workflow.Complete(ctx, 2, 15.5)
	require.NoError(t, err)

	day, err := f.ledger.ServedOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 2, day.TotalCustomersServed)
	assert.Len(t, day.Tickets, 2)

	revenue, err := f.ledger.RevenueOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.InDelta(t, 35.5, revenue.TotalRevenue, 1e-9)
}

func TestCompleteTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enqueue(t, "Ana")

	_, err := f.workflow.Complete(ctx, 1, 20)
	require.NoError(t, err)
	writes := f.store.Writes()

	_, err = f.workflow.Complete(ctx, 1, 20)
	assert.ErrorIs(t, err, ErrTicketNotPending)
	assert.Equal(t, writes, f.store.Writes())

	day, err := f.ledger.ServedOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 1, day.TotalCustomersServed)
}

func TestCompleteUnknownNumber(t *testing.T) {
	f := newFixture(t)
	_, err := f.workflow.Complete(context.Background(), 9, 10)
	assert.ErrorIs(t, err, ErrTicketNotPending)
	assert.Zero(t, f.store.Writes())
}

func TestCompleteRejectsInvalidPrice(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, "Ana")
	writes := f.store.Writes()

	for _, price := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := f.workflow.Complete(context.Background(), 1, price)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	}
	assert.Equal(t, writes, f.store.Writes())

	_, err := f.workflow.Complete(context.Background(), 1, 0)
	assert.NoError(t, err)
}

func TestRetryAfterDequeueFailureDoesNotDoubleCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enqueue(t, "Ana")

	f.failDequeue()
	_, err := f.workflow.Complete(ctx, 1, 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dequeue")

	pending, err := f.queue.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	f.store.FailFn = nil
	_, err = f.workflow.Complete(ctx, 1, 30)
	require.NoError(t, err)

	day, err := f.ledger.ServedOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 1, day.TotalCustomersServed)
	assert.Len(t, day.Tickets, 1)

	revenue, err := f.ledger.RevenueOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 30.0, revenue.TotalRevenue)

	pending, err = f.queue.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRetryAfterMidnightKeepsFirstDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enqueue(t, "Ana")
	first := time.Date(2026, 10, 19, 23, 59, 59, 0, time.UTC)
	f.now = first

	f.failDequeue()
	_, err := f.workflow.Complete(ctx, 1, 30)
	require.Error(t, err)

	f.store.FailFn = nil
	f.now = first.Add(2 * time.Second)
	ticket, err := f.workflow.Complete(ctx, 1, 40)
	require.NoError(t, err)
	require.NotNil(t, ticket.CompletedAt)
	assert.True(t, ticket.CompletedAt.Equal(first))
	require.NotNil(t, ticket.ServicePrice)
	assert.Equal(t, 30.0, *ticket.ServicePrice)

	served19, err := f.ledger.ServedOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 1, served19.TotalCustomersServed)
	served20, err := f.ledger.ServedOn(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Zero(t, served20.TotalCustomersServed)
	assert.Empty(t, served20.Tickets)

	revenue19, err := f.ledger.RevenueOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 30.0, revenue19.TotalRevenue)
	revenue20, err := f.ledger.RevenueOn(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Zero(t, revenue20.TotalRevenue)

	pending, err := f.queue.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRetryWithDifferentPriceKeepsRecordedPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enqueue(t, "Ana")

	f.failDequeue()
	_, err := f.workflow.Complete(ctx, 1, 30)
	require.Error(t, err)

	f.store.FailFn = nil
	ticket, err := f.workflow.Complete(ctx, 1, 45)
	require.NoError(t, err)
	require.NotNil(t, ticket.ServicePrice)
	assert.Equal(t, 30.0, *ticket.ServicePrice)

	revenue, err := f.ledger.RevenueOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 30.0, revenue.TotalRevenue)
	require.Len(t, revenue.Tickets, 1)
	require.NotNil(t, revenue.Tickets[0].ServicePrice)
	assert.Equal(t, *ticket.ServicePrice, *revenue.Tickets[0].ServicePrice)

	require.NotEmpty(t, f.publisher.events)
	published, ok := f.publisher.events[0].payload.(models.Ticket)
	require.True(t, ok)
	require.NotNil(t, published.ServicePrice)
	assert.Equal(t, 30.0, *published.ServicePrice)
}

func TestRetryAfterRevenueFailureRecordsRevenueOnFirstDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enqueue(t, "Ana")
	first := time.Date(2026, 10, 19, 23, 59, 59, 0, time.UTC)
	f.now = first

	f.store.FailFn = func(call docstoretest.Call) error {
		if call.Op != docstoretest.OpGet && call.ID == "2026-10-19" {
			return errors.New("unavailable")
		}
		return nil
	}
	_, err := f.workflow.Complete(ctx, 1, 22)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revenue")

	f.store.FailFn = nil
	f.now = first.Add(time.Minute)
	_, err = f.workflow.Complete(ctx, 1, 22)
	require.NoError(t, err)

	revenue19, err := f.ledger.RevenueOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 22.0, revenue19.TotalRevenue)
	revenue20, err := f.ledger.RevenueOn(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Zero(t, revenue20.TotalRevenue)
}

func TestHistoryFailureStopsBeforeRevenue(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, "Ana")
	f.store.FailFn = func(call docstoretest.Call) error {
		if call.ID == "history" && call.Op != docstoretest.OpGet {
			return errors.New("unavailable")
		}
		return nil
	}

	_, err := f.workflow.Complete(context.Background(), 1, 10)
	require.Error(t, err)

	revenue, err := f.ledger.RevenueOn(context.Background(), "2026-10-19")
	require.NoError(t, err)
	assert.Zero(t, revenue.TotalRevenue)
}

func TestDateKeyFollowsLocation(t *testing.T) {
	ctx := context.Background()
	st := docstoretest.New()
	q := queue.New(st, queue.Options{})
	loc := time.FixedZone("UTC-5", -5*60*60)
	l := ledger.New(st, ledger.Options{Location: loc})
	late := time.Date(2026, 10, 20, 2, 0, 0, 0, time.UTC)
	w := New(q, l, Options{Now: func() time.Time { return late }})

	_, err := q.Enqueue(ctx, "Ana")
	require.NoError(t, err)
	_, err = w.Complete(ctx, 1, 12)
	require.NoError(t, err)

	day, err := l.ServedOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 1, day.TotalCustomersServed)
}

func TestCompletePublishesEvents(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, "Ana", "Bruno")

	_, err := f.workflow.Complete(context.Background(), 1, 10)
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, models.TopicAdmin, f.publisher.events[0].topic)
	assert.Equal(t, models.EventTicketCompleted, f.publisher.events[0].eventType)
	assert.Equal(t, models.TopicQueue, f.publisher.events[1].topic)

	board, ok := f.publisher.events[1].payload.(models.Board)
	require.True(t, ok)
	require.NotNil(t, board.Serving)
	assert.Equal(t, 2, *board.Serving)
}
