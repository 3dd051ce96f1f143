package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Beto0829/Barber-ticket/internal/docstore/docstoretest"
	"github.com/Beto0829/Barber-ticket/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedTicket(id string, number int, price float64) models.Ticket {
	created := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	completed := created.Add(30 * time.Minute)
	return models.Ticket{
		ID:           id,
		Name:         "Cliente " + id,
		Number:       number,
		CreatedAt:    created,
		ServicePrice: &price,
		CompletedAt:  &completed,
	}
}

func TestRecordHistoryCreatesAndAppends(t *testing.T) {
	ctx := context.Background()
	l := New(docstoretest.New(), Options{})

	recorded, err := l.RecordHistory(ctx, "2026-10-19", completedTicket("a", 1, 20))
	require.NoError(t, err)
	assert.True(t, recorded)

	day, err := l.ServedOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 1, day.TotalCustomersServed)
	require.Len(t, day.Tickets, 1)
	assert.Equal(t, "a", day.Tickets[0].ID)

	recorded, err = l.RecordHistory(ctx, "2026-10-19", completedTicket("b", 2, 15))
	require.NoError(t, err)
	assert.True(t, recorded)

	day, err = l.ServedOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 2, day.TotalCustomersServed)
	assert.Len(t, day.Tickets, 2)
}

func TestRecordHistoryNewDateKeepsOtherDays(t *testing.T) {
	ctx := context.Background()
	l := New(docstoretest.New(), Options{})

	_, err := l.RecordHistory(ctx, "2026-10-18", completedTicket("a", 1, 20))
	require.NoError(t, err)
	_, err = l.RecordHistory(ctx, "2026-10-19", completedTicket("b", 1, 20))
	require.NoError(t, err)

	before, err := l.ServedOn(ctx, "2026-10-18")
	require.NoError(t, err)
	after, err := l.ServedOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 1, before.TotalCustomersServed)
	assert.Equal(t, 1, after.TotalCustomersServed)
}

func TestRecordHistorySkipsDuplicateTicket(t *testing.T) {
	ctx := context.Background()
	st := docstoretest.New()
	l := New(st, Options{})
	ticket := completedTicket("a", 1, 20)

	_, err := l.RecordHistory(ctx, "2026-10-19", ticket)
	require.NoError(t, err)
	writes := st.Writes()

	recorded, err := l.RecordHistory(ctx, "2026-10-19", ticket)
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.Equal(t, writes, st.Writes())

	day, err := l.ServedOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 1, day.TotalCustomersServed)
}

func TestRecordRevenueAccumulates(t *testing.T) {
	ctx := context.Background()
	l := New(docstoretest.New(), Options{})

	_, err := l.RecordRevenue(ctx, "2026-10-19", completedTicket("a", 1, 20))
	require.NoError(t, err)
	_, err = l.RecordRevenue(ctx, "2026-10-19", completedTicket("b", 2, 12.5))
	require.NoError(t, err)
	recorded, err := l.RecordRevenue(ctx, "2026-10-19", completedTicket("b", 2, 12.5))
	require.NoError(t, err)
	assert.False(t, recorded)

	revenue, err := l.RevenueOn(ctx, "2026-10-19")
	require.NoError(t, err)
	assert.InDelta(t, 32.5, revenue.TotalRevenue, 1e-9)
	assert.Len(t, revenue.Tickets, 2)
}

func TestRevenueOnMissingDay(t *testing.T) {
	l := New(docstoretest.New(), Options{})
	revenue, err := l.RevenueOn(context.Background(), "2026-01-01")
	require.NoError(t, err)
	assert.Zero(t, revenue.TotalRevenue)
	assert.Empty(t, revenue.Tickets)
}

func TestTicketsWithoutIDMatchOnNumberAndCreation(t *testing.T) {
	ctx := context.Background()
	l := New(docstoretest.New(), Options{})
	ticket := completedTicket("", 7, 10)

	_, err := l.RecordRevenue(ctx, "2026-10-19", ticket)
	require.NoError(t, err)
	recorded, err := l.RecordRevenue(ctx, "2026-10-19", ticket)
	require.NoError(t, err)
	assert.False(t, recorded)

	other := completedTicket("", 7, 10)
	other.CreatedAt = other.CreatedAt.Add(time.Hour)
	recorded, err = l.RecordRevenue(ctx, "2026-10-19", other)
	require.NoError(t, err)
	assert.True(t, recorded)
}

func TestRecordRevenueStoreFailure(t *testing.T) {
	st := docstoretest.New()
	st.FailFn = func(call docstoretest.Call) error {
		if call.Op == docstoretest.OpSet {
			return errors.New("unavailable")
		}
		return nil
	}
	l := New(st, Options{})

	_, err := l.RecordRevenue(context.Background(), "2026-10-19", completedTicket("a", 1, 20))
	assert.Error(t, err)
}

func TestHistoryDocumentIsKeyedByDate(t *testing.T) {
	ctx := context.Background()
	st := docstoretest.New()
	l := New(st, Options{})

	_, err := l.RecordHistory(ctx, "2026-10-19", completedTicket("a", 1, 20))
	require.NoError(t, err)

	snap, err := st.Get(ctx, "turns", "history")
	require.NoError(t, err)
	require.True(t, snap.Exists)
	day, ok := snap.Data["2026-10-19"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, day["totalCustomersServed"])
	assert.Len(t, day["tickets"], 1)
}

func TestRecordedCompletionFindsEarlierDay(t *testing.T) {
	ctx := context.Background()
	l := New(docstoretest.New(), Options{})

	_, _, found, err := l.RecordedCompletion(ctx, completedTicket("a", 1, 20))
	require.NoError(t, err)
	assert.False(t, found)

	_, err = l.RecordHistory(ctx, "2026-10-18", completedTicket("a", 1, 20))
	require.NoError(t, err)
	_, err = l.RecordHistory(ctx, "2026-10-19", completedTicket("b", 2, 35))
	require.NoError(t, err)

	retry := completedTicket("a", 1, 99)
	recorded, dateKey, found, err := l.RecordedCompletion(ctx, retry)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2026-10-18", dateKey)
	require.NotNil(t, recorded.ServicePrice)
	assert.Equal(t, 20.0, *recorded.ServicePrice)

	_, _, found, err = l.RecordedCompletion(ctx, completedTicket("c", 3, 10))
	require.NoError(t, err)
	assert.False(t, found)
}
