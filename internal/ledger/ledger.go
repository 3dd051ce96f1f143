// Package ledger maintains the per-day history and revenue ledgers that the
// completion workflow fans out into, and answers finance queries over them.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Beto0829/Barber-ticket/internal/docstore"
	"github.com/Beto0829/Barber-ticket/internal/models"

	"go.uber.org/zap"
)

const (
	ticketsField      = "tickets"
	customersField    = "totalCustomersServed"
	totalRevenueField = "totalRevenue"
)

type Options struct {
	// HistoryCollection/HistoryDocument address the single history
	// document keyed by date.
	HistoryCollection string
	HistoryDocument   string
	// RevenueCollection holds one document per date key.
	RevenueCollection string
	Location          *time.Location
	Logger            *zap.Logger
}

type Ledger struct {
	store             docstore.Store
	historyCollection string
	historyDocument   string
	revenueCollection string
	location          *time.Location
	logger            *zap.Logger
}

func New(store docstore.Store, options Options) *Ledger {
	l := &Ledger{
		store:             store,
		historyCollection: options.HistoryCollection,
		historyDocument:   options.HistoryDocument,
		revenueCollection: options.RevenueCollection,
		location:          options.Location,
		logger:            options.Logger,
	}
	if l.historyCollection == "" {
		l.historyCollection = "turns"
	}
	if l.historyDocument == "" {
		l.historyDocument = "history"
	}
	if l.revenueCollection == "" {
		l.revenueCollection = "earnings"
	}
	if l.location == nil {
		l.location = time.UTC
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	return l
}

func (l *Ledger) Location() *time.Location {
	return l.location
}

// RecordHistory adds a completed ticket to the history entry for dateKey,
// creating the document or the entry on first use. It reports false without
// writing when the entry already holds the ticket.
func (l *Ledger) RecordHistory(ctx context.Context, dateKey string, ticket models.Ticket) (bool, error) {
	encoded, err := docstore.Encode(ticket)
	if err != nil {
		return false, err
	}
	fresh := map[string]interface{}{
		ticketsField:   []interface{}{encoded},
		customersField: 1,
	}

	snap, err := l.store.Get(ctx, l.historyCollection, l.historyDocument)
	if err != nil {
		return false, fmt.Errorf("load history: %w", err)
	}
	if !snap.Exists {
		if err := l.store.Set(ctx, l.historyCollection, l.historyDocument, map[string]interface{}{dateKey: fresh}); err != nil {
			return false, fmt.Errorf("create history: %w", err)
		}
		return true, nil
	}

	day, ok := snap.Data[dateKey].(map[string]interface{})
	if !ok {
		if err := l.store.Update(ctx, l.historyCollection, l.historyDocument, []docstore.Update{
			{Path: dateKey, Value: fresh},
		}); err != nil {
			return false, fmt.Errorf("create history entry %s: %w", dateKey, err)
		}
		return true, nil
	}
	if holdsTicket(day[ticketsField], ticket) {
		l.logger.Info("history already holds ticket", zap.String("date", dateKey), zap.Int("number", ticket.Number))
		return false, nil
	}

	if err := l.store.Update(ctx, l.historyCollection, l.historyDocument, []docstore.Update{
		{Path: dateKey + "." + ticketsField, Value: docstore.ArrayUnion{encoded}},
		{Path: dateKey + "." + customersField, Value: docstore.Increment{By: 1}},
	}); err != nil {
		return false, fmt.Errorf("append history %s: %w", dateKey, err)
	}
	return true, nil
}

// RecordRevenue adds a completed ticket and its price to the revenue
// document for dateKey. Like RecordHistory it skips tickets already present.
func (l *Ledger) RecordRevenue(ctx context.Context, dateKey string, ticket models.Ticket) (bool, error) {
	encoded, err := docstore.Encode(ticket)
	if err != nil {
		return false, err
	}
	price := 0.0
	if ticket.ServicePrice != nil {
		price = *ticket.ServicePrice
	}

	snap, err := l.store.Get(ctx, l.revenueCollection, dateKey)
	if err != nil {
		return false, fmt.Errorf("load revenue %s: %w", dateKey, err)
	}
	if !snap.Exists {
		if err := l.store.Set(ctx, l.revenueCollection, dateKey, map[string]interface{}{
			ticketsField:      []interface{}{encoded},
			totalRevenueField: price,
		}); err != nil {
			return false, fmt.Errorf("create revenue %s: %w", dateKey, err)
		}
		return true, nil
	}
	if holdsTicket(snap.Data[ticketsField], ticket) {
		l.logger.Info("revenue already holds ticket", zap.String("date", dateKey), zap.Int("number", ticket.Number))
		return false, nil
	}

	if err := l.store.Update(ctx, l.revenueCollection, dateKey, []docstore.Update{
		{Path: ticketsField, Value: docstore.ArrayUnion{encoded}},
		{Path: totalRevenueField, Value: docstore.Increment{By: price}},
	}); err != nil {
		return false, fmt.Errorf("append revenue %s: %w", dateKey, err)
	}
	return true, nil
}

// ServedOn returns the history entry for dateKey; a missing entry is an
// empty day.
func (l *Ledger) ServedOn(ctx context.Context, dateKey string) (models.DayHistory, error) {
	snap, err := l.store.Get(ctx, l.historyCollection, l.historyDocument)
	if err != nil {
		return models.DayHistory{}, fmt.Errorf("load history: %w", err)
	}
	return dayFromHistory(snap, dateKey)
}

func (l *Ledger) RevenueOn(ctx context.Context, dateKey string) (models.DailyRevenue, error) {
	snap, err := l.store.Get(ctx, l.revenueCollection, dateKey)
	if err != nil {
		return models.DailyRevenue{}, fmt.Errorf("load revenue %s: %w", dateKey, err)
	}
	out := models.DailyRevenue{Date: dateKey, Tickets: []models.Ticket{}}
	if !snap.Exists {
		return out, nil
	}
	if err := docstore.Decode(snap.Data, &out); err != nil {
		return models.DailyRevenue{}, fmt.Errorf("decode revenue %s: %w", dateKey, err)
	}
	out.Date = dateKey
	if out.Tickets == nil {
		out.Tickets = []models.Ticket{}
	}
	return out, nil
}

// RecordedCompletion looks ticket up across every history entry and returns
// the copy stored there together with that entry's date key.
func (l *Ledger) RecordedCompletion(ctx context.Context, ticket models.Ticket) (models.Ticket, string, bool, error) {
	snap, err := l.store.Get(ctx, l.historyCollection, l.historyDocument)
	if err != nil {
		return models.Ticket{}, "", false, fmt.Errorf("load history: %w", err)
	}
	if !snap.Exists {
		return models.Ticket{}, "", false, nil
	}

	dateKeys := make([]string, 0, len(snap.Data))
	for key := range snap.Data {
		dateKeys = append(dateKeys, key)
	}
	sort.Strings(dateKeys)

	want := ticketKey(ticket)
	for _, dateKey := range dateKeys {
		day, err := dayFromHistory(snap, dateKey)
		if err != nil {
			l.logger.Warn("skipping unreadable history entry", zap.String("date", dateKey), zap.Error(err))
			continue
		}
		for _, recorded := range day.Tickets {
			if recorded.CompletedAt != nil && ticketKey(recorded) == want {
				return recorded, dateKey, true, nil
			}
		}
	}
	return models.Ticket{}, "", false, nil
}

func dayFromHistory(snap docstore.Snapshot, dateKey string) (models.DayHistory, error) {
	out := models.DayHistory{Date: dateKey, Tickets: []models.Ticket{}}
	if !snap.Exists {
		return out, nil
	}
	day, ok := snap.Data[dateKey]
	if !ok {
		return out, nil
	}
	if err := docstore.Decode(day, &out); err != nil {
		return models.DayHistory{}, fmt.Errorf("decode history %s: %w", dateKey, err)
	}
	out.Date = dateKey
	if out.Tickets == nil {
		out.Tickets = []models.Ticket{}
	}
	return out, nil
}

// holdsTicket matches on ticket id, falling back to number and creation
// time for entries stored without an id.
func holdsTicket(items interface{}, ticket models.Ticket) bool {
	list, _ := items.([]interface{})
	want := ticketKey(ticket)
	for _, item := range list {
		var existing models.Ticket
		if err := docstore.Decode(item, &existing); err != nil {
			continue
		}
		if ticketKey(existing) == want {
			return true
		}
	}
	return false
}

func ticketKey(ticket models.Ticket) string {
	if ticket.ID != "" {
		return ticket.ID
	}
	return strconv.Itoa(ticket.Number) + "|" + ticket.CreatedAt.UTC().Format(time.RFC3339Nano)
}
