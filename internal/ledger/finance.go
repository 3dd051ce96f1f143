package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/Beto0829/Barber-ticket/internal/models"
)

const maxRangeDays = 366

type DaySummary struct {
	Date      string  `json:"date"`
	Revenue   float64 `json:"revenue"`
	Customers int     `json:"customers"`
}

type MonthSummary struct {
	Month     string  `json:"month"`
	Revenue   float64 `json:"revenue"`
	Customers int     `json:"customers"`
}

// ParseDate reads a YYYY-MM-DD date key in the ledger's location.
func (l *Ledger) ParseDate(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(models.DateKeyLayout, value, l.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed, nil
}

// DailyRange returns one summary per calendar day from..to inclusive. Days
// without completions are reported with zero values.
func (l *Ledger) DailyRange(ctx context.Context, from, to time.Time) ([]DaySummary, error) {
	days, err := l.dateKeys(from, to)
	if err != nil {
		return nil, err
	}
	history, err := l.store.Get(ctx, l.historyCollection, l.historyDocument)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	out := make([]DaySummary, 0, len(days))
	for _, key := range days {
		served, err := dayFromHistory(history, key)
		if err != nil {
			return nil, err
		}
		revenue, err := l.RevenueOn(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, DaySummary{
			Date:      key,
			Revenue:   revenue.TotalRevenue,
			Customers: served.TotalCustomersServed,
		})
	}
	return out, nil
}

// Monthly folds the daily summaries of year into its twelve months.
func (l *Ledger) Monthly(ctx context.Context, year int) ([]MonthSummary, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, l.location)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, l.location)
	days, err := l.DailyRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	months := make([]MonthSummary, 12)
	for i := range months {
		months[i].Month = fmt.Sprintf("%04d-%02d", year, i+1)
	}
	for _, day := range days {
		parsed, err := l.ParseDate(day.Date)
		if err != nil {
			return nil, err
		}
		month := &months[int(parsed.Month())-1]
		month.Revenue += day.Revenue
		month.Customers += day.Customers
	}
	return months, nil
}

// CompletedTickets lists every ticket in the revenue ledger between from and
// to inclusive, oldest day first.
func (l *Ledger) CompletedTickets(ctx context.Context, from, to time.Time) ([]models.Ticket, error) {
	days, err := l.dateKeys(from, to)
	if err != nil {
		return nil, err
	}
	var tickets []models.Ticket
	for _, key := range days {
		revenue, err := l.RevenueOn(ctx, key)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, revenue.Tickets...)
	}
	return tickets, nil
}

func (l *Ledger) dateKeys(from, to time.Time) ([]string, error) {
	start := truncateDay(from.In(l.location))
	end := truncateDay(to.In(l.location))
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	var keys []string
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if len(keys) >= maxRangeDays {
			return nil, ErrRangeTooLarge
		}
		keys = append(keys, day.Format(models.DateKeyLayout))
	}
	return keys, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
