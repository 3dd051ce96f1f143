package models

import "time"

// Ticket is one customer's place in line. ServicePrice and CompletedAt stay
// empty while the ticket is pending.
type Ticket struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Number       int        `json:"number"`
	CreatedAt    time.Time  `json:"createdAt"`
	ServicePrice *float64   `json:"servicePrice,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func (t Ticket) Completed() bool {
	return t.CompletedAt != nil
}

// DayHistory is one date entry of the history ledger.
type DayHistory struct {
	Date                 string   `json:"date"`
	Tickets              []Ticket `json:"tickets"`
	TotalCustomersServed int      `json:"totalCustomersServed"`
}

// DailyRevenue is one document of the revenue ledger.
type DailyRevenue struct {
	Date         string   `json:"date"`
	Tickets      []Ticket `json:"tickets"`
	TotalRevenue float64  `json:"totalRevenue"`
}

const DateKeyLayout = "2006-01-02"

// DateKey formats t as the ledger partition key in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateKeyLayout)
}

// Board is what the public queue screen shows.
type Board struct {
	Tickets []Ticket `json:"tickets"`
	Serving *int     `json:"serving"`
}
