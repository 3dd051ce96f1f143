package queue

import (
	"context"

	"github.com/Beto0829/Barber-ticket/internal/models"
)

// FindTicketNumber returns the number of the first pending ticket whose name
// equals name exactly. Matching is case-sensitive with no normalization.
func (q *Queue) FindTicketNumber(ctx context.Context, name string) (int, bool, error) {
	tickets, err := q.ListPending(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, ticket := range tickets {
		if ticket.Name == name {
			return ticket.Number, true, nil
		}
	}
	return 0, false, nil
}

// CurrentlyServing is the lowest pending number regardless of array order.
func (q *Queue) CurrentlyServing(ctx context.Context) (int, bool, error) {
	tickets, err := q.ListPending(ctx)
	if err != nil {
		return 0, false, err
	}
	if len(tickets) == 0 {
		return 0, false, nil
	}
	lowest := tickets[0].Number
	for _, ticket := range tickets[1:] {
		if ticket.Number < lowest {
			lowest = ticket.Number
		}
	}
	return lowest, true, nil
}

// Board reads the queue once and returns the pending list together with the
// number being served.
func (q *Queue) Board(ctx context.Context) (models.Board, error) {
	tickets, err := q.ListPending(ctx)
	if err != nil {
		return models.Board{}, err
	}
	board := models.Board{Tickets: tickets}
	for _, ticket := range tickets {
		if board.Serving == nil || ticket.Number < *board.Serving {
			number := ticket.Number
			board.Serving = &number
		}
	}
	return board, nil
}
