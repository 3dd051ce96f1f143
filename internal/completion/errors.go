package completion

import "errors"

var (
	ErrInvalidPrice     = errors.New("service price must be a finite non-negative number")
	ErrTicketNotPending = errors.New("ticket is not pending")
)
