package ledger

import "errors"

var (
	ErrInvalidDate   = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidRange  = errors.New("range end is before range start")
	ErrRangeTooLarge = errors.New("date range too large")
)
