package queue

import "errors"

var ErrEmptyName = errors.New("name is required")
