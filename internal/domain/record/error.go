package record

import (
	"errors"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrUnknownTable   = errors.New("unknown entity table")
	ErrInvalidPayload = errors.New("invalid record payload")
)
