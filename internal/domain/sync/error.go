package sync

import "errors"

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrUnknownOperation = errors.New("unknown queue operation")
	ErrMissingIdentity  = errors.New("missing user identity")
)
