package client

import "errors"

var (
	ErrStoreLocked = errors.New("store is used by another process")
	ErrUnknownMode = errors.New("unknown mode")
)
