package domain

import "errors"

var (
	ErrNoActiveSession = errors.New("no active tracking session")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionEnded    = errors.New("session already ended")
)
