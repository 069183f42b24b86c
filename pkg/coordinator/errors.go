package coordinator

import "errors"

var (
	ErrIterationInProgress = errors.New("an iteration is already in progress")
	ErrPingerNotRegistered = errors.New("reporting pinger is not registered")
	ErrSessionNotFound     = errors.New("no session for pinger in iteration")
	ErrSessionFinished     = errors.New("session already finished")
	ErrNoGraph             = errors.New("iteration has no graph yet")
)
