package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrProviderFailure  = errors.New("provider failure")
	ErrJobTimeout       = errors.New("job timed out")
	ErrJobCancelled     = errors.New("job cancelled")
	ErrJobNotFinished   = errors.New("job not finished")
	ErrIncompleteResult = errors.New("incomplete result")
)
