package core

import "errors"

// Errors
var (
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidSide        = errors.New("invalid side")
	ErrInvalidLimit       = errors.New("invalid limit")
	ErrEngineStopped      = errors.New("engine stopped")
	ErrSubmissionCanceled = errors.New("submission canceled")
)
