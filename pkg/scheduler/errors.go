package scheduler

import "errors"

var (
	// ErrInsufficientCredits is returned (wrapped into the terminal failed
	// event/FinalResult) when the pre-flight credit check or reservation
	// denies an execution (spec.md §7 InsufficientCredits).
	ErrInsufficientCredits = errors.New("insufficient credits to reserve this execution")

	// ErrUnknownExecution describes the case where no execution with the
	// given id is currently running under this Scheduler. Cancel reports
	// that case by returning false, not with this error.
	ErrUnknownExecution = errors.New("no running execution with that id")
)
