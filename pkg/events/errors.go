package events

import "errors"

// ErrAlreadyTerminal is returned when Emit is called again after a terminal
// event (completed/failed) has already closed the stream for an execution.
var ErrAlreadyTerminal = errors.New("event stream for this execution already reached a terminal event")
