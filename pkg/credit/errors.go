package credit

import "errors"

// Sentinel errors for the Credit Lifecycle (spec.md §4.7, §6.2).
var (
	ErrInsufficientCredits = errors.New("insufficient credits for this reservation")
	ErrUnknownWorkspace    = errors.New("workspace has no credit balance on record")
)
