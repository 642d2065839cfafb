package router

import "errors"

// Sentinel errors for edge routing (spec.md §4.5).
var (
	ErrMissingConditionalExpression = errors.New("conditional node config missing a \"condition\" expression")
	ErrMissingSwitchSelector        = errors.New("switch node config missing a \"selector\" expression")
)
