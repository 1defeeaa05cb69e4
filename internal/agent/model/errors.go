package model

import "errors"

// Loop-fatal errors. They abort the turn and are reported to the caller.
var (
	ErrIterationLimit = errors.New("iteration limit exceeded")
	ErrUnknownTool    = errors.New("unknown tool requested")
	ErrEmptyQuery     = errors.New("message is empty")
)
