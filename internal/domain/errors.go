package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotPaid           = errors.New("payment not completed")
	ErrUpstreamFailure   = errors.New("payment provider failure")
	ErrConflict          = errors.New("conflicting update")

	// ErrAlreadyProcessed signals that the payment session already has a
	// donation row. Callers on the reconcile path treat it as success.
	ErrAlreadyProcessed = errors.New("payment session already processed")

	// ErrDuplicateOperation is returned when a locally generated identifier
	// (transaction or receipt id) collides with an existing row.
	ErrDuplicateOperation = errors.New("duplicate operation")
)
