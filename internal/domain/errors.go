package domain

import "errors"

// Ledger error taxonomy. Callers test with errors.Is; repositories and
// services wrap these with context.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrToolInUse         = errors.New("tool is held by an active rental")
	ErrNotFound          = errors.New("not found")
	ErrTransient         = errors.New("transient store failure")
	ErrInvalidAmount     = errors.New("invalid amount")

	ErrDuplicateName     = errors.New("name already exists")
	ErrInvalidTransition = errors.New("invalid rental status transition")
	ErrRentalOutstanding = errors.New("rental still has unreturned items")
	ErrInvalidInput      = errors.New("invalid input")
)
