package domain

import "errors"

var (
	// ErrStoreNotFound is terminal: the resolver reports it only after the
	// whole fallback chain and the bounded cold-start wait are exhausted,
	// and callers must not retry automatically.
	ErrStoreNotFound = errors.New("store not found")

	// ErrStockExceeded is returned after clamping a cart quantity to the
	// available stock. Recoverable, user-facing.
	ErrStockExceeded = errors.New("requested quantity exceeds stock")

	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrLineNotFound    = errors.New("cart line not found")
)
