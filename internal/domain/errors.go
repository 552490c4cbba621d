package domain

import "errors"

var (
	ErrInvalidOrder     = errors.New("invalid order")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrNotFound         = errors.New("order not found")
	ErrPersistFailed    = errors.New("persist failed")

	// ErrVersionConflict is returned when another writer updated the order
	// between our read and our write.
	ErrVersionConflict = errors.New("order was modified concurrently")
)
