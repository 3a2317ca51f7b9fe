package mocks

import "errors"

var (
	// ErrDeliveryRejected is a canned delivery failure.
	ErrDeliveryRejected = errors.New("delivery rejected")

	// ErrHistoryUnavailable is a canned history failure.
	ErrHistoryUnavailable = errors.New("history unavailable")
)
