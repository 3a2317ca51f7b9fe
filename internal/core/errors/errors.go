// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Configuration errors.
var (
	// ErrInvalidConfig indicates a configuration value is missing or out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidPattern indicates a configured regular expression does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// Channel and entity resolution errors.
var (
	// ErrChannelNotFound indicates a channel could not be found.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrNotAChannel indicates the entity is not a channel type.
	ErrNotAChannel = errors.New("entity is not a channel")
)

// Client and connection errors.
var (
	// ErrClientNotInitialized indicates a client has not been initialized.
	ErrClientNotInitialized = errors.New("client not initialized")
)

// Delivery errors.
var (
	// ErrDeliveryFailed indicates every delivery attempt including fallbacks failed.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrCaptionTooLong indicates a media caption exceeds the platform limit.
	ErrCaptionTooLong = errors.New("caption too long")

	// ErrUnsupportedMedia indicates the media cannot be re-sent by the delivery channel.
	ErrUnsupportedMedia = errors.New("unsupported media")

	// ErrPromotionalOnly indicates nothing is left of a message after ad stripping.
	ErrPromotionalOnly = errors.New("promotional content only")
)

// Source errors.
var (
	// ErrEmptySource indicates the replay input holds no messages.
	ErrEmptySource = errors.New("message source is empty")
)
