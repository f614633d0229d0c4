package entity

import "errors"

var (
	// ErrInterfaceNotFound is returned when no active interface matches a provider/code
	ErrInterfaceNotFound = errors.New("no active interface found")
	// ErrUnknownProvider is returned for provider names without a registered adapter
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrCapabilityUnsupported is returned by adapters for calls they do not implement
	ErrCapabilityUnsupported = errors.New("capability not supported by provider")
	// ErrInvalidPeriod is returned for polling periods outside the period table
	ErrInvalidPeriod = errors.New("invalid polling period")
	// ErrQueueUnavailable is returned when fare tasks cannot be queued because no task queue is connected
	ErrQueueUnavailable = errors.New("fare task queue unavailable")
	// ErrTimezoneNotFound is returned when the timezone table has no row for an airport
	ErrTimezoneNotFound = errors.New("airport timezone not found")
)
