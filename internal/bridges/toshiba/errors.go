package toshiba

import "errors"

// Domain errors for the Toshiba bridge package.
var (
	// ErrInvalidRawState is returned when a raw state string is too short,
	// has an odd length, or contains non-hex characters.
	ErrInvalidRawState = errors.New("toshiba: invalid raw state")

	// ErrUnknownField is returned when an intent names a capability the
	// controller does not know.
	ErrUnknownField = errors.New("toshiba: unknown field")

	// ErrReadOnlyField is returned when an intent targets a capability that
	// is only ever reported by the unit (indoor temperature).
	ErrReadOnlyField = errors.New("toshiba: field is read-only")

	// ErrInvalidValue is returned when an intent value lies outside the
	// domain of its field.
	ErrInvalidValue = errors.New("toshiba: value out of range")

	// ErrDeliveryFailed is returned when an outbound payload could not be
	// handed to the messaging channel. Controller state is not rolled back.
	ErrDeliveryFailed = errors.New("toshiba: delivery failed")

	// ErrUnknownDevice is returned when a device unique ID is not managed
	// by the bridge.
	ErrUnknownDevice = errors.New("toshiba: unknown device")

	// ErrInvalidEvent is returned when an inbound vendor event is malformed.
	ErrInvalidEvent = errors.New("toshiba: invalid event")

	// ErrInvalidCommand is returned when a presentation command is malformed
	// or carries a non-integer value.
	ErrInvalidCommand = errors.New("toshiba: invalid command")
)
