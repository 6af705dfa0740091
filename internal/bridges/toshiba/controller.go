package toshiba

import (
	"fmt"
	"math"
	"slices"
	"sync"
)

// Field names a capability of a unit.
type Field string

// Capability fields. All but FieldIndoorTemperature are writable.
const (
	FieldStatus            Field = "status"
	FieldMode              Field = "mode"
	FieldTargetTemperature Field = "target_temperature"
	FieldFanMode           Field = "fan_mode"
	FieldSwingMode         Field = "swing_mode"
	FieldIndoorTemperature Field = "indoor_temperature"
)

// WritableFields lists the fields an intent may target.
var WritableFields = []Field{
	FieldStatus,
	FieldMode,
	FieldTargetTemperature,
	FieldFanMode,
	FieldSwingMode,
}

// ParseField validates a field name from the presentation layer.
//
// Returns ErrReadOnlyField for indoor_temperature and ErrUnknownField for
// anything else not in WritableFields.
func ParseField(name string) (Field, error) {
	f := Field(name)
	if f == FieldIndoorTemperature {
		return "", fmt.Errorf("%w: %s", ErrReadOnlyField, name)
	}
	for _, w := range WritableFields {
		if f == w {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Device is the immutable identity of a physical unit, as discovered from
// the vendor account.
type Device struct {
	ID              string            `json:"id"`
	UniqueID        string            `json:"unique_id"`
	Name            string            `json:"name"`
	GroupID         string            `json:"group_id,omitempty"`
	GroupName       string            `json:"group_name,omitempty"`
	ModelID         string            `json:"model_id,omitempty"`
	MeritFeature    string            `json:"merit_feature,omitempty"`
	AdapterType     string            `json:"adapter_type,omitempty"`
	FirmwareVersion string            `json:"firmware_version,omitempty"`
	Cdu             map[string]string `json:"cdu,omitempty"`
	Fcu             map[string]string `json:"fcu,omitempty"`
}

// Outbound is a raw state ready for delivery to one unit.
type Outbound struct {
	DeviceID string   // vendor unique ID of the target unit
	RawState RawState // full state to send
}

// Controller owns the raw and logical state of a single unit.
//
// All methods are safe for concurrent use. Controllers never perform I/O;
// ApplyIntent returns the payload and the caller delivers it.
type Controller struct {
	device Device

	mu    sync.Mutex
	raw   RawState
	state LogicalState
}

// NewController creates a controller for device.
//
// An empty raw is accepted: the controller then reports UnspecifiedState and
// rejects intents until the first full-state telemetry arrives.
//
// Parameters:
//   - device: Identity of the unit
//   - raw: Last known raw state, or empty
//
// Returns:
//   - *Controller: Ready for use
//   - error: ErrInvalidRawState if raw is non-empty and malformed
func NewController(device Device, raw RawState) (*Controller, error) {
	c := &Controller{
		device: device,
		state:  UnspecifiedState(),
	}
	if raw == "" {
		return c, nil
	}

	state, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", device.UniqueID, err)
	}
	c.raw = raw
	c.state = state
	return c, nil
}

// Device returns the unit identity.
func (c *Controller) Device() Device {
	return c.device
}

// ID returns the vendor unique ID of the unit.
func (c *Controller) ID() string {
	return c.device.UniqueID
}

// Snapshot returns the current raw and logical state.
func (c *Controller) Snapshot() (RawState, LogicalState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw, c.state
}

// ApplyTelemetry replaces both raw and logical state with a full-state
// report from the unit. On a decode error the previous state is kept.
func (c *Controller) ApplyTelemetry(raw RawState) (LogicalState, error) {
	state, err := Decode(raw)
	if err != nil {
		return LogicalState{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = raw
	c.state = state
	return state, nil
}

// ApplyIndoorTemperature records a heartbeat reading. Only the indoor
// temperature changes; the raw state is untouched.
func (c *Controller) ApplyIndoorTemperature(b byte) LogicalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IndoorTemperature = DecodeTemperature(b)
	return c.state
}

// ApplyIntent sets one writable field and encodes the result against the
// current raw state.
//
// The stored raw state is replaced with the encoded one before returning, so
// concurrent intents on different fields never lose each other's update. If
// encoding fails the field change is reverted.
//
// Parameters:
//   - field: Writable field to change
//   - value: Requested logical value
//
// Returns:
//   - Outbound: Payload for the messaging channel
//   - LogicalState: State after the change
//   - error: ErrUnknownField, ErrReadOnlyField, ErrInvalidValue or ErrInvalidRawState
func (c *Controller) ApplyIntent(field Field, value int) (Outbound, LogicalState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := CheckValue(field, value); err != nil {
		return Outbound{}, c.state, err
	}

	next := c.state
	switch field {
	case FieldStatus:
		next.Status = value
	case FieldMode:
		next.Mode = value
	case FieldTargetTemperature:
		next.TargetTemperature = value
	case FieldFanMode:
		next.FanMode = value
	case FieldSwingMode:
		next.SwingMode = value
	}

	raw, err := Encode(c.raw, next)
	if err != nil {
		return Outbound{}, c.state, fmt.Errorf("device %s has no usable raw state: %w", c.device.UniqueID, err)
	}

	c.raw = raw
	c.state = next
	return Outbound{DeviceID: c.device.UniqueID, RawState: raw}, next, nil
}

// CheckValue reports whether value can be written to field and survive a
// decode of the resulting raw state unchanged.
func CheckValue(field Field, value int) error {
	var ok bool
	switch field {
	case FieldStatus:
		ok = value == StatusOff || value == StatusOn
	case FieldMode:
		ok = value == ModeAuto || value == ModeCool || value == ModeHeat
	case FieldTargetTemperature:
		// 126 is the wire form of -1; 127 and -128 decode as unspecified.
		ok = value == TemperatureUnspecified || (value > math.MinInt8 && value < temperatureReserved)
	case FieldFanMode:
		ok = value == FanAuto || slices.Contains(FanBands(), value)
	case FieldSwingMode:
		ok = value == SwingOff || value == SwingOn
	case FieldIndoorTemperature:
		return fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, string(field))
	}
	if !ok {
		return fmt.Errorf("%w: %s=%d", ErrInvalidValue, field, value)
	}
	return nil
}
