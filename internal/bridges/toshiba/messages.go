package toshiba

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// MQTT message types exchanged between Gray Logic Core and the Toshiba
// bridge.

// protocolName identifies this bridge in state and ack messages.
const protocolName = "toshiba"

// CommandMessage is sent from Core to the bridge to change one capability.
// Topic: graylogic/command/toshiba/{unique_id}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the vendor unique ID of the unit.
	DeviceID string `json:"device_id"`

	// Field is the capability to change (e.g. "mode", "fan_mode").
	Field string `json:"field"`

	// Value is the requested logical value. Nil when missing. Decoded as a
	// float so fractional values reach IntValue instead of failing the parse.
	Value *float64 `json:"value"`

	// Source indicates where the command originated.
	// Values: "api", "automation", "voice", "scene", "cli"
	Source string `json:"source"`

	// UserID is the user who triggered the command (if applicable).
	UserID string `json:"user_id,omitempty"`
}

// IntValue returns Value as a logical integer, or ErrInvalidCommand when it
// is missing or not a whole number.
func (m CommandMessage) IntValue() (int, error) {
	if m.Value == nil {
		return 0, fmt.Errorf("%w: missing 'value' parameter", ErrInvalidCommand)
	}
	v := *m.Value
	if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: value %v is not an integer", ErrInvalidCommand, v)
	}
	return int(v), nil
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was encoded and handed to the channel.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// AckMessage is sent from the bridge to Core to acknowledge a command.
// Topic: graylogic/ack/toshiba/{unique_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Field     string    `json:"field,omitempty"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	// Code is the error code (e.g., "DEVICE_UNREACHABLE", "INVALID_COMMAND").
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeProtocolError     = "PROTOCOL_ERROR"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
)

// StateMessage is sent from the bridge to Core when a unit's state changes.
// Topic: graylogic/state/toshiba/{unique_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	// DeviceID is the vendor unique ID of the unit.
	DeviceID string `json:"device_id"`

	// Name is the display name of the unit.
	Name string `json:"name,omitempty"`

	// Timestamp is when the state was observed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// State holds the six logical capabilities keyed by field name.
	State map[string]any `json:"state"`

	// RawState is the vendor raw state the capabilities were decoded from.
	RawState RawState `json:"raw_state,omitempty"`

	// Protocol is the protocol identifier ("toshiba").
	Protocol string `json:"protocol"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline indicates the bridge is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the bridge's operational status.
// Topic: graylogic/health/toshiba
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge         string            `json:"bridge"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         HealthStatus      `json:"status"`
	Version        string            `json:"version"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	SessionID      string            `json:"session_id,omitempty"`
	Statistics     *BridgeStatistics `json:"statistics,omitempty"`
	DevicesManaged int               `json:"devices_managed"`
	Reason         string            `json:"reason,omitempty"`
}

// BridgeStatistics contains operational counters.
type BridgeStatistics struct {
	// EventsReceived is the number of vendor events processed.
	EventsReceived uint64 `json:"events_received"`

	// CommandsSent is the number of raw states handed to the channel.
	CommandsSent uint64 `json:"commands_sent"`

	// Errors is the number of dropped events and failed commands.
	Errors uint64 `json:"errors"`
}

// UnmarshalJSON unmarshals a CommandMessage, accepting an RFC3339 timestamp
// or none.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// NewAckMessage creates an acknowledgment message for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Protocol:  protocolName,
		Field:     cmd.Field,
	}
}

// NewAckError creates a failed acknowledgment with error details.
func NewAckError(cmd CommandMessage, code, message string) AckMessage {
	ack := NewAckMessage(cmd, AckFailed)
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// NewStateMessage creates a state message for a unit.
func NewStateMessage(device Device, raw RawState, state LogicalState) StateMessage {
	return StateMessage{
		DeviceID:  device.UniqueID,
		Name:      device.Name,
		Timestamp: time.Now().UTC(),
		State:     state.AsMap(),
		RawState:  raw,
		Protocol:  protocolName,
	}
}

// NewLWTMessage creates a Last Will and Testament message for MQTT.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// Topic helpers

const (
	// TopicPrefix is the base topic for all Gray Logic messages.
	TopicPrefix = "graylogic"
)

// CommandTopic returns the MQTT topic for commands to a unit.
// Example: graylogic/command/toshiba/abc123
func CommandTopic(deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, protocolName, deviceID)
}

// CommandSubscribeTopic returns the subscription pattern for all commands.
func CommandSubscribeTopic() string {
	return fmt.Sprintf("%s/command/%s/#", TopicPrefix, protocolName)
}

// AckTopic returns the MQTT topic for command acknowledgments.
func AckTopic(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, protocolName, deviceID)
}

// StateTopic returns the MQTT topic for state updates.
func StateTopic(deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, protocolName, deviceID)
}

// HealthTopic returns the MQTT topic for health status.
func HealthTopic() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, protocolName)
}

// VendorInboundTopic returns the topic the channel relay publishes a unit's
// events on.
// Example: graylogic/vendor/toshiba/inbound/abc123
func VendorInboundTopic(deviceID string) string {
	return fmt.Sprintf("%s/vendor/%s/inbound/%s", TopicPrefix, protocolName, deviceID)
}

// VendorInboundSubscribeTopic returns the subscription pattern for all
// inbound vendor events.
func VendorInboundSubscribeTopic() string {
	return fmt.Sprintf("%s/vendor/%s/inbound/#", TopicPrefix, protocolName)
}

// VendorOutboundTopic returns the topic the channel relay forwards to the
// unit.
func VendorOutboundTopic(deviceID string) string {
	return fmt.Sprintf("%s/vendor/%s/outbound/%s", TopicPrefix, protocolName, deviceID)
}
