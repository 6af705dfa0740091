package toshiba

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Vendor command names carried in the cmd field of channel messages.
const (
	CmdHeartbeat         = "CMD_HEARTBEAT"
	CmdFCUFromAC         = "CMD_FCU_FROM_AC"
	CmdSetScheduleFromAC = "CMD_SET_SCHEDULE_FROM_AC"
	CmdFCUToAC           = "CMD_FCU_TO_AC"
)

const (
	// outboundTimeStamp is the fixed timestamp the unit expects.
	outboundTimeStamp = "0000000"

	// outboundMessageType marks a message as coming from a mobile client.
	outboundMessageType = "mob"

	temperatureHexBitWidth = 8
)

// EventKind classifies an inbound vendor event.
type EventKind int

const (
	// EventUnknown is a command the bridge does not recognise.
	EventUnknown EventKind = iota

	// EventHeartbeat carries the indoor (and outdoor) temperature.
	EventHeartbeat

	// EventStateUpdate carries a full raw state.
	EventStateUpdate

	// EventScheduleUpdate carries a schedule change. It is recognised but
	// not acted upon.
	EventScheduleUpdate
)

// String returns the kind name used in logs and metric labels.
func (k EventKind) String() string {
	switch k {
	case EventHeartbeat:
		return "heartbeat"
	case EventStateUpdate:
		return "state_update"
	case EventScheduleUpdate:
		return "schedule_update"
	default:
		return "unknown"
	}
}

// Event is a parsed inbound vendor message.
type Event struct {
	Kind     EventKind
	Command  string // vendor cmd as received
	SourceID string // unique ID of the reporting unit

	// Heartbeat fields.
	IndoorTemperature  byte
	OutdoorTemperature byte
	HasOutdoor         bool

	// State update field.
	RawState RawState

	// Schedule payload, kept opaque.
	Schedule json.RawMessage
}

// inboundEnvelope is the JSON shape of a vendor channel message.
type inboundEnvelope struct {
	Cmd       string          `json:"cmd"`
	SourceID  string          `json:"sourceId"`
	MessageID string          `json:"messageId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type heartbeatPayload struct {
	ITemp string `json:"iTemp"`
	OTemp string `json:"oTemp"`
}

type stateUpdatePayload struct {
	Data string `json:"data"`
}

// ParseEvent decodes an inbound vendor message.
//
// Unknown commands are returned as EventUnknown rather than an error so the
// caller can log them.
//
// Parameters:
//   - data: JSON message from the vendor channel
//
// Returns:
//   - Event: Parsed event
//   - error: ErrInvalidEvent if the message is malformed
func ParseEvent(data []byte) (Event, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if env.SourceID == "" {
		return Event{}, fmt.Errorf("%w: missing sourceId", ErrInvalidEvent)
	}

	ev := Event{Command: env.Cmd, SourceID: env.SourceID}

	switch env.Cmd {
	case CmdHeartbeat:
		var p heartbeatPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return Event{}, err
		}
		indoor, err := parseHexByte(p.ITemp)
		if err != nil {
			return Event{}, fmt.Errorf("%w: iTemp %q: %v", ErrInvalidEvent, p.ITemp, err)
		}
		ev.Kind = EventHeartbeat
		ev.IndoorTemperature = indoor
		if outdoor, err := parseHexByte(p.OTemp); err == nil {
			ev.OutdoorTemperature = outdoor
			ev.HasOutdoor = true
		}

	case CmdFCUFromAC:
		var p stateUpdatePayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return Event{}, err
		}
		if p.Data == "" {
			return Event{}, fmt.Errorf("%w: empty state data", ErrInvalidEvent)
		}
		ev.Kind = EventStateUpdate
		ev.RawState = RawState(p.Data)

	case CmdSetScheduleFromAC:
		ev.Kind = EventScheduleUpdate
		ev.Schedule = env.Payload

	default:
		ev.Kind = EventUnknown
	}

	return ev, nil
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", ErrInvalidEvent)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrInvalidEvent, err)
	}
	return nil
}

func parseHexByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 16, temperatureHexBitWidth)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// OutboundMessage is the vendor envelope that carries a new raw state to a
// unit.
type OutboundMessage struct {
	SourceID  string          `json:"sourceId"`
	MessageID string          `json:"messageId"`
	TargetID  []string        `json:"targetId"`
	Cmd       string          `json:"cmd"`
	Payload   OutboundPayload `json:"payload"`
	TimeStamp string          `json:"timeStamp"`
	Type      string          `json:"type"`
}

// OutboundPayload is the payload of an OutboundMessage.
type OutboundPayload struct {
	Data RawState `json:"data"`
}

// NewFCUToACMessage builds the envelope for out, sent on behalf of the
// given session.
func NewFCUToACMessage(sessionID, messageID string, out Outbound) OutboundMessage {
	return OutboundMessage{
		SourceID:  sessionID,
		MessageID: messageID,
		TargetID:  []string{out.DeviceID},
		Cmd:       CmdFCUToAC,
		Payload:   OutboundPayload{Data: out.RawState},
		TimeStamp: outboundTimeStamp,
		Type:      outboundMessageType,
	}
}
