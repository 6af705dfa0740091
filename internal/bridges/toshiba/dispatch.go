package toshiba

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Dispatcher delivers an outbound raw state to a unit over the vendor
// channel. sessionID identifies this bridge as the sender.
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID string, out Outbound) error
}

// Publisher is the subset of MQTTClient the dispatcher needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTDispatcher publishes CMD_FCU_TO_AC envelopes to the channel relay.
type MQTTDispatcher struct {
	publisher Publisher
	newID     func() string
}

// NewMQTTDispatcher creates a dispatcher that publishes through p.
func NewMQTTDispatcher(p Publisher) *MQTTDispatcher {
	return &MQTTDispatcher{
		publisher: p,
		newID:     uuid.NewString,
	}
}

// Dispatch implements Dispatcher.
func (d *MQTTDispatcher) Dispatch(ctx context.Context, sessionID string, out Outbound) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	msg := NewFCUToACMessage(sessionID, d.newID(), out)
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrDeliveryFailed, err)
	}

	if err := d.publisher.Publish(VendorOutboundTopic(out.DeviceID), payload, 1, false); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// NewSessionID returns a fresh session identifier for outbound messages.
func NewSessionID() string {
	return "graylogic-" + uuid.NewString()
}
