package main

import (
	"context"

	"github.com/nerrad567/gray-logic-toshiba/internal/bridges/toshiba"
	"github.com/nerrad567/gray-logic-toshiba/internal/device"
	"github.com/nerrad567/gray-logic-toshiba/internal/infrastructure/mqtt"
)

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The infrastructure handler returns an error so it
// can be logged centrally; bridge handlers do their own logging.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements toshiba.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements toshiba.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, voidHandler(handler))
}

// IsConnected implements toshiba.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

func voidHandler(handler func(topic string, payload []byte)) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		handler(topic, payload)
		return nil
	}
}

// catalogueAdapter exposes the device registry as the bridge's Catalogue.
type catalogueAdapter struct {
	registry *device.Registry
}

// CreateDeviceIfNotExists implements toshiba.Catalogue.
func (a *catalogueAdapter) CreateDeviceIfNotExists(ctx context.Context, dev toshiba.Device) error {
	rec := toRecord(dev)
	return a.registry.CreateDeviceIfNotExists(ctx, &rec)
}

// ListDevices implements toshiba.Catalogue.
func (a *catalogueAdapter) ListDevices(ctx context.Context) ([]toshiba.Device, error) {
	records, err := a.registry.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	devices := make([]toshiba.Device, 0, len(records))
	for _, rec := range records {
		devices = append(devices, fromRecord(rec))
	}
	return devices, nil
}

func toRecord(dev toshiba.Device) device.Device {
	return device.Device{
		UniqueID:        dev.UniqueID,
		ID:              dev.ID,
		Name:            dev.Name,
		GroupID:         optional(dev.GroupID),
		GroupName:       optional(dev.GroupName),
		ModelID:         optional(dev.ModelID),
		MeritFeature:    optional(dev.MeritFeature),
		AdapterType:     optional(dev.AdapterType),
		FirmwareVersion: optional(dev.FirmwareVersion),
		Cdu:             device.Descriptor(dev.Cdu),
		Fcu:             device.Descriptor(dev.Fcu),
	}
}

func fromRecord(rec device.Device) toshiba.Device {
	return toshiba.Device{
		ID:              rec.ID,
		UniqueID:        rec.UniqueID,
		Name:            rec.Name,
		GroupID:         deref(rec.GroupID),
		GroupName:       deref(rec.GroupName),
		ModelID:         deref(rec.ModelID),
		MeritFeature:    deref(rec.MeritFeature),
		AdapterType:     deref(rec.AdapterType),
		FirmwareVersion: deref(rec.FirmwareVersion),
		Cdu:             rec.Cdu,
		Fcu:             rec.Fcu,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
