package toshiba

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Bridge operation constants.
const (
	// minTopicParts is the minimum number of parts in a valid MQTT topic.
	minTopicParts = 3

	// climateMeasurement is the InfluxDB measurement for decoded unit state.
	climateMeasurement = "climate_state"
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Catalogue persists unit identities across restarts.
// This interface is satisfied by *device.Registry (via adapter in main.go).
// It is optional - if nil, units come from the bridge config only.
type Catalogue interface {
	// CreateDeviceIfNotExists seeds a unit from bridge config.
	// No-op if the unit already exists (preserves user modifications).
	CreateDeviceIfNotExists(ctx context.Context, device Device) error

	// ListDevices returns every catalogued unit.
	ListDevices(ctx context.Context) ([]Device, error)
}

// TelemetryWriter records decoded readings as time series.
// This interface is satisfied by *influxdb.Client.
type TelemetryWriter interface {
	WriteDeviceMetric(deviceID string, measurement string, value float64)
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the loaded bridge configuration.
	Config *Config

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Dispatcher delivers outbound raw states. Defaults to an
	// MQTTDispatcher on MQTTClient.
	Dispatcher Dispatcher

	// Version is the bridge software version reported in health messages.
	Version string

	// Logger is optional structured logger.
	Logger Logger

	// Catalogue is optional persistent unit storage.
	Catalogue Catalogue

	// Telemetry is an optional time-series writer.
	Telemetry TelemetryWriter

	// Metrics is optional Prometheus instrumentation.
	Metrics *Metrics
}

// Bridge connects Toshiba units on the vendor channel to Gray Logic Core.
// It handles:
//   - Routing vendor events to the per-unit controllers
//   - Translating Core commands into outbound raw states
//   - Publishing decoded state, telemetry, metrics and health
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg        *Config
	mqtt       MQTTClient
	dispatcher Dispatcher
	catalogue  Catalogue
	telemetry  TelemetryWriter
	metrics    *Metrics
	health     *HealthReporter
	sessionID  string

	controllers   map[string]*Controller
	controllersMu sync.RWMutex

	// State cache for change detection
	stateCache   map[string]LogicalState
	stateCacheMu sync.Mutex

	eventsReceived atomic.Uint64
	commandsSent   atomic.Uint64
	errorsTotal    atomic.Uint64

	// Shutdown coordination
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = NewMQTTDispatcher(opts.MQTTClient)
	}

	sessionID := opts.Config.Bridge.SessionID
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:         opts.Config,
		mqtt:        opts.MQTTClient,
		dispatcher:  dispatcher,
		catalogue:   opts.Catalogue,
		telemetry:   opts.Telemetry,
		metrics:     opts.Metrics,
		sessionID:   sessionID,
		controllers: make(map[string]*Controller),
		stateCache:  make(map[string]LogicalState),
		ctx:         ctx,
		ctxCancel:   ctxCancel,
		logger:      opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.Config.Bridge.ID,
		Version:   opts.Version,
		SessionID: sessionID,
		Interval:  opts.Config.GetHealthInterval(),
		Publisher: opts.MQTTClient,
		Stats:     b.Statistics,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start loads the units, subscribes to the vendor and command topics, and
// starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.loadDevices(ctx); err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	inboundTopic := VendorInboundSubscribeTopic()
	if err := b.mqtt.Subscribe(inboundTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to vendor events: %w", err)
	}
	b.logInfo("subscribed to vendor events", "topic", inboundTopic)

	commandTopic := CommandSubscribeTopic()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	b.health.Start(ctx)

	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	for _, ctrl := range b.controllerList() {
		raw, state := ctrl.Snapshot()
		if raw == "" {
			b.logInfo("awaiting first telemetry", "device_id", ctrl.ID())
			continue
		}
		b.publishState(ctrl.Device(), raw, state)
	}

	b.logInfo("bridge started",
		"bridge_id", b.cfg.Bridge.ID,
		"session_id", b.sessionID,
		"devices", len(b.controllerList()))

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		b.health.Stop()
		b.logInfo("bridge stopped")
	})
}

// SessionID returns the session identifier sent with outbound messages.
func (b *Bridge) SessionID() string {
	return b.sessionID
}

// loadDevices seeds the catalogue from config and builds one controller per
// unit. Raw states only ever come from config; the catalogue holds identity.
func (b *Bridge) loadDevices(ctx context.Context) error {
	rawByID := make(map[string]RawState, len(b.cfg.Devices))
	devices := make([]Device, 0, len(b.cfg.Devices))
	for _, dc := range b.cfg.Devices {
		rawByID[dc.UniqueID] = RawState(dc.State)
		devices = append(devices, dc.Device())
	}

	if b.catalogue != nil {
		for _, dev := range devices {
			if err := b.catalogue.CreateDeviceIfNotExists(ctx, dev); err != nil {
				b.logError("failed to seed device", fmt.Errorf("%s: %w", dev.UniqueID, err))
			}
		}

		catalogued, err := b.catalogue.ListDevices(ctx)
		if err != nil {
			return err
		}
		devices = catalogued
	}

	b.controllersMu.Lock()
	defer b.controllersMu.Unlock()

	for _, dev := range devices {
		ctrl, err := NewController(dev, rawByID[dev.UniqueID])
		if err != nil {
			b.logError("discarding invalid initial state", err)
			ctrl, _ = NewController(dev, "") //nolint:errcheck // empty raw never fails
		}
		b.controllers[dev.UniqueID] = ctrl
	}

	b.health.SetDeviceCount(len(b.controllers))
	if len(b.controllers) > 0 {
		b.logInfo("loaded devices", "count", len(b.controllers))
	}
	return nil
}

func (b *Bridge) controller(deviceID string) (*Controller, bool) {
	b.controllersMu.RLock()
	defer b.controllersMu.RUnlock()
	ctrl, ok := b.controllers[deviceID]
	return ctrl, ok
}

func (b *Bridge) controllerList() []*Controller {
	b.controllersMu.RLock()
	list := make([]*Controller, 0, len(b.controllers))
	for _, ctrl := range b.controllers {
		list = append(list, ctrl)
	}
	b.controllersMu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID() < list[j].ID() })
	return list
}

// Devices returns the identity of every managed unit, ordered by unique ID.
func (b *Bridge) Devices() []Device {
	list := b.controllerList()
	devices := make([]Device, len(list))
	for i, ctrl := range list {
		devices[i] = ctrl.Device()
	}
	return devices
}

// Snapshot returns the current raw and logical state of a unit.
func (b *Bridge) Snapshot(deviceID string) (RawState, LogicalState, error) {
	ctrl, ok := b.controller(deviceID)
	if !ok {
		return "", LogicalState{}, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	raw, state := ctrl.Snapshot()
	return raw, state, nil
}

// HandleEvent applies an inbound vendor event to the unit it came from.
// Events for unmanaged units are ignored.
func (b *Bridge) HandleEvent(ev Event) {
	b.eventsReceived.Add(1)
	b.metrics.IncEvent(ev.Kind)

	ctrl, ok := b.controller(ev.SourceID)
	if !ok {
		b.logDebug("event for unmanaged device", "device_id", ev.SourceID, "command", ev.Command)
		return
	}
	dev := ctrl.Device()

	switch ev.Kind {
	case EventHeartbeat:
		b.logDebug("heartbeat received",
			"device_id", dev.UniqueID,
			"indoor", ev.IndoorTemperature,
			"outdoor", ev.OutdoorTemperature)
		state := ctrl.ApplyIndoorTemperature(ev.IndoorTemperature)
		if ev.HasOutdoor {
			b.recordOutdoor(dev, ev.OutdoorTemperature)
		}
		raw, _ := ctrl.Snapshot()
		b.publishState(dev, raw, state)

	case EventStateUpdate:
		b.logDebug("state update received", "device_id", dev.UniqueID, "raw_state", ev.RawState)
		state, err := ctrl.ApplyTelemetry(ev.RawState)
		if err != nil {
			b.errorsTotal.Add(1)
			b.metrics.IncTelemetryDropped()
			b.logWarn("dropping malformed telemetry", "device_id", dev.UniqueID, "error", err)
			return
		}
		b.publishState(dev, ev.RawState, state)

	case EventScheduleUpdate:
		b.logDebug("schedule update ignored", "device_id", dev.UniqueID)

	default:
		b.logWarn("unknown vendor command", "device_id", dev.UniqueID, "command", ev.Command)
	}
}

// SetCapability changes one writable field of a unit and delivers the new
// raw state.
//
// The controller state is updated before delivery and is not rolled back if
// delivery fails; the next telemetry from the unit reconciles it.
//
// Parameters:
//   - ctx: Context for the dispatch
//   - deviceID: Vendor unique ID of the unit
//   - field: Writable field
//   - value: Requested logical value
//
// Returns:
//   - LogicalState: State published once delivery returns
//   - error: ErrUnknownDevice, a controller error, or ErrDeliveryFailed
func (b *Bridge) SetCapability(ctx context.Context, deviceID string, field Field, value int) (LogicalState, error) {
	ctrl, ok := b.controller(deviceID)
	if !ok {
		return LogicalState{}, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}

	out, state, err := ctrl.ApplyIntent(field, value)
	if err != nil {
		return state, err
	}
	b.metrics.IncIntent(field)

	dctx, cancel := context.WithTimeout(ctx, b.cfg.GetCommandTimeout())
	defer cancel()

	dispatchErr := b.dispatcher.Dispatch(dctx, b.sessionID, out)

	// Telemetry may have landed while the dispatch was in flight.
	raw, state := ctrl.Snapshot()
	b.publishState(ctrl.Device(), raw, state)

	if dispatchErr != nil {
		b.errorsTotal.Add(1)
		b.metrics.IncDeliveryFailure()
		b.logError("delivery failed", fmt.Errorf("%s: %w", deviceID, dispatchErr))
		if !errors.Is(dispatchErr, ErrDeliveryFailed) {
			dispatchErr = fmt.Errorf("%w: %v", ErrDeliveryFailed, dispatchErr)
		}
		return state, dispatchErr
	}

	b.commandsSent.Add(1)
	b.logInfo("capability set",
		"device_id", deviceID,
		"field", string(field),
		"value", value,
		"raw_state", out.RawState)
	return state, nil
}

// handleMQTTMessage routes incoming MQTT messages to appropriate handlers.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		b.logError("invalid topic format", fmt.Errorf("topic: %s", topic))
		return
	}

	switch parts[1] {
	case "vendor":
		b.handleVendorMessage(payload)
	case "command":
		b.handleCommand(parts[len(parts)-1], payload)
	default:
		b.logError("unknown message type", fmt.Errorf("type: %s", parts[1]))
	}
}

func (b *Bridge) handleVendorMessage(payload []byte) {
	ev, err := ParseEvent(payload)
	if err != nil {
		b.errorsTotal.Add(1)
		b.logError("failed to parse vendor event", err)
		return
	}
	b.HandleEvent(ev)
}

// handleCommand processes a command message from Core.
func (b *Bridge) handleCommand(topicDeviceID string, payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}
	if cmd.DeviceID == "" {
		cmd.DeviceID = topicDeviceID
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"field", cmd.Field)

	field, err := ParseField(cmd.Field)
	if err != nil {
		b.publishAckError(cmd, ErrCodeInvalidCommand, err.Error())
		return
	}
	value, err := cmd.IntValue()
	if err != nil {
		b.publishAckError(cmd, ErrCodeInvalidParameters, err.Error())
		return
	}
	if _, ok := b.controller(cmd.DeviceID); !ok {
		b.publishAckError(cmd, ErrCodeNotConfigured,
			fmt.Sprintf("device %s not configured", cmd.DeviceID))
		return
	}

	_, err = b.SetCapability(b.ctx, cmd.DeviceID, field, value)
	switch {
	case err == nil:
		b.publishAck(cmd, AckAccepted)
	case errors.Is(err, ErrInvalidValue):
		b.publishAckError(cmd, ErrCodeInvalidParameters, err.Error())
	case errors.Is(err, ErrDeliveryFailed):
		b.publishAckError(cmd, ErrCodeDeviceUnreachable, err.Error())
	case errors.Is(err, ErrInvalidRawState):
		b.publishAckError(cmd, ErrCodeProtocolError, err.Error())
	default:
		b.publishAckError(cmd, ErrCodeInvalidCommand, err.Error())
	}
}

func (b *Bridge) publishAck(cmd CommandMessage, status AckStatus) {
	b.publishAckMessage(NewAckMessage(cmd, status))
}

func (b *Bridge) publishAckError(cmd CommandMessage, code, message string) {
	b.publishAckMessage(NewAckError(cmd, code, message))
}

func (b *Bridge) publishAckMessage(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}
	if err := b.mqtt.Publish(AckTopic(ack.DeviceID), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// publishState records a unit's state and publishes it to Core if it
// changed since the last publish.
func (b *Bridge) publishState(dev Device, raw RawState, state LogicalState) {
	b.metrics.ObserveState(dev, state)
	b.recordState(dev, state)

	if b.stateUnchanged(dev.UniqueID, state) {
		return
	}

	payload, err := json.Marshal(NewStateMessage(dev, raw, state))
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}
	if err := b.mqtt.Publish(StateTopic(dev.UniqueID), payload, 1, true); err != nil {
		b.logError("failed to publish state", err)
		b.forgetState(dev.UniqueID)
	}
}

// stateUnchanged reports whether state matches the cached state, and
// caches it if not.
func (b *Bridge) stateUnchanged(deviceID string, state LogicalState) bool {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()

	if prev, ok := b.stateCache[deviceID]; ok && prev == state {
		return true
	}
	b.stateCache[deviceID] = state
	return false
}

func (b *Bridge) forgetState(deviceID string) {
	b.stateCacheMu.Lock()
	delete(b.stateCache, deviceID)
	b.stateCacheMu.Unlock()
}

// ClearStateCache forces the next observation of every unit to publish.
func (b *Bridge) ClearStateCache() {
	b.stateCacheMu.Lock()
	b.stateCache = make(map[string]LogicalState)
	b.stateCacheMu.Unlock()
}

func (b *Bridge) recordState(dev Device, state LogicalState) {
	if b.telemetry == nil {
		return
	}

	fields := map[string]interface{}{
		string(FieldStatus):    state.Status,
		string(FieldMode):      state.Mode,
		string(FieldFanMode):   state.FanMode,
		string(FieldSwingMode): state.SwingMode,
	}
	if state.TargetTemperature != TemperatureUnspecified {
		fields[string(FieldTargetTemperature)] = float64(state.TargetTemperature)
	}
	if state.IndoorTemperature != TemperatureUnspecified {
		fields[string(FieldIndoorTemperature)] = float64(state.IndoorTemperature)
	}

	b.telemetry.WritePoint(climateMeasurement,
		map[string]string{"device_id": dev.UniqueID, "device_name": dev.Name},
		fields)
}

func (b *Bridge) recordOutdoor(dev Device, raw byte) {
	b.metrics.ObserveOutdoor(dev, raw)

	v := DecodeTemperature(raw)
	if b.telemetry == nil || v == TemperatureUnspecified {
		return
	}
	b.telemetry.WriteDeviceMetric(dev.UniqueID, "outdoor_temperature_c", float64(v))
}

// Statistics returns the bridge counters reported in health messages.
func (b *Bridge) Statistics() BridgeStatistics {
	return BridgeStatistics{
		EventsReceived: b.eventsReceived.Load(),
		CommandsSent:   b.commandsSent.Load(),
		Errors:         b.errorsTotal.Load(),
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
