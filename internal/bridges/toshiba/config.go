package toshiba

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the Toshiba bridge configuration.
// Loaded from YAML file with environment variable overrides.
type Config struct {
	// Bridge contains bridge identity and behaviour settings.
	Bridge BridgeConfig `yaml:"bridge"`

	// Devices lists the units discovered from the vendor account.
	Devices []DeviceConfig `yaml:"devices"`
}

// BridgeConfig contains bridge identity settings.
type BridgeConfig struct {
	// ID is the unique identifier for this bridge instance.
	// Used in MQTT topics and health reporting.
	ID string `yaml:"id"`

	// HealthInterval is how often to publish health status (seconds).
	// Default: 30
	HealthInterval int `yaml:"health_interval"`

	// SessionID is sent as sourceId on every outbound message. A fresh
	// "graylogic-<uuid>" is generated at startup when empty.
	SessionID string `yaml:"session_id"`

	// CommandTimeout bounds a single dispatch (seconds).
	// Default: 5
	CommandTimeout int `yaml:"command_timeout"`
}

// DeviceConfig describes one unit as reported by the vendor account.
type DeviceConfig struct {
	// UniqueID is the vendor DeviceUniqueId. Required and unique.
	UniqueID string `yaml:"unique_id"`

	// ID is the vendor AC identifier.
	ID string `yaml:"id"`

	// Name is the display name. Defaults to UniqueID.
	Name string `yaml:"name"`

	GroupID         string `yaml:"group_id"`
	GroupName       string `yaml:"group_name"`
	ModelID         string `yaml:"model_id"`
	MeritFeature    string `yaml:"merit_feature"`
	AdapterType     string `yaml:"adapter_type"`
	FirmwareVersion string `yaml:"firmware_version"`

	// State is the last raw state reported at discovery. Optional.
	State string `yaml:"state"`

	// Cdu and Fcu are read-only hardware descriptors.
	Cdu map[string]string `yaml:"cdu"`
	Fcu map[string]string `yaml:"fcu"`
}

// Device converts the entry to a unit identity.
func (d DeviceConfig) Device() Device {
	name := d.Name
	if name == "" {
		name = d.UniqueID
	}
	return Device{
		ID:              d.ID,
		UniqueID:        d.UniqueID,
		Name:            name,
		GroupID:         d.GroupID,
		GroupName:       d.GroupName,
		ModelID:         d.ModelID,
		MeritFeature:    d.MeritFeature,
		AdapterType:     d.AdapterType,
		FirmwareVersion: d.FirmwareVersion,
		Cdu:             d.Cdu,
		Fcu:             d.Fcu,
	}
}

// LoadConfig reads and parses the bridge configuration file.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Parsed and validated configuration
//   - error: If file cannot be read, parsed, or fails validation
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:             "toshiba-bridge-01",
			HealthInterval: 30,
			CommandTimeout: 5,
		},
		Devices: []DeviceConfig{},
	}
}

// applyEnvOverrides applies environment variable overrides.
// Format: TOSHIBA_BRIDGE_{SETTING}
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TOSHIBA_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}
	if v := os.Getenv("TOSHIBA_BRIDGE_SESSION_ID"); v != "" {
		cfg.Bridge.SessionID = v
	}
}

// Validate checks the configuration for errors.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	errs = append(errs, c.validateBridge()...)
	errs = append(errs, c.validateDevices()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) validateBridge() []string {
	var errs []string
	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	if c.Bridge.HealthInterval < 1 {
		errs = append(errs, "bridge.health_interval must be at least 1 second")
	}
	if c.Bridge.CommandTimeout < 1 {
		errs = append(errs, "bridge.command_timeout must be at least 1 second")
	}
	return errs
}

func (c *Config) validateDevices() []string {
	var errs []string
	seen := make(map[string]bool)

	for i, dev := range c.Devices {
		if dev.UniqueID == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].unique_id is required", i))
			continue
		}
		if strings.ContainsAny(dev.UniqueID, "/#+") {
			errs = append(errs, fmt.Sprintf("devices[%d].unique_id %q must not contain MQTT wildcards or '/'", i, dev.UniqueID))
		}
		if seen[dev.UniqueID] {
			errs = append(errs, fmt.Sprintf("devices[%d].unique_id %q is duplicate", i, dev.UniqueID))
		}
		seen[dev.UniqueID] = true

		if dev.State != "" {
			if err := Validate(RawState(dev.State)); err != nil {
				errs = append(errs, fmt.Sprintf("devices[%d].state: %v", i, err))
			}
		}
	}

	return errs
}

// GetHealthInterval returns the health interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}

// GetCommandTimeout returns the dispatch timeout as a Duration.
func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Bridge.CommandTimeout) * time.Second
}
