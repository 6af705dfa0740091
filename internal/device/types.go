package device

import (
	"maps"
	"time"
)

// Descriptor holds the vendor's CDU or FCU description of a unit. Keys and
// values are opaque strings passed through unchanged.
type Descriptor map[string]string

// Device is a catalogued Toshiba AC unit. This matches the ac_devices table
// in migrations/20260301_120000_ac_devices.up.sql.
type Device struct {
	// UniqueID is the primary key and the {id} segment of every MQTT topic.
	UniqueID string `json:"unique_id"`

	// ID is the vendor's device identifier.
	ID   string `json:"id"`
	Name string `json:"name"`

	GroupID   *string `json:"group_id,omitempty"`
	GroupName *string `json:"group_name,omitempty"`

	ModelID         *string `json:"model_id,omitempty"`
	MeritFeature    *string `json:"merit_feature,omitempty"`
	AdapterType     *string `json:"adapter_type,omitempty"`
	FirmwareVersion *string `json:"firmware_version,omitempty"`

	Cdu Descriptor `json:"cdu,omitempty"`
	Fcu Descriptor `json:"fcu,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns a copy sharing no maps with d.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.Cdu = maps.Clone(d.Cdu)
	cpy.Fcu = maps.Clone(d.Fcu)

	// *string fields point at immutable strings.
	return &cpy
}

// Stats summarises the registry cache.
type Stats struct {
	TotalDevices int            `json:"total_devices"`
	ByGroup      map[string]int `json:"by_group"`
}
