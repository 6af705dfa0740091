package device

import (
	"fmt"
	"strings"
)

const (
	maxNameLength       = 100
	maxUniqueIDLength   = 128
	maxDescriptorKeys   = 50
	maxDescriptorValLen = 1024
)

// ValidateDevice returns the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: device is nil", ErrInvalidDevice)
	}
	if err := ValidateUniqueID(d.UniqueID); err != nil {
		return err
	}
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if err := validateDescriptor(d.Cdu, "cdu"); err != nil {
		return err
	}
	return validateDescriptor(d.Fcu, "fcu")
}

// ValidateUniqueID checks that id can be used as an MQTT topic segment.
func ValidateUniqueID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: unique_id cannot be empty", ErrInvalidDevice)
	}
	if len(id) > maxUniqueIDLength {
		return fmt.Errorf("%w: unique_id exceeds %d characters", ErrInvalidDevice, maxUniqueIDLength)
	}
	if strings.ContainsAny(id, "/#+") {
		return fmt.Errorf("%w: unique_id %q contains MQTT topic characters", ErrInvalidDevice, id)
	}
	return nil
}

// ValidateName checks if a device name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

func validateDescriptor(m Descriptor, field string) error {
	if len(m) > maxDescriptorKeys {
		return fmt.Errorf("%w: %s has more than %d keys", ErrInvalidDevice, field, maxDescriptorKeys)
	}
	for k, v := range m {
		if len(v) > maxDescriptorValLen {
			return fmt.Errorf("%w: %s.%s exceeds %d characters", ErrInvalidDevice, field, k, maxDescriptorValLen)
		}
	}
	return nil
}
