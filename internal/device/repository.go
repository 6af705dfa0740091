package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository persists catalogued units.
type Repository interface {
	// GetByUniqueID returns ErrDeviceNotFound if the unit does not exist.
	GetByUniqueID(ctx context.Context, uniqueID string) (*Device, error)

	// List returns every unit ordered by name.
	List(ctx context.Context) ([]Device, error)

	// ListByGroup returns the units in one vendor group.
	ListByGroup(ctx context.Context, groupID string) ([]Device, error)

	// Create returns ErrDeviceExists if the unique ID is taken.
	Create(ctx context.Context, device *Device) error

	// Update returns ErrDeviceNotFound if the unit does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete returns ErrDeviceNotFound if the unit does not exist.
	Delete(ctx context.Context, uniqueID string) error
}

// SQLiteRepository implements Repository on the ac_devices table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectDevices = `
	SELECT unique_id, device_id, name, group_id, group_name, model_id,
		merit_feature, adapter_type, firmware_version, cdu, fcu,
		created_at, updated_at
	FROM ac_devices`

// GetByUniqueID retrieves one unit.
func (r *SQLiteRepository) GetByUniqueID(ctx context.Context, uniqueID string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectDevices+" WHERE unique_id = ?", uniqueID)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by unique_id: %w", err)
	}
	return device, nil
}

// List retrieves all units.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	return r.queryDevices(ctx, selectDevices+" ORDER BY name, unique_id")
}

// ListByGroup retrieves the units in a group.
func (r *SQLiteRepository) ListByGroup(ctx context.Context, groupID string) ([]Device, error) {
	return r.queryDevices(ctx, selectDevices+" WHERE group_id = ? ORDER BY name, unique_id", groupID)
}

// Create inserts a unit and sets its timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	cdu, fcu, err := marshalDescriptors(device)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	device.CreatedAt = now
	device.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ac_devices (
			unique_id, device_id, name, group_id, group_name, model_id,
			merit_feature, adapter_type, firmware_version, cdu, fcu,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.UniqueID,
		device.ID,
		device.Name,
		nullableString(device.GroupID),
		nullableString(device.GroupName),
		nullableString(device.ModelID),
		nullableString(device.MeritFeature),
		nullableString(device.AdapterType),
		nullableString(device.FirmwareVersion),
		cdu,
		fcu,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update rewrites every column except unique_id and created_at.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	cdu, fcu, err := marshalDescriptors(device)
	if err != nil {
		return err
	}

	device.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE ac_devices SET
			device_id = ?, name = ?, group_id = ?, group_name = ?, model_id = ?,
			merit_feature = ?, adapter_type = ?, firmware_version = ?,
			cdu = ?, fcu = ?, updated_at = ?
		WHERE unique_id = ?`,
		device.ID,
		device.Name,
		nullableString(device.GroupID),
		nullableString(device.GroupName),
		nullableString(device.ModelID),
		nullableString(device.MeritFeature),
		nullableString(device.AdapterType),
		nullableString(device.FirmwareVersion),
		cdu,
		fcu,
		device.UpdatedAt.Format(time.RFC3339),
		device.UniqueID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}
	return expectOneRow(result)
}

// Delete removes a unit.
func (r *SQLiteRepository) Delete(ctx context.Context, uniqueID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM ac_devices WHERE unique_id = ?", uniqueID)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return expectOneRow(result)
}

func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var groupID, groupName, modelID, meritFeature, adapterType, firmware sql.NullString
	var cduJSON, fcuJSON, createdAt, updatedAt string

	err := scanner.Scan(
		&d.UniqueID,
		&d.ID,
		&d.Name,
		&groupID,
		&groupName,
		&modelID,
		&meritFeature,
		&adapterType,
		&firmware,
		&cduJSON,
		&fcuJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.GroupID = stringPtr(groupID)
	d.GroupName = stringPtr(groupName)
	d.ModelID = stringPtr(modelID)
	d.MeritFeature = stringPtr(meritFeature)
	d.AdapterType = stringPtr(adapterType)
	d.FirmwareVersion = stringPtr(firmware)

	if err := json.Unmarshal([]byte(cduJSON), &d.Cdu); err != nil {
		return nil, fmt.Errorf("unmarshalling cdu: %w", err)
	}
	if err := json.Unmarshal([]byte(fcuJSON), &d.Fcu); err != nil {
		return nil, fmt.Errorf("unmarshalling fcu: %w", err)
	}

	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &d, nil
}

func marshalDescriptors(device *Device) (cdu, fcu string, err error) {
	cduJSON, err := json.Marshal(nonNil(device.Cdu))
	if err != nil {
		return "", "", fmt.Errorf("marshalling cdu: %w", err)
	}
	fcuJSON, err := json.Marshal(nonNil(device.Fcu))
	if err != nil {
		return "", "", fmt.Errorf("marshalling fcu: %w", err)
	}
	return string(cduJSON), string(fcuJSON), nil
}

func nonNil(d Descriptor) Descriptor {
	if d == nil {
		return Descriptor{}
	}
	return d
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// nullableString maps nil and "" to SQL NULL.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
