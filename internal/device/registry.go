package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry caches the catalogue in memory on top of a Repository.
//
// RefreshCache loads the cache; after that, reads never touch the
// repository and writes go through to it before the cache is updated.
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // by unique ID
	loaded  bool
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a registry over repo. Call RefreshCache before use.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads every unit from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	cache := make(map[string]*Device, len(devices))
	for i := range devices {
		cache[devices[i].UniqueID] = devices[i].DeepCopy()
	}

	r.cacheMu.Lock()
	r.cache = cache
	r.loaded = true
	r.cacheMu.Unlock()

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice returns a copy of one unit, or ErrDeviceNotFound.
func (r *Registry) GetDevice(ctx context.Context, uniqueID string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[uniqueID]
	loaded := r.loaded
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	if loaded {
		return nil, ErrDeviceNotFound
	}
	return r.repo.GetByUniqueID(ctx, uniqueID)
}

// ListDevices returns copies of every unit ordered by unique ID.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	if !r.loaded {
		r.cacheMu.RUnlock()
		return r.repo.List(ctx)
	}
	devices := make([]Device, 0, len(r.cache))
	for _, d := range r.cache {
		devices = append(devices, *d.DeepCopy())
	}
	r.cacheMu.RUnlock()

	sort.Slice(devices, func(i, j int) bool { return devices[i].UniqueID < devices[j].UniqueID })
	return devices, nil
}

// ListDevicesByGroup returns copies of the units in one vendor group.
func (r *Registry) ListDevicesByGroup(ctx context.Context, groupID string) ([]Device, error) {
	all, err := r.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, d := range all {
		if d.GroupID != nil && *d.GroupID == groupID {
			devices = append(devices, d)
		}
	}
	return devices, nil
}

// CreateDevice validates and persists a new unit.
func (r *Registry) CreateDevice(ctx context.Context, device *Device) error {
	if err := ValidateDevice(device); err != nil {
		return err
	}
	if err := r.repo.Create(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[device.UniqueID] = device.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device created", "unique_id", device.UniqueID, "name", device.Name)
	return nil
}

// CreateDeviceIfNotExists creates the unit unless its unique ID is already
// catalogued. An existing entry is left untouched, so edits made after the
// first seed survive restarts.
func (r *Registry) CreateDeviceIfNotExists(ctx context.Context, device *Device) error {
	if _, err := r.GetDevice(ctx, device.UniqueID); err == nil {
		return nil
	} else if !errors.Is(err, ErrDeviceNotFound) {
		return err
	}

	err := r.CreateDevice(ctx, device)
	if errors.Is(err, ErrDeviceExists) {
		return nil
	}
	return err
}

// UpdateDevice validates and persists changes to an existing unit.
func (r *Registry) UpdateDevice(ctx context.Context, device *Device) error {
	if err := ValidateDevice(device); err != nil {
		return err
	}
	existing, err := r.GetDevice(ctx, device.UniqueID)
	if err != nil {
		return err
	}
	device.CreatedAt = existing.CreatedAt

	if err := r.repo.Update(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[device.UniqueID] = device.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device updated", "unique_id", device.UniqueID, "name", device.Name)
	return nil
}

// DeleteDevice removes a unit.
func (r *Registry) DeleteDevice(ctx context.Context, uniqueID string) error {
	if err := r.repo.Delete(ctx, uniqueID); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, uniqueID)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "unique_id", uniqueID)
	return nil
}

// GetDeviceCount returns the number of cached units.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// GetStats returns cache statistics. Units without a group count under "".
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.cache),
		ByGroup:      make(map[string]int),
	}
	for _, d := range r.cache {
		group := ""
		if d.GroupID != nil {
			group = *d.GroupID
		}
		stats.ByGroup[group]++
	}
	return stats
}
