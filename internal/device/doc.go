// Package device provides the catalogue of Toshiba AC units known to the
// bridge.
//
// The catalogue stores identity only: unique ID, vendor device ID, name,
// group, model and firmware metadata, plus the opaque CDU and FCU
// descriptors reported by the vendor cloud. Raw state is never persisted;
// it arrives from config at startup and from telemetry afterwards.
//
// # Architecture
//
//	┌──────────────────┐    ┌──────────────────┐    ┌──────────────────┐
//	│     Registry     │───▶│    Repository    │───▶│  SQLite (ac_     │
//	│  (cache, copies) │    │  (SQL, JSON cols)│    │  devices table)  │
//	└──────────────────┘    └──────────────────┘    └──────────────────┘
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	err := registry.CreateDeviceIfNotExists(ctx, &device.Device{
//	    UniqueID: "4a2b...",
//	    Name:     "Living room",
//	})
//
// # Thread Safety
//
// Registry is safe for concurrent use. Every device it returns is a deep
// copy, so callers may modify results freely.
package device
