package device

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gray-logic-toshiba/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-toshiba/migrations"
)

// setupTestRepo opens a migrated SQLite database in a temp dir.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "catalogue.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func strPtr(s string) *string { return &s }

// testDevice creates a unit for testing.
func testDevice(uniqueID, name string) *Device {
	return &Device{
		UniqueID:        uniqueID,
		ID:              "dev-" + uniqueID,
		Name:            name,
		GroupID:         strPtr("grp-1"),
		GroupName:       strPtr("Ground floor"),
		ModelID:         strPtr("RAS-10"),
		FirmwareVersion: strPtr("2.1.0"),
		Cdu:             Descriptor{"model_name": "RAS-10J2AVSG"},
		Fcu:             Descriptor{"model_name": "RAS-B10J2KVSG"},
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	d := testDevice("unit-1", "Living room")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}

	got, err := repo.GetByUniqueID(ctx, "unit-1")
	if err != nil {
		t.Fatalf("GetByUniqueID() error = %v", err)
	}
	if got.ID != "dev-unit-1" || got.Name != "Living room" {
		t.Errorf("got %+v", got)
	}
	if got.GroupName == nil || *got.GroupName != "Ground floor" {
		t.Errorf("GroupName = %v", got.GroupName)
	}
	if got.MeritFeature != nil || got.AdapterType != nil {
		t.Errorf("unset optional fields should be nil, got %v %v", got.MeritFeature, got.AdapterType)
	}
	if got.Cdu["model_name"] != "RAS-10J2AVSG" || got.Fcu["model_name"] != "RAS-B10J2KVSG" {
		t.Errorf("descriptors = %v %v", got.Cdu, got.Fcu)
	}

	if err := repo.Create(ctx, testDevice("unit-1", "Duplicate")); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("duplicate Create() error = %v, want ErrDeviceExists", err)
	}
}

func TestSQLiteRepository_GetByUniqueID_NotFound(t *testing.T) {
	repo := setupTestRepo(t)
	if _, err := repo.GetByUniqueID(context.Background(), "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_NilDescriptors(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &Device{UniqueID: "bare", Name: "Bare"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := repo.GetByUniqueID(ctx, "bare")
	if err != nil {
		t.Fatalf("GetByUniqueID() error = %v", err)
	}
	if len(got.Cdu) != 0 || len(got.Fcu) != 0 || got.GroupID != nil {
		t.Errorf("got %+v", got)
	}
}

func TestSQLiteRepository_ListAndGroup(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, d := range []*Device{
		testDevice("u-b", "Bedroom"),
		testDevice("u-a", "Attic"),
		{UniqueID: "u-c", Name: "Cellar", GroupID: strPtr("grp-2")},
	} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create(%s) error = %v", d.UniqueID, err)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].Name != "Attic" || all[2].Name != "Cellar" {
		t.Errorf("List() = %+v", all)
	}

	grp, err := repo.ListByGroup(ctx, "grp-1")
	if err != nil {
		t.Fatalf("ListByGroup() error = %v", err)
	}
	if len(grp) != 2 {
		t.Errorf("ListByGroup() = %d devices, want 2", len(grp))
	}
}

func TestSQLiteRepository_Update(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	d := testDevice("unit-1", "Living room")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d.Name = "Lounge"
	d.FirmwareVersion = strPtr("2.2.0")
	d.Fcu = nil
	if err := repo.Update(ctx, d); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByUniqueID(ctx, "unit-1")
	if err != nil {
		t.Fatalf("GetByUniqueID() error = %v", err)
	}
	if got.Name != "Lounge" || *got.FirmwareVersion != "2.2.0" || len(got.Fcu) != 0 {
		t.Errorf("after update got %+v", got)
	}

	if err := repo.Update(ctx, testDevice("ghost", "Ghost")); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("unit-1", "Living room")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(ctx, "unit-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "unit-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Delete() error = %v, want ErrDeviceNotFound", err)
	}
}
