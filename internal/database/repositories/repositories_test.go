package repositories

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sbsp/playback-engine/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB holds the test database.
type testDB struct {
	DB *gorm.DB
}

// setupTestDB creates an in-memory SQLite database for testing repositories.
func setupTestDB(t *testing.T) (*testDB, func()) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Setting{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	cleanup := func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return &testDB{DB: db}, cleanup
}

func TestSettingRepository_CRUD(t *testing.T) {
	tdb, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingRepository(tdb.DB)
	ctx := context.Background()

	key := "last-show-path-" + uuid.NewString()

	t.Run("FindByKey returns nil for missing key", func(t *testing.T) {
		setting, err := repo.FindByKey(ctx, key)
		if err != nil {
			t.Fatalf("FindByKey() error = %v", err)
		}
		if setting != nil {
			t.Errorf("expected nil setting for missing key, got %+v", setting)
		}
	})

	t.Run("Upsert creates a new setting", func(t *testing.T) {
		setting, err := repo.Upsert(ctx, key, "/shows/demo.json")
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if setting.Key != key {
			t.Errorf("expected key %q, got %q", key, setting.Key)
		}
		if setting.Value != "/shows/demo.json" {
			t.Errorf("expected value '/shows/demo.json', got %q", setting.Value)
		}
		if setting.ID == "" {
			t.Error("expected a generated ID, got empty string")
		}
	})

	t.Run("FindByKey returns the created setting", func(t *testing.T) {
		setting, err := repo.FindByKey(ctx, key)
		if err != nil {
			t.Fatalf("FindByKey() error = %v", err)
		}
		if setting == nil {
			t.Fatal("expected setting, got nil")
		}
		if setting.Value != "/shows/demo.json" {
			t.Errorf("expected value '/shows/demo.json', got %q", setting.Value)
		}
	})

	t.Run("Upsert updates an existing setting", func(t *testing.T) {
		setting, err := repo.Upsert(ctx, key, "/shows/updated.json")
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if setting.Value != "/shows/updated.json" {
			t.Errorf("expected updated value, got %q", setting.Value)
		}

		again, err := repo.FindByKey(ctx, key)
		if err != nil {
			t.Fatalf("FindByKey() error = %v", err)
		}
		if again.ID != setting.ID {
			t.Errorf("expected update to keep same ID, got %q want %q", again.ID, setting.ID)
		}
	})

	t.Run("FindAll includes the setting", func(t *testing.T) {
		all, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		found := false
		for _, s := range all {
			if s.Key == key {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected FindAll() to include key %q", key)
		}
	})

	t.Run("Delete removes the setting", func(t *testing.T) {
		if err := repo.Delete(ctx, key); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		setting, err := repo.FindByKey(ctx, key)
		if err != nil {
			t.Fatalf("FindByKey() error = %v", err)
		}
		if setting != nil {
			t.Errorf("expected setting to be deleted, got %+v", setting)
		}
	})
}

func TestNewSettingRepository(t *testing.T) {
	tdb, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingRepository(tdb.DB)
	if repo == nil {
		t.Fatal("NewSettingRepository() returned nil")
	}
	if repo.db != tdb.DB {
		t.Error("expected repository to hold the given db handle")
	}
}
