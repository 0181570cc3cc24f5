package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/inspections"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/notifications"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsBackfillsInspectionIDs(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(Models()...); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	base := time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC)
	older := inspections.Inspection{
		Base:        records.Base{ID: "inspection-1", CreatedAt: base, UpdatedAt: base},
		SiteCode:    "SITE-1",
		ProjectName: "Harbor Lofts",
		Title:       "Roof Check",
		Assignee:    "Morgan",
	}
	newer := older
	newer.Base = records.Base{ID: "inspection-2", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)}
	for _, inspection := range []*inspections.Inspection{&older, &newer} {
		if err := database.Create(inspection).Error; err != nil {
			testContext.Fatalf("failed to insert inspection: %v", err)
		}
	}

	seeded := []notifications.Notification{
		{ID: "n-1", Message: "New inspection created: Roof Check", Assignee: "Morgan", CreatedAt: base},
		{ID: "n-2", Message: "New inspection created: Demolished Shed", Assignee: "Morgan", CreatedAt: base},
		{ID: "n-3", Message: "New inspection created: Roof Check", Assignee: "Jordan", CreatedAt: base},
	}
	if err := database.Create(&seeded).Error; err != nil {
		testContext.Fatalf("failed to insert notifications: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	expected := map[string]string{"n-1": "inspection-1", "n-2": "", "n-3": ""}
	for id, inspectionID := range expected {
		var stored notifications.Notification
		if err := database.Where("id = ?", id).Take(&stored).Error; err != nil {
			testContext.Fatalf("failed to reload notification %s: %v", id, err)
		}
		if stored.InspectionID != inspectionID {
			testContext.Fatalf("notification %s: expected inspection id %q, got %q", id, inspectionID, stored.InspectionID)
		}
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationBackfillNotificationInspectionIDs).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("re-applying migrations failed: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(testContext *testing.T) {
	if _, err := Open(Config{Driver: "mysql"}, zap.NewNop()); err == nil {
		testContext.Fatalf("expected unsupported driver error")
	}
	if _, err := Open(Config{Driver: DriverSQLite}, zap.NewNop()); err == nil {
		testContext.Fatalf("expected missing path error")
	}
}

func TestOpenSQLiteMigratesSchema(testContext *testing.T) {
	database, err := Open(Config{Driver: DriverSQLite, Path: filepath.Join(testContext.TempDir(), "open.db")}, zap.NewNop())
	if err != nil {
		testContext.Fatalf("open failed: %v", err)
	}
	defer func() { _ = Close(database) }()

	for _, table := range []string{"inspections", "notifications", "permits", "vendors", "db_migrations"} {
		if !database.Migrator().HasTable(table) {
			testContext.Fatalf("expected table %s to exist", table)
		}
	}
}
