package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/inspections"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/notifications"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillNotificationInspectionIDs = "2026-03-01_backfill_notification_inspection_ids"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillNotificationInspectionIDs, apply: backfillNotificationInspectionIDs},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

type titleKey struct {
	assignee string
	title    string
}

// backfillNotificationInspectionIDs links notifications written before the inspection
// reference existed to the oldest inspection with the same assignee and title.
func backfillNotificationInspectionIDs(db *gorm.DB) error {
	var unlinked []notifications.Notification
	if err := db.Where("inspection_id = ''").Find(&unlinked).Error; err != nil {
		return err
	}
	if len(unlinked) == 0 {
		return nil
	}

	var candidates []inspections.Inspection
	if err := db.Order("created_at ASC, id ASC").Find(&candidates).Error; err != nil {
		return err
	}
	oldest := make(map[titleKey]string, len(candidates))
	for _, inspection := range candidates {
		key := titleKey{assignee: inspection.Assignee, title: inspection.Title}
		if _, ok := oldest[key]; !ok {
			oldest[key] = inspection.ID
		}
	}

	for _, notification := range unlinked {
		key := titleKey{assignee: notification.Assignee, title: notifications.SubjectTitle(notification.Message)}
		inspectionID, ok := oldest[key]
		if !ok {
			continue
		}
		if err := db.Model(&notifications.Notification{}).
			Where("id = ?", notification.ID).
			Update("inspection_id", inspectionID).Error; err != nil {
			return err
		}
	}
	return nil
}
