package inspections

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/metrics"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/notifications"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opServiceNew        = "inspections.service.new"
	opListNotifications = "inspections.list_watched_notifications"
)

var (
	errMissingDatabase     = errors.New("database handle is required")
	errMissingSynchronizer = errors.New("notification synchronizer is required")
	noOpLogger             = zap.NewNop()
)

// ServiceConfig describes the dependencies of the inspection service.
type ServiceConfig struct {
	Database     *gorm.DB
	IDProvider   records.IDProvider
	Synchronizer *notifications.Synchronizer
	Publisher    notifications.Publisher
	Logger       *zap.Logger
}

// Service persists inspections and keeps the derived notification collection in step with them.
// Each mutation and its notification writes commit in one transaction; events are published
// only after the commit.
type Service struct {
	db           *gorm.DB
	store        *records.Store[Inspection, *Inspection]
	synchronizer *notifications.Synchronizer
	publisher    notifications.Publisher
	logger       *zap.Logger
}

// NewService validates cfg and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, records.NewServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Synchronizer == nil {
		return nil, records.NewServiceError(opServiceNew, "missing_synchronizer", errMissingSynchronizer)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = records.NewUUIDProvider()
	}
	store, err := records.NewStore[Inspection](records.StoreConfig{
		Database:      cfg.Database,
		IDProvider:    idProvider,
		Logger:        logger,
		SearchColumns: SearchColumns,
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		db:           cfg.Database,
		store:        store,
		synchronizer: cfg.Synchronizer,
		publisher:    cfg.Publisher,
		logger:       logger,
	}, nil
}

// Create stores a new inspection and derives its notification.
func (s *Service) Create(ctx context.Context, inspection *Inspection) error {
	var events []notifications.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.store.WithTx(tx).Create(ctx, inspection); err != nil {
			return err
		}
		created, err := s.synchronizer.OnCreate(ctx, tx, inspection.subject())
		if err != nil {
			return err
		}
		events = created
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

// FindByID loads one inspection.
func (s *Service) FindByID(ctx context.Context, id string) (*Inspection, error) {
	return s.store.FindByID(ctx, id)
}

// List pages and searches inspections.
func (s *Service) List(ctx context.Context, query records.ListQuery) (records.Page[Inspection], error) {
	return s.store.List(ctx, query)
}

// UpdateByID rewrites an inspection. The stored record is read and locked before the
// notification reconciliation so the comparison sees pre-update state.
func (s *Service) UpdateByID(ctx context.Context, id string, fields *Inspection) (*Inspection, error) {
	var (
		updated *Inspection
		events  []notifications.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTx(tx)
		previous, err := store.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		current := *fields
		current.ID = previous.ID
		reconciled, err := s.synchronizer.OnUpdate(ctx, tx, previous.subject(), current.subject())
		if err != nil {
			return err
		}
		saved, err := store.UpdateByID(ctx, id, fields)
		if err != nil {
			return err
		}
		updated = saved
		events = reconciled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return updated, nil
}

// DeleteByID removes an inspection together with its derived notifications.
func (s *Service) DeleteByID(ctx context.Context, id string) (*Inspection, error) {
	var (
		removed *Inspection
		events  []notifications.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := s.store.WithTx(tx).DeleteByID(ctx, id)
		if err != nil {
			return err
		}
		reconciled, err := s.synchronizer.OnDelete(ctx, tx, deleted.subject())
		if err != nil {
			return err
		}
		removed = deleted
		events = reconciled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return removed, nil
}

func (s *Service) publish(ctx context.Context, events []notifications.Event) {
	if s.publisher == nil {
		return
	}
	for _, event := range events {
		if err := s.publisher.Publish(ctx, event); err != nil {
			metrics.NotificationPublishFailuresTotal.WithLabelValues(string(event.Kind)).Inc()
			s.logger.Warn("notification event publish failed",
				zap.String("kind", string(event.Kind)),
				zap.String("notification_id", event.Notification.ID),
				zap.Error(err))
		}
	}
}
