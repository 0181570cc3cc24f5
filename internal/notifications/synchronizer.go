package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/metrics"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opOnCreate = "notifications.on_create"
	opOnUpdate = "notifications.on_update"
	opOnDelete = "notifications.on_delete"
	opWatched  = "notifications.watched"

	reasonMissingTransaction = "missing_transaction"
	reasonIDFailed           = "id_generation_failed"
	reasonInsertFailed       = "insert_failed"
	reasonLookupFailed       = "lookup_failed"
	reasonDeleteFailed       = "delete_failed"
	reasonQueryFailed        = "query_failed"

	queryMessageAssignee = "message = ? AND assignee = ?"
	orderCreatedAsc      = "created_at ASC, id ASC"
)

var (
	errMissingTransaction = errors.New("transaction handle is required")
	errMissingIDProvider  = errors.New("id provider is required")
	noOpLogger            = zap.NewNop()
)

// SynchronizerConfig describes the dependencies of a Synchronizer.
type SynchronizerConfig struct {
	Rules      WatchRules
	IDProvider records.IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Synchronizer is the only writer of the notification collection. Every hook runs on the
// caller's transaction so notification rows commit or roll back with the inspection write.
type Synchronizer struct {
	rules      WatchRules
	idProvider records.IDProvider
	clock      func() time.Time
	logger     *zap.Logger
}

// NewSynchronizer validates cfg and constructs a Synchronizer.
func NewSynchronizer(cfg SynchronizerConfig) (*Synchronizer, error) {
	if len(cfg.Rules.assignees) == 0 {
		return nil, ErrNoWatchedAssignees
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Synchronizer{
		rules:      cfg.Rules,
		idProvider: cfg.IDProvider,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Rules returns the watch rules in force.
func (s *Synchronizer) Rules() WatchRules {
	return s.rules
}

// OnCreate inserts a notification when the new inspection is assigned to a watched party.
// Repeated titles are not deduplicated.
func (s *Synchronizer) OnCreate(ctx context.Context, tx *gorm.DB, created Subject) ([]Event, error) {
	if tx == nil {
		return nil, records.NewServiceError(opOnCreate, reasonMissingTransaction, errMissingTransaction)
	}
	if !s.rules.Watches(created.Assignee) {
		return nil, nil
	}
	event, err := s.insert(ctx, tx, opOnCreate, created)
	if err != nil {
		return nil, err
	}
	return []Event{event}, nil
}

// OnUpdate reconciles notifications for an inspection moving from previous to current.
// previous must be read before the inspection row is rewritten.
func (s *Synchronizer) OnUpdate(ctx context.Context, tx *gorm.DB, previous, current Subject) ([]Event, error) {
	if tx == nil {
		return nil, records.NewServiceError(opOnUpdate, reasonMissingTransaction, errMissingTransaction)
	}
	var events []Event

	wasWatched := s.rules.Watches(previous.Assignee)
	isWatched := s.rules.Watches(current.Assignee)

	if wasWatched && previous.Assignee != current.Assignee {
		removed, err := s.remove(ctx, tx, opOnUpdate, previous)
		if err != nil {
			return nil, err
		}
		events = append(events, removed...)
	}

	if isWatched {
		message := s.rules.Message(current.Title)
		var existing Notification
		err := tx.WithContext(ctx).
			Where(queryMessageAssignee, message, current.Assignee).
			Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			event, insertErr := s.insert(ctx, tx, opOnUpdate, current)
			if insertErr != nil {
				return nil, insertErr
			}
			events = append(events, event)
		case err != nil:
			s.logError(opOnUpdate, reasonLookupFailed, err, zap.String("inspection_id", current.ID))
			return nil, records.NewServiceError(opOnUpdate, reasonLookupFailed, err)
		}
	}

	return events, nil
}

// OnDelete removes every notification derived from a deleted inspection.
func (s *Synchronizer) OnDelete(ctx context.Context, tx *gorm.DB, removed Subject) ([]Event, error) {
	if tx == nil {
		return nil, records.NewServiceError(opOnDelete, reasonMissingTransaction, errMissingTransaction)
	}
	if !s.rules.Watches(removed.Assignee) {
		return nil, nil
	}
	return s.remove(ctx, tx, opOnDelete, removed)
}

// Watched lists notifications of watched assignees, oldest first. A non-empty assignee
// narrows the result to that party; an assignee outside the rules yields nothing.
func (s *Synchronizer) Watched(ctx context.Context, db *gorm.DB, assignee string) ([]Notification, error) {
	if db == nil {
		return nil, records.NewServiceError(opWatched, reasonMissingTransaction, errMissingTransaction)
	}
	assignees := s.rules.Assignees()
	if assignee != "" {
		if !s.rules.Watches(assignee) {
			return []Notification{}, nil
		}
		assignees = []string{assignee}
	}
	found := make([]Notification, 0)
	if err := db.WithContext(ctx).
		Where("assignee IN ?", assignees).
		Order(orderCreatedAsc).
		Find(&found).Error; err != nil {
		s.logError(opWatched, reasonQueryFailed, err)
		return nil, records.NewServiceError(opWatched, reasonQueryFailed, err)
	}
	return found, nil
}

func (s *Synchronizer) insert(ctx context.Context, tx *gorm.DB, operation string, subject Subject) (Event, error) {
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(operation, reasonIDFailed, err, zap.String("inspection_id", subject.ID))
		return Event{}, records.NewServiceError(operation, reasonIDFailed, err)
	}
	now := s.clock().UTC()
	notification := Notification{
		ID:           id,
		Message:      s.rules.Message(subject.Title),
		Assignee:     subject.Assignee,
		InspectionID: subject.ID,
		CreatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&notification).Error; err != nil {
		s.logError(operation, reasonInsertFailed, err, zap.String("inspection_id", subject.ID))
		return Event{}, records.NewServiceError(operation, reasonInsertFailed, err)
	}
	metrics.NotificationsSyncedTotal.WithLabelValues("insert").Inc()
	s.logger.Debug("notification created",
		zap.String("assignee", notification.Assignee),
		zap.String("inspection_id", subject.ID))
	return Event{Kind: EventCreated, Notification: notification, OccurredAt: now}, nil
}

// remove deletes every notification matching the subject's message and assignee.
func (s *Synchronizer) remove(ctx context.Context, tx *gorm.DB, operation string, subject Subject) ([]Event, error) {
	message := s.rules.Message(subject.Title)
	var matching []Notification
	if err := tx.WithContext(ctx).
		Where(queryMessageAssignee, message, subject.Assignee).
		Order(orderCreatedAsc).
		Find(&matching).Error; err != nil {
		s.logError(operation, reasonLookupFailed, err, zap.String("inspection_id", subject.ID))
		return nil, records.NewServiceError(operation, reasonLookupFailed, err)
	}
	if len(matching) == 0 {
		return nil, nil
	}
	if err := tx.WithContext(ctx).
		Where(queryMessageAssignee, message, subject.Assignee).
		Delete(&Notification{}).Error; err != nil {
		s.logError(operation, reasonDeleteFailed, err, zap.String("inspection_id", subject.ID))
		return nil, records.NewServiceError(operation, reasonDeleteFailed, err)
	}
	metrics.NotificationsSyncedTotal.WithLabelValues("delete").Add(float64(len(matching)))

	now := s.clock().UTC()
	events := make([]Event, 0, len(matching))
	for _, notification := range matching {
		events = append(events, Event{Kind: EventRemoved, Notification: notification, OccurredAt: now})
	}
	return events, nil
}

func (s *Synchronizer) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("notification synchronizer error", attrs...)
}
