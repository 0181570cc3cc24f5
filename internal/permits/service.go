package permits

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/metrics"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opServiceNew      = "permits.service.new"
	opExpiring        = "permits.expiring"
	opAttachDocument  = "permits.attach_document"
	opOpenDocument    = "permits.open_document"
	reasonQueryFailed = "query_failed"

	documentKeyPrefix = "permits"
	maxDocumentName   = 200
)

var (
	errMissingDatabase  = errors.New("database handle is required")
	errMissingDocuments = errors.New("document storage is required")
	// ErrNoDocument indicates that a permit has no stored document.
	ErrNoDocument = errors.New("permits: no document attached")
	// ErrInvalidDocumentName indicates that an uploaded file name is unusable.
	ErrInvalidDocumentName = errors.New("permits: invalid document name")
)

// ServiceConfig describes the dependencies of the permit service.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider records.IDProvider
	Documents  storage.Storage
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service persists permits, stores their documents and derives expiry notices at read time.
type Service struct {
	db        *gorm.DB
	store     *records.Store[Permit, *Permit]
	documents storage.Storage
	clock     func() time.Time
	logger    *zap.Logger
}

// NewService validates cfg and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, records.NewServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Documents == nil {
		return nil, records.NewServiceError(opServiceNew, "missing_documents", errMissingDocuments)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = records.NewUUIDProvider()
	}
	store, err := records.NewStore[Permit](records.StoreConfig{
		Database:      cfg.Database,
		IDProvider:    idProvider,
		Logger:        logger,
		SearchColumns: SearchColumns,
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		db:        cfg.Database,
		store:     store,
		documents: cfg.Documents,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Create stores a new permit. Document fields are managed through AttachDocument only.
func (s *Service) Create(ctx context.Context, permit *Permit) error {
	permit.DocumentRef = ""
	permit.DocumentName = ""
	return s.store.Create(ctx, permit)
}

// FindByID loads one permit.
func (s *Service) FindByID(ctx context.Context, id string) (*Permit, error) {
	return s.store.FindByID(ctx, id)
}

// List pages and searches permits.
func (s *Service) List(ctx context.Context, query records.ListQuery) (records.Page[Permit], error) {
	return s.store.List(ctx, query)
}

// UpdateByID rewrites a permit while keeping its stored document reference.
func (s *Service) UpdateByID(ctx context.Context, id string, fields *Permit) (*Permit, error) {
	var updated *Permit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTx(tx)
		existing, err := store.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		fields.DocumentRef = existing.DocumentRef
		fields.DocumentName = existing.DocumentName
		saved, err := store.UpdateByID(ctx, id, fields)
		if err != nil {
			return err
		}
		updated = saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteByID removes a permit and, best effort, its stored document.
func (s *Service) DeleteByID(ctx context.Context, id string) (*Permit, error) {
	removed, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if removed.DocumentRef != "" {
		if err := s.documents.Delete(ctx, removed.DocumentRef); err != nil {
			s.logger.Warn("permit document cleanup failed",
				zap.String("permit_id", removed.ID),
				zap.String("document_ref", removed.DocumentRef),
				zap.Error(err))
		}
	}
	return removed, nil
}

// ExpiringPermits returns every permit whose expiry date falls on or before now plus the
// expiry window, soonest first. Permits that expired long ago stay in the result.
func (s *Service) ExpiringPermits(ctx context.Context) ([]ExpiryNotice, error) {
	now := s.clock().UTC()
	cutoff := now.Add(ExpiryWindow)

	var candidates []Permit
	if err := s.db.WithContext(ctx).
		Where("expiry_date <= ?", cutoff).
		Order("expiry_date ASC, id ASC").
		Find(&candidates).Error; err != nil {
		s.logger.Error("permit expiry query failed",
			zap.String("operation", opExpiring),
			zap.String("reason", reasonQueryFailed),
			zap.Error(err))
		return nil, records.NewServiceError(opExpiring, reasonQueryFailed, err)
	}

	notices := make([]ExpiryNotice, 0, len(candidates))
	counts := map[Urgency]int{UrgencyExpired: 0, UrgencyExpiringSoon: 0}
	for _, permit := range candidates {
		if permit.ExpiryDate.After(cutoff) {
			continue
		}
		notice := NewExpiryNotice(permit, now)
		counts[notice.Urgency]++
		notices = append(notices, notice)
	}
	for urgency, count := range counts {
		metrics.PermitsExpiring.WithLabelValues(string(urgency)).Set(float64(count))
	}
	return notices, nil
}

// AttachDocument stores reader as the permit's document, replacing any previous one.
func (s *Service) AttachDocument(ctx context.Context, id, fileName string, reader io.Reader) (*Permit, error) {
	name, err := cleanDocumentName(fileName)
	if err != nil {
		return nil, records.NewServiceError(opAttachDocument, "invalid_document_name",
			&records.ValidationError{Fields: map[string]string{"document": err.Error()}})
	}
	permit, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := path.Join(documentKeyPrefix, permit.ID, name)
	if _, err := s.documents.Save(ctx, key, reader); err != nil {
		s.logger.Error("permit document save failed",
			zap.String("operation", opAttachDocument),
			zap.String("permit_id", permit.ID),
			zap.Error(err))
		return nil, records.NewServiceError(opAttachDocument, "save_failed", err)
	}

	previous := permit.DocumentRef
	if err := s.db.WithContext(ctx).Model(permit).Updates(map[string]any{
		"document_ref":  key,
		"document_name": name,
	}).Error; err != nil {
		s.logger.Error("permit document reference update failed",
			zap.String("operation", opAttachDocument),
			zap.String("permit_id", permit.ID),
			zap.Error(err))
		return nil, records.NewServiceError(opAttachDocument, "update_failed", err)
	}
	if previous != "" && previous != key {
		if err := s.documents.Delete(ctx, previous); err != nil {
			s.logger.Warn("replaced permit document cleanup failed",
				zap.String("permit_id", permit.ID),
				zap.String("document_ref", previous),
				zap.Error(err))
		}
	}
	permit.DocumentRef = key
	permit.DocumentName = name
	return permit, nil
}

// OpenDocument returns the permit's stored document. The caller closes the reader.
func (s *Service) OpenDocument(ctx context.Context, id string) (*Permit, io.ReadCloser, error) {
	permit, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if permit.DocumentRef == "" {
		return nil, nil, records.NewServiceError(opOpenDocument, "no_document", errors.Join(ErrNoDocument, records.ErrNotFound))
	}
	reader, err := s.documents.Open(ctx, permit.DocumentRef)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, records.NewServiceError(opOpenDocument, "document_missing", errors.Join(err, records.ErrNotFound))
	}
	if err != nil {
		return nil, nil, records.NewServiceError(opOpenDocument, "open_failed", err)
	}
	return permit, reader, nil
}

func cleanDocumentName(fileName string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if base == "." || base == "/" || base == "" || base == ".." {
		return "", ErrInvalidDocumentName
	}
	if len(base) > maxDocumentName {
		return "", ErrInvalidDocumentName
	}
	return base, nil
}
