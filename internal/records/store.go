package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opCreate = "create"
	opFind   = "find_by_id"
	opUpdate = "update_by_id"
	opDelete = "delete_by_id"
	opQuery  = "find"
	opList   = "list"

	fieldRecordID = "record_id"
	queryByID     = "id = ?"
	orderCreated  = "created_at ASC, id ASC"

	// DefaultPageLimit applies when a list request pages without a limit.
	DefaultPageLimit = 20
	// MaxPageLimit caps the page size a caller may request.
	MaxPageLimit = 200
)

var noOpLogger = zap.NewNop()

// StoreConfig describes the dependencies of a Store.
type StoreConfig struct {
	Database      *gorm.DB
	IDProvider    IDProvider
	Logger        *zap.Logger
	SearchColumns []string
}

// Store persists one record family. P is the pointer type of T.
type Store[T any, P interface {
	*T
	Record
}] struct {
	db            *gorm.DB
	idProvider    IDProvider
	logger        *zap.Logger
	searchColumns []string
	family        string
}

// NewStore constructs a Store bound to the table of T.
func NewStore[T any, P interface {
	*T
	Record
}](cfg StoreConfig) (*Store[T, P], error) {
	var zero T
	family := P(&zero).TableName()
	if cfg.Database == nil {
		return nil, NewServiceError(family+".store.new", reasonMissingDatabase, errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, NewServiceError(family+".store.new", "missing_id_provider", errMissingIDProvider)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Store[T, P]{
		db:            cfg.Database,
		idProvider:    cfg.IDProvider,
		logger:        logger,
		searchColumns: append([]string(nil), cfg.SearchColumns...),
		family:        family,
	}, nil
}

// Family returns the table name backing the store.
func (s *Store[T, P]) Family() string {
	return s.family
}

// WithTx returns a copy of the store that runs every statement on tx.
func (s *Store[T, P]) WithTx(tx *gorm.DB) *Store[T, P] {
	clone := *s
	clone.db = tx
	return &clone
}

// DB exposes the handle the store runs on.
func (s *Store[T, P]) DB() *gorm.DB {
	return s.db
}

// Create validates and inserts record, assigning a fresh identifier.
func (s *Store[T, P]) Create(ctx context.Context, record *T) error {
	operation := s.op(opCreate)
	if s.db == nil {
		return NewServiceError(operation, reasonMissingDatabase, errMissingDatabase)
	}
	if err := Validate(record); err != nil {
		return NewServiceError(operation, reasonInvalidRecord, err)
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(operation, reasonIDFailed, err)
		return NewServiceError(operation, reasonIDFailed, err)
	}
	P(record).AssignID(id)
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		s.logError(operation, reasonInsertFailed, err, zap.String(fieldRecordID, id))
		return NewServiceError(operation, reasonInsertFailed, err)
	}
	return nil
}

// FindByID loads a record or returns an ErrNotFound service error.
func (s *Store[T, P]) FindByID(ctx context.Context, id string) (*T, error) {
	return s.take(ctx, s.op(opFind), id, false)
}

// FindForUpdate loads a record and, on databases that support it, locks the row for the
// rest of the enclosing transaction.
func (s *Store[T, P]) FindForUpdate(ctx context.Context, id string) (*T, error) {
	return s.take(ctx, s.op(opFind), id, true)
}

// UpdateByID replaces every mutable field of the stored record with fields.
// The identifier and creation time of the stored record are preserved.
func (s *Store[T, P]) UpdateByID(ctx context.Context, id string, fields *T) (*T, error) {
	operation := s.op(opUpdate)
	if err := Validate(fields); err != nil {
		return nil, NewServiceError(operation, reasonInvalidRecord, err)
	}
	existing, err := s.take(ctx, operation, id, true)
	if err != nil {
		return nil, err
	}
	target := P(fields).RecordBase()
	current := P(existing).RecordBase()
	target.ID = current.ID
	target.CreatedAt = current.CreatedAt
	if err := s.db.WithContext(ctx).Save(fields).Error; err != nil {
		s.logError(operation, reasonUpdateFailed, err, zap.String(fieldRecordID, id))
		return nil, NewServiceError(operation, reasonUpdateFailed, err)
	}
	return fields, nil
}

// DeleteByID removes the record and returns it as it was before removal.
func (s *Store[T, P]) DeleteByID(ctx context.Context, id string) (*T, error) {
	operation := s.op(opDelete)
	existing, err := s.take(ctx, operation, id, true)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(existing).Error; err != nil {
		s.logError(operation, reasonDeleteFailed, err, zap.String(fieldRecordID, id))
		return nil, NewServiceError(operation, reasonDeleteFailed, err)
	}
	return existing, nil
}

// Find returns every record whose columns equal the filter values, oldest first.
func (s *Store[T, P]) Find(ctx context.Context, filter map[string]any) ([]T, error) {
	operation := s.op(opQuery)
	if s.db == nil {
		return nil, NewServiceError(operation, reasonMissingDatabase, errMissingDatabase)
	}
	query := s.db.WithContext(ctx).Order(orderCreated)
	if len(filter) > 0 {
		query = query.Where(filter)
	}
	var found []T
	if err := query.Find(&found).Error; err != nil {
		s.logError(operation, reasonQueryFailed, err)
		return nil, NewServiceError(operation, reasonQueryFailed, err)
	}
	return found, nil
}

// ListQuery controls paging and free-text search for List.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// Page is one slice of a listed record family.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// List returns records matching the search term across the searchable columns.
// A zero Page returns every match unpaged.
func (s *Store[T, P]) List(ctx context.Context, request ListQuery) (Page[T], error) {
	operation := s.op(opList)
	if s.db == nil {
		return Page[T]{}, NewServiceError(operation, reasonMissingDatabase, errMissingDatabase)
	}

	search := s.searchScope(request.Search)
	var total int64
	if err := s.db.WithContext(ctx).Model(new(T)).Scopes(search).Count(&total).Error; err != nil {
		s.logError(operation, reasonQueryFailed, err)
		return Page[T]{}, NewServiceError(operation, reasonQueryFailed, err)
	}

	result := Page[T]{Total: total, Items: make([]T, 0)}
	query := s.db.WithContext(ctx).Scopes(search).Order(orderCreated)
	if request.Page > 0 {
		limit := request.Limit
		if limit <= 0 {
			limit = DefaultPageLimit
		}
		if limit > MaxPageLimit {
			limit = MaxPageLimit
		}
		result.Page = request.Page
		result.Limit = limit
		result.TotalPages = int((total + int64(limit) - 1) / int64(limit))
		query = query.Offset((request.Page - 1) * limit).Limit(limit)
	}
	if err := query.Find(&result.Items).Error; err != nil {
		s.logError(operation, reasonQueryFailed, err)
		return Page[T]{}, NewServiceError(operation, reasonQueryFailed, err)
	}
	return result, nil
}

func (s *Store[T, P]) searchScope(term string) func(*gorm.DB) *gorm.DB {
	trimmed := strings.TrimSpace(term)
	return func(query *gorm.DB) *gorm.DB {
		if trimmed == "" || len(s.searchColumns) == 0 {
			return query
		}
		pattern := "%" + strings.ToLower(trimmed) + "%"
		conditions := make([]string, 0, len(s.searchColumns))
		arguments := make([]any, 0, len(s.searchColumns))
		for _, column := range s.searchColumns {
			conditions = append(conditions, fmt.Sprintf("LOWER(%s) LIKE ?", column))
			arguments = append(arguments, pattern)
		}
		return query.Where(strings.Join(conditions, " OR "), arguments...)
	}
}

func (s *Store[T, P]) take(ctx context.Context, operation, id string, lock bool) (*T, error) {
	if s.db == nil {
		return nil, NewServiceError(operation, reasonMissingDatabase, errMissingDatabase)
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, NewServiceError(operation, reasonNotFound, ErrNotFound)
	}
	query := s.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var found T
	err := query.Where(queryByID, trimmed).Take(&found).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewServiceError(operation, reasonNotFound, ErrNotFound)
	}
	if err != nil {
		s.logError(operation, reasonSelectFailed, err, zap.String(fieldRecordID, trimmed))
		return nil, NewServiceError(operation, reasonSelectFailed, err)
	}
	return &found, nil
}

func (s *Store[T, P]) op(name string) string {
	return s.family + "." + name
}

func (s *Store[T, P]) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("record store error", attrs...)
}
