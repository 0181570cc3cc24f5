package records

import (
	"time"

	"github.com/google/uuid"
)

// Base holds the identifier and bookkeeping timestamps shared by every stored record.
type Base struct {
	ID        string    `gorm:"column:id;primaryKey;size:64;not null" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// RecordID returns the stored identifier.
func (b *Base) RecordID() string {
	return b.ID
}

// AssignID sets the identifier before the first insert.
func (b *Base) AssignID(id string) {
	b.ID = id
}

// RecordBase exposes the embedded Base for bookkeeping updates.
func (b *Base) RecordBase() *Base {
	return b
}

// Record is satisfied by pointers to models embedding Base.
type Record interface {
	RecordBase() *Base
	RecordID() string
	AssignID(id string)
	TableName() string
}

// IDProvider issues identifiers for new records.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
