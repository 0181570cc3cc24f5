package permits

import (
	"time"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
	"gorm.io/gorm"
)

// Permit is a building permit issued by a jurisdiction for a project.
type Permit struct {
	records.Base
	PermitNumber     string    `gorm:"column:permit_number;size:64;not null;index" json:"permit_number" validate:"required,max=64"`
	IssueDate        time.Time `gorm:"column:issue_date" json:"issue_date"`
	ExpiryDate       time.Time `gorm:"column:expiry_date;not null;index" json:"expiry_date" validate:"required"`
	ProjectName      string    `gorm:"column:project_name;size:190" json:"project_name" validate:"max=190"`
	JurisdictionCode string    `gorm:"column:jurisdiction_code;size:32" json:"jurisdiction_code" validate:"max=32"`
	ApprovalStatus   string    `gorm:"column:approval_status;size:32" json:"approval_status" validate:"omitempty,oneof=pending approved rejected"`
	DocumentRef      string    `gorm:"column:document_ref;size:255" json:"document_ref"`
	DocumentName     string    `gorm:"column:document_name;size:255" json:"document_name"`
}

// TableName provides the explicit table binding for GORM.
func (Permit) TableName() string {
	return "permits"
}

// BeforeSave stores dates in UTC so range queries compare like with like.
func (p *Permit) BeforeSave(*gorm.DB) error {
	p.IssueDate = p.IssueDate.UTC()
	p.ExpiryDate = p.ExpiryDate.UTC()
	return nil
}

// SearchColumns lists the columns matched by free-text search.
var SearchColumns = []string{"permit_number", "project_name", "jurisdiction_code"}
