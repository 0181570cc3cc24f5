package inspections

import (
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/notifications"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
)

// Inspection is a scheduled site inspection. Assignee is free text; watched assignees
// receive a derived notification.
type Inspection struct {
	records.Base
	SiteCode          string `gorm:"column:site_code;size:64;not null;index" json:"site_code" validate:"required,max=64"`
	ProjectName       string `gorm:"column:project_name;size:190;not null" json:"project_name" validate:"required,max=190"`
	Title             string `gorm:"column:inspection_title;size:190;not null;index" json:"inspection_title" validate:"required,max=190"`
	InspectionType    string `gorm:"column:inspection_type;size:64" json:"inspection_type" validate:"max=64"`
	Date              string `gorm:"column:inspection_date;size:10" json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time              string `gorm:"column:inspection_time;size:5" json:"time" validate:"omitempty,datetime=15:04"`
	Assignee          string `gorm:"column:assignee;size:190;index" json:"assignee" validate:"max=190"`
	ProjectComplexity string `gorm:"column:project_complexity;size:32" json:"project_complexity" validate:"omitempty,oneof=low medium high"`
	Location          string `gorm:"column:location;size:255" json:"location" validate:"max=255"`
}

// TableName provides the explicit table binding for GORM.
func (Inspection) TableName() string {
	return "inspections"
}

// SearchColumns lists the columns matched by free-text search.
var SearchColumns = []string{"site_code", "project_name", "inspection_title", "assignee"}

func (i Inspection) subject() notifications.Subject {
	return notifications.Subject{ID: i.ID, Title: i.Title, Assignee: i.Assignee}
}
