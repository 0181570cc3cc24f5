// Package catalog holds the site-management record families that are plain CRUD:
// they carry no derived state and go straight to the record store.
package catalog

import (
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
)

// Client is a customer of the firm.
type Client struct {
	records.Base
	Name    string `gorm:"column:name;size:190;not null" json:"name" validate:"required,max=190"`
	Company string `gorm:"column:company;size:190" json:"company" validate:"max=190"`
	Email   string `gorm:"column:email;size:190" json:"email" validate:"omitempty,email,max=190"`
	Phone   string `gorm:"column:phone;size:64" json:"phone" validate:"max=64"`
	Address string `gorm:"column:address;size:255" json:"address" validate:"max=255"`
}

func (Client) TableName() string { return "clients" }

// ClientRequest is an inbound request raised by a client.
type ClientRequest struct {
	records.Base
	ClientName  string `gorm:"column:client_name;size:190;not null;index" json:"client_name" validate:"required,max=190"`
	Subject     string `gorm:"column:subject;size:190;not null" json:"subject" validate:"required,max=190"`
	Details     string `gorm:"column:details;type:text" json:"details"`
	Status      string `gorm:"column:status;size:32" json:"status" validate:"omitempty,oneof=open in_progress closed"`
	RequestDate string `gorm:"column:request_date;size:10" json:"request_date" validate:"omitempty,datetime=2006-01-02"`
}

func (ClientRequest) TableName() string { return "client_requests" }

// DailyIssue is a problem reported on site during a working day.
type DailyIssue struct {
	records.Base
	ProjectName string `gorm:"column:project_name;size:190;index" json:"project_name" validate:"max=190"`
	Title       string `gorm:"column:title;size:190;not null" json:"title" validate:"required,max=190"`
	Description string `gorm:"column:description;type:text" json:"description"`
	ReportedBy  string `gorm:"column:reported_by;size:190" json:"reported_by" validate:"max=190"`
	Severity    string `gorm:"column:severity;size:32" json:"severity" validate:"omitempty,oneof=low medium high critical"`
	IssueDate   string `gorm:"column:issue_date;size:10" json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	Resolved    bool   `gorm:"column:resolved;not null;default:false" json:"resolved"`
}

func (DailyIssue) TableName() string { return "daily_issues" }

// DailyLog is the site diary entry for one project and day.
type DailyLog struct {
	records.Base
	ProjectName string `gorm:"column:project_name;size:190;not null;index" json:"project_name" validate:"required,max=190"`
	LogDate     string `gorm:"column:log_date;size:10;not null" json:"log_date" validate:"required,datetime=2006-01-02"`
	Author      string `gorm:"column:author;size:190" json:"author" validate:"max=190"`
	Weather     string `gorm:"column:weather;size:64" json:"weather" validate:"max=64"`
	Workforce   int    `gorm:"column:workforce;not null;default:0" json:"workforce" validate:"gte=0"`
	Notes       string `gorm:"column:notes;type:text" json:"notes"`
}

func (DailyLog) TableName() string { return "daily_logs" }

// Procurement tracks an item ordered from a vendor for a project.
type Procurement struct {
	records.Base
	ItemName     string  `gorm:"column:item_name;size:190;not null" json:"item_name" validate:"required,max=190"`
	VendorName   string  `gorm:"column:vendor_name;size:190;index" json:"vendor_name" validate:"max=190"`
	ProjectName  string  `gorm:"column:project_name;size:190;index" json:"project_name" validate:"max=190"`
	Quantity     int     `gorm:"column:quantity;not null;default:0" json:"quantity" validate:"gte=0"`
	UnitCost     float64 `gorm:"column:unit_cost;not null;default:0" json:"unit_cost" validate:"gte=0"`
	Status       string  `gorm:"column:status;size:32" json:"status" validate:"omitempty,oneof=requested ordered delivered cancelled"`
	DeliveryDate string  `gorm:"column:delivery_date;size:10" json:"delivery_date" validate:"omitempty,datetime=2006-01-02"`
}

func (Procurement) TableName() string { return "procurements" }

// Project is a construction project run on one site.
type Project struct {
	records.Base
	Name      string  `gorm:"column:name;size:190;not null" json:"name" validate:"required,max=190"`
	SiteCode  string  `gorm:"column:site_code;size:64;index" json:"site_code" validate:"max=64"`
	Manager   string  `gorm:"column:manager;size:190" json:"manager" validate:"max=190"`
	Status    string  `gorm:"column:status;size:32" json:"status" validate:"omitempty,oneof=planned active on_hold completed"`
	StartDate string  `gorm:"column:start_date;size:10" json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string  `gorm:"column:end_date;size:10" json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Budget    float64 `gorm:"column:budget;not null;default:0" json:"budget" validate:"gte=0"`
}

func (Project) TableName() string { return "projects" }

// Task is a unit of work on a project.
type Task struct {
	records.Base
	Title       string `gorm:"column:title;size:190;not null" json:"title" validate:"required,max=190"`
	ProjectName string `gorm:"column:project_name;size:190;index" json:"project_name" validate:"max=190"`
	Assignee    string `gorm:"column:assignee;size:190;index" json:"assignee" validate:"max=190"`
	Status      string `gorm:"column:status;size:32" json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority    string `gorm:"column:priority;size:32" json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     string `gorm:"column:due_date;size:10" json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

func (Task) TableName() string { return "tasks" }

// Proposal is a priced offer sent to a client.
type Proposal struct {
	records.Base
	Title      string  `gorm:"column:title;size:190;not null" json:"title" validate:"required,max=190"`
	ClientName string  `gorm:"column:client_name;size:190;index" json:"client_name" validate:"max=190"`
	Amount     float64 `gorm:"column:amount;not null;default:0" json:"amount" validate:"gte=0"`
	Status     string  `gorm:"column:status;size:32" json:"status" validate:"omitempty,oneof=draft sent accepted rejected"`
	ValidUntil string  `gorm:"column:valid_until;size:10" json:"valid_until" validate:"omitempty,datetime=2006-01-02"`
}

func (Proposal) TableName() string { return "proposals" }

// Vendor is a supplier or subcontractor.
type Vendor struct {
	records.Base
	Name        string `gorm:"column:name;size:190;not null" json:"name" validate:"required,max=190"`
	Trade       string `gorm:"column:trade;size:120" json:"trade" validate:"max=120"`
	ContactName string `gorm:"column:contact_name;size:190" json:"contact_name" validate:"max=190"`
	Email       string `gorm:"column:email;size:190" json:"email" validate:"omitempty,email,max=190"`
	Phone       string `gorm:"column:phone;size:64" json:"phone" validate:"max=64"`
}

func (Vendor) TableName() string { return "vendors" }

// Models returns every catalog model for schema migration.
func Models() []any {
	return []any{
		&Client{},
		&ClientRequest{},
		&DailyIssue{},
		&DailyLog{},
		&Procurement{},
		&Project{},
		&Task{},
		&Proposal{},
		&Vendor{},
	}
}
