package catalog

import (
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stores bundles one record store per catalog family.
type Stores struct {
	Clients        *records.Store[Client, *Client]
	ClientRequests *records.Store[ClientRequest, *ClientRequest]
	DailyIssues    *records.Store[DailyIssue, *DailyIssue]
	DailyLogs      *records.Store[DailyLog, *DailyLog]
	Procurements   *records.Store[Procurement, *Procurement]
	Projects       *records.Store[Project, *Project]
	Tasks          *records.Store[Task, *Task]
	Proposals      *records.Store[Proposal, *Proposal]
	Vendors        *records.Store[Vendor, *Vendor]
}

// NewStores builds every catalog store on the shared database handle.
func NewStores(db *gorm.DB, idProvider records.IDProvider, logger *zap.Logger) (*Stores, error) {
	if idProvider == nil {
		idProvider = records.NewUUIDProvider()
	}
	config := func(columns ...string) records.StoreConfig {
		return records.StoreConfig{
			Database:      db,
			IDProvider:    idProvider,
			Logger:        logger,
			SearchColumns: columns,
		}
	}

	stores := &Stores{}
	var err error
	if stores.Clients, err = records.NewStore[Client](config("name", "company", "email")); err != nil {
		return nil, err
	}
	if stores.ClientRequests, err = records.NewStore[ClientRequest](config("client_name", "subject")); err != nil {
		return nil, err
	}
	if stores.DailyIssues, err = records.NewStore[DailyIssue](config("project_name", "title", "reported_by")); err != nil {
		return nil, err
	}
	if stores.DailyLogs, err = records.NewStore[DailyLog](config("project_name", "author")); err != nil {
		return nil, err
	}
	if stores.Procurements, err = records.NewStore[Procurement](config("item_name", "vendor_name", "project_name")); err != nil {
		return nil, err
	}
	if stores.Projects, err = records.NewStore[Project](config("name", "site_code", "manager")); err != nil {
		return nil, err
	}
	if stores.Tasks, err = records.NewStore[Task](config("title", "project_name", "assignee")); err != nil {
		return nil, err
	}
	if stores.Proposals, err = records.NewStore[Proposal](config("title", "client_name")); err != nil {
		return nil, err
	}
	if stores.Vendors, err = records.NewStore[Vendor](config("name", "trade", "contact_name")); err != nil {
		return nil, err
	}
	return stores, nil
}
