package permits

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/records"
	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/storage"
	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB, storage.Storage) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "permits.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&Permit{}))

	documents, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	service, err := NewService(ServiceConfig{
		Database:  db,
		Documents: documents,
		Clock:     func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return service, db, documents
}

func newPermit(number string, expiry time.Time) *Permit {
	return &Permit{
		PermitNumber:     number,
		IssueDate:        fixedNow.AddDate(0, -6, 0),
		ExpiryDate:       expiry,
		ProjectName:      "Harbor Lofts",
		JurisdictionCode: "SF-DBI",
		ApprovalStatus:   "approved",
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		expiry  time.Time
		days    int
		urgency Urgency
		message string
	}{
		{"expired five days ago", fixedNow.AddDate(0, 0, -5), -5, UrgencyExpired, "Permit P-1 has expired."},
		{"expires now", fixedNow, 0, UrgencyExpired, "Permit P-1 has expired."},
		{"partial day rounds up", fixedNow.Add(2 * time.Hour), 1, UrgencyExpiringSoon, "Permit P-1 will expire soon, in 1 day(s)."},
		{"three days", fixedNow.AddDate(0, 0, 3), 3, UrgencyExpiringSoon, "Permit P-1 will expire soon, in 3 day(s)."},
		{"window edge", fixedNow.Add(ExpiryWindow), 10, UrgencyExpiringSoon, "Permit P-1 will expire soon, in 10 day(s)."},
		{"beyond window", fixedNow.AddDate(0, 0, 30), 30, UrgencyUpcoming, "Permit P-1 is expiring in 30 day(s)."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			days, urgency, message := Classify("P-1", tc.expiry, fixedNow)
			assert.Equal(t, tc.days, days)
			assert.Equal(t, tc.urgency, urgency)
			assert.Equal(t, tc.message, message)
		})
	}
}

func TestExpiringPermits(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.Create(ctx, newPermit("P-EXPIRED", fixedNow.AddDate(0, 0, -5))))
	require.NoError(t, service.Create(ctx, newPermit("P-SOON", fixedNow.AddDate(0, 0, 3))))
	require.NoError(t, service.Create(ctx, newPermit("P-FAR", fixedNow.AddDate(0, 0, 100))))

	notices, err := service.ExpiringPermits(ctx)
	require.NoError(t, err)
	require.Len(t, notices, 2)

	assert.Equal(t, "P-EXPIRED", notices[0].Permit.PermitNumber)
	assert.Equal(t, UrgencyExpired, notices[0].Urgency)
	assert.Equal(t, "Permit P-EXPIRED has expired.", notices[0].Message)

	assert.Equal(t, "P-SOON", notices[1].Permit.PermitNumber)
	assert.Equal(t, 3, notices[1].DaysRemaining)
	assert.Equal(t, "Permit P-SOON will expire soon, in 3 day(s).", notices[1].Message)
}

func TestExpiringPermitsEmpty(t *testing.T) {
	service, _, _ := newTestService(t)
	notices, err := service.ExpiringPermits(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, notices)
	assert.Empty(t, notices)
}

func TestCreateRequiresExpiryDate(t *testing.T) {
	service, _, _ := newTestService(t)
	err := service.Create(context.Background(), newPermit("P-1", time.Time{}))
	require.Error(t, err)
	assert.True(t, records.IsValidation(err))
}

func TestDocumentLifecycle(t *testing.T) {
	service, _, documents := newTestService(t)
	ctx := context.Background()

	permit := newPermit("P-DOC", fixedNow.AddDate(0, 1, 0))
	require.NoError(t, service.Create(ctx, permit))

	_, _, err := service.OpenDocument(ctx, permit.ID)
	assert.True(t, records.IsNotFound(err), "expected not found before upload, got %v", err)

	attached, err := service.AttachDocument(ctx, permit.ID, "../scans/permit.pdf", bytes.NewBufferString("first"))
	require.NoError(t, err)
	assert.Equal(t, "permit.pdf", attached.DocumentName)
	assert.Equal(t, "permits/"+permit.ID+"/permit.pdf", attached.DocumentRef)

	replaced, err := service.AttachDocument(ctx, permit.ID, "permit-v2.pdf", bytes.NewBufferString("second"))
	require.NoError(t, err)
	exists, err := documents.Exists(ctx, attached.DocumentRef)
	require.NoError(t, err)
	assert.False(t, exists, "replaced document should be removed")

	_, reader, err := service.OpenDocument(ctx, permit.ID)
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, reader.Close())
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	updated, err := service.UpdateByID(ctx, permit.ID, newPermit("P-DOC-2", fixedNow.AddDate(0, 2, 0)))
	require.NoError(t, err)
	assert.Equal(t, replaced.DocumentRef, updated.DocumentRef, "update must keep the document reference")

	_, err = service.DeleteByID(ctx, permit.ID)
	require.NoError(t, err)
	exists, err = documents.Exists(ctx, replaced.DocumentRef)
	require.NoError(t, err)
	assert.False(t, exists, "delete should remove the stored document")
}

func TestAttachDocumentRejectsEmptyName(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	permit := newPermit("P-1", fixedNow.AddDate(0, 1, 0))
	require.NoError(t, service.Create(ctx, permit))

	_, err := service.AttachDocument(ctx, permit.ID, "  ", bytes.NewBufferString("x"))
	require.Error(t, err)
	assert.True(t, records.IsValidation(err))
}

func TestAttachDocumentMissingPermit(t *testing.T) {
	service, _, _ := newTestService(t)
	_, err := service.AttachDocument(context.Background(), "missing", "permit.pdf", bytes.NewBufferString("x"))
	assert.True(t, records.IsNotFound(err))
}
