package records

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testWidget struct {
	Base
	Name  string `gorm:"column:name;size:190;not null" json:"name" validate:"required"`
	Owner string `gorm:"column:owner;size:190" json:"owner"`
}

func (testWidget) TableName() string {
	return "test_widgets"
}

type sequenceProvider struct {
	next int
}

func (p *sequenceProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("widget-%03d", p.next), nil
}

func newWidgetStore(t *testing.T) *Store[testWidget, *testWidget] {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "records.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&testWidget{}))
	store, err := NewStore[testWidget](StoreConfig{
		Database:      db,
		IDProvider:    &sequenceProvider{},
		SearchColumns: []string{"name", "owner"},
	})
	require.NoError(t, err)
	return store
}

func TestStoreCreateAssignsIdentifier(t *testing.T) {
	store := newWidgetStore(t)
	ctx := context.Background()

	widget := &testWidget{Name: "Crane", Owner: "Morgan"}
	require.NoError(t, store.Create(ctx, widget))
	require.Equal(t, "widget-001", widget.ID)
	require.False(t, widget.CreatedAt.IsZero())

	loaded, err := store.FindByID(ctx, widget.ID)
	require.NoError(t, err)
	require.Equal(t, "Crane", loaded.Name)
}

func TestStoreCreateRejectsMissingRequiredField(t *testing.T) {
	store := newWidgetStore(t)

	err := store.Create(context.Background(), &testWidget{Owner: "Morgan"})
	require.Error(t, err)
	require.True(t, IsValidation(err))
	require.Equal(t, "test_widgets.create.invalid_record", ErrorCode(err))

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "is required", validationErr.Fields["name"])
}

func TestStoreMissingRecordsReportNotFound(t *testing.T) {
	store := newWidgetStore(t)
	ctx := context.Background()

	_, err := store.FindByID(ctx, "absent")
	require.True(t, IsNotFound(err))

	_, err = store.UpdateByID(ctx, "absent", &testWidget{Name: "x"})
	require.True(t, IsNotFound(err))
	require.Equal(t, "test_widgets.update_by_id.not_found", ErrorCode(err))

	_, err = store.DeleteByID(ctx, "absent")
	require.True(t, IsNotFound(err))
}

func TestStoreUpdateReplacesFieldsAndKeepsCreation(t *testing.T) {
	store := newWidgetStore(t)
	ctx := context.Background()

	widget := &testWidget{Name: "Crane", Owner: "Morgan"}
	require.NoError(t, store.Create(ctx, widget))

	updated, err := store.UpdateByID(ctx, widget.ID, &testWidget{Name: "Hoist"})
	require.NoError(t, err)
	require.Equal(t, widget.ID, updated.ID)
	require.WithinDuration(t, widget.CreatedAt, updated.CreatedAt, time.Second)

	loaded, err := store.FindByID(ctx, widget.ID)
	require.NoError(t, err)
	require.Equal(t, "Hoist", loaded.Name)
	require.Empty(t, loaded.Owner)
}

func TestStoreDeleteReturnsRemovedRecord(t *testing.T) {
	store := newWidgetStore(t)
	ctx := context.Background()

	widget := &testWidget{Name: "Crane", Owner: "Morgan"}
	require.NoError(t, store.Create(ctx, widget))

	removed, err := store.DeleteByID(ctx, widget.ID)
	require.NoError(t, err)
	require.Equal(t, "Morgan", removed.Owner)

	_, err = store.FindByID(ctx, widget.ID)
	require.True(t, IsNotFound(err))
}

func TestStoreFindFiltersByExactMatch(t *testing.T) {
	store := newWidgetStore(t)
	ctx := context.Background()

	for _, widget := range []*testWidget{
		{Name: "Crane", Owner: "Morgan"},
		{Name: "Hoist", Owner: "Alex"},
		{Name: "Scaffold", Owner: "Morgan"},
	} {
		require.NoError(t, store.Create(ctx, widget))
	}

	found, err := store.Find(ctx, map[string]any{"owner": "Morgan"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, "Crane", found[0].Name)
	require.Equal(t, "Scaffold", found[1].Name)
}

func TestStoreListPagesAndSearches(t *testing.T) {
	store := newWidgetStore(t)
	ctx := context.Background()

	for index := 0; index < 5; index++ {
		require.NoError(t, store.Create(ctx, &testWidget{Name: fmt.Sprintf("Beam %d", index), Owner: "Alex"}))
	}
	require.NoError(t, store.Create(ctx, &testWidget{Name: "Crane", Owner: "Morgan"}))

	all, err := store.List(ctx, ListQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 6, all.Total)
	require.Len(t, all.Items, 6)
	require.Zero(t, all.TotalPages)

	page, err := store.List(ctx, ListQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 6, page.Total)
	require.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	require.Equal(t, "Beam 2", page.Items[0].Name)

	searched, err := store.List(ctx, ListQuery{Search: "MORG"})
	require.NoError(t, err)
	require.EqualValues(t, 1, searched.Total)
	require.Equal(t, "Crane", searched.Items[0].Name)
}
