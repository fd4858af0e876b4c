package repository

import (
	"context"
	"testing"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyRepository_ListFilters(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPropertyRepository(db)
	ctx := context.Background()

	loft := &models.Property{LandlordID: 10, Title: "Loft", Address: "1 Main St", City: "Brooklyn", RentAmount: models.USD(300000), Available: true}
	studio := &models.Property{LandlordID: 10, Title: "Studio", Address: "2 Main St", City: "Queens", RentAmount: models.USD(180000), Available: false}
	other := &models.Property{LandlordID: 11, Title: "Duplex", Address: "3 Main St", City: "brooklyn", RentAmount: models.USD(420000), Available: true}
	for _, p := range []*models.Property{loft, studio, other} {
		require.NoError(t, repo.Create(ctx, p))
	}

	mine, err := repo.List(ctx, PropertyFilter{LandlordID: 10}, Page{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	brooklyn, err := repo.List(ctx, PropertyFilter{City: "BROOKLYN"}, Page{})
	require.NoError(t, err)
	assert.Len(t, brooklyn, 2, "city matching ignores case")

	available := true
	open, err := repo.List(ctx, PropertyFilter{LandlordID: 10, Available: &available}, Page{})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, loft.ID, open[0].ID)

	studio.Available = true
	require.NoError(t, repo.Update(ctx, studio))
	stored, err := repo.GetByID(ctx, studio.ID)
	require.NoError(t, err)
	assert.True(t, stored.Available)

	require.NoError(t, repo.Delete(ctx, studio.ID))
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(repo.Delete(ctx, studio.ID)))
}

func TestOperationsRepositories(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()

	vendors := NewVendorRepository(db)
	plumber := &models.Vendor{Name: "Pipes Inc", Trade: "plumbing", Active: true}
	retired := &models.Vendor{Name: "Old Pipes", Trade: "plumbing", Active: false}
	sparky := &models.Vendor{Name: "Sparky", Trade: "electrical", Active: true}
	for _, v := range []*models.Vendor{plumber, retired, sparky} {
		require.NoError(t, vendors.Create(ctx, v))
	}
	active, err := vendors.List(ctx, "plumbing", true, Page{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, plumber.ID, active[0].ID)

	inspections := NewInspectionRepository(db)
	insp := &models.Inspection{PropertyID: 1, InspectorName: "Ann", ScheduledAt: time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC), Status: models.InspectionScheduled}
	require.NoError(t, inspections.Create(ctx, insp))
	insp.Status = models.InspectionInProgress
	require.NoError(t, inspections.Update(ctx, insp))
	assert.Equal(t, uint(2), insp.Version)

	maintenance := NewMaintenanceRepository(db)
	low := &models.MaintenanceRequest{PropertyID: 1, RequesterID: 20, Title: "Squeak", Priority: models.PriorityLow, Status: models.MaintenanceOpen}
	urgent := &models.MaintenanceRequest{PropertyID: 1, RequesterID: 20, Title: "Flood", Priority: models.PriorityEmergency, Status: models.MaintenanceOpen}
	require.NoError(t, maintenance.Create(ctx, low))
	require.NoError(t, maintenance.Create(ctx, urgent))

	queue, err := maintenance.ListByProperty(ctx, 1, models.MaintenanceOpen, Page{})
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, urgent.ID, queue[0].ID, "emergencies sort first")

	stale := *low
	low.Status = models.MaintenanceCancelled
	require.NoError(t, maintenance.Update(ctx, low))
	stale.Title = "Squeaky hinge"
	assert.Equal(t, models.CodeConflict, models.ErrorCode(maintenance.Update(ctx, &stale)))
}
