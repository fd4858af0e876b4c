package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/cache"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/notifications"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestPropertyService_CRUDWithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	ctx := context.Background()
	props := newFakeProperties()
	svc := NewPropertyService(props)

	_, err := svc.Create(ctx, renter, PropertyInput{Title: "x", Address: "y", RentAmount: models.USD(1)})
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	_, err = svc.Create(ctx, admin, PropertyInput{Title: "x", Address: "y", RentAmount: models.USD(1)})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err), "admins must name the landlord")
	_, err = svc.Create(ctx, landlord, PropertyInput{Title: "x", Address: "y"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	p, err := svc.Create(ctx, landlord, PropertyInput{Title: "Loft", Address: "1 Main St", City: "Queens", RentAmount: models.USD(250000)})
	require.NoError(t, err)
	assert.True(t, p.Available)
	assert.Equal(t, landlord.ID, p.LandlordID)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loft", got.Title)
	assert.True(t, mr.Exists(cache.PropertyKey(p.ID)))

	_, err = svc.Update(ctx, models.Actor{ID: 99, Role: models.RoleLandlord}, p.ID, PropertyInput{Title: "Stolen", Address: "1 Main St", RentAmount: models.USD(1)})
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	_, err = svc.Update(ctx, landlord, p.ID, PropertyInput{Title: "Loft 2", Address: "1 Main St", RentAmount: models.USD(260000), Available: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.PropertyKey(p.ID)))

	got, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loft 2", got.Title)
	assert.False(t, got.Available)

	list, err := svc.List(ctx, repository.PropertyFilter{LandlordID: landlord.ID}, pageAll)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, landlord, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestVendorService(t *testing.T) {
	ctx := context.Background()
	svc := NewVendorService(newFakeVendors())

	_, err := svc.Create(ctx, renter, VendorInput{Name: "Bob", Trade: "plumbing"})
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	_, err = svc.Create(ctx, landlord, VendorInput{Name: "Bob", Trade: "plumbing", Email: "nope"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	v, err := svc.Create(ctx, landlord, VendorInput{Name: "Bob", Trade: "plumbing", Email: "bob@example.com"})
	require.NoError(t, err)
	assert.True(t, v.Active)

	v, err = svc.Update(ctx, landlord, v.ID, VendorInput{Name: "Bob", Trade: "plumbing", Active: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, v.Active)

	active, err := svc.List(ctx, "plumbing", true, pageAll)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := svc.List(ctx, "", false, pageAll)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestInspectionService(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.property(true)
	svc := NewInspectionService(f.inspections, f.props)

	_, err := svc.Schedule(ctx, renter, ScheduleInspectionInput{PropertyID: p.ID, InspectorName: "Ann", ScheduledAt: f.now})
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	_, err = svc.Schedule(ctx, landlord, ScheduleInspectionInput{PropertyID: p.ID, InspectorName: "Ann"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	insp, err := svc.Schedule(ctx, landlord, ScheduleInspectionInput{PropertyID: p.ID, InspectorName: "Ann", ScheduledAt: f.now.Add(48 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, models.InspectionScheduled, insp.Status)

	_, err = svc.Transition(ctx, landlord, insp.ID, models.InspectionCompleted, "")
	assert.Equal(t, models.CodeInvalidTransition, models.ErrorCode(err))

	insp, err = svc.Transition(ctx, landlord, insp.ID, models.InspectionInProgress, "")
	require.NoError(t, err)
	insp, err = svc.Transition(ctx, landlord, insp.ID, models.InspectionCompleted, "smoke detector missing")
	require.NoError(t, err)
	assert.Equal(t, models.InspectionCompleted, insp.Status)
	assert.Equal(t, "smoke detector missing", insp.Findings)

	_, err = svc.Transition(ctx, landlord, insp.ID, models.InspectionCancelled, "")
	assert.Equal(t, models.CodeInvalidTransition, models.ErrorCode(err))

	list, err := svc.ListForProperty(ctx, landlord, p.ID, pageAll)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMaintenanceService(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lease := f.activeLease(date(2024, time.June, 1), date(2025, time.May, 31))
	svc := NewMaintenanceService(f.maintenance, f.props, f.vendors, f.leases, f.dispatcher)

	_, err := svc.Create(ctx, stranger, CreateMaintenanceInput{PropertyID: lease.PropertyID, Title: "Leak"})
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	_, err = svc.Create(ctx, renter, CreateMaintenanceInput{PropertyID: lease.PropertyID, Title: "Leak", Priority: "URGENT"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	req, err := svc.Create(ctx, renter, CreateMaintenanceInput{PropertyID: lease.PropertyID, Title: "Leak under sink"})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceOpen, req.Status)
	assert.Equal(t, models.PriorityMedium, req.Priority)
	assert.Equal(t, []string{notifications.EventMaintenanceStatusChanged}, f.dispatcher.events())

	_, err = svc.Transition(ctx, landlord, req.ID, models.MaintenanceAssigned)
	assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err), "assignment needs a vendor")

	inactive := &models.Vendor{Name: "Old Co", Trade: "plumbing"}
	require.NoError(t, f.vendors.create(inactive))
	_, err = svc.AssignVendor(ctx, landlord, req.ID, inactive.ID)
	assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))

	vendor := &models.Vendor{Name: "Pipes Inc", Trade: "plumbing", Active: true}
	require.NoError(t, f.vendors.create(vendor))
	_, err = svc.AssignVendor(ctx, renter, req.ID, vendor.ID)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	req, err = svc.AssignVendor(ctx, landlord, req.ID, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceAssigned, req.Status)
	require.NotNil(t, req.VendorID)
	assert.Equal(t, vendor.ID, *req.VendorID)

	_, err = svc.Transition(ctx, renter, req.ID, models.MaintenanceInProgress)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	req, err = svc.Transition(ctx, landlord, req.ID, models.MaintenanceInProgress)
	require.NoError(t, err)
	req, err = svc.Transition(ctx, landlord, req.ID, models.MaintenanceCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceCompleted, req.Status)

	other, err := svc.Create(ctx, renter, CreateMaintenanceInput{PropertyID: lease.PropertyID, Title: "Squeaky door", Priority: models.PriorityLow})
	require.NoError(t, err)
	other, err = svc.Transition(ctx, renter, other.ID, models.MaintenanceCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceCancelled, other.Status)

	open, err := svc.ListForProperty(ctx, landlord, lease.PropertyID, models.MaintenanceCompleted, pageAll)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}
