package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/database"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupSQLite opens a fresh migrated in-memory database per test.
func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var leaseApplications uint

// newLease builds a lease for a fresh application so the per-application index holds.
func newLease(propertyID uint, status models.LeaseStatus, start, end time.Time) *models.Lease {
	leaseApplications++
	return &models.Lease{
		ApplicationID:   leaseApplications,
		PropertyID:      propertyID,
		TenantID:        20,
		LandlordID:      10,
		Status:          status,
		StartDate:       start,
		EndDate:         end,
		MonthlyRent:     models.USD(120000),
		SecurityDeposit: models.USD(240000),
	}
}
