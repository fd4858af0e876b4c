package repository

import (
	"context"
	"testing"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newApplication(propertyID, applicantID uint, status models.ApplicationStatus) *models.Application {
	return &models.Application{
		PropertyID:    propertyID,
		ApplicantID:   applicantID,
		Status:        status,
		MoveInDate:    day(2025, time.April, 1),
		MonthlyIncome: models.USD(480000),
		EmploymentInfo: datatypes.NewJSONType(models.EmploymentInfo{
			Employer: "Acme", Position: "Engineer", EmploymentLength: "3 years",
		}),
		References: datatypes.NewJSONSlice([]models.Reference{
			{Name: "Ann", Relationship: "manager", Phone: "555-0100"},
			{Name: "Bo", Relationship: "landlord", Phone: "555-0101"},
		}),
		CreditCheckConsent:     true,
		BackgroundCheckConsent: true,
		BackgroundCheckStatus:  models.BackgroundCheckNotStarted,
	}
}

func TestApplicationRepository_CreateAndGet(t *testing.T) {
	db := setupSQLite(t)
	props := NewPropertyRepository(db)
	repo := NewApplicationRepository(db)
	ctx := context.Background()

	p := &models.Property{LandlordID: 10, Title: "Loft", Address: "1 Main St", RentAmount: models.USD(120000), Available: true}
	require.NoError(t, props.Create(ctx, p))

	app := newApplication(p.ID, 20, models.ApplicationPending)
	require.NoError(t, repo.Create(ctx, app))
	assert.Equal(t, uint(1), app.Version)

	stored, err := repo.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", stored.EmploymentInfo.Data().Employer)
	require.Len(t, stored.References, 2)
	assert.Equal(t, "Ann", stored.References[0].Name, "references keep submission order")

	mine, err := repo.ListByApplicant(ctx, 20, Page{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Property)
	assert.Equal(t, "Loft", mine[0].Property.Title)

	_, err = repo.GetByID(ctx, 999)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestApplicationRepository_FindOpenForApplicant(t *testing.T) {
	db := setupSQLite(t)
	repo := NewApplicationRepository(db)
	ctx := context.Background()

	open, err := repo.FindOpenForApplicant(ctx, 1, 20)
	require.NoError(t, err)
	assert.Nil(t, open)

	require.NoError(t, repo.Create(ctx, newApplication(1, 20, models.ApplicationRejected)))
	require.NoError(t, repo.Create(ctx, newApplication(1, 20, models.ApplicationWithdrawn)))
	open, err = repo.FindOpenForApplicant(ctx, 1, 20)
	require.NoError(t, err)
	assert.Nil(t, open, "closed applications do not block a new one")

	approved := newApplication(1, 20, models.ApplicationApproved)
	require.NoError(t, repo.Create(ctx, approved))
	open, err = repo.FindOpenForApplicant(ctx, 1, 20)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, approved.ID, open.ID)

	open, err = repo.FindOpenForApplicant(ctx, 2, 20)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestApplicationRepository_ListByPropertyAndConflict(t *testing.T) {
	db := setupSQLite(t)
	repo := NewApplicationRepository(db)
	ctx := context.Background()

	pending := newApplication(1, 20, models.ApplicationPending)
	require.NoError(t, repo.Create(ctx, pending))
	require.NoError(t, repo.Create(ctx, newApplication(1, 21, models.ApplicationRejected)))
	require.NoError(t, repo.Create(ctx, newApplication(2, 22, models.ApplicationPending)))

	all, err := repo.ListByProperty(ctx, 1, "", Page{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	onlyPending, err := repo.ListByProperty(ctx, 1, models.ApplicationPending, Page{})
	require.NoError(t, err)
	require.Len(t, onlyPending, 1)
	assert.Equal(t, pending.ID, onlyPending[0].ID)
	paged, err := repo.ListByProperty(ctx, 1, "", Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, paged, 1)

	a, err := repo.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	b, err := repo.GetByID(ctx, pending.ID)
	require.NoError(t, err)

	a.Status = models.ApplicationApproved
	require.NoError(t, repo.Update(ctx, a))
	b.Status = models.ApplicationRejected
	assert.Equal(t, models.CodeConflict, models.ErrorCode(repo.Update(ctx, b)))
}

func TestApplicationRepository_OneOpenApplicationPerApplicant(t *testing.T) {
	db := setupSQLite(t)
	repo := NewApplicationRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newApplication(1, 20, models.ApplicationPending)))
	err := repo.Create(ctx, newApplication(1, 20, models.ApplicationPending))
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
	err = repo.Create(ctx, newApplication(1, 20, models.ApplicationApproved))
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

	require.NoError(t, repo.Create(ctx, newApplication(1, 20, models.ApplicationRejected)))
	require.NoError(t, repo.Create(ctx, newApplication(1, 21, models.ApplicationPending)))
	require.NoError(t, repo.Create(ctx, newApplication(2, 20, models.ApplicationPending)))
}
