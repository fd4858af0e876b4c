package repository

import (
	"context"
	"errors"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"gorm.io/gorm"
)

// ApplicationRepository defines the interface for application data operations
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uint) (*models.Application, error)
	// Update persists app if its version still matches; on success app.Version is incremented.
	Update(ctx context.Context, app *models.Application) error
	ListByProperty(ctx context.Context, propertyID uint, status models.ApplicationStatus, page Page) ([]models.Application, error)
	ListByApplicant(ctx context.Context, applicantID uint, page Page) ([]models.Application, error)
	// FindOpenForApplicant returns the applicant's PENDING or APPROVED application for a
	// property, or nil when there is none.
	FindOpenForApplicant(ctx context.Context, propertyID, applicantID uint) (*models.Application, error)
}

type applicationRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db, log: observability.NewRepoLogger("applications")}
}

func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.Version == 0 {
		app.Version = 1
	}
	if err := r.db.WithContext(ctx).Omit("Property").Create(app).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translateError(err, "Application", app.ID)
	}
	r.log.LogCreate(ctx, map[string]interface{}{
		"id":           app.ID,
		"property_id":  app.PropertyID,
		"applicant_id": app.ApplicantID,
	})
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (*models.Application, error) {
	return findByID[models.Application](ctx, r.db, "Application", id)
}

func (r *applicationRepository) Update(ctx context.Context, app *models.Application) error {
	expected := app.Version
	app.Version++
	if err := saveVersioned(ctx, r.db, r.log, app, "Application", app.ID, expected); err != nil {
		app.Version = expected
		return err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"id": app.ID, "status": app.Status, "version": app.Version})
	return nil
}

func (r *applicationRepository) ListByProperty(ctx context.Context, propertyID uint, status models.ApplicationStatus, page Page) ([]models.Application, error) {
	q := r.db.WithContext(ctx).Where("property_id = ?", propertyID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var apps []models.Application
	if err := page.apply(q.Order("created_at DESC, id DESC")).Find(&apps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return apps, nil
}

func (r *applicationRepository) ListByApplicant(ctx context.Context, applicantID uint, page Page) ([]models.Application, error) {
	var apps []models.Application
	q := r.db.WithContext(ctx).Preload("Property").Where("applicant_id = ?", applicantID)
	if err := page.apply(q.Order("created_at DESC, id DESC")).Find(&apps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return apps, nil
}

func (r *applicationRepository) FindOpenForApplicant(ctx context.Context, propertyID, applicantID uint) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND applicant_id = ? AND status IN ?", propertyID, applicantID,
			[]models.ApplicationStatus{models.ApplicationPending, models.ApplicationApproved}).
		Order("id DESC").
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &app, nil
}
