package repository

import (
	"context"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"gorm.io/gorm"
)

// LeaseRepository defines the interface for lease data operations
type LeaseRepository interface {
	Create(ctx context.Context, lease *models.Lease) error
	GetByID(ctx context.Context, id uint) (*models.Lease, error)
	// Update persists lease if its version still matches; on success lease.Version is incremented.
	Update(ctx context.Context, lease *models.Lease) error
	ExistsForApplication(ctx context.Context, applicationID uint) (bool, error)
	ListByProperty(ctx context.Context, propertyID uint, page Page) ([]models.Lease, error)
	// ListActiveEndingBetween returns ACTIVE leases whose end date falls in [from, to],
	// optionally restricted to one landlord.
	ListActiveEndingBetween(ctx context.Context, landlordID uint, from, to time.Time) ([]models.Lease, error)
	// ListActiveEndedBefore returns ACTIVE leases whose end date is before day,
	// in id order starting after afterID.
	ListActiveEndedBefore(ctx context.Context, day time.Time, afterID uint, limit int) ([]models.Lease, error)
	// CreateRenewal inserts renewal and marks original as superseded in one transaction.
	CreateRenewal(ctx context.Context, original, renewal *models.Lease) error
}

type leaseRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewLeaseRepository creates a new lease repository
func NewLeaseRepository(db *gorm.DB) LeaseRepository {
	return &leaseRepository{db: db, log: observability.NewRepoLogger("leases")}
}

func (r *leaseRepository) Create(ctx context.Context, lease *models.Lease) error {
	if lease.Version == 0 {
		lease.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(lease).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translateError(err, "Lease", lease.ID)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"id": lease.ID, "application_id": lease.ApplicationID})
	return nil
}

func (r *leaseRepository) GetByID(ctx context.Context, id uint) (*models.Lease, error) {
	return findByID[models.Lease](ctx, r.db, "Lease", id)
}

func (r *leaseRepository) Update(ctx context.Context, lease *models.Lease) error {
	expected := lease.Version
	lease.Version++
	if err := saveVersioned(ctx, r.db, r.log, lease, "Lease", lease.ID, expected); err != nil {
		lease.Version = expected
		return err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"id": lease.ID, "status": lease.Status, "version": lease.Version})
	return nil
}

func (r *leaseRepository) ExistsForApplication(ctx context.Context, applicationID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Lease{}).
		Where("application_id = ?", applicationID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *leaseRepository) ListByProperty(ctx context.Context, propertyID uint, page Page) ([]models.Lease, error) {
	var leases []models.Lease
	q := r.db.WithContext(ctx).Where("property_id = ?", propertyID).Order("start_date DESC, id DESC")
	if err := page.apply(q).Find(&leases).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return leases, nil
}

func (r *leaseRepository) ListActiveEndingBetween(ctx context.Context, landlordID uint, from, to time.Time) ([]models.Lease, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND end_date >= ? AND end_date <= ?", models.LeaseActive, from, to)
	if landlordID != 0 {
		q = q.Where("landlord_id = ?", landlordID)
	}
	var leases []models.Lease
	if err := q.Order("end_date ASC, id ASC").Find(&leases).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return leases, nil
}

func (r *leaseRepository) ListActiveEndedBefore(ctx context.Context, day time.Time, afterID uint, limit int) ([]models.Lease, error) {
	var leases []models.Lease
	q := r.db.WithContext(ctx).
		Where("status = ? AND end_date < ? AND id > ?", models.LeaseActive, day, afterID).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&leases).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return leases, nil
}

func (r *leaseRepository) CreateRenewal(ctx context.Context, original, renewal *models.Lease) error {
	if renewal.Version == 0 {
		renewal.Version = 1
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(renewal).Error; err != nil {
			return translateError(err, "Lease", renewal.ID)
		}
		res := tx.Model(&models.Lease{}).
			Where("id = ? AND version = ? AND superseded_by_id IS NULL", original.ID, original.Version).
			Updates(map[string]interface{}{
				"superseded_by_id": renewal.ID,
				"version":          gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			r.log.LogConflict(ctx, original.ID, original.Version)
			return models.NewConflictError("Lease", original.ID)
		}
		return nil
	})
	if err != nil {
		renewal.ID = 0
		return err
	}

	id := renewal.ID
	original.SupersededByID = &id
	original.Version++
	r.log.LogCreate(ctx, map[string]interface{}{"id": renewal.ID, "supersedes_id": original.ID})
	return nil
}
