package repository

import (
	"context"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"gorm.io/gorm"
)

// VendorRepository defines the interface for vendor data operations
type VendorRepository interface {
	Create(ctx context.Context, vendor *models.Vendor) error
	GetByID(ctx context.Context, id uint) (*models.Vendor, error)
	Update(ctx context.Context, vendor *models.Vendor) error
	List(ctx context.Context, trade string, activeOnly bool, page Page) ([]models.Vendor, error)
}

// InspectionRepository defines the interface for inspection data operations
type InspectionRepository interface {
	Create(ctx context.Context, inspection *models.Inspection) error
	GetByID(ctx context.Context, id uint) (*models.Inspection, error)
	Update(ctx context.Context, inspection *models.Inspection) error
	ListByProperty(ctx context.Context, propertyID uint, page Page) ([]models.Inspection, error)
}

// MaintenanceRepository defines the interface for maintenance request data operations
type MaintenanceRepository interface {
	Create(ctx context.Context, req *models.MaintenanceRequest) error
	GetByID(ctx context.Context, id uint) (*models.MaintenanceRequest, error)
	Update(ctx context.Context, req *models.MaintenanceRequest) error
	ListByProperty(ctx context.Context, propertyID uint, status models.MaintenanceStatus, page Page) ([]models.MaintenanceRequest, error)
}

type vendorRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewVendorRepository creates a new vendor repository
func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db, log: observability.NewRepoLogger("vendors")}
}

func (r *vendorRepository) Create(ctx context.Context, vendor *models.Vendor) error {
	if err := r.db.WithContext(ctx).Create(vendor).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translateError(err, "Vendor", vendor.ID)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"id": vendor.ID, "trade": vendor.Trade})
	return nil
}

func (r *vendorRepository) GetByID(ctx context.Context, id uint) (*models.Vendor, error) {
	return findByID[models.Vendor](ctx, r.db, "Vendor", id)
}

func (r *vendorRepository) Update(ctx context.Context, vendor *models.Vendor) error {
	if err := r.db.WithContext(ctx).Save(vendor).Error; err != nil {
		r.log.LogError(ctx, err, "update")
		return translateError(err, "Vendor", vendor.ID)
	}
	return nil
}

func (r *vendorRepository) List(ctx context.Context, trade string, activeOnly bool, page Page) ([]models.Vendor, error) {
	q := r.db.WithContext(ctx).Model(&models.Vendor{})
	if trade != "" {
		q = q.Where("trade = ?", trade)
	}
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var vendors []models.Vendor
	if err := page.apply(q.Order("name ASC")).Find(&vendors).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return vendors, nil
}

type inspectionRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewInspectionRepository creates a new inspection repository
func NewInspectionRepository(db *gorm.DB) InspectionRepository {
	return &inspectionRepository{db: db, log: observability.NewRepoLogger("inspections")}
}

func (r *inspectionRepository) Create(ctx context.Context, inspection *models.Inspection) error {
	if inspection.Version == 0 {
		inspection.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(inspection).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translateError(err, "Inspection", inspection.ID)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"id": inspection.ID, "property_id": inspection.PropertyID})
	return nil
}

func (r *inspectionRepository) GetByID(ctx context.Context, id uint) (*models.Inspection, error) {
	return findByID[models.Inspection](ctx, r.db, "Inspection", id)
}

func (r *inspectionRepository) Update(ctx context.Context, inspection *models.Inspection) error {
	expected := inspection.Version
	inspection.Version++
	if err := saveVersioned(ctx, r.db, r.log, inspection, "Inspection", inspection.ID, expected); err != nil {
		inspection.Version = expected
		return err
	}
	return nil
}

func (r *inspectionRepository) ListByProperty(ctx context.Context, propertyID uint, page Page) ([]models.Inspection, error) {
	var inspections []models.Inspection
	q := r.db.WithContext(ctx).Where("property_id = ?", propertyID).Order("scheduled_at DESC")
	if err := page.apply(q).Find(&inspections).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return inspections, nil
}

type maintenanceRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewMaintenanceRepository creates a new maintenance request repository
func NewMaintenanceRepository(db *gorm.DB) MaintenanceRepository {
	return &maintenanceRepository{db: db, log: observability.NewRepoLogger("maintenance_requests")}
}

func (r *maintenanceRepository) Create(ctx context.Context, req *models.MaintenanceRequest) error {
	if req.Version == 0 {
		req.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translateError(err, "MaintenanceRequest", req.ID)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"id": req.ID, "priority": req.Priority})
	return nil
}

func (r *maintenanceRepository) GetByID(ctx context.Context, id uint) (*models.MaintenanceRequest, error) {
	return findByID[models.MaintenanceRequest](ctx, r.db, "MaintenanceRequest", id)
}

func (r *maintenanceRepository) Update(ctx context.Context, req *models.MaintenanceRequest) error {
	expected := req.Version
	req.Version++
	if err := saveVersioned(ctx, r.db, r.log, req, "MaintenanceRequest", req.ID, expected); err != nil {
		req.Version = expected
		return err
	}
	return nil
}

func (r *maintenanceRepository) ListByProperty(ctx context.Context, propertyID uint, status models.MaintenanceStatus, page Page) ([]models.MaintenanceRequest, error) {
	q := r.db.WithContext(ctx).Where("property_id = ?", propertyID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reqs []models.MaintenanceRequest
	// emergencies first, then oldest
	q = q.Order("CASE priority WHEN 'EMERGENCY' THEN 0 WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 ELSE 3 END, created_at ASC")
	if err := page.apply(q).Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}
