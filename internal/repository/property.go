package repository

import (
	"context"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"gorm.io/gorm"
)

// PropertyFilter narrows a property listing.
type PropertyFilter struct {
	LandlordID uint
	City       string
	Available  *bool
}

// PropertyRepository defines the interface for property data operations
type PropertyRepository interface {
	Create(ctx context.Context, property *models.Property) error
	GetByID(ctx context.Context, id uint) (*models.Property, error)
	Update(ctx context.Context, property *models.Property) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter PropertyFilter, page Page) ([]models.Property, error)
}

type propertyRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db, log: observability.NewRepoLogger("properties")}
}

func (r *propertyRepository) Create(ctx context.Context, property *models.Property) error {
	if err := r.db.WithContext(ctx).Create(property).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translateError(err, "Property", property.ID)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"id": property.ID, "landlord_id": property.LandlordID})
	return nil
}

func (r *propertyRepository) GetByID(ctx context.Context, id uint) (*models.Property, error) {
	return findByID[models.Property](ctx, r.db, "Property", id)
}

// Properties carry no version column; last write wins.
func (r *propertyRepository) Update(ctx context.Context, property *models.Property) error {
	if err := r.db.WithContext(ctx).Save(property).Error; err != nil {
		r.log.LogError(ctx, err, "update")
		return translateError(err, "Property", property.ID)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"id": property.ID})
	return nil
}

func (r *propertyRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Property{}, id)
	if res.Error != nil {
		return translateError(res.Error, "Property", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Property", id)
	}
	return nil
}

func (r *propertyRepository) List(ctx context.Context, filter PropertyFilter, page Page) ([]models.Property, error) {
	q := r.db.WithContext(ctx).Model(&models.Property{})
	if filter.LandlordID != 0 {
		q = q.Where("landlord_id = ?", filter.LandlordID)
	}
	if filter.City != "" {
		q = q.Where("LOWER(city) = LOWER(?)", filter.City)
	}
	if filter.Available != nil {
		q = q.Where("available = ?", *filter.Available)
	}

	var properties []models.Property
	if err := page.apply(q.Order("created_at DESC, id DESC")).Find(&properties).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return properties, nil
}
