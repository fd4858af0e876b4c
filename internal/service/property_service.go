package service

import (
	"context"
	"strings"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/cache"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/repository"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/validation"
)

// PropertyInput is the editable part of a property.
type PropertyInput struct {
	LandlordID uint         `json:"landlord_id,omitempty"`
	Title      string       `json:"title" validate:"required,max=200"`
	Address    string       `json:"address" validate:"required,max=255"`
	City       string       `json:"city" validate:"max=120"`
	Bedrooms   int          `json:"bedrooms" validate:"gte=0"`
	RentAmount models.Money `json:"rent_amount"`
	Available  *bool        `json:"available,omitempty"`
}

// PropertyService manages listings. Reads go through the Redis cache.
type PropertyService struct {
	repo repository.PropertyRepository
}

// NewPropertyService creates a new property service
func NewPropertyService(repo repository.PropertyRepository) *PropertyService {
	return &PropertyService{repo: repo}
}

func validateProperty(in PropertyInput) error {
	var c validation.Collect
	c.Merge(in)
	c.Check(in.RentAmount.IsPositive(), "rent_amount", "must be greater than zero")
	return c.Err()
}

// Create lists a property. Landlords own what they create; admins must name the landlord.
func (s *PropertyService) Create(ctx context.Context, actor models.Actor, in PropertyInput) (*models.Property, error) {
	owner := actor.ID
	switch actor.Role {
	case models.RoleLandlord:
	case models.RoleAdmin:
		if in.LandlordID == 0 {
			return nil, models.NewFieldValidationError(models.FieldError{Field: "landlord_id", Reason: "required"})
		}
		owner = in.LandlordID
	default:
		return nil, forbidden("create properties")
	}
	if err := validateProperty(in); err != nil {
		return nil, err
	}

	available := true
	if in.Available != nil {
		available = *in.Available
	}
	p := &models.Property{
		LandlordID: owner,
		Title:      strings.TrimSpace(in.Title),
		Address:    strings.TrimSpace(in.Address),
		City:       strings.TrimSpace(in.City),
		Bedrooms:   in.Bedrooms,
		RentAmount: in.RentAmount,
		Available:  available,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a property; listings are public to every authenticated actor.
func (s *PropertyService) Get(ctx context.Context, id uint) (*models.Property, error) {
	return cache.CacheAside(ctx, cache.PropertyKey(id), cache.PropertyTTL, func(ctx context.Context) (*models.Property, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// List returns properties matching filter.
func (s *PropertyService) List(ctx context.Context, filter repository.PropertyFilter, page repository.Page) ([]models.Property, error) {
	return s.repo.List(ctx, filter, page)
}

// Update replaces the editable fields. Last write wins.
func (s *PropertyService) Update(ctx context.Context, actor models.Actor, id uint, in PropertyInput) (*models.Property, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(actor, p) {
		return nil, forbidden("update this property")
	}
	if err := validateProperty(in); err != nil {
		return nil, err
	}
	p.Title = strings.TrimSpace(in.Title)
	p.Address = strings.TrimSpace(in.Address)
	p.City = strings.TrimSpace(in.City)
	p.Bedrooms = in.Bedrooms
	p.RentAmount = in.RentAmount
	if in.Available != nil {
		p.Available = *in.Available
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	cache.InvalidateProperty(ctx, p.ID)
	return p, nil
}

// Delete removes a property.
func (s *PropertyService) Delete(ctx context.Context, actor models.Actor, id uint) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManageProperty(actor, p) {
		return forbidden("delete this property")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateProperty(ctx, id)
	return nil
}
