package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/repository"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/service"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/validation"
)

// PropertyRequest is the body of POST /api/properties and PUT /api/properties/:id.
type PropertyRequest struct {
	LandlordID uint              `json:"landlord_id,omitempty"`
	Title      string            `json:"title"`
	Address    string            `json:"address"`
	City       string            `json:"city"`
	Bedrooms   int               `json:"bedrooms"`
	RentAmount models.MoneyInput `json:"rent_amount"`
	Available  *bool             `json:"available,omitempty"`
}

func (r PropertyRequest) toInput() (service.PropertyInput, error) {
	var v validation.Collect
	rent := money(&v, "rent_amount", r.RentAmount)
	return service.PropertyInput{
		LandlordID: r.LandlordID,
		Title:      r.Title,
		Address:    r.Address,
		City:       r.City,
		Bedrooms:   r.Bedrooms,
		RentAmount: rent,
		Available:  r.Available,
	}, v.Err()
}

// GetProperties handles GET /api/properties?landlord_id=&city=&available=
// @Summary List properties
// @Tags properties
// @Produce json
// @Param city query string false "City"
// @Param available query bool false "Only available units"
// @Success 200 {array} models.Property
// @Router /properties [get]
func (s *Server) GetProperties(c *fiber.Ctx) error {
	filter := repository.PropertyFilter{
		LandlordID: uint(c.QueryInt("landlord_id", 0)),
		City:       c.Query("city"),
	}
	if raw := c.Query("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			return respondError(c, models.NewFieldValidationError(models.FieldError{Field: "available", Reason: "must be true or false"}))
		}
		filter.Available = &available
	}
	properties, err := s.propertyService.List(c.UserContext(), filter, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(properties)
}

// GetProperty handles GET /api/properties/:id
func (s *Server) GetProperty(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	property, err := s.propertyService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(property)
}

// CreateProperty handles POST /api/properties
// @Summary List a new property
// @Tags properties
// @Accept json
// @Produce json
// @Param request body PropertyRequest true "Property"
// @Success 201 {object} models.Property
// @Router /properties [post]
func (s *Server) CreateProperty(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	var req PropertyRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	in, err := req.toInput()
	if err != nil {
		return respondError(c, err)
	}
	property, err := s.propertyService.Create(c.UserContext(), actor, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(property)
}

// UpdateProperty handles PUT /api/properties/:id
func (s *Server) UpdateProperty(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req PropertyRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	in, err := req.toInput()
	if err != nil {
		return respondError(c, err)
	}
	property, err := s.propertyService.Update(c.UserContext(), actor, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(property)
}

// DeleteProperty handles DELETE /api/properties/:id
func (s *Server) DeleteProperty(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.propertyService.Delete(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
