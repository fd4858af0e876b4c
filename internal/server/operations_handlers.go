package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/service"
)

// InspectionTransitionRequest is the body of POST /api/inspections/:id/transition.
type InspectionTransitionRequest struct {
	Status   models.InspectionStatus `json:"status"`
	Findings string                  `json:"findings,omitempty"`
}

// MaintenanceTransitionRequest is the body of POST /api/maintenance/:id/transition.
type MaintenanceTransitionRequest struct {
	Status models.MaintenanceStatus `json:"status"`
}

// AssignVendorRequest is the body of POST /api/maintenance/:id/assign.
type AssignVendorRequest struct {
	VendorID uint `json:"vendor_id"`
}

// GetVendors handles GET /api/vendors?trade=&active=true
func (s *Server) GetVendors(c *fiber.Ctx) error {
	vendors, err := s.vendorService.List(c.UserContext(), c.Query("trade"), c.QueryBool("active", false), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(vendors)
}

// GetVendor handles GET /api/vendors/:id
func (s *Server) GetVendor(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	vendor, err := s.vendorService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(vendor)
}

// CreateVendor handles POST /api/vendors
func (s *Server) CreateVendor(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	var in service.VendorInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	vendor, err := s.vendorService.Create(c.UserContext(), actor, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(vendor)
}

// UpdateVendor handles PUT /api/vendors/:id
func (s *Server) UpdateVendor(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.VendorInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	vendor, err := s.vendorService.Update(c.UserContext(), actor, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(vendor)
}

// ScheduleInspection handles POST /api/inspections
// @Summary Schedule a property inspection
// @Tags inspections
// @Accept json
// @Produce json
// @Param request body service.ScheduleInspectionInput true "Inspection"
// @Success 201 {object} models.Inspection
// @Router /inspections [post]
func (s *Server) ScheduleInspection(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	var in service.ScheduleInspectionInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	inspection, err := s.inspectionService.Schedule(c.UserContext(), actor, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inspection)
}

// GetInspection handles GET /api/inspections/:id
func (s *Server) GetInspection(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	inspection, err := s.inspectionService.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inspection)
}

// GetPropertyInspections handles GET /api/properties/:id/inspections
func (s *Server) GetPropertyInspections(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	inspections, err := s.inspectionService.ListForProperty(c.UserContext(), actor, id, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inspections)
}

// TransitionInspection handles POST /api/inspections/:id/transition
func (s *Server) TransitionInspection(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req InspectionTransitionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	inspection, err := s.inspectionService.Transition(c.UserContext(), actor, id, req.Status, req.Findings)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inspection)
}

// CreateMaintenanceRequest handles POST /api/maintenance
// @Summary Open a maintenance request
// @Tags maintenance
// @Accept json
// @Produce json
// @Param request body service.CreateMaintenanceInput true "Request"
// @Success 201 {object} models.MaintenanceRequest
// @Router /maintenance [post]
func (s *Server) CreateMaintenanceRequest(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	var in service.CreateMaintenanceInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	req, err := s.maintenanceService.Create(c.UserContext(), actor, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// GetMaintenanceRequest handles GET /api/maintenance/:id
func (s *Server) GetMaintenanceRequest(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.maintenanceService.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}

// GetPropertyMaintenance handles GET /api/properties/:id/maintenance?status=
func (s *Server) GetPropertyMaintenance(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	status := models.MaintenanceStatus(c.Query("status"))
	reqs, err := s.maintenanceService.ListForProperty(c.UserContext(), actor, id, status, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reqs)
}

// AssignMaintenanceVendor handles POST /api/maintenance/:id/assign
func (s *Server) AssignMaintenanceVendor(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req AssignVendorRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.VendorID == 0 {
		return respondError(c, models.NewFieldValidationError(models.FieldError{Field: "vendor_id", Reason: "required"}))
	}
	mr, err := s.maintenanceService.AssignVendor(c.UserContext(), actor, id, req.VendorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(mr)
}

// TransitionMaintenanceRequest handles POST /api/maintenance/:id/transition
func (s *Server) TransitionMaintenanceRequest(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req MaintenanceTransitionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	mr, err := s.maintenanceService.Transition(c.UserContext(), actor, id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(mr)
}
