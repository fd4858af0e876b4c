package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/service"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/validation"
)

// SubmitApplicationRequest is the body of POST /api/applications.
type SubmitApplicationRequest struct {
	PropertyID             uint                  `json:"property_id"`
	MoveInDate             Date                  `json:"move_in_date"`
	MonthlyIncome          models.MoneyInput     `json:"monthly_income"`
	EmploymentInfo         models.EmploymentInfo `json:"employment_info"`
	References             []models.Reference    `json:"references"`
	Documents              []models.Document     `json:"documents"`
	CreditCheckConsent     bool                  `json:"credit_check_consent"`
	BackgroundCheckConsent bool                  `json:"background_check_consent"`
	Notes                  string                `json:"notes"`
}

// UpdateApplicationStatusRequest is the body of PATCH /api/applications/:id/status.
type UpdateApplicationStatusRequest struct {
	Status        models.ApplicationStatus `json:"status" validate:"required,oneof=APPROVED REJECTED WITHDRAWN"`
	LandlordNotes string                   `json:"landlord_notes" validate:"max=2000"`
}

// ReviewRequest carries the optional note on approve and reject.
type ReviewRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// SubmitApplication handles POST /api/applications
// @Summary Submit a rental application
// @Tags applications
// @Accept json
// @Produce json
// @Param request body SubmitApplicationRequest true "Application"
// @Success 201 {object} models.Application
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /applications [post]
func (s *Server) SubmitApplication(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	var req SubmitApplicationRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	var v validation.Collect
	income := money(&v, "monthly_income", req.MonthlyIncome)
	if err := v.Err(); err != nil {
		return respondError(c, err)
	}

	app, err := s.applicationService.Submit(c.UserContext(), actor, service.SubmitApplicationInput{
		PropertyID:             req.PropertyID,
		MoveInDate:             req.MoveInDate.Time,
		MonthlyIncome:          income,
		EmploymentInfo:         req.EmploymentInfo,
		References:             req.References,
		Documents:              req.Documents,
		CreditCheckConsent:     req.CreditCheckConsent,
		BackgroundCheckConsent: req.BackgroundCheckConsent,
		Notes:                  req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(app)
}

// GetApplication handles GET /api/applications/:id
// @Summary Get an application
// @Tags applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} models.Application
// @Router /applications/{id} [get]
func (s *Server) GetApplication(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	app, err := s.applicationService.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}

// GetMyApplications handles GET /api/applications/me
func (s *Server) GetMyApplications(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	apps, err := s.applicationService.ListMine(c.UserContext(), actor, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(apps)
}

// GetPropertyApplications handles GET /api/properties/:id/applications?status=
func (s *Server) GetPropertyApplications(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	status := models.ApplicationStatus(c.Query("status"))
	apps, err := s.applicationService.ListForProperty(c.UserContext(), actor, id, status, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(apps)
}

// UpdateApplicationStatus handles PATCH /api/applications/:id/status
// @Summary Approve, reject or withdraw an application
// @Tags applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param request body UpdateApplicationStatusRequest true "Status change"
// @Success 200 {object} models.Application
// @Failure 409 {object} models.ErrorResponse
// @Router /applications/{id}/status [patch]
func (s *Server) UpdateApplicationStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req UpdateApplicationStatusRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := validation.Struct(req); err != nil {
		return respondError(c, err)
	}

	app, err := s.applicationService.UpdateStatus(c.UserContext(), actor, id, req.Status, req.LandlordNotes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}

// ApproveApplication handles POST /api/applications/:id/approve
func (s *Server) ApproveApplication(c *fiber.Ctx) error {
	return s.reviewApplication(c, s.applicationService.Approve)
}

// RejectApplication handles POST /api/applications/:id/reject
func (s *Server) RejectApplication(c *fiber.Ctx) error {
	return s.reviewApplication(c, s.applicationService.Reject)
}

type reviewFunc func(ctx context.Context, actor models.Actor, id uint, note string) (*models.Application, error)

func (s *Server) reviewApplication(c *fiber.Ctx, review reviewFunc) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req ReviewRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}
	if err := validation.Struct(req); err != nil {
		return respondError(c, err)
	}
	app, err := review(c.UserContext(), actor, id, req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}

// WithdrawApplication handles POST /api/applications/:id/withdraw
func (s *Server) WithdrawApplication(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	app, err := s.applicationService.Withdraw(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}

// InitiateBackgroundCheck handles POST /api/applications/:id/background-check
// @Summary Start the background check for an application
// @Tags applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 202 {object} models.Application
// @Failure 502 {object} models.ErrorResponse
// @Router /applications/{id}/background-check [post]
func (s *Server) InitiateBackgroundCheck(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	app, err := s.applicationService.InitiateBackgroundCheck(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(app)
}

// GetApplicationScreening handles GET /api/applications/:id/screening
// @Summary Income-to-rent screening for an application
// @Tags applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} service.ScreeningView
// @Router /applications/{id}/screening [get]
func (s *Server) GetApplicationScreening(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.applicationService.Screening(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}
