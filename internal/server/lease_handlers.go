package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/service"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/validation"
)

const defaultExpiringWindowDays = 30

// CreateLeaseRequest is the body of POST /api/applications/:id/lease.
type CreateLeaseRequest struct {
	StartDate       Date               `json:"start_date"`
	EndDate         Date               `json:"end_date"`
	MonthlyRent     *models.MoneyInput `json:"monthly_rent,omitempty"`
	SecurityDeposit *models.MoneyInput `json:"security_deposit,omitempty"`
	DocumentURL     string             `json:"document_url,omitempty"`
	Terms           map[string]any     `json:"terms,omitempty"`
}

// UpdateLeaseRequest is the body of PATCH /api/leases/:id.
type UpdateLeaseRequest struct {
	Status      *models.LeaseStatus `json:"status,omitempty"`
	DocumentURL *string             `json:"document_url,omitempty"`
}

// TerminateLeaseRequest is the body of POST /api/leases/:id/terminate.
type TerminateLeaseRequest struct {
	TerminationDate Date   `json:"termination_date"`
	Reason          string `json:"reason"`
	RefundDeposit   bool   `json:"refund_deposit"`
}

// RenewLeaseRequest is the body of POST /api/leases/:id/renew.
type RenewLeaseRequest struct {
	NewEndDate     Date               `json:"new_end_date"`
	NewMonthlyRent *models.MoneyInput `json:"new_monthly_rent,omitempty"`
	RenewalTerms   map[string]any     `json:"renewal_terms,omitempty"`
}

// CreateLease handles POST /api/applications/:id/lease
// @Summary Draft a lease from an approved application
// @Tags leases
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param request body CreateLeaseRequest true "Lease terms"
// @Success 201 {object} models.Lease
// @Failure 409 {object} models.ErrorResponse
// @Router /applications/{id}/lease [post]
func (s *Server) CreateLease(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	applicationID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req CreateLeaseRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	var v validation.Collect
	in := service.CreateLeaseInput{
		StartDate:   req.StartDate.Time,
		EndDate:     req.EndDate.Time,
		MonthlyRent: optionalMoney(&v, "monthly_rent", req.MonthlyRent),
		DocumentURL: req.DocumentURL,
		Terms:       req.Terms,
	}
	if deposit := optionalMoney(&v, "security_deposit", req.SecurityDeposit); deposit != nil {
		in.SecurityDeposit = *deposit
	}
	if err := v.Err(); err != nil {
		return respondError(c, err)
	}

	lease, err := s.leaseService.Create(c.UserContext(), actor, applicationID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lease)
}

// GetLease handles GET /api/leases/:id
// @Summary Get a lease with expiry urgency and total value
// @Tags leases
// @Produce json
// @Param id path int true "Lease ID"
// @Success 200 {object} service.LeaseView
// @Router /leases/{id} [get]
func (s *Server) GetLease(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.leaseService.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// GetPropertyLeases handles GET /api/properties/:id/leases
func (s *Server) GetPropertyLeases(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	views, err := s.leaseService.ListForProperty(c.UserContext(), actor, id, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

// GetExpiringLeases handles GET /api/leases/expiring?within_days=30
// @Summary Active leases ending soon
// @Tags leases
// @Produce json
// @Param within_days query int false "Window in days (1-365)"
// @Success 200 {array} service.LeaseView
// @Router /leases/expiring [get]
func (s *Server) GetExpiringLeases(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	views, err := s.leaseService.ListExpiring(c.UserContext(), actor, c.QueryInt("within_days", defaultExpiringWindowDays))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

// UpdateLease handles PATCH /api/leases/:id
// @Summary Move a lease through its lifecycle or attach its document
// @Tags leases
// @Accept json
// @Produce json
// @Param id path int true "Lease ID"
// @Param request body UpdateLeaseRequest true "Changes"
// @Success 200 {object} models.Lease
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /leases/{id} [patch]
func (s *Server) UpdateLease(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req UpdateLeaseRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	lease, err := s.leaseService.Update(c.UserContext(), actor, id, service.UpdateLeaseInput{
		Status:      req.Status,
		DocumentURL: req.DocumentURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(lease)
}

// TerminateLease handles POST /api/leases/:id/terminate
// @Summary Terminate a lease early
// @Tags leases
// @Accept json
// @Produce json
// @Param id path int true "Lease ID"
// @Param request body TerminateLeaseRequest true "Termination"
// @Success 200 {object} models.Lease
// @Router /leases/{id}/terminate [post]
func (s *Server) TerminateLease(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req TerminateLeaseRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	lease, err := s.leaseService.Terminate(c.UserContext(), actor, id, service.TerminateLeaseInput{
		TerminationDate: req.TerminationDate.Time,
		Reason:          req.Reason,
		RefundDeposit:   req.RefundDeposit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(lease)
}

// RenewLease handles POST /api/leases/:id/renew
// @Summary Renew a lease into a new DRAFT lease
// @Tags leases
// @Accept json
// @Produce json
// @Param id path int true "Lease ID"
// @Param request body RenewLeaseRequest true "Renewal"
// @Success 201 {object} service.RenewalResult
// @Router /leases/{id}/renew [post]
func (s *Server) RenewLease(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req RenewLeaseRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	var v validation.Collect
	rent := optionalMoney(&v, "new_monthly_rent", req.NewMonthlyRent)
	if err := v.Err(); err != nil {
		return respondError(c, err)
	}
	result, err := s.leaseService.Renew(c.UserContext(), actor, id, service.RenewLeaseInput{
		NewEndDate:     req.NewEndDate.Time,
		NewMonthlyRent: rent,
		RenewalTerms:   req.RenewalTerms,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ExpireLeases handles POST /api/admin/leases/expire and runs the expiry sweep now.
func (s *Server) ExpireLeases(c *fiber.Ctx) error {
	expired, err := s.leaseService.ExpireDue(c.UserContext(), models.SystemActor(), s.now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"expired": expired})
}
