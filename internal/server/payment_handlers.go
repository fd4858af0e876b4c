package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/service"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/validation"
)

// RequestPaymentRequest is the body of POST /api/payments.
type RequestPaymentRequest struct {
	Type          models.PaymentType `json:"type"`
	LeaseID       *uint              `json:"lease_id,omitempty"`
	ApplicationID *uint              `json:"application_id,omitempty"`
	Amount        models.MoneyInput  `json:"amount"`
}

// QuoteRequest is the body of POST /api/payments/quote.
type QuoteRequest struct {
	Amount        models.MoneyInput  `json:"amount"`
	ProcessingFee *models.MoneyInput `json:"processing_fee,omitempty"`
}

// RequestPayment handles POST /api/payments
// @Summary Request a payment against a lease or application
// @Tags payments
// @Accept json
// @Produce json
// @Param request body RequestPaymentRequest true "Payment"
// @Success 201 {object} models.Payment
// @Failure 502 {object} models.ErrorResponse
// @Router /payments [post]
func (s *Server) RequestPayment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	var req RequestPaymentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	var v validation.Collect
	amount := money(&v, "amount", req.Amount)
	if err := v.Err(); err != nil {
		return respondError(c, err)
	}
	// minor units without a currency take the lease or applicant currency
	if req.Amount.Currency == "" && req.Amount.Amount != nil {
		amount.Currency = ""
	}

	payment, err := s.paymentService.Request(c.UserContext(), actor, service.RequestPaymentInput{
		Type:          req.Type,
		LeaseID:       req.LeaseID,
		ApplicationID: req.ApplicationID,
		Amount:        amount,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

// QuotePayment handles POST /api/payments/quote
// @Summary Preview the fee split for an amount
// @Tags payments
// @Accept json
// @Produce json
// @Param request body QuoteRequest true "Amount"
// @Success 200 {object} fees.Quote
// @Router /payments/quote [post]
func (s *Server) QuotePayment(c *fiber.Ctx) error {
	var req QuoteRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	var v validation.Collect
	amount := money(&v, "amount", req.Amount)
	var processing models.Money
	if fee := optionalMoney(&v, "processing_fee", req.ProcessingFee); fee != nil {
		processing = *fee
	}
	if err := v.Err(); err != nil {
		return respondError(c, err)
	}

	quote, err := s.paymentService.Quote(amount, processing)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(quote)
}

// GetLeasePayments handles GET /api/leases/:id/payments
func (s *Server) GetLeasePayments(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	payments, err := s.paymentService.ListForLease(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(payments)
}
