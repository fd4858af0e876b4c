package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/service"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/validation"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Signature"

// ScreeningWebhook is the provider's report for one background check.
type ScreeningWebhook struct {
	ApplicationID uint                         `json:"application_id" validate:"required"`
	Status        models.BackgroundCheckStatus `json:"status" validate:"required,oneof=COMPLETED FAILED"`
	Reference     string                       `json:"reference,omitempty"`
}

// PaymentWebhook is the gateway's settlement report for one payment.
type PaymentWebhook struct {
	PaymentID     uint                 `json:"payment_id,omitempty"`
	GatewayRef    string               `json:"gateway_ref,omitempty"`
	Status        models.PaymentStatus `json:"status"`
	ProcessingFee *models.MoneyInput   `json:"processing_fee,omitempty"`
}

// SignBody returns the signature a provider sends for body.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookSignatureRequired rejects webhook deliveries whose X-Signature does not
// match the body. An empty secret disables the check; config validation forbids
// that in production.
func WebhookSignatureRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			middleware.Logger.WarnContext(c.UserContext(), "webhook signature check disabled",
				slog.String("path", c.Path()))
			return c.Next()
		}
		got, err := hex.DecodeString(strings.TrimPrefix(c.Get(SignatureHeader), "sha256="))
		if err != nil || len(got) == 0 {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Missing or malformed webhook signature"))
		}
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(c.Body())
		if !hmac.Equal(got, mac.Sum(nil)) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid webhook signature"))
		}
		return c.Next()
	}
}

// HandleScreeningWebhook handles POST /api/webhooks/screening
// @Summary Background check result from the screening provider
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Signature header string true "hex HMAC-SHA256 of the body"
// @Param request body ScreeningWebhook true "Result"
// @Success 200 {object} models.Application
// @Router /webhooks/screening [post]
func (s *Server) HandleScreeningWebhook(c *fiber.Ctx) error {
	var req ScreeningWebhook
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := validation.Struct(req); err != nil {
		return respondError(c, err)
	}
	app, err := s.applicationService.RecordBackgroundCheckResult(c.UserContext(), models.SystemActor(), req.ApplicationID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}

// HandlePaymentWebhook handles POST /api/webhooks/payments
// @Summary Settlement result from the payment gateway
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Signature header string true "hex HMAC-SHA256 of the body"
// @Param request body PaymentWebhook true "Result"
// @Success 200 {object} models.Payment
// @Router /webhooks/payments [post]
func (s *Server) HandlePaymentWebhook(c *fiber.Ctx) error {
	var req PaymentWebhook
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	var v validation.Collect
	fee := optionalMoney(&v, "processing_fee", req.ProcessingFee)
	if err := v.Err(); err != nil {
		return respondError(c, err)
	}
	payment, err := s.paymentService.RecordResult(c.UserContext(), models.SystemActor(), service.PaymentResultInput{
		PaymentID:     req.PaymentID,
		GatewayRef:    req.GatewayRef,
		Status:        req.Status,
		ProcessingFee: fee,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(payment)
}
