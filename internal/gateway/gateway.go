// Package gateway provides clients for the payment and screening providers the
// lifecycle hands work to. Providers report outcomes back through webhooks.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
)

const (
	ServicePayments  = "payments"
	ServiceScreening = "screening"
)

// IntentRequest asks the payment provider to collect a payment.
type IntentRequest struct {
	PaymentID      uint         `json:"payment_id"`
	PayerID        uint         `json:"payer_id"`
	Type           string       `json:"type"`
	Amount         models.Money `json:"amount"`
	IdempotencyKey string       `json:"idempotency_key"`
}

// IntentResponse is the provider's acknowledgement.
type IntentResponse struct {
	GatewayRef string `json:"gateway_ref"`
	Status     string `json:"status"`
}

// RefundRequest asks the provider to return money to a payer.
type RefundRequest struct {
	PaymentID      uint         `json:"payment_id"`
	LeaseID        uint         `json:"lease_id"`
	PayeeID        uint         `json:"payee_id"`
	Amount         models.Money `json:"amount"`
	Reason         string       `json:"reason,omitempty"`
	IdempotencyKey string       `json:"idempotency_key"`
}

// RefundResponse is the provider's acknowledgement.
type RefundResponse struct {
	GatewayRef string `json:"gateway_ref"`
}

// CheckRequest asks the screening provider to run a background check.
type CheckRequest struct {
	ApplicationID  uint   `json:"application_id"`
	ApplicantID    uint   `json:"applicant_id"`
	CreditConsent  bool   `json:"credit_check_consent"`
	IdempotencyKey string `json:"idempotency_key"`
}

// CheckResponse is the provider's acknowledgement.
type CheckResponse struct {
	Reference string `json:"reference"`
}

// PaymentGateway collects and refunds payments.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResponse, error)
}

// ScreeningProvider runs background checks.
type ScreeningProvider interface {
	RequestCheck(ctx context.Context, req CheckRequest) (*CheckResponse, error)
}

// LogGateway accepts every request and only logs it. It is used when no provider
// URL is configured.
type LogGateway struct{}

func (LogGateway) CreateIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error) {
	middleware.Logger.InfoContext(ctx, "payment intent (no provider configured)",
		slog.Uint64("payment_id", uint64(req.PaymentID)),
		slog.String("amount", req.Amount.DisplayString()),
	)
	return &IntentResponse{GatewayRef: "local-" + req.IdempotencyKey, Status: "PENDING"}, nil
}

func (LogGateway) Refund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	middleware.Logger.InfoContext(ctx, "refund (no provider configured)",
		slog.Uint64("payment_id", uint64(req.PaymentID)),
		slog.Uint64("lease_id", uint64(req.LeaseID)),
		slog.String("amount", req.Amount.DisplayString()),
	)
	return &RefundResponse{GatewayRef: "local-" + req.IdempotencyKey}, nil
}

func (LogGateway) RequestCheck(ctx context.Context, req CheckRequest) (*CheckResponse, error) {
	middleware.Logger.InfoContext(ctx, "background check (no provider configured)",
		slog.Uint64("application_id", uint64(req.ApplicationID)),
	)
	return &CheckResponse{Reference: "local-" + req.IdempotencyKey}, nil
}

// Options configure the HTTP clients.
type Options struct {
	PaymentsBaseURL  string
	ScreeningBaseURL string
	APIKey           string
	Timeout          time.Duration
	RatePerSecond    float64
}

// New returns the payment gateway and screening provider described by opts,
// falling back to LogGateway for any provider without a base URL.
func New(opts Options) (PaymentGateway, ScreeningProvider) {
	var payments PaymentGateway = LogGateway{}
	var screening ScreeningProvider = LogGateway{}
	if opts.PaymentsBaseURL != "" {
		payments = NewPaymentClient(NewHTTPClient(ServicePayments, opts.PaymentsBaseURL, opts))
	}
	if opts.ScreeningBaseURL != "" {
		screening = NewScreeningClient(NewHTTPClient(ServiceScreening, opts.ScreeningBaseURL, opts))
	}
	return payments, screening
}
