package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/effects"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/fees"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/lifecycle"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/notifications"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/validation"
)

const entityPayment = "payment"

// RequestPaymentInput asks for a new payment against a lease or an application.
type RequestPaymentInput struct {
	Type          models.PaymentType `json:"type" validate:"required,oneof=APPLICATION_FEE SECURITY_DEPOSIT MONTHLY_RENT FIRST_MONTH_RENT"`
	LeaseID       *uint              `json:"lease_id,omitempty"`
	ApplicationID *uint              `json:"application_id,omitempty"`
	Amount        models.Money       `json:"amount"`
}

// PaymentResultInput is a gateway settlement report. Either PaymentID or GatewayRef
// identifies the payment.
type PaymentResultInput struct {
	PaymentID     uint                 `json:"payment_id,omitempty"`
	GatewayRef    string               `json:"gateway_ref,omitempty"`
	Status        models.PaymentStatus `json:"status" validate:"required,oneof=SUCCEEDED FAILED REFUNDED"`
	ProcessingFee *models.Money        `json:"processing_fee,omitempty"`
}

// PaymentService records payments and applies gateway results to them.
type PaymentService struct {
	deps Deps
}

// NewPaymentService creates a new payment service
func NewPaymentService(deps Deps) *PaymentService {
	return &PaymentService{deps: deps.withDefaults()}
}

// Quote previews the fee split for an amount.
func (s *PaymentService) Quote(amount, processingFee models.Money) (*fees.Quote, error) {
	if !amount.IsPositive() {
		return nil, models.NewFieldValidationError(models.FieldError{Field: "amount", Reason: "must be greater than zero"})
	}
	if processingFee.Currency == "" {
		processingFee = models.NewMoney(processingFee.Amount, amount.Cur())
	}
	if processingFee.IsNegative() {
		return nil, models.NewFieldValidationError(models.FieldError{Field: "processing_fee", Reason: "must not be negative"})
	}
	return s.deps.Fees.Quote(amount, processingFee)
}

// Request records a PENDING payment with its platform fee and asks the gateway to
// collect it. If the gateway refuses, the payment is kept as FAILED.
func (s *PaymentService) Request(ctx context.Context, actor models.Actor, in RequestPaymentInput) (payment *models.Payment, err error) {
	ctx, span := observability.StartOperation(ctx, entityPayment, "request", 0)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { err = rejected("payment.request", err) }()

	var c validation.Collect
	c.Merge(in)
	c.Check((in.LeaseID == nil) != (in.ApplicationID == nil), "lease_id", "exactly one of lease_id or application_id is required")
	c.Check(in.Amount.IsPositive(), "amount", "must be greater than zero")
	if in.Type == models.PaymentApplicationFee {
		c.Check(in.ApplicationID != nil, "application_id", "required for APPLICATION_FEE")
	} else if in.Type.Valid() {
		c.Check(in.LeaseID != nil, "lease_id", "required for "+string(in.Type))
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	currency, err := s.authorizeRequest(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	amount := in.Amount
	if strings.TrimSpace(amount.Currency) == "" {
		amount = models.NewMoney(amount.Amount, currency)
	}
	if amount.Cur() != currency {
		return nil, models.NewFieldValidationError(models.FieldError{Field: "amount", Reason: "currency must be " + currency})
	}

	payment, err = newPayment(s.deps, actor.ID, in.LeaseID, in.ApplicationID, in.Type, amount)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	observability.PaymentsRecorded.WithLabelValues(string(payment.Type), string(payment.Status)).Inc()
	logTransition(ctx, actor, entityPayment, payment.ID, "", string(payment.Status))

	if err := s.deps.Effects.Dispatch(ctx, effects.PaymentIntent(payment)); err != nil {
		return payment, failPayment(ctx, s.deps.Payments, payment, err)
	}
	storeGatewayRef(ctx, s.deps.Payments, payment)
	return payment, nil
}

// authorizeRequest checks that the actor pays for something of theirs and returns
// the currency the payment must use.
func (s *PaymentService) authorizeRequest(ctx context.Context, actor models.Actor, in RequestPaymentInput) (string, error) {
	if actor.Role != models.RoleRenter {
		return "", forbidden("request payments; only renters pay")
	}
	if in.ApplicationID != nil {
		app, err := s.deps.Applications.GetByID(ctx, *in.ApplicationID)
		if err != nil {
			return "", err
		}
		if app.ApplicantID != actor.ID {
			return "", forbidden("pay for this application")
		}
		if app.Status.IsTerminal() && app.Status != models.ApplicationApproved {
			return "", models.NewPreconditionFailedError("cannot pay a fee for a " + string(app.Status) + " application")
		}
		return app.MonthlyIncome.Cur(), nil
	}

	lease, err := s.deps.Leases.GetByID(ctx, *in.LeaseID)
	if err != nil {
		return "", err
	}
	if lease.TenantID != actor.ID {
		return "", forbidden("pay for this lease")
	}
	if lease.Status != models.LeaseActive {
		return "", models.NewPreconditionFailedError("payments can only be requested for an ACTIVE lease; this one is " + string(lease.Status))
	}
	return lease.MonthlyRent.Cur(), nil
}

// RecordResult applies a gateway settlement report. Reporting the status a payment
// already has is a no-op so redelivered webhooks are harmless.
func (s *PaymentService) RecordResult(ctx context.Context, actor models.Actor, in PaymentResultInput) (payment *models.Payment, err error) {
	ctx, span := observability.StartOperation(ctx, entityPayment, "record_result", in.PaymentID)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { err = rejected("payment.record_result", err) }()

	if err := requireSystem(actor, "record payment results"); err != nil {
		return nil, err
	}
	var c validation.Collect
	c.Merge(in)
	c.Check(in.PaymentID != 0 || in.GatewayRef != "", "payment_id", "payment_id or gateway_ref is required")
	if err := c.Err(); err != nil {
		return nil, err
	}

	if in.PaymentID != 0 {
		payment, err = s.deps.Payments.GetByID(ctx, in.PaymentID)
	} else {
		payment, err = s.deps.Payments.GetByGatewayRef(ctx, in.GatewayRef)
	}
	if err != nil {
		return nil, err
	}
	if in.GatewayRef != "" && payment.GatewayRef != "" && payment.GatewayRef != in.GatewayRef {
		return nil, models.NewPreconditionFailedError("gateway_ref does not match the payment")
	}
	if payment.Status == in.Status {
		return payment, nil
	}

	from := payment.Status
	next, err := lifecycle.TransitionPayment(from, in.Status)
	if err != nil {
		return nil, err
	}
	payment.Status = next
	if payment.GatewayRef == "" {
		payment.GatewayRef = in.GatewayRef
	}
	if next == models.PaymentSucceeded {
		if err := s.settle(payment, in.ProcessingFee); err != nil {
			return nil, err
		}
	}
	if err := s.deps.Payments.Update(ctx, payment); err != nil {
		return nil, err
	}
	observability.PaymentsRecorded.WithLabelValues(string(payment.Type), string(payment.Status)).Inc()
	logTransition(ctx, actor, entityPayment, payment.ID, string(from), string(next))

	if next == models.PaymentSucceeded && payment.Type == models.PaymentDepositRefund {
		s.markDepositRefunded(ctx, actor, payment)
	}

	ev := notifications.NewEvent(notifications.EventPaymentSettled, entityPayment, payment.ID, map[string]any{
		"type":   string(payment.Type),
		"status": string(payment.Status),
		"amount": payment.Amount,
	})
	if err := s.deps.Effects.Dispatch(ctx, effects.Notify(payment.PayerID, ev)); err != nil {
		return payment, err
	}
	return payment, nil
}

// settle fills in the processing fee and, for money flowing to the landlord, the net payout.
func (s *PaymentService) settle(p *models.Payment, processingFee *models.Money) error {
	proc := models.NewMoney(0, p.Amount.Cur())
	if processingFee != nil {
		proc = *processingFee
		if proc.Currency == "" {
			proc = models.NewMoney(proc.Amount, p.Amount.Cur())
		}
		if proc.IsNegative() {
			return models.NewFieldValidationError(models.FieldError{Field: "processing_fee", Reason: "must not be negative"})
		}
	}
	p.ProcessingFee = proc
	if p.Type == models.PaymentDepositRefund {
		return nil
	}
	net, err := s.deps.Fees.LandlordNet(p.Amount, proc)
	if err != nil {
		return err
	}
	p.LandlordNet = net
	return nil
}

// markDepositRefunded flips the lease's settled deposit to REFUNDED once its refund
// has gone through. Failures are logged; the refund itself is already recorded.
func (s *PaymentService) markDepositRefunded(ctx context.Context, actor models.Actor, refund *models.Payment) {
	if refund.LeaseID == nil {
		return
	}
	deposit, err := s.deps.Payments.FindLatest(ctx, *refund.LeaseID, models.PaymentSecurityDeposit, models.PaymentSucceeded)
	if err != nil || deposit == nil {
		return
	}
	next, err := lifecycle.TransitionPayment(deposit.Status, models.PaymentRefunded)
	if err == nil {
		deposit.Status = next
		err = s.deps.Payments.Update(ctx, deposit)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "could not mark deposit refunded",
			slog.Uint64("payment_id", uint64(deposit.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.PaymentsRecorded.WithLabelValues(string(deposit.Type), string(deposit.Status)).Inc()
	logTransition(ctx, actor, entityPayment, deposit.ID, string(models.PaymentSucceeded), string(deposit.Status))
}

// ListForLease lists a lease's payments for either party.
func (s *PaymentService) ListForLease(ctx context.Context, actor models.Actor, leaseID uint) ([]models.Payment, error) {
	lease, err := s.deps.Leases.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() && !lease.IsParty(actor) {
		return nil, forbidden("view payments for this lease")
	}
	return s.deps.Payments.ListByLease(ctx, leaseID)
}
