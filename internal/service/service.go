// Package service implements the rental lifecycle operations on top of the
// repositories, the pure lifecycle engine and the fee calculator. Every operation
// takes an explicit actor, loads current state, authorizes, runs the engine,
// persists with a version check and then emits side-effect intents.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/effects"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/featureflags"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/fees"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/lifecycle"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/repository"
)

// EffectDispatcher delivers side-effect intents after (or, for screening, before) a write.
type EffectDispatcher interface {
	Dispatch(ctx context.Context, intents ...effects.Intent) error
}

// Deps bundles what the lifecycle services need.
type Deps struct {
	Properties   repository.PropertyRepository
	Applications repository.ApplicationRepository
	Leases       repository.LeaseRepository
	Payments     repository.PaymentRepository
	Fees         *fees.Calculator
	Flags        *featureflags.Manager
	Effects      EffectDispatcher
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
	// NewKey generates idempotency keys; defaults to uuid.NewString.
	NewKey func() string
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewKey == nil {
		d.NewKey = uuid.NewString
	}
	if d.Fees == nil {
		calc, _ := fees.NewCalculator(fees.DefaultPolicy())
		d.Fees = calc
	}
	return d
}

func (d Deps) today() time.Time {
	return lifecycle.DateOnly(d.Now().UTC())
}

// ScreeningView is what a landlord sees when judging an application's affordability.
type ScreeningView struct {
	ApplicationID uint                 `json:"application_id"`
	MonthlyIncome models.Money         `json:"monthly_income"`
	MonthlyRent   models.Money         `json:"monthly_rent"`
	Screening     fees.Classification  `json:"screening"`
}

func forbidden(action string) error {
	return models.NewForbiddenError("you are not allowed to " + action)
}

// canManageProperty reports whether actor may act as the property's landlord.
func canManageProperty(actor models.Actor, p *models.Property) bool {
	return actor.IsPrivileged() || p.OwnedBy(actor)
}

func requireSystem(actor models.Actor, action string) error {
	if actor.IsPrivileged() {
		return nil
	}
	return forbidden(action)
}

func logTransition(ctx context.Context, actor models.Actor, entity string, id uint, from, to string) {
	observability.LogTransition(ctx, entity, id, from, to, actor.ID, string(actor.Role))
}

func rejected(operation string, err error) error {
	if err != nil {
		observability.RejectedOperationsTotal.WithLabelValues(operation, models.ErrorCode(err)).Inc()
	}
	return err
}

func newPayment(d Deps, payer uint, leaseID, appID *uint, t models.PaymentType, amount models.Money) (*models.Payment, error) {
	p := &models.Payment{
		LeaseID:        leaseID,
		ApplicationID:  appID,
		PayerID:        payer,
		Type:           t,
		Status:         models.PaymentPending,
		Amount:         amount,
		PlatformFee:    models.NewMoney(0, amount.Cur()),
		ProcessingFee:  models.NewMoney(0, amount.Cur()),
		LandlordNet:    models.NewMoney(0, amount.Cur()),
		IdempotencyKey: d.NewKey(),
	}
	if t == models.PaymentDepositRefund {
		return p, nil
	}
	fee, err := d.Fees.PlatformFee(amount)
	if err != nil {
		return nil, err
	}
	p.PlatformFee = fee
	return p, nil
}

// failPayment marks a payment FAILED after its provider call errored and returns
// the provider error. The write is best effort; the provider error wins.
func failPayment(ctx context.Context, payments repository.PaymentRepository, p *models.Payment, cause error) error {
	p.Status = models.PaymentFailed
	if err := payments.Update(ctx, p); err != nil {
		return fmt.Errorf("%w (marking payment %d failed: %v)", cause, p.ID, err)
	}
	observability.PaymentsRecorded.WithLabelValues(string(p.Type), string(p.Status)).Inc()
	return cause
}

// storeGatewayRef persists the reference the provider returned for p so its webhook
// can settle the payment by gateway_ref alone. The provider already accepted the
// request, so a failed write is logged rather than returned.
func storeGatewayRef(ctx context.Context, payments repository.PaymentRepository, p *models.Payment) {
	if p.GatewayRef == "" {
		return
	}
	if err := payments.Update(ctx, p); err != nil {
		middleware.Logger.WarnContext(ctx, "could not store gateway reference",
			slog.Uint64("payment_id", uint64(p.ID)),
			slog.String("gateway_ref", p.GatewayRef),
			slog.String("error", err.Error()),
		)
	}
}
