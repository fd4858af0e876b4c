// Package effects turns lifecycle side effects into intents and hands them to
// the notification hub and the external providers.
package effects

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/gateway"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/notifications"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
)

// Kind names what an intent asks for.
type Kind string

const (
	KindNotify          Kind = "notify"
	KindPaymentIntent   Kind = "payment_intent"
	KindRefund          Kind = "refund"
	KindBackgroundCheck Kind = "background_check"
)

// Intent is one side effect requested by a lifecycle operation.
type Intent struct {
	Kind    Kind
	UserID  uint
	Event   notifications.Event
	Payment *gateway.IntentRequest
	Refund  *gateway.RefundRequest
	Check   *gateway.CheckRequest
	// Accepted receives the provider's reference once a provider call succeeds.
	Accepted func(ref string)
}

func (in Intent) accept(ref string) {
	if in.Accepted != nil && ref != "" {
		in.Accepted(ref)
	}
}

// Notify asks for event to be delivered to userID.
func Notify(userID uint, event notifications.Event) Intent {
	return Intent{Kind: KindNotify, UserID: userID, Event: event}
}

// PaymentIntent asks the payment provider to collect p. The provider's reference is
// copied onto p.GatewayRef; persisting it is up to the caller.
func PaymentIntent(p *models.Payment) Intent {
	return Intent{Kind: KindPaymentIntent, UserID: p.PayerID, Payment: &gateway.IntentRequest{
		PaymentID:      p.ID,
		PayerID:        p.PayerID,
		Type:           string(p.Type),
		Amount:         p.Amount,
		IdempotencyKey: p.IdempotencyKey,
	}, Accepted: keepGatewayRef(p)}
}

func keepGatewayRef(p *models.Payment) func(string) {
	return func(ref string) {
		if p.GatewayRef == "" {
			p.GatewayRef = ref
		}
	}
}

// Refund asks the payment provider to return refund.Amount to its payer. Like
// PaymentIntent it copies the provider's reference onto refund.GatewayRef.
func Refund(refund *models.Payment, reason string) Intent {
	var leaseID uint
	if refund.LeaseID != nil {
		leaseID = *refund.LeaseID
	}
	return Intent{Kind: KindRefund, UserID: refund.PayerID, Refund: &gateway.RefundRequest{
		PaymentID:      refund.ID,
		LeaseID:        leaseID,
		PayeeID:        refund.PayerID,
		Amount:         refund.Amount,
		Reason:         reason,
		IdempotencyKey: refund.IdempotencyKey,
	}, Accepted: keepGatewayRef(refund)}
}

// BackgroundCheck asks the screening provider to check app's applicant.
func BackgroundCheck(app *models.Application, idempotencyKey string) Intent {
	return Intent{Kind: KindBackgroundCheck, UserID: app.ApplicantID, Check: &gateway.CheckRequest{
		ApplicationID:  app.ID,
		ApplicantID:    app.ApplicantID,
		CreditConsent:  app.CreditCheckConsent,
		IdempotencyKey: idempotencyKey,
	}, Accepted: func(ref string) { app.BackgroundCheckRef = ref }}
}

// Dispatcher delivers intents. Notification failures are logged and dropped;
// provider failures are returned as EXTERNAL_SERVICE_ERROR and never retried here.
type Dispatcher struct {
	publisher notifications.Publisher
	payments  gateway.PaymentGateway
	screening gateway.ScreeningProvider
}

// NewDispatcher wires the collaborators. Any of them may be nil, in which case the
// matching intents fail (providers) or are skipped (notifications).
func NewDispatcher(publisher notifications.Publisher, payments gateway.PaymentGateway, screening gateway.ScreeningProvider) *Dispatcher {
	return &Dispatcher{publisher: publisher, payments: payments, screening: screening}
}

// Dispatch delivers intents in order and stops at the first provider failure.
func (d *Dispatcher) Dispatch(ctx context.Context, intents ...Intent) error {
	for _, in := range intents {
		err := d.dispatchOne(ctx, in)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		observability.EffectsDispatched.WithLabelValues(string(in.Kind), outcome).Inc()

		if err == nil {
			continue
		}
		if in.Kind == KindNotify {
			middleware.Logger.WarnContext(ctx, "notification delivery failed",
				slog.Uint64("user_id", uint64(in.UserID)),
				slog.String("event", in.Event.Type),
				slog.String("error", err.Error()),
			)
			continue
		}
		return err
	}
	return nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, in Intent) error {
	switch in.Kind {
	case KindNotify:
		if d.publisher == nil || in.UserID == 0 {
			return nil
		}
		return d.publisher.PublishEvent(ctx, in.UserID, in.Event)

	case KindPaymentIntent:
		if d.payments == nil || in.Payment == nil {
			return models.NewExternalServiceError(gateway.ServicePayments, fmt.Errorf("payment gateway not configured"))
		}
		resp, err := d.payments.CreateIntent(ctx, *in.Payment)
		if err != nil {
			return models.NewExternalServiceError(gateway.ServicePayments, err)
		}
		if resp != nil {
			in.accept(resp.GatewayRef)
		}
		return nil

	case KindRefund:
		if d.payments == nil || in.Refund == nil {
			return models.NewExternalServiceError(gateway.ServicePayments, fmt.Errorf("payment gateway not configured"))
		}
		resp, err := d.payments.Refund(ctx, *in.Refund)
		if err != nil {
			return models.NewExternalServiceError(gateway.ServicePayments, err)
		}
		if resp != nil {
			in.accept(resp.GatewayRef)
		}
		return nil

	case KindBackgroundCheck:
		if d.screening == nil || in.Check == nil {
			return models.NewExternalServiceError(gateway.ServiceScreening, fmt.Errorf("screening provider not configured"))
		}
		resp, err := d.screening.RequestCheck(ctx, *in.Check)
		if err != nil {
			return models.NewExternalServiceError(gateway.ServiceScreening, err)
		}
		if resp != nil {
			in.accept(resp.Reference)
		}
		return nil
	}
	return models.NewInternalError(fmt.Errorf("unknown effect kind %q", in.Kind))
}
