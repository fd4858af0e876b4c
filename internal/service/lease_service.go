package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/effects"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/featureflags"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/lifecycle"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/notifications"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/repository"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/validation"
)

const (
	entityLease = "lease"
	// MaxExpiringWindowDays bounds ListExpiring.
	MaxExpiringWindowDays = 365
	expiryBatchSize       = 100
)

// CreateLeaseInput holds the terms a landlord drafts from an approved application.
type CreateLeaseInput struct {
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
	MonthlyRent     *models.Money  `json:"monthly_rent,omitempty"`
	SecurityDeposit models.Money   `json:"security_deposit"`
	DocumentURL     string         `json:"document_url,omitempty" validate:"omitempty,url"`
	Terms           map[string]any `json:"terms,omitempty"`
}

// UpdateLeaseInput changes the status and/or the document of a lease.
type UpdateLeaseInput struct {
	Status      *models.LeaseStatus `json:"status,omitempty"`
	DocumentURL *string             `json:"document_url,omitempty" validate:"omitempty,url"`
}

// TerminateLeaseInput ends a lease early.
type TerminateLeaseInput struct {
	TerminationDate time.Time `json:"termination_date"`
	Reason          string    `json:"reason" validate:"required,max=1000"`
	RefundDeposit   bool      `json:"refund_deposit"`
}

// RenewLeaseInput extends a lease by creating its successor.
type RenewLeaseInput struct {
	NewEndDate     time.Time      `json:"new_end_date"`
	NewMonthlyRent *models.Money  `json:"new_monthly_rent,omitempty"`
	RenewalTerms   map[string]any `json:"renewal_terms,omitempty"`
}

// LeaseView is a lease plus the values derived from it for display.
type LeaseView struct {
	*models.Lease
	Urgency        lifecycle.Urgency       `json:"urgency"`
	TotalValue     models.Money            `json:"total_value"`
	AllowedActions []lifecycle.LeaseAction `json:"allowed_actions"`
}

// RenewalResult returns both sides of a renewal.
type RenewalResult struct {
	Original *models.Lease `json:"original"`
	Renewal  *models.Lease `json:"renewal"`
}

// LeaseService drafts, signs, terminates, renews and expires leases.
type LeaseService struct {
	deps Deps
}

// NewLeaseService creates a new lease service
func NewLeaseService(deps Deps) *LeaseService {
	return &LeaseService{deps: deps.withDefaults()}
}

func (s *LeaseService) view(actor models.Actor, lease *models.Lease) (*LeaseView, error) {
	calendar := s.deps.Flags != nil && s.deps.Flags.EnabledFor(featureflags.CalendarProration, actor)
	total, err := s.deps.Fees.LeaseValue(lease.MonthlyRent, lease.StartDate, lease.EndDate, calendar)
	if err != nil {
		return nil, err
	}
	return &LeaseView{
		Lease:          lease,
		Urgency:        lifecycle.ExpiryUrgency(lease.EndDate, s.deps.today()),
		TotalValue:     total,
		AllowedActions: lifecycle.AllowedLeaseActions(lease.Status),
	}, nil
}

func (s *LeaseService) loadForLandlord(ctx context.Context, actor models.Actor, id uint, action string) (*models.Lease, error) {
	lease, err := s.deps.Leases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() && !(actor.Role == models.RoleLandlord && lease.LandlordID == actor.ID) {
		return nil, forbidden(action + " this lease")
	}
	return lease, nil
}

// Create drafts a lease from an APPROVED application that has none yet.
func (s *LeaseService) Create(ctx context.Context, actor models.Actor, applicationID uint, in CreateLeaseInput) (lease *models.Lease, err error) {
	ctx, span := observability.StartOperation(ctx, entityLease, "create", applicationID)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { err = rejected("lease.create", err) }()

	var c validation.Collect
	c.Merge(in)
	var termErr *models.AppError
	if errors.As(lifecycle.ValidateTerm(in.StartDate, in.EndDate), &termErr) {
		for _, f := range termErr.Fields {
			c.Add(f.Field, f.Reason)
		}
	}
	c.Check(!in.SecurityDeposit.IsNegative(), "security_deposit", "must not be negative")
	if in.MonthlyRent != nil {
		c.Check(in.MonthlyRent.IsPositive(), "monthly_rent", "must be greater than zero")
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	app, err := s.deps.Applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	property, err := s.deps.Properties.GetByID(ctx, app.PropertyID)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(actor, property) {
		return nil, forbidden("create a lease for this application")
	}
	exists, err := s.deps.Leases.ExistsForApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanCreateLease(app.Status, exists); err != nil {
		return nil, err
	}

	rent := property.RentAmount
	if in.MonthlyRent != nil {
		rent = *in.MonthlyRent
	}
	deposit := in.SecurityDeposit
	if deposit.Currency == "" {
		deposit = models.NewMoney(deposit.Amount, rent.Cur())
	}
	if !deposit.SameCurrency(rent) {
		return nil, models.NewFieldValidationError(models.FieldError{Field: "security_deposit", Reason: "currency must match the monthly rent"})
	}

	lease = &models.Lease{
		ApplicationID:   app.ID,
		PropertyID:      property.ID,
		TenantID:        app.ApplicantID,
		LandlordID:      property.LandlordID,
		Status:          models.LeaseDraft,
		StartDate:       lifecycle.DateOnly(in.StartDate),
		EndDate:         lifecycle.DateOnly(in.EndDate),
		MonthlyRent:     rent,
		SecurityDeposit: deposit,
		DocumentURL:     strings.TrimSpace(in.DocumentURL),
		Terms:           in.Terms,
		Version:         1,
	}
	// A concurrent Create for the same application loses on the unique index over
	// original leases and surfaces as CONFLICT.
	if err := s.deps.Leases.Create(ctx, lease); err != nil {
		return nil, err
	}
	logTransition(ctx, actor, entityLease, lease.ID, "", string(lease.Status))

	ev := notifications.NewEvent(notifications.EventLeaseCreated, entityLease, lease.ID, map[string]any{"application_id": app.ID})
	if err := s.deps.Effects.Dispatch(ctx, effects.Notify(lease.TenantID, ev)); err != nil {
		return lease, err
	}
	return lease, nil
}

// Get returns a lease with its urgency, total value and allowed actions.
func (s *LeaseService) Get(ctx context.Context, actor models.Actor, id uint) (*LeaseView, error) {
	lease, err := s.deps.Leases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() && !lease.IsParty(actor) {
		return nil, forbidden("view this lease")
	}
	return s.view(actor, lease)
}

// ListForProperty lists a property's leases, newest first.
func (s *LeaseService) ListForProperty(ctx context.Context, actor models.Actor, propertyID uint, page repository.Page) ([]LeaseView, error) {
	property, err := s.deps.Properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(actor, property) {
		return nil, forbidden("list leases for this property")
	}
	leases, err := s.deps.Leases.ListByProperty(ctx, propertyID, page)
	if err != nil {
		return nil, err
	}
	return s.views(actor, leases)
}

// ListExpiring returns ACTIVE leases ending within the next withinDays days. Landlords
// see their own; admins see all.
func (s *LeaseService) ListExpiring(ctx context.Context, actor models.Actor, withinDays int) ([]LeaseView, error) {
	if withinDays < 1 || withinDays > MaxExpiringWindowDays {
		return nil, models.NewFieldValidationError(models.FieldError{Field: "within_days", Reason: "must be between 1 and 365"})
	}
	var landlordID uint
	switch {
	case actor.IsPrivileged():
	case actor.Role == models.RoleLandlord:
		landlordID = actor.ID
	default:
		return nil, forbidden("list expiring leases")
	}
	today := s.deps.today()
	leases, err := s.deps.Leases.ListActiveEndingBetween(ctx, landlordID, today, today.AddDate(0, 0, withinDays))
	if err != nil {
		return nil, err
	}
	return s.views(actor, leases)
}

func (s *LeaseService) views(actor models.Actor, leases []models.Lease) ([]LeaseView, error) {
	out := make([]LeaseView, 0, len(leases))
	for i := range leases {
		v, err := s.view(actor, &leases[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// Update applies a status change and/or a new document URL. Signing (PENDING_SIGNATURE
// to ACTIVE) is done by the tenant; everything else by the landlord. Activation
// creates the deposit and first-month payments and requests them from the gateway.
func (s *LeaseService) Update(ctx context.Context, actor models.Actor, id uint, in UpdateLeaseInput) (lease *models.Lease, err error) {
	ctx, span := observability.StartOperation(ctx, entityLease, "update", id)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { err = rejected("lease.update", err) }()

	var c validation.Collect
	c.Merge(in)
	c.Check(in.Status != nil || in.DocumentURL != nil, "status", "status or document_url is required")
	if err := c.Err(); err != nil {
		return nil, err
	}

	lease, err = s.deps.Leases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	isLandlord := actor.IsPrivileged() || (actor.Role == models.RoleLandlord && lease.LandlordID == actor.ID)
	isTenant := actor.Role == models.RoleRenter && lease.TenantID == actor.ID

	from := lease.Status
	var action lifecycle.LeaseAction
	if in.Status != nil {
		action, err = lifecycle.ResolveStatusUpdate(from, *in.Status)
		if err != nil {
			return nil, err
		}
		if action == lifecycle.ActionSign {
			if !isTenant && !actor.IsPrivileged() {
				return nil, forbidden("sign this lease; only the tenant can")
			}
		} else if !isLandlord {
			return nil, forbidden("change the status of this lease")
		}
		if action == lifecycle.ActionExpire && !lifecycle.IsExpiredAt(lease, s.deps.today()) {
			return nil, models.NewPreconditionFailedError("lease cannot expire before its end date has passed")
		}
		next, err := lifecycle.TransitionLease(from, action)
		if err != nil {
			return nil, err
		}
		lease.Status = next
		if action == lifecycle.ActionSign {
			signed := s.deps.Now().UTC()
			lease.SignedAt = &signed
		}
	}
	if in.DocumentURL != nil {
		if !isLandlord {
			return nil, forbidden("change the document of this lease")
		}
		if lease.Status == models.LeaseExpired || lease.Status == models.LeaseTerminated {
			return nil, models.NewPreconditionFailedError("the document of a " + string(lease.Status) + " lease cannot change")
		}
		lease.DocumentURL = strings.TrimSpace(*in.DocumentURL)
	}

	if err := s.deps.Leases.Update(ctx, lease); err != nil {
		return nil, err
	}
	if action == "" {
		return lease, nil
	}
	logTransition(ctx, actor, entityLease, lease.ID, string(from), string(lease.Status))

	ev := notifications.NewEvent(notifications.EventLeaseStatusChanged, entityLease, lease.ID, map[string]any{
		"from": string(from),
		"to":   string(lease.Status),
	})
	if err := s.deps.Effects.Dispatch(ctx, effects.Notify(lease.TenantID, ev), effects.Notify(lease.LandlordID, ev)); err != nil {
		return lease, err
	}
	if action == lifecycle.ActionSign {
		if err := s.requestMoveInPayments(ctx, lease); err != nil {
			return lease, err
		}
	}
	return lease, nil
}

// requestMoveInPayments creates the deposit and first-month payments of a freshly
// activated lease. A refused intent marks its payment FAILED; the lease stays ACTIVE.
func (s *LeaseService) requestMoveInPayments(ctx context.Context, lease *models.Lease) error {
	leaseID := lease.ID
	var due []*models.Payment
	if lease.SecurityDeposit.IsPositive() {
		p, err := newPayment(s.deps, lease.TenantID, &leaseID, nil, models.PaymentSecurityDeposit, lease.SecurityDeposit)
		if err != nil {
			return err
		}
		due = append(due, p)
	}
	p, err := newPayment(s.deps, lease.TenantID, &leaseID, nil, models.PaymentFirstMonthRent, lease.MonthlyRent)
	if err != nil {
		return err
	}
	due = append(due, p)

	for _, p := range due {
		if err := s.deps.Payments.Create(ctx, p); err != nil {
			return err
		}
		observability.PaymentsRecorded.WithLabelValues(string(p.Type), string(p.Status)).Inc()
	}
	for _, p := range due {
		if err := s.deps.Effects.Dispatch(ctx, effects.PaymentIntent(p)); err != nil {
			return failPayment(ctx, s.deps.Payments, p, err)
		}
		storeGatewayRef(ctx, s.deps.Payments, p)
	}
	return nil
}

// Terminate ends an ACTIVE or PENDING_SIGNATURE lease. With RefundDeposit set a
// DEPOSIT_REFUND payment is recorded and sent to the gateway.
func (s *LeaseService) Terminate(ctx context.Context, actor models.Actor, id uint, in TerminateLeaseInput) (lease *models.Lease, err error) {
	ctx, span := observability.StartOperation(ctx, entityLease, "terminate", id)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { err = rejected("lease.terminate", err) }()

	var c validation.Collect
	c.Merge(in)
	c.Check(!in.TerminationDate.IsZero(), "termination_date", "required")
	if err := c.Err(); err != nil {
		return nil, err
	}

	lease, err = s.loadForLandlord(ctx, actor, id, "terminate")
	if err != nil {
		return nil, err
	}
	from := lease.Status
	next, err := lifecycle.CheckTermination(lease, in.TerminationDate, s.deps.today())
	if err != nil {
		return nil, err
	}

	if lease.Terms == nil {
		lease.Terms = map[string]interface{}{}
	}
	reason := strings.TrimSpace(in.Reason)
	lease.Terms[models.TermTerminationReason] = reason
	lease.Terms[models.TermTerminatedAt] = s.deps.Now().UTC().Format(time.RFC3339)
	lease.Terms[models.TermTerminationDate] = lifecycle.DateOnly(in.TerminationDate).Format(time.DateOnly)
	lease.Terms[models.TermRefundDeposit] = in.RefundDeposit
	lease.Status = next

	if err := s.deps.Leases.Update(ctx, lease); err != nil {
		return nil, err
	}
	logTransition(ctx, actor, entityLease, lease.ID, string(from), string(next))

	ev := notifications.NewEvent(notifications.EventLeaseTerminated, entityLease, lease.ID, map[string]any{
		"reason":           reason,
		"termination_date": lease.Terms[models.TermTerminationDate],
	})
	if err := s.deps.Effects.Dispatch(ctx, effects.Notify(lease.TenantID, ev)); err != nil {
		return lease, err
	}
	if in.RefundDeposit {
		if err := s.refundDeposit(ctx, lease, from, reason); err != nil {
			return lease, err
		}
	}
	return lease, nil
}

// refundDeposit refunds the settled deposit payment. A lease that was ACTIVE without
// a deposit collected through the platform refunds the contractual deposit instead;
// a lease that was never signed has nothing to refund.
func (s *LeaseService) refundDeposit(ctx context.Context, lease *models.Lease, from models.LeaseStatus, reason string) error {
	paid, err := s.deps.Payments.FindLatest(ctx, lease.ID, models.PaymentSecurityDeposit, models.PaymentSucceeded)
	if err != nil {
		return err
	}
	var amount models.Money
	switch {
	case paid != nil:
		amount = paid.Amount
	case from == models.LeaseActive:
		amount = lease.SecurityDeposit
	}
	if !amount.IsPositive() {
		middleware.Logger.InfoContext(ctx, "no deposit to refund", slog.Uint64("lease_id", uint64(lease.ID)))
		return nil
	}

	leaseID := lease.ID
	refund, err := newPayment(s.deps, lease.TenantID, &leaseID, nil, models.PaymentDepositRefund, amount)
	if err != nil {
		return err
	}
	if err := s.deps.Payments.Create(ctx, refund); err != nil {
		return err
	}
	observability.PaymentsRecorded.WithLabelValues(string(refund.Type), string(refund.Status)).Inc()
	if err := s.deps.Effects.Dispatch(ctx, effects.Refund(refund, reason)); err != nil {
		return failPayment(ctx, s.deps.Payments, refund, err)
	}
	storeGatewayRef(ctx, s.deps.Payments, refund)
	return nil
}

// Renew creates the DRAFT lease that supersedes an ACTIVE one. The original keeps its
// status; both rows are written in one transaction.
func (s *LeaseService) Renew(ctx context.Context, actor models.Actor, id uint, in RenewLeaseInput) (result *RenewalResult, err error) {
	ctx, span := observability.StartOperation(ctx, entityLease, "renew", id)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { err = rejected("lease.renew", err) }()

	if in.NewEndDate.IsZero() {
		return nil, models.NewFieldValidationError(models.FieldError{Field: "new_end_date", Reason: "required"})
	}
	original, err := s.loadForLandlord(ctx, actor, id, "renew")
	if err != nil {
		return nil, err
	}
	renewal, err := lifecycle.PlanRenewal(original, lifecycle.RenewalRequest{
		NewEndDate:     in.NewEndDate,
		NewMonthlyRent: in.NewMonthlyRent,
		RenewalTerms:   in.RenewalTerms,
	})
	if err != nil {
		return nil, err
	}
	if err := s.deps.Leases.CreateRenewal(ctx, original, renewal); err != nil {
		return nil, err
	}
	logTransition(ctx, actor, entityLease, renewal.ID, "", string(renewal.Status))

	ev := notifications.NewEvent(notifications.EventLeaseRenewed, entityLease, original.ID, map[string]any{
		"renewal_id":   renewal.ID,
		"new_end_date": renewal.EndDate.Format(time.DateOnly),
	})
	if err := s.deps.Effects.Dispatch(ctx, effects.Notify(original.TenantID, ev)); err != nil {
		return &RenewalResult{Original: original, Renewal: renewal}, err
	}
	return &RenewalResult{Original: original, Renewal: renewal}, nil
}

// ExpireDue moves every ACTIVE lease whose end date is before today to EXPIRED and
// returns how many it moved. Leases that fail are skipped and picked up by the next
// sweep; paging continues past them by id.
func (s *LeaseService) ExpireDue(ctx context.Context, actor models.Actor, today time.Time) (expired int, err error) {
	ctx, span := observability.StartOperation(ctx, entityLease, "expire_due", 0)
	defer func() { observability.EndSpan(span, err) }()

	if err := requireSystem(actor, "expire leases"); err != nil {
		return 0, rejected("lease.expire_due", err)
	}
	today = lifecycle.DateOnly(today)
	var cursor uint
	for {
		batch, err := s.deps.Leases.ListActiveEndedBefore(ctx, today, cursor, expiryBatchSize)
		if err != nil {
			return expired, err
		}
		for i := range batch {
			lease := &batch[i]
			cursor = lease.ID
			if err := s.expireOne(ctx, actor, lease, today); err != nil {
				middleware.Logger.WarnContext(ctx, "lease expiry skipped",
					slog.Uint64("lease_id", uint64(lease.ID)),
					slog.String("error", err.Error()),
				)
				continue
			}
			expired++
		}
		if len(batch) < expiryBatchSize {
			return expired, nil
		}
	}
}

func (s *LeaseService) expireOne(ctx context.Context, actor models.Actor, lease *models.Lease, today time.Time) error {
	if !lifecycle.IsExpiredAt(lease, today) {
		return models.NewPreconditionFailedError("lease has not passed its end date")
	}
	from := lease.Status
	next, err := lifecycle.TransitionLease(from, lifecycle.ActionExpire)
	if err != nil {
		return err
	}
	lease.Status = next
	if err := s.deps.Leases.Update(ctx, lease); err != nil {
		return err
	}
	observability.LeasesExpired.Inc()
	logTransition(ctx, actor, entityLease, lease.ID, string(from), string(next))

	ev := notifications.NewEvent(notifications.EventLeaseExpired, entityLease, lease.ID, map[string]any{
		"end_date": lease.EndDate.Format(time.DateOnly),
	})
	return s.deps.Effects.Dispatch(ctx, effects.Notify(lease.TenantID, ev), effects.Notify(lease.LandlordID, ev))
}
