package lifecycle

import (
	"fmt"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
)

// LeaseAction is an edge in the lease state machine.
type LeaseAction string

const (
	ActionSendForSignature LeaseAction = "send for signature"
	ActionSign             LeaseAction = "sign"
	ActionReturnToDraft    LeaseAction = "return to draft"
	ActionExpire           LeaseAction = "expire"
	ActionTerminate        LeaseAction = "terminate"
	ActionRenew            LeaseAction = "renew"
)

const entityLease = "lease"

// MinRenewalMonths is how far past the current end date a renewal must reach.
const MinRenewalMonths = 1

type leaseEdge struct {
	action LeaseAction
	to     models.LeaseStatus
}

// Each status lists only its legal actions. EXPIRED and TERMINATED have none.
var leaseTransitions = map[models.LeaseStatus][]leaseEdge{
	models.LeaseDraft: {
		{ActionSendForSignature, models.LeasePendingSignature},
	},
	models.LeasePendingSignature: {
		{ActionSign, models.LeaseActive},
		{ActionReturnToDraft, models.LeaseDraft},
		{ActionTerminate, models.LeaseTerminated},
	},
	models.LeaseActive: {
		{ActionExpire, models.LeaseExpired},
		{ActionTerminate, models.LeaseTerminated},
		{ActionRenew, models.LeaseActive},
	},
}

// TransitionLease follows one edge of the lease table.
func TransitionLease(current models.LeaseStatus, action LeaseAction) (models.LeaseStatus, error) {
	for _, e := range leaseTransitions[current] {
		if e.action == action {
			return e.to, nil
		}
	}
	return current, models.NewInvalidTransitionError(entityLease, string(current), string(action))
}

// AllowedLeaseActions lists what can be done from a status, in table order.
func AllowedLeaseActions(current models.LeaseStatus) []LeaseAction {
	edges := leaseTransitions[current]
	out := make([]LeaseAction, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.action)
	}
	return out
}

// ResolveStatusUpdate finds the action behind a generic "set status" request.
// Termination carries its own inputs and has to go through Terminate.
func ResolveStatusUpdate(current, target models.LeaseStatus) (LeaseAction, error) {
	if !target.Valid() {
		return "", models.NewFieldValidationError(models.FieldError{Field: "status", Reason: "unknown lease status"})
	}
	if target == models.LeaseTerminated {
		return "", models.NewFieldValidationError(models.FieldError{
			Field:  "status",
			Reason: "use the terminate operation to end a lease",
		})
	}
	for _, e := range leaseTransitions[current] {
		if e.to == target && e.action != ActionRenew {
			return e.action, nil
		}
	}
	return "", models.NewInvalidTransitionError(entityLease, string(current), "move to "+string(target)+" from")
}

// CheckTermination validates a termination date against today and the lease term.
// It returns the status the lease moves to.
func CheckTermination(lease *models.Lease, terminationDate, today time.Time) (models.LeaseStatus, error) {
	next, err := TransitionLease(lease.Status, ActionTerminate)
	if err != nil {
		return lease.Status, err
	}
	td := DateOnly(terminationDate)
	if td.Before(DateOnly(today)) {
		return lease.Status, models.NewPreconditionFailedError("termination date cannot be in the past")
	}
	if td.After(DateOnly(lease.EndDate)) {
		return lease.Status, models.NewPreconditionFailedError("termination date cannot be after the lease end date")
	}
	return next, nil
}

// RenewalRequest carries the caller's renewal inputs.
type RenewalRequest struct {
	NewEndDate     time.Time
	NewMonthlyRent *models.Money
	RenewalTerms   map[string]interface{}
}

// PlanRenewal builds the DRAFT lease that will supersede an ACTIVE one. The
// original is not modified.
func PlanRenewal(lease *models.Lease, req RenewalRequest) (*models.Lease, error) {
	if _, err := TransitionLease(lease.Status, ActionRenew); err != nil {
		return nil, err
	}
	if lease.IsSuperseded() {
		return nil, models.NewPreconditionFailedError(fmt.Sprintf("lease %d has already been renewed", lease.ID))
	}

	end := DateOnly(lease.EndDate)
	newEnd := DateOnly(req.NewEndDate)
	if !newEnd.After(end) {
		return nil, models.NewPreconditionFailedError("new end date must be after the current end date")
	}
	if newEnd.Before(AddMonths(end, MinRenewalMonths)) {
		return nil, models.NewPreconditionFailedError(fmt.Sprintf("a renewal must extend the lease by at least %d month", MinRenewalMonths))
	}

	rent := lease.MonthlyRent
	if req.NewMonthlyRent != nil {
		if !req.NewMonthlyRent.IsPositive() {
			return nil, models.NewFieldValidationError(models.FieldError{Field: "new_monthly_rent", Reason: "must be greater than zero"})
		}
		rent = *req.NewMonthlyRent
	}

	terms := map[string]interface{}{}
	if len(req.RenewalTerms) > 0 {
		terms[models.TermRenewalTerms] = req.RenewalTerms
	}

	supersedes := lease.ID
	return &models.Lease{
		ApplicationID:   lease.ApplicationID,
		PropertyID:      lease.PropertyID,
		TenantID:        lease.TenantID,
		LandlordID:      lease.LandlordID,
		Status:          models.LeaseDraft,
		StartDate:       end.AddDate(0, 0, 1),
		EndDate:         newEnd,
		MonthlyRent:     rent,
		SecurityDeposit: lease.SecurityDeposit,
		Terms:           terms,
		SupersedesID:    &supersedes,
		Version:         1,
	}, nil
}

// ValidateTerm checks the start/end pair of a new lease.
func ValidateTerm(start, end time.Time) error {
	var fields []models.FieldError
	if start.IsZero() {
		fields = append(fields, models.FieldError{Field: "start_date", Reason: "required"})
	}
	if end.IsZero() {
		fields = append(fields, models.FieldError{Field: "end_date", Reason: "required"})
	}
	if len(fields) == 0 && !DateOnly(end).After(DateOnly(start)) {
		fields = append(fields, models.FieldError{Field: "end_date", Reason: "must be after start_date"})
	}
	if len(fields) > 0 {
		return models.NewFieldValidationError(fields...)
	}
	return nil
}
