// Package lifecycle holds the state machines for applications, leases, payments,
// inspections and maintenance requests. Everything here is pure: no I/O, no clock
// reads. Callers pass the current date when one is needed.
package lifecycle

import (
	"strings"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
)

// ApplicationAction is a review decision on an application.
type ApplicationAction string

const (
	ActionApprove  ApplicationAction = "approve"
	ActionReject   ApplicationAction = "reject"
	ActionWithdraw ApplicationAction = "withdraw"
)

const entityApplication = "application"

var applicationTransitions = map[models.ApplicationStatus]map[ApplicationAction]models.ApplicationStatus{
	models.ApplicationPending: {
		ActionApprove:  models.ApplicationApproved,
		ActionReject:   models.ApplicationRejected,
		ActionWithdraw: models.ApplicationWithdrawn,
	},
}

// TransitionApplication returns the status an action leads to, or an
// INVALID_TRANSITION error naming the current status.
func TransitionApplication(current models.ApplicationStatus, action ApplicationAction) (models.ApplicationStatus, error) {
	if next, ok := applicationTransitions[current][action]; ok {
		return next, nil
	}
	return current, models.NewInvalidTransitionError(entityApplication, string(current), string(action))
}

// ApplicationActionFor maps a requested target status onto the action that reaches it.
func ApplicationActionFor(target models.ApplicationStatus) (ApplicationAction, error) {
	switch target {
	case models.ApplicationApproved:
		return ActionApprove, nil
	case models.ApplicationRejected:
		return ActionReject, nil
	case models.ApplicationWithdrawn:
		return ActionWithdraw, nil
	}
	return "", models.NewFieldValidationError(models.FieldError{
		Field:  "status",
		Reason: "must be one of APPROVED, REJECTED, WITHDRAWN",
	})
}

// CanCreateLease allows a lease only for an approved application that has none yet.
func CanCreateLease(status models.ApplicationStatus, hasLease bool) error {
	if status != models.ApplicationApproved {
		return models.NewPreconditionFailedError("a lease can only be created from an APPROVED application; this one is " + string(status))
	}
	if hasLease {
		return models.NewPreconditionFailedError("a lease already exists for this application")
	}
	return nil
}

// TransitionBackgroundCheck records a provider result. Results are only accepted
// while a check is in flight.
func TransitionBackgroundCheck(current, result models.BackgroundCheckStatus) (models.BackgroundCheckStatus, error) {
	if result != models.BackgroundCheckCompleted && result != models.BackgroundCheckFailed {
		return current, models.NewFieldValidationError(models.FieldError{
			Field:  "status",
			Reason: "must be COMPLETED or FAILED",
		})
	}
	if current != models.BackgroundCheckPending {
		return current, models.NewInvalidTransitionError("background check", string(current), "record result for")
	}
	return result, nil
}

// CanStartBackgroundCheck checks consent and state before a screening request goes out.
func CanStartBackgroundCheck(app *models.Application) error {
	if app.Status != models.ApplicationPending {
		return models.NewPreconditionFailedError("background checks can only run on PENDING applications")
	}
	if !app.CreditCheckConsent || !app.BackgroundCheckConsent {
		return models.NewPreconditionFailedError("applicant has not consented to credit and background checks")
	}
	switch app.BackgroundCheckStatus {
	case models.BackgroundCheckPending:
		return models.NewPreconditionFailedError("a background check is already in progress")
	case models.BackgroundCheckCompleted:
		return models.NewPreconditionFailedError("a background check has already completed")
	}
	return nil
}

// AppendLandlordNote adds a note on its own line, keeping earlier notes.
func AppendLandlordNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return note
	}
	return existing + "\n" + note
}
