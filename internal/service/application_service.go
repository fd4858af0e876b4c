package service

import (
	"context"
	"strings"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/effects"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/lifecycle"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/notifications"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/repository"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/validation"
	"gorm.io/datatypes"
)

const entityApplication = "application"

// SubmitApplicationInput is what a renter sends to apply for a property.
type SubmitApplicationInput struct {
	PropertyID             uint                  `json:"property_id" validate:"required"`
	MoveInDate             time.Time             `json:"move_in_date"`
	MonthlyIncome          models.Money          `json:"monthly_income"`
	EmploymentInfo         models.EmploymentInfo `json:"employment_info"`
	References             []models.Reference    `json:"references" validate:"dive"`
	Documents              []models.Document     `json:"documents" validate:"dive"`
	CreditCheckConsent     bool                  `json:"credit_check_consent"`
	BackgroundCheckConsent bool                  `json:"background_check_consent"`
	Notes                  string                `json:"notes" validate:"max=2000"`
}

// ApplicationService runs the application review lifecycle.
type ApplicationService struct {
	deps Deps
}

// NewApplicationService creates a new application service
func NewApplicationService(deps Deps) *ApplicationService {
	return &ApplicationService{deps: deps.withDefaults()}
}

func validateSubmission(in SubmitApplicationInput) error {
	app := models.Application{Documents: in.Documents}
	var c validation.Collect
	c.Merge(in)
	c.Check(!in.MoveInDate.IsZero(), "move_in_date", "required")
	c.Check(in.MonthlyIncome.IsPositive(), "monthly_income", "must be greater than zero")
	c.Check(app.HasDocument(models.DocumentIdentity), "documents", "at least one IDENTITY document is required")
	c.Check(app.HasDocument(models.DocumentPayStub), "documents", "at least one PAY_STUB document is required")
	c.Check(in.CreditCheckConsent, "credit_check_consent", "must be accepted")
	c.Check(in.BackgroundCheckConsent, "background_check_consent", "must be accepted")
	return c.Err()
}

// Submit files a new PENDING application for a renter and notifies the landlord.
func (s *ApplicationService) Submit(ctx context.Context, actor models.Actor, in SubmitApplicationInput) (app *models.Application, err error) {
	ctx, span := observability.StartOperation(ctx, entityApplication, "submit", in.PropertyID)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { err = rejected("application.submit", err) }()

	if actor.Role != models.RoleRenter {
		return nil, forbidden("submit applications; only renters can apply")
	}
	if err := validateSubmission(in); err != nil {
		return nil, err
	}

	property, err := s.deps.Properties.GetByID(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if !property.Available {
		return nil, models.NewPreconditionFailedError("property is not available for applications")
	}
	if !in.MonthlyIncome.SameCurrency(property.RentAmount) {
		return nil, models.NewFieldValidationError(models.FieldError{
			Field:  "monthly_income",
			Reason: "currency must match the property rent (" + property.RentAmount.Cur() + ")",
		})
	}
	open, err := s.deps.Applications.FindOpenForApplicant(ctx, property.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, models.NewPreconditionFailedError("you already have an open application for this property")
	}

	app = &models.Application{
		PropertyID:             property.ID,
		ApplicantID:            actor.ID,
		Status:                 models.ApplicationPending,
		MoveInDate:             lifecycle.DateOnly(in.MoveInDate),
		MonthlyIncome:          in.MonthlyIncome,
		EmploymentInfo:         datatypes.NewJSONType(in.EmploymentInfo),
		References:             datatypes.NewJSONSlice(in.References),
		Documents:              datatypes.NewJSONSlice(in.Documents),
		CreditCheckConsent:     in.CreditCheckConsent,
		BackgroundCheckConsent: in.BackgroundCheckConsent,
		BackgroundCheckStatus:  models.BackgroundCheckNotStarted,
		Notes:                  strings.TrimSpace(in.Notes),
		Version:                1,
	}
	// The open-application unique index catches a racing duplicate submit as CONFLICT.
	if err := s.deps.Applications.Create(ctx, app); err != nil {
		return nil, err
	}
	logTransition(ctx, actor, entityApplication, app.ID, "", string(app.Status))

	ev := notifications.NewEvent(notifications.EventApplicationSubmitted, entityApplication, app.ID, map[string]any{
		"property_id":  property.ID,
		"applicant_id": actor.ID,
	})
	if err := s.deps.Effects.Dispatch(ctx, effects.Notify(property.LandlordID, ev)); err != nil {
		return app, err
	}
	return app, nil
}

// load fetches an application and its property.
func (s *ApplicationService) load(ctx context.Context, id uint) (*models.Application, *models.Property, error) {
	app, err := s.deps.Applications.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	property, err := s.deps.Properties.GetByID(ctx, app.PropertyID)
	if err != nil {
		return nil, nil, err
	}
	return app, property, nil
}

// Get returns an application visible to the applicant, the property's landlord or an admin.
func (s *ApplicationService) Get(ctx context.Context, actor models.Actor, id uint) (*models.Application, error) {
	app, property, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != actor.ID || actor.Role != models.RoleRenter {
		if !canManageProperty(actor, property) {
			return nil, forbidden("view this application")
		}
	}
	return app, nil
}

// ListForProperty lists a property's applications for its landlord.
func (s *ApplicationService) ListForProperty(ctx context.Context, actor models.Actor, propertyID uint, status models.ApplicationStatus, page repository.Page) ([]models.Application, error) {
	property, err := s.deps.Properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(actor, property) {
		return nil, forbidden("list applications for this property")
	}
	return s.deps.Applications.ListByProperty(ctx, propertyID, status, page)
}

// ListMine lists the calling renter's applications.
func (s *ApplicationService) ListMine(ctx context.Context, actor models.Actor, page repository.Page) ([]models.Application, error) {
	if actor.Role != models.RoleRenter {
		return nil, forbidden("list your applications; only renters have applications")
	}
	return s.deps.Applications.ListByApplicant(ctx, actor.ID, page)
}

// Approve moves a PENDING application to APPROVED. The property must still be available.
func (s *ApplicationService) Approve(ctx context.Context, actor models.Actor, id uint, notes string) (*models.Application, error) {
	return s.review(ctx, actor, id, lifecycle.ActionApprove, notes)
}

// Reject moves a PENDING application to REJECTED and keeps the reason in the landlord notes.
func (s *ApplicationService) Reject(ctx context.Context, actor models.Actor, id uint, reason string) (*models.Application, error) {
	return s.review(ctx, actor, id, lifecycle.ActionReject, reason)
}

// Withdraw lets the applicant pull a PENDING application.
func (s *ApplicationService) Withdraw(ctx context.Context, actor models.Actor, id uint) (*models.Application, error) {
	return s.review(ctx, actor, id, lifecycle.ActionWithdraw, "")
}

// UpdateStatus routes a generic status change onto Approve, Reject or Withdraw.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor models.Actor, id uint, status models.ApplicationStatus, landlordNotes string) (*models.Application, error) {
	action, err := lifecycle.ApplicationActionFor(status)
	if err != nil {
		return nil, rejected("application.update_status", err)
	}
	return s.review(ctx, actor, id, action, landlordNotes)
}

func (s *ApplicationService) review(ctx context.Context, actor models.Actor, id uint, action lifecycle.ApplicationAction, note string) (app *models.Application, err error) {
	ctx, span := observability.StartOperation(ctx, entityApplication, string(action), id)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { err = rejected("application."+string(action), err) }()

	app, property, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if action == lifecycle.ActionWithdraw {
		if actor.Role != models.RoleRenter || app.ApplicantID != actor.ID {
			return nil, forbidden("withdraw this application; only the applicant can")
		}
	} else if !canManageProperty(actor, property) {
		return nil, forbidden(string(action) + " this application")
	}

	from := app.Status
	next, err := lifecycle.TransitionApplication(from, action)
	if err != nil {
		return nil, err
	}
	if action == lifecycle.ActionApprove && !property.Available {
		return nil, models.NewPreconditionFailedError("property is no longer available")
	}

	app.Status = next
	if action != lifecycle.ActionWithdraw {
		app.LandlordNotes = lifecycle.AppendLandlordNote(app.LandlordNotes, note)
	}
	if err := s.deps.Applications.Update(ctx, app); err != nil {
		return nil, err
	}
	logTransition(ctx, actor, entityApplication, app.ID, string(from), string(next))

	var intent effects.Intent
	switch action {
	case lifecycle.ActionApprove:
		intent = effects.Notify(app.ApplicantID, notifications.NewEvent(notifications.EventApplicationApproved, entityApplication, app.ID, nil))
	case lifecycle.ActionReject:
		intent = effects.Notify(app.ApplicantID, notifications.NewEvent(notifications.EventApplicationRejected, entityApplication, app.ID,
			map[string]any{"reason": strings.TrimSpace(note)}))
	default:
		intent = effects.Notify(property.LandlordID, notifications.NewEvent(notifications.EventApplicationWithdrawn, entityApplication, app.ID, nil))
	}
	if err := s.deps.Effects.Dispatch(ctx, intent); err != nil {
		return app, err
	}
	return app, nil
}

// InitiateBackgroundCheck asks the screening provider to check the applicant. The
// request goes out before the status is written; if the provider refuses, nothing changes.
func (s *ApplicationService) InitiateBackgroundCheck(ctx context.Context, actor models.Actor, id uint) (app *models.Application, err error) {
	ctx, span := observability.StartOperation(ctx, entityApplication, "background_check", id)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { err = rejected("application.background_check", err) }()

	app, property, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(actor, property) {
		return nil, forbidden("request a background check for this application")
	}
	if err := lifecycle.CanStartBackgroundCheck(app); err != nil {
		return nil, err
	}

	if err := s.deps.Effects.Dispatch(ctx, effects.BackgroundCheck(app, s.deps.NewKey())); err != nil {
		return nil, err
	}

	from := app.BackgroundCheckStatus
	app.BackgroundCheckStatus = models.BackgroundCheckPending
	if err := s.deps.Applications.Update(ctx, app); err != nil {
		return nil, err
	}
	logTransition(ctx, actor, "background_check", app.ID, string(from), string(app.BackgroundCheckStatus))
	return app, nil
}

// RecordBackgroundCheckResult stores the provider's verdict. Only the webhook (SYSTEM)
// or an admin may call it.
func (s *ApplicationService) RecordBackgroundCheckResult(ctx context.Context, actor models.Actor, id uint, result models.BackgroundCheckStatus) (app *models.Application, err error) {
	ctx, span := observability.StartOperation(ctx, entityApplication, "background_check_result", id)
	defer func() { observability.EndSpan(span, err) }()
	defer func() { err = rejected("application.background_check_result", err) }()

	if err := requireSystem(actor, "record background check results"); err != nil {
		return nil, err
	}
	app, property, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := app.BackgroundCheckStatus
	next, err := lifecycle.TransitionBackgroundCheck(from, result)
	if err != nil {
		return nil, err
	}
	app.BackgroundCheckStatus = next
	if err := s.deps.Applications.Update(ctx, app); err != nil {
		return nil, err
	}
	logTransition(ctx, actor, "background_check", app.ID, string(from), string(next))

	ev := notifications.NewEvent(notifications.EventBackgroundCheckCompleted, entityApplication, app.ID, map[string]any{
		"result": string(next),
	})
	if err := s.deps.Effects.Dispatch(ctx, effects.Notify(property.LandlordID, ev)); err != nil {
		return app, err
	}
	return app, nil
}

// Screening computes the applicant's income-to-rent ratio against the property rent.
func (s *ApplicationService) Screening(ctx context.Context, actor models.Actor, id uint) (*ScreeningView, error) {
	app, property, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(actor, property) {
		return nil, forbidden("view screening for this application")
	}
	class, err := s.deps.Fees.Screen(app.MonthlyIncome, property.RentAmount)
	if err != nil {
		return nil, err
	}
	return &ScreeningView{
		ApplicationID: app.ID,
		MonthlyIncome: app.MonthlyIncome,
		MonthlyRent:   property.RentAmount,
		Screening:     class,
	}, nil
}
