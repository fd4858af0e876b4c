package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/effects"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/fees"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/gateway"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected *models.AppError, got %T", err)
	names := make([]string, 0, len(appErr.Fields))
	for _, f := range appErr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestApplicationService_Submit(t *testing.T) {
	f := newFixture()
	p := f.property(true)

	app, err := f.applications.Submit(context.Background(), renter, validSubmission(p.ID))
	require.NoError(t, err)
	assert.NotZero(t, app.ID)
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.Equal(t, models.BackgroundCheckNotStarted, app.BackgroundCheckStatus)
	assert.Equal(t, renter.ID, app.ApplicantID)

	require.Len(t, f.dispatcher.intents, 1)
	in := f.dispatcher.intents[0]
	assert.Equal(t, effects.KindNotify, in.Kind)
	assert.Equal(t, landlord.ID, in.UserID)
	assert.Equal(t, notifications.EventApplicationSubmitted, in.Event.Type)
}

func TestApplicationService_SubmitValidation(t *testing.T) {
	f := newFixture()
	p := f.property(true)

	in := validSubmission(p.ID)
	in.MonthlyIncome = models.USD(0)
	in.EmploymentInfo.Employer = ""
	in.Documents = in.Documents[:1]
	in.CreditCheckConsent = false
	in.References[0].Phone = ""

	_, err := f.applications.Submit(context.Background(), renter, in)
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	names := fieldNames(t, err)
	assert.Contains(t, names, "monthly_income")
	assert.Contains(t, names, "employment_info.employer")
	assert.Contains(t, names, "references[0].phone")
	assert.Contains(t, names, "documents")
	assert.Contains(t, names, "credit_check_consent")
	assert.Empty(t, f.apps.all())
	assert.Empty(t, f.dispatcher.intents)
}

func TestApplicationService_SubmitPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("only renters apply", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		_, err := f.applications.Submit(ctx, landlord, validSubmission(p.ID))
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	})

	t.Run("property must be available", func(t *testing.T) {
		f := newFixture()
		p := f.property(false)
		_, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))
	})

	t.Run("missing property", func(t *testing.T) {
		f := newFixture()
		_, err := f.applications.Submit(ctx, renter, validSubmission(404))
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})

	t.Run("one open application per property", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		_, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		require.NoError(t, err)
		_, err = f.applications.Submit(ctx, renter, validSubmission(p.ID))
		assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))
	})

	t.Run("income currency follows the rent", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		in := validSubmission(p.ID)
		in.MonthlyIncome = models.NewMoney(480000, "EUR")
		_, err := f.applications.Submit(ctx, renter, in)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})
}

func TestApplicationService_Review(t *testing.T) {
	ctx := context.Background()

	t.Run("approve twice fails the second time", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		app, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		require.NoError(t, err)

		approved, err := f.applications.UpdateStatus(ctx, landlord, app.ID, models.ApplicationApproved, "")
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationApproved, approved.Status)

		_, err = f.applications.UpdateStatus(ctx, landlord, app.ID, models.ApplicationApproved, "")
		require.Error(t, err)
		assert.Equal(t, models.CodeInvalidTransition, models.ErrorCode(err))
		assert.Equal(t, "cannot approve an APPROVED application", err.Error())
	})

	t.Run("reject keeps the reason", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		app, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		require.NoError(t, err)
		f.dispatcher.reset()

		rejected, err := f.applications.Reject(ctx, landlord, app.ID, "income not verified")
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationRejected, rejected.Status)
		assert.Equal(t, "income not verified", rejected.LandlordNotes)
		assert.Equal(t, []string{notifications.EventApplicationRejected}, f.dispatcher.events())
		assert.Equal(t, renter.ID, f.dispatcher.intents[0].UserID)
	})

	t.Run("only the landlord reviews", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		app, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		require.NoError(t, err)
		_, err = f.applications.Approve(ctx, models.Actor{ID: 77, Role: models.RoleLandlord}, app.ID, "")
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

		_, err = f.applications.Approve(ctx, admin, app.ID, "ok")
		assert.NoError(t, err)
	})

	t.Run("approval needs an available property", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		app, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		require.NoError(t, err)
		p.Available = false
		require.NoError(t, f.props.update(p))

		_, err = f.applications.Approve(ctx, landlord, app.ID, "")
		assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))
		stored, _ := f.apps.get(app.ID)
		assert.Equal(t, models.ApplicationPending, stored.Status)
	})

	t.Run("withdraw is for the applicant", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		app, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		require.NoError(t, err)

		_, err = f.applications.Withdraw(ctx, stranger, app.ID)
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
		_, err = f.applications.Withdraw(ctx, landlord, app.ID)
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

		withdrawn, err := f.applications.Withdraw(ctx, renter, app.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationWithdrawn, withdrawn.Status)
	})

	t.Run("unknown target status", func(t *testing.T) {
		f := newFixture()
		_, err := f.applications.UpdateStatus(ctx, landlord, 1, models.ApplicationPending, "")
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})

	t.Run("concurrent write", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		app, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		require.NoError(t, err)
		f.apps.updateErr = models.NewConflictError("application", app.ID)

		_, err = f.applications.Approve(ctx, landlord, app.ID, "")
		assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
	})
}

func TestApplicationService_GetVisibility(t *testing.T) {
	f := newFixture()
	p := f.property(true)
	app, err := f.applications.Submit(context.Background(), renter, validSubmission(p.ID))
	require.NoError(t, err)

	for _, actor := range []models.Actor{renter, landlord, admin} {
		_, err := f.applications.Get(context.Background(), actor, app.ID)
		assert.NoError(t, err, "actor %+v", actor)
	}
	_, err = f.applications.Get(context.Background(), stranger, app.ID)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	mine, err := f.applications.ListMine(context.Background(), renter, pageAll)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.applications.ListForProperty(context.Background(), stranger, p.ID, "", pageAll)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
}

func TestApplicationService_BackgroundCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("provider failure leaves state unchanged", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		app, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		require.NoError(t, err)
		f.dispatcher.fail[effects.KindBackgroundCheck] = true

		_, err = f.applications.InitiateBackgroundCheck(ctx, landlord, app.ID)
		require.Error(t, err)
		assert.Equal(t, models.CodeExternalService, models.ErrorCode(err))
		stored, _ := f.apps.get(app.ID)
		assert.Equal(t, models.BackgroundCheckNotStarted, stored.BackgroundCheckStatus)
	})

	t.Run("full cycle", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		app, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		require.NoError(t, err)
		f.dispatcher.reset()

		app, err = f.applications.InitiateBackgroundCheck(ctx, landlord, app.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BackgroundCheckPending, app.BackgroundCheckStatus)
		require.Equal(t, []effects.Kind{effects.KindBackgroundCheck}, f.dispatcher.kinds())
		assert.Equal(t, "key-1", f.dispatcher.intents[0].Check.IdempotencyKey)

		_, err = f.applications.InitiateBackgroundCheck(ctx, landlord, app.ID)
		assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))

		_, err = f.applications.RecordBackgroundCheckResult(ctx, landlord, app.ID, models.BackgroundCheckCompleted)
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

		app, err = f.applications.RecordBackgroundCheckResult(ctx, system, app.ID, models.BackgroundCheckCompleted)
		require.NoError(t, err)
		assert.Equal(t, models.BackgroundCheckCompleted, app.BackgroundCheckStatus)
		assert.Contains(t, f.dispatcher.events(), notifications.EventBackgroundCheckCompleted)

		_, err = f.applications.RecordBackgroundCheckResult(ctx, system, app.ID, models.BackgroundCheckFailed)
		assert.Equal(t, models.CodeInvalidTransition, models.ErrorCode(err))
	})

	t.Run("consent required", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		app, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		require.NoError(t, err)
		app.BackgroundCheckConsent = false
		require.NoError(t, f.apps.update(app))

		_, err = f.applications.InitiateBackgroundCheck(ctx, landlord, app.ID)
		assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))
		assert.Empty(t, f.dispatcher.kinds()[1:])
	})
}

func TestApplicationService_BackgroundCheckStoresReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	deps := Deps{
		Properties:   f.props,
		Applications: f.apps,
		Leases:       f.leases,
		Payments:     f.payments,
		Effects:      effects.NewDispatcher(nil, gateway.LogGateway{}, gateway.LogGateway{}),
		Now:          func() time.Time { return f.now },
		NewKey: func() string {
			f.keys++
			return fmt.Sprintf("key-%d", f.keys)
		},
	}
	applications := NewApplicationService(deps)
	p := f.property(true)
	app, err := applications.Submit(ctx, renter, validSubmission(p.ID))
	require.NoError(t, err)

	app, err = applications.InitiateBackgroundCheck(ctx, landlord, app.ID)
	require.NoError(t, err)
	stored, _ := f.apps.get(app.ID)
	assert.Equal(t, fmt.Sprintf("local-key-%d", f.keys), stored.BackgroundCheckRef)
	assert.Equal(t, models.BackgroundCheckPending, stored.BackgroundCheckStatus)
}

func TestApplicationService_Screening(t *testing.T) {
	f := newFixture()
	p := f.property(true)
	app, err := f.applications.Submit(context.Background(), renter, validSubmission(p.ID))
	require.NoError(t, err)

	view, err := f.applications.Screening(context.Background(), landlord, app.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, view.Screening.Ratio, 1e-9)
	assert.Equal(t, fees.RatioRisk, view.Screening.Class)

	policy := fees.DefaultPolicy()
	policy.HealthyRatio = 3.0
	policy.BorderlineRatio = 2.5
	calc, err := fees.NewCalculator(policy)
	require.NoError(t, err)
	svc := NewApplicationService(Deps{Properties: f.props, Applications: f.apps, Fees: calc, Effects: f.dispatcher})

	view, err = svc.Screening(context.Background(), landlord, app.ID)
	require.NoError(t, err)
	assert.Equal(t, fees.RatioHealthy, view.Screening.Class)
	assert.Equal(t, "green", view.Screening.Color)

	_, err = svc.Screening(context.Background(), renter, app.ID)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
}
