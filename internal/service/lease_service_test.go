package service

import (
	"context"
	"testing"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/effects"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/featureflags"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/lifecycle"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaseInput() CreateLeaseInput {
	return CreateLeaseInput{
		StartDate:       date(2025, time.April, 1),
		EndDate:         date(2026, time.March, 31),
		SecurityDeposit: models.USD(240000),
	}
}

func statusPtr(s models.LeaseStatus) *models.LeaseStatus { return &s }

func TestLeaseService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("drafts from an approved application", func(t *testing.T) {
		f := newFixture()
		p, app := f.approvedApplication()
		f.dispatcher.reset()

		lease, err := f.leaseSvc.Create(ctx, landlord, app.ID, leaseInput())
		require.NoError(t, err)
		assert.Equal(t, models.LeaseDraft, lease.Status)
		assert.Equal(t, p.RentAmount, lease.MonthlyRent)
		assert.Equal(t, renter.ID, lease.TenantID)
		assert.Equal(t, landlord.ID, lease.LandlordID)
		assert.Equal(t, []string{notifications.EventLeaseCreated}, f.dispatcher.events())

		_, err = f.leaseSvc.Create(ctx, landlord, app.ID, leaseInput())
		assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))
	})

	t.Run("explicit rent wins", func(t *testing.T) {
		f := newFixture()
		_, app := f.approvedApplication()
		in := leaseInput()
		rent := models.USD(115000)
		in.MonthlyRent = &rent

		lease, err := f.leaseSvc.Create(ctx, landlord, app.ID, in)
		require.NoError(t, err)
		assert.Equal(t, int64(115000), lease.MonthlyRent.Amount)
	})

	t.Run("pending application", func(t *testing.T) {
		f := newFixture()
		p := f.property(true)
		app, err := f.applications.Submit(ctx, renter, validSubmission(p.ID))
		require.NoError(t, err)

		_, err = f.leaseSvc.Create(ctx, landlord, app.ID, leaseInput())
		assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))
	})

	t.Run("end must follow start", func(t *testing.T) {
		f := newFixture()
		_, app := f.approvedApplication()
		in := leaseInput()
		in.EndDate = in.StartDate

		_, err := f.leaseSvc.Create(ctx, landlord, app.ID, in)
		require.Error(t, err)
		assert.Equal(t, []string{"end_date"}, fieldNames(t, err))
		assert.Empty(t, f.leases.all())
	})

	t.Run("tenant cannot draft", func(t *testing.T) {
		f := newFixture()
		_, app := f.approvedApplication()
		_, err := f.leaseSvc.Create(ctx, renter, app.ID, leaseInput())
		assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	})
}

func TestLeaseService_SigningFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, app := f.approvedApplication()
	lease, err := f.leaseSvc.Create(ctx, landlord, app.ID, leaseInput())
	require.NoError(t, err)

	_, err = f.leaseSvc.Update(ctx, landlord, lease.ID, UpdateLeaseInput{Status: statusPtr(models.LeaseActive)})
	require.Error(t, err)
	assert.Equal(t, models.CodeInvalidTransition, models.ErrorCode(err))

	_, err = f.leaseSvc.Update(ctx, landlord, lease.ID, UpdateLeaseInput{Status: statusPtr(models.LeaseTerminated)})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	lease, err = f.leaseSvc.Update(ctx, landlord, lease.ID, UpdateLeaseInput{Status: statusPtr(models.LeasePendingSignature)})
	require.NoError(t, err)
	assert.Equal(t, models.LeasePendingSignature, lease.Status)

	_, err = f.leaseSvc.Update(ctx, landlord, lease.ID, UpdateLeaseInput{Status: statusPtr(models.LeaseActive)})
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err), "the landlord cannot sign for the tenant")

	f.dispatcher.reset()
	lease, err = f.leaseSvc.Update(ctx, renter, lease.ID, UpdateLeaseInput{Status: statusPtr(models.LeaseActive)})
	require.NoError(t, err)
	assert.Equal(t, models.LeaseActive, lease.Status)
	require.NotNil(t, lease.SignedAt)
	assert.True(t, lease.SignedAt.Equal(f.now))

	payments := f.payments.all()
	require.Len(t, payments, 2)
	assert.Equal(t, models.PaymentSecurityDeposit, payments[0].Type)
	assert.Equal(t, int64(240000), payments[0].Amount.Amount)
	assert.Equal(t, int64(6960), payments[0].PlatformFee.Amount)
	assert.Equal(t, models.PaymentFirstMonthRent, payments[1].Type)
	assert.Equal(t, int64(120000), payments[1].Amount.Amount)
	assert.Equal(t, int64(3480), payments[1].PlatformFee.Amount)
	for _, p := range payments {
		assert.Equal(t, models.PaymentPending, p.Status)
		assert.Equal(t, renter.ID, p.PayerID)
		assert.NotEmpty(t, p.IdempotencyKey)
	}

	assert.Equal(t, []effects.Kind{
		effects.KindNotify, effects.KindNotify, effects.KindPaymentIntent, effects.KindPaymentIntent,
	}, f.dispatcher.kinds())
}

func TestLeaseService_ActivationGatewayFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, app := f.approvedApplication()
	lease, err := f.leaseSvc.Create(ctx, landlord, app.ID, leaseInput())
	require.NoError(t, err)
	_, err = f.leaseSvc.Update(ctx, landlord, lease.ID, UpdateLeaseInput{Status: statusPtr(models.LeasePendingSignature)})
	require.NoError(t, err)

	f.dispatcher.fail[effects.KindPaymentIntent] = true
	_, err = f.leaseSvc.Update(ctx, renter, lease.ID, UpdateLeaseInput{Status: statusPtr(models.LeaseActive)})
	require.Error(t, err)
	assert.Equal(t, models.CodeExternalService, models.ErrorCode(err))

	stored, _ := f.leases.get(lease.ID)
	assert.Equal(t, models.LeaseActive, stored.Status)
	payments := f.payments.all()
	require.Len(t, payments, 2)
	assert.Equal(t, models.PaymentFailed, payments[0].Status)
}

func TestLeaseService_UpdateDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, app := f.approvedApplication()
	lease, err := f.leaseSvc.Create(ctx, landlord, app.ID, leaseInput())
	require.NoError(t, err)

	url := "https://files.example.com/lease.pdf"
	updated, err := f.leaseSvc.Update(ctx, landlord, lease.ID, UpdateLeaseInput{DocumentURL: &url})
	require.NoError(t, err)
	assert.Equal(t, url, updated.DocumentURL)
	assert.Equal(t, models.LeaseDraft, updated.Status)

	bad := "not a url"
	_, err = f.leaseSvc.Update(ctx, landlord, lease.ID, UpdateLeaseInput{DocumentURL: &bad})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = f.leaseSvc.Update(ctx, landlord, lease.ID, UpdateLeaseInput{})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestLeaseService_Terminate(t *testing.T) {
	ctx := context.Background()

	t.Run("with deposit refund", func(t *testing.T) {
		f := newFixture()
		lease := f.activeLease(date(2024, time.June, 1), date(2025, time.May, 31))

		terminated, err := f.leaseSvc.Terminate(ctx, landlord, lease.ID, TerminateLeaseInput{
			TerminationDate: date(2025, time.March, 15),
			Reason:          "tenant relocating",
			RefundDeposit:   true,
		})
		require.NoError(t, err)
		assert.Equal(t, models.LeaseTerminated, terminated.Status)
		assert.Equal(t, "tenant relocating", terminated.Terms[models.TermTerminationReason])
		assert.Equal(t, "2025-03-15", terminated.Terms[models.TermTerminationDate])
		assert.Equal(t, true, terminated.Terms[models.TermRefundDeposit])
		assert.NotEmpty(t, terminated.Terms[models.TermTerminatedAt])

		assert.Equal(t, []effects.Kind{effects.KindNotify, effects.KindRefund}, f.dispatcher.kinds())
		assert.Equal(t, renter.ID, f.dispatcher.intents[0].UserID)

		payments := f.payments.all()
		require.Len(t, payments, 1)
		assert.Equal(t, models.PaymentDepositRefund, payments[0].Type)
		assert.Equal(t, int64(240000), payments[0].Amount.Amount)
		assert.Zero(t, payments[0].PlatformFee.Amount)
	})

	t.Run("termination date bounds", func(t *testing.T) {
		f := newFixture()
		lease := f.activeLease(date(2024, time.June, 1), date(2025, time.May, 31))

		_, err := f.leaseSvc.Terminate(ctx, landlord, lease.ID, TerminateLeaseInput{
			TerminationDate: date(2025, time.February, 28), Reason: "late",
		})
		assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))

		_, err = f.leaseSvc.Terminate(ctx, landlord, lease.ID, TerminateLeaseInput{
			TerminationDate: date(2025, time.June, 1), Reason: "late",
		})
		assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))

		_, err = f.leaseSvc.Terminate(ctx, landlord, lease.ID, TerminateLeaseInput{
			TerminationDate: date(2025, time.March, 1), Reason: "",
		})
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

		terminated, err := f.leaseSvc.Terminate(ctx, landlord, lease.ID, TerminateLeaseInput{
			TerminationDate: date(2025, time.March, 1), Reason: "same day",
		})
		require.NoError(t, err)
		assert.Equal(t, models.LeaseTerminated, terminated.Status)
	})

	t.Run("draft lease cannot be terminated", func(t *testing.T) {
		f := newFixture()
		_, app := f.approvedApplication()
		lease, err := f.leaseSvc.Create(ctx, landlord, app.ID, leaseInput())
		require.NoError(t, err)

		_, err = f.leaseSvc.Terminate(ctx, landlord, lease.ID, TerminateLeaseInput{
			TerminationDate: date(2025, time.April, 10), Reason: "changed mind",
		})
		require.Error(t, err)
		assert.Equal(t, models.CodeInvalidTransition, models.ErrorCode(err))
		assert.Equal(t, "cannot terminate a DRAFT lease", err.Error())
	})

	t.Run("unsigned lease has no deposit to refund", func(t *testing.T) {
		f := newFixture()
		_, app := f.approvedApplication()
		lease, err := f.leaseSvc.Create(ctx, landlord, app.ID, leaseInput())
		require.NoError(t, err)
		_, err = f.leaseSvc.Update(ctx, landlord, lease.ID, UpdateLeaseInput{Status: statusPtr(models.LeasePendingSignature)})
		require.NoError(t, err)
		f.dispatcher.reset()

		terminated, err := f.leaseSvc.Terminate(ctx, landlord, lease.ID, TerminateLeaseInput{
			TerminationDate: date(2025, time.March, 10), Reason: "never signed", RefundDeposit: true,
		})
		require.NoError(t, err)
		assert.Equal(t, models.LeaseTerminated, terminated.Status)
		assert.Equal(t, []effects.Kind{effects.KindNotify}, f.dispatcher.kinds())
		assert.Empty(t, f.payments.all())
	})

	t.Run("refund failure", func(t *testing.T) {
		f := newFixture()
		lease := f.activeLease(date(2024, time.June, 1), date(2025, time.May, 31))
		f.dispatcher.fail[effects.KindRefund] = true

		_, err := f.leaseSvc.Terminate(ctx, landlord, lease.ID, TerminateLeaseInput{
			TerminationDate: date(2025, time.March, 15), Reason: "sold", RefundDeposit: true,
		})
		assert.Equal(t, models.CodeExternalService, models.ErrorCode(err))
		payments := f.payments.all()
		require.Len(t, payments, 1)
		assert.Equal(t, models.PaymentFailed, payments[0].Status)
	})
}

func TestLeaseService_Renew(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a superseding draft", func(t *testing.T) {
		f := newFixture()
		lease := f.activeLease(date(2024, time.June, 1), date(2025, time.May, 31))
		rent := models.USD(125000)

		res, err := f.leaseSvc.Renew(ctx, landlord, lease.ID, RenewLeaseInput{
			NewEndDate:     date(2026, time.May, 31),
			NewMonthlyRent: &rent,
			RenewalTerms:   map[string]any{"pets": "allowed"},
		})
		require.NoError(t, err)
		assert.Equal(t, models.LeaseDraft, res.Renewal.Status)
		assert.Equal(t, date(2025, time.June, 1), res.Renewal.StartDate)
		assert.Equal(t, int64(125000), res.Renewal.MonthlyRent.Amount)
		require.NotNil(t, res.Renewal.SupersedesID)
		assert.Equal(t, lease.ID, *res.Renewal.SupersedesID)

		stored, _ := f.leases.get(lease.ID)
		assert.Equal(t, models.LeaseActive, stored.Status)
		require.NotNil(t, stored.SupersededByID)
		assert.Equal(t, res.Renewal.ID, *stored.SupersededByID)

		_, err = f.leaseSvc.Renew(ctx, landlord, lease.ID, RenewLeaseInput{NewEndDate: date(2026, time.June, 30)})
		assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))
	})

	t.Run("missing end date", func(t *testing.T) {
		f := newFixture()
		lease := f.activeLease(date(2024, time.June, 1), date(2025, time.May, 31))
		_, err := f.leaseSvc.Renew(ctx, landlord, lease.ID, RenewLeaseInput{})
		require.Error(t, err)
		assert.Equal(t, []string{"new_end_date"}, fieldNames(t, err))
	})

	t.Run("less than a month", func(t *testing.T) {
		f := newFixture()
		lease := f.activeLease(date(2024, time.June, 1), date(2025, time.May, 31))
		_, err := f.leaseSvc.Renew(ctx, landlord, lease.ID, RenewLeaseInput{NewEndDate: date(2025, time.June, 15)})
		assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))
		assert.Len(t, f.leases.all(), 1)
	})
}

func TestLeaseService_GetAndExpiring(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	soon := f.activeLease(date(2024, time.April, 1), date(2025, time.March, 20))
	later := f.activeLease(date(2024, time.July, 1), date(2025, time.June, 30))

	view, err := f.leaseSvc.Get(ctx, renter, soon.ID)
	require.NoError(t, err)
	assert.Equal(t, 19, view.Urgency.DaysUntilExpiry)
	assert.Equal(t, lifecycle.ExpiryUrgent, view.Urgency.Class)
	assert.Equal(t, []lifecycle.LeaseAction{lifecycle.ActionExpire, lifecycle.ActionTerminate, lifecycle.ActionRenew}, view.AllowedActions)
	assert.True(t, view.TotalValue.IsPositive())

	_, err = f.leaseSvc.Get(ctx, stranger, soon.ID)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	expiring, err := f.leaseSvc.ListExpiring(ctx, landlord, 30)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, soon.ID, expiring[0].ID)

	expiring, err = f.leaseSvc.ListExpiring(ctx, admin, 180)
	require.NoError(t, err)
	assert.Len(t, expiring, 2)
	_ = later

	_, err = f.leaseSvc.ListExpiring(ctx, landlord, 0)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	_, err = f.leaseSvc.ListExpiring(ctx, renter, 30)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
}

func TestLeaseService_TotalValueFollowsFlag(t *testing.T) {
	f := newFixture()
	lease := f.activeLease(date(2025, time.January, 1), date(2025, time.February, 1))

	plain, err := f.leaseSvc.Get(context.Background(), renter, lease.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(124000), plain.TotalValue.Amount)

	svc := NewLeaseService(Deps{
		Properties: f.props, Applications: f.apps, Leases: f.leases, Payments: f.payments,
		Effects: f.dispatcher, Now: func() time.Time { return f.now },
		Flags: featureflags.NewManager(featureflags.CalendarProration + "=on"),
	})
	calendar, err := svc.Get(context.Background(), renter, lease.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120000), calendar.TotalValue.Amount)
}

func TestLeaseService_ExpireDue(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	past := f.activeLease(date(2024, time.January, 1), date(2024, time.December, 31))
	endsToday := f.activeLease(date(2024, time.March, 1), date(2025, time.March, 1))
	future := f.activeLease(date(2024, time.June, 1), date(2025, time.May, 31))

	_, err := f.leaseSvc.ExpireDue(ctx, landlord, f.now)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	n, err := f.leaseSvc.ExpireDue(ctx, system, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, _ := f.leases.get(past.ID)
	assert.Equal(t, models.LeaseExpired, stored.Status)
	for _, id := range []uint{endsToday.ID, future.ID} {
		l, _ := f.leases.get(id)
		assert.Equal(t, models.LeaseActive, l.Status)
	}
	assert.Equal(t, []string{notifications.EventLeaseExpired, notifications.EventLeaseExpired}, f.dispatcher.events())

	n, err = f.leaseSvc.ExpireDue(ctx, system, f.now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLeaseService_ExpireDuePagesPastFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.leases.failing = map[uint]error{}
	for i := 0; i < expiryBatchSize+5; i++ {
		l := f.activeLease(date(2024, time.January, 1), date(2024, time.December, 31))
		f.leases.failing[l.ID] = models.NewConflictError("lease", l.ID)
	}
	due := f.activeLease(date(2024, time.January, 1), date(2025, time.January, 31))

	n, err := f.leaseSvc.ExpireDue(ctx, system, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, _ := f.leases.get(due.ID)
	assert.Equal(t, models.LeaseExpired, stored.Status)
}

func TestDeps_TodayIsUTCDate(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	d := Deps{Now: func() time.Time { return time.Date(2025, time.March, 1, 23, 30, 0, 0, est) }}
	assert.Equal(t, date(2025, time.March, 2), d.today())

	d.Now = func() time.Time { return time.Date(2025, time.March, 2, 0, 30, 0, 0, time.FixedZone("CET", 3600)) }
	assert.Equal(t, date(2025, time.March, 1), d.today())
}

func TestLeaseService_ManualExpireNeedsPastEndDate(t *testing.T) {
	f := newFixture()
	lease := f.activeLease(date(2024, time.June, 1), date(2025, time.May, 31))
	_, err := f.leaseSvc.Update(context.Background(), landlord, lease.ID, UpdateLeaseInput{Status: statusPtr(models.LeaseExpired)})
	assert.Equal(t, models.CodePreconditionFailed, models.ErrorCode(err))
}
