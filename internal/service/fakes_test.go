package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/effects"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/lifecycle"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/repository"
)

// memStore is a versioned in-memory table. Rows are copied in and out so callers
// never share state with the store, like a real database.
type memStore[T any] struct {
	mu      sync.Mutex
	rows    map[uint]T
	nextID  uint
	name    string
	id      func(*T) *uint
	version func(*T) *uint

	// updateErr, when set, is returned by the next Update.
	updateErr error
	// failing rows reject every Update.
	failing map[uint]error
}

func newMemStore[T any](name string, id, version func(*T) *uint) *memStore[T] {
	return &memStore[T]{rows: map[uint]T{}, name: name, id: id, version: version}
}

func (s *memStore[T]) create(v *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	*s.id(v) = s.nextID
	if s.version != nil && *s.version(v) == 0 {
		*s.version(v) = 1
	}
	s.rows[s.nextID] = *v
	return nil
}

func (s *memStore[T]) get(id uint) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.rows[id]
	if !ok {
		return nil, models.NewNotFoundError(s.name, id)
	}
	return &v, nil
}

func (s *memStore[T]) update(v *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		err := s.updateErr
		s.updateErr = nil
		return err
	}
	id := *s.id(v)
	if err, ok := s.failing[id]; ok {
		return err
	}
	cur, ok := s.rows[id]
	if !ok {
		return models.NewNotFoundError(s.name, id)
	}
	if s.version != nil {
		if *s.version(&cur) != *s.version(v) {
			return models.NewConflictError(s.name, id)
		}
		*s.version(v)++
	}
	s.rows[id] = *v
	return nil
}

func (s *memStore[T]) all() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.rows[id])
	}
	return out
}

// bump simulates another writer touching the row.
func (s *memStore[T]) bump(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.rows[id]
	*s.version(&v)++
	s.rows[id] = v
}

type fakeProperties struct{ *memStore[models.Property] }

func newFakeProperties() *fakeProperties {
	return &fakeProperties{newMemStore("property", func(p *models.Property) *uint { return &p.ID }, nil)}
}

func (f *fakeProperties) Create(_ context.Context, p *models.Property) error { return f.create(p) }
func (f *fakeProperties) GetByID(_ context.Context, id uint) (*models.Property, error) {
	return f.get(id)
}
func (f *fakeProperties) Update(_ context.Context, p *models.Property) error { return f.update(p) }
func (f *fakeProperties) Delete(_ context.Context, id uint) error {
	if _, err := f.get(id); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.rows, id)
	f.mu.Unlock()
	return nil
}
func (f *fakeProperties) List(_ context.Context, filter repository.PropertyFilter, _ repository.Page) ([]models.Property, error) {
	var out []models.Property
	for _, p := range f.all() {
		if filter.LandlordID != 0 && p.LandlordID != filter.LandlordID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeApplications struct{ *memStore[models.Application] }

func newFakeApplications() *fakeApplications {
	return &fakeApplications{newMemStore("application",
		func(a *models.Application) *uint { return &a.ID },
		func(a *models.Application) *uint { return &a.Version })}
}

func (f *fakeApplications) Create(_ context.Context, a *models.Application) error { return f.create(a) }
func (f *fakeApplications) GetByID(_ context.Context, id uint) (*models.Application, error) {
	return f.get(id)
}
func (f *fakeApplications) Update(_ context.Context, a *models.Application) error { return f.update(a) }
func (f *fakeApplications) ListByProperty(_ context.Context, propertyID uint, status models.ApplicationStatus, _ repository.Page) ([]models.Application, error) {
	var out []models.Application
	for _, a := range f.all() {
		if a.PropertyID == propertyID && (status == "" || a.Status == status) {
			out = append(out, a)
		}
	}
	return out, nil
}
func (f *fakeApplications) ListByApplicant(_ context.Context, applicantID uint, _ repository.Page) ([]models.Application, error) {
	var out []models.Application
	for _, a := range f.all() {
		if a.ApplicantID == applicantID {
			out = append(out, a)
		}
	}
	return out, nil
}
func (f *fakeApplications) FindOpenForApplicant(_ context.Context, propertyID, applicantID uint) (*models.Application, error) {
	for _, a := range f.all() {
		if a.PropertyID == propertyID && a.ApplicantID == applicantID &&
			(a.Status == models.ApplicationPending || a.Status == models.ApplicationApproved) {
			return &a, nil
		}
	}
	return nil, nil
}

type fakeLeases struct{ *memStore[models.Lease] }

func newFakeLeases() *fakeLeases {
	return &fakeLeases{newMemStore("lease",
		func(l *models.Lease) *uint { return &l.ID },
		func(l *models.Lease) *uint { return &l.Version })}
}

func (f *fakeLeases) Create(_ context.Context, l *models.Lease) error { return f.create(l) }
func (f *fakeLeases) GetByID(_ context.Context, id uint) (*models.Lease, error) {
	return f.get(id)
}
func (f *fakeLeases) Update(_ context.Context, l *models.Lease) error { return f.update(l) }
func (f *fakeLeases) ExistsForApplication(_ context.Context, applicationID uint) (bool, error) {
	for _, l := range f.all() {
		if l.ApplicationID == applicationID {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeLeases) ListByProperty(_ context.Context, propertyID uint, _ repository.Page) ([]models.Lease, error) {
	var out []models.Lease
	for _, l := range f.all() {
		if l.PropertyID == propertyID {
			out = append(out, l)
		}
	}
	return out, nil
}
func (f *fakeLeases) ListActiveEndingBetween(_ context.Context, landlordID uint, from, to time.Time) ([]models.Lease, error) {
	var out []models.Lease
	for _, l := range f.all() {
		end := lifecycle.DateOnly(l.EndDate)
		if l.Status != models.LeaseActive || end.Before(from) || end.After(to) {
			continue
		}
		if landlordID != 0 && l.LandlordID != landlordID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
func (f *fakeLeases) ListActiveEndedBefore(_ context.Context, day time.Time, afterID uint, limit int) ([]models.Lease, error) {
	var out []models.Lease
	for _, l := range f.all() {
		if l.ID > afterID && l.Status == models.LeaseActive && lifecycle.DateOnly(l.EndDate).Before(day) {
			out = append(out, l)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
func (f *fakeLeases) CreateRenewal(_ context.Context, original, renewal *models.Lease) error {
	if err := f.create(renewal); err != nil {
		return err
	}
	original.SupersededByID = &renewal.ID
	return f.update(original)
}

type fakePayments struct {
	*memStore[models.Payment]
	// createErr, when set, is returned by every Create.
	createErr error
}

func newFakePayments() *fakePayments {
	return &fakePayments{memStore: newMemStore("payment",
		func(p *models.Payment) *uint { return &p.ID },
		func(p *models.Payment) *uint { return &p.Version })}
}

func (f *fakePayments) Create(_ context.Context, p *models.Payment) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.create(p)
}
func (f *fakePayments) GetByID(_ context.Context, id uint) (*models.Payment, error) {
	return f.get(id)
}
func (f *fakePayments) GetByGatewayRef(_ context.Context, ref string) (*models.Payment, error) {
	for _, p := range f.all() {
		if p.GatewayRef == ref {
			return &p, nil
		}
	}
	return nil, models.NewNotFoundError("payment", ref)
}
func (f *fakePayments) Update(_ context.Context, p *models.Payment) error { return f.update(p) }
func (f *fakePayments) ListByLease(_ context.Context, leaseID uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.all() {
		if p.LeaseID != nil && *p.LeaseID == leaseID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakePayments) FindLatest(_ context.Context, leaseID uint, t models.PaymentType, status models.PaymentStatus) (*models.Payment, error) {
	var found *models.Payment
	for _, p := range f.all() {
		if p.LeaseID != nil && *p.LeaseID == leaseID && p.Type == t && p.Status == status {
			p := p
			found = &p
		}
	}
	return found, nil
}

type fakeVendors struct{ *memStore[models.Vendor] }

func newFakeVendors() *fakeVendors {
	return &fakeVendors{newMemStore("vendor", func(v *models.Vendor) *uint { return &v.ID }, nil)}
}

func (f *fakeVendors) Create(_ context.Context, v *models.Vendor) error { return f.create(v) }
func (f *fakeVendors) GetByID(_ context.Context, id uint) (*models.Vendor, error) {
	return f.get(id)
}
func (f *fakeVendors) Update(_ context.Context, v *models.Vendor) error { return f.update(v) }
func (f *fakeVendors) List(_ context.Context, trade string, activeOnly bool, _ repository.Page) ([]models.Vendor, error) {
	var out []models.Vendor
	for _, v := range f.all() {
		if (trade == "" || v.Trade == trade) && (!activeOnly || v.Active) {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeInspections struct{ *memStore[models.Inspection] }

func newFakeInspections() *fakeInspections {
	return &fakeInspections{newMemStore("inspection",
		func(i *models.Inspection) *uint { return &i.ID },
		func(i *models.Inspection) *uint { return &i.Version })}
}

func (f *fakeInspections) Create(_ context.Context, i *models.Inspection) error { return f.create(i) }
func (f *fakeInspections) GetByID(_ context.Context, id uint) (*models.Inspection, error) {
	return f.get(id)
}
func (f *fakeInspections) Update(_ context.Context, i *models.Inspection) error { return f.update(i) }
func (f *fakeInspections) ListByProperty(_ context.Context, propertyID uint, _ repository.Page) ([]models.Inspection, error) {
	var out []models.Inspection
	for _, i := range f.all() {
		if i.PropertyID == propertyID {
			out = append(out, i)
		}
	}
	return out, nil
}

type fakeMaintenance struct{ *memStore[models.MaintenanceRequest] }

func newFakeMaintenance() *fakeMaintenance {
	return &fakeMaintenance{newMemStore("maintenance request",
		func(r *models.MaintenanceRequest) *uint { return &r.ID },
		func(r *models.MaintenanceRequest) *uint { return &r.Version })}
}

func (f *fakeMaintenance) Create(_ context.Context, r *models.MaintenanceRequest) error {
	return f.create(r)
}
func (f *fakeMaintenance) GetByID(_ context.Context, id uint) (*models.MaintenanceRequest, error) {
	return f.get(id)
}
func (f *fakeMaintenance) Update(_ context.Context, r *models.MaintenanceRequest) error {
	return f.update(r)
}
func (f *fakeMaintenance) ListByProperty(_ context.Context, propertyID uint, status models.MaintenanceStatus, _ repository.Page) ([]models.MaintenanceRequest, error) {
	var out []models.MaintenanceRequest
	for _, r := range f.all() {
		if r.PropertyID == propertyID && (status == "" || r.Status == status) {
			out = append(out, r)
		}
	}
	return out, nil
}

// recordingDispatcher keeps every intent and can fail chosen kinds the way the real
// dispatcher does: notifications never fail the call, providers do.
type recordingDispatcher struct {
	mu      sync.Mutex
	intents []effects.Intent
	fail    map[effects.Kind]bool
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{fail: map[effects.Kind]bool{}}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, intents ...effects.Intent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, in := range intents {
		if d.fail[in.Kind] && in.Kind != effects.KindNotify {
			return models.NewExternalServiceError(string(in.Kind), fmt.Errorf("provider unavailable"))
		}
		d.intents = append(d.intents, in)
	}
	return nil
}

func (d *recordingDispatcher) kinds() []effects.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]effects.Kind, 0, len(d.intents))
	for _, in := range d.intents {
		out = append(out, in.Kind)
	}
	return out
}

func (d *recordingDispatcher) events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, in := range d.intents {
		if in.Kind == effects.KindNotify {
			out = append(out, in.Event.Type)
		}
	}
	return out
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	d.intents = nil
	d.mu.Unlock()
}

// fixture wires every service over fresh fakes with a pinned clock.
type fixture struct {
	props       *fakeProperties
	apps        *fakeApplications
	leases      *fakeLeases
	payments    *fakePayments
	vendors     *fakeVendors
	inspections *fakeInspections
	maintenance *fakeMaintenance
	dispatcher  *recordingDispatcher
	now         time.Time
	keys        int

	applications *ApplicationService
	leaseSvc     *LeaseService
	paymentSvc   *PaymentService
}

var (
	landlord = models.Actor{ID: 10, Role: models.RoleLandlord}
	renter   = models.Actor{ID: 20, Role: models.RoleRenter}
	stranger = models.Actor{ID: 30, Role: models.RoleRenter}
	admin    = models.Actor{ID: 1, Role: models.RoleAdmin}
	system   = models.SystemActor()

	pageAll = repository.Page{Limit: 50}
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newFixture() *fixture {
	f := &fixture{
		props:       newFakeProperties(),
		apps:        newFakeApplications(),
		leases:      newFakeLeases(),
		payments:    newFakePayments(),
		vendors:     newFakeVendors(),
		inspections: newFakeInspections(),
		maintenance: newFakeMaintenance(),
		dispatcher:  newRecordingDispatcher(),
		now:         time.Date(2025, time.March, 1, 15, 30, 0, 0, time.UTC),
	}
	deps := Deps{
		Properties:   f.props,
		Applications: f.apps,
		Leases:       f.leases,
		Payments:     f.payments,
		Effects:      f.dispatcher,
		Now:          func() time.Time { return f.now },
		NewKey: func() string {
			f.keys++
			return fmt.Sprintf("key-%d", f.keys)
		},
	}
	f.applications = NewApplicationService(deps)
	f.leaseSvc = NewLeaseService(deps)
	f.paymentSvc = NewPaymentService(deps)
	return f
}

func (f *fixture) property(available bool) *models.Property {
	p := &models.Property{
		LandlordID: landlord.ID,
		Title:      "2BR on Court St",
		Address:    "120 Court St",
		City:       "Brooklyn",
		Bedrooms:   2,
		RentAmount: models.USD(120000),
		Available:  available,
	}
	if err := f.props.create(p); err != nil {
		panic(err)
	}
	return p
}

func validSubmission(propertyID uint) SubmitApplicationInput {
	return SubmitApplicationInput{
		PropertyID:    propertyID,
		MoveInDate:    date(2025, time.April, 1),
		MonthlyIncome: models.USD(480000),
		EmploymentInfo: models.EmploymentInfo{
			Employer:         "Acme",
			Position:         "Engineer",
			EmploymentLength: "3 years",
		},
		References: []models.Reference{{Name: "Pat", Relationship: "Manager", Phone: "555-0100"}},
		Documents: []models.Document{
			{Kind: models.DocumentIdentity, Name: "passport.pdf", URL: "https://files.example.com/passport.pdf"},
			{Kind: models.DocumentPayStub, Name: "stub.pdf", URL: "https://files.example.com/stub.pdf"},
		},
		CreditCheckConsent:     true,
		BackgroundCheckConsent: true,
	}
}

// approvedApplication submits and approves an application on a fresh property.
func (f *fixture) approvedApplication() (*models.Property, *models.Application) {
	p := f.property(true)
	app, err := f.applications.Submit(context.Background(), renter, validSubmission(p.ID))
	if err != nil {
		panic(err)
	}
	app, err = f.applications.Approve(context.Background(), landlord, app.ID, "")
	if err != nil {
		panic(err)
	}
	return p, app
}

// activeLease stores an ACTIVE lease directly.
func (f *fixture) activeLease(start, end time.Time) *models.Lease {
	p := f.property(false)
	l := &models.Lease{
		ApplicationID:   99,
		PropertyID:      p.ID,
		TenantID:        renter.ID,
		LandlordID:      landlord.ID,
		Status:          models.LeaseActive,
		StartDate:       start,
		EndDate:         end,
		MonthlyRent:     models.USD(120000),
		SecurityDeposit: models.USD(240000),
	}
	if err := f.leases.create(l); err != nil {
		panic(err)
	}
	return l
}
