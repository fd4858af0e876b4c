package service

import (
	"context"
	"strings"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/effects"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/lifecycle"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/notifications"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/repository"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/validation"
)

// VendorInput is the editable part of a vendor.
type VendorInput struct {
	Name   string `json:"name" validate:"required,max=200"`
	Trade  string `json:"trade" validate:"required,max=100"`
	Phone  string `json:"phone" validate:"max=40"`
	Email  string `json:"email" validate:"omitempty,email"`
	Active *bool  `json:"active,omitempty"`
}

// VendorService manages the contractor directory.
type VendorService struct {
	repo repository.VendorRepository
}

// NewVendorService creates a new vendor service
func NewVendorService(repo repository.VendorRepository) *VendorService {
	return &VendorService{repo: repo}
}

func canManageVendors(actor models.Actor) bool {
	return actor.IsPrivileged() || actor.Role == models.RoleLandlord
}

func (s *VendorService) Create(ctx context.Context, actor models.Actor, in VendorInput) (*models.Vendor, error) {
	if !canManageVendors(actor) {
		return nil, forbidden("manage vendors")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	v := &models.Vendor{Active: true}
	applyVendor(v, in)
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *VendorService) Get(ctx context.Context, id uint) (*models.Vendor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *VendorService) List(ctx context.Context, trade string, activeOnly bool, page repository.Page) ([]models.Vendor, error) {
	return s.repo.List(ctx, strings.TrimSpace(trade), activeOnly, page)
}

// Update replaces the editable fields. Last write wins.
func (s *VendorService) Update(ctx context.Context, actor models.Actor, id uint, in VendorInput) (*models.Vendor, error) {
	if !canManageVendors(actor) {
		return nil, forbidden("manage vendors")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyVendor(v, in)
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func applyVendor(v *models.Vendor, in VendorInput) {
	v.Name = strings.TrimSpace(in.Name)
	v.Trade = strings.TrimSpace(in.Trade)
	v.Phone = strings.TrimSpace(in.Phone)
	v.Email = strings.TrimSpace(in.Email)
	if in.Active != nil {
		v.Active = *in.Active
	}
}

// ScheduleInspectionInput books an inspection.
type ScheduleInspectionInput struct {
	PropertyID    uint      `json:"property_id" validate:"required"`
	InspectorName string    `json:"inspector_name" validate:"required,max=200"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

// InspectionService schedules inspections and moves them through their states.
type InspectionService struct {
	repo       repository.InspectionRepository
	properties repository.PropertyRepository
}

// NewInspectionService creates a new inspection service
func NewInspectionService(repo repository.InspectionRepository, properties repository.PropertyRepository) *InspectionService {
	return &InspectionService{repo: repo, properties: properties}
}

func (s *InspectionService) managedProperty(ctx context.Context, actor models.Actor, propertyID uint) error {
	p, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return err
	}
	if !canManageProperty(actor, p) {
		return forbidden("manage inspections for this property")
	}
	return nil
}

func (s *InspectionService) Schedule(ctx context.Context, actor models.Actor, in ScheduleInspectionInput) (*models.Inspection, error) {
	var c validation.Collect
	c.Merge(in)
	c.Check(!in.ScheduledAt.IsZero(), "scheduled_at", "required")
	if err := c.Err(); err != nil {
		return nil, err
	}
	if err := s.managedProperty(ctx, actor, in.PropertyID); err != nil {
		return nil, err
	}
	insp := &models.Inspection{
		PropertyID:    in.PropertyID,
		InspectorName: strings.TrimSpace(in.InspectorName),
		ScheduledAt:   in.ScheduledAt.UTC(),
		Status:        models.InspectionScheduled,
		Version:       1,
	}
	if err := s.repo.Create(ctx, insp); err != nil {
		return nil, err
	}
	logTransition(ctx, actor, "inspection", insp.ID, "", string(insp.Status))
	return insp, nil
}

func (s *InspectionService) Get(ctx context.Context, actor models.Actor, id uint) (*models.Inspection, error) {
	insp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.managedProperty(ctx, actor, insp.PropertyID); err != nil {
		return nil, err
	}
	return insp, nil
}

func (s *InspectionService) ListForProperty(ctx context.Context, actor models.Actor, propertyID uint, page repository.Page) ([]models.Inspection, error) {
	if err := s.managedProperty(ctx, actor, propertyID); err != nil {
		return nil, err
	}
	return s.repo.ListByProperty(ctx, propertyID, page)
}

// Transition moves an inspection to target, recording findings when given.
func (s *InspectionService) Transition(ctx context.Context, actor models.Actor, id uint, target models.InspectionStatus, findings string) (*models.Inspection, error) {
	insp, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := insp.Status
	next, err := lifecycle.TransitionInspection(from, target)
	if err != nil {
		return nil, err
	}
	insp.Status = next
	if f := strings.TrimSpace(findings); f != "" {
		insp.Findings = f
	}
	if err := s.repo.Update(ctx, insp); err != nil {
		return nil, err
	}
	logTransition(ctx, actor, "inspection", insp.ID, string(from), string(next))
	return insp, nil
}

// CreateMaintenanceInput opens a repair ticket.
type CreateMaintenanceInput struct {
	PropertyID  uint                       `json:"property_id" validate:"required"`
	Title       string                     `json:"title" validate:"required,max=200"`
	Description string                     `json:"description" validate:"max=5000"`
	Priority    models.MaintenancePriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH EMERGENCY"`
}

// MaintenanceService runs repair tickets from OPEN to COMPLETED.
type MaintenanceService struct {
	repo       repository.MaintenanceRepository
	properties repository.PropertyRepository
	vendors    repository.VendorRepository
	leases     repository.LeaseRepository
	effects    EffectDispatcher
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(repo repository.MaintenanceRepository, properties repository.PropertyRepository, vendors repository.VendorRepository, leases repository.LeaseRepository, dispatcher EffectDispatcher) *MaintenanceService {
	return &MaintenanceService{repo: repo, properties: properties, vendors: vendors, leases: leases, effects: dispatcher}
}

// isTenantOf reports whether actor holds an ACTIVE lease on the property.
func (s *MaintenanceService) isTenantOf(ctx context.Context, actor models.Actor, propertyID uint) (bool, error) {
	if actor.Role != models.RoleRenter {
		return false, nil
	}
	leases, err := s.leases.ListByProperty(ctx, propertyID, repository.Page{Limit: 100})
	if err != nil {
		return false, err
	}
	for _, l := range leases {
		if l.TenantID == actor.ID && l.Status == models.LeaseActive {
			return true, nil
		}
	}
	return false, nil
}

// Create opens a request. The landlord and current tenants of the property may raise one.
func (s *MaintenanceService) Create(ctx context.Context, actor models.Actor, in CreateMaintenanceInput) (*models.MaintenanceRequest, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	p, err := s.properties.GetByID(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(actor, p) {
		tenant, err := s.isTenantOf(ctx, actor, p.ID)
		if err != nil {
			return nil, err
		}
		if !tenant {
			return nil, forbidden("raise maintenance requests for this property")
		}
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	req := &models.MaintenanceRequest{
		PropertyID:  p.ID,
		RequesterID: actor.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Priority:    priority,
		Status:      models.MaintenanceOpen,
		Version:     1,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}
	logTransition(ctx, actor, "maintenance_request", req.ID, "", string(req.Status))
	if req.RequesterID != p.LandlordID {
		s.notify(ctx, p.LandlordID, req)
	}
	return req, nil
}

func (s *MaintenanceService) load(ctx context.Context, actor models.Actor, id uint) (*models.MaintenanceRequest, *models.Property, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.properties.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, nil, err
	}
	if !canManageProperty(actor, p) && req.RequesterID != actor.ID {
		return nil, nil, forbidden("view this maintenance request")
	}
	return req, p, nil
}

func (s *MaintenanceService) Get(ctx context.Context, actor models.Actor, id uint) (*models.MaintenanceRequest, error) {
	req, _, err := s.load(ctx, actor, id)
	return req, err
}

func (s *MaintenanceService) ListForProperty(ctx context.Context, actor models.Actor, propertyID uint, status models.MaintenanceStatus, page repository.Page) ([]models.MaintenanceRequest, error) {
	p, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(actor, p) {
		return nil, forbidden("list maintenance requests for this property")
	}
	return s.repo.ListByProperty(ctx, propertyID, status, page)
}

// AssignVendor attaches an active vendor. An OPEN request moves to ASSIGNED; an
// already assigned one just changes vendor.
func (s *MaintenanceService) AssignVendor(ctx context.Context, actor models.Actor, id, vendorID uint) (*models.MaintenanceRequest, error) {
	req, p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(actor, p) {
		return nil, forbidden("assign vendors to this request")
	}
	vendor, err := s.vendors.GetByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if !vendor.Active {
		return nil, models.NewPreconditionFailedError("vendor is not active")
	}

	from := req.Status
	req.VendorID = &vendor.ID
	switch req.Status {
	case models.MaintenanceOpen:
		next, err := lifecycle.TransitionMaintenance(req, models.MaintenanceAssigned)
		if err != nil {
			return nil, err
		}
		req.Status = next
	case models.MaintenanceAssigned:
	default:
		return nil, models.NewInvalidTransitionError("maintenance request", string(from), "assign a vendor to")
	}
	if err := s.repo.Update(ctx, req); err != nil {
		return nil, err
	}
	if from != req.Status {
		logTransition(ctx, actor, "maintenance_request", req.ID, string(from), string(req.Status))
		s.notify(ctx, req.RequesterID, req)
	}
	return req, nil
}

// Transition moves a request forward. The requester may only cancel.
func (s *MaintenanceService) Transition(ctx context.Context, actor models.Actor, id uint, target models.MaintenanceStatus) (*models.MaintenanceRequest, error) {
	req, p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !canManageProperty(actor, p) && target != models.MaintenanceCancelled {
		return nil, forbidden("move this request to " + string(target))
	}
	from := req.Status
	next, err := lifecycle.TransitionMaintenance(req, target)
	if err != nil {
		return nil, err
	}
	req.Status = next
	if err := s.repo.Update(ctx, req); err != nil {
		return nil, err
	}
	logTransition(ctx, actor, "maintenance_request", req.ID, string(from), string(next))
	notifyID := req.RequesterID
	if actor.ID == req.RequesterID {
		notifyID = p.LandlordID
	}
	s.notify(ctx, notifyID, req)
	return req, nil
}

func (s *MaintenanceService) notify(ctx context.Context, userID uint, req *models.MaintenanceRequest) {
	if s.effects == nil {
		return
	}
	ev := notifications.NewEvent(notifications.EventMaintenanceStatusChanged, "maintenance_request", req.ID, map[string]any{
		"status":   string(req.Status),
		"priority": string(req.Priority),
	})
	_ = s.effects.Dispatch(ctx, effects.Notify(userID, ev))
}
