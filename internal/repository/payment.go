package repository

import (
	"context"
	"errors"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"gorm.io/gorm"
)

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	GetByGatewayRef(ctx context.Context, ref string) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	ListByLease(ctx context.Context, leaseID uint) ([]models.Payment, error)
	// FindLatest returns the newest payment of a type for a lease, or nil.
	FindLatest(ctx context.Context, leaseID uint, paymentType models.PaymentType, status models.PaymentStatus) (*models.Payment, error)
}

type paymentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db, log: observability.NewRepoLogger("payments")}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.Version == 0 {
		payment.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translateError(err, "Payment", payment.IdempotencyKey)
	}
	r.log.LogCreate(ctx, map[string]interface{}{
		"id":     payment.ID,
		"type":   payment.Type,
		"amount": payment.Amount.Amount,
	})
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	return findByID[models.Payment](ctx, r.db, "Payment", id)
}

func (r *paymentRepository) GetByGatewayRef(ctx context.Context, ref string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("gateway_ref = ?", ref).First(&payment).Error; err != nil {
		return nil, translateError(err, "Payment", ref)
	}
	return &payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	expected := payment.Version
	payment.Version++
	if err := saveVersioned(ctx, r.db, r.log, payment, "Payment", payment.ID, expected); err != nil {
		payment.Version = expected
		return err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"id": payment.ID, "status": payment.Status})
	return nil
}

func (r *paymentRepository) ListByLease(ctx context.Context, leaseID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("created_at ASC, id ASC").
		Find(&payments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return payments, nil
}

func (r *paymentRepository) FindLatest(ctx context.Context, leaseID uint, paymentType models.PaymentType, status models.PaymentStatus) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("lease_id = ? AND type = ? AND status = ?", leaseID, paymentType, status).
		Order("id DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &payment, nil
}
