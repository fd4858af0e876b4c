package models

import "time"

// PaymentType identifies what a payment is for.
type PaymentType string

const (
	PaymentApplicationFee  PaymentType = "APPLICATION_FEE"
	PaymentSecurityDeposit PaymentType = "SECURITY_DEPOSIT"
	PaymentMonthlyRent     PaymentType = "MONTHLY_RENT"
	PaymentFirstMonthRent  PaymentType = "FIRST_MONTH_RENT"
	PaymentDepositRefund   PaymentType = "DEPOSIT_REFUND"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentApplicationFee, PaymentSecurityDeposit, PaymentMonthlyRent, PaymentFirstMonthRent, PaymentDepositRefund:
		return true
	}
	return false
}

// PaymentStatus is the settlement state reported by the gateway.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Payment records money moving between a renter and a landlord through the gateway.
// Fees are computed here; the gateway only settles.
type Payment struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	LeaseID        *uint         `gorm:"index" json:"lease_id,omitempty"`
	ApplicationID  *uint         `gorm:"index" json:"application_id,omitempty"`
	PayerID        uint          `gorm:"not null;index" json:"payer_id"`
	Type           PaymentType   `gorm:"type:varchar(30);not null" json:"type"`
	Status         PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Amount         Money         `gorm:"embedded;embeddedPrefix:amount_" json:"amount"`
	PlatformFee    Money         `gorm:"embedded;embeddedPrefix:platform_fee_" json:"platform_fee"`
	ProcessingFee  Money         `gorm:"embedded;embeddedPrefix:processing_fee_" json:"processing_fee"`
	LandlordNet    Money         `gorm:"embedded;embeddedPrefix:landlord_net_" json:"landlord_net"`
	GatewayRef     string        `gorm:"size:128;index" json:"gateway_ref,omitempty"`
	IdempotencyKey string        `gorm:"size:64;uniqueIndex;not null" json:"idempotency_key"`
	Version        uint          `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}
