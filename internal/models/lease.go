package models

import (
	"time"

	"gorm.io/datatypes"
)

// LeaseStatus is the contractual state of a lease.
type LeaseStatus string

const (
	LeaseDraft            LeaseStatus = "DRAFT"
	LeasePendingSignature LeaseStatus = "PENDING_SIGNATURE"
	LeaseActive           LeaseStatus = "ACTIVE"
	LeaseExpired          LeaseStatus = "EXPIRED"
	LeaseTerminated       LeaseStatus = "TERMINATED"
)

// Valid reports whether s is a known lease status.
func (s LeaseStatus) Valid() bool {
	switch s {
	case LeaseDraft, LeasePendingSignature, LeaseActive, LeaseExpired, LeaseTerminated:
		return true
	}
	return false
}

// Keys written into Lease.Terms by termination and renewal.
const (
	TermTerminationReason = "terminationReason"
	TermTerminatedAt      = "terminatedAt"
	TermTerminationDate   = "terminationDate"
	TermRefundDeposit     = "refundDeposit"
	TermRenewalTerms      = "renewalTerms"
)

// Lease is the contract produced from an approved application. A renewal creates a new
// lease that points back at the one it supersedes.
type Lease struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	ApplicationID   uint              `gorm:"not null;index;uniqueIndex:idx_leases_original_per_application,where:supersedes_id IS NULL" json:"application_id"`
	PropertyID      uint              `gorm:"not null;index" json:"property_id"`
	TenantID        uint              `gorm:"not null;index" json:"tenant_id"`
	LandlordID      uint              `gorm:"not null;index" json:"landlord_id"`
	Status          LeaseStatus       `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	StartDate       time.Time         `gorm:"not null" json:"start_date"`
	EndDate         time.Time         `gorm:"not null;index" json:"end_date"`
	MonthlyRent     Money             `gorm:"embedded;embeddedPrefix:monthly_rent_" json:"monthly_rent"`
	SecurityDeposit Money             `gorm:"embedded;embeddedPrefix:security_deposit_" json:"security_deposit"`
	SignedAt        *time.Time        `json:"signed_at,omitempty"`
	DocumentURL     string            `gorm:"size:512" json:"document_url,omitempty"`
	Terms           datatypes.JSONMap `json:"terms,omitempty"`
	SupersedesID    *uint             `gorm:"index" json:"supersedes_id,omitempty"`
	SupersededByID  *uint             `json:"superseded_by_id,omitempty"`
	Version         uint              `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Lease) TableName() string {
	return "leases"
}

// IsParty reports whether the actor is the tenant or landlord on this lease.
func (l *Lease) IsParty(actor Actor) bool {
	switch actor.Role {
	case RoleRenter:
		return l.TenantID == actor.ID
	case RoleLandlord:
		return l.LandlordID == actor.ID
	}
	return false
}

// IsSuperseded reports whether a renewal already replaced this lease.
func (l *Lease) IsSuperseded() bool {
	return l.SupersededByID != nil
}
