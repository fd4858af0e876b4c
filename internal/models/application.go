package models

import (
	"time"

	"gorm.io/datatypes"
)

// ApplicationStatus is the review state of a rental application.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "PENDING"
	ApplicationApproved  ApplicationStatus = "APPROVED"
	ApplicationRejected  ApplicationStatus = "REJECTED"
	ApplicationWithdrawn ApplicationStatus = "WITHDRAWN"
)

// IsTerminal reports whether no further review action is possible.
func (s ApplicationStatus) IsTerminal() bool {
	return s != ApplicationPending
}

// BackgroundCheckStatus tracks the external screening request.
type BackgroundCheckStatus string

const (
	BackgroundCheckNotStarted BackgroundCheckStatus = "NOT_STARTED"
	BackgroundCheckPending    BackgroundCheckStatus = "PENDING"
	BackgroundCheckCompleted  BackgroundCheckStatus = "COMPLETED"
	BackgroundCheckFailed     BackgroundCheckStatus = "FAILED"
)

// DocumentKind classifies an uploaded supporting document.
type DocumentKind string

const (
	DocumentIdentity      DocumentKind = "IDENTITY"
	DocumentPayStub       DocumentKind = "PAY_STUB"
	DocumentBankStatement DocumentKind = "BANK_STATEMENT"
	DocumentOther         DocumentKind = "OTHER"
)

// EmploymentInfo is stored as a JSON column on the application.
type EmploymentInfo struct {
	Employer         string `json:"employer" validate:"required"`
	Position         string `json:"position" validate:"required"`
	EmploymentLength string `json:"employment_length" validate:"required"`
	SupervisorName   string `json:"supervisor_name,omitempty"`
	SupervisorPhone  string `json:"supervisor_phone,omitempty"`
}

// Reference is one personal or professional reference, kept in submission order.
type Reference struct {
	Name         string `json:"name" validate:"required"`
	Relationship string `json:"relationship" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
}

// Document points at an already-uploaded file.
type Document struct {
	Kind DocumentKind `json:"kind" validate:"required,oneof=IDENTITY PAY_STUB BANK_STATEMENT OTHER"`
	Name string       `json:"name" validate:"required"`
	URL  string       `json:"url" validate:"required,url"`
}

// Application is a renter's request to lease a property.
type Application struct {
	ID                     uint                               `gorm:"primaryKey" json:"id"`
	PropertyID             uint                               `gorm:"not null;index;uniqueIndex:idx_applications_open_per_applicant,where:status = 'PENDING' OR status = 'APPROVED'" json:"property_id"`
	ApplicantID            uint                               `gorm:"not null;index;uniqueIndex:idx_applications_open_per_applicant,where:status = 'PENDING' OR status = 'APPROVED'" json:"applicant_id"`
	Status                 ApplicationStatus                  `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	MoveInDate             time.Time                          `gorm:"not null" json:"move_in_date"`
	MonthlyIncome          Money                              `gorm:"embedded;embeddedPrefix:monthly_income_" json:"monthly_income"`
	EmploymentInfo         datatypes.JSONType[EmploymentInfo] `json:"employment_info"`
	References             datatypes.JSONSlice[Reference]     `json:"references"`
	Documents              datatypes.JSONSlice[Document]      `json:"documents"`
	CreditCheckConsent     bool                               `gorm:"not null" json:"credit_check_consent"`
	BackgroundCheckConsent bool                               `gorm:"not null" json:"background_check_consent"`
	BackgroundCheckStatus  BackgroundCheckStatus              `gorm:"type:varchar(20);not null;default:'NOT_STARTED'" json:"background_check_status"`
	BackgroundCheckRef     string                             `gorm:"size:128;index" json:"background_check_ref,omitempty"`
	Notes                  string                             `gorm:"type:text" json:"notes,omitempty"`
	LandlordNotes          string                             `gorm:"type:text" json:"landlord_notes,omitempty"`
	Version                uint                               `gorm:"not null;default:1" json:"version"`
	CreatedAt              time.Time                          `json:"created_at"`
	UpdatedAt              time.Time                          `json:"updated_at"`

	Property *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}

// TableName specifies the table name for GORM
func (Application) TableName() string {
	return "applications"
}

// HasDocument reports whether at least one document of the given kind is attached.
func (a *Application) HasDocument(kind DocumentKind) bool {
	for _, d := range a.Documents {
		if d.Kind == kind {
			return true
		}
	}
	return false
}
