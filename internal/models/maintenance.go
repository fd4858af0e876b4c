package models

import "time"

// MaintenancePriority orders the work queue.
type MaintenancePriority string

const (
	PriorityLow       MaintenancePriority = "LOW"
	PriorityMedium    MaintenancePriority = "MEDIUM"
	PriorityHigh      MaintenancePriority = "HIGH"
	PriorityEmergency MaintenancePriority = "EMERGENCY"
)

// Valid reports whether p is a known priority.
func (p MaintenancePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency:
		return true
	}
	return false
}

// MaintenanceStatus is the progress of a maintenance request.
type MaintenanceStatus string

const (
	MaintenanceOpen       MaintenanceStatus = "OPEN"
	MaintenanceAssigned   MaintenanceStatus = "ASSIGNED"
	MaintenanceInProgress MaintenanceStatus = "IN_PROGRESS"
	MaintenanceCompleted  MaintenanceStatus = "COMPLETED"
	MaintenanceCancelled  MaintenanceStatus = "CANCELLED"
)

// MaintenanceRequest is a repair ticket raised against a property.
type MaintenanceRequest struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	PropertyID  uint                `gorm:"not null;index" json:"property_id"`
	RequesterID uint                `gorm:"not null;index" json:"requester_id"`
	VendorID    *uint               `gorm:"index" json:"vendor_id,omitempty"`
	Title       string              `gorm:"size:200;not null" json:"title"`
	Description string              `gorm:"type:text" json:"description"`
	Priority    MaintenancePriority `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	Status      MaintenanceStatus   `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	Version     uint                `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (MaintenanceRequest) TableName() string {
	return "maintenance_requests"
}
