package models

import "time"

// InspectionStatus is the progress of a scheduled property inspection.
type InspectionStatus string

const (
	InspectionScheduled  InspectionStatus = "SCHEDULED"
	InspectionInProgress InspectionStatus = "IN_PROGRESS"
	InspectionCompleted  InspectionStatus = "COMPLETED"
	InspectionCancelled  InspectionStatus = "CANCELLED"
)

// Inspection is a visit to a property, e.g. move-in or move-out.
type Inspection struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	PropertyID    uint             `gorm:"not null;index" json:"property_id"`
	InspectorName string           `gorm:"size:200;not null" json:"inspector_name"`
	ScheduledAt   time.Time        `gorm:"not null" json:"scheduled_at"`
	Status        InspectionStatus `gorm:"type:varchar(20);not null;default:'SCHEDULED'" json:"status"`
	Findings      string           `gorm:"type:text" json:"findings,omitempty"`
	Version       uint             `gorm:"not null;default:1" json:"version"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Inspection) TableName() string {
	return "inspections"
}
