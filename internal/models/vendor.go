package models

import "time"

// Vendor is a contractor that can be assigned maintenance work.
type Vendor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Trade     string    `gorm:"size:100;index" json:"trade"`
	Phone     string    `gorm:"size:40" json:"phone,omitempty"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Vendor) TableName() string {
	return "vendors"
}
