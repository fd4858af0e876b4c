// Package models contains the persisted entities of the rental lifecycle plus the
// shared Money, Actor and error types.
package models

import "time"

// Property is a listed unit owned by a landlord. Applications, leases, inspections and
// maintenance requests all belong to one.
type Property struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LandlordID uint      `gorm:"not null;index" json:"landlord_id"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Address    string    `gorm:"size:255;not null" json:"address"`
	City       string    `gorm:"size:120;index" json:"city"`
	Bedrooms   int       `json:"bedrooms"`
	RentAmount Money     `gorm:"embedded;embeddedPrefix:rent_" json:"rent_amount"`
	Available  bool      `gorm:"not null" json:"available"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Property) TableName() string {
	return "properties"
}

// OwnedBy reports whether the actor is this property's landlord.
func (p *Property) OwnedBy(actor Actor) bool {
	return actor.Role == RoleLandlord && p.LandlordID == actor.ID
}
