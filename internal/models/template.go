package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DonorTemplate is a named donor budget layout.
type DonorTemplate struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Fields    []DonorField `gorm:"constraint:OnDelete:CASCADE" json:"fields,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// DonorField is one column of a donor template. Position keeps the order in
// which fields were added.
type DonorField struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	DonorTemplateID uint      `gorm:"not null;index" json:"donor_template_id"`
	FieldName       string    `gorm:"not null" json:"field_name"`
	Position        int       `gorm:"not null;default:0" json:"position"`
	CreatedAt       time.Time `json:"created_at"`
}

// BudgetCategory groups budget lines, optionally scoped to a donor template.
type BudgetCategory struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name            string    `gorm:"not null;index" json:"name"`
	Code            string    `json:"code,omitempty"`
	DonorTemplateID *uint     `gorm:"index" json:"donor_template_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (c *BudgetCategory) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// NgoMapping persists the alignment of one NGO-side field to a donor field.
type NgoMapping struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	OwnerID      string     `gorm:"not null;index" json:"owner_id"`
	OwnerField   string     `gorm:"not null" json:"owner_field"`
	DonorFieldID uint       `gorm:"not null;index" json:"donor_field_id"`
	DonorField   DonorField `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Confidence   float64    `json:"confidence"`
	CreatedAt    time.Time  `json:"created_at"`
}
