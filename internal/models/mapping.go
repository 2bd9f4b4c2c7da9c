// Package models provides the data structures used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Metadata is an opaque JSON object attached to a learned mapping.
type Metadata map[string]any

// Merge returns a copy of m with every key of other written over it.
func (m Metadata) Merge(other Metadata) Metadata {
	out := make(Metadata, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// SemanticFieldMapping is a learned association between a raw header label
// and a canonical target. NormalizedValue is unique across the table.
type SemanticFieldMapping struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id" yaml:"id" csv:"id"`
	RawValue        string    `gorm:"not null" json:"raw_value" yaml:"raw_value" csv:"raw_value"`
	NormalizedValue string    `gorm:"not null;uniqueIndex" json:"normalized_value" yaml:"normalized_value" csv:"normalized_value"`
	MappedTo        string    `gorm:"not null;index" json:"mapped_to" yaml:"mapped_to" csv:"mapped_to"`
	MappedKey       string    `json:"mapped_key" yaml:"mapped_key,omitempty" csv:"mapped_key"`
	Confidence      float64   `gorm:"not null;default:0" json:"confidence" yaml:"confidence" csv:"confidence"`
	Source          Source    `gorm:"not null;type:varchar(16)" json:"source" yaml:"source" csv:"source"`
	TimesUsed       int64     `gorm:"not null;default:0" json:"times_used" yaml:"times_used" csv:"times_used"`
	Approved        bool      `gorm:"not null;default:false" json:"approved" yaml:"approved" csv:"approved"`
	Metadata        Metadata  `gorm:"type:text;serializer:json" json:"metadata,omitempty" yaml:"metadata,omitempty" csv:"-"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at" csv:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at" csv:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (m *SemanticFieldMapping) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// MappingRecord carries the values persisted by a Record call.
type MappingRecord struct {
	RawValue        string
	NormalizedValue string
	MappedTo        string
	MappedKey       string
	Confidence      float64
	Source          Source
	Approved        bool
	Metadata        Metadata
}

// MappingUpdate holds the mutable fields of a learned mapping. Nil fields are
// left unchanged; Metadata is merged key-wise.
type MappingUpdate struct {
	MappedTo   *string  `json:"mapped_to,omitempty"`
	MappedKey  *string  `json:"mapped_key,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

// MappingFile is the YAML document used for mapping import and export.
type MappingFile struct {
	Mappings []SemanticFieldMapping `yaml:"mappings"`
}
