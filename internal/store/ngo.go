package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/models"
)

// SaveNgoMapping persists the alignment of an NGO field to a donor field.
// The donor field must exist.
func (s *Store) SaveNgoMapping(ctx context.Context, m models.NgoMapping) (*models.NgoMapping, error) {
	m.OwnerID = strings.TrimSpace(m.OwnerID)
	m.OwnerField = strings.TrimSpace(m.OwnerField)
	if m.OwnerID == "" {
		return nil, &mappingerror.ValidationError{Field: "owner_id", Reason: "must not be empty"}
	}
	if m.OwnerField == "" {
		return nil, &mappingerror.ValidationError{Field: "owner_field", Reason: "must not be empty"}
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return nil, &mappingerror.ValidationError{Field: "confidence", Reason: "must be between 0 and 1"}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var field models.DonorField
		err := tx.Take(&field, m.DonorFieldID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &mappingerror.NotFoundError{Entity: "donor field", ID: strconv.FormatUint(uint64(m.DonorFieldID), 10)}
		}
		if err != nil {
			return err
		}
		return tx.Omit("DonorField").Create(&m).Error
	})
	if err != nil {
		if errors.Is(err, mappingerror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save mapping for %s: %w", m.OwnerID, err)
	}
	return &m, nil
}

// ListNgoMappings returns the mappings saved for ownerID.
func (s *Store) ListNgoMappings(ctx context.Context, ownerID string) ([]models.NgoMapping, error) {
	var out []models.NgoMapping
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings for %s: %w", ownerID, err)
	}
	return out, nil
}
