package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/models"
	"fjacquet/donor-mapper/internal/textutils"
)

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 100

// Lookup returns the mapping whose normalized value equals normalized, or
// nil when none exists.
func (s *Store) Lookup(ctx context.Context, normalized string) (*models.SemanticFieldMapping, error) {
	var m models.SemanticFieldMapping
	err := s.db.WithContext(ctx).Where("normalized_value = ?", normalized).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up mapping %q: %w", normalized, err)
	}
	return &m, nil
}

// Record inserts a mapping. When the normalized value already exists the
// existing row keeps its id, raw value and usage counter and takes the new
// target, key, confidence, source, approval and metadata. An approved row is
// only replaced by another approved record; otherwise it is returned as is.
func (s *Store) Record(ctx context.Context, rec models.MappingRecord) (*models.SemanticFieldMapping, error) {
	return s.record(s.db.WithContext(ctx), rec)
}

func (s *Store) record(tx *gorm.DB, rec models.MappingRecord) (*models.SemanticFieldMapping, error) {
	if err := validateRecord(&rec); err != nil {
		return nil, err
	}

	row := models.SemanticFieldMapping{
		RawValue:        rec.RawValue,
		NormalizedValue: rec.NormalizedValue,
		MappedTo:        rec.MappedTo,
		MappedKey:       rec.MappedKey,
		Confidence:      rec.Confidence,
		Source:          rec.Source,
		Approved:        rec.Approved,
		Metadata:        rec.Metadata,
	}

	updates := clause.AssignmentColumns([]string{"mapped_to", "mapped_key", "confidence", "source", "approved", "updated_at"})
	updates = append(updates,
		clause.Assignment{Column: clause.Column{Name: "metadata"}, Value: gorm.Expr("COALESCE(excluded.metadata, metadata)")},
	)

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "normalized_value"}},
		DoUpdates: updates,
		Where:     clause.Where{Exprs: []clause.Expression{gorm.Expr("NOT approved OR excluded.approved")}},
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record mapping %q: %w", rec.NormalizedValue, err)
	}

	var stored models.SemanticFieldMapping
	if err := tx.Where("normalized_value = ?", rec.NormalizedValue).Take(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to reload mapping %q: %w", rec.NormalizedValue, err)
	}

	s.logger.Debug("Recorded mapping",
		logging.Field{Key: logging.FieldNormalized, Value: stored.NormalizedValue},
		logging.Field{Key: logging.FieldMappedTo, Value: stored.MappedTo},
		logging.Field{Key: logging.FieldSource, Value: string(stored.Source)})
	return &stored, nil
}

func validateRecord(rec *models.MappingRecord) error {
	if strings.TrimSpace(rec.RawValue) == "" {
		return &mappingerror.ValidationError{Field: "raw_value", Reason: "must not be empty"}
	}
	if rec.NormalizedValue == "" {
		rec.NormalizedValue = textutils.Normalize(rec.RawValue)
	}
	if !models.ValidMappedTo(rec.MappedTo) {
		return &mappingerror.ValidationError{Field: "mapped_to", Reason: fmt.Sprintf("unknown target %q", rec.MappedTo)}
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		return &mappingerror.ValidationError{Field: "confidence", Reason: "must be between 0 and 1"}
	}
	if rec.Source == "" {
		rec.Source = models.SourceHuman
	}
	if !rec.Source.Valid() {
		return &mappingerror.ValidationError{Field: "source", Reason: fmt.Sprintf("unknown source %q", rec.Source)}
	}
	return nil
}

// BulkRecord records every mapping in a single transaction and returns the
// number of rows written.
func (s *Store) BulkRecord(ctx context.Context, recs []models.MappingRecord) (int, error) {
	count := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			if _, err := s.record(tx, rec); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Touch atomically increments the usage counter of mapping id.
func (s *Store) Touch(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&models.SemanticFieldMapping{}).
		Where("id = ?", id).
		UpdateColumn("times_used", gorm.Expr("times_used + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to update usage of mapping %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return &mappingerror.NotFoundError{Entity: "mapping", ID: id}
	}
	return nil
}

// Get returns mapping id.
func (s *Store) Get(ctx context.Context, id string) (*models.SemanticFieldMapping, error) {
	var m models.SemanticFieldMapping
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &mappingerror.NotFoundError{Entity: "mapping", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping %s: %w", id, err)
	}
	return &m, nil
}

// List returns mappings, most used first. A non-empty ids restricts the
// result to those mappings. A non-positive limit uses DefaultListLimit.
func (s *Store) List(ctx context.Context, ids []string, limit int) ([]models.SemanticFieldMapping, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q := s.db.WithContext(ctx).Order("times_used DESC").Order("normalized_value ASC").Limit(limit)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}

	var out []models.SemanticFieldMapping
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	return out, nil
}

// All returns every mapping ordered by normalized value.
func (s *Store) All(ctx context.Context) ([]models.SemanticFieldMapping, error) {
	var out []models.SemanticFieldMapping
	if err := s.db.WithContext(ctx).Order("normalized_value ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}
	return out, nil
}

// Update applies upd to mapping id. Raw and normalized values are immutable;
// metadata keys are merged into the existing metadata.
func (s *Store) Update(ctx context.Context, id string, upd models.MappingUpdate) (*models.SemanticFieldMapping, error) {
	if upd.MappedTo != nil && !models.ValidMappedTo(*upd.MappedTo) {
		return nil, &mappingerror.ValidationError{Field: "mapped_to", Reason: fmt.Sprintf("unknown target %q", *upd.MappedTo)}
	}
	if upd.Confidence != nil && (*upd.Confidence < 0 || *upd.Confidence > 1) {
		return nil, &mappingerror.ValidationError{Field: "confidence", Reason: "must be between 0 and 1"}
	}

	var out models.SemanticFieldMapping
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).Take(&out).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &mappingerror.NotFoundError{Entity: "mapping", ID: id}
		}
		if err != nil {
			return err
		}

		if upd.MappedTo != nil {
			out.MappedTo = *upd.MappedTo
		}
		if upd.MappedKey != nil {
			out.MappedKey = *upd.MappedKey
		}
		if upd.Confidence != nil {
			out.Confidence = *upd.Confidence
		}
		if upd.Metadata != nil {
			out.Metadata = out.Metadata.Merge(upd.Metadata)
		}

		return tx.Model(&out).Select("mapped_to", "mapped_key", "confidence", "metadata", "updated_at").Updates(&out).Error
	})
	if err != nil {
		if errors.Is(err, mappingerror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update mapping %s: %w", id, err)
	}
	return &out, nil
}

// Approve marks mapping id as human approved.
func (s *Store) Approve(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.SemanticFieldMapping{}).Where("id = ?", id).Update("approved", true)
	if res.Error != nil {
		return fmt.Errorf("failed to approve mapping %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return &mappingerror.NotFoundError{Entity: "mapping", ID: id}
	}
	return nil
}

// Delete removes mapping id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SemanticFieldMapping{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete mapping %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return &mappingerror.NotFoundError{Entity: "mapping", ID: id}
	}
	return nil
}
