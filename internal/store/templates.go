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

const (
	minTemplateNameLength = 2
	minFieldNameLength    = 1
)

// CreateTemplate creates a donor template named name.
func (s *Store) CreateTemplate(ctx context.Context, name string) (*models.DonorTemplate, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < minTemplateNameLength {
		return nil, &mappingerror.ValidationError{Field: "name", Reason: fmt.Sprintf("must be at least %d characters", minTemplateNameLength)}
	}

	tpl := models.DonorTemplate{Name: name}
	if err := s.db.WithContext(ctx).Create(&tpl).Error; err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return &tpl, nil
}

// GetTemplate returns template id with its fields in insertion order.
func (s *Store) GetTemplate(ctx context.Context, id uint) (*models.DonorTemplate, error) {
	var tpl models.DonorTemplate
	err := s.db.WithContext(ctx).
		Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Take(&tpl, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, templateNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template %d: %w", id, err)
	}
	return &tpl, nil
}

// ListTemplates returns every template without its fields.
func (s *Store) ListTemplates(ctx context.Context) ([]models.DonorTemplate, error) {
	var out []models.DonorTemplate
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return out, nil
}

// UpdateTemplate renames template id.
func (s *Store) UpdateTemplate(ctx context.Context, id uint, name string) (*models.DonorTemplate, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < minTemplateNameLength {
		return nil, &mappingerror.ValidationError{Field: "name", Reason: fmt.Sprintf("must be at least %d characters", minTemplateNameLength)}
	}

	res := s.db.WithContext(ctx).Model(&models.DonorTemplate{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update template %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, templateNotFound(id)
	}
	return s.GetTemplate(ctx, id)
}

// DeleteTemplate removes template id together with its fields and the NGO
// mappings pointing at them.
func (s *Store) DeleteTemplate(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fieldIDs := tx.Model(&models.DonorField{}).Select("id").Where("donor_template_id = ?", id)
		if err := tx.Where("donor_field_id IN (?)", fieldIDs).Delete(&models.NgoMapping{}).Error; err != nil {
			return fmt.Errorf("failed to delete mappings of template %d: %w", id, err)
		}
		if err := tx.Where("donor_template_id = ?", id).Delete(&models.DonorField{}).Error; err != nil {
			return fmt.Errorf("failed to delete fields of template %d: %w", id, err)
		}
		res := tx.Delete(&models.DonorTemplate{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete template %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return templateNotFound(id)
		}
		return nil
	})
}

// CreateField appends a field to template templateID.
func (s *Store) CreateField(ctx context.Context, templateID uint, name string) (*models.DonorField, error) {
	fields, err := s.BulkCreateFields(ctx, templateID, []string{name})
	if err != nil {
		return nil, err
	}
	return &fields[0], nil
}

// BulkCreateFields appends names, in order, to template templateID.
func (s *Store) BulkCreateFields(ctx context.Context, templateID uint, names []string) ([]models.DonorField, error) {
	if len(names) == 0 {
		return nil, &mappingerror.ValidationError{Field: "fields", Reason: "at least one field is required"}
	}
	for i, name := range names {
		if len([]rune(strings.TrimSpace(name))) < minFieldNameLength {
			return nil, &mappingerror.ValidationError{Field: "field_name", Reason: fmt.Sprintf("field %d must not be empty", i)}
		}
	}

	var out []models.DonorField
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireTemplate(tx, templateID); err != nil {
			return err
		}

		var next int64
		if err := tx.Model(&models.DonorField{}).Where("donor_template_id = ?", templateID).Count(&next).Error; err != nil {
			return err
		}

		out = make([]models.DonorField, len(names))
		for i, name := range names {
			out[i] = models.DonorField{
				DonorTemplateID: templateID,
				FieldName:       strings.TrimSpace(name),
				Position:        int(next) + i,
			}
		}
		return tx.Create(&out).Error
	})
	if err != nil {
		if errors.Is(err, mappingerror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create fields for template %d: %w", templateID, err)
	}
	return out, nil
}

// ListFields returns the fields of template templateID in insertion order.
func (s *Store) ListFields(ctx context.Context, templateID uint) ([]models.DonorField, error) {
	if err := requireTemplate(s.db.WithContext(ctx), templateID); err != nil {
		return nil, err
	}
	var out []models.DonorField
	err := s.db.WithContext(ctx).
		Where("donor_template_id = ?", templateID).
		Order("position ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list fields of template %d: %w", templateID, err)
	}
	return out, nil
}

// FieldNames returns the field names of template templateID in order.
func (s *Store) FieldNames(ctx context.Context, templateID uint) ([]string, error) {
	fields, err := s.ListFields(ctx, templateID)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.FieldName
	}
	return names, nil
}

func requireTemplate(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.DonorTemplate{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check template %d: %w", id, err)
	}
	if count == 0 {
		return templateNotFound(id)
	}
	return nil
}

func templateNotFound(id uint) error {
	return &mappingerror.NotFoundError{Entity: "donor template", ID: strconv.FormatUint(uint64(id), 10)}
}
