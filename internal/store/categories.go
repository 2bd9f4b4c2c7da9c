package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/models"
)

// CreateCategory stores a budget category. A non-nil DonorTemplateID must
// reference an existing template.
func (s *Store) CreateCategory(ctx context.Context, cat models.BudgetCategory) (*models.BudgetCategory, error) {
	cat.Name = strings.TrimSpace(cat.Name)
	if cat.Name == "" {
		return nil, &mappingerror.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if cat.DonorTemplateID != nil {
		if err := requireTemplate(s.db.WithContext(ctx), *cat.DonorTemplateID); err != nil {
			return nil, err
		}
	}
	if err := s.db.WithContext(ctx).Create(&cat).Error; err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", cat.Name, err)
	}
	return &cat, nil
}

// ListCategories returns every category, or only those of templateID when it
// is non-nil.
func (s *Store) ListCategories(ctx context.Context, templateID *uint) ([]models.BudgetCategory, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if templateID != nil {
		q = q.Where("donor_template_id = ?", *templateID)
	}
	var out []models.BudgetCategory
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return out, nil
}

// GetOrCreateMiscellaneous returns the "Miscellaneous" category of templateID
// (or the global one when nil), creating it on first use.
func (s *Store) GetOrCreateMiscellaneous(ctx context.Context, templateID *uint) (*models.BudgetCategory, error) {
	var cat models.BudgetCategory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("name = ?", models.MiscellaneousCategory)
		if templateID != nil {
			q = q.Where("donor_template_id = ?", *templateID)
		} else {
			q = q.Where("donor_template_id IS NULL")
		}
		err := q.Take(&cat).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		cat = models.BudgetCategory{Name: models.MiscellaneousCategory, Code: "misc", DonorTemplateID: templateID}
		return tx.Create(&cat).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get miscellaneous category: %w", err)
	}
	return &cat, nil
}
