package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/models"
)

func TestTemplates_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTemplate(ctx, " X ")
	assert.True(t, mappingerror.IsValidation(err), "names shorter than two characters are rejected")

	tpl, err := s.CreateTemplate(ctx, "EU Grant")
	require.NoError(t, err)
	assert.NotZero(t, tpl.ID)

	renamed, err := s.UpdateTemplate(ctx, tpl.ID, "EU Grant 2025")
	require.NoError(t, err)
	assert.Equal(t, "EU Grant 2025", renamed.Name)

	list, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = s.UpdateTemplate(ctx, 999, "Other")
	assert.ErrorIs(t, err, mappingerror.ErrNotFound)
	_, err = s.GetTemplate(ctx, 999)
	assert.ErrorIs(t, err, mappingerror.ErrNotFound)
}

func TestFields_KeepInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tpl, err := s.CreateTemplate(ctx, "USAID")
	require.NoError(t, err)

	_, err = s.BulkCreateFields(ctx, tpl.ID, []string{"Staff Costs", "Travel", "Equipment"})
	require.NoError(t, err)
	field, err := s.CreateField(ctx, tpl.ID, "Overheads")
	require.NoError(t, err)
	assert.Equal(t, 3, field.Position)

	names, err := s.FieldNames(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Staff Costs", "Travel", "Equipment", "Overheads"}, names)

	got, err := s.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, got.Fields, 4)
	assert.Equal(t, "Staff Costs", got.Fields[0].FieldName)

	_, err = s.CreateField(ctx, tpl.ID, "  ")
	assert.True(t, mappingerror.IsValidation(err))
	_, err = s.BulkCreateFields(ctx, tpl.ID, nil)
	assert.True(t, mappingerror.IsValidation(err))
	_, err = s.CreateField(ctx, 999, "Orphan")
	assert.ErrorIs(t, err, mappingerror.ErrNotFound)
	_, err = s.ListFields(ctx, 999)
	assert.ErrorIs(t, err, mappingerror.ErrNotFound)
}

func TestDeleteTemplate_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tpl, err := s.CreateTemplate(ctx, "Norad")
	require.NoError(t, err)
	fields, err := s.BulkCreateFields(ctx, tpl.ID, []string{"Salaries", "Rent"})
	require.NoError(t, err)
	_, err = s.SaveNgoMapping(ctx, models.NgoMapping{OwnerID: "ngo-1", OwnerField: "Staff", DonorFieldID: fields[0].ID, Confidence: 0.8})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTemplate(ctx, tpl.ID))

	var fieldCount, mappingCount int64
	require.NoError(t, s.DB().Model(&models.DonorField{}).Count(&fieldCount).Error)
	require.NoError(t, s.DB().Model(&models.NgoMapping{}).Count(&mappingCount).Error)
	assert.Zero(t, fieldCount)
	assert.Zero(t, mappingCount)

	assert.ErrorIs(t, s.DeleteTemplate(ctx, tpl.ID), mappingerror.ErrNotFound)
}

func TestCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tpl, err := s.CreateTemplate(ctx, "SIDA")
	require.NoError(t, err)

	_, err = s.CreateCategory(ctx, models.BudgetCategory{Name: "Staff", Code: "staff_costs", DonorTemplateID: &tpl.ID})
	require.NoError(t, err)
	_, err = s.CreateCategory(ctx, models.BudgetCategory{Name: "Global"})
	require.NoError(t, err)

	_, err = s.CreateCategory(ctx, models.BudgetCategory{Name: " "})
	assert.True(t, mappingerror.IsValidation(err))
	missing := uint(999)
	_, err = s.CreateCategory(ctx, models.BudgetCategory{Name: "Lost", DonorTemplateID: &missing})
	assert.ErrorIs(t, err, mappingerror.ErrNotFound)

	scoped, err := s.ListCategories(ctx, &tpl.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "Staff", scoped[0].Name)

	all, err := s.ListCategories(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetOrCreateMiscellaneous(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateMiscellaneous(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MiscellaneousCategory, first.Name)

	second, err := s.GetOrCreateMiscellaneous(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	tpl, err := s.CreateTemplate(ctx, "GIZ")
	require.NoError(t, err)
	scoped, err := s.GetOrCreateMiscellaneous(ctx, &tpl.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, scoped.ID)
	require.NotNil(t, scoped.DonorTemplateID)
	assert.Equal(t, tpl.ID, *scoped.DonorTemplateID)
}

func TestNgoMappings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tpl, err := s.CreateTemplate(ctx, "ECHO")
	require.NoError(t, err)
	field, err := s.CreateField(ctx, tpl.ID, "Staff Costs")
	require.NoError(t, err)

	saved, err := s.SaveNgoMapping(ctx, models.NgoMapping{OwnerID: "ngo-7", OwnerField: "Staff Cost", DonorFieldID: field.ID, Confidence: 0.952})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	_, err = s.SaveNgoMapping(ctx, models.NgoMapping{OwnerID: "ngo-7", OwnerField: "Rent", DonorFieldID: 999})
	assert.ErrorIs(t, err, mappingerror.ErrNotFound)
	_, err = s.SaveNgoMapping(ctx, models.NgoMapping{OwnerField: "Rent", DonorFieldID: field.ID})
	assert.True(t, mappingerror.IsValidation(err))

	list, err := s.ListNgoMappings(ctx, "ngo-7")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Staff Cost", list[0].OwnerField)

	empty, err := s.ListNgoMappings(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMockMappingStore(t *testing.T) {
	ctx := context.Background()
	m := NewMockMappingStore(models.SemanticFieldMapping{NormalizedValue: "usd", MappedTo: models.MappedToCurrency})

	got, err := m.Lookup(ctx, "usd")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NoError(t, m.Touch(ctx, got.ID))

	stored, ok := m.Mapping("usd")
	require.True(t, ok)
	assert.Equal(t, int64(1), stored.TimesUsed)

	rec, err := m.Record(ctx, models.MappingRecord{RawValue: "EUR", MappedTo: models.MappedToCurrency})
	require.NoError(t, err)
	assert.Equal(t, "eur", rec.NormalizedValue)
	assert.Equal(t, 1, m.RecordCalls)
	assert.ErrorIs(t, m.Touch(ctx, "nope"), mappingerror.ErrNotFound)

	_, err = m.Record(ctx, models.MappingRecord{RawValue: "Rent", MappedTo: models.MappedToBudgetCategory, MappedKey: "office_costs", Approved: true})
	require.NoError(t, err)
	kept, err := m.Record(ctx, models.MappingRecord{RawValue: "RENT", MappedTo: models.MappedToIgnored, Source: models.SourceAI})
	require.NoError(t, err)
	assert.Equal(t, "office_costs", kept.MappedKey, "approved entries only yield to approved records")
	assert.True(t, kept.Approved)
}
