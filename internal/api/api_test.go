package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/mapping"
	"fjacquet/donor-mapper/internal/metrics"
	"fjacquet/donor-mapper/internal/models"
	"fjacquet/donor-mapper/internal/store"
)

// setupTestEnvironment creates a controller backed by an in-memory store.
func setupTestEnvironment(t *testing.T) (*Controller, *store.Store, *logging.MockLogger) {
	t.Helper()

	logger := logging.NewMockLogger()
	st, err := store.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	m, err := metrics.NewMappingMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	suggester := mapping.NewSuggester(mapping.SuggesterConfig{Store: st, Logger: logger, Metrics: m})
	return New(st, suggester, 0, WithLogger(logger), WithMetrics(m)), st, logger
}

func doRequest(t *testing.T, c *Controller, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createTemplate(t *testing.T, c *Controller, name string, fields ...string) models.DonorTemplate {
	t.Helper()
	rec := doRequest(t, c, http.MethodPost, "/donor-mapping/templates", TemplateRequest{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tpl := decode[models.DonorTemplate](t, rec)

	if len(fields) > 0 {
		rec = doRequest(t, c, http.MethodPost, fmt.Sprintf("/donor-mapping/fields/bulk?template_id=%d", tpl.ID), fields)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	return tpl
}

func TestTemplateLifecycle(t *testing.T) {
	c, _, _ := setupTestEnvironment(t)
	tpl := createTemplate(t, c, "EU Grant", "Staff Costs", "Office Costs")

	rec := doRequest(t, c, http.MethodGet, fmt.Sprintf("/donor-mapping/fields/%d", tpl.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fields := decode[[]models.DonorField](t, rec)
	require.Len(t, fields, 2)
	assert.Equal(t, "Staff Costs", fields[0].FieldName)
	assert.Equal(t, "Office Costs", fields[1].FieldName)

	rec = doRequest(t, c, http.MethodPost, "/donor-mapping/fields", FieldRequest{DonorTemplateID: tpl.ID, FieldName: "Travel"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, decode[models.DonorField](t, rec).Position)

	rec = doRequest(t, c, http.MethodPut, fmt.Sprintf("/donor-mapping/templates/%d", tpl.ID), TemplateRequest{Name: "EU Grant 2025"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EU Grant 2025", decode[models.DonorTemplate](t, rec).Name)

	rec = doRequest(t, c, http.MethodGet, fmt.Sprintf("/donor-mapping/templates/%d", tpl.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[models.DonorTemplate](t, rec).Fields, 3)

	rec = doRequest(t, c, http.MethodGet, "/donor-mapping/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.DonorTemplate](t, rec), 1)

	rec = doRequest(t, c, http.MethodDelete, fmt.Sprintf("/donor-mapping/templates/%d", tpl.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, c, http.MethodGet, fmt.Sprintf("/donor-mapping/templates/%d", tpl.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTemplateErrors(t *testing.T) {
	c, _, _ := setupTestEnvironment(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"name too short", http.MethodPost, "/donor-mapping/templates", TemplateRequest{Name: "A"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/donor-mapping/templates", "{", http.StatusBadRequest},
		{"unknown template", http.MethodGet, "/donor-mapping/templates/999", nil, http.StatusNotFound},
		{"non numeric id", http.MethodGet, "/donor-mapping/templates/abc", nil, http.StatusBadRequest},
		{"fields of unknown template", http.MethodGet, "/donor-mapping/fields/42", nil, http.StatusNotFound},
		{"bulk without template id", http.MethodPost, "/donor-mapping/fields/bulk", []string{"A"}, http.StatusBadRequest},
		{"bulk into unknown template", http.MethodPost, "/donor-mapping/fields/bulk?template_id=7", []string{"A"}, http.StatusNotFound},
		{"empty field name", http.MethodPost, "/donor-mapping/fields", FieldRequest{DonorTemplateID: 1, FieldName: " "}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, c, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.want, resp.Code)
			assert.Len(t, resp.CorrelationID, 8)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestCategories(t *testing.T) {
	c, _, _ := setupTestEnvironment(t)
	tpl := createTemplate(t, c, "UN Grant")

	rec := doRequest(t, c, http.MethodPost, "/donor-mapping/categories", CategoryRequest{Name: "Staff", Code: "STF", DonorTemplateID: &tpl.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = doRequest(t, c, http.MethodPost, "/donor-mapping/categories", CategoryRequest{Name: "Global"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, c, http.MethodGet, "/donor-mapping/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.BudgetCategory](t, rec), 2)

	rec = doRequest(t, c, http.MethodGet, fmt.Sprintf("/donor-mapping/categories/%d", tpl.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	byTemplate := decode[[]models.BudgetCategory](t, rec)
	require.Len(t, byTemplate, 1)
	assert.Equal(t, "STF", byTemplate[0].Code)

	rec = doRequest(t, c, http.MethodPost, "/donor-mapping/categories", CategoryRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMiscellaneousCategory(t *testing.T) {
	c, _, _ := setupTestEnvironment(t)
	tpl := createTemplate(t, c, "UN Grant")

	rec := doRequest(t, c, http.MethodGet, "/donor-mapping/categories/miscellaneous", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	global := decode[models.BudgetCategory](t, rec)
	assert.Equal(t, models.MiscellaneousCategory, global.Name)
	assert.Nil(t, global.DonorTemplateID)

	rec = doRequest(t, c, http.MethodGet, "/donor-mapping/categories/miscellaneous", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, global.ID, decode[models.BudgetCategory](t, rec).ID, "the category is created once")

	rec = doRequest(t, c, http.MethodGet, fmt.Sprintf("/donor-mapping/categories/miscellaneous?template_id=%d", tpl.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	scoped := decode[models.BudgetCategory](t, rec)
	require.NotNil(t, scoped.DonorTemplateID)
	assert.Equal(t, tpl.ID, *scoped.DonorTemplateID)
	assert.NotEqual(t, global.ID, scoped.ID)

	rec = doRequest(t, c, http.MethodGet, "/donor-mapping/categories/miscellaneous?template_id=999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(t, c, http.MethodGet, "/donor-mapping/categories/miscellaneous?template_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestFieldMapping(t *testing.T) {
	c, _, _ := setupTestEnvironment(t)
	tpl := createTemplate(t, c, "EU Grant", "Office Costs", "Staff Costs")

	rec := doRequest(t, c, http.MethodPost, "/donor-mapping/suggest", MappingRequest{
		NgoFields:       []string{"Staff Cost"},
		DonorTemplateID: tpl.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[MappingResponse](t, rec)
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, models.MappingSuggestion{NgoField: "Staff Cost", NgoKey: "staff_cost", DonorField: "Staff Costs", Confidence: 0.952}, resp.Suggestions[0])

	rec = doRequest(t, c, http.MethodPost, "/donor-mapping/suggest", MappingRequest{
		NgoFields:   []string{"Travel"},
		DonorFields: []string{"Travel Costs", "travel"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "travel", decode[MappingResponse](t, rec).Suggestions[0].DonorField)

	empty := createTemplate(t, c, "Empty")
	rec = doRequest(t, c, http.MethodPost, "/donor-mapping/suggest", MappingRequest{NgoFields: []string{"x"}, DonorTemplateID: empty.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[MappingResponse](t, rec).Suggestions)

	rec = doRequest(t, c, http.MethodPost, "/donor-mapping/suggest", MappingRequest{NgoFields: []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNgoMappings(t *testing.T) {
	c, _, _ := setupTestEnvironment(t)
	tpl := createTemplate(t, c, "EU Grant", "Staff Costs")

	rec := doRequest(t, c, http.MethodGet, fmt.Sprintf("/donor-mapping/fields/%d", tpl.ID), nil)
	fields := decode[[]models.DonorField](t, rec)
	require.Len(t, fields, 1)

	rec = doRequest(t, c, http.MethodPost, "/donor-mapping/mappings", NgoMappingRequest{
		NgoID: "ngo-1", NgoField: "Salaries", DonorFieldID: fields[0].ID, Confidence: 0.8,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decode[NgoMappingResponse](t, rec)
	assert.Equal(t, "ngo-1", saved.NgoID)
	assert.NotZero(t, saved.ID)

	rec = doRequest(t, c, http.MethodGet, "/donor-mapping/mappings/by-ngo/ngo-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]NgoMappingResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, saved, list[0])

	rec = doRequest(t, c, http.MethodGet, "/donor-mapping/mappings/by-ngo/nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]NgoMappingResponse](t, rec))

	rec = doRequest(t, c, http.MethodPost, "/donor-mapping/mappings", NgoMappingRequest{
		NgoID: "ngo-1", NgoField: "Rent", DonorFieldID: 999, Confidence: 0.5,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSemanticMappingLifecycle(t *testing.T) {
	c, _, logger := setupTestEnvironment(t)

	rec := doRequest(t, c, http.MethodPost, "/semantic-mappings/confirm", models.Suggestion{
		RawValue: "Zebra Costs", MappedTo: models.MappedToBudgetCategory, MappedKey: "misc",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decode[models.SemanticFieldMapping](t, rec)
	assert.Equal(t, models.SourceHuman, confirmed.Source)
	assert.True(t, confirmed.Approved)
	assert.True(t, logger.HasEntry("INFO", "Confirmed mapping"))

	rec = doRequest(t, c, http.MethodPost, "/semantic-mappings/suggest", SuggestRequest{Values: []string{"ZEBRA  costs", "Yak"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[models.SuggestResult](t, rec)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "misc", result.Suggestions[0].MappedKey)
	assert.Equal(t, models.SourceHuman, result.Suggestions[0].Source)
	assert.Equal(t, []models.UnknownValue{{RawValue: "Yak", NormalizedValue: "yak"}}, result.Unknown)

	rec = doRequest(t, c, http.MethodGet, "/semantic-mappings?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.SemanticFieldMapping](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].TimesUsed)

	path := "/semantic-mappings/" + confirmed.ID
	rec = doRequest(t, c, http.MethodPatch, path, `{"mapped_key":"other_costs","metadata":{"note":"reviewed"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.SemanticFieldMapping](t, rec)
	assert.Equal(t, "other_costs", updated.MappedKey)
	assert.Equal(t, "Zebra Costs", updated.RawValue)
	assert.Equal(t, "reviewed", updated.Metadata["note"])

	rec = doRequest(t, c, http.MethodPatch, path, `{"mapped_to":"nonsense"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, c, http.MethodPost, path+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, c, http.MethodGet, "/semantic-mappings?ids="+confirmed.ID+",missing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.SemanticFieldMapping](t, rec), 1)

	rec = doRequest(t, c, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, c, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(t, c, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSemanticValidation(t *testing.T) {
	c, _, _ := setupTestEnvironment(t)

	rec := doRequest(t, c, http.MethodPost, "/semantic-mappings/confirm", models.Suggestion{RawValue: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, c, http.MethodGet, "/semantic-mappings?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, c, http.MethodPost, "/semantic-mappings/suggest", SuggestRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"suggestions":[],"unknown":[]}`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	c, _, _ := setupTestEnvironment(t)

	rec := doRequest(t, c, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HealthResponse{Status: "ok", Matcher: "lexical"}, decode[HealthResponse](t, rec))

	doRequest(t, c, http.MethodPost, "/semantic-mappings/suggest", SuggestRequest{Values: []string{"Unknown label"}})

	rec = doRequest(t, c, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "donor_mapper_"), "exposes mapping metrics")
}
