package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/models"
)

// MappingRequest asks for NGO-to-donor field alignment. DonorFields, when
// set, replaces the fields of the referenced template.
type MappingRequest struct {
	NgoFields       []string `json:"ngo_fields"`
	DonorTemplateID uint     `json:"donor_template_id"`
	DonorFields     []string `json:"donor_fields,omitempty"`
}

// MappingResponse carries one suggestion per NGO field.
type MappingResponse struct {
	Suggestions []models.MappingSuggestion `json:"suggestions"`
}

// NgoMappingRequest saves an NGO field alignment.
type NgoMappingRequest struct {
	NgoID        string  `json:"ngo_id"`
	NgoField     string  `json:"ngo_field"`
	DonorFieldID uint    `json:"donor_field_id"`
	Confidence   float64 `json:"confidence"`
}

// NgoMappingResponse is a saved NGO field alignment.
type NgoMappingResponse struct {
	ID           uint    `json:"id"`
	NgoID        string  `json:"ngo_id"`
	NgoField     string  `json:"ngo_field"`
	DonorFieldID uint    `json:"donor_field_id"`
	Confidence   float64 `json:"confidence"`
}

func newNgoMappingResponse(m models.NgoMapping) NgoMappingResponse {
	return NgoMappingResponse{
		ID:           m.ID,
		NgoID:        m.OwnerID,
		NgoField:     m.OwnerField,
		DonorFieldID: m.DonorFieldID,
		Confidence:   m.Confidence,
	}
}

func (c *Controller) initDonorMappingRoutes(g *echo.Group) {
	g.POST("/suggest", c.SuggestFieldMapping)
	g.POST("/mappings", c.SaveNgoMapping)
	g.GET("/mappings/by-ngo/:ngo_id", c.ListNgoMappings)
}

// SuggestFieldMapping handles POST /donor-mapping/suggest.
func (c *Controller) SuggestFieldMapping(ctx echo.Context) error {
	var req MappingRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	donorFields := req.DonorFields
	if len(donorFields) == 0 {
		if req.DonorTemplateID == 0 {
			return c.handleDomainError(ctx,
				&mappingerror.ValidationError{Field: "donor_template_id", Reason: "required when donor_fields is empty"},
				"Invalid mapping request")
		}
		names, err := c.Store.FieldNames(ctx.Request().Context(), req.DonorTemplateID)
		if err != nil {
			return c.handleDomainError(ctx, err, "Failed to load donor fields")
		}
		donorFields = names
	}

	suggestions, err := c.Suggester.SuggestMapping(ctx.Request().Context(), req.NgoFields, donorFields)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to suggest mapping")
	}
	return ctx.JSON(http.StatusOK, MappingResponse{Suggestions: suggestions})
}

// SaveNgoMapping handles POST /donor-mapping/mappings.
func (c *Controller) SaveNgoMapping(ctx echo.Context) error {
	var req NgoMappingRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	saved, err := c.Store.SaveNgoMapping(ctx.Request().Context(), models.NgoMapping{
		OwnerID:      req.NgoID,
		OwnerField:   req.NgoField,
		DonorFieldID: req.DonorFieldID,
		Confidence:   req.Confidence,
	})
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to save mapping")
	}
	return ctx.JSON(http.StatusCreated, newNgoMappingResponse(*saved))
}

// ListNgoMappings handles GET /donor-mapping/mappings/by-ngo/:ngo_id.
func (c *Controller) ListNgoMappings(ctx echo.Context) error {
	saved, err := c.Store.ListNgoMappings(ctx.Request().Context(), ctx.Param("ngo_id"))
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to list mappings")
	}
	out := make([]NgoMappingResponse, len(saved))
	for i, m := range saved {
		out[i] = newNgoMappingResponse(m)
	}
	return ctx.JSON(http.StatusOK, out)
}
