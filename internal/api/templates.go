package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"fjacquet/donor-mapper/internal/models"
)

// TemplateRequest creates or renames a donor template.
type TemplateRequest struct {
	Name string `json:"name"`
}

// FieldRequest adds a single field to a donor template.
type FieldRequest struct {
	DonorTemplateID uint   `json:"donor_template_id"`
	FieldName       string `json:"field_name"`
}

// CategoryRequest creates a budget category.
type CategoryRequest struct {
	Name            string `json:"name"`
	Code            string `json:"code"`
	DonorTemplateID *uint  `json:"donor_template_id,omitempty"`
}

func (c *Controller) initTemplateRoutes(g *echo.Group) {
	g.POST("/templates", c.CreateTemplate)
	g.GET("/templates", c.ListTemplates)
	g.GET("/templates/:id", c.GetTemplate)
	g.PUT("/templates/:id", c.UpdateTemplate)
	g.DELETE("/templates/:id", c.DeleteTemplate)

	g.POST("/fields", c.CreateField)
	g.POST("/fields/bulk", c.BulkCreateFields)
	g.GET("/fields/:template_id", c.ListFields)

	g.POST("/categories", c.CreateCategory)
	g.GET("/categories", c.ListCategories)
	g.GET("/categories/miscellaneous", c.GetMiscellaneousCategory)
	g.GET("/categories/:template_id", c.ListCategories)
}

// CreateTemplate handles POST /donor-mapping/templates.
func (c *Controller) CreateTemplate(ctx echo.Context) error {
	var req TemplateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	tpl, err := c.Store.CreateTemplate(ctx.Request().Context(), req.Name)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to create template")
	}
	return ctx.JSON(http.StatusCreated, tpl)
}

// ListTemplates handles GET /donor-mapping/templates.
func (c *Controller) ListTemplates(ctx echo.Context) error {
	templates, err := c.Store.ListTemplates(ctx.Request().Context())
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to list templates")
	}
	return ctx.JSON(http.StatusOK, templates)
}

// GetTemplate handles GET /donor-mapping/templates/:id.
func (c *Controller) GetTemplate(ctx echo.Context) error {
	id, err := parseUintParam(ctx.Param("id"), "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid template id")
	}
	tpl, err := c.Store.GetTemplate(ctx.Request().Context(), id)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to get template")
	}
	return ctx.JSON(http.StatusOK, tpl)
}

// UpdateTemplate handles PUT /donor-mapping/templates/:id.
func (c *Controller) UpdateTemplate(ctx echo.Context) error {
	id, err := parseUintParam(ctx.Param("id"), "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid template id")
	}
	var req TemplateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	tpl, err := c.Store.UpdateTemplate(ctx.Request().Context(), id, req.Name)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to update template")
	}
	return ctx.JSON(http.StatusOK, tpl)
}

// DeleteTemplate handles DELETE /donor-mapping/templates/:id.
func (c *Controller) DeleteTemplate(ctx echo.Context) error {
	id, err := parseUintParam(ctx.Param("id"), "id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid template id")
	}
	if err := c.Store.DeleteTemplate(ctx.Request().Context(), id); err != nil {
		return c.handleDomainError(ctx, err, "Failed to delete template")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// CreateField handles POST /donor-mapping/fields.
func (c *Controller) CreateField(ctx echo.Context) error {
	var req FieldRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	field, err := c.Store.CreateField(ctx.Request().Context(), req.DonorTemplateID, req.FieldName)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to create field")
	}
	return ctx.JSON(http.StatusCreated, field)
}

// BulkCreateFields handles POST /donor-mapping/fields/bulk?template_id=N with
// a JSON array of field names as body.
func (c *Controller) BulkCreateFields(ctx echo.Context) error {
	templateID, err := parseUintParam(ctx.QueryParam("template_id"), "template_id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid template id")
	}
	var names []string
	if err := (&echo.DefaultBinder{}).BindBody(ctx, &names); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	fields, err := c.Store.BulkCreateFields(ctx.Request().Context(), templateID, names)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to create fields")
	}
	return ctx.JSON(http.StatusCreated, fields)
}

// ListFields handles GET /donor-mapping/fields/:template_id.
func (c *Controller) ListFields(ctx echo.Context) error {
	templateID, err := parseUintParam(ctx.Param("template_id"), "template_id")
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid template id")
	}
	fields, err := c.Store.ListFields(ctx.Request().Context(), templateID)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to list fields")
	}
	return ctx.JSON(http.StatusOK, fields)
}

// CreateCategory handles POST /donor-mapping/categories.
func (c *Controller) CreateCategory(ctx echo.Context) error {
	var req CategoryRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	cat, err := c.Store.CreateCategory(ctx.Request().Context(), models.BudgetCategory{
		Name:            req.Name,
		Code:            req.Code,
		DonorTemplateID: req.DonorTemplateID,
	})
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to create category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

// ListCategories handles GET /donor-mapping/categories and
// GET /donor-mapping/categories/:template_id.
func (c *Controller) ListCategories(ctx echo.Context) error {
	var templateID *uint
	if raw := ctx.Param("template_id"); raw != "" {
		id, err := parseUintParam(raw, "template_id")
		if err != nil {
			return c.handleDomainError(ctx, err, "Invalid template id")
		}
		templateID = &id
	}
	cats, err := c.Store.ListCategories(ctx.Request().Context(), templateID)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to list categories")
	}
	return ctx.JSON(http.StatusOK, cats)
}

// GetMiscellaneousCategory handles GET /donor-mapping/categories/miscellaneous.
// The optional template_id query scopes the fallback category to a template;
// the category is created on first use.
func (c *Controller) GetMiscellaneousCategory(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	var templateID *uint
	if raw := ctx.QueryParam("template_id"); raw != "" {
		id, err := parseUintParam(raw, "template_id")
		if err != nil {
			return c.handleDomainError(ctx, err, "Invalid template id")
		}
		if _, err := c.Store.GetTemplate(reqCtx, id); err != nil {
			return c.handleDomainError(ctx, err, "Failed to get template")
		}
		templateID = &id
	}
	cat, err := c.Store.GetOrCreateMiscellaneous(reqCtx, templateID)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to get miscellaneous category")
	}
	return ctx.JSON(http.StatusOK, cat)
}
