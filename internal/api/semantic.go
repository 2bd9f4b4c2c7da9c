package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/models"
)

// SuggestRequest lists raw labels to resolve.
type SuggestRequest struct {
	Values []string `json:"values"`
}

func (c *Controller) initSemanticRoutes(g *echo.Group) {
	g.POST("/suggest", c.SuggestSemantic)
	g.POST("/confirm", c.ConfirmSemantic)
	g.GET("", c.ListSemantic)
	g.GET("/:id", c.GetSemantic)
	g.PATCH("/:id", c.UpdateSemantic)
	g.DELETE("/:id", c.DeleteSemantic)
	g.POST("/:id/approve", c.ApproveSemantic)
}

// SuggestSemantic handles POST /semantic-mappings/suggest.
func (c *Controller) SuggestSemantic(ctx echo.Context) error {
	var req SuggestRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	result, err := c.Suggester.Suggest(ctx.Request().Context(), req.Values)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to suggest mappings")
	}
	return ctx.JSON(http.StatusOK, result)
}

// ConfirmSemantic handles POST /semantic-mappings/confirm.
func (c *Controller) ConfirmSemantic(ctx echo.Context) error {
	var req models.Suggestion
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	record, err := c.Suggester.Confirm(ctx.Request().Context(), req)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to confirm mapping")
	}
	return ctx.JSON(http.StatusOK, record)
}

// ListSemantic handles GET /semantic-mappings?ids=a,b&limit=N.
func (c *Controller) ListSemantic(ctx echo.Context) error {
	var ids []string
	for _, id := range strings.Split(ctx.QueryParam("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.handleDomainError(ctx,
				&mappingerror.ValidationError{Field: "limit", Reason: "must be a non-negative integer"},
				"Invalid limit")
		}
		limit = n
	}

	mappings, err := c.Store.List(ctx.Request().Context(), ids, limit)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to list mappings")
	}
	return ctx.JSON(http.StatusOK, mappings)
}

// GetSemantic handles GET /semantic-mappings/:id.
func (c *Controller) GetSemantic(ctx echo.Context) error {
	mapping, err := c.Store.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to get mapping")
	}
	return ctx.JSON(http.StatusOK, mapping)
}

// UpdateSemantic handles PATCH /semantic-mappings/:id.
func (c *Controller) UpdateSemantic(ctx echo.Context) error {
	var req models.MappingUpdate
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	mapping, err := c.Store.Update(ctx.Request().Context(), ctx.Param("id"), req)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to update mapping")
	}
	return ctx.JSON(http.StatusOK, mapping)
}

// DeleteSemantic handles DELETE /semantic-mappings/:id.
func (c *Controller) DeleteSemantic(ctx echo.Context) error {
	if err := c.Store.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.handleDomainError(ctx, err, "Failed to delete mapping")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ApproveSemantic handles POST /semantic-mappings/:id/approve.
func (c *Controller) ApproveSemantic(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := c.Store.Approve(ctx.Request().Context(), id); err != nil {
		return c.handleDomainError(ctx, err, "Failed to approve mapping")
	}
	mapping, err := c.Store.Get(ctx.Request().Context(), id)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to get mapping")
	}
	return ctx.JSON(http.StatusOK, mapping)
}
