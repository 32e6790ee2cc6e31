package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmarkov/electrostore/internal/query"
	"github.com/dmarkov/electrostore/internal/search"
)

type SearchHandler struct {
	Search *search.Client
}

func (h *SearchHandler) Handle(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return fail(c, http.StatusBadRequest, "Search query is required")
	}

	params := query.ListParams{
		Page:  parseIntDefault(c.QueryParam("page"), query.DefaultPage),
		Limit: parseIntDefault(c.QueryParam("limit"), query.DefaultLimit),
	}.Normalize()

	total, docs, err := h.Search.Search(c.Request().Context(), q, params.Offset(), params.Limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"products":   docs,
		"pagination": query.Paginate(total, params),
	})
}
