package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, echo.Map{"success": false, "message": message})
}

func failFields(c echo.Context, errs map[string]string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "errors": errs})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	}
	return uint(id), nil
}

// formValue distinguishes an absent form field from an empty one, which is
// what partial updates over multipart bodies need.
func formValue(c echo.Context, name string) (string, bool) {
	params, err := c.FormParams()
	if err != nil {
		return "", false
	}
	vals, ok := params[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}
