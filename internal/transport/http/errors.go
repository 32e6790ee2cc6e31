package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every uncaught error as a {success:false, message}
// envelope. Unexpected errors are logged and surfaced as a generic 500;
// the detail only leaks in development mode.
func ErrorHandler(log *slog.Logger, development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = fmt.Sprint(he.Message)
			}
		} else {
			log.Error("request failed",
				"error", err,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
			)
			if development {
				message = err.Error()
			}
		}

		if err := c.JSON(code, echo.Map{"success": false, "message": message}); err != nil {
			log.Error("error response write failed", "error", err)
		}
	}
}
