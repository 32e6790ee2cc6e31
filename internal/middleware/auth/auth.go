package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/dmarkov/electrostore/internal/token"
)

const contextKey = "user"

// RequireAuth verifies the Authorization bearer token and attaches the
// decoded claims to the request context.
func RequireAuth(secret []byte) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningMethod: "HS256",
		SigningKey:    secret,
		ContextKey:    contextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(token.Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "No token, authorization denied")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "Token is not valid")
		},
	})
}

// AdminOnly permits the request only when the verified claims carry the
// admin flag. Runs after RequireAuth and trusts what it attached.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := ClaimsFrom(c)
		if !ok || !claims.IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "Access denied. Admin privileges required.")
		}
		return next(c)
	}
}

// ClaimsFrom extracts the verified claims attached by RequireAuth.
func ClaimsFrom(c echo.Context) (*token.Claims, bool) {
	t, ok := c.Get(contextKey).(*jwt.Token)
	if !ok {
		return nil, false
	}
	claims, ok := t.Claims.(*token.Claims)
	return claims, ok
}

// SetClaims attaches claims directly, bypassing token verification. Test
// helper for exercising handlers that read the caller identity.
func SetClaims(c echo.Context, claims *token.Claims) {
	c.Set(contextKey, jwt.NewWithClaims(jwt.SigningMethodHS256, claims))
}
