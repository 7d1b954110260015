package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/superonehealth/api/internal/platform/respond"
)

type contextKey string

// UserIDKey is the request-context key carrying the authenticated user ID.
const UserIDKey contextKey = "user_id"

// Middleware validates the Authorization bearer token and places the user ID
// on both the echo context and the request context. Skipper exempts routes
// (auth endpoints, health checks).
func Middleware(issuer *Issuer, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return respond.ErrTokenInvalid
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return respond.ErrTokenInvalid
			}

			claims, err := issuer.ParseAccess(parts[1])
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return respond.ErrTokenExpired
				}
				return respond.ErrTokenInvalid
			}

			c.Set("user_id", claims.Subject)
			ctx := context.WithValue(c.Request().Context(), UserIDKey, claims.Subject)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// SkipPaths returns a skipper that exempts exact paths and prefixes ending
// in "/".
func SkipPaths(paths ...string) func(echo.Context) bool {
	return func(c echo.Context) bool {
		p := c.Request().URL.Path
		for _, skip := range paths {
			if strings.HasSuffix(skip, "/") {
				if strings.HasPrefix(p, skip) {
					return true
				}
			} else if p == skip {
				return true
			}
		}
		return false
	}
}

// UserID extracts the authenticated user ID from the echo context. Handlers
// behind the middleware can rely on it being present.
func UserID(c echo.Context) (string, error) {
	id, _ := c.Get("user_id").(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return id, nil
}

// UserUUID is UserID parsed. A subject that is not a UUID means the token
// was not minted here.
func UserUUID(c echo.Context) (uuid.UUID, error) {
	raw, err := UserID(c)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, respond.ErrTokenInvalid
	}
	return id, nil
}
