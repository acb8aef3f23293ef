package middleware // reusable HTTP middleware for the user routes

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/apperr"
	"github.com/iliyamo/user-service/internal/auth"
)

// TokenValidator verifies a raw bearer token. *auth.TokenService
// satisfies it.
type TokenValidator interface {
	Validate(raw string) (auth.Identity, error)
}

// Messages returned with 401 responses.
const (
	MsgMissingHeader = "Missing or invalid Authorization header"
	MsgInvalidToken  = "Token is invalid"
)

const bearerPrefix = "Bearer "

// BearerAuth returns an Echo middleware that requires a valid
// "Authorization: Bearer <token>" header. On success the caller's user
// name is stored in the context (see UserName). On failure the request is
// rejected with a 401 before the handler runs, so no backend call is made.
func BearerAuth(v TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return apperr.Auth(MsgMissingHeader)
			}
			id, err := v.Validate(raw)
			if err != nil {
				return apperr.Auth(MsgInvalidToken)
			}
			setIdentity(c, id)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an Authorization header value. The
// header must start with the literal "Bearer " prefix.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])
	if raw == "" {
		return "", false
	}
	return raw, true
}
