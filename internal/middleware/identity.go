package middleware

// identity.go keeps the authenticated caller in the Echo context. Handlers
// read it back through UserName.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/auth"
)

const ctxUserName = "user_name"

func setIdentity(c echo.Context, id auth.Identity) {
	c.Set(ctxUserName, id.UserName)
}

// UserName returns the authenticated caller's user name. ok is false on
// routes that are not behind BearerAuth.
func UserName(c echo.Context) (string, bool) {
	s, ok := c.Get(ctxUserName).(string)
	return s, ok && s != ""
}
