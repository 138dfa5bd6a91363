package api

import (
	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/security"
	"github.com/labstack/echo/v4"
)

// SecurityContext installs an empty security slot into the request context.
func SecurityContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(security.NewContext(req.Context())))
			return next(c)
		}
	}
}

// SessionID reads the session id from the X-Session-Id header, falling back
// to the s query parameter.
func SessionID(c echo.Context) string {
	if v := c.Request().Header.Get(common.SessionHeaderName); v != "" {
		return v
	}
	return c.QueryParam(common.SessionParam)
}

// RequireSession runs the route between Authenticator.Begin and End.
func RequireSession(a *auth.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ok, err := a.Begin(ctx, SessionID(c))
			if err != nil {
				return err
			}
			if !ok {
				return UnauthorizedError("unauthorized")
			}
			defer a.End(ctx)

			return next(c)
		}
	}
}
