package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

// Audit returns middleware that logs who accessed what on every API route.
// Medical records are sensitive enough that reads are recorded as well as
// writes. The entry carries the authenticated principal, so this middleware
// must run after the auth middleware.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			evt := logger.Info().
				Time("at", time.Now().UTC()).
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Str("remote_ip", c.RealIP()).
				Str("user_agent", req.UserAgent())

			if p, ok := auth.PrincipalFromContext(req.Context()); ok {
				evt = evt.
					Str("principal_id", p.ID.String()).
					Str("principal_type", p.Type).
					Str("role", p.Role)
				if p.ClinicID != nil {
					evt = evt.Str("clinic_id", p.ClinicID.String())
				}
			}

			evt.Msg("access")
			return err
		}
	}
}
