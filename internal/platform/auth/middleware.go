package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/token"
)

// ErrClinicExpired is returned by a Resolver when a clinic principal's paid
// validity window has lapsed. It is surfaced with a distinct message because
// the credentials themselves were correct.
var ErrClinicExpired = errors.New("auth: clinic validity has expired")

// Resolver re-hydrates a principal from its verified token claims. A missing
// record must surface as an error so the stale token is rejected.
type Resolver interface {
	ResolvePrincipal(ctx context.Context, claims *token.Claims) (*Principal, error)
}

// Middleware verifies the bearer token on every request, resolves it to a
// principal, and stores the principal on the request context. Verification
// failures are a generic 401 with no detail on why; an expired clinic is the
// one distinct case, since the token was validly issued.
func Middleware(issuer *token.Issuer, resolver Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			principal, err := resolver.ResolvePrincipal(c.Request().Context(), claims)
			if err != nil {
				if errors.Is(err, ErrClinicExpired) {
					return echo.NewHTTPError(http.StatusForbidden,
						"clinic validity has expired, contact administrator")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			ctx := WithPrincipal(c.Request().Context(), principal)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
