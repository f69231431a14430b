package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/identity"
)

// ctxIdentity returns the caller bound to the request by the identity
// middleware. Handlers call it once and pass the result to services, so a
// route mounted without the middleware fails with 401 instead of running
// unscoped.
func ctxIdentity(c echo.Context) (*domain.Identity, error) {
	return identity.Require(c.Request().Context())
}
