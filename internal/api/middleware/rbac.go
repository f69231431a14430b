package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/identity"
)

// RBAC enforces role-based access control on the identity bound to the
// request context by Edge or Identity.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := identity.Require(c.Request().Context())
			if err != nil {
				return err
			}
			if _, ok := allowed[id.Role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

// RequirePrivileged admits only identities that see every tenant.
func RequirePrivileged() echo.MiddlewareFunc {
	return RBAC(domain.RolePrivileged)
}
