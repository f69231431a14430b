package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

type stubValidator struct {
	claims map[string]*domain.Claims
	calls  int
}

func (s *stubValidator) Validate(token string) (*domain.Claims, error) {
	s.calls++
	if token == "" {
		return nil, domain.ErrTokenMissing
	}
	switch token {
	case "expired":
		return nil, domain.ErrTokenExpired
	case "forged":
		return nil, domain.ErrTokenBadSignature
	}
	if c, ok := s.claims[token]; ok {
		return c, nil
	}
	return nil, domain.ErrTokenMalformed
}

func newStubValidator() *stubValidator {
	return &stubValidator{claims: map[string]*domain.Claims{
		"regulator-token": {Subject: "u-admin", Name: "Admin", Role: domain.RolePrivileged},
		"h001-token":      {Subject: "u-h1", Name: "Hospital One", Role: domain.RoleTenantScoped, TenantID: "H001"},
		"h002-token":      {Subject: "u-h2", Name: "Hospital Two", Role: domain.RoleTenantScoped, TenantID: "H002"},
	}}
}

// testErrorHandler maps identity errors the way the service error handler does.
func testErrorHandler(err error, c echo.Context) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		_ = c.NoContent(http.StatusUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		_ = c.NoContent(http.StatusForbidden)
	default:
		_ = c.NoContent(http.StatusInternalServerError)
	}
}
