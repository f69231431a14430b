package handler_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deeprisk/fee-risk-system/internal/api"
	"github.com/deeprisk/fee-risk-system/internal/api/handler"
	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/identity"
)

var (
	regulator = &domain.Identity{SubjectID: "u-admin", DisplayName: "Admin", Role: domain.RolePrivileged}
	hospital1 = &domain.Identity{SubjectID: "u-h1", DisplayName: "Clinic", Role: domain.RoleTenantScoped, TenantID: "H001"}
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(zerolog.Nop())
	return e
}

// do sends a JSON request, binding id to its context when non-nil.
func do(e *echo.Echo, method, target, body string, id *domain.Identity) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if id != nil {
		req = req.WithContext(identity.With(req.Context(), *id))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func expectStatus(rec *httptest.ResponseRecorder, want int) (bool, string) {
	if rec.Code == want {
		return true, ""
	}
	return false, http.StatusText(rec.Code) + ": " + rec.Body.String()
}
