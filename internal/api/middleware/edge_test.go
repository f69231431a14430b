package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/identity"
)

func newEdgeServer(v *stubValidator, downstream *int, seen *http.Header) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = testErrorHandler
	e.Pre(Edge(EdgeConfig{
		Validator: v,
		AllowList: NewAllowList(DefaultAllowList...),
		Logger:    zerolog.Nop(),
	}))
	h := func(c echo.Context) error {
		*downstream++
		*seen = c.Request().Header.Clone()
		return c.NoContent(http.StatusOK)
	}
	e.POST("/api/auth/login", h)
	e.Any("/api/*", h)
	return e
}

func TestEdge_RejectsWithoutCallingDownstream(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"missing", "", domain.ErrTokenMissing},
		{"wrong scheme", "Basic abc", domain.ErrTokenMalformed},
		{"empty bearer", "Bearer ", domain.ErrTokenMissing},
		{"garbage", "Bearer not-a-token", domain.ErrTokenMalformed},
		{"expired", "Bearer expired", domain.ErrTokenExpired},
		{"bad signature", "Bearer forged", domain.ErrTokenBadSignature},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls int
			var seen http.Header
			e := newEdgeServer(newStubValidator(), &calls, &seen)

			req := httptest.NewRequest(http.MethodPost, "/api/settlements/search", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if calls != 0 {
				t.Fatalf("expected no downstream calls, got %d", calls)
			}

			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/x", nil), httptest.NewRecorder())
			if tc.header != "" {
				c.Request().Header.Set(echo.HeaderAuthorization, tc.header)
			}
			err := Edge(EdgeConfig{Validator: newStubValidator(), Logger: zerolog.Nop()})(func(echo.Context) error {
				t.Fatal("should not reach next")
				return nil
			})(c)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestEdge_SetsHeadersFromClaimsAndOverridesSpoofing(t *testing.T) {
	var calls int
	var seen http.Header
	e := newEdgeServer(newStubValidator(), &calls, &seen)

	req := httptest.NewRequest(http.MethodPost, "/api/settlements/search", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer h001-token")
	req.Header.Set(HeaderUserRole, "regulator")
	req.Header.Add(HeaderTenantID, "H999")
	req.Header.Add(HeaderTenantID, "H998")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected one downstream call with 200, got %d calls, status %d", calls, rec.Code)
	}
	if got := seen.Get(HeaderUserID); got != "u-h1" {
		t.Fatalf("expected user id u-h1, got %q", got)
	}
	if got := seen.Get(HeaderUserRole); got != "hospital" {
		t.Fatalf("expected role hospital, got %q", got)
	}
	if got := seen.Values(HeaderTenantID); len(got) != 1 || got[0] != "H001" {
		t.Fatalf("expected single tenant H001, got %v", got)
	}
}

func TestEdge_RegulatorGetsEmptyTenantHeader(t *testing.T) {
	var calls int
	var seen http.Header
	e := newEdgeServer(newStubValidator(), &calls, &seen)

	req := httptest.NewRequest(http.MethodGet, "/api/anything", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer regulator-token")
	req.Header.Set(HeaderTenantID, "H001")
	e.ServeHTTP(httptest.NewRecorder(), req)

	if calls != 1 {
		t.Fatalf("expected downstream call, got %d", calls)
	}
	if got := seen.Get(HeaderUserRole); got != "regulator" {
		t.Fatalf("expected role regulator, got %q", got)
	}
	if got := seen.Get(HeaderTenantID); got != "" {
		t.Fatalf("expected empty tenant, got %q", got)
	}
}

func TestEdge_AllowListedPathSkipsValidationAndStripsHeaders(t *testing.T) {
	v := newStubValidator()
	var calls int
	var seen http.Header
	e := newEdgeServer(v, &calls, &seen)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set(HeaderUserID, "spoofed")
	req.Header.Set(HeaderUserRole, "regulator")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected pass-through, got status %d calls %d", rec.Code, calls)
	}
	if v.calls != 0 {
		t.Fatalf("expected no token validation, got %d", v.calls)
	}
	for _, h := range identityHeaders {
		if seen.Get(h) != "" {
			t.Fatalf("expected %s to be stripped, got %q", h, seen.Get(h))
		}
	}
}

func TestEdge_BindsIdentityForLocalHandlers(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/async-risk-assessment/x", nil), httptest.NewRecorder())
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer h002-token")

	var got domain.Identity
	err := Edge(EdgeConfig{Validator: newStubValidator(), Logger: zerolog.Nop()})(func(c echo.Context) error {
		id, ok := identity.From(c.Request().Context())
		if !ok {
			t.Fatal("expected identity in context")
		}
		got = id
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TenantID != "H002" || got.Role != domain.RoleTenantScoped {
		t.Fatalf("unexpected identity %+v", got)
	}
}
