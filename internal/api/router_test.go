package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/deeprisk/fee-risk-system/internal/api/handler"
	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
	"github.com/deeprisk/fee-risk-system/internal/core/service"
)

const testSecret = "router-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func hospitalToken(t *testing.T, tenant string) string {
	now := time.Now()
	return signToken(t, jwt.MapClaims{
		"sub": "u-" + tenant, "name": "Clinic " + tenant, "role": "hospital", "tenant_id": tenant,
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	})
}

type noAuth struct{}

func (noAuth) Register(context.Context, ports.RegisterInput) (*domain.User, error) {
	return nil, domain.ErrForbidden
}

func (noAuth) Login(context.Context, string, string) (string, *domain.User, error) {
	return "", nil, domain.ErrInvalidCredentials
}

type scopeEcho struct {
	calls atomic.Int32
}

func (s *scopeEcho) Search(_ context.Context, id *domain.Identity, _ domain.SettlementFilter) (*domain.SettlementPage, error) {
	s.calls.Add(1)
	return &domain.SettlementPage{
		Items: []domain.Settlement{{SetlID: "S1", FixmedinsCode: id.TenantID}},
		Total: 1, Page: 1, Limit: 10, TotalPages: 1,
	}, nil
}

func (s *scopeEcho) ClearCache(context.Context, *domain.Identity) (int64, error) { return 0, nil }

type noRisk struct{}

func (noRisk) Submit(context.Context, *domain.Identity, json.RawMessage) (string, error) {
	return "", domain.ErrInvalidPayload
}
func (noRisk) ReportResult(context.Context, string, json.RawMessage) error { return nil }
func (noRisk) Poll(_ context.Context, _ *domain.Identity, id string) (*domain.Job, error) {
	return domain.UnknownJob(id), nil
}

func newStack(t *testing.T) (gateway http.Handler, svc *scopeEcho) {
	t.Helper()
	svc = &scopeEcho{}
	query := NewQueryRouter(QueryDeps{
		Logger:      zerolog.Nop(),
		ServiceName: "fee-query",
		Settlements: handler.NewSettlementHandler(svc),
	})
	upstream := httptest.NewServer(query)
	t.Cleanup(upstream.Close)

	target, _ := url.Parse(upstream.URL)
	gw := NewGatewayRouter(GatewayDeps{
		Logger:       zerolog.Nop(),
		ServiceName:  "gateway",
		Development:  true,
		Validator:    service.NewTokenValidator(testSecret),
		Auth:         handler.NewAuthHandler(noAuth{}),
		Risk:         handler.NewRiskHandler(noRisk{}),
		QueryService: target,
	})
	return gw, svc
}

func TestGateway_ProxiesWithPropagatedIdentity(t *testing.T) {
	gw, svc := newStack(t)

	req := httptest.NewRequest(http.MethodPost, "/api/settlements/search", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+hospitalToken(t, "H001"))
	req.Header.Set("X-Tenant-Id", "H999")
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.calls.Load() != 1 {
		t.Fatalf("expected one downstream search, got %d", svc.calls.Load())
	}
	var page domain.SettlementPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].FixmedinsCode != "H001" {
		t.Fatalf("downstream saw the wrong tenant: %+v", page.Items)
	}
}

func TestGateway_RejectsBeforeProxying(t *testing.T) {
	gw, svc := newStack(t)
	now := time.Now()

	tokens := map[string]string{
		"missing": "",
		"expired": signToken(t, jwt.MapClaims{
			"sub": "u1", "role": "hospital", "tenant_id": "H001",
			"iat": now.Add(-2 * time.Hour).Unix(), "exp": now.Add(-time.Hour).Unix(),
		}),
		"wrong key": func() string {
			s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": "u1", "role": "regulator", "exp": now.Add(time.Hour).Unix(),
			}).SignedString([]byte("other-secret"))
			return s
		}(),
		"hospital without tenant": signToken(t, jwt.MapClaims{
			"sub": "u1", "role": "hospital", "exp": now.Add(time.Hour).Unix(),
		}),
	}

	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/settlements/search", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("expected WWW-Authenticate header")
			}
		})
	}
	if svc.calls.Load() != 0 {
		t.Fatalf("expected zero downstream calls, got %d", svc.calls.Load())
	}
}

func TestGateway_LoginIsPublic(t *testing.T) {
	gw, _ := newStack(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"a","password":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	// Reaches the handler, which rejects the credentials.
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 from login handler, got %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "invalid credentials" {
		t.Fatalf("expected handler error, got %v", body)
	}
}

func TestGateway_RegisterRequiresRegulator(t *testing.T) {
	gw, _ := newStack(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+hospitalToken(t, "H001"))
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestQueryService_FailsClosedWithoutGatewayHeaders(t *testing.T) {
	svc := &scopeEcho{}
	query := NewQueryRouter(QueryDeps{Logger: zerolog.Nop(), Settlements: handler.NewSettlementHandler(svc)})

	req := httptest.NewRequest(http.MethodPost, "/api/settlements/search", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	query.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if svc.calls.Load() != 0 {
		t.Fatal("search must not run without identity")
	}

	rec = httptest.NewRecorder()
	query.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health to be public, got %d", rec.Code)
	}
}
