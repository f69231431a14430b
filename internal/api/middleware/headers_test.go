package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

func TestAllowList(t *testing.T) {
	a := NewAllowList("/api/auth/login", "/health", "/docs/*")

	tests := []struct {
		path string
		want bool
	}{
		{"/api/auth/login", true},
		{"/health", true},
		{"/health/ready", false},
		{"/docs/index.html", true},
		{"/api/auth/login/../../settlements/search", false},
		{"/health/../api/settlements/search", false},
		{"/api/settlements/search", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := a.Allows(tc.path); got != tc.want {
			t.Errorf("Allows(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestIdentityFromHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string][]string
		wantErr error
		want    domain.Identity
	}{
		{
			name:    "no headers",
			headers: nil,
			wantErr: domain.ErrIdentityMissing,
		},
		{
			name: "hospital",
			headers: map[string][]string{
				HeaderUserID: {"u1"}, HeaderUserName: {"Clinic"}, HeaderUserRole: {"hospital"}, HeaderTenantID: {"H001"},
			},
			want: domain.Identity{SubjectID: "u1", DisplayName: "Clinic", Role: domain.RoleTenantScoped, TenantID: "H001"},
		},
		{
			name: "regulator with empty tenant",
			headers: map[string][]string{
				HeaderUserID: {"u2"}, HeaderUserRole: {"regulator"}, HeaderTenantID: {""},
			},
			want: domain.Identity{SubjectID: "u2", Role: domain.RolePrivileged},
		},
		{
			name: "empty tenant does not imply privilege",
			headers: map[string][]string{
				HeaderUserID: {"u3"}, HeaderUserRole: {"hospital"},
			},
			wantErr: domain.ErrInvalidIdentity,
		},
		{
			name: "privileged role with tenant",
			headers: map[string][]string{
				HeaderUserID: {"u4"}, HeaderUserRole: {"regulator"}, HeaderTenantID: {"H001"},
			},
			wantErr: domain.ErrInvalidIdentity,
		},
		{
			name: "unknown role",
			headers: map[string][]string{
				HeaderUserID: {"u5"}, HeaderUserRole: {"root"},
			},
			wantErr: domain.ErrInvalidIdentity,
		},
		{
			name: "role without subject",
			headers: map[string][]string{
				HeaderUserRole: {"regulator"},
			},
			wantErr: domain.ErrInvalidIdentity,
		},
		{
			name: "repeated tenant header",
			headers: map[string][]string{
				HeaderUserID: {"u6"}, HeaderUserRole: {"hospital"}, HeaderTenantID: {"H001", "H002"},
			},
			wantErr: domain.ErrInvalidIdentity,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			for k, vs := range tc.headers {
				for _, v := range vs {
					h.Add(k, v)
				}
			}
			got, err := identityFromHeaders(h)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if !errors.Is(err, domain.ErrUnauthenticated) {
					t.Fatalf("expected an unauthenticated error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}
