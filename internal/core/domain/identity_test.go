package domain

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"regulator", "hospital"} {
		if _, err := ParseRole(s); err != nil {
			t.Fatalf("ParseRole(%q) returned error: %v", s, err)
		}
	}
	for _, s := range []string{"", "admin", "Regulator"} {
		if _, err := ParseRole(s); !errors.Is(err, ErrInvalidIdentity) {
			t.Fatalf("ParseRole(%q): expected ErrInvalidIdentity, got %v", s, err)
		}
	}
}

func TestIdentity_Validate(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		ok   bool
	}{
		{"regulator", Identity{SubjectID: "r", Role: RolePrivileged}, true},
		{"hospital", Identity{SubjectID: "h", Role: RoleTenantScoped, TenantID: "H_001-a"}, true},
		{"regulator with tenant", Identity{SubjectID: "r", Role: RolePrivileged, TenantID: "H001"}, false},
		{"hospital without tenant", Identity{SubjectID: "h", Role: RoleTenantScoped}, false},
		{"hospital with bad tenant", Identity{SubjectID: "h", Role: RoleTenantScoped, TenantID: "H001*"}, false},
		{"missing subject", Identity{Role: RolePrivileged}, false},
		{"unknown role", Identity{SubjectID: "x", Role: "admin"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if tt.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidIdentity) {
				t.Fatalf("expected ErrInvalidIdentity, got %v", err)
			}
		})
	}
}

func TestIdentity_CanSee(t *testing.T) {
	reg := Identity{SubjectID: "r", Role: RolePrivileged}
	hosp := Identity{SubjectID: "h", Role: RoleTenantScoped, TenantID: "H001"}

	if !reg.CanSee("H001") || !reg.CanSee("") {
		t.Fatalf("regulator must see every scope")
	}
	if !hosp.CanSee("H001") {
		t.Fatalf("hospital must see its own scope")
	}
	if hosp.CanSee("H002") || hosp.CanSee("") {
		t.Fatalf("hospital must not see other or unscoped data")
	}
	if reg.Scope() != "" || hosp.Scope() != "H001" {
		t.Fatalf("unexpected scopes %q/%q", reg.Scope(), hosp.Scope())
	}
}

func TestSettlementFilter_Normalize(t *testing.T) {
	f := SettlementFilter{Page: -1, Limit: 1000}.Normalize()
	if f.Page != 1 || f.Limit != MaxPageLimit {
		t.Fatalf("unexpected normalization: %+v", f)
	}
	f = SettlementFilter{}.Normalize()
	if f.Limit != DefaultPageLimit {
		t.Fatalf("expected default limit, got %d", f.Limit)
	}
}
