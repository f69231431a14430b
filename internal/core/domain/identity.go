package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Role is the authorization variant carried by every credential.
type Role string

const (
	// RolePrivileged sees every tenant (the insurance regulator).
	RolePrivileged Role = "regulator"
	// RoleTenantScoped is restricted to the rows of a single hospital.
	RoleTenantScoped Role = "hospital"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrTokenMissing      = fmt.Errorf("%w: token missing", ErrUnauthenticated)
	ErrTokenMalformed    = fmt.Errorf("%w: token malformed", ErrUnauthenticated)
	ErrTokenBadSignature = fmt.Errorf("%w: token signature invalid", ErrUnauthenticated)
	ErrTokenExpired      = fmt.Errorf("%w: token expired", ErrUnauthenticated)

	// ErrIdentityMissing is returned downstream when no propagated identity is
	// present on a path that requires one.
	ErrIdentityMissing = fmt.Errorf("%w: identity missing", ErrUnauthenticated)
	ErrInvalidIdentity = fmt.Errorf("%w: identity invalid", ErrUnauthenticated)
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ParseRole maps a raw claim or header value onto a known Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePrivileged, RoleTenantScoped:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidIdentity, s)
	}
}

// Privileged reports whether the role is exempt from tenant restriction.
func (r Role) Privileged() bool {
	return r == RolePrivileged
}

// Claims are the attributes embedded in a validated credential.
type Claims struct {
	Subject   string
	Name      string
	Role      Role
	TenantID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity returns the identity derived from the claims.
func (c Claims) Identity() Identity {
	return Identity{
		SubjectID:   c.Subject,
		DisplayName: c.Name,
		Role:        c.Role,
		TenantID:    c.TenantID,
	}
}

// Identity is the resolved caller of a single request.
type Identity struct {
	SubjectID   string `json:"subject_id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	TenantID    string `json:"tenant_id,omitempty"`
}

// Validate enforces that TenantID is present iff the role is tenant scoped.
func (id Identity) Validate() error {
	if id.SubjectID == "" {
		return fmt.Errorf("%w: subject missing", ErrInvalidIdentity)
	}
	switch id.Role {
	case RolePrivileged:
		if id.TenantID != "" {
			return fmt.Errorf("%w: privileged identity must not carry a tenant", ErrInvalidIdentity)
		}
	case RoleTenantScoped:
		if !tenantIDPattern.MatchString(id.TenantID) {
			return fmt.Errorf("%w: tenant id %q", ErrInvalidIdentity, id.TenantID)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidIdentity, id.Role)
	}
	return nil
}

// Scope returns the tenant the identity is restricted to, or "" for privileged identities.
func (id Identity) Scope() string {
	if id.Role.Privileged() {
		return ""
	}
	return id.TenantID
}

// CanSee reports whether the identity may observe data owned by scope.
func (id Identity) CanSee(scope string) bool {
	if id.Role.Privileged() {
		return true
	}
	return id.TenantID != "" && id.TenantID == scope
}
