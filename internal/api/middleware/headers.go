package middleware

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

// Propagation headers set by the gateway after token validation. Downstream
// services trust them only because the gateway strips any caller-supplied copy.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
	HeaderTenantID = "X-Tenant-Id"
)

var identityHeaders = []string{HeaderUserID, HeaderUserName, HeaderUserRole, HeaderTenantID}

func stripIdentityHeaders(h http.Header) {
	for _, name := range identityHeaders {
		h.Del(name)
	}
}

// setIdentityHeaders replaces the propagation headers with id. The tenant
// header is always present and empty for privileged identities.
func setIdentityHeaders(h http.Header, id domain.Identity) {
	stripIdentityHeaders(h)
	h.Set(HeaderUserID, id.SubjectID)
	h.Set(HeaderUserName, id.DisplayName)
	h.Set(HeaderUserRole, string(id.Role))
	h.Set(HeaderTenantID, id.TenantID)
}

// identityFromHeaders rebuilds the caller from propagation headers. Repeated
// headers are treated as tampering.
func identityFromHeaders(h http.Header) (domain.Identity, error) {
	for _, name := range identityHeaders {
		if len(h.Values(name)) > 1 {
			return domain.Identity{}, fmt.Errorf("%w: repeated %s header", domain.ErrInvalidIdentity, name)
		}
	}
	subject := strings.TrimSpace(h.Get(HeaderUserID))
	rawRole := strings.TrimSpace(h.Get(HeaderUserRole))
	if subject == "" && rawRole == "" {
		return domain.Identity{}, domain.ErrIdentityMissing
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return domain.Identity{}, err
	}
	id := domain.Identity{
		SubjectID:   subject,
		DisplayName: h.Get(HeaderUserName),
		Role:        role,
		TenantID:    strings.TrimSpace(h.Get(HeaderTenantID)),
	}
	if err := id.Validate(); err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

// AllowList holds the paths that need no identity. An entry ending in "/*"
// matches every path below it; any other entry matches exactly.
type AllowList struct {
	exact    map[string]struct{}
	prefixes []string
}

// DefaultAllowList is the set of unauthenticated gateway paths.
var DefaultAllowList = []string{"/api/auth/login", "/health", "/health/ready", "/metrics"}

func NewAllowList(paths ...string) AllowList {
	a := AllowList{exact: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		if strings.HasSuffix(p, "/*") {
			a.prefixes = append(a.prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		a.exact[p] = struct{}{}
	}
	return a
}

// Allows reports whether p is allow-listed. p is cleaned first so dot
// segments cannot smuggle a protected path behind an allowed one.
func (a AllowList) Allows(p string) bool {
	if p == "" {
		p = "/"
	}
	p = path.Clean(p)
	if _, ok := a.exact[p]; ok {
		return true
	}
	for _, prefix := range a.prefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
