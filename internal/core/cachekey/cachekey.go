// Package cachekey derives cache keys that always carry the caller's tenant scope.
//
// Key layout:
//
//	<namespace>:<canonical params>:scope=<tenant-id | *>
//
// Two tenants issuing the same logical query therefore never share an entry,
// and the list and count entries of one query always carry the same scope.
package cachekey

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

// AllTenants is the scope component used for privileged identities.
const AllTenants = "*"

var ErrNoIdentity = errors.New("cachekey: identity required")

// Params are the business query parameters that distinguish one entry from another.
// Supported value types: string, []string, int, int64, bool, time.Time.
type Params map[string]any

// Compose builds the cache key for namespace, params and the caller identity.
func Compose(namespace string, params Params, id *domain.Identity) (string, error) {
	if id == nil {
		return "", ErrNoIdentity
	}
	if err := id.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	canon, err := Canonical(params)
	if err != nil {
		return "", err
	}
	return namespace + ":" + canon + ":scope=" + Scope(*id), nil
}

// Scope returns the scope component for id.
func Scope(id domain.Identity) string {
	if id.Role.Privileged() {
		return AllTenants
	}
	return id.TenantID
}

// Canonical renders params in a stable form: sorted keys, normalized values,
// empty values dropped, separators escaped.
func Canonical(params Params) (string, error) {
	vals := url.Values{}
	for k, v := range params {
		s, err := canonicalValue(v)
		if err != nil {
			return "", fmt.Errorf("cachekey: param %q: %w", k, err)
		}
		if s == "" {
			continue
		}
		vals.Set(k, s)
	}
	// Encode sorts by key.
	return vals.Encode(), nil
}

func canonicalValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return normalize(t), nil
	case []string:
		items := make([]string, 0, len(t))
		for _, s := range t {
			if s = normalize(s); s != "" {
				items = append(items, url.QueryEscape(s))
			}
		}
		sort.Strings(items)
		return strings.Join(items, ","), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case bool:
		return strconv.FormatBool(t), nil
	case time.Time:
		if t.IsZero() {
			return "", nil
		}
		return t.UTC().Format(time.RFC3339), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
