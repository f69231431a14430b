package cachekey

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

var (
	regulator = &domain.Identity{SubjectID: "r-1", Role: domain.RolePrivileged}
	hospital  = &domain.Identity{SubjectID: "h-1", Role: domain.RoleTenantScoped, TenantID: "H001"}
)

func TestCompose_CarriesScope(t *testing.T) {
	params := Params{"psn_no": "P1"}

	k1, err := Compose("settlements:list", params, hospital)
	require.NoError(t, err)
	k2, err := Compose("settlements:list", params, regulator)
	require.NoError(t, err)

	assert.Equal(t, "settlements:list:psn_no=P1:scope=H001", k1)
	assert.Equal(t, "settlements:list:psn_no=P1:scope=*", k2)
}

func TestCompose_RequiresIdentity(t *testing.T) {
	_, err := Compose("ns", Params{}, nil)
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, err = Compose("ns", Params{}, &domain.Identity{SubjectID: "x", Role: domain.RoleTenantScoped})
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestCanonical_OrderIndependent(t *testing.T) {
	a, err := Canonical(Params{"b": "2", "a": "1", "types": []string{"21", "11"}})
	require.NoError(t, err)
	b, err := Canonical(Params{"types": []string{"11", "21", " "}, "a": "1", "b": "2"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCanonical_NormalizesUnicodeAndWhitespace(t *testing.T) {
	composed, err := Canonical(Params{"name": "Jos\u00e9"})
	require.NoError(t, err)
	decomposed, err := Canonical(Params{"name": "  Jose\u0301 "})
	require.NoError(t, err)

	assert.Equal(t, composed, decomposed)
}

func TestCanonical_DropsEmptyValues(t *testing.T) {
	got, err := Canonical(Params{
		"a": "",
		"b": []string{},
		"c": time.Time{},
		"d": nil,
		"e": "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "e=x", got)
}

func TestCanonical_SeparatorsCannotForgeParams(t *testing.T) {
	forged, err := Canonical(Params{"a": "1&b=2"})
	require.NoError(t, err)
	genuine, err := Canonical(Params{"a": "1", "b": "2"})
	require.NoError(t, err)
	assert.NotEqual(t, forged, genuine)

	scoped, err := Compose("ns", Params{"a": "x:scope=*"}, hospital)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(scoped, ":scope=H001"))
	assert.Equal(t, 1, strings.Count(scoped, ":scope="))
}

func TestCanonical_ListElementsAreEscaped(t *testing.T) {
	joined, err := Canonical(Params{"t": []string{"a,b"}})
	require.NoError(t, err)
	split, err := Canonical(Params{"t": []string{"a", "b"}})
	require.NoError(t, err)
	assert.NotEqual(t, joined, split)
}

func TestCanonical_TimesAreUTC(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	local, err := Canonical(Params{"from": time.Date(2025, 1, 2, 8, 0, 0, 0, loc)})
	require.NoError(t, err)
	utc, err := Canonical(Params{"from": time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, utc, local)
}

func TestCanonical_ScalarTypes(t *testing.T) {
	got, err := Canonical(Params{"page": 2, "total": int64(40), "strict": true})
	require.NoError(t, err)
	assert.Equal(t, "page=2&strict=true&total=40", got)
}

func TestCanonical_UnsupportedType(t *testing.T) {
	_, err := Canonical(Params{"x": 1.5})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoIdentity))
}
