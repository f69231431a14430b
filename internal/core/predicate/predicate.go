// Package predicate builds the parameterized filter list that reaches the backing
// store for every query path. The list is the AND of the caller's filters plus
// exactly one identity-derived predicate:
//
//	privileged identity  -> no restriction
//	tenant-scoped        -> scopeColumn = tenant id
//	missing or invalid   -> FALSE (nothing is returned)
package predicate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

// Op is a comparison operator.
type Op string

const (
	OpEq    Op = "="
	OpIn    Op = "IN"
	OpLike  Op = "LIKE"
	OpGte   Op = ">="
	OpLte   Op = "<="
	OpFalse Op = "FALSE"
)

// Predicate is a single filter condition. Value is always sent as a bind argument.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Spec is the AND of its predicates.
type Spec []Predicate

func Eq(column string, v any) Predicate { return Predicate{Column: column, Op: OpEq, Value: v} }

func In(column string, vs []string) Predicate {
	cp := make([]string, len(vs))
	copy(cp, vs)
	return Predicate{Column: column, Op: OpIn, Value: cp}
}

// Like matches rows whose column contains substr. LIKE wildcards inside substr
// are escaped so they match literally.
func Like(column, substr string) Predicate {
	return Predicate{Column: column, Op: OpLike, Value: "%" + escapeLike(substr) + "%"}
}

func Gte(column string, v any) Predicate { return Predicate{Column: column, Op: OpGte, Value: v} }

func Lte(column string, v any) Predicate { return Predicate{Column: column, Op: OpLte, Value: v} }

// False never matches.
func False() Predicate { return Predicate{Op: OpFalse} }

// Build appends the identity predicate to the caller filters.
func Build(filters []Predicate, id *domain.Identity, scopeColumn string) Spec {
	spec := make(Spec, 0, len(filters)+1)
	spec = append(spec, filters...)
	if p, ok := ForIdentity(id, scopeColumn); ok {
		spec = append(spec, p)
	}
	return spec
}

// ForIdentity returns the identity-derived predicate. ok is false only for a
// valid privileged identity, which is unrestricted.
func ForIdentity(id *domain.Identity, scopeColumn string) (Predicate, bool) {
	if id == nil || id.Validate() != nil || !columnPattern.MatchString(scopeColumn) {
		return False(), true
	}
	if id.Role.Privileged() {
		return Predicate{}, false
	}
	return Eq(scopeColumn, id.TenantID), true
}

// Impossible reports whether the spec contains a FALSE predicate.
func (s Spec) Impossible() bool {
	for _, p := range s {
		if p.Op == OpFalse {
			return true
		}
	}
	return false
}

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQL renders spec as a WHERE clause body with $n placeholders starting at
// firstArg, returning the clause and its bind arguments.
func SQL(spec Spec, firstArg int) (string, []any) {
	if len(spec) == 0 {
		return "TRUE", nil
	}
	parts := make([]string, 0, len(spec))
	args := make([]any, 0, len(spec))
	n := firstArg
	for _, p := range spec {
		if p.Op == OpFalse || !columnPattern.MatchString(p.Column) {
			parts = append(parts, "FALSE")
			continue
		}
		switch p.Op {
		case OpIn:
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", p.Column, n))
		case OpLike:
			parts = append(parts, fmt.Sprintf(`%s LIKE $%d ESCAPE '\'`, p.Column, n))
		case OpEq, OpGte, OpLte:
			parts = append(parts, fmt.Sprintf("%s %s $%d", p.Column, p.Op, n))
		default:
			parts = append(parts, "FALSE")
			continue
		}
		args = append(args, p.Value)
		n++
	}
	return strings.Join(parts, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
