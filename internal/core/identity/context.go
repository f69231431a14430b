// Package identity binds the resolved caller to the context of a single request.
//
// The identity travels with the request's context.Context and is never stored
// in package-level or per-goroutine state, so a worker that serves request B
// after request A cannot observe A's caller.
package identity

import (
	"context"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

type ctxKey struct{}

// With returns a copy of ctx carrying id.
func With(ctx context.Context, id domain.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the identity bound to ctx, if any.
func From(ctx context.Context) (domain.Identity, bool) {
	if ctx == nil {
		return domain.Identity{}, false
	}
	id, ok := ctx.Value(ctxKey{}).(domain.Identity)
	return id, ok
}

// Require returns the bound identity or domain.ErrIdentityMissing.
func Require(ctx context.Context) (*domain.Identity, error) {
	id, ok := From(ctx)
	if !ok {
		return nil, domain.ErrIdentityMissing
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return &id, nil
}
