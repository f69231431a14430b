package ports

import (
	"context"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/predicate"
)

// Page selects a window of an ordered result set.
type Page struct {
	Offset int
	Limit  int
}

// SettlementRepository executes predicate lists against the settlement store.
// Implementations must push every predicate into the store query; rows outside
// the spec are never loaded.
type SettlementRepository interface {
	List(ctx context.Context, spec predicate.Spec, page Page) ([]domain.Settlement, error)
	Count(ctx context.Context, spec predicate.Spec) (int64, error)
}
