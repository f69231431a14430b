package ports

import (
	"context"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
)

// SettlementService defines the tenant-scoped settlement queries.
type SettlementService interface {
	Search(ctx context.Context, id *domain.Identity, filter domain.SettlementFilter) (*domain.SettlementPage, error)
	// ClearCache drops every cached settlement list and count. Regulator only.
	ClearCache(ctx context.Context, id *domain.Identity) (int64, error)
}
