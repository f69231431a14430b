package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
	"github.com/deeprisk/fee-risk-system/internal/core/predicate"
)

const settlementColumns = `setl_id, mdtrt_id, psn_no, psn_name, med_type, begndate,
	medfee_sumamt, hifp_pay, fixmedins_code, fixmedins_name`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SettlementRepository reads settlements from PostgreSQL. Every predicate is
// rendered into the WHERE clause with its value as a bind parameter.
type SettlementRepository struct {
	db querier
}

// NewSettlementRepository accepts a *pgxpool.Pool or any other querier.
func NewSettlementRepository(db querier) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func (r *SettlementRepository) List(ctx context.Context, spec predicate.Spec, page ports.Page) ([]domain.Settlement, error) {
	if spec.Impossible() {
		return []domain.Settlement{}, nil
	}

	query, args := listQuery(spec, page)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query settlements: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Settlement, 0, page.Limit)
	for rows.Next() {
		var (
			s        domain.Settlement
			begnDate *time.Time
		)
		if err := rows.Scan(
			&s.SetlID, &s.MdtrtID, &s.PsnNo, &s.PsnName, &s.MedType, &begnDate,
			&s.MedfeeSumamt, &s.HifpPay, &s.FixmedinsCode, &s.FixmedinsName,
		); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		if begnDate != nil {
			s.BegnDate = begnDate.UTC()
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements: %w", err)
	}
	return out, nil
}

func (r *SettlementRepository) Count(ctx context.Context, spec predicate.Spec) (int64, error) {
	if spec.Impossible() {
		return 0, nil
	}

	query, args := countQuery(spec)
	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count settlements: %w", err)
	}
	return total, nil
}

func listQuery(spec predicate.Spec, page ports.Page) (string, []any) {
	where, args := predicate.SQL(spec, 1)
	argPos := len(args) + 1
	query := fmt.Sprintf(`SELECT %s
		FROM settlements
		WHERE %s
		ORDER BY begndate DESC, setl_id
		LIMIT $%d OFFSET $%d`, settlementColumns, where, argPos, argPos+1)
	return query, append(args, page.Limit, page.Offset)
}

func countQuery(spec predicate.Spec) (string, []any) {
	where, args := predicate.SQL(spec, 1)
	return fmt.Sprintf("SELECT COUNT(*) FROM settlements WHERE %s", where), args
}
