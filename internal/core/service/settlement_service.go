package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/deeprisk/fee-risk-system/internal/api/metrics"
	"github.com/deeprisk/fee-risk-system/internal/core/cachekey"
	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
	"github.com/deeprisk/fee-risk-system/internal/core/predicate"
)

// Columns of the settlement table that filters may reference.
const (
	colMdtrtID       = "mdtrt_id"
	colPsnNo         = "psn_no"
	colPsnName       = "psn_name"
	colMedType       = "med_type"
	colBegnDate      = "begndate"
	colFixmedinsCode = "fixmedins_code" // tenant scope column
)

const (
	cacheNSSettlementList  = "settlements:list"
	cacheNSSettlementCount = "settlements:count"
	cachePrefixSettlements = "settlements:"

	defaultSettlementCacheTTL = 2 * time.Hour
)

// SettlementService answers settlement searches with cache-aside lookups.
// Every cache key and every store predicate carries the caller's tenant scope.
type SettlementService struct {
	repo   ports.SettlementRepository
	cache  ports.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

func NewSettlementService(repo ports.SettlementRepository, cache ports.Cache, ttl time.Duration, logger zerolog.Logger) *SettlementService {
	if ttl <= 0 {
		ttl = defaultSettlementCacheTTL
	}
	return &SettlementService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Search returns one page of settlements visible to id plus the total count.
func (s *SettlementService) Search(ctx context.Context, id *domain.Identity, filter domain.SettlementFilter) (*domain.SettlementPage, error) {
	if id == nil {
		return nil, domain.ErrIdentityMissing
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}

	f := filter.Normalize()
	spec := predicate.Build(settlementPredicates(f), id, colFixmedinsCode)

	params := settlementParams(f)
	countKey, err := cachekey.Compose(cacheNSSettlementCount, params, id)
	if err != nil {
		return nil, err
	}
	params["page"] = f.Page
	params["limit"] = f.Limit
	listKey, err := cachekey.Compose(cacheNSSettlementList, params, id)
	if err != nil {
		return nil, err
	}

	var items []domain.Settlement
	err = s.cached(ctx, "list", listKey, &items, func(ctx context.Context) (any, error) {
		return s.repo.List(ctx, spec, ports.Page{Offset: (f.Page - 1) * f.Limit, Limit: f.Limit})
	})
	if err != nil {
		return nil, fmt.Errorf("search settlements: list: %w", err)
	}

	var total int64
	err = s.cached(ctx, "count", countKey, &total, func(ctx context.Context) (any, error) {
		return s.repo.Count(ctx, spec)
	})
	if err != nil {
		return nil, fmt.Errorf("search settlements: count: %w", err)
	}

	if items == nil {
		items = []domain.Settlement{}
	}
	totalPages := int((total + int64(f.Limit) - 1) / int64(f.Limit))

	s.logger.Debug().
		Str("subject", id.SubjectID).
		Str("scope", cachekey.Scope(*id)).
		Int("page", f.Page).
		Int64("total", total).
		Msg("settlement search")

	return &domain.SettlementPage{
		Items:      items,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: totalPages,
	}, nil
}

// ClearCache removes all cached settlement entries for every tenant.
func (s *SettlementService) ClearCache(ctx context.Context, id *domain.Identity) (int64, error) {
	if id == nil {
		return 0, domain.ErrIdentityMissing
	}
	if id.Validate() != nil || !id.Role.Privileged() {
		return 0, domain.ErrForbidden
	}
	if s.cache == nil {
		return 0, nil
	}
	n, err := s.cache.DeletePrefix(ctx, cachePrefixSettlements)
	if err != nil {
		return 0, fmt.Errorf("clear settlement cache: %w", err)
	}
	s.logger.Info().Str("subject", id.SubjectID).Int64("deleted", n).Msg("settlement cache cleared")
	return n, nil
}

// cached is a plain cache-aside lookup. Cache failures degrade to a miss;
// loader failures are returned and never stored.
func (s *SettlementService) cached(ctx context.Context, entry, key string, dest any, load func(context.Context) (any, error)) error {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			jerr := json.Unmarshal(raw, dest)
			if jerr == nil {
				metrics.CacheLookupsTotal.WithLabelValues(entry, "hit").Inc()
				return nil
			}
			s.logger.Warn().Err(jerr).Str("key", key).Msg("discarding undecodable cache entry")
		case errors.Is(err, ports.ErrCacheMiss):
		default:
			s.logger.Warn().Err(err).Str("key", key).Msg("cache unavailable, querying store")
		}
	}
	metrics.CacheLookupsTotal.WithLabelValues(entry, "miss").Inc()

	// The key already carries the tenant scope, so callers are only ever
	// coalesced with callers of the same scope.
	resCh := s.group.DoChan(key, func() (interface{}, error) {
		start := time.Now()
		val, err := load(ctx)
		metrics.BackendQueryDuration.WithLabelValues(entry).Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("failed to populate cache")
			}
		}
		return raw, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resCh:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

func settlementPredicates(f domain.SettlementFilter) []predicate.Predicate {
	var preds []predicate.Predicate
	if medTypes := nonEmpty(f.MedTypes); len(medTypes) > 0 {
		preds = append(preds, predicate.In(colMedType, medTypes))
	}
	if v := strings.TrimSpace(f.MdtrtID); v != "" {
		preds = append(preds, predicate.Eq(colMdtrtID, v))
	}
	if v := strings.TrimSpace(f.PsnNo); v != "" {
		preds = append(preds, predicate.Eq(colPsnNo, v))
	}
	if v := strings.TrimSpace(f.PsnName); v != "" {
		preds = append(preds, predicate.Like(colPsnName, v))
	}
	if !f.DateFrom.IsZero() {
		preds = append(preds, predicate.Gte(colBegnDate, f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		preds = append(preds, predicate.Lte(colBegnDate, f.DateTo))
	}
	return preds
}

func settlementParams(f domain.SettlementFilter) cachekey.Params {
	return cachekey.Params{
		"mdtrt_id":  f.MdtrtID,
		"psn_no":    f.PsnNo,
		"psn_name":  f.PsnName,
		"med_types": nonEmpty(f.MedTypes),
		"date_from": f.DateFrom,
		"date_to":   f.DateTo,
	}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
