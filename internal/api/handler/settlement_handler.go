package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
)

const dateLayout = "2006-01-02"

// SettlementHandler serves settlement searches for the fee query service.
type SettlementHandler struct {
	service ports.SettlementService
}

func NewSettlementHandler(service ports.SettlementService) *SettlementHandler {
	return &SettlementHandler{service: service}
}

type searchSettlementsRequest struct {
	MdtrtID  string   `json:"mdtrt_id" validate:"max=64"`
	PsnNo    string   `json:"psn_no" validate:"max=64"`
	PsnName  string   `json:"psn_name" validate:"max=64"`
	MedTypes []string `json:"med_types" validate:"max=32,dive,max=16"`
	DateFrom string   `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string   `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Page     int      `json:"page" validate:"min=0"`
	Size     int      `json:"size" validate:"min=0,max=100"`
}

type clearCacheResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

// Search handles POST /api/settlements/search.
//
// @Summary      Search settlements visible to the caller
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      searchSettlementsRequest  true  "Search filters"
// @Success      200   {object}  domain.SettlementPage
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/settlements/search [post]
func (h *SettlementHandler) Search(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req searchSettlementsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	filter, err := req.toFilter()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	page, err := h.service.Search(c.Request().Context(), id, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// ClearCache handles POST /api/cache/clear.
//
// @Summary      Drop every cached settlement page
// @Tags         cache
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  clearCacheResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/cache/clear [post]
func (h *SettlementHandler) ClearCache(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	n, err := h.service.ClearCache(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clearCacheResponse{
		Status:  "success",
		Message: "cache cleared",
		Deleted: n,
	})
}

// toFilter converts the wire request. date_to covers the whole named day.
func (r searchSettlementsRequest) toFilter() (domain.SettlementFilter, error) {
	f := domain.SettlementFilter{
		MdtrtID:  r.MdtrtID,
		PsnNo:    r.PsnNo,
		PsnName:  r.PsnName,
		MedTypes: r.MedTypes,
		Page:     r.Page,
		Limit:    r.Size,
	}
	if r.DateFrom != "" {
		from, err := time.Parse(dateLayout, r.DateFrom)
		if err != nil {
			return f, err
		}
		f.DateFrom = from
	}
	if r.DateTo != "" {
		to, err := time.Parse(dateLayout, r.DateTo)
		if err != nil {
			return f, err
		}
		f.DateTo = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() && f.DateTo.Before(f.DateFrom) {
		return f, echo.NewHTTPError(http.StatusBadRequest, "date_to must not precede date_from")
	}
	return f, nil
}
