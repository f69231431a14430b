package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
)

const maxAssessmentBytes = 1 << 20

// RiskHandler exposes the asynchronous risk assessment flow on the gateway.
type RiskHandler struct {
	service ports.RiskService
}

func NewRiskHandler(service ports.RiskService) *RiskHandler {
	return &RiskHandler{service: service}
}

type submitResponse struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

type resultRequest struct {
	JobID  string          `json:"job_id" validate:"required,uuid4"`
	Result json.RawMessage `json:"result" validate:"required"`
}

type resultResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Submit handles POST /async-risk-assessment/assess.
//
// @Summary      Submit a risk assessment
// @Tags         risk
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      object  true  "Assessment input"
// @Success      202   {object}  submitResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /async-risk-assessment/assess [post]
func (h *RiskHandler) Submit(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxAssessmentBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(body) > maxAssessmentBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
	}

	jobID, err := h.service.Submit(c.Request().Context(), id, json.RawMessage(body))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, submitResponse{JobID: jobID, Status: domain.JobPending})
}

// Poll handles GET /async-risk-assessment/:id. Unknown, expired and
// other-tenant jobs all answer 200 with status UNKNOWN.
//
// @Summary      Poll a risk assessment
// @Tags         risk
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Job id"
// @Success      200  {object}  domain.Job
// @Failure      401  {object}  errorResponse
// @Router       /async-risk-assessment/{id} [get]
func (h *RiskHandler) Poll(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	job, err := h.service.Poll(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

// Result handles POST /async-risk-assessment/result, the callback used by
// external analyzers.
//
// @Summary      Report a risk assessment result
// @Tags         risk
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      resultRequest  true  "Job result"
// @Success      200   {object}  resultResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /async-risk-assessment/result [post]
func (h *RiskHandler) Result(c echo.Context) error {
	var req resultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.ReportResult(c.Request().Context(), req.JobID, req.Result); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resultResponse{JobID: req.JobID, Status: string(domain.JobComplete)})
}
