package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
	domsvc "FinTrend/internal/domain/service"
	"FinTrend/internal/service/ratelimit"
	"FinTrend/internal/usecase"
	xhttp "FinTrend/pkg/http"
	xlogger "FinTrend/pkg/logger"
	"FinTrend/pkg/util"
)

// DecomposeEchoHandler exposes batch decomposition over HTTP.
type DecomposeEchoHandler struct {
	logger    *xlogger.Logger
	decompose *usecase.DecomposeUseCase
	jobs      *usecase.JobsUseCase
	limiter   *ratelimit.Limiter
}

func NewDecomposeEchoHandler(logger *xlogger.Logger, decompose *usecase.DecomposeUseCase, jobs *usecase.JobsUseCase) *DecomposeEchoHandler {
	return &DecomposeEchoHandler{logger: logger, decompose: decompose, jobs: jobs}
}

// WithLimiter rate-limits the routes that run estimations.
func (h *DecomposeEchoHandler) WithLimiter(lim *ratelimit.Limiter) *DecomposeEchoHandler {
	h.limiter = lim
	return h
}

func (h *DecomposeEchoHandler) RegisterRoutes(e *echo.Echo) {
	var limited []echo.MiddlewareFunc
	if h.limiter != nil {
		limited = append(limited, RateLimit(h.limiter))
	}
	g := e.Group("/api")
	g.GET("/capability", h.Capability)
	g.GET("/decompose", h.DecomposeSymbols, limited...)
	g.POST("/decompose", h.DecomposeDataset, limited...)
	g.POST("/decompose/jobs", h.SubmitJob, limited...)
	g.GET("/decompose/jobs/:id", h.JobStatus)
}

func (h *DecomposeEchoHandler) Capability(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.decompose.Capability())
}

func (h *DecomposeEchoHandler) DecomposeDataset(c echo.Context) error {
	req := &models.DecomposeDatasetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	run, err := h.decompose.DecomposeDataset(c.Request().Context(), &req.Dataset)
	if err != nil {
		return h.fail(c, "decompose dataset", err)
	}
	return xhttp.SuccessResponse(c, run)
}

func (h *DecomposeEchoHandler) DecomposeSymbols(c echo.Context) error {
	req := &models.DecomposeSymbolsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	params := usecase.DecomposeSymbolsParams{
		Symbols:   util.SplitSymbols(req.Symbols),
		N:         req.N,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
	}
	if req.To != "" {
		to, ok := util.ParseTime(req.To)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("invalid to"))
		}
		params.To = to
		params.From = util.ParseTimeDefault(req.From, time.Time{})
	}

	run, err := h.decompose.DecomposeSymbols(c.Request().Context(), params)
	if err != nil {
		return h.fail(c, "decompose symbols", err)
	}
	return xhttp.SuccessResponse(c, run)
}

func (h *DecomposeEchoHandler) SubmitJob(c echo.Context) error {
	req := &models.DecomposeJobRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id, err := h.jobs.Submit(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "submit job", err)
	}
	return xhttp.AcceptedResponse(c, models.JobAccepted{JobID: id})
}

func (h *DecomposeEchoHandler) JobStatus(c echo.Context) error {
	id := c.Param("id")
	st, err := h.jobs.Status(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "job status", err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *DecomposeEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 && !domsvc.IsUnavailable(err) {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	var unavailable *domsvc.UnavailableError
	switch {
	case errors.As(err, &unavailable):
		return xhttp.ServiceUnavailableError("estimation engine unavailable").
			WithParam("reason", unavailable.Reason).WithError(err)
	case errors.Is(err, domsvc.ErrCapabilityUnavailable):
		return xhttp.ServiceUnavailableError("estimation engine unavailable").WithError(err)
	case errors.Is(err, usecase.ErrJobsDisabled):
		return xhttp.ServiceUnavailableError(err.Error()).WithError(err)
	case errors.Is(err, domsvc.ErrInvalidDataset):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrJobNotFound):
		return xhttp.NotFoundErrorf("job not found")
	default:
		return xhttp.InternalError("decomposition failed").WithError(err)
	}
}
