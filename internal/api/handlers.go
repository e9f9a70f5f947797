package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/provguard/provguard/internal/config"
	"github.com/provguard/provguard/internal/fetch"
	"github.com/provguard/provguard/internal/metrics"
	"github.com/provguard/provguard/internal/models"
	"github.com/provguard/provguard/internal/provenance"
	"github.com/provguard/provguard/internal/repository"
	"github.com/provguard/provguard/internal/store"
)

// Handler holds dependencies for the check endpoints.
type Handler struct {
	cfg          *config.Config
	stores       []*store.Store
	fetcher      fetch.DiffFetcher
	workerPool   *provenance.WorkerPool
	reportsRepo  *repository.ReportsRepository
	checkTimeout time.Duration
}

// NewHandler creates a handler. reportsRepo may be nil, in which case
// reports are not persisted.
func NewHandler(
	cfg *config.Config,
	stores []*store.Store,
	fetcher fetch.DiffFetcher,
	workerPool *provenance.WorkerPool,
	reportsRepo *repository.ReportsRepository,
) *Handler {
	return &Handler{
		cfg:          cfg,
		stores:       stores,
		fetcher:      fetcher,
		workerPool:   workerPool,
		reportsRepo:  reportsRepo,
		checkTimeout: cfg.CheckTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Check runs the full two-layer provenance pipeline over the submitted
// diff and returns the evidence synchronously.
func (h *Handler) Check(c *gin.Context) {
	var req models.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if err := validateCheckPayload(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.checkTimeout)
	defer cancel()

	started := time.Now()
	result, err := provenance.Check(ctx, req.Diff, h.stores, h.fetcher, h.workerPool, h.cfg.CheckParams())
	if err != nil {
		log.Error().Err(err).Int("prNumber", req.PRNumber).Msg("Check failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Check failed",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	metrics.ObserveCheck(result.Matched, result.Incomplete, started)

	resp := models.CheckResponse{
		CheckID:    uuid.New().String(),
		Matched:    result.Matched,
		Incomplete: result.Incomplete,
		Degraded:   result.Degraded,
		Evidence:   models.EvidenceFromVerdicts(result.Evidence),
	}

	if h.reportsRepo != nil {
		report := &models.CheckReport{
			CheckID:    resp.CheckID,
			Repo:       req.Repo,
			PRNumber:   req.PRNumber,
			Matched:    resp.Matched,
			Incomplete: resp.Incomplete,
			Degraded:   resp.Degraded,
			Evidence:   resp.Evidence,
		}
		if err := h.reportsRepo.InsertCheckReport(ctx, report); err != nil {
			log.Warn().Err(err).Str("checkId", resp.CheckID).Msg("Failed to persist check report")
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Report returns the most recent persisted report for a pull request.
func (h *Handler) Report(c *gin.Context) {
	if h.reportsRepo == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Report persistence is not enabled",
			Code:  "REPORTS_DISABLED",
		})
		return
	}

	repo := c.Query("repo")
	prNumber := 0
	if _, err := fmt.Sscanf(c.Query("prNumber"), "%d", &prNumber); err != nil || repo == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "repo and prNumber query parameters are required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	report, err := h.reportsRepo.GetLatestReportByPR(c.Request.Context(), repo, prNumber)
	if err != nil {
		log.Error().Err(err).Str("repo", repo).Int("prNumber", prNumber).Msg("Failed to load report")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to load report",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "No report found",
			Code:  "REPORT_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

func validateCheckPayload(req models.CheckRequest) error {
	if req.Diff == "" {
		return fmt.Errorf("diff is required")
	}
	return nil
}
