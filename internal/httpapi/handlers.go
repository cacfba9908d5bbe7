package httpapi

import (
	"errors"
	"net/http"
	"time"

	"dialout/internal/auth"
	"dialout/internal/campaign"
	"dialout/internal/rbac"
	"dialout/internal/records"
	"dialout/internal/runlog"
	"dialout/internal/usage"
	"dialout/pkg/logger"
	"dialout/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Campaign *campaign.Controller
	Usage    *usage.Service
	Events   *runlog.Service
	Redis    *redis.Client
}

// --- Auth ---

type loginRequest struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// Login issues a session token.
//
// NOTE: This endpoint trusts its input. Real deployments front it with an
// identity provider; credential validation is out of scope here.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, workspace_id, role required"})
		return
	}
	tok, err := h.Auth.IssueSession(time.Now(), req.UserID, req.WorkspaceID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_token": tok})
}

// Me echoes the identity extracted from the session token.
func (h Handlers) Me(c *gin.Context) {
	uid, _ := auth.UserID(c.Request.Context())
	wid, _ := auth.WorkspaceID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "workspace_id": wid, "role": role})
}

// --- Candidates ---

// ImportCandidates ingests a CSV body through the full pipeline
// (normalization, dedupe, suppression). Content-Type: text/csv.
func (h Handlers) ImportCandidates(c *gin.Context) {
	if h.Campaign == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign not configured"})
		return
	}
	res, err := h.Campaign.IngestCandidates(c.Request.Context(), c.Request.Body)
	if err != nil {
		logger.FromGin(c).Warn("csv import failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":   res.RunID,
		"valid":    res.Valid,
		"rejected": res.Rejected,
	})
}

// GetRecord returns one call record by unique id.
func (h Handlers) GetRecord(c *gin.Context) {
	if h.Campaign == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign not configured"})
		return
	}
	id := c.Param("unique_record_id")
	rec, err := h.Campaign.Store.GetByUniqueID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// --- Runs ---

// StartBatchRun places one throttled batch synchronously and reports its
// stats. Continuous dialing is driven by the CLI, not the API.
func (h Handlers) StartBatchRun(c *gin.Context) {
	if h.Campaign == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign not configured"})
		return
	}
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}
	log := logger.FromGin(c)

	// One run at a time per workspace.
	if h.Redis != nil {
		key := "runs:" + workspaceID
		ok, err := utils.AcquireConcurrencyCap(c.Request.Context(), h.Redis, key, 1, time.Hour)
		if err != nil {
			log.Warn("run cap check failed, proceeding", "err", err)
		} else if !ok {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
			return
		} else {
			defer func() {
				if err := utils.ReleaseConcurrencyCap(c.Request.Context(), h.Redis, key); err != nil {
					log.Warn("run cap release failed", "err", err)
				}
			}()
		}
	}

	runID, stats, err := h.Campaign.RunBatch(c.Request.Context())
	if err != nil {
		log.Error("batch run failed", "run_id", runID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "run failed", "run_id": runID})
		return
	}

	// Meter placed calls against the monthly quota; the run id makes the
	// consume idempotent on retried requests.
	if h.Usage != nil && stats.Placed > 0 {
		if _, _, err := h.Usage.Consume(c.Request.Context(), workspaceID, usage.ConsumeRequest{
			Units:          int64(stats.Placed),
			ExternalRef:    runID,
			IdempotencyKey: "run:" + runID,
		}); err != nil {
			log.Warn("usage metering failed", "run_id", runID, "err", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":           runID,
		"placed":           stats.Placed,
		"skipped_window":   stats.SkippedWindow,
		"skipped_throttle": stats.SkippedThrottle,
		"errors":           stats.Errors,
	})
}

// GetRunEvents lists the append-only event trail for a run.
func (h Handlers) GetRunEvents(c *gin.Context) {
	if h.Events == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "run log not configured"})
		return
	}
	runID := c.Param("run_id")
	events, err := h.Events.ListByRun(c.Request.Context(), runID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "event lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "events": events})
}

// GetSummary reports the disposition breakdown across all records.
func (h Handlers) GetSummary(c *gin.Context) {
	if h.Campaign == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign not configured"})
		return
	}
	s, err := h.Campaign.Summary(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":          s.Total,
		"total_attempts": s.TotalAttempts,
		"resolved":       s.Resolved,
		"by_disposition": s.ByDisposition,
	})
}

// GetQuota reports the workspace's current-period call quota.
func (h Handlers) GetQuota(c *gin.Context) {
	if h.Usage == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "usage not configured"})
		return
	}
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}
	st, err := h.Usage.GetStatus(c.Request.Context(), workspaceID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "quota lookup failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// Convenience middleware bundles.

func RequireWorkspaceAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireWorkspace(), rbac.RequireAnyRole(roles...)}
}
