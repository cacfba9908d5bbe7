package main

import (
	"dialout/internal/auth"
	"dialout/internal/httpapi"
	"dialout/internal/rbac"
	"dialout/internal/usage"
	"dialout/internal/webhook"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, mgr *auth.Manager, h httpapi.Handlers, wh webhook.Handler) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public; authenticated by HMAC signature).
	r.POST("/webhook/vapi", wh.HandleVapiEvent)

	// token issuance
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireSession(mgr))
	{
		v1.GET("/me", h.Me)

		// read-only routes: any workspace member
		read := v1.Group("")
		read.Use(httpapi.RequireWorkspaceAndAnyRole(rbac.RoleOperator, rbac.RoleViewer)...)
		{
			read.GET("/summary", h.GetSummary)
			read.GET("/records/:unique_record_id", h.GetRecord)
			read.GET("/runs/:run_id/events", h.GetRunEvents)
			read.GET("/quota", h.GetQuota)
		}

		// mutating routes: operators and owners only
		ops := v1.Group("")
		ops.Use(httpapi.RequireWorkspaceAndAnyRole(rbac.RoleOperator)...)
		{
			ops.POST("/candidates/import", h.ImportCandidates)
			ops.POST("/runs/batch", usage.RequireQuotaHeadroom(h.Usage), h.StartBatchRun)
		}
	}
}
