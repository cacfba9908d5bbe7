package usage

import (
	"context"
	"net/http"

	"dialout/internal/auth"

	"github.com/gin-gonic/gin"
)

// StatusService is the minimal usage interface needed by middleware.
type StatusService interface {
	GetStatus(ctx context.Context, workspaceID string) (QuotaStatus, error)
}

// RequireQuotaHeadroom blocks run-starting requests once the workspace has
// exhausted its monthly call quota. Reads workspace_id from auth context.
func RequireQuotaHeadroom(svc StatusService) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, err := auth.WorkspaceID(c.Request.Context())
		if err != nil || workspaceID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
			return
		}

		st, err := svc.GetStatus(c.Request.Context(), workspaceID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "quota lookup failed"})
			return
		}
		if st.Remaining() == 0 {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":  "monthly call quota exceeded",
				"period": st.Period,
				"limit":  st.LimitUnits,
			})
			return
		}

		c.Next()
	}
}
