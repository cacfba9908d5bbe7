package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"dialout/internal/auth"

	"github.com/gin-gonic/gin"
)

func routerWithIdentity(userID, workspaceID, role string, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), userID, workspaceID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, RequireWorkspace(), RequireAnyRole(allowed...), func(c *gin.Context) {
		c.Status(200)
	})
	return r
}

func get(r *gin.Engine) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_OwnerBypasses(t *testing.T) {
	r := routerWithIdentity("u", "w", RoleOwner, RoleOperator)
	if code := get(r); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_ViewerDeniedOperatorRoute(t *testing.T) {
	r := routerWithIdentity("u", "w", RoleViewer, RoleOperator)
	if code := get(r); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_OperatorAllowed(t *testing.T) {
	r := routerWithIdentity("u", "w", RoleOperator, RoleOperator)
	if code := get(r); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_WorkspaceRequired(t *testing.T) {
	r := routerWithIdentity("u", "", RoleOwner, RoleOwner)
	if code := get(r); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
