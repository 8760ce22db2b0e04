package middleware_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/harborline/merchops/internal/middleware"
	"github.com/harborline/merchops/internal/recon/testutil"
)

func setupAuthRouter() *gin.Engine {
	r := testutil.SetupRouter()
	auth := r.Group("/", middleware.JWTAuth(testutil.JWTSecret))
	auth.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	ops := auth.Group("", middleware.RequireRole("operator"))
	ops.POST("/act", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	r := setupAuthRouter()

	w := testutil.DoRequest(r, http.MethodGet, "/me", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", w.Code)
	}

	w = testutil.DoRequest(r, http.MethodGet, "/me", nil, "not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status %d, want 401", w.Code)
	}

	token := testutil.GenerateTestToken("u-1", "Reader", "reader@test.com", nil)
	w = testutil.DoRequest(r, http.MethodGet, "/me", nil, token)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: status %d, want 200 (body %s)", w.Code, w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	r := setupAuthRouter()

	// A valid token without the role is forbidden.
	reader := testutil.GenerateTestToken("u-1", "Reader", "reader@test.com", nil)
	w := testutil.DoRequest(r, http.MethodPost, "/act", nil, reader)
	if w.Code != http.StatusForbidden {
		t.Errorf("reader token: status %d, want 403", w.Code)
	}

	operator := testutil.GenerateTestToken("u-2", "Operator", "ops@test.com", []string{"operator"})
	w = testutil.DoRequest(r, http.MethodPost, "/act", nil, operator)
	if w.Code != http.StatusOK {
		t.Errorf("operator token: status %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	// Admin bypasses role checks.
	admin := testutil.DefaultTestToken()
	w = testutil.DoRequest(r, http.MethodPost, "/act", nil, admin)
	if w.Code != http.StatusOK {
		t.Errorf("admin token: status %d, want 200 (body %s)", w.Code, w.Body.String())
	}
}
