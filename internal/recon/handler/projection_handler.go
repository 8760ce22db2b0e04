package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/harborline/merchops/internal/recon/entity"
	"github.com/harborline/merchops/internal/recon/repository"
	"github.com/harborline/merchops/internal/recon/service"
)

// ProjectionReader lists live projection rows.
type ProjectionReader interface {
	FindAll(ctx context.Context, f repository.ProjectionFilter, page, pageSize int) ([]entity.Projection, int64, error)
	FindByID(ctx context.Context, id string) (*entity.Projection, error)
}

// HistoryReader lists archived projection snapshots.
type HistoryReader interface {
	FindByVendor(ctx context.Context, vendorID string, page, pageSize int) ([]entity.ProjectionHistory, int64, error)
}

// ExpiredReader lists the expired-projection review ledger.
type ExpiredReader interface {
	FindAll(ctx context.Context, vendorID, verificationStatus string, page, pageSize int) ([]entity.ExpiredProjection, int64, error)
}

// ProjectionHandler exposes projection state and the operator lifecycle
// actions.
type ProjectionHandler struct {
	lifecycle   *service.LifecycleService
	projections ProjectionReader
	history     HistoryReader
	expired     ExpiredReader
}

func NewProjectionHandler(lifecycle *service.LifecycleService, projections ProjectionReader, history HistoryReader, expired ExpiredReader) *ProjectionHandler {
	return &ProjectionHandler{
		lifecycle:   lifecycle,
		projections: projections,
		history:     history,
		expired:     expired,
	}
}

func projectionFilterFromQuery(c *gin.Context) repository.ProjectionFilter {
	var f repository.ProjectionFilter
	if v := c.Query("vendor_id"); v != "" {
		f.VendorID = &v
	}
	if v := c.Query("brand"); v != "" {
		f.Brand = &v
	}
	if v, err := strconv.Atoi(c.Query("year")); err == nil {
		f.Year = &v
	}
	if v, err := strconv.Atoi(c.Query("month")); err == nil {
		f.Month = &v
	}
	if v := c.Query("match_status"); v != "" {
		f.MatchStatus = &v
	}
	if v := c.Query("order_type"); v != "" {
		f.OrderType = &v
	}
	return f
}

// ListProjections
// GET /api/v1/recon/projections?vendor_id=&brand=&year=&month=&match_status=&order_type=
func (h *ProjectionHandler) ListProjections(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.projections.FindAll(c.Request.Context(), projectionFilterFromQuery(c), page, pageSize)
	if err != nil {
		InternalError(c, "list projections: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetProjection
// GET /api/v1/recon/projections/:id
func (h *ProjectionHandler) GetProjection(c *gin.Context) {
	p, err := h.projections.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "projection not found")
		return
	}
	Success(c, p)
}

// Unmatch
// POST /api/v1/recon/projections/:id/unmatch
func (h *ProjectionHandler) Unmatch(c *gin.Context) {
	p, err := h.lifecycle.Unmatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLifecycleError(c, err, "unmatch")
		return
	}
	Success(c, p)
}

// ManualMatch
// POST /api/v1/recon/projections/:id/manual-match
func (h *ProjectionHandler) ManualMatch(c *gin.Context) {
	var req struct {
		PONumber string `json:"po_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	p, err := h.lifecycle.ManualMatch(c.Request.Context(), c.Param("id"), req.PONumber)
	if err != nil {
		respondLifecycleError(c, err, "manual match")
		return
	}
	Success(c, p)
}

// MarkRemoved
// POST /api/v1/recon/projections/:id/remove
func (h *ProjectionHandler) MarkRemoved(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.lifecycle.MarkRemoved(c.Request.Context(), c.Param("id"), req.Reason, GetUserID(c)); err != nil {
		respondLifecycleError(c, err, "mark removed")
		return
	}
	Success(c, nil)
}

// ExpireSweep
// POST /api/v1/recon/lifecycle/expire-sweep
func (h *ProjectionHandler) ExpireSweep(c *gin.Context) {
	expired, err := h.lifecycle.ExpireSweep(c.Request.Context())
	if err != nil {
		InternalError(c, "expire sweep: "+err.Error())
		return
	}
	Success(c, gin.H{"expired": expired})
}

// ListHistory
// GET /api/v1/recon/vendors/:id/projection-history
func (h *ProjectionHandler) ListHistory(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.history.FindByVendor(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		InternalError(c, "list projection history: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// ListExpired
// GET /api/v1/recon/expired?vendor_id=&status=
func (h *ProjectionHandler) ListExpired(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.expired.FindAll(c.Request.Context(), c.Query("vendor_id"), c.Query("status"), page, pageSize)
	if err != nil {
		InternalError(c, "list expired projections: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// Restore
// POST /api/v1/recon/expired/:id/restore
func (h *ProjectionHandler) Restore(c *gin.Context) {
	if err := h.lifecycle.Restore(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		respondLifecycleError(c, err, "restore")
		return
	}
	Success(c, nil)
}

// Verify
// POST /api/v1/recon/expired/:id/verify
func (h *ProjectionHandler) Verify(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.lifecycle.Verify(c.Request.Context(), c.Param("id"), req.Status, req.Notes, GetUserID(c)); err != nil {
		respondLifecycleError(c, err, "verify")
		return
	}
	Success(c, nil)
}

func respondLifecycleError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, op+": not found")
	case errors.Is(err, service.ErrInvalidTransition):
		Conflict(c, op+": "+err.Error())
	default:
		InternalError(c, op+": "+err.Error())
	}
}
