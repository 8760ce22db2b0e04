package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/harborline/merchops/internal/recon/service"
)

// ReportHandler serves the read-only reconciliation views.
type ReportHandler struct {
	svc *service.ReportingService
}

func NewReportHandler(svc *service.ReportingService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Overdue
// GET /api/v1/recon/reports/overdue?within_days=30&vendor_id=&brand=
func (h *ReportHandler) Overdue(c *gin.Context) {
	withinDays := 30
	if v, err := strconv.Atoi(c.Query("within_days")); err == nil && v >= 0 {
		withinDays = v
	}

	rows, err := h.svc.OverdueRegular(c.Request.Context(), withinDays, projectionFilterFromQuery(c))
	if err != nil {
		InternalError(c, "overdue report: "+err.Error())
		return
	}
	Success(c, rows)
}

// HighVariance
// GET /api/v1/recon/reports/variance?threshold=10&vendor_id=&brand=
func (h *ReportHandler) HighVariance(c *gin.Context) {
	threshold := 10
	if v, err := strconv.Atoi(c.Query("threshold")); err == nil && v > 0 {
		threshold = v
	}

	rows, err := h.svc.HighVariance(c.Request.Context(), threshold, projectionFilterFromQuery(c))
	if err != nil {
		InternalError(c, "variance report: "+err.Error())
		return
	}
	Success(c, rows)
}

// MTOOutlook
// GET /api/v1/recon/reports/mto?vendor_id=&brand=&year=&month=
func (h *ReportHandler) MTOOutlook(c *gin.Context) {
	rows, err := h.svc.MTOOutlook(c.Request.Context(), projectionFilterFromQuery(c))
	if err != nil {
		InternalError(c, "MTO outlook report: "+err.Error())
		return
	}
	Success(c, rows)
}

// StatusSummary
// GET /api/v1/recon/reports/summary?vendor_id=&brand=&year=&month=
func (h *ReportHandler) StatusSummary(c *gin.Context) {
	rows, err := h.svc.StatusSummary(c.Request.Context(), projectionFilterFromQuery(c))
	if err != nil {
		InternalError(c, "status summary report: "+err.Error())
		return
	}
	Success(c, rows)
}
