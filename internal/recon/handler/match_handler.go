package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/harborline/merchops/internal/recon/service"
)

// MatchHandler triggers matching runs, projection imports and archives.
type MatchHandler struct {
	matching *service.MatchingService
	importer *service.ImportService
	archival *service.ArchivalService
}

func NewMatchHandler(matching *service.MatchingService, importer *service.ImportService, archival *service.ArchivalService) *MatchHandler {
	return &MatchHandler{matching: matching, importer: importer, archival: archival}
}

// RunMatch processes one bounded batch of unprocessed incoming POs.
// POST /api/v1/recon/match/run
func (h *MatchHandler) RunMatch(c *gin.Context) {
	result, err := h.matching.RunPending(c.Request.Context())
	if err != nil {
		InternalError(c, "matching run: "+err.Error())
		return
	}
	Success(c, result)
}

// ImportProjections applies a vendor projection workbook.
// POST /api/v1/recon/vendors/:id/projections/import  (multipart field "file")
func (h *MatchHandler) ImportProjections(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing workbook file: "+err.Error())
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "open workbook: "+err.Error())
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		InternalError(c, "read workbook: "+err.Error())
		return
	}

	result, err := h.importer.ImportWorkbook(c.Request.Context(), c.Param("id"), fileHeader.Filename, data)
	if err != nil {
		InternalError(c, "import projections: "+err.Error())
		return
	}
	Success(c, result)
}

// ArchiveVendor snapshots a vendor's live projection set to history.
// POST /api/v1/recon/vendors/:id/projections/archive
func (h *MatchHandler) ArchiveVendor(c *gin.Context) {
	archived, err := h.archival.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "archive projections: "+err.Error())
		return
	}
	Success(c, gin.H{"archived": archived})
}
