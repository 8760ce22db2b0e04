package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/harborline/merchops/internal/recon/repository"
	"github.com/harborline/merchops/internal/recon/service"
)

// VendorHandler exposes vendor master data and alias management.
type VendorHandler struct {
	svc *service.VendorService
}

func NewVendorHandler(svc *service.VendorService) *VendorHandler {
	return &VendorHandler{svc: svc}
}

// ListVendors
// GET /api/v1/recon/vendors?search=xxx
func (h *VendorHandler) ListVendors(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		InternalError(c, "list vendors: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetVendor
// GET /api/v1/recon/vendors/:id
func (h *VendorHandler) GetVendor(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, "vendor not found")
		return
	}
	Success(c, v)
}

// CreateVendor
// POST /api/v1/recon/vendors
func (h *VendorHandler) CreateVendor(c *gin.Context) {
	var req service.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	v, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		InternalError(c, "create vendor: "+err.Error())
		return
	}
	Created(c, v)
}

// UpdateVendor
// PUT /api/v1/recon/vendors/:id
func (h *VendorHandler) UpdateVendor(c *gin.Context) {
	var req service.UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	v, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "vendor not found")
			return
		}
		InternalError(c, "update vendor: "+err.Error())
		return
	}
	Success(c, v)
}

// AddAlias
// POST /api/v1/recon/vendors/:id/aliases
func (h *VendorHandler) AddAlias(c *gin.Context) {
	var req struct {
		AliasText string `json:"alias_text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	alias, err := h.svc.AddAlias(c.Request.Context(), c.Param("id"), req.AliasText, GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "vendor not found")
			return
		}
		InternalError(c, "add alias: "+err.Error())
		return
	}
	Created(c, alias)
}

// RemoveAlias
// DELETE /api/v1/recon/vendors/:id/aliases/:aliasId
func (h *VendorHandler) RemoveAlias(c *gin.Context) {
	if err := h.svc.RemoveAlias(c.Request.Context(), c.Param("aliasId")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "alias not found")
			return
		}
		InternalError(c, "remove alias: "+err.Error())
		return
	}
	Success(c, nil)
}
