package handler

import (
	"github.com/gin-gonic/gin"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/service"
	"schedulix/backend/pkg/response"
)

// CompanyHandler organization registration and settings
type CompanyHandler struct {
	tenantSvc service.TenantService
	errorRenderer
}

// NewCompanyHandler creates a CompanyHandler.
func NewCompanyHandler(tenantSvc service.TenantService, r errorRenderer) *CompanyHandler {
	return &CompanyHandler{tenantSvc: tenantSvc, errorRenderer: r}
}

// Register creates an organization and signs its first admin in
// POST /api/v1/company/register
func (h *CompanyHandler) Register(c *gin.Context) {
	var req dto.RegisterCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	result, err := h.tenantSvc.Register(c.Request.Context(), &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.Created(c, result)
}

// GetCompany the caller's organization
// GET /api/v1/company
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.tenantSvc.Get(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, result)
}

// UpdateSettings scheduling settings (Admin)
// PUT /api/v1/company/settings
func (h *CompanyHandler) UpdateSettings(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	result, err := h.tenantSvc.UpdateSettings(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, result)
}
