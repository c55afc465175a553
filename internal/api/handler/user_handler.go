package handler

import (
	"github.com/gin-gonic/gin"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/service"
	"schedulix/backend/pkg/response"
)

// UserHandler account management
type UserHandler struct {
	userSvc service.UserService
	errorRenderer
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(userSvc service.UserService, r errorRenderer) *UserHandler {
	return &UserHandler{userSvc: userSvc, errorRenderer: r}
}

// CreateUser creates an account and its doctor or patient profile (Admin)
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	user, err := h.userSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.Created(c, user)
}

// ListUsers paginated accounts (Admin)
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// GetUser one account; non-admins may only read their own
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, user)
}
