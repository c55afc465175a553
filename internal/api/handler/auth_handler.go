package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/service"
	"schedulix/backend/pkg/response"
)

const refreshCookie = "refresh_token"

// AuthHandler authentication endpoints
type AuthHandler struct {
	authSvc service.AuthService
	errorRenderer
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc service.AuthService, r errorRenderer) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, errorRenderer: r}
}

// Login email + password login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.render(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// RefreshToken rotates the token pair. The refresh token comes from the
// body or, failing that, the cookie.
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := h.refreshTokenFrom(c)
	if token == "" {
		response.BadRequest(c, 10001, "refresh_token is required")
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), token)
	if err != nil {
		h.render(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// Logout revokes the current access token and the refresh token if given.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), claims, h.refreshTokenFrom(c)); err != nil {
		h.render(c, err)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, "", -1, "/api/v1/auth", "", !h.debug, true)
	response.OKMessage(c, "Logged out", nil)
}

// GetCurrentUser the signed-in account
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	me, err := h.authSvc.Me(c.Request.Context(), actor)
	if err != nil {
		h.render(c, err)
		return
	}

	response.OK(c, me)
}

// ChangePassword password change for the current user
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), actor, &req); err != nil {
		h.render(c, err)
		return
	}

	response.OKMessage(c, "Password changed", nil)
}

// ── helpers ──

func (h *AuthHandler) refreshTokenFrom(c *gin.Context) string {
	var req dto.RefreshTokenRequest
	if c.Request.ContentLength > 0 && c.ShouldBindJSON(&req) == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if v, err := c.Cookie(refreshCookie); err == nil {
		return v
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	if token == "" {
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, token, 0, "/api/v1/auth", "", !h.debug, true)
}
