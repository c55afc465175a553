package handler

import (
	"github.com/gin-gonic/gin"

	"schedulix/backend/internal/service"
	"schedulix/backend/internal/tenant"
	"schedulix/backend/pkg/jwt"
	"schedulix/backend/pkg/response"
)

// Context keys written by the auth and tenant middleware.
const (
	CtxClaims   = "claims"
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxTenantID = "tenant_id"
)

// MustGetActor builds the caller from the gin context. On failure it writes
// a 401 and the caller should return.
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	userID := c.GetString(CtxUserID)
	role := c.GetString(CtxRole)
	if userID == "" || role == "" {
		response.Unauthorized(c, 10002, "Authentication required")
		return service.Actor{}, false
	}

	tid, ok := tenant.FromContext(c.Request.Context())
	if !ok {
		response.Forbidden(c, tenant.ErrMissingTenant.Code, tenant.ErrMissingTenant.Message)
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, TenantID: tid, Role: role}, true
}

// MustGetClaims returns the verified access token claims.
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(CtxClaims)
	if !exists {
		response.Unauthorized(c, 10002, "Authentication required")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "Authentication required")
		return nil, false
	}
	return claims, true
}
