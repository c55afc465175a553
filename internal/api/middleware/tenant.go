package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schedulix/backend/internal/tenant"
	pkgerrors "schedulix/backend/pkg/errors"
	"schedulix/backend/pkg/jwt"
	"schedulix/backend/pkg/response"
)

// TenantChecker reports whether a tenant may use the API.
type TenantChecker interface {
	EnsureActive(ctx context.Context, tid tenant.ID) error
}

// TenantContext binds the request to the tenant named in the verified token.
// Headers and query parameters are never consulted. Must run after JWTAuth.
func TenantContext(checker TenantChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(ctxClaims)
		claims, ok := v.(*jwt.Claims)
		if !ok || claims == nil {
			response.Unauthorized(c, 10002, "Authentication required")
			c.Abort()
			return
		}

		tid := tenant.ID(claims.TenantID)
		if err := checker.EnsureActive(c.Request.Context(), tid); err != nil {
			if e, ok := pkgerrors.As(err); ok {
				response.Failure(c, e.HTTPStatus(), e.Code, e.Message, "", e.Retryable())
			} else {
				logger.Error("tenant check failed", zap.String("tenant_id", claims.TenantID), zap.Error(err))
				response.InternalError(c)
			}
			c.Abort()
			return
		}

		c.Set(ctxTenantID, tid.String())
		c.Request = c.Request.WithContext(tenant.WithTenant(c.Request.Context(), tid))

		c.Next()
	}
}
