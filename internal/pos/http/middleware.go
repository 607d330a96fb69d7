// Package http provides HTTP handlers for POS device pairing and offline
// transaction sync.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/possync/internal/errors"
	"github.com/allisson/possync/internal/httputil"
	"github.com/allisson/possync/internal/tenant"
)

// TenantHeader carries the calling tenant's id on every POS request.
const TenantHeader = "X-Tenant-ID"

// TenantMiddleware resolves the tenant from the request header and binds it to
// the request context. Requests without a valid tenant id are rejected before
// any handler runs.
func TenantMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(TenantHeader)
		if header == "" {
			httputil.HandleErrorGin(
				c,
				apperrors.Wrap(apperrors.ErrUnauthorized, "missing tenant header"),
				logger,
			)
			c.Abort()
			return
		}

		tenantID, err := uuid.Parse(header)
		if err != nil || tenantID == uuid.Nil {
			httputil.HandleErrorGin(
				c,
				apperrors.Wrap(apperrors.ErrUnauthorized, "invalid tenant header"),
				logger,
			)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(tenant.WithTenant(c.Request.Context(), tenantID))
		c.Next()
	}
}
