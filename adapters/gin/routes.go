// Package paygin exposes the entitlement engine over gin: status reads for
// feature-gating clients and the privileged override endpoints for the
// backoffice.
package paygin

import (
	"github.com/gin-gonic/gin"

	"github.com/open-rails/paykit/adapters/gin/handlers"
	"github.com/open-rails/paykit/adapters/ginutil"
	"github.com/open-rails/paykit/entitlement"
)

// RegisterRoutes mounts the entitlement endpoints on r. rl may be nil
// (no rate limiting); adminAuth guards everything under /admin.
func RegisterRoutes(r gin.IRouter, svc *entitlement.Service, rl ginutil.RateLimiter, adminAuth gin.HandlerFunc) {
	r.GET("/entitlement/status", handlers.HandleStatusGET(svc))
	r.POST("/entitlement/status/refresh", handlers.HandleStatusRefreshPOST(svc, rl))

	admin := r.Group("/admin/entitlement", adminAuth)
	admin.POST("/grant", handlers.HandleAdminGrantPOST(svc, rl))
	admin.POST("/trial", handlers.HandleAdminTrialPOST(svc, rl))
	admin.POST("/revoke", handlers.HandleAdminRevokePOST(svc, rl))
	admin.POST("/cancel", handlers.HandleAdminCancelPOST(svc, rl))
	admin.POST("/external", handlers.HandleAdminExternalPOST(svc, rl))
	admin.POST("/bulk-grant", handlers.HandleAdminBulkGrantPOST(svc, rl))
}
