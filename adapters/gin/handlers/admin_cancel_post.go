package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/open-rails/paykit/adapters/ginutil"
	"github.com/open-rails/paykit/entitlement"
)

// HandleAdminCancelPOST marks the subject cancelled (kept distinct from
// revoke so support can tell churn from clawbacks).
func HandleAdminCancelPOST(svc *entitlement.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req revokeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if !ginutil.Allow(c, rl, ginutil.RLAdminOverride, c.ClientIP()) {
			ginutil.TooMany(c)
			return
		}
		res := svc.Admin().CancelSubscription(c.Request.Context(), req.Subject, entitlement.RevokeOpts{Notes: req.Notes})
		overrideJSON(c, res)
	}
}
