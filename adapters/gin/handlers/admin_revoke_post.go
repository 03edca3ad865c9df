package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/open-rails/paykit/adapters/ginutil"
	"github.com/open-rails/paykit/entitlement"
)

type revokeRequest struct {
	Subject string `json:"subject" binding:"required"`
	Notes   string `json:"notes"`
}

// HandleAdminRevokePOST marks the subject expired.
func HandleAdminRevokePOST(svc *entitlement.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
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
		res := svc.Admin().RevokePremium(c.Request.Context(), req.Subject, entitlement.RevokeOpts{Notes: req.Notes})
		overrideJSON(c, res)
	}
}
