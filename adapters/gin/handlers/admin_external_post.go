package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/open-rails/paykit/adapters/ginutil"
	"github.com/open-rails/paykit/entitlement"
)

type externalRequest struct {
	Subject         string `json:"subject" binding:"required"`
	PaymentProvider string `json:"payment_provider" binding:"required"`
	PlanID          string `json:"plan_id"`
	IsActive        bool   `json:"is_active"`
	Notes           string `json:"notes"`
}

// HandleAdminExternalPOST records a subscription paid for on an alternate
// provider (bank transfer, app-store family plan, reseller).
func HandleAdminExternalPOST(svc *entitlement.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req externalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if !ginutil.Allow(c, rl, ginutil.RLAdminOverride, c.ClientIP()) {
			ginutil.TooMany(c)
			return
		}
		res := svc.Admin().SetExternalSubscription(c.Request.Context(), req.Subject, entitlement.ExternalOpts{
			PaymentProvider: req.PaymentProvider,
			PlanID:          req.PlanID,
			IsActive:        req.IsActive,
			Notes:           req.Notes,
		})
		overrideJSON(c, res)
	}
}
