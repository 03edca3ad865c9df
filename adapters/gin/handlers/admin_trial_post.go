package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/open-rails/paykit/adapters/ginutil"
	"github.com/open-rails/paykit/entitlement"
)

type trialRequest struct {
	Subject string `json:"subject" binding:"required"`
	Notes   string `json:"notes"`
	Source  string `json:"source"`
}

// HandleAdminTrialPOST starts (or re-marks) a free trial. The trial clock
// stays anchored to the record's original creation time.
func HandleAdminTrialPOST(svc *entitlement.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req trialRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if !ginutil.Allow(c, rl, ginutil.RLAdminOverride, c.ClientIP()) {
			ginutil.TooMany(c)
			return
		}
		res := svc.Admin().StartFreeTrial(c.Request.Context(), req.Subject, entitlement.TrialOpts{
			Notes:  req.Notes,
			Source: req.Source,
		})
		overrideJSON(c, res)
	}
}
