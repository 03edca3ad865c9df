package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/paykit/adapters/ginutil"
	"github.com/open-rails/paykit/entitlement"
)

type grantRequest struct {
	Subject string `json:"subject" binding:"required"`
	PlanID  string `json:"plan_id"`
	Notes   string `json:"notes"`
	Source  string `json:"source"`
}

type overrideResponse struct {
	Success bool   `json:"success"`
	Subject string `json:"subject"`
	Message string `json:"message,omitempty"`
}

func overrideJSON(c *gin.Context, res entitlement.OverrideResult) {
	status := http.StatusOK
	if !res.OK {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, overrideResponse{Success: res.OK, Subject: res.Subject, Message: res.Message})
}

// HandleAdminGrantPOST grants premium access regardless of billing state.
func HandleAdminGrantPOST(svc *entitlement.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req grantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if !ginutil.Allow(c, rl, ginutil.RLAdminOverride, c.ClientIP()) {
			ginutil.TooMany(c)
			return
		}
		res := svc.Admin().GrantPremium(c.Request.Context(), req.Subject, entitlement.GrantOpts{
			PlanID: req.PlanID,
			Notes:  req.Notes,
			Source: req.Source,
		})
		overrideJSON(c, res)
	}
}
