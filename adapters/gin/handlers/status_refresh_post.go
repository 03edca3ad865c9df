package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/paykit/adapters/ginutil"
	"github.com/open-rails/paykit/core"
	"github.com/open-rails/paykit/entitlement"
)

// HandleStatusRefreshPOST bypasses the cache TTL for one subject.
// Rate-limited per subject so a misbehaving client cannot hammer the
// record store through the refresh path.
func HandleStatusRefreshPOST(svc *entitlement.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.Query("subject")
		if !core.ValidSubject(subject) {
			ginutil.BadRequest(c, "invalid_subject")
			return
		}
		if !ginutil.Allow(c, rl, ginutil.RLStatusRefresh, core.NormalizeSubject(subject)) {
			ginutil.TooMany(c)
			return
		}
		status := svc.ForceRefreshSubscriptionStatus(c.Request.Context(), subject)
		c.JSON(http.StatusOK, viewOf(status))
	}
}
