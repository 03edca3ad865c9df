// Package ginutil holds the small response and rate-limit helpers shared by
// the gin handlers.
package ginutil

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Rate-limit bucket names for this module's endpoints.
const (
	RLStatusRefresh = "status_refresh"
	RLAdminOverride = "admin_override"
	RLAdminBulk     = "admin_bulk"
)

// RateLimiter is what handlers need from a limiter; both ratelimit/memory
// and ratelimit/redis satisfy it.
type RateLimiter interface {
	Allow(ctx context.Context, bucket, key string) (bool, error)
}

// Allow checks rl for this request and reports whether to proceed. A nil
// limiter always allows; limiter errors fail open (a broken limiter must
// not take the API down) and are left to the limiter's own logging.
func Allow(c *gin.Context, rl RateLimiter, bucket, key string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.Allow(c.Request.Context(), bucket, key)
	if err != nil {
		return true
	}
	return ok
}

func BadRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code})
}

func Unauthorized(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
}

func Forbidden(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code})
}

func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func ServerErr(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code})
}
