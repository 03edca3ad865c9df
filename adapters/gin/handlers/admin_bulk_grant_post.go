package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/paykit/adapters/ginutil"
	"github.com/open-rails/paykit/entitlement"
)

type bulkGrantRequest struct {
	Subjects []string `json:"subjects" binding:"required,min=1"`
	PlanID   string   `json:"plan_id"`
	Notes    string   `json:"notes"`
	Source   string   `json:"source"`
}

type bulkGrantResponse struct {
	TotalProcessed int                `json:"total_processed"`
	Successful     int                `json:"successful"`
	Failed         int                `json:"failed"`
	Results        []overrideResponse `json:"results"`
}

// HandleAdminBulkGrantPOST grants premium to a list of subjects, reporting
// per-subject outcomes; individual failures never abort the batch.
func HandleAdminBulkGrantPOST(svc *entitlement.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulkGrantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if !ginutil.Allow(c, rl, ginutil.RLAdminBulk, c.ClientIP()) {
			ginutil.TooMany(c)
			return
		}
		bulk := svc.Admin().BulkGrantPremium(c.Request.Context(), req.Subjects, entitlement.GrantOpts{
			PlanID: req.PlanID,
			Notes:  req.Notes,
			Source: req.Source,
		})
		out := bulkGrantResponse{
			TotalProcessed: bulk.TotalProcessed,
			Successful:     bulk.Successful,
			Failed:         bulk.Failed,
			Results:        make([]overrideResponse, 0, len(bulk.Results)),
		}
		for _, r := range bulk.Results {
			out.Results = append(out.Results, overrideResponse{Success: r.OK, Subject: r.Subject, Message: r.Message})
		}
		c.JSON(http.StatusOK, out)
	}
}
