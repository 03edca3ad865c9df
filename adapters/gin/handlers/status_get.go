package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/paykit/adapters/ginutil"
	"github.com/open-rails/paykit/core"
	"github.com/open-rails/paykit/entitlement"
)

// statusView is the JSON shape feature-gating clients consume.
type statusView struct {
	IsPremium          bool   `json:"is_premium"`
	IsFreeTrial        bool   `json:"is_free_trial"`
	SubscriptionStatus string `json:"subscription_status"`
	TimeRemainingDays  int    `json:"time_remaining_days,omitempty"`
	BillingActive      bool   `json:"billing_active,omitempty"`
	Limits             struct {
		MaxCompanies    int `json:"max_companies"`
		MaxCashbooks    int `json:"max_cashbooks"`
		MaxTransactions int `json:"max_transactions"`
	} `json:"limits"`
}

func viewOf(s entitlement.ResolvedStatus) statusView {
	v := statusView{
		IsPremium:          s.IsPremium,
		IsFreeTrial:        s.IsFreeTrial,
		SubscriptionStatus: string(s.SubscriptionStatus),
		TimeRemainingDays:  s.TimeRemainingDays,
		BillingActive:      s.BillingActive,
	}
	v.Limits.MaxCompanies = s.Limits.MaxCompanies
	v.Limits.MaxCashbooks = s.Limits.MaxCashbooks
	v.Limits.MaxTransactions = s.Limits.MaxTransactions
	return v
}

// HandleStatusGET returns the subject's cached entitlement status.
func HandleStatusGET(svc *entitlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.Query("subject")
		if !core.ValidSubject(subject) {
			ginutil.BadRequest(c, "invalid_subject")
			return
		}
		status := svc.GetUserSubscriptionStatus(c.Request.Context(), subject)
		c.JSON(http.StatusOK, viewOf(status))
	}
}
