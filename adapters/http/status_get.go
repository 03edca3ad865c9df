// Package payhttp exposes a minimal plain net/http status endpoint for
// hosts not using gin.
package payhttp

import (
	"encoding/json"
	"net/http"

	"github.com/open-rails/paykit/core"
	"github.com/open-rails/paykit/entitlement"
)

// StatusHandler serves the subject's cached entitlement status as JSON.
func StatusHandler(svc *entitlement.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := r.URL.Query().Get("subject")
		if !core.ValidSubject(subject) {
			http.Error(w, `{"error":"invalid_subject"}`, http.StatusBadRequest)
			return
		}
		status := svc.GetUserSubscriptionStatus(r.Context(), subject)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(status)
	})
}
