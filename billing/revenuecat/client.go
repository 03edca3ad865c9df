// Package revenuecat implements entitlement.BillingClient over the
// RevenueCat REST API. The provider is read-only here: purchases and
// restores happen in the client apps, and this side only observes their
// result for syncing into the durable record store.
package revenuecat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/open-rails/paykit/core"
	"github.com/open-rails/paykit/entitlement"
)

const defaultBaseURL = "https://api.revenuecat.com/v1"

// Client talks to the RevenueCat subscribers API with a bearer API key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        logrus.FieldLogger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient builds a client. An empty apiKey yields an unconfigured client
// whose Snapshot fails with KindNotConfigured — the engine treats that as a
// clean "no billing signal", never a crash.
func NewClient(apiKey string, log logrus.FieldLogger, opts ...Option) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Client{apiKey: strings.TrimSpace(apiKey), baseURL: defaultBaseURL, log: log}
	if c.apiKey != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.apiKey, TokenType: "Bearer"})
		c.httpClient = oauth2.NewClient(context.Background(), src)
		c.httpClient.Timeout = 15 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Platform names the provider for PaymentPlatform on synced records.
func (c *Client) Platform() string { return "revenuecat" }

// subscriberDoc is the slice of the GET /subscribers response we read.
type subscriberDoc struct {
	Subscriber struct {
		OriginalAppUserID string `json:"original_app_user_id"`
		Entitlements      map[string]struct {
			ExpiresDate *time.Time `json:"expires_date"`
		} `json:"entitlements"`
	} `json:"subscriber"`
}

// Snapshot fetches the provider's current entitlement view for subject
// (used as the app user id).
func (c *Client) Snapshot(ctx context.Context, subject string) (entitlement.BillingSnapshot, error) {
	if !c.Configured() {
		return entitlement.BillingSnapshot{},
			entitlement.NewFault(entitlement.KindNotConfigured, "billing.snapshot", errors.New("missing api key"))
	}
	subject = core.NormalizeSubject(subject)

	endpoint := fmt.Sprintf("%s/subscribers/%s", c.baseURL, url.PathEscape(subject))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entitlement.BillingSnapshot{}, entitlement.NewFault(entitlement.KindTransport, "billing.snapshot", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entitlement.BillingSnapshot{}, entitlement.NewFault(entitlement.KindTransport, "billing.snapshot", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return entitlement.BillingSnapshot{}, entitlement.NewFault(entitlement.KindTransport, "billing.snapshot",
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	var doc subscriberDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return entitlement.BillingSnapshot{}, entitlement.NewFault(entitlement.KindTransport, "billing.snapshot", err)
	}

	snap := entitlement.BillingSnapshot{OriginalUserID: doc.Subscriber.OriginalAppUserID}
	now := time.Now()
	for name, ent := range doc.Subscriber.Entitlements {
		if ent.ExpiresDate == nil || ent.ExpiresDate.After(now) {
			snap.ActiveEntitlements = append(snap.ActiveEntitlements, name)
		}
	}
	snap.HasActiveSubscription = len(snap.ActiveEntitlements) > 0
	return snap, nil
}
