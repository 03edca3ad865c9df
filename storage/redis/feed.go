package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/paykit/entitlement"
)

// feedMessage is the wire shape published for each record mutation.
type feedMessage struct {
	Events          []string  `json:"events"`
	ID              string    `json:"id"`
	Subject         string    `json:"subject"`
	Status          string    `json:"status"`
	PlanID          string    `json:"plan_id,omitempty"`
	PaymentPlatform string    `json:"payment_platform,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Feed is a redis pub/sub entitlement.RealtimeFeed. Writers publish one
// message per mutation on "<prefix><scope>"; subscribers receive them on
// a dedicated goroutine until unsubscribed.
type Feed struct {
	rdb   *redis.Client
	keyNS string
	log   logrus.FieldLogger
}

// NewFeed creates a feed with the given channel prefix (default
// "paykit:feed:").
func NewFeed(rdb *redis.Client, keyPrefix string, log logrus.FieldLogger) *Feed {
	if keyPrefix == "" {
		keyPrefix = "paykit:feed:"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Feed{rdb: rdb, keyNS: keyPrefix, log: log}
}

func (f *Feed) channel(scope string) string { return f.keyNS + scope }

// Publish announces a record mutation on the scope's channel. events name
// the mutation kinds, e.g. "records.entitlement_records.create".
func (f *Feed) Publish(ctx context.Context, scope string, events []string, rec entitlement.Record) error {
	msg := feedMessage{
		Events:          events,
		ID:              rec.ID,
		Subject:         rec.Subject,
		Status:          string(rec.Status),
		PlanID:          rec.PlanID,
		PaymentPlatform: rec.PaymentPlatform,
		Notes:           rec.Notes,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, f.channel(scope), b).Err()
}

// Subscribe delivers decoded mutations for scope to onEvent until the
// returned unsubscribe func runs. Malformed messages are logged and
// skipped.
func (f *Feed) Subscribe(ctx context.Context, scope string, onEvent func(entitlement.FeedEvent)) (func(), error) {
	sub := f.rdb.Subscribe(ctx, f.channel(scope))
	// Confirm the subscription before returning so no mutation published
	// after Subscribe returns can be missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	go func() {
		for m := range sub.Channel() {
			var msg feedMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				f.log.WithError(err).Warn("feed message dropped, bad payload")
				continue
			}
			onEvent(entitlement.FeedEvent{
				Events: msg.Events,
				Payload: entitlement.Record{
					ID:              msg.ID,
					Subject:         msg.Subject,
					Status:          entitlement.ParseStatus(msg.Status),
					PlanID:          msg.PlanID,
					PaymentPlatform: msg.PaymentPlatform,
					Notes:           msg.Notes,
					CreatedAt:       msg.CreatedAt,
					UpdatedAt:       msg.UpdatedAt,
				},
			})
		}
	}()

	return func() { _ = sub.Close() }, nil
}
