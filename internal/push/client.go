package push

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"pawmeds/internal/model"
)

// DeliveryStatus classifies the outcome of one delivery attempt.
type DeliveryStatus string

const (
	StatusOK    DeliveryStatus = "ok"
	StatusGone  DeliveryStatus = "gone" // subscription permanently invalid
	StatusError DeliveryStatus = "error"
)

// Deliverer is the delivery primitive: one payload to one subscription.
type Deliverer interface {
	Deliver(ctx context.Context, payload []byte, sub model.PushSubscriptionRecord, opts Options) (DeliveryStatus, error)
}

// Client sends web-push messages signed with the process's VAPID key pair.
type Client struct {
	publicKey  string
	privateKey string
	subscriber string // contact URI the push service may use, e.g. "mailto:ops@..."
}

// NewClient returns a configured client, or nil when the VAPID key pair is
// absent. A nil client puts the dispatcher into disabled mode instead of
// crashing the scheduler in environments without credentials.
func NewClient(publicKey, privateKey, subscriber string) *Client {
	if publicKey == "" || privateKey == "" {
		log.Println("[Push] VAPID keys not configured, push delivery disabled")
		return nil
	}
	return &Client{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

// PublicKey exposes the VAPID public key for the client subscription flow.
func (c *Client) PublicKey() string {
	return c.publicKey
}

// Deliver sends one encrypted payload to one subscription endpoint. 404 and
// 410 from the push service mean the subscription is permanently gone; any
// other non-2xx status is a transient delivery error.
func (c *Client) Deliver(ctx context.Context, payload []byte, sub model.PushSubscriptionRecord, opts Options) (DeliveryStatus, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             opts.TTL,
		Urgency:         webpush.Urgency(opts.Urgency),
		Topic:           opts.Topic,
	})
	if err != nil {
		return StatusError, fmt.Errorf("send web push: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return StatusGone, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return StatusOK, nil
	default:
		return StatusError, fmt.Errorf("push service returned %d", resp.StatusCode)
	}
}
