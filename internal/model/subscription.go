package model

import (
	"time"
)

// PushSubscriptionRecord is one browser/device push endpoint registered by a
// caregiver. Rows are created by the client subscription flow; this subsystem
// only reads active rows, bumps LastUsed on successful delivery, and flips
// IsActive off when the push service reports the subscription gone.
type PushSubscriptionRecord struct {
	ID         int64      `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"-"`
	Endpoint   string     `db:"endpoint" json:"-"` // push service URL, treated as a secret
	P256dhKey  string     `db:"p256dh_key" json:"-"`
	AuthKey    string     `db:"auth_key" json:"-"`
	DeviceName string     `db:"device_name" json:"device_name,omitempty"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	LastUsed   *time.Time `db:"last_used" json:"last_used,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// RegisterSubscriptionRequest is the request body for registering a push
// subscription. The fields come straight from the browser's
// PushSubscription.toJSON().
type RegisterSubscriptionRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dhKey  string `json:"p256dh_key"`
	AuthKey    string `json:"auth_key"`
	DeviceName string `json:"device_name,omitempty"`
}

// RemoveSubscriptionRequest is the request body for unsubscribing a device.
type RemoveSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
}
