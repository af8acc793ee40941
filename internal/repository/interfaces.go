package repository

import (
	"context"
	"time"

	"pawmeds/internal/model"
)

type RegimenRepository interface {
	// ListActiveSchedules returns the regimen read model: one row per
	// active regimen per caregiver with notifications enabled.
	ListActiveSchedules(ctx context.Context) ([]model.RegimenSchedule, error)
	// GetScheduleInfo returns a single regimen's schedule fields without a
	// caregiver join (UserID is zero). Used to enrich queue events.
	GetScheduleInfo(ctx context.Context, regimenID int64) (*model.RegimenSchedule, error)
}

type AdministrationRepository interface {
	// Create inserts an administration record and fills ID and RecordedAt.
	Create(ctx context.Context, admin *model.Administration) error
	// Latest returns the most recent administration for a regimen, or nil
	// if the regimen has no history.
	Latest(ctx context.Context, regimenID int64) (*model.Administration, error)
	// ListBetween returns administrations whose scheduled_for falls in
	// [from, to]. Used for missed-dose matching.
	ListBetween(ctx context.Context, regimenID int64, from, to time.Time) ([]model.Administration, error)
}

type NotificationQueueRepository interface {
	// Insert appends one ledger row for a fired notification.
	Insert(ctx context.Context, entry *model.NotificationQueueEntry) error
	// HasRecentEntry reports whether a ledger row of the given type exists
	// for the user with scheduled_for within +/-tolerance of scheduledFor.
	HasRecentEntry(ctx context.Context, userID int64, notifType string, scheduledFor time.Time, tolerance time.Duration) (bool, error)
	// DeleteOlderThan removes ledger rows created before the cutoff and
	// returns how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type PushSubscriptionRepository interface {
	// Upsert registers a subscription, reactivating and reassigning it if
	// the endpoint is already known.
	Upsert(ctx context.Context, userID int64, req model.RegisterSubscriptionRequest) error
	// GetActiveByUserID returns all active subscriptions for a user.
	GetActiveByUserID(ctx context.Context, userID int64) ([]model.PushSubscriptionRecord, error)
	// Deactivate marks one subscription inactive (push service said gone).
	Deactivate(ctx context.Context, id int64) error
	// TouchLastUsed bumps last_used after a successful delivery.
	TouchLastUsed(ctx context.Context, id int64) error
	// DeleteByEndpoint removes a subscription (client unsubscribed).
	DeleteByEndpoint(ctx context.Context, userID int64, endpoint string) error
}

type InventoryRepository interface {
	// ListLowStock returns one alert row per caregiver per medication at or
	// below its reorder threshold.
	ListLowStock(ctx context.Context) ([]model.InventoryAlert, error)
}

type HouseholdRepository interface {
	// ListCaregiverIDs returns the user IDs of household members who
	// receive reminders.
	ListCaregiverIDs(ctx context.Context, householdID int64) ([]int64, error)
	// MemberDisplayName returns a user's display name for notification text.
	MemberDisplayName(ctx context.Context, userID int64) (string, error)
}
