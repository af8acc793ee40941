package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pawmeds/internal/model"
)

type pushSubscriptionRepository struct {
	db *sqlx.DB
}

func NewPushSubscriptionRepository(db *sqlx.DB) PushSubscriptionRepository {
	return &pushSubscriptionRepository{db: db}
}

// Upsert registers a subscription. Endpoints are globally unique, so if the
// endpoint already exists it is reassigned to the current user and
// reactivated (same browser profile, new login).
func (r *pushSubscriptionRepository) Upsert(ctx context.Context, userID int64, req model.RegisterSubscriptionRequest) error {
	query := `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key, device_name, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		ON CONFLICT (endpoint) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			p256dh_key = EXCLUDED.p256dh_key,
			auth_key = EXCLUDED.auth_key,
			device_name = EXCLUDED.device_name,
			is_active = true
	`
	_, err := r.db.ExecContext(ctx, query, userID, req.Endpoint, req.P256dhKey, req.AuthKey, req.DeviceName)
	if err != nil {
		return fmt.Errorf("upsert push subscription: %w", err)
	}
	return nil
}

// GetActiveByUserID returns all active subscriptions for a user.
func (r *pushSubscriptionRepository) GetActiveByUserID(ctx context.Context, userID int64) ([]model.PushSubscriptionRecord, error) {
	query := `
		SELECT id, user_id, endpoint, p256dh_key, auth_key, device_name, is_active, last_used, created_at
		FROM push_subscriptions
		WHERE user_id = $1 AND is_active
		ORDER BY last_used DESC NULLS LAST
	`
	var subs []model.PushSubscriptionRecord
	err := r.db.SelectContext(ctx, &subs, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get push subscriptions: %w", err)
	}
	return subs, nil
}

// Deactivate marks a subscription inactive. Done when the push service
// reports 404/410 for the endpoint; the row is kept for audit.
func (r *pushSubscriptionRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE push_subscriptions SET is_active = false WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate push subscription: %w", err)
	}
	return nil
}

// TouchLastUsed bumps last_used after a successful delivery.
func (r *pushSubscriptionRepository) TouchLastUsed(ctx context.Context, id int64) error {
	query := `UPDATE push_subscriptions SET last_used = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("touch push subscription: %w", err)
	}
	return nil
}

// DeleteByEndpoint removes a user's subscription (client-side unsubscribe).
func (r *pushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, userID int64, endpoint string) error {
	query := `DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`
	_, err := r.db.ExecContext(ctx, query, userID, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}
