package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pawmeds/internal/model"
)

type notificationQueueRepository struct {
	db *sqlx.DB
}

func NewNotificationQueueRepository(db *sqlx.DB) NotificationQueueRepository {
	return &notificationQueueRepository{db: db}
}

// Insert appends one ledger row.
func (r *notificationQueueRepository) Insert(ctx context.Context, entry *model.NotificationQueueEntry) error {
	query := `
		INSERT INTO notification_queue (household_id, user_id, type, title, body, scheduled_for, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.HouseholdID, entry.UserID, entry.Type,
		entry.Title, entry.Body, entry.ScheduledFor, entry.SentAt,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification queue entry: %w", err)
	}
	return nil
}

// HasRecentEntry is the dedup check for the reminder sweep. The check and the
// later Insert are not one transaction, so two scheduler instances sharing a
// store could double-notify in a narrow window; single-instance deployment is
// assumed.
func (r *notificationQueueRepository) HasRecentEntry(ctx context.Context, userID int64, notifType string, scheduledFor time.Time, tolerance time.Duration) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notification_queue
			WHERE user_id = $1
			  AND type = $2
			  AND scheduled_for BETWEEN $3 AND $4
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query,
		userID, notifType, scheduledFor.Add(-tolerance), scheduledFor.Add(tolerance))
	if err != nil {
		return false, fmt.Errorf("check notification ledger: %w", err)
	}
	return exists, nil
}

// DeleteOlderThan trims the ledger. Called by the daily cleanup job.
func (r *notificationQueueRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notification_queue WHERE created_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old notification queue entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}
