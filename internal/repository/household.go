package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type householdRepository struct {
	db *sqlx.DB
}

func NewHouseholdRepository(db *sqlx.DB) HouseholdRepository {
	return &householdRepository{db: db}
}

// ListCaregiverIDs returns household members who receive reminders. Used by
// the dose-recorded fan-out.
func (r *householdRepository) ListCaregiverIDs(ctx context.Context, householdID int64) ([]int64, error) {
	query := `
		SELECT user_id FROM household_members
		WHERE household_id = $1 AND receives_reminders
	`
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("list caregivers: %w", err)
	}
	return ids, nil
}

// MemberDisplayName returns a user's display name for notification text.
func (r *householdRepository) MemberDisplayName(ctx context.Context, userID int64) (string, error) {
	query := `SELECT COALESCE(display_name, username) FROM users WHERE id = $1`
	var name string
	err := r.db.GetContext(ctx, &name, query, userID)
	if err != nil {
		return "", fmt.Errorf("get member display name: %w", err)
	}
	return name, nil
}
