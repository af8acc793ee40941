package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pawmeds/internal/model"
)

type regimenRepository struct {
	db *sqlx.DB
}

func NewRegimenRepository(db *sqlx.DB) RegimenRepository {
	return &regimenRepository{db: db}
}

// ListActiveSchedules builds the calculator's read model. One row per active
// regimen per household member who receives reminders; lead time and the
// enabled flag come from per-user notification preferences, with defaults
// when the user never saved preferences.
func (r *regimenRepository) ListActiveSchedules(ctx context.Context) ([]model.RegimenSchedule, error) {
	query := `
		SELECT r.id AS regimen_id,
		       r.animal_id,
		       a.household_id,
		       hm.user_id,
		       a.name AS animal_name,
		       a.timezone AS animal_timezone,
		       r.medication_name,
		       r.dose,
		       r.schedule_type,
		       r.times,
		       COALESCE(r.interval_hours, 0) AS interval_hours,
		       r.start_date,
		       r.end_date,
		       COALESCE(np.lead_time_minutes, 15) AS lead_time_minutes,
		       COALESCE(np.enabled, true) AS notifications_enabled
		FROM regimens r
		JOIN animals a ON a.id = r.animal_id
		JOIN household_members hm ON hm.household_id = a.household_id AND hm.receives_reminders
		LEFT JOIN notification_preferences np
		       ON np.user_id = hm.user_id AND np.household_id = a.household_id
		WHERE r.active
		  AND r.start_date <= NOW()
		  AND (r.end_date IS NULL OR r.end_date >= NOW())
		ORDER BY r.id, hm.user_id
	`
	var schedules []model.RegimenSchedule
	err := r.db.SelectContext(ctx, &schedules, query)
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	return schedules, nil
}

// GetScheduleInfo returns one regimen's schedule fields without the caregiver
// join. The UserID field is left zero.
func (r *regimenRepository) GetScheduleInfo(ctx context.Context, regimenID int64) (*model.RegimenSchedule, error) {
	query := `
		SELECT r.id AS regimen_id,
		       r.animal_id,
		       a.household_id,
		       0::bigint AS user_id,
		       a.name AS animal_name,
		       a.timezone AS animal_timezone,
		       r.medication_name,
		       r.dose,
		       r.schedule_type,
		       r.times,
		       COALESCE(r.interval_hours, 0) AS interval_hours,
		       r.start_date,
		       r.end_date,
		       15 AS lead_time_minutes,
		       true AS notifications_enabled
		FROM regimens r
		JOIN animals a ON a.id = r.animal_id
		WHERE r.id = $1
	`
	var schedule model.RegimenSchedule
	err := r.db.GetContext(ctx, &schedule, query, regimenID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule info: %w", err)
	}
	return &schedule, nil
}
