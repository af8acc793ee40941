package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pawmeds/internal/model"
)

type administrationRepository struct {
	db *sqlx.DB
}

func NewAdministrationRepository(db *sqlx.DB) AdministrationRepository {
	return &administrationRepository{db: db}
}

// Create inserts an administration record and fills ID and RecordedAt.
func (r *administrationRepository) Create(ctx context.Context, admin *model.Administration) error {
	query := `
		INSERT INTO administrations (regimen_id, animal_id, recorded_by, scheduled_for, notes, cosigner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, recorded_at
	`
	err := r.db.QueryRowContext(ctx, query,
		admin.RegimenID, admin.AnimalID, admin.RecordedBy,
		admin.ScheduledFor, admin.Notes, admin.CosignerID,
	).Scan(&admin.ID, &admin.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert administration: %w", err)
	}
	return nil
}

// Latest returns the most recent administration for a regimen. The interval
// calculator anchors its occurrence grid on this record.
func (r *administrationRepository) Latest(ctx context.Context, regimenID int64) (*model.Administration, error) {
	query := `
		SELECT id, regimen_id, animal_id, recorded_by, scheduled_for, recorded_at, notes, cosigner_id, cosigned_at
		FROM administrations
		WHERE regimen_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	var admin model.Administration
	err := r.db.GetContext(ctx, &admin, query, regimenID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest administration: %w", err)
	}
	return &admin, nil
}

// ListBetween returns administrations whose scheduled_for lies in [from, to].
func (r *administrationRepository) ListBetween(ctx context.Context, regimenID int64, from, to time.Time) ([]model.Administration, error) {
	query := `
		SELECT id, regimen_id, animal_id, recorded_by, scheduled_for, recorded_at, notes, cosigner_id, cosigned_at
		FROM administrations
		WHERE regimen_id = $1
		  AND scheduled_for BETWEEN $2 AND $3
		ORDER BY scheduled_for
	`
	var admins []model.Administration
	err := r.db.SelectContext(ctx, &admins, query, regimenID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list administrations: %w", err)
	}
	return admins, nil
}
