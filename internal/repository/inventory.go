package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pawmeds/internal/model"
)

type inventoryRepository struct {
	db *sqlx.DB
}

func NewInventoryRepository(db *sqlx.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

// ListLowStock reads precomputed inventory levels; the depletion math itself
// is owned by the inventory flow. One row per caregiver per low medication.
func (r *inventoryRepository) ListLowStock(ctx context.Context) ([]model.InventoryAlert, error) {
	query := `
		SELECT i.household_id,
		       hm.user_id,
		       a.id AS animal_id,
		       a.name AS animal_name,
		       i.medication_name,
		       i.remaining_doses,
		       i.reorder_threshold
		FROM medication_inventory i
		JOIN animals a ON a.id = i.animal_id
		JOIN household_members hm ON hm.household_id = i.household_id AND hm.receives_reminders
		WHERE i.remaining_doses <= i.reorder_threshold
		ORDER BY i.household_id, i.medication_name
	`
	var alerts []model.InventoryAlert
	err := r.db.SelectContext(ctx, &alerts, query)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return alerts, nil
}
