package model

import (
	"time"
)

// Notification types. These discriminate both ledger rows and the data.type
// field of push payloads, so the client can route them.
const (
	NotificationTypeMedicationReminder = "medication_reminder"
	NotificationTypeMissedDose         = "missed_dose"
	NotificationTypeLowInventory       = "low_inventory"
	NotificationTypeCosignRequest      = "cosign_request"
	NotificationTypeAnnouncement       = "announcement"
)

// NotificationQueueEntry is one row of the notification ledger: an
// append-only record of every notification attempt that actually fired.
// The reminder sweep also uses it as its dedup ledger, which is what makes
// dedup survive process restarts. A daily cleanup job trims old rows.
type NotificationQueueEntry struct {
	ID           int64      `db:"id" json:"id"`
	HouseholdID  int64      `db:"household_id" json:"household_id"`
	UserID       int64      `db:"user_id" json:"user_id"`
	Type         string     `db:"type" json:"type"`
	Title        string     `db:"title" json:"title"`
	Body         string     `db:"body" json:"body"`
	ScheduledFor time.Time  `db:"scheduled_for" json:"scheduled_for"` // the dose occurrence, not the send time
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// InventoryAlert is a read row for the daily low-inventory sweep: one per
// caregiver per medication whose remaining stock has crossed its reorder
// threshold. Depletion math is maintained by the inventory flow, not here.
type InventoryAlert struct {
	HouseholdID      int64  `db:"household_id" json:"household_id"`
	UserID           int64  `db:"user_id" json:"user_id"`
	AnimalID         int64  `db:"animal_id" json:"animal_id"`
	AnimalName       string `db:"animal_name" json:"animal_name"`
	MedicationName   string `db:"medication_name" json:"medication_name"`
	RemainingDoses   int    `db:"remaining_doses" json:"remaining_doses"`
	ReorderThreshold int    `db:"reorder_threshold" json:"reorder_threshold"`
}
