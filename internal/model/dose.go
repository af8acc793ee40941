package model

import (
	"time"
)

// Dose types carried on computed doses.
const (
	DoseTypeScheduled = "scheduled" // fixed or taper wall-clock dose
	DoseTypeInterval  = "interval"  // elapsed-time grid dose
	DoseTypePRN       = "prn"       // as-needed, recorded but never computed
)

// ScheduledDose is a computed occurrence: when a dose is due and when its
// reminder should fire. Doses are derived on demand from regimens and
// administration history and never persisted.
type ScheduledDose struct {
	RegimenID        int64     `json:"regimen_id"`
	AnimalID         int64     `json:"animal_id"`
	HouseholdID      int64     `json:"household_id"`
	UserID           int64     `json:"user_id"`
	AnimalName       string    `json:"animal_name"`
	MedicationName   string    `json:"medication_name"`
	Dose             string    `json:"dose"`
	ScheduledTime    time.Time `json:"scheduled_time"`    // UTC
	NotificationTime time.Time `json:"notification_time"` // ScheduledTime minus the caregiver's lead time
	Timezone         string    `json:"timezone"`
	Type             string    `json:"type"`
}

// MissedDose is a past occurrence with no matching administration record,
// beyond the grace period.
type MissedDose struct {
	ScheduledDose
	MinutesOverdue int `json:"minutes_overdue"`
	// AlreadyNotified is set by the scheduler from the ledger: this dose
	// was alerted on a previous sweep and this is an escalation repeat.
	AlreadyNotified bool `json:"already_notified"`
}

// NotificationSummary aggregates one caregiver's doses over a 24-hour
// horizon in both directions.
type NotificationSummary struct {
	UpcomingCount    int            `json:"upcoming_count"`
	OverdueCount     int            `json:"overdue_count"`
	NextNotification *ScheduledDose `json:"next_notification,omitempty"`
}
