package model

import (
	"time"

	"github.com/lib/pq"
)

// Schedule types. FIXED and TAPER resolve wall-clock times in the animal's
// zone; INTERVAL runs on an elapsed-time grid anchored to the last
// administration; PRN is as-needed and never generates doses.
const (
	ScheduleFixed    = "FIXED"
	ScheduleInterval = "INTERVAL"
	ScheduleTaper    = "TAPER"
	SchedulePRN      = "PRN"
)

// RegimenSchedule is the calculator's read model: one row per active regimen
// per caregiver who receives reminders. It joins the regimen, its animal and
// the member's notification preferences so the calculator never touches the
// database beyond its two sources.
type RegimenSchedule struct {
	RegimenID      int64  `db:"regimen_id" json:"regimen_id"`
	AnimalID       int64  `db:"animal_id" json:"animal_id"`
	HouseholdID    int64  `db:"household_id" json:"household_id"`
	UserID         int64  `db:"user_id" json:"user_id"`
	AnimalName     string `db:"animal_name" json:"animal_name"`
	AnimalTimezone string `db:"animal_timezone" json:"animal_timezone"` // IANA zone, e.g. "America/New_York"
	MedicationName string `db:"medication_name" json:"medication_name"`
	Dose           string `db:"dose" json:"dose"`

	ScheduleType  string         `db:"schedule_type" json:"schedule_type"`
	Times         pq.StringArray `db:"times" json:"times,omitempty"` // "HH:MM" local times for FIXED/TAPER
	IntervalHours int            `db:"interval_hours" json:"interval_hours,omitempty"`

	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`

	LeadTimeMinutes      int  `db:"lead_time_minutes" json:"lead_time_minutes"`
	NotificationsEnabled bool `db:"notifications_enabled" json:"notifications_enabled"`
}
