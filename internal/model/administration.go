package model

import (
	"time"
)

// Administration is one recorded medication event. ScheduledFor links the
// record to the occurrence it satisfies; a nil ScheduledFor means an
// unplanned (PRN) dose. CosignerID names a second caregiver asked to confirm
// the record.
type Administration struct {
	ID           int64      `db:"id" json:"id"`
	RegimenID    int64      `db:"regimen_id" json:"regimen_id"`
	AnimalID     int64      `db:"animal_id" json:"animal_id"`
	RecordedBy   int64      `db:"recorded_by" json:"recorded_by"`
	ScheduledFor *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	RecordedAt   time.Time  `db:"recorded_at" json:"recorded_at"`
	Notes        string     `db:"notes" json:"notes,omitempty"`
	CosignerID   *int64     `db:"cosigner_id" json:"cosigner_id,omitempty"`
	CosignedAt   *time.Time `db:"cosigned_at" json:"cosigned_at,omitempty"`
}

// RecordAdministrationRequest is the request body for recording a dose.
type RecordAdministrationRequest struct {
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CosignerID   *int64     `json:"cosigner_id,omitempty"`
}
