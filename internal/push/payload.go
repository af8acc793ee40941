package push

import (
	"fmt"
	"time"

	"pawmeds/internal/model"
)

// Urgency levels understood by push services (RFC 8030).
const (
	UrgencyVeryLow = "very-low"
	UrgencyLow     = "low"
	UrgencyNormal  = "normal"
	UrgencyHigh    = "high"
)

// Payload is the wire contract the client service worker consumes. The tag
// field drives OS-level notification replacement: repeated reminders for the
// same regimen collapse so only the latest shows.
type Payload struct {
	Title              string                 `json:"title"`
	Body               string                 `json:"body"`
	Icon               string                 `json:"icon,omitempty"`
	Badge              string                 `json:"badge,omitempty"`
	Tag                string                 `json:"tag,omitempty"`
	Data               map[string]interface{} `json:"data,omitempty"`
	Actions            []Action               `json:"actions,omitempty"`
	RequireInteraction bool                   `json:"requireInteraction,omitempty"`
	Silent             bool                   `json:"silent,omitempty"`
	Timestamp          int64                  `json:"timestamp"`
}

// Action is a button on the notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Options are per-delivery parameters handed to the push service. Topic
// mirrors Tag on the transport side: the push service itself collapses
// undelivered notifications sharing a topic.
type Options struct {
	TTL     int // seconds the push service may hold an undelivered message
	Urgency string
	Topic   string
}

const defaultIcon = "/icons/pill-192.png"

// BuildMedicationReminder composes the upcoming-dose reminder payload.
func BuildMedicationReminder(dose model.ScheduledDose) (Payload, Options) {
	tag := regimenTag(dose.RegimenID)
	return Payload{
			Title: fmt.Sprintf("Medication reminder: %s", dose.AnimalName),
			Body: fmt.Sprintf("%s (%s) is due at %s",
				dose.MedicationName, dose.Dose, formatLocalTime(dose.ScheduledTime, dose.Timezone)),
			Icon: defaultIcon,
			Tag:  tag,
			Data: map[string]interface{}{
				"type":           model.NotificationTypeMedicationReminder,
				"regimen_id":     dose.RegimenID,
				"animal_id":      dose.AnimalID,
				"scheduled_time": dose.ScheduledTime.Format(time.RFC3339),
			},
			Actions: []Action{
				{Action: "record", Title: "Mark as given"},
				{Action: "snooze", Title: "Remind me later"},
			},
			Timestamp: time.Now().UnixMilli(),
		}, Options{
			TTL:     1800,
			Urgency: UrgencyNormal,
			Topic:   tag,
		}
}

// BuildMissedDoseAlert composes the overdue-dose alert. It requires
// interaction: an overdue medication should not quietly time out of the
// notification tray.
func BuildMissedDoseAlert(missed model.MissedDose) (Payload, Options) {
	tag := regimenTag(missed.RegimenID)
	return Payload{
			Title: fmt.Sprintf("Missed dose: %s", missed.AnimalName),
			Body: fmt.Sprintf("%s (%s) was due %s ago",
				missed.MedicationName, missed.Dose, formatOverdue(missed.MinutesOverdue)),
			Icon: defaultIcon,
			Tag:  tag,
			Data: map[string]interface{}{
				"type":            model.NotificationTypeMissedDose,
				"regimen_id":      missed.RegimenID,
				"animal_id":       missed.AnimalID,
				"scheduled_time":  missed.ScheduledTime.Format(time.RFC3339),
				"minutes_overdue": missed.MinutesOverdue,
			},
			Actions: []Action{
				{Action: "record", Title: "Record dose"},
			},
			RequireInteraction: true,
			Timestamp:          time.Now().UnixMilli(),
		}, Options{
			TTL:     3600,
			Urgency: UrgencyHigh,
			Topic:   tag,
		}
}

// BuildLowInventoryWarning composes the daily stock warning.
func BuildLowInventoryWarning(alert model.InventoryAlert) (Payload, Options) {
	tag := fmt.Sprintf("inventory-%d-%s", alert.AnimalID, alert.MedicationName)
	return Payload{
			Title: "Medication running low",
			Body: fmt.Sprintf("%s for %s: %d doses left",
				alert.MedicationName, alert.AnimalName, alert.RemainingDoses),
			Icon: defaultIcon,
			Tag:  tag,
			Data: map[string]interface{}{
				"type":            model.NotificationTypeLowInventory,
				"animal_id":       alert.AnimalID,
				"medication_name": alert.MedicationName,
				"remaining_doses": alert.RemainingDoses,
			},
			Timestamp: time.Now().UnixMilli(),
		}, Options{
			TTL:     86400,
			Urgency: UrgencyLow,
			Topic:   tag,
		}
}

// BuildCosignRequest composes the co-signature request sent to a second
// caregiver after a controlled medication was recorded.
func BuildCosignRequest(animalName, medicationName, recordedByName string, administrationID int64) (Payload, Options) {
	tag := fmt.Sprintf("cosign-%d", administrationID)
	return Payload{
			Title: "Co-signature requested",
			Body: fmt.Sprintf("%s recorded %s for %s and asked you to co-sign",
				recordedByName, medicationName, animalName),
			Icon: defaultIcon,
			Tag:  tag,
			Data: map[string]interface{}{
				"type":              model.NotificationTypeCosignRequest,
				"administration_id": administrationID,
			},
			Actions: []Action{
				{Action: "cosign", Title: "Review and co-sign"},
			},
			RequireInteraction: true,
			Timestamp:          time.Now().UnixMilli(),
		}, Options{
			TTL:     3600,
			Urgency: UrgencyHigh,
			Topic:   tag,
		}
}

// BuildSystemAnnouncement composes a generic informational notification.
func BuildSystemAnnouncement(title, body string) (Payload, Options) {
	return Payload{
			Title: title,
			Body:  body,
			Icon:  defaultIcon,
			Data: map[string]interface{}{
				"type": model.NotificationTypeAnnouncement,
			},
			Timestamp: time.Now().UnixMilli(),
		}, Options{
			TTL:     86400,
			Urgency: UrgencyNormal,
		}
}

func regimenTag(regimenID int64) string {
	return fmt.Sprintf("medication-%d", regimenID)
}

// formatLocalTime renders an instant in the animal's zone. Falls back to UTC
// when the zone fails to load; the payload builder must not error.
func formatLocalTime(t time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return t.UTC().Format("3:04 PM MST")
	}
	return t.In(loc).Format("3:04 PM")
}

func formatOverdue(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	rem := minutes % 60
	if rem == 0 {
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, rem)
}
