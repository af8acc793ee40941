package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types for the notification stream
const (
	EventDoseRecorded    = "dose_recorded"
	EventCosignRequested = "cosign_requested"
)

// Stream names
const (
	StreamNotifications = "stream:notifications"
)

// Consumer group name for notification workers
const (
	ConsumerGroupNotifications = "notification_workers"
)

// NotificationEvent represents an event published to the notification stream.
// All household notification events share this structure.
type NotificationEvent struct {
	Type      string `json:"type"`       // EventDoseRecorded, EventCosignRequested
	Timestamp int64  `json:"timestamp"`  // Unix timestamp when event occurred
	EventID   string `json:"event_id"`   // Unique ID for tracing across publisher and workers

	HouseholdID      int64  `json:"household_id"`
	RegimenID        int64  `json:"regimen_id"`
	AnimalID         int64  `json:"animal_id"`
	AdministrationID int64  `json:"administration_id"`
	RecordedBy       int64  `json:"recorded_by"`
	AnimalName       string `json:"animal_name"`
	MedicationName   string `json:"medication_name"`
	RecordedByName   string `json:"recorded_by_name"`

	// Cosign event only
	CosignerID int64 `json:"cosigner_id,omitempty"`
}

// NewDoseRecordedEvent creates an event for when a caregiver records an
// administration. Worker will announce it to the rest of the household.
func NewDoseRecordedEvent(householdID, regimenID, animalID, administrationID, recordedBy int64, animalName, medicationName, recordedByName string) NotificationEvent {
	return NotificationEvent{
		Type:             EventDoseRecorded,
		Timestamp:        time.Now().Unix(),
		EventID:          uuid.NewString(),
		HouseholdID:      householdID,
		RegimenID:        regimenID,
		AnimalID:         animalID,
		AdministrationID: administrationID,
		RecordedBy:       recordedBy,
		AnimalName:       animalName,
		MedicationName:   medicationName,
		RecordedByName:   recordedByName,
	}
}

// NewCosignRequestedEvent creates an event for when an administration needs a
// second caregiver's confirmation. Worker will push a cosign request to the
// named cosigner.
func NewCosignRequestedEvent(householdID, regimenID, animalID, administrationID, recordedBy, cosignerID int64, animalName, medicationName, recordedByName string) NotificationEvent {
	return NotificationEvent{
		Type:             EventCosignRequested,
		Timestamp:        time.Now().Unix(),
		EventID:          uuid.NewString(),
		HouseholdID:      householdID,
		RegimenID:        regimenID,
		AnimalID:         animalID,
		AdministrationID: administrationID,
		RecordedBy:       recordedBy,
		CosignerID:       cosignerID,
		AnimalName:       animalName,
		MedicationName:   medicationName,
		RecordedByName:   recordedByName,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e NotificationEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseNotificationEvent parses a NotificationEvent from Redis stream message values.
func ParseNotificationEvent(values map[string]interface{}) (NotificationEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return NotificationEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event NotificationEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return NotificationEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
