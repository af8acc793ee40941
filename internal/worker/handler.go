package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"pawmeds/internal/push"
	"pawmeds/internal/queue"
)

// CaregiverProvider defines the interface for resolving household members.
// This abstracts the repository layer so workers don't depend on DB directly.
type CaregiverProvider interface {
	// ListCaregiverIDs returns user IDs of household members who receive reminders.
	ListCaregiverIDs(ctx context.Context, householdID int64) ([]int64, error)

	// MemberDisplayName returns the display name for a household member.
	MemberDisplayName(ctx context.Context, userID int64) (string, error)
}

// PushSender defines the push operations the worker needs.
type PushSender interface {
	SendCosignRequest(ctx context.Context, cosignerID int64, animalName, medicationName, recordedByName string, administrationID int64) (*push.SendReport, error)
	SendSystemAnnouncement(ctx context.Context, userIDs []int64, title, body string) (*push.SendReport, error)
}

// Handler processes notification events from the queue.
type Handler struct {
	caregivers CaregiverProvider
	sender     PushSender
}

// NewHandler creates a new event handler.
func NewHandler(caregivers CaregiverProvider, sender PushSender) *Handler {
	return &Handler{
		caregivers: caregivers,
		sender:     sender,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.NotificationEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventDoseRecorded:
		err = h.handleDoseRecorded(ctx, event)
	case queue.EventCosignRequested:
		err = h.handleCosignRequested(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s event=%s duration=%v err=%v",
			event.Type, event.EventID, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s event=%s duration=%v",
		event.Type, event.EventID, time.Since(startTime))
	return nil
}

// handleDoseRecorded announces a recorded administration to the rest of the
// household, so other caregivers don't double-dose the animal.
func (h *Handler) handleDoseRecorded(ctx context.Context, event queue.NotificationEvent) error {
	log.Printf("[Worker] DoseRecorded: administration=%d animal=%d recordedBy=%d",
		event.AdministrationID, event.AnimalID, event.RecordedBy)

	caregivers, err := h.caregivers.ListCaregiverIDs(ctx, event.HouseholdID)
	if err != nil {
		return fmt.Errorf("list caregivers: %w", err)
	}

	recordedByName := event.RecordedByName
	if recordedByName == "" {
		if name, err := h.caregivers.MemberDisplayName(ctx, event.RecordedBy); err == nil {
			recordedByName = name
		} else {
			recordedByName = "A caregiver"
		}
	}

	// Exclude whoever recorded the dose; they already know.
	recipients := make([]int64, 0, len(caregivers))
	for _, id := range caregivers {
		if id != event.RecordedBy {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return nil
	}

	title := fmt.Sprintf("%s received %s", event.AnimalName, event.MedicationName)
	body := fmt.Sprintf("%s recorded a dose of %s for %s.",
		recordedByName, event.MedicationName, event.AnimalName)

	report, err := h.sender.SendSystemAnnouncement(ctx, recipients, title, body)
	if err != nil {
		return fmt.Errorf("announce dose: %w", err)
	}

	log.Printf("[Worker] DoseRecorded DONE: administration=%d recipients=%d sent=%d failed=%d",
		event.AdministrationID, len(recipients), report.Sent, report.Failed)
	return nil
}

// handleCosignRequested pushes a confirmation request to the named cosigner.
func (h *Handler) handleCosignRequested(ctx context.Context, event queue.NotificationEvent) error {
	log.Printf("[Worker] CosignRequested: administration=%d cosigner=%d", event.AdministrationID, event.CosignerID)

	if event.CosignerID == 0 {
		return fmt.Errorf("cosign event without cosigner_id (administration=%d)", event.AdministrationID)
	}

	recordedByName := event.RecordedByName
	if recordedByName == "" {
		if name, err := h.caregivers.MemberDisplayName(ctx, event.RecordedBy); err == nil {
			recordedByName = name
		} else {
			recordedByName = "A caregiver"
		}
	}

	report, err := h.sender.SendCosignRequest(ctx, event.CosignerID,
		event.AnimalName, event.MedicationName, recordedByName, event.AdministrationID)
	if err != nil {
		return fmt.Errorf("send cosign request: %w", err)
	}

	log.Printf("[Worker] CosignRequested DONE: administration=%d cosigner=%d sent=%d failed=%d",
		event.AdministrationID, event.CosignerID, report.Sent, report.Failed)
	return nil
}
