package worker_test

import (
	"context"
	"testing"

	"pawmeds/internal/push"
	"pawmeds/internal/queue"
	"pawmeds/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockCaregiverProvider simulates the household repository.
type MockCaregiverProvider struct {
	caregivers map[int64][]int64
	names      map[int64]string
}

func NewMockCaregiverProvider() *MockCaregiverProvider {
	return &MockCaregiverProvider{
		caregivers: make(map[int64][]int64),
		names:      make(map[int64]string),
	}
}

func (m *MockCaregiverProvider) AddCaregiver(householdID, userID int64, name string) {
	m.caregivers[householdID] = append(m.caregivers[householdID], userID)
	m.names[userID] = name
}

func (m *MockCaregiverProvider) ListCaregiverIDs(ctx context.Context, householdID int64) ([]int64, error) {
	return m.caregivers[householdID], nil
}

func (m *MockCaregiverProvider) MemberDisplayName(ctx context.Context, userID int64) (string, error) {
	return m.names[userID], nil
}

// MockPushSender records what the handler asked it to send.
type MockPushSender struct {
	announcements [][]int64
	lastTitle     string
	lastBody      string

	cosignRecipients []int64
	cosignAdminIDs   []int64
	cosignRecordedBy string
}

func (m *MockPushSender) SendCosignRequest(ctx context.Context, cosignerID int64, animalName, medicationName, recordedByName string, administrationID int64) (*push.SendReport, error) {
	m.cosignRecipients = append(m.cosignRecipients, cosignerID)
	m.cosignAdminIDs = append(m.cosignAdminIDs, administrationID)
	m.cosignRecordedBy = recordedByName
	return &push.SendReport{Sent: 1}, nil
}

func (m *MockPushSender) SendSystemAnnouncement(ctx context.Context, userIDs []int64, title, body string) (*push.SendReport, error) {
	m.announcements = append(m.announcements, userIDs)
	m.lastTitle = title
	m.lastBody = body
	return &push.SendReport{Sent: len(userIDs)}, nil
}

// =============================================================================
// Dose recorded
// =============================================================================

func TestHandleEvent_DoseRecordedExcludesRecorder(t *testing.T) {
	caregivers := NewMockCaregiverProvider()
	caregivers.AddCaregiver(1, 10, "Alex")
	caregivers.AddCaregiver(1, 20, "Sam")
	caregivers.AddCaregiver(1, 30, "Riley")

	sender := &MockPushSender{}
	h := worker.NewHandler(caregivers, sender)

	event := queue.NewDoseRecordedEvent(1, 5, 7, 99, 10, "Milo", "Amoxicillin", "Alex")
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(sender.announcements) != 1 {
		t.Fatalf("sent %d announcements, want 1", len(sender.announcements))
	}
	recipients := sender.announcements[0]
	if len(recipients) != 2 {
		t.Fatalf("announced to %d users, want 2", len(recipients))
	}
	for _, id := range recipients {
		if id == 10 {
			t.Error("announcement sent back to the recorder")
		}
	}
	if sender.lastTitle != "Milo received Amoxicillin" {
		t.Errorf("title = %q", sender.lastTitle)
	}
}

func TestHandleEvent_DoseRecordedSoleCaregiver(t *testing.T) {
	caregivers := NewMockCaregiverProvider()
	caregivers.AddCaregiver(1, 10, "Alex")

	sender := &MockPushSender{}
	h := worker.NewHandler(caregivers, sender)

	event := queue.NewDoseRecordedEvent(1, 5, 7, 99, 10, "Milo", "Amoxicillin", "Alex")
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(sender.announcements) != 0 {
		t.Fatalf("sole caregiver received %d announcements about their own record", len(sender.announcements))
	}
}

// =============================================================================
// Cosign requested
// =============================================================================

func TestHandleEvent_CosignRequested(t *testing.T) {
	caregivers := NewMockCaregiverProvider()
	caregivers.AddCaregiver(1, 10, "Alex")
	caregivers.AddCaregiver(1, 20, "Sam")

	sender := &MockPushSender{}
	h := worker.NewHandler(caregivers, sender)

	event := queue.NewCosignRequestedEvent(1, 5, 7, 99, 10, 20, "Milo", "Tramadol", "")
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(sender.cosignRecipients) != 1 || sender.cosignRecipients[0] != 20 {
		t.Fatalf("cosign recipients = %v, want [20]", sender.cosignRecipients)
	}
	if sender.cosignAdminIDs[0] != 99 {
		t.Errorf("administration id = %d, want 99", sender.cosignAdminIDs[0])
	}
	// Empty recorded-by name in the event resolves via the household lookup.
	if sender.cosignRecordedBy != "Alex" {
		t.Errorf("recorded-by name = %q, want Alex", sender.cosignRecordedBy)
	}
}

func TestHandleEvent_CosignWithoutCosignerFails(t *testing.T) {
	h := worker.NewHandler(NewMockCaregiverProvider(), &MockPushSender{})

	event := queue.NotificationEvent{
		Type:             queue.EventCosignRequested,
		AdministrationID: 99,
	}
	if err := h.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("cosign event without cosigner accepted")
	}
}

// =============================================================================
// Unknown events
// =============================================================================

func TestHandleEvent_UnknownTypeRejected(t *testing.T) {
	h := worker.NewHandler(NewMockCaregiverProvider(), &MockPushSender{})

	event := queue.NotificationEvent{Type: "something_else"}
	if err := h.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("unknown event type accepted")
	}
}
