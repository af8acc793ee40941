package push_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pawmeds/internal/model"
	"pawmeds/internal/push"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockSubscriptionStore simulates the push subscription repository.
type MockSubscriptionStore struct {
	subs        map[int64][]model.PushSubscriptionRecord
	deactivated []int64
	touched     []int64
	getCalls    int
}

func NewMockSubscriptionStore() *MockSubscriptionStore {
	return &MockSubscriptionStore{subs: make(map[int64][]model.PushSubscriptionRecord)}
}

func (m *MockSubscriptionStore) AddSubscription(userID, subID int64, endpoint string) {
	m.subs[userID] = append(m.subs[userID], model.PushSubscriptionRecord{
		ID:       subID,
		UserID:   userID,
		Endpoint: endpoint,
		IsActive: true,
	})
}

func (m *MockSubscriptionStore) GetActiveByUserID(ctx context.Context, userID int64) ([]model.PushSubscriptionRecord, error) {
	m.getCalls++
	return m.subs[userID], nil
}

func (m *MockSubscriptionStore) Deactivate(ctx context.Context, id int64) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func (m *MockSubscriptionStore) TouchLastUsed(ctx context.Context, id int64) error {
	m.touched = append(m.touched, id)
	return nil
}

// MockDeliverer simulates the web push client: outcome per endpoint.
type MockDeliverer struct {
	outcomes map[string]push.DeliveryStatus
}

func NewMockDeliverer() *MockDeliverer {
	return &MockDeliverer{outcomes: make(map[string]push.DeliveryStatus)}
}

func (m *MockDeliverer) SetOutcome(endpoint string, status push.DeliveryStatus) {
	m.outcomes[endpoint] = status
}

func (m *MockDeliverer) Deliver(ctx context.Context, payload []byte, sub model.PushSubscriptionRecord, opts push.Options) (push.DeliveryStatus, error) {
	status, ok := m.outcomes[sub.Endpoint]
	if !ok {
		return push.StatusOK, nil
	}
	if status != push.StatusOK {
		return status, errors.New("push service rejected the message")
	}
	return status, nil
}

// =============================================================================
// SendToUser
// =============================================================================

func TestSendToUser_NoSubscriptions(t *testing.T) {
	store := NewMockSubscriptionStore()
	d := push.NewDispatcher(store, NewMockDeliverer())

	report, err := d.SendToUser(context.Background(), 1, push.Payload{Title: "t"}, push.Options{})
	if err != nil {
		t.Fatalf("SendToUser: %v", err)
	}
	if report.Sent != 0 || report.Failed != 0 {
		t.Errorf("sent=%d failed=%d, want 0/0", report.Sent, report.Failed)
	}
	if report.Disabled {
		t.Error("report marked disabled with a configured client")
	}
	if len(report.Results) != 0 {
		t.Errorf("results = %d, want 0", len(report.Results))
	}
}

func TestSendToUser_GoneDeactivatesOnlyThatSubscription(t *testing.T) {
	store := NewMockSubscriptionStore()
	store.AddSubscription(1, 101, "https://push.example/alive")
	store.AddSubscription(1, 102, "https://push.example/stale")

	deliverer := NewMockDeliverer()
	deliverer.SetOutcome("https://push.example/stale", push.StatusGone)

	d := push.NewDispatcher(store, deliverer)
	report, err := d.SendToUser(context.Background(), 1, push.Payload{Title: "t"}, push.Options{})
	if err != nil {
		t.Fatalf("SendToUser: %v", err)
	}

	if report.Sent != 1 || report.Failed != 1 {
		t.Errorf("sent=%d failed=%d, want 1/1", report.Sent, report.Failed)
	}
	if len(store.deactivated) != 1 || store.deactivated[0] != 102 {
		t.Errorf("deactivated = %v, want [102]", store.deactivated)
	}
	if len(store.touched) != 1 || store.touched[0] != 101 {
		t.Errorf("touched = %v, want [101]", store.touched)
	}
}

func TestSendToUser_TransientFailureLeavesSubscriptionActive(t *testing.T) {
	store := NewMockSubscriptionStore()
	store.AddSubscription(1, 101, "https://push.example/flaky")

	deliverer := NewMockDeliverer()
	deliverer.SetOutcome("https://push.example/flaky", push.StatusError)

	d := push.NewDispatcher(store, deliverer)
	report, err := d.SendToUser(context.Background(), 1, push.Payload{Title: "t"}, push.Options{})
	if err != nil {
		t.Fatalf("SendToUser: %v", err)
	}

	if report.Failed != 1 {
		t.Errorf("failed = %d, want 1", report.Failed)
	}
	if len(store.deactivated) != 0 {
		t.Errorf("transient failure deactivated subscriptions: %v", store.deactivated)
	}
	if len(report.Results) != 1 || report.Results[0].Error == "" {
		t.Error("expected the delivery error recorded in the result")
	}
}

func TestSendToUser_DisabledModeShortCircuits(t *testing.T) {
	store := NewMockSubscriptionStore()
	store.AddSubscription(1, 101, "https://push.example/alive")

	// A nil deliverer means VAPID keys were never configured.
	d := push.NewDispatcher(store, nil)
	if d.IsEnabled() {
		t.Fatal("dispatcher with nil client reports enabled")
	}

	report, err := d.SendToUser(context.Background(), 1, push.Payload{Title: "t"}, push.Options{})
	if err != nil {
		t.Fatalf("SendToUser: %v", err)
	}
	if !report.Disabled {
		t.Error("report not marked disabled")
	}
	if store.getCalls != 0 {
		t.Errorf("disabled dispatcher queried subscriptions %d times", store.getCalls)
	}
}

func TestSendToUsers_MergesReports(t *testing.T) {
	store := NewMockSubscriptionStore()
	store.AddSubscription(1, 101, "https://push.example/a")
	store.AddSubscription(2, 201, "https://push.example/b")
	store.AddSubscription(2, 202, "https://push.example/c")

	d := push.NewDispatcher(store, NewMockDeliverer())
	report, err := d.SendSystemAnnouncement(context.Background(), []int64{1, 2}, "title", "body")
	if err != nil {
		t.Fatalf("SendSystemAnnouncement: %v", err)
	}
	if report.Sent != 3 || report.Failed != 0 {
		t.Errorf("sent=%d failed=%d, want 3/0", report.Sent, report.Failed)
	}
	if report.Title != "title" || report.Body != "body" {
		t.Errorf("report echo = %q/%q, want title/body", report.Title, report.Body)
	}
}

// =============================================================================
// Payload builders
// =============================================================================

func TestBuildMedicationReminder(t *testing.T) {
	dose := model.ScheduledDose{
		RegimenID:      7,
		AnimalID:       3,
		AnimalName:     "Milo",
		MedicationName: "Amoxicillin",
		Dose:           "250mg",
		ScheduledTime:  time.Date(2026, 1, 15, 13, 0, 0, 0, time.UTC),
		Timezone:       "America/New_York",
	}

	p, opts := push.BuildMedicationReminder(dose)
	if p.Tag != "medication-7" {
		t.Errorf("tag = %q, want medication-7", p.Tag)
	}
	if opts.Topic != p.Tag {
		t.Errorf("topic %q does not mirror tag %q", opts.Topic, p.Tag)
	}
	if opts.Urgency != push.UrgencyNormal {
		t.Errorf("urgency = %q, want normal", opts.Urgency)
	}
	if p.Data["type"] != model.NotificationTypeMedicationReminder {
		t.Errorf("data type = %v", p.Data["type"])
	}
	// 13:00 UTC is 8:00 AM in New York in January.
	wantBody := "Amoxicillin (250mg) is due at 8:00 AM"
	if p.Body != wantBody {
		t.Errorf("body = %q, want %q", p.Body, wantBody)
	}
}

func TestBuildMissedDoseAlert(t *testing.T) {
	missed := model.MissedDose{
		ScheduledDose: model.ScheduledDose{
			RegimenID:      7,
			AnimalName:     "Milo",
			MedicationName: "Amoxicillin",
			Dose:           "250mg",
		},
		MinutesOverdue: 95,
	}

	p, opts := push.BuildMissedDoseAlert(missed)
	if !p.RequireInteraction {
		t.Error("missed-dose alert must require interaction")
	}
	if opts.Urgency != push.UrgencyHigh {
		t.Errorf("urgency = %q, want high", opts.Urgency)
	}
	wantBody := "Amoxicillin (250mg) was due 1h 35m ago"
	if p.Body != wantBody {
		t.Errorf("body = %q, want %q", p.Body, wantBody)
	}
}

func TestBuildCosignRequest(t *testing.T) {
	p, opts := push.BuildCosignRequest("Milo", "Tramadol", "Alex", 42)
	if p.Tag != "cosign-42" {
		t.Errorf("tag = %q, want cosign-42", p.Tag)
	}
	if opts.Urgency != push.UrgencyHigh {
		t.Errorf("urgency = %q, want high", opts.Urgency)
	}
	if p.Data["administration_id"] != int64(42) {
		t.Errorf("administration_id = %v", p.Data["administration_id"])
	}
}
