package scheduler

import (
	"context"
	"testing"
	"time"

	"pawmeds/internal/model"
	"pawmeds/internal/push"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type mockCalc struct {
	scheduled []model.ScheduledDose
	missed    []model.MissedDose
}

func (m *mockCalc) ScheduledDoses(ctx context.Context, lookAhead time.Duration) ([]model.ScheduledDose, error) {
	return m.scheduled, nil
}

func (m *mockCalc) MissedDoses(ctx context.Context, lookBack time.Duration) ([]model.MissedDose, error) {
	return m.missed, nil
}

type mockDispatcher struct {
	disabled  bool
	reminders []model.ScheduledDose
	alerts    []model.MissedDose
	warnings  []model.InventoryAlert
}

func (m *mockDispatcher) report(title string) *push.SendReport {
	return &push.SendReport{Sent: 1, Disabled: m.disabled, Title: title, Body: "body"}
}

func (m *mockDispatcher) SendMedicationReminder(ctx context.Context, dose model.ScheduledDose) (*push.SendReport, error) {
	m.reminders = append(m.reminders, dose)
	return m.report("reminder"), nil
}

func (m *mockDispatcher) SendMissedDoseAlert(ctx context.Context, missed model.MissedDose) (*push.SendReport, error) {
	m.alerts = append(m.alerts, missed)
	return m.report("missed"), nil
}

func (m *mockDispatcher) SendLowInventoryWarning(ctx context.Context, alert model.InventoryAlert) (*push.SendReport, error) {
	m.warnings = append(m.warnings, alert)
	return m.report("inventory"), nil
}

type mockLedger struct {
	hasRecent bool
	entries   []*model.NotificationQueueEntry
	cutoff    time.Time
}

func (m *mockLedger) Insert(ctx context.Context, entry *model.NotificationQueueEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockLedger) HasRecentEntry(ctx context.Context, userID int64, notifType string, scheduledFor time.Time, tolerance time.Duration) (bool, error) {
	return m.hasRecent, nil
}

func (m *mockLedger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.cutoff = cutoff
	return 3, nil
}

type mockInventory struct {
	alerts []model.InventoryAlert
}

func (m *mockInventory) ListLowStock(ctx context.Context) ([]model.InventoryAlert, error) {
	return m.alerts, nil
}

// =============================================================================
// Test Helpers
// =============================================================================

var testNow = time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

func dueDose(userID int64, notifyAt time.Time) model.ScheduledDose {
	return model.ScheduledDose{
		RegimenID:        1,
		AnimalID:         2,
		HouseholdID:      3,
		UserID:           userID,
		ScheduledTime:    notifyAt.Add(15 * time.Minute),
		NotificationTime: notifyAt,
	}
}

func newTestScheduler(calc *mockCalc, disp *mockDispatcher, ledger *mockLedger, inv *mockInventory) *Scheduler {
	return New(calc, disp, ledger, inv, WithClock(func() time.Time { return testNow }))
}

// =============================================================================
// Reminder sweep
// =============================================================================

func TestReminderSweep_DispatchesAndRecords(t *testing.T) {
	calc := &mockCalc{scheduled: []model.ScheduledDose{dueDose(10, testNow)}}
	disp := &mockDispatcher{}
	ledger := &mockLedger{}
	s := newTestScheduler(calc, disp, ledger, &mockInventory{})

	s.runReminderSweep(context.Background())

	if len(disp.reminders) != 1 {
		t.Fatalf("dispatched %d reminders, want 1", len(disp.reminders))
	}
	if len(ledger.entries) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(ledger.entries))
	}
	entry := ledger.entries[0]
	if entry.Type != model.NotificationTypeMedicationReminder {
		t.Errorf("entry type = %q", entry.Type)
	}
	if entry.UserID != 10 || entry.HouseholdID != 3 {
		t.Errorf("entry user=%d household=%d, want 10/3", entry.UserID, entry.HouseholdID)
	}
	if !entry.ScheduledFor.Equal(testNow.Add(15 * time.Minute)) {
		t.Errorf("entry scheduled_for = %v", entry.ScheduledFor)
	}
	if entry.SentAt == nil || !entry.SentAt.Equal(testNow) {
		t.Errorf("entry sent_at = %v, want %v", entry.SentAt, testNow)
	}
	if entry.Title != "reminder" || entry.Body != "body" {
		t.Errorf("entry text = %q/%q", entry.Title, entry.Body)
	}
}

func TestReminderSweep_SkipsDosesFarFromThisTick(t *testing.T) {
	calc := &mockCalc{scheduled: []model.ScheduledDose{
		dueDose(10, testNow.Add(10*time.Minute)),  // next tick's problem
		dueDose(11, testNow.Add(-20*time.Minute)), // long past, missed path owns it
	}}
	disp := &mockDispatcher{}
	ledger := &mockLedger{}
	s := newTestScheduler(calc, disp, ledger, &mockInventory{})

	s.runReminderSweep(context.Background())

	if len(disp.reminders) != 0 {
		t.Fatalf("dispatched %d reminders, want 0", len(disp.reminders))
	}
	if len(ledger.entries) != 0 {
		t.Fatalf("ledger has %d entries, want 0", len(ledger.entries))
	}
}

func TestReminderSweep_DedupAgainstLedger(t *testing.T) {
	calc := &mockCalc{scheduled: []model.ScheduledDose{dueDose(10, testNow)}}
	disp := &mockDispatcher{}
	ledger := &mockLedger{hasRecent: true}
	s := newTestScheduler(calc, disp, ledger, &mockInventory{})

	s.runReminderSweep(context.Background())

	if len(disp.reminders) != 0 {
		t.Fatalf("already-announced dose dispatched %d times", len(disp.reminders))
	}
	if len(ledger.entries) != 0 {
		t.Fatalf("duplicate ledger entry written")
	}
}

func TestReminderSweep_DisabledPushWritesNoLedgerRow(t *testing.T) {
	calc := &mockCalc{scheduled: []model.ScheduledDose{dueDose(10, testNow)}}
	disp := &mockDispatcher{disabled: true}
	ledger := &mockLedger{}
	s := newTestScheduler(calc, disp, ledger, &mockInventory{})

	s.runReminderSweep(context.Background())

	if len(ledger.entries) != 0 {
		t.Fatalf("disabled dispatch still wrote %d ledger rows", len(ledger.entries))
	}
}

// =============================================================================
// Missed sweep
// =============================================================================

func TestMissedSweep_RenotifiesAndRecordsEveryAttempt(t *testing.T) {
	missed := model.MissedDose{
		ScheduledDose:  dueDose(10, testNow.Add(-time.Hour)),
		MinutesOverdue: 45,
	}
	calc := &mockCalc{missed: []model.MissedDose{missed}}
	disp := &mockDispatcher{}
	// A recent ledger row marks this a repeat but never suppresses it.
	ledger := &mockLedger{hasRecent: true}
	s := newTestScheduler(calc, disp, ledger, &mockInventory{})

	s.runMissedSweep(context.Background())

	if len(disp.alerts) != 1 {
		t.Fatalf("dispatched %d alerts, want 1", len(disp.alerts))
	}
	if !disp.alerts[0].AlreadyNotified {
		t.Error("repeat alert not flagged AlreadyNotified")
	}
	if len(ledger.entries) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(ledger.entries))
	}
	if ledger.entries[0].Type != model.NotificationTypeMissedDose {
		t.Errorf("entry type = %q", ledger.entries[0].Type)
	}
}

// =============================================================================
// Inventory sweep and cleanup
// =============================================================================

func TestInventorySweep_WarnsAndRecords(t *testing.T) {
	inv := &mockInventory{alerts: []model.InventoryAlert{{
		HouseholdID:    3,
		UserID:         10,
		AnimalID:       2,
		MedicationName: "Insulin",
		RemainingDoses: 4,
	}}}
	disp := &mockDispatcher{}
	ledger := &mockLedger{}
	s := newTestScheduler(&mockCalc{}, disp, ledger, inv)

	s.runInventorySweep(context.Background())

	if len(disp.warnings) != 1 {
		t.Fatalf("dispatched %d warnings, want 1", len(disp.warnings))
	}
	if len(ledger.entries) != 1 || ledger.entries[0].Type != model.NotificationTypeLowInventory {
		t.Fatalf("ledger entries = %v", ledger.entries)
	}
}

func TestCleanup_UsesRetentionCutoff(t *testing.T) {
	ledger := &mockLedger{}
	s := newTestScheduler(&mockCalc{}, &mockDispatcher{}, ledger, &mockInventory{})

	s.runCleanup(context.Background())

	want := testNow.Add(-ledgerRetention)
	if !ledger.cutoff.Equal(want) {
		t.Errorf("cleanup cutoff = %v, want %v", ledger.cutoff, want)
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestStartStopLifecycle(t *testing.T) {
	s := newTestScheduler(&mockCalc{}, &mockDispatcher{}, &mockLedger{}, &mockInventory{})

	if s.Status().Running {
		t.Fatal("scheduler running before Start")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Second Start is a no-op, not an error.
	if err := s.Start(); err != nil {
		t.Fatalf("re-entrant Start: %v", err)
	}

	status := s.Status()
	if !status.Running {
		t.Error("status not running after Start")
	}
	if len(status.Jobs) != 4 {
		t.Errorf("registered %d jobs, want 4", len(status.Jobs))
	}

	s.Stop()
	status = s.Status()
	if status.Running {
		t.Error("status still running after Stop")
	}
	if len(status.Jobs) != 0 {
		t.Errorf("jobs remain after Stop: %v", status.Jobs)
	}
}
