package scheduler

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pawmeds/internal/model"
	"pawmeds/internal/push"
)

// Job names, cadences and windows. The four cadences are the contract; the
// cron syntax is an implementation detail.
const (
	jobReminders = "reminder_sweep"
	jobMissed    = "missed_dose_sweep"
	jobInventory = "low_inventory_sweep"
	jobCleanup   = "queue_cleanup"

	reminderSpec  = "*/5 * * * *"
	missedSpec    = "*/15 * * * *"
	inventorySpec = "@daily"
	cleanupSpec   = "@daily"

	reminderLookAhead = 30 * time.Minute
	missedLookBack    = 4 * time.Hour

	// tickAlignment keeps a reminder from firing on a tick far from its
	// notification time: the candidate's notification time must be within
	// one cadence of now.
	tickAlignment = 5 * time.Minute

	// dedupTolerance matches the administration tolerance: one ledger row
	// within +/-30 minutes of a dose's scheduled time means that dose was
	// already announced.
	dedupTolerance = 30 * time.Minute

	ledgerRetention = 7 * 24 * time.Hour

	sweepTimeout = 2 * time.Minute
	dailyTimeout = 5 * time.Minute
)

// Calculator supplies the dose computations.
type Calculator interface {
	ScheduledDoses(ctx context.Context, lookAhead time.Duration) ([]model.ScheduledDose, error)
	MissedDoses(ctx context.Context, lookBack time.Duration) ([]model.MissedDose, error)
}

// Dispatcher delivers notifications. The scheduler only needs the typed
// senders; fan-out mechanics live behind them.
type Dispatcher interface {
	SendMedicationReminder(ctx context.Context, dose model.ScheduledDose) (*push.SendReport, error)
	SendMissedDoseAlert(ctx context.Context, missed model.MissedDose) (*push.SendReport, error)
	SendLowInventoryWarning(ctx context.Context, alert model.InventoryAlert) (*push.SendReport, error)
}

// Ledger is the persisted notification log. Ledger-based dedup (rather than
// an in-memory set) keeps dedup correct across process restarts.
type Ledger interface {
	Insert(ctx context.Context, entry *model.NotificationQueueEntry) error
	HasRecentEntry(ctx context.Context, userID int64, notifType string, scheduledFor time.Time, tolerance time.Duration) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// InventorySource supplies the daily low-stock read.
type InventorySource interface {
	ListLowStock(ctx context.Context) ([]model.InventoryAlert, error)
}

// Status describes the scheduler for the status endpoint.
type Status struct {
	Running bool     `json:"running"`
	Jobs    []string `json:"jobs"`
}

// Scheduler owns the four periodic jobs and the at-most-once-per-dose
// guarantee for upcoming reminders. It is stateless across ticks: a failed
// tick self-heals on the next cadence.
type Scheduler struct {
	calc       Calculator
	dispatcher Dispatcher
	ledger     Ledger
	inventory  InventorySource
	now        func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]cron.EntryID
	running bool
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithClock overrides the clock, primarily for testing.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCron injects a preconfigured cron engine, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

func New(calc Calculator, dispatcher Dispatcher, ledger Ledger, inventory InventorySource, opts ...Option) *Scheduler {
	s := &Scheduler{
		calc:       calc,
		dispatcher: dispatcher,
		ledger:     ledger,
		inventory:  inventory,
		now:        time.Now,
		jobs:       make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cron == nil {
		// SkipIfStillRunning enforces the tick invariant: one job never
		// overlaps itself, while different jobs overlap freely.
		s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	}
	return s
}

// Start registers the four jobs and starts the cron engine. Re-entrant calls
// while running are no-ops.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Println("[Scheduler] Start called while already running, ignoring")
		return nil
	}

	jobs := []struct {
		name    string
		spec    string
		timeout time.Duration
		run     func(ctx context.Context)
	}{
		{jobReminders, reminderSpec, sweepTimeout, s.runReminderSweep},
		{jobMissed, missedSpec, sweepTimeout, s.runMissedSweep},
		{jobInventory, inventorySpec, dailyTimeout, s.runInventorySweep},
		{jobCleanup, cleanupSpec, dailyTimeout, s.runCleanup},
	}
	for _, job := range jobs {
		job := job
		id, err := s.cron.AddFunc(job.spec, func() {
			s.runJob(job.name, job.timeout, job.run)
		})
		if err != nil {
			return err
		}
		s.jobs[job.name] = id
	}

	s.cron.Start()
	s.running = true
	log.Printf("[Scheduler] Started with %d jobs", len(s.jobs))
	return nil
}

// Stop cancels future ticks and waits for any tick already in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	for name, id := range s.jobs {
		s.cron.Remove(id)
		delete(s.jobs, name)
	}
	s.running = false
	log.Println("[Scheduler] Stopped")
}

// Status reports whether the scheduler is running and which jobs are
// registered.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return Status{Running: s.running, Jobs: names}
}

// runJob is the failure boundary around one tick: a panic or error inside a
// job body is logged and never reaches the cron engine, so a bad tick cannot
// cancel future ticks or other jobs.
func (s *Scheduler) runJob(name string, timeout time.Duration, run func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Scheduler] Job %s panicked: %v", name, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := s.now()
	run(ctx)
	log.Printf("[Scheduler] Job %s finished in %v", name, time.Since(start))
}

// runReminderSweep is the upcoming-reminder job: every 5 minutes, look 30
// minutes ahead, dedup against the ledger, dispatch, record.
func (s *Scheduler) runReminderSweep(ctx context.Context) {
	doses, err := s.calc.ScheduledDoses(ctx, reminderLookAhead)
	if err != nil {
		log.Printf("[Scheduler] Reminder sweep: calculate failed: %v", err)
		return
	}

	now := s.now().UTC()
	sent := 0
	for _, dose := range doses {
		// Coarse tick alignment: only fire when this tick is the one
		// closest to the dose's notification time.
		offset := now.Sub(dose.NotificationTime)
		if offset > tickAlignment || offset < -tickAlignment {
			continue
		}

		exists, err := s.ledger.HasRecentEntry(ctx, dose.UserID, model.NotificationTypeMedicationReminder, dose.ScheduledTime, dedupTolerance)
		if err != nil {
			log.Printf("[Scheduler] Reminder sweep: ledger check failed (regimen=%d animal=%d): %v",
				dose.RegimenID, dose.AnimalID, err)
			continue
		}
		if exists {
			continue
		}

		report, err := s.dispatcher.SendMedicationReminder(ctx, dose)
		if err != nil {
			log.Printf("[Scheduler] Reminder sweep: dispatch failed (regimen=%d animal=%d user=%d): %v",
				dose.RegimenID, dose.AnimalID, dose.UserID, err)
			continue
		}
		if report.Disabled {
			log.Printf("[Scheduler] Push disabled, skipped reminder (regimen=%d user=%d at %s)",
				dose.RegimenID, dose.UserID, dose.ScheduledTime.Format(time.RFC3339))
			continue
		}

		s.recordAttempt(ctx, dose.HouseholdID, dose.UserID, model.NotificationTypeMedicationReminder,
			report, dose.ScheduledTime, now)
		sent++
	}

	log.Printf("[Scheduler] Reminder sweep: %d candidates, %d sent", len(doses), sent)
}

// runMissedSweep re-notifies every tick while a dose stays unrecorded. That
// escalation is intentional: no dedup read before sending, though every
// attempt still lands in the ledger.
func (s *Scheduler) runMissedSweep(ctx context.Context) {
	missed, err := s.calc.MissedDoses(ctx, missedLookBack)
	if err != nil {
		log.Printf("[Scheduler] Missed sweep: calculate failed: %v", err)
		return
	}

	now := s.now().UTC()
	sent := 0
	for _, m := range missed {
		repeat, err := s.ledger.HasRecentEntry(ctx, m.UserID, model.NotificationTypeMissedDose, m.ScheduledTime, dedupTolerance)
		if err != nil {
			log.Printf("[Scheduler] Missed sweep: ledger check failed (regimen=%d animal=%d): %v",
				m.RegimenID, m.AnimalID, err)
		}
		m.AlreadyNotified = repeat

		report, err := s.dispatcher.SendMissedDoseAlert(ctx, m)
		if err != nil {
			log.Printf("[Scheduler] Missed sweep: dispatch failed (regimen=%d animal=%d user=%d): %v",
				m.RegimenID, m.AnimalID, m.UserID, err)
			continue
		}
		if report.Disabled {
			log.Printf("[Scheduler] Push disabled, skipped missed-dose alert (regimen=%d user=%d overdue=%dm repeat=%t)",
				m.RegimenID, m.UserID, m.MinutesOverdue, repeat)
			continue
		}

		s.recordAttempt(ctx, m.HouseholdID, m.UserID, model.NotificationTypeMissedDose,
			report, m.ScheduledTime, now)
		sent++
		log.Printf("[Scheduler] Missed-dose alert sent (regimen=%d user=%d overdue=%dm repeat=%t)",
			m.RegimenID, m.UserID, m.MinutesOverdue, repeat)
	}

	log.Printf("[Scheduler] Missed sweep: %d overdue, %d alerted", len(missed), sent)
}

// runInventorySweep is the daily low-stock warning.
func (s *Scheduler) runInventorySweep(ctx context.Context) {
	alerts, err := s.inventory.ListLowStock(ctx)
	if err != nil {
		log.Printf("[Scheduler] Inventory sweep: list failed: %v", err)
		return
	}

	now := s.now().UTC()
	sent := 0
	for _, alert := range alerts {
		report, err := s.dispatcher.SendLowInventoryWarning(ctx, alert)
		if err != nil {
			log.Printf("[Scheduler] Inventory sweep: dispatch failed (animal=%d medication=%s user=%d): %v",
				alert.AnimalID, alert.MedicationName, alert.UserID, err)
			continue
		}
		if report.Disabled {
			continue
		}

		s.recordAttempt(ctx, alert.HouseholdID, alert.UserID, model.NotificationTypeLowInventory,
			report, now, now)
		sent++
	}

	log.Printf("[Scheduler] Inventory sweep: %d low, %d warned", len(alerts), sent)
}

// runCleanup trims ledger rows past the retention window.
func (s *Scheduler) runCleanup(ctx context.Context) {
	cutoff := s.now().UTC().Add(-ledgerRetention)
	deleted, err := s.ledger.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[Scheduler] Cleanup: delete failed: %v", err)
		return
	}
	log.Printf("[Scheduler] Cleanup: deleted %d ledger rows older than %s", deleted, cutoff.Format(time.RFC3339))
}

// recordAttempt appends the ledger row for a fired notification. A failed
// insert is logged but does not undo the send; the next dedup check may
// re-send, which beats silently losing the audit row.
func (s *Scheduler) recordAttempt(ctx context.Context, householdID, userID int64, notifType string, report *push.SendReport, scheduledFor, sentAt time.Time) {
	entry := &model.NotificationQueueEntry{
		HouseholdID:  householdID,
		UserID:       userID,
		Type:         notifType,
		Title:        report.Title,
		Body:         report.Body,
		ScheduledFor: scheduledFor,
		SentAt:       &sentAt,
	}
	if err := s.ledger.Insert(ctx, entry); err != nil {
		log.Printf("[Scheduler] Ledger insert failed (user=%d type=%s): %v", userID, notifType, err)
	}
}
