package dose

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"pawmeds/internal/model"
)

const (
	// GracePeriod is how long past its scheduled time a dose may run before
	// it counts as missed. A dose overdue by exactly the grace period is
	// still not missed.
	GracePeriod = 15 * time.Minute

	// AdministrationTolerance is the matching window between a computed
	// occurrence and an administration record's scheduled_for. It absorbs
	// recording-latency jitter without masking genuinely missed doses.
	AdministrationTolerance = 30 * time.Minute
)

// RegimenSource supplies the active regimen read model.
type RegimenSource interface {
	ListActiveSchedules(ctx context.Context) ([]model.RegimenSchedule, error)
}

// AdministrationSource supplies administration history for a regimen.
type AdministrationSource interface {
	Latest(ctx context.Context, regimenID int64) (*model.Administration, error)
	ListBetween(ctx context.Context, regimenID int64, from, to time.Time) ([]model.Administration, error)
}

// Calculator computes upcoming and missed doses across all active regimens.
// It is a pure computation over its two sources: no writes, no internal
// state, safe to call from concurrent jobs.
type Calculator struct {
	regimens        RegimenSource
	administrations AdministrationSource
	now             func() time.Time
}

// Option customises the Calculator.
type Option func(*Calculator)

// WithClock overrides the clock, primarily for testing.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCalculator(regimens RegimenSource, administrations AdministrationSource, opts ...Option) *Calculator {
	c := &Calculator{
		regimens:        regimens,
		administrations: administrations,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ScheduledDoses returns every dose across all active regimens whose
// notification time falls inside the lookahead window, sorted ascending by
// notification time. Occurrences whose scheduled time has already passed are
// not returned here; the missed-dose path owns those. A regimen with bad
// schedule data is logged and skipped, never aborting the batch.
func (c *Calculator) ScheduledDoses(ctx context.Context, lookAhead time.Duration) ([]model.ScheduledDose, error) {
	regimens, err := c.regimens.ListActiveSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}

	now := c.now().UTC()
	windowEnd := now.Add(lookAhead)

	var doses []model.ScheduledDose
	for _, reg := range regimens {
		if !reg.NotificationsEnabled {
			continue
		}

		var (
			regDoses []model.ScheduledDose
			calcErr  error
		)
		switch reg.ScheduleType {
		case model.SchedulePRN:
			// No "on time" exists for as-needed medication.
			continue
		case model.ScheduleFixed, model.ScheduleTaper:
			regDoses, calcErr = c.fixedUpcoming(reg, now, windowEnd)
		case model.ScheduleInterval:
			regDoses, calcErr = c.intervalUpcoming(ctx, reg, now, windowEnd)
		default:
			calcErr = fmt.Errorf("unknown schedule type %q", reg.ScheduleType)
		}
		if calcErr != nil {
			log.Printf("[Calculator] Skipping regimen %d (%s, animal=%d): %v",
				reg.RegimenID, reg.MedicationName, reg.AnimalID, calcErr)
			continue
		}
		doses = append(doses, regDoses...)
	}

	sort.Slice(doses, func(i, j int) bool {
		return doses[i].NotificationTime.Before(doses[j].NotificationTime)
	})
	return doses, nil
}

// MissedDoses returns doses scheduled in [now-lookBack, now) that have no
// matching administration record and are past the grace period, sorted most
// overdue first.
func (c *Calculator) MissedDoses(ctx context.Context, lookBack time.Duration) ([]model.MissedDose, error) {
	regimens, err := c.regimens.ListActiveSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}

	now := c.now().UTC()
	windowStart := now.Add(-lookBack)

	var missed []model.MissedDose
	for _, reg := range regimens {
		if !reg.NotificationsEnabled {
			continue
		}

		var (
			occurrences []time.Time
			calcErr     error
		)
		switch reg.ScheduleType {
		case model.SchedulePRN:
			continue
		case model.ScheduleFixed, model.ScheduleTaper:
			occurrences, calcErr = c.fixedOccurrencesBetween(reg, windowStart, now)
		case model.ScheduleInterval:
			occurrences, calcErr = c.intervalOccurrencesBetween(ctx, reg, windowStart, now)
		default:
			calcErr = fmt.Errorf("unknown schedule type %q", reg.ScheduleType)
		}
		if calcErr != nil {
			log.Printf("[Calculator] Skipping regimen %d (%s, animal=%d): %v",
				reg.RegimenID, reg.MedicationName, reg.AnimalID, calcErr)
			continue
		}

		for _, occ := range occurrences {
			overdue := now.Sub(occ)
			if overdue <= GracePeriod {
				continue
			}

			given, err := c.wasAdministered(ctx, reg.RegimenID, occ)
			if err != nil {
				log.Printf("[Calculator] Administration lookup failed for regimen %d: %v", reg.RegimenID, err)
				continue
			}
			if given {
				continue
			}

			missed = append(missed, model.MissedDose{
				ScheduledDose:  c.buildDose(reg, occ),
				MinutesOverdue: int(overdue.Minutes()),
			})
		}
	}

	sort.Slice(missed, func(i, j int) bool {
		return missed[i].MinutesOverdue > missed[j].MinutesOverdue
	})
	return missed, nil
}

// NotificationSummary aggregates one user's doses over a 24-hour horizon in
// both directions.
func (c *Calculator) NotificationSummary(ctx context.Context, userID int64) (*model.NotificationSummary, error) {
	const horizon = 24 * time.Hour

	upcoming, err := c.ScheduledDoses(ctx, horizon)
	if err != nil {
		return nil, err
	}
	overdue, err := c.MissedDoses(ctx, horizon)
	if err != nil {
		return nil, err
	}

	summary := &model.NotificationSummary{}
	for i := range upcoming {
		if upcoming[i].UserID != userID {
			continue
		}
		summary.UpcomingCount++
		// Doses are sorted by notification time, so the first hit is next.
		if summary.NextNotification == nil {
			next := upcoming[i]
			summary.NextNotification = &next
		}
	}
	for i := range overdue {
		if overdue[i].UserID == userID {
			summary.OverdueCount++
		}
	}
	return summary, nil
}

// fixedUpcoming resolves each "HH:MM" entry in the animal's zone. A time of
// day that has already passed today rolls to tomorrow. Re-resolving the local
// time on every call (rather than caching a UTC offset) is what keeps fixed
// schedules correct across DST transitions; time.Date normalizes instants
// that a spring-forward gap removed.
func (c *Calculator) fixedUpcoming(reg model.RegimenSchedule, now, windowEnd time.Time) ([]model.ScheduledDose, error) {
	if len(reg.Times) == 0 {
		return nil, fmt.Errorf("fixed schedule without times")
	}
	loc, err := time.LoadLocation(reg.AnimalTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", reg.AnimalTimezone, err)
	}

	nowLocal := now.In(loc)
	lead := time.Duration(reg.LeadTimeMinutes) * time.Minute

	var doses []model.ScheduledDose
	for _, ts := range reg.Times {
		hour, minute, err := parseClock(ts)
		if err != nil {
			return nil, fmt.Errorf("parse time %q: %w", ts, err)
		}

		occ := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), hour, minute, 0, 0, loc)
		if !occ.After(nowLocal) {
			occ = occ.AddDate(0, 0, 1)
		}
		if !c.withinRegimenDates(reg, occ) {
			continue
		}

		scheduled := occ.UTC()
		notification := scheduled.Add(-lead)
		if notification.After(windowEnd) {
			continue
		}

		doses = append(doses, c.buildDose(reg, scheduled))
	}
	return doses, nil
}

// intervalUpcoming enumerates occurrences on a grid anchored to the most
// recent administration (scheduled_for, falling back to recorded_at, then to
// the regimen start date). Anchoring on actual administrations keeps interval
// dosing drift-free relative to when doses were really given.
func (c *Calculator) intervalUpcoming(ctx context.Context, reg model.RegimenSchedule, now, windowEnd time.Time) ([]model.ScheduledDose, error) {
	interval, err := c.intervalDuration(reg)
	if err != nil {
		return nil, err
	}
	anchor, err := c.intervalAnchor(ctx, reg)
	if err != nil {
		return nil, err
	}

	lead := time.Duration(reg.LeadTimeMinutes) * time.Minute

	occ := anchor.Add(interval)
	for !occ.After(now) {
		occ = occ.Add(interval)
	}

	var doses []model.ScheduledDose
	for {
		if occ.Add(-lead).After(windowEnd) {
			break
		}
		if reg.EndDate != nil && occ.After(reg.EndDate.UTC()) {
			break
		}
		doses = append(doses, c.buildDose(reg, occ))
		occ = occ.Add(interval)
	}
	return doses, nil
}

// fixedOccurrencesBetween returns fixed-schedule occurrences with
// scheduled times in [from, to).
func (c *Calculator) fixedOccurrencesBetween(reg model.RegimenSchedule, from, to time.Time) ([]time.Time, error) {
	if len(reg.Times) == 0 {
		return nil, fmt.Errorf("fixed schedule without times")
	}
	loc, err := time.LoadLocation(reg.AnimalTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", reg.AnimalTimezone, err)
	}

	fromLocal := from.In(loc)
	toLocal := to.In(loc)

	var occurrences []time.Time
	for _, ts := range reg.Times {
		hour, minute, err := parseClock(ts)
		if err != nil {
			return nil, fmt.Errorf("parse time %q: %w", ts, err)
		}

		// Walk each calendar day the window touches.
		day := time.Date(fromLocal.Year(), fromLocal.Month(), fromLocal.Day(), 0, 0, 0, 0, loc)
		for !day.After(toLocal) {
			occ := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
			day = day.AddDate(0, 0, 1)

			scheduled := occ.UTC()
			if scheduled.Before(from) || !scheduled.Before(to) {
				continue
			}
			if !c.withinRegimenDates(reg, occ) {
				continue
			}
			occurrences = append(occurrences, scheduled)
		}
	}
	return occurrences, nil
}

// intervalOccurrencesBetween returns interval occurrences in [from, to).
// Because the grid is anchored on the last administration, any occurrence
// found here is by construction a dose that has not been given yet.
func (c *Calculator) intervalOccurrencesBetween(ctx context.Context, reg model.RegimenSchedule, from, to time.Time) ([]time.Time, error) {
	interval, err := c.intervalDuration(reg)
	if err != nil {
		return nil, err
	}
	anchor, err := c.intervalAnchor(ctx, reg)
	if err != nil {
		return nil, err
	}

	var occurrences []time.Time
	for occ := anchor.Add(interval); occ.Before(to); occ = occ.Add(interval) {
		if occ.Before(from) {
			continue
		}
		if occ.Before(reg.StartDate.UTC()) {
			continue
		}
		if reg.EndDate != nil && occ.After(reg.EndDate.UTC()) {
			break
		}
		occurrences = append(occurrences, occ)
	}
	return occurrences, nil
}

// wasAdministered reports whether an administration record exists with
// scheduled_for within the tolerance window of the occurrence.
func (c *Calculator) wasAdministered(ctx context.Context, regimenID int64, occ time.Time) (bool, error) {
	admins, err := c.administrations.ListBetween(ctx, regimenID,
		occ.Add(-AdministrationTolerance), occ.Add(AdministrationTolerance))
	if err != nil {
		return false, err
	}
	return len(admins) > 0, nil
}

func (c *Calculator) intervalDuration(reg model.RegimenSchedule) (time.Duration, error) {
	if reg.IntervalHours <= 0 {
		return 0, fmt.Errorf("interval schedule with interval_hours=%d", reg.IntervalHours)
	}
	return time.Duration(reg.IntervalHours) * time.Hour, nil
}

// intervalAnchor picks the grid anchor: last administration's scheduled_for,
// else its recorded_at, else the regimen start date.
func (c *Calculator) intervalAnchor(ctx context.Context, reg model.RegimenSchedule) (time.Time, error) {
	last, err := c.administrations.Latest(ctx, reg.RegimenID)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest administration: %w", err)
	}
	if last == nil {
		return reg.StartDate.UTC(), nil
	}
	if last.ScheduledFor != nil {
		return last.ScheduledFor.UTC(), nil
	}
	return last.RecordedAt.UTC(), nil
}

func (c *Calculator) withinRegimenDates(reg model.RegimenSchedule, occ time.Time) bool {
	if occ.Before(reg.StartDate) {
		return false
	}
	if reg.EndDate != nil && occ.After(*reg.EndDate) {
		return false
	}
	return true
}

func (c *Calculator) buildDose(reg model.RegimenSchedule, scheduled time.Time) model.ScheduledDose {
	doseType := model.DoseTypeScheduled
	if reg.ScheduleType == model.ScheduleInterval {
		doseType = model.DoseTypeInterval
	}
	lead := time.Duration(reg.LeadTimeMinutes) * time.Minute
	return model.ScheduledDose{
		RegimenID:        reg.RegimenID,
		AnimalID:         reg.AnimalID,
		HouseholdID:      reg.HouseholdID,
		UserID:           reg.UserID,
		AnimalName:       reg.AnimalName,
		MedicationName:   reg.MedicationName,
		Dose:             reg.Dose,
		ScheduledTime:    scheduled,
		NotificationTime: scheduled.Add(-lead),
		Timezone:         reg.AnimalTimezone,
		Type:             doseType,
	}
}

// parseClock parses an "HH:MM" local-time string.
func parseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad hour: %w", err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minute: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("out of range")
	}
	return hour, minute, nil
}
