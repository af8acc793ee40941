package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"pawmeds/internal/model"
)

// SubscriptionStore is the dispatcher's view of the subscription table.
type SubscriptionStore interface {
	GetActiveByUserID(ctx context.Context, userID int64) ([]model.PushSubscriptionRecord, error)
	Deactivate(ctx context.Context, id int64) error
	TouchLastUsed(ctx context.Context, id int64) error
}

// SendResult is the outcome for one subscription.
type SendResult struct {
	SubscriptionID int64          `json:"subscription_id"`
	Status         DeliveryStatus `json:"status"`
	Error          string         `json:"error,omitempty"`
}

// SendReport aggregates one logical notification's fan-out. Title and Body
// echo the payload so callers can persist a ledger row without rebuilding it.
type SendReport struct {
	Sent     int          `json:"sent"`
	Failed   int          `json:"failed"`
	Results  []SendResult `json:"results"`
	Disabled bool         `json:"disabled,omitempty"`
	Title    string       `json:"-"`
	Body     string       `json:"-"`
}

// Dispatcher fans one logical notification out to every active subscription
// of a user and interprets per-subscription outcomes: success bumps
// last_used, a gone signal deactivates that subscription (self-pruning), any
// other failure is recorded and retried naturally on the next send.
type Dispatcher struct {
	subs   SubscriptionStore
	client Deliverer // nil means disabled mode
}

func NewDispatcher(subs SubscriptionStore, client Deliverer) *Dispatcher {
	return &Dispatcher{
		subs:   subs,
		client: client,
	}
}

// IsEnabled reports whether delivery credentials are configured.
func (d *Dispatcher) IsEnabled() bool {
	return d.client != nil
}

// SendToUser delivers the payload to all of a user's active subscriptions.
// Zero subscriptions is not an error. Per-subscription sends run
// concurrently; results land in a pre-sized slice and the aggregate is
// assembled only after every send has finished, so a hanging endpoint never
// blocks the others and nothing mutates the report concurrently.
func (d *Dispatcher) SendToUser(ctx context.Context, userID int64, p Payload, opts Options) (*SendReport, error) {
	report := &SendReport{
		Results: []SendResult{},
		Title:   p.Title,
		Body:    p.Body,
	}

	if !d.IsEnabled() {
		report.Disabled = true
		return report, nil
	}

	subs, err := d.subs.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return report, nil
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	results := make([]SendResult, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub model.PushSubscriptionRecord) {
			defer wg.Done()
			status, err := d.client.Deliver(ctx, payload, sub, opts)
			result := SendResult{SubscriptionID: sub.ID, Status: status}
			if err != nil {
				result.Error = err.Error()
			}
			results[i] = result
		}(i, sub)
	}
	wg.Wait()

	for i, result := range results {
		switch result.Status {
		case StatusOK:
			report.Sent++
			if err := d.subs.TouchLastUsed(ctx, subs[i].ID); err != nil {
				log.Printf("[Dispatcher] Failed to touch subscription %d: %v", subs[i].ID, err)
			}
		case StatusGone:
			report.Failed++
			if err := d.subs.Deactivate(ctx, subs[i].ID); err != nil {
				log.Printf("[Dispatcher] Failed to deactivate subscription %d: %v", subs[i].ID, err)
			} else {
				log.Printf("[Dispatcher] Subscription %d gone, deactivated", subs[i].ID)
			}
		default:
			// Transient: leave the subscription active, the next
			// qualifying notification retries it.
			report.Failed++
			log.Printf("[Dispatcher] Transient delivery failure for subscription %d: %s", subs[i].ID, result.Error)
		}
	}
	report.Results = results

	log.Printf("[Dispatcher] user=%d sent=%d failed=%d", userID, report.Sent, report.Failed)
	return report, nil
}

// SendToUsers fans the same payload out to several recipients and merges the
// per-user reports.
func (d *Dispatcher) SendToUsers(ctx context.Context, userIDs []int64, p Payload, opts Options) (*SendReport, error) {
	merged := &SendReport{
		Results:  []SendResult{},
		Disabled: !d.IsEnabled(),
		Title:    p.Title,
		Body:     p.Body,
	}
	for _, userID := range userIDs {
		report, err := d.SendToUser(ctx, userID, p, opts)
		if err != nil {
			log.Printf("[Dispatcher] Send to user %d failed: %v", userID, err)
			continue
		}
		merged.Sent += report.Sent
		merged.Failed += report.Failed
		merged.Results = append(merged.Results, report.Results...)
	}
	return merged, nil
}

// SendMedicationReminder sends the upcoming-dose reminder for one dose.
func (d *Dispatcher) SendMedicationReminder(ctx context.Context, dose model.ScheduledDose) (*SendReport, error) {
	p, opts := BuildMedicationReminder(dose)
	return d.SendToUser(ctx, dose.UserID, p, opts)
}

// SendMissedDoseAlert sends the overdue alert for one missed dose.
func (d *Dispatcher) SendMissedDoseAlert(ctx context.Context, missed model.MissedDose) (*SendReport, error) {
	p, opts := BuildMissedDoseAlert(missed)
	return d.SendToUser(ctx, missed.UserID, p, opts)
}

// SendLowInventoryWarning sends the daily stock warning to one caregiver.
func (d *Dispatcher) SendLowInventoryWarning(ctx context.Context, alert model.InventoryAlert) (*SendReport, error) {
	p, opts := BuildLowInventoryWarning(alert)
	return d.SendToUser(ctx, alert.UserID, p, opts)
}

// SendCosignRequest asks a second caregiver to co-sign an administration.
func (d *Dispatcher) SendCosignRequest(ctx context.Context, cosignerID int64, animalName, medicationName, recordedByName string, administrationID int64) (*SendReport, error) {
	p, opts := BuildCosignRequest(animalName, medicationName, recordedByName, administrationID)
	return d.SendToUser(ctx, cosignerID, p, opts)
}

// SendSystemAnnouncement sends an informational notice to several users.
func (d *Dispatcher) SendSystemAnnouncement(ctx context.Context, userIDs []int64, title, body string) (*SendReport, error) {
	p, opts := BuildSystemAnnouncement(title, body)
	return d.SendToUsers(ctx, userIDs, p, opts)
}
