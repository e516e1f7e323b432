package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tideraider/surf-alert-server/internal/alerting"
	"github.com/tideraider/surf-alert-server/internal/protocol"
	"github.com/tideraider/surf-alert-server/internal/surf"
)

// Store is the persistence collaborator for the daily sweep.
type Store interface {
	ListRegions() ([]*surf.Region, error)
	ListBeachesForRegion(regionID string) ([]*surf.Beach, error)
	UpsertForecast(f *surf.ForecastSnapshot) error
	UpsertBeachDailyScore(s *surf.BeachDailyScore) error
	ListUserIDsWithActiveAlerts() ([]string, error)
}

// Refresher is the scraper collaborator. It may fail per region; the sweep
// isolates those failures.
type Refresher interface {
	RefreshForecastForRegion(ctx context.Context, region *surf.Region) (*surf.ForecastSnapshot, error)
}

// UserEvaluator runs one user's alert evaluation loop.
type UserEvaluator interface {
	EvaluateUserAlerts(ctx context.Context, userID string, asOfDate time.Time) alerting.Summary
}

// Publisher announces refreshed forecasts on the forecast topic. Optional.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// State names the sweep's phases.
type State string

const (
	StateIdle       State = "IDLE"
	StateRefreshing State = "REFRESHING_FORECASTS"
	StateProcessing State = "PROCESSING_USERS"
	StateDone       State = "DONE"
)

// Report aggregates one sweep's counters. There is no rollback: every
// region, user, and alert commits its own side effects independently, and
// the per-day idempotency check covers an interrupted run.
type Report struct {
	RunID      string
	Date       time.Time
	State      State
	StartedAt  time.Time
	FinishedAt time.Time

	RegionsRefreshed  int
	RegionFailures    int
	UsersProcessed    int
	AlertsChecked     int
	NotificationsSent int
	Errors            int
}

// Orchestrator drives the daily sweep. Regions and users are processed
// strictly sequentially: the scraper is a heavyweight collaborator under
// rate limits, and serial evaluation bounds load on the store and the send
// APIs.
type Orchestrator struct {
	store     Store
	refresher Refresher
	evaluator UserEvaluator
	forecasts Publisher     // may be nil
	delay     time.Duration // pause between region scrapes
}

// New creates an orchestrator. forecasts may be nil when no topic is wired.
func New(store Store, refresher Refresher, evaluator UserEvaluator, forecasts Publisher, delay time.Duration) *Orchestrator {
	return &Orchestrator{
		store:     store,
		refresher: refresher,
		evaluator: evaluator,
		forecasts: forecasts,
		delay:     delay,
	}
}

// Run executes one full sweep for the given day and reports the aggregate
// counters. No failure in one region or user aborts the run.
func (o *Orchestrator) Run(ctx context.Context, asOf time.Time) *Report {
	report := &Report{
		RunID:     uuid.New().String(),
		Date:      surf.DateOnly(asOf),
		State:     StateIdle,
		StartedAt: time.Now().UTC(),
	}
	log.Printf("Starting daily sweep %s for %s", report.RunID, report.Date.Format("2006-01-02"))

	report.State = StateRefreshing
	o.refreshRegions(ctx, report)

	report.State = StateProcessing
	o.processUsers(ctx, report)

	report.State = StateDone
	report.FinishedAt = time.Now().UTC()
	log.Printf("Sweep %s done: %d/%d regions refreshed, %d users, %d alerts checked, %d sent, %d errors",
		report.RunID, report.RegionsRefreshed, report.RegionsRefreshed+report.RegionFailures,
		report.UsersProcessed, report.AlertsChecked, report.NotificationsSent, report.Errors)

	return report
}

func (o *Orchestrator) refreshRegions(ctx context.Context, report *Report) {
	regions, err := o.store.ListRegions()
	if err != nil {
		log.Printf("Failed to list regions: %v", err)
		report.Errors++
		return
	}

	for i, region := range regions {
		if i > 0 && o.delay > 0 {
			select {
			case <-time.After(o.delay):
			case <-ctx.Done():
				return
			}
		}

		if err := o.refreshOne(ctx, region, report.Date); err != nil {
			// One bad region moves on to the next; no retry this run.
			log.Printf("Failed to refresh region %s: %v", region.ID, err)
			report.RegionFailures++
			continue
		}
		report.RegionsRefreshed++
	}
}

func (o *Orchestrator) refreshOne(ctx context.Context, region *surf.Region, day time.Time) error {
	snapshot, err := o.refresher.RefreshForecastForRegion(ctx, region)
	if err != nil {
		return err
	}
	snapshot.Date = day

	if err := o.store.UpsertForecast(snapshot); err != nil {
		return fmt.Errorf("failed to store forecast: %w", err)
	}

	beaches, err := o.store.ListBeachesForRegion(region.ID)
	if err != nil {
		return fmt.Errorf("failed to list beaches: %w", err)
	}
	for _, beach := range beaches {
		score := surf.ScoreForecast(beach.Profile, snapshot)
		daily := &surf.BeachDailyScore{
			BeachID:    beach.ID,
			Date:       day,
			Score:      score,
			StarRating: surf.StarsForScore(score),
		}
		if err := o.store.UpsertBeachDailyScore(daily); err != nil {
			return fmt.Errorf("failed to store score for beach %s: %w", beach.ID, err)
		}
	}

	o.publishForecast(ctx, region, snapshot)
	return nil
}

func (o *Orchestrator) publishForecast(ctx context.Context, region *surf.Region, f *surf.ForecastSnapshot) {
	if o.forecasts == nil {
		return
	}

	msg := &protocol.ForecastMessage{
		RegionID:       region.ID,
		RegionName:     region.Name,
		Date:           f.Date.Format("2006-01-02"),
		WindSpeed:      f.WindSpeed,
		WindDirection:  f.WindDirection,
		SwellHeight:    f.SwellHeight,
		SwellPeriod:    f.SwellPeriod,
		SwellDirection: f.SwellDirection,
		ScrapedAt:      f.ScrapedAt,
	}
	data, err := protocol.EncodeForecastMessage(msg)
	if err != nil {
		log.Printf("Failed to encode forecast message for %s: %v", region.ID, err)
		return
	}
	if err := o.forecasts.Publish(ctx, region.ID, data); err != nil {
		log.Printf("Failed to publish forecast for %s: %v", region.ID, err)
	}
}

func (o *Orchestrator) processUsers(ctx context.Context, report *Report) {
	userIDs, err := o.store.ListUserIDsWithActiveAlerts()
	if err != nil {
		log.Printf("Failed to list users with active alerts: %v", err)
		report.Errors++
		return
	}

	for _, userID := range userIDs {
		summary := o.evaluator.EvaluateUserAlerts(ctx, userID, report.Date)
		report.UsersProcessed++
		report.AlertsChecked += summary.AlertsChecked
		report.NotificationsSent += summary.NotificationsSent
		report.Errors += summary.Errors
	}
}

// NextRunTime calculates when the daily sweep should next fire, given a
// "HH:MM" time of day.
func NextRunTime(now time.Time, timeOfDay string) (time.Time, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(timeOfDay, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %s (expected HH:MM)", timeOfDay)
	}

	todayRun := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	// If we're past today's run time, schedule for tomorrow
	if now.After(todayRun) {
		return todayRun.AddDate(0, 0, 1), nil
	}

	return todayRun, nil
}
