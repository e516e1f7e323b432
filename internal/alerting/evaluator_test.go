package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tideraider/surf-alert-server/internal/alert"
	"github.com/tideraider/surf-alert-server/internal/surf"
)

type fakeStore struct {
	alerts    []*alert.Alert
	forecasts map[string]*surf.ForecastSnapshot // keyed by region
	scores    map[string]*surf.BeachDailyScore  // keyed by beach
	beaches   map[string]*surf.Beach
	checks    []*alert.Check

	forecastErr map[string]error // per-region injected failures
	panicOn     string           // region that panics on fetch
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		forecasts:   make(map[string]*surf.ForecastSnapshot),
		scores:      make(map[string]*surf.BeachDailyScore),
		beaches:     make(map[string]*surf.Beach),
		forecastErr: make(map[string]error),
	}
}

func (s *fakeStore) GetActiveAlertsForUser(userID string) ([]*alert.Alert, error) {
	var out []*alert.Alert
	for _, a := range s.alerts {
		if a.UserID == userID && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) GetForecast(regionID string, date time.Time) (*surf.ForecastSnapshot, error) {
	if regionID == s.panicOn {
		panic("store blew up")
	}
	if err := s.forecastErr[regionID]; err != nil {
		return nil, err
	}
	return s.forecasts[regionID], nil
}

func (s *fakeStore) GetBeachDailyScore(beachID string, date time.Time) (*surf.BeachDailyScore, error) {
	return s.scores[beachID], nil
}

func (s *fakeStore) GetBeach(beachID string) (*surf.Beach, error) {
	return s.beaches[beachID], nil
}

func (s *fakeStore) HasExistingCheck(alertID string, date time.Time) (bool, error) {
	day := surf.DateOnly(date)
	for _, c := range s.checks {
		if c.AlertID == alertID && c.Date.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) RecordCheck(c *alert.Check) error {
	c.Date = surf.DateOnly(c.Date)
	s.checks = append(s.checks, c)
	return nil
}

type fakeDispatcher struct {
	calls   int
	succeed bool
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, match alert.MatchResult, a *alert.Alert, contextLabel string) bool {
	d.calls++
	return d.succeed
}

func speed(v float64) *float64 { return &v }

var testDay = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func activeVariablesAlert(id, userID, region string) *alert.Alert {
	return &alert.Alert{
		ID:       id,
		UserID:   userID,
		Name:     "dawn patrol " + id,
		RegionID: region,
		Type:     alert.TypeVariables,
		Properties: []alert.Property{
			{Name: surf.PropWindSpeed, OptimalValue: 15, Range: 2},
		},
		NotificationMethod: alert.MethodEmail,
		ContactInfo:        "surfer@example.com",
		Active:             true,
	}
}

func TestEvaluateUserAlerts_MatchDispatchesAndRecords(t *testing.T) {
	store := newFakeStore()
	store.alerts = []*alert.Alert{activeVariablesAlert("a1", "u1", "jbay")}
	store.forecasts["jbay"] = &surf.ForecastSnapshot{RegionID: "jbay", WindSpeed: speed(16)}
	disp := &fakeDispatcher{succeed: true}

	e := NewEvaluator(store, disp, nil)
	summary := e.EvaluateUserAlerts(context.Background(), "u1", testDay)

	if summary.AlertsChecked != 1 {
		t.Errorf("AlertsChecked = %d, want 1", summary.AlertsChecked)
	}
	if summary.NotificationsSent != 1 {
		t.Errorf("NotificationsSent = %d, want 1", summary.NotificationsSent)
	}
	if summary.Errors != 0 {
		t.Errorf("Errors = %d, want 0", summary.Errors)
	}
	if len(store.checks) != 1 {
		t.Fatalf("expected 1 recorded check, got %d", len(store.checks))
	}
	if !store.checks[0].Matched {
		t.Error("recorded check should be marked matched")
	}
	if disp.calls != 1 {
		t.Errorf("dispatcher called %d times, want 1", disp.calls)
	}
}

func TestEvaluateUserAlerts_PerDayIdempotency(t *testing.T) {
	store := newFakeStore()
	store.alerts = []*alert.Alert{activeVariablesAlert("a1", "u1", "jbay")}
	store.forecasts["jbay"] = &surf.ForecastSnapshot{RegionID: "jbay", WindSpeed: speed(16)}
	disp := &fakeDispatcher{succeed: true}

	e := NewEvaluator(store, disp, nil)
	first := e.EvaluateUserAlerts(context.Background(), "u1", testDay)
	second := e.EvaluateUserAlerts(context.Background(), "u1", testDay)

	if first.NotificationsSent != 1 {
		t.Errorf("first pass NotificationsSent = %d, want 1", first.NotificationsSent)
	}
	if second.NotificationsSent != 0 {
		t.Errorf("second pass NotificationsSent = %d, want 0", second.NotificationsSent)
	}
	if len(store.checks) != 1 {
		t.Errorf("expected exactly 1 check after two passes, got %d", len(store.checks))
	}
	if disp.calls != 1 {
		t.Errorf("dispatcher called %d times across two passes, want 1", disp.calls)
	}
	if second.Outcomes[0].Status != StatusAlreadyChecked {
		t.Errorf("second pass status = %s, want %s", second.Outcomes[0].Status, StatusAlreadyChecked)
	}

	// A different day evaluates again.
	third := e.EvaluateUserAlerts(context.Background(), "u1", testDay.AddDate(0, 0, 1))
	if third.Outcomes[0].Status != StatusSkippedNoData && third.Outcomes[0].Status != StatusMatched {
		// No forecast stored for the next day in this fake, so a skip.
		t.Errorf("unexpected third pass status %s", third.Outcomes[0].Status)
	}
}

func TestEvaluateUserAlerts_PartialFailureIsolation(t *testing.T) {
	store := newFakeStore()
	store.alerts = []*alert.Alert{
		activeVariablesAlert("a1", "u1", "jbay"),
		activeVariablesAlert("a2", "u1", "broken"),
		activeVariablesAlert("a3", "u1", "jbay"),
	}
	store.forecasts["jbay"] = &surf.ForecastSnapshot{RegionID: "jbay", WindSpeed: speed(16)}
	store.forecastErr["broken"] = errors.New("connection reset")
	disp := &fakeDispatcher{succeed: true}

	e := NewEvaluator(store, disp, nil)
	summary := e.EvaluateUserAlerts(context.Background(), "u1", testDay)

	if summary.AlertsChecked != 2 {
		t.Errorf("AlertsChecked = %d, want 2 (alerts 1 and 3)", summary.AlertsChecked)
	}
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}
	if summary.Outcomes[1].Kind != ErrKindCollaborator {
		t.Errorf("failed alert kind = %s, want %s", summary.Outcomes[1].Kind, ErrKindCollaborator)
	}
	if summary.NotificationsSent != 2 {
		t.Errorf("NotificationsSent = %d, want 2", summary.NotificationsSent)
	}
}

func TestEvaluateUserAlerts_PanicIsContained(t *testing.T) {
	store := newFakeStore()
	store.alerts = []*alert.Alert{
		activeVariablesAlert("a1", "u1", "volatile"),
		activeVariablesAlert("a2", "u1", "jbay"),
	}
	store.panicOn = "volatile"
	store.forecasts["jbay"] = &surf.ForecastSnapshot{RegionID: "jbay", WindSpeed: speed(16)}
	disp := &fakeDispatcher{succeed: true}

	e := NewEvaluator(store, disp, nil)
	summary := e.EvaluateUserAlerts(context.Background(), "u1", testDay)

	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}
	if summary.AlertsChecked != 1 {
		t.Errorf("AlertsChecked = %d, want 1 (second alert still runs)", summary.AlertsChecked)
	}
}

func TestEvaluateUserAlerts_MissingDataIsSkipNotError(t *testing.T) {
	store := newFakeStore()
	store.alerts = []*alert.Alert{activeVariablesAlert("a1", "u1", "jbay")}
	// No forecast stored at all.
	disp := &fakeDispatcher{succeed: true}

	e := NewEvaluator(store, disp, nil)
	summary := e.EvaluateUserAlerts(context.Background(), "u1", testDay)

	if summary.Errors != 0 {
		t.Errorf("Errors = %d, want 0: no data yet is expected", summary.Errors)
	}
	if summary.AlertsChecked != 0 {
		t.Errorf("AlertsChecked = %d, want 0", summary.AlertsChecked)
	}
	if summary.Outcomes[0].Status != StatusSkippedNoData {
		t.Errorf("status = %s, want %s", summary.Outcomes[0].Status, StatusSkippedNoData)
	}
	if len(store.checks) != 0 {
		t.Error("no check should be recorded when data is missing")
	}
}

func TestEvaluateUserAlerts_RatingAlertWithUnknownBeachIsConfigError(t *testing.T) {
	store := newFakeStore()
	store.alerts = []*alert.Alert{{
		ID: "r1", UserID: "u1", Name: "weekend", RegionID: "jbay",
		Type: alert.TypeRating, BeachID: "ghost-reef", MinStars: 4,
		NotificationMethod: alert.MethodApp, Active: true,
	}}
	disp := &fakeDispatcher{succeed: true}

	e := NewEvaluator(store, disp, nil)
	summary := e.EvaluateUserAlerts(context.Background(), "u1", testDay)

	if summary.Errors != 1 {
		t.Fatalf("Errors = %d, want 1", summary.Errors)
	}
	if summary.Outcomes[0].Kind != ErrKindConfiguration {
		t.Errorf("kind = %s, want %s", summary.Outcomes[0].Kind, ErrKindConfiguration)
	}
}

func TestEvaluateUserAlerts_RatingAlertMatches(t *testing.T) {
	store := newFakeStore()
	store.alerts = []*alert.Alert{{
		ID: "r1", UserID: "u1", Name: "weekend", RegionID: "jbay",
		Type: alert.TypeRating, BeachID: "supertubes", MinStars: 4,
		NotificationMethod: alert.MethodApp, Active: true,
	}}
	store.beaches["supertubes"] = &surf.Beach{ID: "supertubes", RegionID: "jbay", Name: "Supertubes"}
	store.scores["supertubes"] = &surf.BeachDailyScore{BeachID: "supertubes", StarRating: 5}
	disp := &fakeDispatcher{succeed: true}

	e := NewEvaluator(store, disp, nil)
	summary := e.EvaluateUserAlerts(context.Background(), "u1", testDay)

	if summary.NotificationsSent != 1 {
		t.Errorf("NotificationsSent = %d, want 1", summary.NotificationsSent)
	}

	// Below threshold: checked, not sent.
	store2 := newFakeStore()
	store2.alerts = store.alerts
	store2.beaches["supertubes"] = store.beaches["supertubes"]
	store2.scores["supertubes"] = &surf.BeachDailyScore{BeachID: "supertubes", StarRating: 3}
	e2 := NewEvaluator(store2, disp, nil)
	summary2 := e2.EvaluateUserAlerts(context.Background(), "u1", testDay)

	if summary2.NotificationsSent != 0 {
		t.Errorf("NotificationsSent below threshold = %d, want 0", summary2.NotificationsSent)
	}
	if summary2.AlertsChecked != 1 {
		t.Errorf("AlertsChecked = %d, want 1", summary2.AlertsChecked)
	}
}

func TestEvaluateUserAlerts_DispatchFailureDoesNotCountAsSent(t *testing.T) {
	store := newFakeStore()
	store.alerts = []*alert.Alert{activeVariablesAlert("a1", "u1", "jbay")}
	store.forecasts["jbay"] = &surf.ForecastSnapshot{RegionID: "jbay", WindSpeed: speed(16)}
	disp := &fakeDispatcher{succeed: false}

	e := NewEvaluator(store, disp, nil)
	summary := e.EvaluateUserAlerts(context.Background(), "u1", testDay)

	if summary.NotificationsSent != 0 {
		t.Errorf("NotificationsSent = %d, want 0 on dispatch failure", summary.NotificationsSent)
	}
	if summary.Outcomes[0].Status != StatusMatched {
		t.Errorf("status = %s, want %s", summary.Outcomes[0].Status, StatusMatched)
	}
	if summary.Outcomes[0].Kind != ErrKindDispatch {
		t.Errorf("kind = %s, want %s", summary.Outcomes[0].Kind, ErrKindDispatch)
	}
	// The check is still recorded: the evaluation happened.
	if len(store.checks) != 1 {
		t.Errorf("expected 1 check, got %d", len(store.checks))
	}
}

func TestEvaluateUserAlerts_InactiveAlertsAreInvisible(t *testing.T) {
	store := newFakeStore()
	a := activeVariablesAlert("a1", "u1", "jbay")
	a.Active = false
	store.alerts = []*alert.Alert{a}
	store.forecasts["jbay"] = &surf.ForecastSnapshot{RegionID: "jbay", WindSpeed: speed(16)}
	disp := &fakeDispatcher{succeed: true}

	e := NewEvaluator(store, disp, nil)
	summary := e.EvaluateUserAlerts(context.Background(), "u1", testDay)

	if len(summary.Outcomes) != 0 {
		t.Errorf("disabled alert produced %d outcomes, want 0", len(summary.Outcomes))
	}
}
