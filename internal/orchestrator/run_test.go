package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tideraider/surf-alert-server/internal/alerting"
	"github.com/tideraider/surf-alert-server/internal/surf"
)

type fakeStore struct {
	regions []*surf.Region
	beaches map[string][]*surf.Beach
	users   []string

	forecasts map[string]*surf.ForecastSnapshot
	scores    map[string]*surf.BeachDailyScore

	listUsersErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		beaches:   make(map[string][]*surf.Beach),
		forecasts: make(map[string]*surf.ForecastSnapshot),
		scores:    make(map[string]*surf.BeachDailyScore),
	}
}

func (s *fakeStore) ListRegions() ([]*surf.Region, error) { return s.regions, nil }

func (s *fakeStore) ListBeachesForRegion(regionID string) ([]*surf.Beach, error) {
	return s.beaches[regionID], nil
}

func (s *fakeStore) UpsertForecast(f *surf.ForecastSnapshot) error {
	s.forecasts[f.RegionID] = f
	return nil
}

func (s *fakeStore) UpsertBeachDailyScore(score *surf.BeachDailyScore) error {
	s.scores[score.BeachID] = score
	return nil
}

func (s *fakeStore) ListUserIDsWithActiveAlerts() ([]string, error) {
	if s.listUsersErr != nil {
		return nil, s.listUsersErr
	}
	return s.users, nil
}

type fakeRefresher struct {
	failOn map[string]bool
	calls  []string
}

func (r *fakeRefresher) RefreshForecastForRegion(ctx context.Context, region *surf.Region) (*surf.ForecastSnapshot, error) {
	r.calls = append(r.calls, region.ID)
	if r.failOn[region.ID] {
		return nil, errors.New("scrape blocked")
	}
	wind := 10.0
	height := 2.0
	return &surf.ForecastSnapshot{
		RegionID:    region.ID,
		WindSpeed:   &wind,
		SwellHeight: &height,
		ScrapedAt:   time.Now().UTC(),
	}, nil
}

type fakeEvaluator struct {
	summaries map[string]alerting.Summary
	evaluated []string
}

func (e *fakeEvaluator) EvaluateUserAlerts(ctx context.Context, userID string, asOfDate time.Time) alerting.Summary {
	e.evaluated = append(e.evaluated, userID)
	if s, ok := e.summaries[userID]; ok {
		return s
	}
	return alerting.Summary{UserID: userID}
}

var day = time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)

func TestRun_HappyPath(t *testing.T) {
	store := newFakeStore()
	store.regions = []*surf.Region{{ID: "jbay"}, {ID: "durban"}}
	store.beaches["jbay"] = []*surf.Beach{{ID: "supertubes", RegionID: "jbay"}}
	store.users = []string{"u1", "u2"}

	eval := &fakeEvaluator{summaries: map[string]alerting.Summary{
		"u1": {UserID: "u1", AlertsChecked: 2, NotificationsSent: 1},
		"u2": {UserID: "u2", AlertsChecked: 1},
	}}

	o := New(store, &fakeRefresher{}, eval, nil, 0)
	report := o.Run(context.Background(), day)

	if report.State != StateDone {
		t.Errorf("State = %s, want %s", report.State, StateDone)
	}
	if report.RegionsRefreshed != 2 || report.RegionFailures != 0 {
		t.Errorf("regions refreshed=%d failures=%d, want 2 and 0", report.RegionsRefreshed, report.RegionFailures)
	}
	if report.UsersProcessed != 2 {
		t.Errorf("UsersProcessed = %d, want 2", report.UsersProcessed)
	}
	if report.AlertsChecked != 3 || report.NotificationsSent != 1 {
		t.Errorf("checked=%d sent=%d, want 3 and 1", report.AlertsChecked, report.NotificationsSent)
	}
	if _, ok := store.forecasts["jbay"]; !ok {
		t.Error("jbay forecast was not stored")
	}
	if _, ok := store.scores["supertubes"]; !ok {
		t.Error("supertubes score was not stored")
	}
	if report.RunID == "" {
		t.Error("run should get an id")
	}
}

func TestRun_RegionFailureIsIsolated(t *testing.T) {
	store := newFakeStore()
	store.regions = []*surf.Region{{ID: "jbay"}, {ID: "blocked"}, {ID: "durban"}}

	refresher := &fakeRefresher{failOn: map[string]bool{"blocked": true}}
	o := New(store, refresher, &fakeEvaluator{}, nil, 0)
	report := o.Run(context.Background(), day)

	if report.RegionsRefreshed != 2 {
		t.Errorf("RegionsRefreshed = %d, want 2", report.RegionsRefreshed)
	}
	if report.RegionFailures != 1 {
		t.Errorf("RegionFailures = %d, want 1", report.RegionFailures)
	}
	if len(refresher.calls) != 3 {
		t.Errorf("refresher called %d times, want 3: a failed region must not stop the rest", len(refresher.calls))
	}
	if report.State != StateDone {
		t.Errorf("State = %s, want %s", report.State, StateDone)
	}
}

func TestRun_RegionsProcessedSequentiallyInOrder(t *testing.T) {
	store := newFakeStore()
	store.regions = []*surf.Region{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	refresher := &fakeRefresher{}
	o := New(store, refresher, &fakeEvaluator{}, nil, 0)
	o.Run(context.Background(), day)

	want := []string{"a", "b", "c"}
	for i := range want {
		if refresher.calls[i] != want[i] {
			t.Fatalf("scrape order = %v, want %v", refresher.calls, want)
		}
	}
}

func TestRun_UserListFailureStillFinishes(t *testing.T) {
	store := newFakeStore()
	store.regions = []*surf.Region{{ID: "jbay"}}
	store.listUsersErr = errors.New("db down")

	o := New(store, &fakeRefresher{}, &fakeEvaluator{}, nil, 0)
	report := o.Run(context.Background(), day)

	if report.State != StateDone {
		t.Errorf("State = %s, want %s: run completes with the failure counted", report.State, StateDone)
	}
	if report.Errors != 1 {
		t.Errorf("Errors = %d, want 1", report.Errors)
	}
	if report.RegionsRefreshed != 1 {
		t.Errorf("RegionsRefreshed = %d, want 1: refresh stage already ran", report.RegionsRefreshed)
	}
}

func TestRun_ErrorsAggregateAcrossUsers(t *testing.T) {
	store := newFakeStore()
	store.users = []string{"u1", "u2", "u3"}

	eval := &fakeEvaluator{summaries: map[string]alerting.Summary{
		"u2": {UserID: "u2", Errors: 2},
	}}
	o := New(store, &fakeRefresher{}, eval, nil, 0)
	report := o.Run(context.Background(), day)

	if report.UsersProcessed != 3 {
		t.Errorf("UsersProcessed = %d, want 3: a failing user must not stop the rest", report.UsersProcessed)
	}
	if report.Errors != 2 {
		t.Errorf("Errors = %d, want 2", report.Errors)
	}
	if len(eval.evaluated) != 3 {
		t.Errorf("evaluated users %v, want all 3", eval.evaluated)
	}
}

func TestNextRunTime(t *testing.T) {
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

	next, err := NextRunTime(now, "06:00")
	if err != nil {
		t.Fatalf("NextRunTime failed: %v", err)
	}
	want := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("past today's time: next = %v, want %v", next, want)
	}

	next, err = NextRunTime(now, "22:30")
	if err != nil {
		t.Fatalf("NextRunTime failed: %v", err)
	}
	want = time.Date(2026, 3, 14, 22, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("before today's time: next = %v, want %v", next, want)
	}

	if _, err := NextRunTime(now, "late"); err == nil {
		t.Error("invalid time format should fail")
	}
}
