package alerting

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tideraider/surf-alert-server/internal/alert"
	"github.com/tideraider/surf-alert-server/internal/surf"
)

// Store is the data-access collaborator the evaluator reads and writes
// through. The orchestrator injects the Postgres implementation; tests
// inject fakes.
type Store interface {
	GetActiveAlertsForUser(userID string) ([]*alert.Alert, error)
	GetForecast(regionID string, date time.Time) (*surf.ForecastSnapshot, error)
	GetBeachDailyScore(beachID string, date time.Time) (*surf.BeachDailyScore, error)
	GetBeach(beachID string) (*surf.Beach, error)
	HasExistingCheck(alertID string, date time.Time) (bool, error)
	RecordCheck(c *alert.Check) error
}

// Dispatcher delivers a matched alert through its configured channel and
// reports whether at least one send was confirmed.
type Dispatcher interface {
	Dispatch(ctx context.Context, match alert.MatchResult, a *alert.Alert, contextLabel string) bool
}

// Status classifies one alert's evaluation outcome.
type Status string

const (
	StatusMatched        Status = "MATCHED"
	StatusNoMatch        Status = "NO_MATCH"
	StatusSkippedNoData  Status = "SKIPPED_NO_DATA"
	StatusAlreadyChecked Status = "ALREADY_CHECKED"
	StatusError          Status = "ERROR"
)

// ErrorKind names the failure taxonomy. Skips for missing data are not
// errors; everything else is counted but never aborts the loop.
type ErrorKind string

const (
	ErrKindNone          ErrorKind = ""
	ErrKindConfiguration ErrorKind = "CONFIGURATION"
	ErrKindCollaborator  ErrorKind = "COLLABORATOR"
	ErrKindDispatch      ErrorKind = "DISPATCH"
)

// Outcome is the explicit per-alert result. Returning these instead of
// letting errors propagate makes the continue-on-failure policy part of the
// contract.
type Outcome struct {
	AlertID string
	Status  Status
	Kind    ErrorKind
	Err     error
	Sent    bool
}

// Summary aggregates one user's evaluation pass.
type Summary struct {
	UserID            string
	AlertsChecked     int
	NotificationsSent int
	Errors            int
	Outcomes          []Outcome
}

// Evaluator runs the per-user alert evaluation loop. All collaborators are
// injected; the evaluator holds no global state.
type Evaluator struct {
	store      Store
	dispatcher Dispatcher
	guard      *DayGuard // optional Redis fast path, may be nil
}

// NewEvaluator creates an evaluator. guard may be nil, in which case
// idempotency relies on the store check alone.
func NewEvaluator(store Store, dispatcher Dispatcher, guard *DayGuard) *Evaluator {
	return &Evaluator{
		store:      store,
		dispatcher: dispatcher,
		guard:      guard,
	}
}

// EvaluateUserAlerts processes every active alert belonging to the user for
// the given day, sequentially. A failure in one alert never aborts the rest.
func (e *Evaluator) EvaluateUserAlerts(ctx context.Context, userID string, asOfDate time.Time) Summary {
	summary := Summary{UserID: userID}
	day := surf.DateOnly(asOfDate)

	alerts, err := e.store.GetActiveAlertsForUser(userID)
	if err != nil {
		log.Printf("Failed to load alerts for user %s: %v", userID, err)
		summary.Errors++
		summary.Outcomes = append(summary.Outcomes, Outcome{
			Status: StatusError,
			Kind:   ErrKindCollaborator,
			Err:    err,
		})
		return summary
	}

	for _, a := range alerts {
		outcome := e.evaluateOne(ctx, a, day)
		summary.Outcomes = append(summary.Outcomes, outcome)

		switch outcome.Status {
		case StatusMatched, StatusNoMatch:
			summary.AlertsChecked++
		case StatusError:
			summary.Errors++
		}
		if outcome.Sent {
			summary.NotificationsSent++
		}
	}

	return summary
}

// evaluateOne runs steps 1-6 for a single alert and converts every failure,
// including panics from collaborators, into an Outcome.
func (e *Evaluator) evaluateOne(ctx context.Context, a *alert.Alert, day time.Time) (outcome Outcome) {
	outcome = Outcome{AlertID: a.ID}

	defer func() {
		if r := recover(); r != nil {
			outcome.Status = StatusError
			outcome.Kind = ErrKindCollaborator
			outcome.Err = fmt.Errorf("panic evaluating alert %s: %v", a.ID, r)
			log.Printf("Recovered while evaluating alert %s: %v", a.ID, r)
		}
	}()

	// Step 1: resolve the comparison target.
	if err := a.Validate(); err != nil {
		outcome.Status = StatusError
		outcome.Kind = ErrKindConfiguration
		outcome.Err = err
		return outcome
	}

	// Step 2: fetch today's data. Missing data is expected while scrapes
	// are still in flight, so it is a skip, not an error.
	var forecast *surf.ForecastSnapshot
	var score *surf.BeachDailyScore
	contextLabel := a.RegionID

	switch a.Type {
	case alert.TypeVariables:
		f, err := e.store.GetForecast(a.RegionID, day)
		if err != nil {
			outcome.Status = StatusError
			outcome.Kind = ErrKindCollaborator
			outcome.Err = fmt.Errorf("failed to fetch forecast: %w", err)
			return outcome
		}
		if f == nil {
			outcome.Status = StatusSkippedNoData
			return outcome
		}
		forecast = f

	case alert.TypeRating:
		beach, err := e.store.GetBeach(a.BeachID)
		if err != nil {
			outcome.Status = StatusError
			outcome.Kind = ErrKindCollaborator
			outcome.Err = fmt.Errorf("failed to fetch beach: %w", err)
			return outcome
		}
		if beach == nil {
			outcome.Status = StatusError
			outcome.Kind = ErrKindConfiguration
			outcome.Err = fmt.Errorf("rating alert %s references unknown beach %s", a.ID, a.BeachID)
			return outcome
		}
		contextLabel = beach.Name

		s, err := e.store.GetBeachDailyScore(a.BeachID, day)
		if err != nil {
			outcome.Status = StatusError
			outcome.Kind = ErrKindCollaborator
			outcome.Err = fmt.Errorf("failed to fetch beach score: %w", err)
			return outcome
		}
		if s == nil {
			outcome.Status = StatusSkippedNoData
			return outcome
		}
		score = s
	}

	// Step 3: per-day idempotency. The Redis guard is only a fast path;
	// the store check is authoritative.
	if e.guard != nil {
		if checked, err := e.guard.AlreadyChecked(ctx, a.ID, day); err == nil && checked {
			outcome.Status = StatusAlreadyChecked
			return outcome
		}
	}
	exists, err := e.store.HasExistingCheck(a.ID, day)
	if err != nil {
		outcome.Status = StatusError
		outcome.Kind = ErrKindCollaborator
		outcome.Err = fmt.Errorf("failed idempotency check: %w", err)
		return outcome
	}
	if exists {
		outcome.Status = StatusAlreadyChecked
		return outcome
	}

	// Step 4: run the matcher.
	match := alert.MatchConditions(a, forecast, score)

	// Step 5: record the check whatever the verdict.
	check := &alert.Check{
		AlertID:   a.ID,
		Date:      day,
		Matched:   match.Matched,
		Details:   match.Summary,
		CheckedAt: time.Now().UTC(),
	}
	if err := e.store.RecordCheck(check); err != nil {
		outcome.Status = StatusError
		outcome.Kind = ErrKindCollaborator
		outcome.Err = fmt.Errorf("failed to record check: %w", err)
		return outcome
	}
	if e.guard != nil {
		if err := e.guard.MarkChecked(ctx, a.ID, day); err != nil {
			// Guard write failure costs only the fast path next time.
			log.Printf("Failed to mark day guard for alert %s: %v", a.ID, err)
		}
	}

	if !match.Matched {
		outcome.Status = StatusNoMatch
		return outcome
	}
	outcome.Status = StatusMatched

	// Step 6: dispatch. The dispatcher records per-channel attempts; the
	// sent counter only moves on a confirmed send.
	if e.dispatcher.Dispatch(ctx, match, a, contextLabel) {
		outcome.Sent = true
	} else {
		outcome.Kind = ErrKindDispatch
		outcome.Err = fmt.Errorf("dispatch failed for alert %s", a.ID)
	}

	return outcome
}
