package alert

import (
	"fmt"
	"math"
	"strings"

	"github.com/tideraider/surf-alert-server/internal/surf"
)

// PropertyComparison is the per-property verdict inside a MatchResult. The
// list is used verbatim for both the audit record and the notification body,
// so it carries everything a reader needs to see why the alert did or did not
// fire.
type PropertyComparison struct {
	Property    surf.Property `json:"property"`
	TargetValue float64       `json:"target_value"`
	ActualValue float64       `json:"actual_value"`
	Difference  float64       `json:"difference"`
	WithinRange bool          `json:"within_range"`
	DataMissing bool          `json:"data_missing,omitempty"`
}

// MatchResult is the matcher's full verdict for one alert against one day's
// conditions.
type MatchResult struct {
	Matched    bool                 `json:"matched"`
	Properties []PropertyComparison `json:"properties,omitempty"`
	// Rating-mode fields; zero for VARIABLES alerts.
	RequiredStars int `json:"required_stars,omitempty"`
	ActualStars   int `json:"actual_stars,omitempty"`

	Summary string `json:"summary"`
}

// MatchConditions compares one alert against one day's conditions and returns
// the full verdict. It performs no I/O and never logs; callers own both.
//
// VARIABLES mode: every configured property must lie within its tolerance of
// the target (logical AND, no partial credit). Direction properties compare
// by shortest arc. A property absent from the snapshot fails closed.
//
// RATING mode: the beach's derived star rating must meet the threshold,
// inclusive. A nil score fails closed.
//
// An alert with zero properties matches vacuously (AND over the empty set);
// Alert.Validate rejects such alerts upstream.
func MatchConditions(a *Alert, forecast *surf.ForecastSnapshot, score *surf.BeachDailyScore) MatchResult {
	if a.Type == TypeRating {
		return matchRating(a, score)
	}
	return matchVariables(a, forecast)
}

func matchVariables(a *Alert, forecast *surf.ForecastSnapshot) MatchResult {
	result := MatchResult{Matched: true}

	for _, prop := range a.Properties {
		cmp := PropertyComparison{
			Property:    prop.Name,
			TargetValue: prop.OptimalValue,
		}

		var actual float64
		var ok bool
		if forecast != nil {
			actual, ok = forecast.Value(prop.Name)
		}
		if !ok {
			// Fail closed: missing data is never a match.
			cmp.DataMissing = true
			cmp.WithinRange = false
			result.Matched = false
			result.Properties = append(result.Properties, cmp)
			continue
		}

		cmp.ActualValue = actual
		if prop.Name.IsDirection() {
			cmp.Difference = surf.AngularDifference(actual, prop.OptimalValue)
		} else {
			cmp.Difference = math.Abs(actual - prop.OptimalValue)
		}
		cmp.WithinRange = cmp.Difference <= prop.Range
		if !cmp.WithinRange {
			result.Matched = false
		}
		result.Properties = append(result.Properties, cmp)
	}

	result.Summary = summarizeVariables(a, result)
	return result
}

func matchRating(a *Alert, score *surf.BeachDailyScore) MatchResult {
	result := MatchResult{RequiredStars: a.MinStars}

	if score == nil {
		result.Summary = fmt.Sprintf("%s: no rating available yet (need %d stars)", a.Name, a.MinStars)
		return result
	}

	result.ActualStars = score.StarRating
	result.Matched = score.StarRating >= a.MinStars
	if result.Matched {
		result.Summary = fmt.Sprintf("%s: rated %d stars (needed %d)", a.Name, score.StarRating, a.MinStars)
	} else {
		result.Summary = fmt.Sprintf("%s: rated %d stars, below the %d star threshold", a.Name, score.StarRating, a.MinStars)
	}
	return result
}

func summarizeVariables(a *Alert, result MatchResult) string {
	var b strings.Builder
	if result.Matched {
		fmt.Fprintf(&b, "%s: all %d conditions met", a.Name, len(result.Properties))
	} else {
		fmt.Fprintf(&b, "%s: conditions not met", a.Name)
	}
	for _, cmp := range result.Properties {
		if cmp.DataMissing {
			fmt.Fprintf(&b, "; %s no data (target %.1f)", cmp.Property, cmp.TargetValue)
			continue
		}
		state := "off by"
		if cmp.WithinRange {
			state = "within"
		}
		fmt.Fprintf(&b, "; %s %.1f vs target %.1f (%s %.1f)",
			cmp.Property, cmp.ActualValue, cmp.TargetValue, state, cmp.Difference)
	}
	return b.String()
}
