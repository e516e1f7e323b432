package surf

// OptimalProfile describes the conditions under which a beach works best.
// Each beach row carries one; the scorer grades a forecast against it.
type OptimalProfile struct {
	WindDirection      float64 // ideal offshore bearing, degrees
	WindDirectionSpan  float64 // degrees either side still considered clean
	MaxWindSpeed       float64 // knots above which the surface blows out
	MinSwellHeight     float64 // metres
	MaxSwellHeight     float64 // metres
	MinSwellPeriod     float64 // seconds
	SwellDirection     float64 // ideal swell bearing, degrees
	SwellDirectionSpan float64
}

// Component weights. Swell size carries the most, wind quality next.
const (
	weightSwellHeight    = 35.0
	weightWindDirection  = 25.0
	weightWindSpeed      = 15.0
	weightSwellPeriod    = 15.0
	weightSwellDirection = 10.0
)

// ScoreForecast grades a forecast snapshot against a beach profile on a 0-100
// scale. Variables missing from the snapshot contribute zero, so a sparse
// scrape produces a low score rather than an error.
func ScoreForecast(profile OptimalProfile, f *ForecastSnapshot) float64 {
	if f == nil {
		return 0
	}

	score := 0.0

	if h, ok := f.Value(PropSwellHeight); ok {
		if h >= profile.MinSwellHeight && h <= profile.MaxSwellHeight {
			score += weightSwellHeight
		} else if h > 0 && h >= profile.MinSwellHeight/2 {
			// Rideable but outside the window
			score += weightSwellHeight / 2
		}
	}

	if d, ok := f.Value(PropWindDirection); ok {
		diff := AngularDifference(d, profile.WindDirection)
		if diff <= profile.WindDirectionSpan {
			score += weightWindDirection
		} else if diff <= profile.WindDirectionSpan*2 {
			score += weightWindDirection / 2
		}
	}

	if s, ok := f.Value(PropWindSpeed); ok {
		switch {
		case s <= profile.MaxWindSpeed/2:
			score += weightWindSpeed
		case s <= profile.MaxWindSpeed:
			score += weightWindSpeed / 2
		}
	}

	if p, ok := f.Value(PropSwellPeriod); ok && p >= profile.MinSwellPeriod {
		score += weightSwellPeriod
	}

	if d, ok := f.Value(PropSwellDirection); ok {
		if AngularDifference(d, profile.SwellDirection) <= profile.SwellDirectionSpan {
			score += weightSwellDirection
		}
	}

	return score
}

// StarsForScore maps a 0-100 score onto the 1-5 star scale shown on the
// dashboard. A zero score means no usable data and yields zero stars, which
// never satisfies a rating alert.
func StarsForScore(score float64) int {
	switch {
	case score <= 0:
		return 0
	case score >= 90:
		return 5
	case score >= 75:
		return 4
	case score >= 55:
		return 3
	case score >= 35:
		return 2
	default:
		return 1
	}
}
