package surf

import (
	"time"
)

// ForecastSnapshot holds one region's forecast for one date. One row exists
// per (region, date); the scraper upserts and never duplicates.
type ForecastSnapshot struct {
	ID             int64
	RegionID       string
	Date           time.Time
	WindSpeed      *float64
	WindDirection  *float64
	SwellHeight    *float64
	SwellPeriod    *float64
	SwellDirection *float64
	ScrapedAt      time.Time
}

// Value returns the snapshot's reading for the given property. The second
// return is false when the scraper did not capture that variable; callers
// must fail closed on it.
func (f *ForecastSnapshot) Value(p Property) (float64, bool) {
	var v *float64
	switch p {
	case PropWindSpeed:
		v = f.WindSpeed
	case PropWindDirection:
		v = f.WindDirection
	case PropSwellHeight:
		v = f.SwellHeight
	case PropSwellPeriod:
		v = f.SwellPeriod
	case PropSwellDirection:
		v = f.SwellDirection
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// BeachDailyScore is the computed quality of one beach on one date.
type BeachDailyScore struct {
	BeachID    string
	Date       time.Time
	Score      float64
	StarRating int
	CreatedAt  time.Time
}

// AngularDifference returns the shortest arc between two compass bearings in
// degrees, always in [0, 180]. Comparing 350 and 10 yields 20, not 340.
func AngularDifference(a, b float64) float64 {
	diff := a - b
	for diff < 0 {
		diff += 360
	}
	for diff >= 360 {
		diff -= 360
	}
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// DateOnly truncates a timestamp to its UTC calendar day. Idempotency and
// score rows key on this value.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
