package alert

import (
	"fmt"
	"time"

	"github.com/tideraider/surf-alert-server/internal/surf"
)

// Type selects the evaluation strategy for an alert. The two modes are
// mutually exclusive.
type Type string

const (
	TypeVariables Type = "VARIABLES"
	TypeRating    Type = "RATING"
)

// NotificationMethod selects the delivery channel.
type NotificationMethod string

const (
	MethodEmail    NotificationMethod = "email"
	MethodWhatsApp NotificationMethod = "whatsapp"
	MethodApp      NotificationMethod = "app"
	MethodBoth     NotificationMethod = "both"
)

// SourceType records where a property's target value came from.
type SourceType string

const (
	SourceBeachOptimal SourceType = "beach_optimal"
	SourceLogEntry     SourceType = "log_entry"
	SourceCustom       SourceType = "custom"
)

// Alert is a user-defined rule that fires a notification when forecast or
// rating conditions match the configured targets.
type Alert struct {
	ID         string
	UserID     string
	Name       string
	RegionID   string
	BeachID    string // required for RATING mode, optional otherwise
	LogEntryID string // reference only, not ownership

	Type       Type
	Properties []Property // VARIABLES mode
	MinStars   int        // RATING mode, 1-5, inclusive threshold

	ForecastDate       time.Time
	NotificationMethod NotificationMethod
	ContactInfo        string
	Active             bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Property is one configured comparison target. Owned exclusively by its
// alert; on edit the set is replaced wholesale, never patched.
type Property struct {
	Name         surf.Property
	OptimalValue float64
	Range        float64 // tolerance, same units as the property
	Source       SourceType
}

// Validate reports configuration problems that make an alert unevaluable.
// These count as ConfigurationError at evaluation time; an invalid alert is
// skipped, never fatal to the loop.
func (a *Alert) Validate() error {
	switch a.Type {
	case TypeVariables:
		if len(a.Properties) == 0 {
			return fmt.Errorf("alert %s has no configured properties", a.ID)
		}
	case TypeRating:
		if a.BeachID == "" {
			return fmt.Errorf("rating alert %s has no beach", a.ID)
		}
		if a.MinStars < 1 || a.MinStars > 5 {
			return fmt.Errorf("rating alert %s has star threshold %d outside 1-5", a.ID, a.MinStars)
		}
	default:
		return fmt.Errorf("alert %s has unknown type %q", a.ID, a.Type)
	}
	return nil
}

// Check is the append-only record of one evaluation attempt for one alert on
// one day. At most one exists per (alert, calendar day); that invariant is
// what makes notification delivery idempotent per day.
type Check struct {
	ID        int64
	AlertID   string
	Date      time.Time
	Matched   bool
	Details   string // matcher summary, stored verbatim
	CheckedAt time.Time
}

// Notification is the append-only record of one dispatch attempt. Never
// mutated after insert.
type Notification struct {
	ID      int64
	AlertID string
	Channel NotificationMethod
	Success bool
	Details string
	SentAt  time.Time
}
