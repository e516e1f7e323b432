package surf

import "fmt"

// Property identifies one forecast variable an alert can target.
type Property string

const (
	PropWindSpeed      Property = "windSpeed"
	PropWindDirection  Property = "windDirection"
	PropSwellHeight    Property = "swellHeight"
	PropSwellPeriod    Property = "swellPeriod"
	PropSwellDirection Property = "swellDirection"
)

var knownProperties = map[Property]bool{
	PropWindSpeed:      true,
	PropWindDirection:  true,
	PropSwellHeight:    true,
	PropSwellPeriod:    true,
	PropSwellDirection: true,
}

// ParseProperty validates a property name. Unknown names are rejected here, at
// construction time, so nothing downstream ever looks up a property that does
// not exist.
func ParseProperty(name string) (Property, error) {
	p := Property(name)
	if !knownProperties[p] {
		return "", fmt.Errorf("unknown forecast property: %q", name)
	}
	return p, nil
}

// IsDirection reports whether the property is a compass bearing. Direction
// properties compare by shortest arc on the 0-360 circle, not by subtraction.
func (p Property) IsDirection() bool {
	return p == PropWindDirection || p == PropSwellDirection
}

func (p Property) String() string {
	return string(p)
}
