package surf

// Region is a monitored forecast area. Every alert targets exactly one.
type Region struct {
	ID          string
	Name        string
	ForecastURL string
}

// Beach belongs to one region and carries the optimal-conditions profile its
// daily score is graded against.
type Beach struct {
	ID       string
	RegionID string
	Name     string
	Profile  OptimalProfile
}
