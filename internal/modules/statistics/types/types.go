package types

import "time"

// Run is one archived statistics run for a single observation time.
type Run struct {
	ID           string    `json:"id"`
	ObservedAt   time.Time `json:"observedAt"`
	Source       string    `json:"source"`
	StationCount int       `json:"stationCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Statistic is one archived result. Value is nil when the result had no
// valid observations behind it.
type Statistic struct {
	Parameter      string   `json:"parameter"`
	Kind           string   `json:"kind"`
	Value          *float64 `json:"value"`
	StationID      string   `json:"stationId"`
	ReportingCount int      `json:"reportingCount"`
}

// RunStatistics is the response body for a run's statistics.
type RunStatistics struct {
	Run        Run         `json:"run"`
	Statistics []Statistic `json:"statistics"`
}
