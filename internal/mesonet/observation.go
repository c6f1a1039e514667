package mesonet

import "math"

// Observation is a single measured value reported by one station.
type Observation struct {
	value     float64
	stationID string
	valid     bool
}

// NewObservation returns an observation. Any finite value is valid; the
// station id may be empty.
func NewObservation(value float64, stationID string) Observation {
	return Observation{
		value:     value,
		stationID: stationID,
		valid:     !math.IsNaN(value) && !math.IsInf(value, 0),
	}
}

func (o Observation) Value() float64    { return o.value }
func (o Observation) StationID() string { return o.stationID }

// Valid reports whether the observation takes part in statistics.
func (o Observation) Valid() bool { return o.valid }
