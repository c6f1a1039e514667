package mesonet

import (
	"fmt"
	"slices"
)

// MesonetStationID attributes averages, which belong to the whole network
// rather than one station.
const MesonetStationID = "Mesonet"

// Kind identifies which statistic a result holds.
type Kind int

const (
	Minimum Kind = iota
	Maximum
	Average
)

// Kinds lists every statistic kind.
var Kinds = []Kind{Minimum, Maximum, Average}

func (k Kind) String() string {
	switch k {
	case Minimum:
		return "MINIMUM"
	case Maximum:
		return "MAXIMUM"
	case Average:
		return "AVERAGE"
	default:
		return "UNKNOWN"
	}
}

// Label is the capitalised word used in reports ("Maximum").
func (k Kind) Label() string {
	switch k {
	case Minimum:
		return "Minimum"
	case Maximum:
		return "Maximum"
	case Average:
		return "Average"
	default:
		return ""
	}
}

// ParseKind accepts the String form of a Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// StatisticResult is one summary value for a parameter at one timestamp.
type StatisticResult struct {
	obs            Observation
	timestamp      Timestamp
	reportingCount int32
	kind           Kind
}

// NewStatisticResult builds a result. Average results always carry
// MesonetStationID regardless of stationID.
func NewStatisticResult(value float64, stationID string, ts Timestamp, reportingCount int32, kind Kind) StatisticResult {
	if kind == Average {
		stationID = MesonetStationID
	}
	return StatisticResult{
		obs:            NewObservation(value, stationID),
		timestamp:      ts,
		reportingCount: reportingCount,
		kind:           kind,
	}
}

func (r StatisticResult) Value() float64        { return r.obs.Value() }
func (r StatisticResult) StationID() string     { return r.obs.StationID() }
func (r StatisticResult) Timestamp() Timestamp  { return r.timestamp }
func (r StatisticResult) ReportingCount() int32 { return r.reportingCount }
func (r StatisticResult) Kind() Kind            { return r.kind }

// Statistics groups the three results of one parameter.
type Statistics struct {
	Minimum StatisticResult
	Maximum StatisticResult
	Average StatisticResult
}

// Get returns the result of kind k.
func (s Statistics) Get(k Kind) StatisticResult {
	switch k {
	case Minimum:
		return s.Minimum
	case Maximum:
		return s.Maximum
	default:
		return s.Average
	}
}

// Entry pairs a result with the parameter it summarises.
type Entry struct {
	Parameter Parameter
	Result    StatisticResult
}

type resultKey struct {
	param Parameter
	kind  Kind
}

// Summary is the result table of one run. A Summary always holds all three
// kinds for each of its parameters.
type Summary struct {
	timestamp    Timestamp
	stationCount int
	params       []Parameter
	results      map[resultKey]StatisticResult
}

// NewSummary assembles a Summary from entries and rejects tables where a
// parameter lacks one of the kinds or holds duplicates.
func NewSummary(ts Timestamp, stationCount int, entries []Entry) (*Summary, error) {
	s := &Summary{
		timestamp:    ts,
		stationCount: stationCount,
		results:      make(map[resultKey]StatisticResult, len(entries)),
	}
	for _, e := range entries {
		key := resultKey{param: e.Parameter, kind: e.Result.Kind()}
		if _, dup := s.results[key]; dup {
			return nil, fmt.Errorf("duplicate %s result for %s", key.kind, key.param)
		}
		s.results[key] = e.Result
		if !slices.Contains(s.params, e.Parameter) {
			s.params = append(s.params, e.Parameter)
		}
	}
	slices.Sort(s.params)
	for _, p := range s.params {
		for _, k := range Kinds {
			if _, ok := s.results[resultKey{param: p, kind: k}]; !ok {
				return nil, fmt.Errorf("missing %s result for %s", k, p)
			}
		}
	}
	return s, nil
}

func (s *Summary) Timestamp() Timestamp { return s.timestamp }
func (s *Summary) StationCount() int    { return s.stationCount }

// Parameters returns the summarised parameters in report order.
func (s *Summary) Parameters() []Parameter { return slices.Clone(s.params) }

// Get returns the result for parameter p and kind k.
func (s *Summary) Get(p Parameter, k Kind) (StatisticResult, bool) {
	r, ok := s.results[resultKey{param: p, kind: k}]
	return r, ok
}

// Statistics returns the three results of parameter p.
func (s *Summary) Statistics(p Parameter) (Statistics, bool) {
	if !slices.Contains(s.params, p) {
		return Statistics{}, false
	}
	return Statistics{
		Minimum: s.results[resultKey{param: p, kind: Minimum}],
		Maximum: s.results[resultKey{param: p, kind: Maximum}],
		Average: s.results[resultKey{param: p, kind: Average}],
	}, true
}

// Entries lists every result ordered by parameter, then kind.
func (s *Summary) Entries() []Entry {
	out := make([]Entry, 0, len(s.results))
	for _, p := range s.params {
		for _, k := range Kinds {
			out = append(out, Entry{Parameter: p, Result: s.results[resultKey{param: p, kind: k}]})
		}
	}
	return out
}
