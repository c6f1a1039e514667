package mesonet

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// Compute reduces one observation sequence in a single pass. Only valid
// observations count. Extremes are replaced on a strictly smaller or larger
// value, so the first station to report an extreme keeps it on ties.
//
// With no valid observations the minimum is +Inf, the maximum -Inf, the
// average NaN, and the minimum and maximum carry no station.
func Compute(obs []Observation, ts Timestamp) Statistics {
	var total float64
	var count int32
	var loStation, hiStation string
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, o := range obs {
		if !o.Valid() {
			continue
		}
		count++
		total += o.Value()
		if o.Value() < lo {
			lo = o.Value()
			loStation = o.StationID()
		}
		if o.Value() > hi {
			hi = o.Value()
			hiStation = o.StationID()
		}
	}

	avg := math.NaN()
	if count > 0 {
		avg = total / float64(count)
	}

	return Statistics{
		Minimum: NewStatisticResult(lo, loStation, ts, count, Minimum),
		Maximum: NewStatisticResult(hi, hiStation, ts, count, Maximum),
		Average: NewStatisticResult(avg, MesonetStationID, ts, count, Average),
	}
}

// Aggregate computes the statistics of every parameter in c. Parameters are
// reduced concurrently; each goroutine reads its own sequence and writes its
// own slot. Only a cancelled ctx makes it fail.
func Aggregate(ctx context.Context, c *Catalog) (*Summary, error) {
	params := c.Parameters()
	stats := make([]Statistics, len(params))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range params {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			stats[i] = Compute(c.series[p], c.timestamp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(params)*len(Kinds))
	for i, p := range params {
		for _, k := range Kinds {
			entries = append(entries, Entry{Parameter: p, Result: stats[i].Get(k)})
		}
	}
	return NewSummary(c.timestamp, c.stationCount, entries)
}
