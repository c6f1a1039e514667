package mesonet

import "fmt"

// BuildFileName returns the observation file name for a reporting time,
// "<dir>YYYYMMDDHHmm.mdf". dir is prepended verbatim.
func BuildFileName(year, month, day, hour, minute int, dir string) string {
	return fmt.Sprintf("%s%04d%02d%02d%02d%02d.mdf", dir, year, month, day, hour, minute)
}

// FileNameFor is BuildFileName for a Timestamp.
func FileNameFor(ts Timestamp, dir string) string {
	t := ts.Time()
	return BuildFileName(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), dir)
}
