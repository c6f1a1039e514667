package mesonet

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// compactLayout is the YYYYMMDDHHmm form used in file names and URLs.
// compactSecondsLayout adds seconds for instants that are not on a minute.
const (
	compactLayout        = "200601021504"
	compactSecondsLayout = "20060102150405"
)

// Timestamp is a calendar instant normalised to UTC with second precision.
type Timestamp struct {
	t time.Time
}

// NewTimestamp builds a UTC timestamp. Out-of-range fields are normalised the
// way time.Date does it (October 32 becomes November 1).
func NewTimestamp(year int, month time.Month, day, hour, minute, second int) Timestamp {
	return Timestamp{t: time.Date(year, month, day, hour, minute, second, 0, time.UTC)}
}

// TimestampFromTime converts t to UTC and drops sub-second precision.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp{t: t.UTC().Truncate(time.Second)}
}

func (ts Timestamp) Time() time.Time { return ts.t }
func (ts Timestamp) IsZero() bool    { return ts.t.IsZero() }

// String returns the canonical text form, see FormatTimestamp.
func (ts Timestamp) String() string { return FormatTimestamp(ts) }

// Compact returns the YYYYMMDDHHmm form, or YYYYMMDDHHmmss when the seconds
// are not zero.
func (ts Timestamp) Compact() string {
	if ts.t.Second() != 0 {
		return ts.t.Format(compactSecondsLayout)
	}
	return ts.t.Format(compactLayout)
}

// FormatTimestamp renders ts as "YYYY-MM-DD HH:MM:SS UTC". The year is not
// padded; the month is one-based.
func FormatTimestamp(ts Timestamp) string {
	t := ts.t
	return fmt.Sprintf("%d-%02d-%02d %02d:%02d:%02d UTC",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

var timestampFields = [...]string{"year", "month", "day", "hour", "minute", "second"}

// ParseTimestamp reads a timestamp from text split on '-', ':' and whitespace.
// Text without any '-' is the observation file variant that carries one
// leading token before the year ("  115 2018 08 30 17 45 00"); that token is
// skipped. Trailing tokens such as the zone name are ignored and the result
// is always UTC.
func ParseTimestamp(text string) (Timestamp, error) {
	text = strings.TrimSpace(text)

	offset := 0
	if !strings.Contains(text, "-") {
		offset = 1
	}

	tokens := strings.FieldsFunc(text, isTimestampSeparator)
	if len(tokens) < offset+len(timestampFields) {
		return Timestamp{}, &FormatError{
			Text:   text,
			Reason: fmt.Sprintf("got %d fields, want %d", len(tokens), offset+len(timestampFields)),
		}
	}

	var fields [len(timestampFields)]int
	for i, name := range timestampFields {
		tok := tokens[offset+i]
		n, err := strconv.Atoi(tok)
		if err != nil {
			return Timestamp{}, &FormatError{
				Text:   text,
				Reason: fmt.Sprintf("%s %q is not numeric", name, tok),
				Err:    err,
			}
		}
		fields[i] = n
	}

	return NewTimestamp(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5]), nil
}

// ParseCompactTimestamp parses either form produced by Compact.
func ParseCompactTimestamp(s string) (Timestamp, error) {
	text := strings.TrimSpace(s)
	layout := compactLayout
	if len(text) == len(compactSecondsLayout) {
		layout = compactSecondsLayout
	}
	t, err := time.ParseInLocation(layout, text, time.UTC)
	if err != nil {
		return Timestamp{}, &FormatError{Text: s, Reason: "want YYYYMMDDHHmm or YYYYMMDDHHmmss", Err: err}
	}
	return Timestamp{t: t}, nil
}

func isTimestampSeparator(r rune) bool {
	return r == '-' || r == ':' || unicode.IsSpace(r)
}

// Ordering is the result of Compare.
type Ordering int

const (
	Before Ordering = -1
	Equal  Ordering = 0
	After  Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "equal"
	}
}

// Compare reports whether a is chronologically before, after or equal to b.
func Compare(a, b Timestamp) Ordering {
	return Ordering(a.t.Compare(b.t))
}

// NewerThan reports whether ts is chronologically later than other.
func (ts Timestamp) NewerThan(other Timestamp) bool { return Compare(ts, other) == After }

// OlderThan reports whether ts is chronologically earlier than other.
func (ts Timestamp) OlderThan(other Timestamp) bool { return Compare(ts, other) == Before }

// SameAs reports whether ts and other denote the same instant.
func (ts Timestamp) SameAs(other Timestamp) bool { return Compare(ts, other) == Equal }
