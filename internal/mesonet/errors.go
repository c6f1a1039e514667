package mesonet

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the parse failure kinds. Every concrete error returned
// by the parser matches exactly one of them with errors.Is.
var (
	ErrIO        = errors.New("observation file unreadable")
	ErrFormat    = errors.New("invalid timestamp")
	ErrHeader    = errors.New("missing header column")
	ErrRowFormat = errors.New("malformed data row")
)

// IOError reports a file that could not be opened or read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return unwrapPair(ErrIO, e.Err) }

// FormatError reports timestamp text that does not tokenize into the
// expected numeric fields.
type FormatError struct {
	Text   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: %s", e.Text, e.Reason)
}

func (e *FormatError) Unwrap() []error { return unwrapPair(ErrFormat, e.Err) }

// HeaderError reports required column names absent from the header line.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("header missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *HeaderError) Unwrap() error { return ErrHeader }

// RowFormatError reports a data row that is too short or carries a
// non-numeric value in a tracked column. Line is 1-based.
type RowFormatError struct {
	Line   int
	Tokens int
	Want   int
	Reason string
	Err    error
}

func (e *RowFormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: got %d tokens, want at least %d", e.Line, e.Tokens, e.Want)
}

func (e *RowFormatError) Unwrap() []error { return unwrapPair(ErrRowFormat, e.Err) }

func unwrapPair(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}
