package mesonet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Catalog holds the observation sequences of one file. All sequences share
// the same station order. It is not modified after parsing.
type Catalog struct {
	timestamp    Timestamp
	stationCount int
	series       map[Parameter][]Observation
}

func (c *Catalog) Timestamp() Timestamp { return c.timestamp }
func (c *Catalog) StationCount() int    { return c.stationCount }

// Parameters returns the parameters present in the catalog in report order.
func (c *Catalog) Parameters() []Parameter {
	out := make([]Parameter, 0, len(c.series))
	for _, p := range Parameters {
		if _, ok := c.series[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Observations returns a copy of the sequence for p.
func (c *Catalog) Observations(p Parameter) []Observation {
	return slices.Clone(c.series[p])
}

// Columns records the zero-based header positions of the station column and
// each tracked parameter.
type Columns struct {
	Station    int
	Parameters map[Parameter]int
}

// Index returns the header position of p, or -1.
func (c Columns) Index(p Parameter) int {
	if i, ok := c.Parameters[p]; ok {
		return i
	}
	return -1
}

// minTokens is the shortest data row that covers every tracked column.
func (c Columns) minTokens() int {
	hi := c.Station
	for _, i := range c.Parameters {
		hi = max(hi, i)
	}
	return hi + 2
}

// ResolveHeader finds the tracked columns in a header line. The first
// occurrence of a duplicated name wins.
func ResolveHeader(line string) (Columns, error) {
	cols := Columns{Station: -1, Parameters: make(map[Parameter]int, len(Parameters))}
	for i, tok := range strings.Fields(line) {
		if tok == StationColumn && cols.Station < 0 {
			cols.Station = i
			continue
		}
		if p, ok := ParseParameter(tok); ok {
			if _, seen := cols.Parameters[p]; !seen {
				cols.Parameters[p] = i
			}
		}
	}

	var missing []string
	for _, p := range Parameters {
		if _, ok := cols.Parameters[p]; !ok {
			missing = append(missing, p.String())
		}
	}
	if cols.Station < 0 {
		missing = append(missing, StationColumn)
	}
	if len(missing) > 0 {
		return Columns{}, &HeaderError{Missing: missing}
	}
	return cols, nil
}

// rowSeparator splits data rows. A row that starts with whitespace yields a
// leading empty token, which is why data values sit one position to the right
// of their header column.
var rowSeparator = regexp.MustCompile(`\s+`)

func splitRow(line string) []string {
	tokens := rowSeparator.Split(line, -1)
	for len(tokens) > 0 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// ParserOptions configures a Parser.
type ParserOptions struct {
	// SkipMalformedRows logs and drops rows that fail to parse instead of
	// aborting the whole file.
	SkipMalformedRows bool
	Logger            *slog.Logger
}

// Parser turns observation files into a Catalog.
type Parser struct {
	skipMalformed bool
	logger        *slog.Logger
}

func NewParser(opts ParserOptions) *Parser {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{skipMalformed: opts.SkipMalformedRows, logger: logger}
}

// ParseFile opens and parses the file at path. The file is closed on every
// return path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			p.logger.Warn("close observation file", "path", path, "error", closeErr)
		}
	}()
	return p.parse(ctx, path, f)
}

// Parse reads an observation file from r.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*Catalog, error) {
	return p.parse(ctx, "<reader>", r)
}

func (p *Parser) parse(ctx context.Context, name string, r io.Reader) (*Catalog, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		lineNo++
		return sc.Text(), true
	}

	// Line 1 is a banner.
	if _, ok := next(); !ok {
		return nil, p.truncated(name, sc.Err(), &FormatError{Reason: "missing timestamp line"})
	}

	tsLine, ok := next()
	if !ok {
		return nil, p.truncated(name, sc.Err(), &FormatError{Reason: "missing timestamp line"})
	}
	ts, err := ParseTimestamp(tsLine)
	if err != nil {
		return nil, err
	}

	headerLine, ok := next()
	if !ok {
		return nil, p.truncated(name, sc.Err(), &HeaderError{Missing: headerNames()})
	}
	cols, err := ResolveHeader(headerLine)
	if err != nil {
		return nil, err
	}

	catalog := &Catalog{
		timestamp: ts,
		series:    make(map[Parameter][]Observation, len(Parameters)),
	}
	for _, param := range Parameters {
		catalog.series[param] = nil
	}

	values := make([]float64, len(Parameters))
	for {
		line, ok := next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		stationID, err := parseRow(line, lineNo, cols, values)
		if err != nil {
			if p.skipMalformed {
				p.logger.Warn("skipping malformed row", "path", name, "line", lineNo, "error", err)
				continue
			}
			return nil, err
		}
		for i, param := range Parameters {
			catalog.series[param] = append(catalog.series[param], NewObservation(values[i], stationID))
		}
		catalog.stationCount++
	}
	if err := sc.Err(); err != nil {
		return nil, &IOError{Path: name, Err: err}
	}

	p.logger.Debug("parsed observation file",
		"path", name,
		"timestamp", ts.String(),
		"stations", catalog.stationCount,
	)
	return catalog, nil
}

// parseRow extracts the station id and fills values in Parameters order. The
// row is rejected as a whole so the sequences stay aligned by station.
func parseRow(line string, lineNo int, cols Columns, values []float64) (string, error) {
	tokens := splitRow(line)
	if want := cols.minTokens(); len(tokens) < want {
		return "", &RowFormatError{Line: lineNo, Tokens: len(tokens), Want: want}
	}
	for i, param := range Parameters {
		tok := tokens[cols.Parameters[param]+1]
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return "", &RowFormatError{
				Line:   lineNo,
				Tokens: len(tokens),
				Reason: fmt.Sprintf("%s value %q is not numeric", param, tok),
				Err:    err,
			}
		}
		values[i] = v
	}
	return tokens[cols.Station+1], nil
}

// truncated prefers a read error over the structural error it caused.
func (p *Parser) truncated(name string, readErr error, structural error) error {
	if readErr != nil {
		return &IOError{Path: name, Err: readErr}
	}
	return structural
}

func headerNames() []string {
	out := make([]string, 0, len(Parameters)+1)
	for _, p := range Parameters {
		out = append(out, p.String())
	}
	return append(out, StationColumn)
}
