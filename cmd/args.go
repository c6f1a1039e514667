package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"mesostats/internal/mesonet"
)

const (
	commandReport = "report"
	commandServe  = "serve"
)

const usage = `usage:
  mesostats report <YYYY> <MM> <DD> <HH> <mm>   report on DATA_DIR/<YYYYMMDDHHmm>.mdf
  mesostats report -file <path>                 report on an explicit file
  mesostats serve                               serve archived runs over HTTP
`

type command struct {
	name string
	file string
	// year, month, day, hour, minute
	when [5]int
}

// path returns the observation file the command reads.
func (c command) path(dataDir string) string {
	if c.file != "" {
		return c.file
	}
	return mesonet.BuildFileName(c.when[0], c.when[1], c.when[2], c.when[3], c.when[4], dataDir)
}

var dateFields = [...]struct {
	name     string
	min, max int
}{
	{"year", 0, 9999},
	{"month", 1, 12},
	{"day", 1, 31},
	{"hour", 0, 23},
	{"minute", 0, 59},
}

func parseArgs(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New("missing command")
	}

	switch args[0] {
	case commandServe:
		if len(args) > 1 {
			return command{}, fmt.Errorf("serve takes no arguments, got %q", args[1:])
		}
		return command{name: commandServe}, nil
	case commandReport:
		return parseReportArgs(args[1:])
	default:
		return command{}, fmt.Errorf("unknown command: %s", args[0])
	}
}

func parseReportArgs(args []string) (command, error) {
	fs := flag.NewFlagSet(commandReport, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("file", "", "observation file to read")
	if err := fs.Parse(args); err != nil {
		return command{}, err
	}

	cmd := command{name: commandReport, file: *file}
	rest := fs.Args()
	if cmd.file != "" {
		if len(rest) > 0 {
			return command{}, errors.New("report: -file cannot be combined with a date")
		}
		return cmd, nil
	}

	if len(rest) != len(dateFields) {
		return command{}, fmt.Errorf("report: want %d date fields, got %d", len(dateFields), len(rest))
	}
	for i, f := range dateFields {
		n, err := strconv.Atoi(rest[i])
		if err != nil {
			return command{}, fmt.Errorf("invalid %s %q", f.name, rest[i])
		}
		if n < f.min || n > f.max {
			return command{}, fmt.Errorf("invalid %s %d (allowed: %d-%d)", f.name, n, f.min, f.max)
		}
		cmd.when[i] = n
	}
	return cmd, nil
}
