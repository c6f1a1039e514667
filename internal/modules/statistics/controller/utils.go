package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"mesostats/internal/mesonet"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 1000
)

func parseLimit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return defaultRunsLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > maxRunsLimit {
		return 0, errors.New("'limit' must be <= 1000")
	}
	return n, nil
}

// parseRunTime reads the {time} path value, written as YYYYMMDDHHmm or
// YYYYMMDDHHmmss.
func parseRunTime(r *http.Request) (time.Time, error) {
	s := r.PathValue("time")
	if s == "" {
		return time.Time{}, errors.New("missing run time")
	}
	ts, err := mesonet.ParseCompactTimestamp(s)
	if err != nil {
		return time.Time{}, errors.New("invalid run time (expected YYYYMMDDHHmm or YYYYMMDDHHmmss)")
	}
	return ts.Time(), nil
}
