package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    int
		wantErr bool
	}{
		{name: "default", query: "", want: defaultRunsLimit},
		{name: "explicit", query: "?limit=5", want: 5},
		{name: "max", query: "?limit=1000", want: 1000},
		{name: "zero", query: "?limit=0", wantErr: true},
		{name: "negative", query: "?limit=-3", wantErr: true},
		{name: "too large", query: "?limit=1001", wantErr: true},
		{name: "not a number", query: "?limit=ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/runs"+tt.query, nil)
			got, err := parseLimit(req)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseLimit() error = nil, want non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLimit() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseRunTime(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{name: "valid", value: "201808301745", want: time.Date(2018, time.August, 30, 17, 45, 0, 0, time.UTC)},
		{name: "with seconds", value: "20180830174512", want: time.Date(2018, time.August, 30, 17, 45, 12, 0, time.UTC)},
		{name: "empty", value: "", wantErr: true},
		{name: "dashes", value: "2018-08-30", wantErr: true},
		{name: "bad month", value: "201813301745", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("time", tt.value)
			got, err := parseRunTime(req)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseRunTime(%q) error = nil, want non-nil", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRunTime(%q) error = %v", tt.value, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseRunTime(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
