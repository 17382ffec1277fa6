package main

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-02-01T09:30:00Z", time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)},
		{"2024-02-01T09:30:00+02:00", time.Date(2024, 2, 1, 7, 30, 0, 0, time.UTC)},
		{"2024-02-01 09:30", time.Date(2024, 2, 1, 9, 30, 0, 0, loc)},
		{" 2024-02-01T09:30 ", time.Date(2024, 2, 1, 9, 30, 0, 0, loc)},
		{"2024-02-01", time.Date(2024, 2, 1, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		got, err := parseTime(tt.in, loc)
		if err != nil {
			t.Fatalf("parseTime(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := parseTime("tomorrow", loc); err == nil {
		t.Fatalf("expected an error for an unparsable time")
	}
}
