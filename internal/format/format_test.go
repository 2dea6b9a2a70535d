package format_test

import (
	"testing"
	"time"

	"github.com/chunkscribe/chunkscribe/internal/format"
)

func TestClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "00:00"},
		{"seconds only", 42 * time.Second, "00:42"},
		{"minutes and seconds", 5*time.Minute + 23*time.Second, "05:23"},
		{"with hours", 2*time.Hour + 3*time.Minute + 4*time.Second, "02:03:04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := format.Clock(tt.d); got != tt.want {
				t.Errorf("Clock(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestSRTStamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "00:00:00,000"},
		{"milliseconds", 1500 * time.Millisecond, "00:00:01,500"},
		{"full", time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond, "01:02:03,045"},
		{"negative clamps to zero", -time.Second, "00:00:00,000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := format.SRTStamp(tt.d); got != tt.want {
				t.Errorf("SRTStamp(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestVTTStamp(t *testing.T) {
	t.Parallel()

	got := format.VTTStamp(61*time.Second + 7*time.Millisecond)
	want := "00:01:01.007"
	if got != want {
		t.Errorf("VTTStamp() = %q, want %q", got, want)
	}
}

func TestSecondsRoundTrip(t *testing.T) {
	t.Parallel()

	d := 3*time.Minute + 14*time.Second + 159*time.Millisecond
	got := format.FromSeconds(format.Seconds(d))
	if diff := got - d; diff > time.Millisecond || diff < -time.Millisecond {
		t.Errorf("round trip drifted: got %v, want %v", got, d)
	}
}

func TestSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 bytes"},
		{4 * 1024, "4 KB"},
		{25 * 1024 * 1024, "25 MB"},
	}

	for _, tt := range tests {
		if got := format.Size(tt.bytes); got != tt.want {
			t.Errorf("Size(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
