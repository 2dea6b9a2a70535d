package format

import (
	"fmt"
	"time"
)

// Clock formats a duration as HH:MM:SS or MM:SS for human display.
func Clock(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// SRTStamp formats a timestamp for SRT cue timing lines: HH:MM:SS,mmm.
func SRTStamp(d time.Duration) string {
	return stamp(d, ',')
}

// VTTStamp formats a timestamp for WebVTT cue timing lines: HH:MM:SS.mmm.
func VTTStamp(d time.Duration) string {
	return stamp(d, '.')
}

func stamp(d time.Duration, sep byte) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}

// Seconds converts a duration to floating-point seconds for wire formats.
func Seconds(d time.Duration) float64 {
	return d.Seconds()
}

// FromSeconds converts floating-point seconds to a duration.
func FromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Size formats a size in bytes for human display.
// Uses MB for sizes >= 1MB, KB otherwise.
func Size(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	if bytes >= mb {
		return fmt.Sprintf("%d MB", bytes/mb)
	}
	if bytes >= kb {
		return fmt.Sprintf("%d KB", bytes/kb)
	}
	return fmt.Sprintf("%d bytes", bytes)
}
