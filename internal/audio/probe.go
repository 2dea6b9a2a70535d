// Package audio inspects source files, plans overlapping chunk windows,
// snaps cut points to silence, and extracts encoded chunk segments.
package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// supportedFormats lists audio formats accepted by the transcription API.
var supportedFormats = map[string]bool{
	"mp3":  true,
	"wav":  true,
	"m4a":  true,
	"flac": true,
	"ogg":  true,
	"webm": true,
	"mp4":  true,
	"mpeg": true,
	"mpga": true,
}

// maxSourceBytes caps ingestion size. Files beyond this are rejected at
// probe time rather than partway through extraction.
const maxSourceBytes = 500 * 1024 * 1024

// minSourceDuration rejects inputs too short to carry speech.
const minSourceDuration = time.Second

// SupportedFormats returns a sorted, comma-separated list for error messages.
func SupportedFormats() string {
	formats := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return strings.Join(formats, ", ")
}

// Source is an immutable handle to the original audio file.
type Source struct {
	Path     string        // Absolute or relative path to the file.
	Format   string        // Normalized extension without the dot, e.g. "mp3".
	Size     int64         // File size in bytes.
	Duration time.Duration // Total duration reported by FFmpeg.
}

// BytesPerSecond estimates the uniform byte rate of the encoded stream.
func (s Source) BytesPerSecond() float64 {
	secs := s.Duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Size) / secs
}

// Prober inspects audio files without modifying them.
type Prober struct {
	ffmpegPath string

	cmd     commandRunner
	statter fileStatter
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProberCommandRunner sets the command runner (for testing).
func WithProberCommandRunner(c commandRunner) ProberOption {
	return func(p *Prober) { p.cmd = c }
}

// WithProberStatter sets the file statter (for testing).
func WithProberStatter(s fileStatter) ProberOption {
	return func(p *Prober) { p.statter = s }
}

// NewProber creates a Prober using the given ffmpeg binary.
func NewProber(ffmpegPath string, opts ...ProberOption) (*Prober, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty")
	}
	p := &Prober{
		ffmpegPath: ffmpegPath,
		cmd:        osCommandRunner{},
		statter:    osFileStatter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Probe inspects path and returns an immutable Source.
// Fails fast with ErrUnsupportedFormat for unknown extensions and
// ErrCorruptFile when no duration can be determined.
func (p *Prober) Probe(ctx context.Context, path string) (Source, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !supportedFormats[ext] {
		return Source{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, ext, SupportedFormats())
	}

	info, err := p.statter.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	if info.Size() > maxSourceBytes {
		return Source{}, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, info.Size(), maxSourceBytes)
	}

	duration, err := p.probeDuration(ctx, path)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	if duration < minSourceDuration {
		return Source{}, fmt.Errorf("%w: %v", ErrTooShort, duration)
	}

	return Source{
		Path:     path,
		Format:   ext,
		Size:     info.Size(),
		Duration: duration,
	}, nil
}

// probeDuration returns the duration of an audio file using ffmpeg.
func (p *Prober) probeDuration(ctx context.Context, path string) (time.Duration, error) {
	// The -i flag with a null output prints file info including duration.
	args := []string{"-i", path, "-f", "null", "-"}
	output, err := p.cmd.CombinedOutput(ctx, p.ffmpegPath, args)
	if err != nil {
		// FFmpeg returns non-zero even when it successfully reads file info,
		// so we try to parse the output anyway.
		if len(output) == 0 {
			return 0, err
		}
	}
	return parseDurationFromFFmpegOutput(string(output))
}

// parseDurationFromFFmpegOutput extracts duration from FFmpeg stderr.
// Looks for: "Duration: HH:MM:SS.ms" or "time=HH:MM:SS.ms"
func parseDurationFromFFmpegOutput(output string) (time.Duration, error) {
	durationRe := regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	if matches := durationRe.FindStringSubmatch(output); matches != nil {
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	// Fallback: the last time= entry from progress output.
	timeRe := regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
	allMatches := timeRe.FindAllStringSubmatch(output, -1)
	if len(allMatches) > 0 {
		matches := allMatches[len(allMatches)-1]
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	return 0, fmt.Errorf("could not parse duration from ffmpeg output")
}

// parseTimeComponents converts HH:MM:SS.frac strings to a Duration.
func parseTimeComponents(hours, minutes, seconds, fractional string) (time.Duration, error) {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	// Normalize the fractional part (1-6+ digits) to milliseconds.
	frac, _ := strconv.Atoi(fractional)
	ms := frac
	switch n := len(fractional); {
	case n == 1:
		ms = frac * 100
	case n == 2:
		ms = frac * 10
	case n == 3:
		// Already milliseconds.
	case n > 3:
		for i := n; i > 3; i-- {
			ms /= 10
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// formatFFmpegTime formats a duration for FFmpeg -ss/-to arguments.
func formatFFmpegTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
