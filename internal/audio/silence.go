package audio

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Compile-time interface implementation checks.
var (
	_ BoundaryFinder = (*Detector)(nil)
	_ SilenceScanner = (*FFmpegScanner)(nil)
)

// Default silence detection parameters.
const (
	// defaultNoiseDB is the silence detection threshold in dB.
	// -30dB suits voice recordings with typical background noise.
	defaultNoiseDB = -30.0

	// defaultMinSilence is the minimum silence duration to detect.
	// 0.5s catches natural pauses in speech without over-splitting.
	defaultMinSilence = 500 * time.Millisecond
)

// SilenceInterval is one detected low-energy stretch of the source.
type SilenceInterval struct {
	Start time.Duration
	End   time.Duration
}

// Midpoint returns the middle of the silence, ideal for cutting.
func (s SilenceInterval) Midpoint() time.Duration {
	return s.Start + (s.End-s.Start)/2
}

// SilenceScanner produces the silence intervals within [from, to] of a
// source. The scan is finite and restartable; callers bound it with the
// passed context. Tests inject synthetic scanners in place of FFmpeg.
type SilenceScanner interface {
	Scan(ctx context.Context, src Source, from, to time.Duration) ([]SilenceInterval, error)
}

// FFmpegScanner scans for silence using FFmpeg's silencedetect filter.
type FFmpegScanner struct {
	ffmpegPath string
	noiseDB    float64
	minSilence time.Duration
	cmd        commandRunner
}

// ScannerOption configures an FFmpegScanner.
type ScannerOption func(*FFmpegScanner)

// WithNoiseDB sets the silence threshold in dB. Lower values (more
// negative) require quieter audio to count as silence. Default: -30dB.
func WithNoiseDB(db float64) ScannerOption {
	return func(s *FFmpegScanner) { s.noiseDB = db }
}

// WithMinSilence sets the minimum silence duration to detect. Default: 500ms.
func WithMinSilence(d time.Duration) ScannerOption {
	return func(s *FFmpegScanner) { s.minSilence = d }
}

// WithScannerCommandRunner sets the command runner (for testing).
func WithScannerCommandRunner(c commandRunner) ScannerOption {
	return func(s *FFmpegScanner) { s.cmd = c }
}

// NewFFmpegScanner creates a scanner using the given ffmpeg binary.
func NewFFmpegScanner(ffmpegPath string, opts ...ScannerOption) (*FFmpegScanner, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty")
	}
	s := &FFmpegScanner{
		ffmpegPath: ffmpegPath,
		noiseDB:    defaultNoiseDB,
		minSilence: defaultMinSilence,
		cmd:        osCommandRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scan runs silencedetect over [from, to] only, using input seeking so the
// decode work is proportional to the scanned window, not the whole file.
// Reported timestamps are translated back to the source timeline.
func (s *FFmpegScanner) Scan(ctx context.Context, src Source, from, to time.Duration) ([]SilenceInterval, error) {
	if to <= from {
		return nil, nil
	}

	args := []string{
		"-ss", formatFFmpegTime(from),
		"-t", formatFFmpegTime(to - from),
		"-i", src.Path,
		"-af", fmt.Sprintf("silencedetect=noise=%ddB:d=%.2f",
			int(s.noiseDB),
			s.minSilence.Seconds()),
		"-f", "null",
		"-",
	}

	output, err := s.cmd.CombinedOutput(ctx, s.ffmpegPath, args)
	if err != nil {
		// FFmpeg may return non-zero even on success; parse what we got.
		if len(output) == 0 {
			return nil, err
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	intervals := parseSilenceOutput(string(output))
	// Input seeking resets timestamps to zero at the seek point.
	for i := range intervals {
		intervals[i].Start += from
		intervals[i].End += from
	}
	return intervals, nil
}

// parseSilenceOutput extracts silence intervals from silencedetect output.
// FFmpeg emits lines like:
//
//	[silencedetect @ 0x...] silence_start: 42.123
//	[silencedetect @ 0x...] silence_end: 43.456 | silence_duration: 1.333
func parseSilenceOutput(output string) []SilenceInterval {
	var intervals []SilenceInterval
	var currentStart time.Duration
	hasStart := false

	startRe := regexp.MustCompile(`silence_start:\s*([\d.]+)`)
	endRe := regexp.MustCompile(`silence_end:\s*([\d.]+)`)

	for line := range strings.SplitSeq(output, "\n") {
		if matches := startRe.FindStringSubmatch(line); matches != nil {
			seconds, err := strconv.ParseFloat(matches[1], 64)
			if err == nil {
				currentStart = time.Duration(seconds * float64(time.Second))
				hasStart = true
			}
		}
		if matches := endRe.FindStringSubmatch(line); matches != nil && hasStart {
			seconds, err := strconv.ParseFloat(matches[1], 64)
			if err == nil {
				intervals = append(intervals, SilenceInterval{
					Start: currentStart,
					End:   time.Duration(seconds * float64(time.Second)),
				})
				hasStart = false
			}
		}
	}

	return intervals
}

// Detector locates a silent instant near a planned cut point so chunk
// boundaries avoid splitting words. Detection is best-effort: on scan
// failure, empty results, or an exhausted time budget the original target
// is returned unchanged, so chunking never depends on detection succeeding.
type Detector struct {
	scanner SilenceScanner
	radius  time.Duration
	budget  time.Duration
	logger  *zap.Logger
}

// NewDetector creates a Detector searching within radius of each target and
// spending at most budget per search.
func NewDetector(scanner SilenceScanner, radius, budget time.Duration, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{scanner: scanner, radius: radius, budget: budget, logger: logger}
}

// FindNear returns the timestamp of the best silence within
// [target - radius, target + radius], or target itself when none is found
// in time. The result never falls outside the search window.
func (d *Detector) FindNear(ctx context.Context, src Source, target time.Duration) time.Duration {
	from := max(target-d.radius, 0)
	to := min(target+d.radius, src.Duration)

	scanCtx, cancel := context.WithTimeout(ctx, d.budget)
	defer cancel()

	intervals, err := d.scanner.Scan(scanCtx, src, from, to)
	if err != nil {
		d.logger.Warn("silence scan failed, keeping uniform cut",
			zap.Duration("target", target),
			zap.Error(err))
		return target
	}

	best := target
	bestDist := time.Duration(-1)
	for _, iv := range intervals {
		mid := iv.Midpoint()
		if mid < from || mid > to {
			continue
		}
		dist := mid - target
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best = mid
			bestDist = dist
		}
	}

	if bestDist < 0 {
		d.logger.Debug("no silence near cut point", zap.Duration("target", target))
		return target
	}
	return best
}
