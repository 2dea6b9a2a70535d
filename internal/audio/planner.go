package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/chunkscribe/chunkscribe/internal/format"
)

// Window is one planned time range of the source. Windows overlap their
// predecessor by OverlapWithPrev so words at cut boundaries are captured by
// at least one chunk.
type Window struct {
	Index           int
	Start           time.Duration
	End             time.Duration
	OverlapWithPrev time.Duration
}

// Duration returns the length of this window.
func (w Window) Duration() time.Duration {
	return w.End - w.Start
}

// String returns a human-readable representation for logging.
func (w Window) String() string {
	return fmt.Sprintf("window %d: %s-%s", w.Index, format.Clock(w.Start), format.Clock(w.End))
}

// Plan is an ordered, read-only sequence of chunk windows covering the source.
type Plan struct {
	Source  Source
	Windows []Window
}

// Single reports whether the source fits in one window (no chunking needed).
func (p Plan) Single() bool {
	return len(p.Windows) == 1
}

// PlanConfig holds chunk planning parameters.
type PlanConfig struct {
	// MaxChunkBytes is the per-chunk size budget, below the transcription
	// API's hard request limit to leave margin for bitrate variance.
	MaxChunkBytes int64

	// Overlap is the duration shared between consecutive windows.
	Overlap time.Duration

	// MinFinalChunk merges a trailing slice shorter than this into the
	// previous window instead of emitting a tiny final chunk.
	MinFinalChunk time.Duration
}

// PlanChunks computes chunk windows from the source's estimated byte rate.
//
// If the whole file fits MaxChunkBytes a single full-length window is
// returned. Otherwise the timeline is walked in strides of
// maxChunkDuration - Overlap, emitting windows of maxChunkDuration clamped
// to the source end. Every point in [0, duration) is covered by at least
// one window and consecutive windows never leave a gap.
func PlanChunks(src Source, cfg PlanConfig) (Plan, error) {
	if cfg.MaxChunkBytes <= 0 {
		return Plan{}, fmt.Errorf("%w: max chunk bytes %d", ErrInvalidPlan, cfg.MaxChunkBytes)
	}
	if cfg.Overlap < 0 {
		return Plan{}, fmt.Errorf("%w: negative overlap %v", ErrInvalidPlan, cfg.Overlap)
	}
	if src.Duration <= 0 {
		return Plan{}, fmt.Errorf("%w: source duration %v", ErrInvalidPlan, src.Duration)
	}

	if src.Size <= cfg.MaxChunkBytes {
		return Plan{
			Source:  src,
			Windows: []Window{{Index: 0, Start: 0, End: src.Duration}},
		}, nil
	}

	maxChunkDuration := time.Duration(float64(cfg.MaxChunkBytes) / src.BytesPerSecond() * float64(time.Second))
	if cfg.Overlap >= maxChunkDuration {
		return Plan{}, fmt.Errorf("%w: overlap %v >= max chunk duration %v",
			ErrInvalidPlan, cfg.Overlap, maxChunkDuration)
	}

	cuts := uniformCuts(src.Duration, maxChunkDuration, cfg.Overlap, cfg.MinFinalChunk)
	plan := Plan{Source: src, Windows: buildWindows(src.Duration, cuts, cfg.Overlap)}
	if err := plan.validate(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// BoundaryFinder adjusts a planned cut point, typically to nearby silence.
// Implementations must return the target unchanged when no better point is
// found; they never fail the plan.
type BoundaryFinder interface {
	FindNear(ctx context.Context, src Source, target time.Duration) time.Duration
}

// PlanChunksSnapped plans windows like PlanChunks, then snaps each interior
// cut point through finder so cuts land on silence instead of mid-word.
// Snapped cuts that would break plan invariants (out of order, or too close
// to a neighbor to preserve the overlap) fall back to the uniform cut.
func PlanChunksSnapped(ctx context.Context, src Source, cfg PlanConfig, finder BoundaryFinder) (Plan, error) {
	plan, err := PlanChunks(src, cfg)
	if err != nil || plan.Single() || finder == nil {
		return plan, err
	}

	cuts := make([]time.Duration, 0, len(plan.Windows)-1)
	for _, w := range plan.Windows[:len(plan.Windows)-1] {
		cuts = append(cuts, w.End)
	}

	// Minimum spacing a cut must keep from its neighbors so the derived
	// window still starts after the previous cut.
	minGap := cfg.Overlap + time.Second

	snapped := make([]time.Duration, len(cuts))
	copy(snapped, cuts)
	for i, cut := range cuts {
		candidate := finder.FindNear(ctx, src, cut)

		prev := time.Duration(0)
		if i > 0 {
			prev = snapped[i-1]
		}
		next := src.Duration
		if i+1 < len(cuts) {
			next = cuts[i+1]
		}
		if candidate <= prev+minGap || candidate >= next-minGap {
			continue // keep the uniform cut
		}
		snapped[i] = candidate
	}

	plan = Plan{Source: src, Windows: buildWindows(src.Duration, snapped, cfg.Overlap)}
	if err := plan.validate(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// uniformCuts walks the timeline emitting window-end boundaries.
// A trailing slice shorter than minFinal is merged into the previous window
// by dropping the last cut.
func uniformCuts(duration, maxChunkDuration, overlap, minFinal time.Duration) []time.Duration {
	step := maxChunkDuration - overlap

	var cuts []time.Duration
	for c := maxChunkDuration; c < duration; c += step {
		cuts = append(cuts, c)
	}

	if n := len(cuts); n > 0 && duration-cuts[n-1] < minFinal {
		cuts = cuts[:n-1]
	}
	return cuts
}

// buildWindows derives overlapping windows from interior cut points.
// Window i spans [cuts[i-1] - overlap, cuts[i]]; the first window starts at
// zero and the last ends at the source duration.
func buildWindows(duration time.Duration, cuts []time.Duration, overlap time.Duration) []Window {
	bounds := make([]time.Duration, 0, len(cuts)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, cuts...)
	bounds = append(bounds, duration)

	windows := make([]Window, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		start := bounds[i]
		var overlapWithPrev time.Duration
		if i > 0 {
			start = max(bounds[i]-overlap, 0)
			overlapWithPrev = bounds[i] - start
		}
		windows = append(windows, Window{
			Index:           i,
			Start:           start,
			End:             bounds[i+1],
			OverlapWithPrev: overlapWithPrev,
		})
	}
	return windows
}

// validate checks the plan invariants: strictly increasing starts, no gaps
// between consecutive windows, and full coverage of [0, duration).
func (p Plan) validate() error {
	if len(p.Windows) == 0 {
		return fmt.Errorf("%w: no windows", ErrInvalidPlan)
	}
	if p.Windows[0].Start != 0 {
		return fmt.Errorf("%w: first window starts at %v", ErrInvalidPlan, p.Windows[0].Start)
	}
	if last := p.Windows[len(p.Windows)-1]; last.End != p.Source.Duration {
		return fmt.Errorf("%w: last window ends at %v, source is %v",
			ErrInvalidPlan, last.End, p.Source.Duration)
	}
	for i, w := range p.Windows {
		if w.End <= w.Start {
			return fmt.Errorf("%w: %s is empty", ErrInvalidPlan, w)
		}
		if i == 0 {
			continue
		}
		prev := p.Windows[i-1]
		if w.Start <= prev.Start {
			return fmt.Errorf("%w: %s does not start after %s", ErrInvalidPlan, w, prev)
		}
		if w.Start > prev.End {
			return fmt.Errorf("%w: gap between %s and %s", ErrInvalidPlan, prev, w)
		}
	}
	return nil
}
