// Package pipeline orchestrates a transcription run: probe the source,
// plan chunk windows, extract and transcribe each chunk, and merge the
// results into one transcript.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chunkscribe/chunkscribe/internal/audio"
	"github.com/chunkscribe/chunkscribe/internal/merge"
	"github.com/chunkscribe/chunkscribe/internal/transcribe"
)

// ErrPartialFailure indicates the run produced a transcript with gaps:
// some chunks failed after retries. The transcript is still returned.
var ErrPartialFailure = errors.New("some chunks failed to transcribe")

// prober resolves a path into probed source metadata.
type prober interface {
	Probe(ctx context.Context, path string) (audio.Source, error)
}

// extractor renders one chunk window into an uploadable artifact.
type extractor interface {
	Extract(ctx context.Context, src audio.Source, w audio.Window) (audio.Artifact, error)
}

// Deps are the collaborators a Runner drives. Finder may be nil to plan
// uniform cut points without silence alignment.
type Deps struct {
	Prober      prober
	Extractor   extractor
	Transcriber transcribe.Transcriber
	Finder      audio.BoundaryFinder
}

// Params tune a run.
type Params struct {
	Plan     audio.PlanConfig
	Options  transcribe.Options
	Parallel int // chunks in flight; values below 1 mean sequential
}

// Runner executes transcription runs.
type Runner struct {
	deps   Deps
	params Params
	logger *zap.Logger
}

// NewRunner wires a Runner. A nil logger disables run logging.
func NewRunner(deps Deps, params Params, logger *zap.Logger) (*Runner, error) {
	if deps.Prober == nil || deps.Extractor == nil || deps.Transcriber == nil {
		return nil, errors.New("pipeline: prober, extractor, and transcriber are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if params.Parallel < 1 {
		params.Parallel = 1
	}
	return &Runner{deps: deps, params: params, logger: logger}, nil
}

// Run transcribes the file at path. On partial failure it returns the
// transcript together with ErrPartialFailure; callers decide whether a
// gappy transcript is acceptable.
func (r *Runner) Run(ctx context.Context, path string) (merge.Transcript, error) {
	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID), zap.String("path", path))

	src, err := r.deps.Prober.Probe(ctx, path)
	if err != nil {
		return merge.Transcript{}, fmt.Errorf("probe %s: %w", path, err)
	}
	log.Info("probed source",
		zap.String("format", src.Format),
		zap.Int64("bytes", src.Size),
		zap.Duration("duration", src.Duration))

	plan, err := audio.PlanChunksSnapped(ctx, src, r.params.Plan, r.deps.Finder)
	if err != nil {
		return merge.Transcript{}, fmt.Errorf("plan chunks: %w", err)
	}
	log.Info("planned chunks", zap.Int("windows", len(plan.Windows)))

	var outcomes []merge.ChunkOutcome
	if r.params.Parallel > 1 && !plan.Single() {
		outcomes = r.runParallel(ctx, log, src, plan)
	} else {
		outcomes = r.runSequential(ctx, log, src, plan)
	}

	transcript, err := merge.Merge(outcomes, plan)
	if err != nil {
		return transcript, err
	}
	if !transcript.Complete() {
		return transcript, fmt.Errorf("%w: %d of %d chunks",
			ErrPartialFailure, len(transcript.Failures), len(plan.Windows))
	}
	return transcript, nil
}

func (r *Runner) runSequential(ctx context.Context, log *zap.Logger, src audio.Source, plan audio.Plan) []merge.ChunkOutcome {
	outcomes := make([]merge.ChunkOutcome, 0, len(plan.Windows))
	for _, w := range plan.Windows {
		if err := ctx.Err(); err != nil {
			// Interrupted: record the remaining chunks as failed so the
			// partial transcript names the missing ranges.
			outcomes = append(outcomes, merge.ChunkOutcome{Index: w.Index, Window: w, Err: err})
			continue
		}
		outcomes = append(outcomes, r.processChunk(ctx, log, src, plan, w))
	}
	return outcomes
}

func (r *Runner) runParallel(ctx context.Context, log *zap.Logger, src audio.Source, plan audio.Plan) []merge.ChunkOutcome {
	outcomes := make([]merge.ChunkOutcome, len(plan.Windows))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.params.Parallel)

	for i, w := range plan.Windows {
		g.Go(func() error {
			var outcome merge.ChunkOutcome
			if err := gctx.Err(); err != nil {
				outcome = merge.ChunkOutcome{Index: w.Index, Window: w, Err: err}
			} else {
				outcome = r.processChunk(gctx, log, src, plan, w)
			}
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
			return nil // chunk failures are data, not run aborts
		})
	}
	_ = g.Wait()
	return outcomes
}

// processChunk extracts, transcribes, and cleans up one window. Errors are
// folded into the outcome instead of propagating.
func (r *Runner) processChunk(ctx context.Context, log *zap.Logger, src audio.Source, plan audio.Plan, w audio.Window) merge.ChunkOutcome {
	outcome := merge.ChunkOutcome{Index: w.Index, Window: w}
	clog := log.With(zap.Int("chunk", w.Index), zap.Stringer("window", w))

	artifact, err := r.extract(ctx, src, plan, w)
	if err != nil {
		clog.Warn("chunk extraction failed", zap.Error(err))
		outcome.Err = err
		return outcome
	}
	defer func() {
		if err := artifact.Remove(); err != nil {
			clog.Warn("chunk cleanup failed", zap.Error(err))
		}
	}()

	result, err := r.deps.Transcriber.Transcribe(ctx, artifact, r.params.Options)
	if err != nil {
		clog.Warn("chunk transcription failed", zap.Error(err))
		outcome.Err = err
		return outcome
	}
	clog.Info("chunk transcribed", zap.Int("segments", len(result.Segments)))
	outcome.Result = &result
	return outcome
}

// extract produces the upload artifact for a window. A single-window plan
// uploads the source file as-is; re-encoding it would cost a full pass
// through ffmpeg for nothing.
func (r *Runner) extract(ctx context.Context, src audio.Source, plan audio.Plan, w audio.Window) (audio.Artifact, error) {
	if plan.Single() {
		return audio.Artifact{Path: src.Path, Window: w}, nil
	}
	return r.deps.Extractor.Extract(ctx, src, w)
}
