package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chunkscribe/chunkscribe/internal/audio"
	"github.com/chunkscribe/chunkscribe/internal/config"
	"github.com/chunkscribe/chunkscribe/internal/export"
	"github.com/chunkscribe/chunkscribe/internal/format"
	"github.com/chunkscribe/chunkscribe/internal/lang"
	"github.com/chunkscribe/chunkscribe/internal/merge"
	"github.com/chunkscribe/chunkscribe/internal/pipeline"
	"github.com/chunkscribe/chunkscribe/internal/transcribe"
)

// transcribeFlags collects everything the transcribe command can override
// on top of the environment configuration.
type transcribeFlags struct {
	output       string
	formatName   string
	timestamps   bool
	language     string
	words        bool
	overlap      time.Duration
	maxChunkSize int64
	parallel     int
}

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var flags transcribeFlags

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file",
		Long: `Transcribe an audio file using OpenAI's transcription API.

Files larger than the per-request upload limit are split into overlapping
chunks at natural silence points, transcribed chunk by chunk, and merged
back into one transcript on the original timeline.

Supported formats: ` + audio.SupportedFormats(),
		Example: `  chunkscribe transcribe lecture.mp3
  chunkscribe transcribe podcast.mp3 -o podcast.srt -f srt
  chunkscribe transcribe interview.wav -l pt --words -f json
  chunkscribe transcribe long-talk.m4a --parallel 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, env, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file path (default: <input>.<format>)")
	cmd.Flags().StringVarP(&flags.formatName, "format", "f", "txt", "Output format: txt, srt, vtt, json")
	cmd.Flags().BoolVar(&flags.timestamps, "timestamps", false, "Prefix text lines with time ranges (txt format only)")
	cmd.Flags().StringVarP(&flags.language, "language", "l", "", "Audio language (ISO 639-1 code, e.g., en, fr, pt-BR)")
	cmd.Flags().BoolVar(&flags.words, "words", false, "Request word-level timestamps")
	cmd.Flags().DurationVar(&flags.overlap, "overlap", 0, "Chunk overlap (default from environment)")
	cmd.Flags().Int64Var(&flags.maxChunkSize, "max-chunk-size", 0, "Max chunk size in bytes (default from environment)")
	cmd.Flags().IntVarP(&flags.parallel, "parallel", "p", 0, "Max chunks transcribed concurrently (1-10)")

	return cmd
}

// runTranscribe executes the transcription pipeline.
// Validation order: file exists -> format flag -> config -> output path -> API key.
func runTranscribe(cmd *cobra.Command, env *Env, inputPath string, flags transcribeFlags) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	if _, err := os.Stat(inputPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file not found: %s", inputPath)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	outFormat, err := export.ParseFormat(flags.formatName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadFlag, err)
	}

	cfg, err := loadConfig(env, flags)
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("%w (set it with: export OPENAI_API_KEY=sk-...)", ErrAPIKeyMissing)
	}

	output := flags.output
	if output == "" {
		output = deriveOutputPath(inputPath, outFormat)
	}
	if _, err := os.Stat(output); err == nil {
		return fmt.Errorf("%w: %s", ErrOutputExists, output)
	}

	// === SETUP ===

	ffmpegPath, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}

	usage := &transcribe.Usage{}
	runner, err := env.RunnerFactory.NewRunner(cfg, ffmpegPath, usage, env.Logger)
	if err != nil {
		return err
	}

	// === RUN ===

	fmt.Fprintln(env.Stderr, "Transcribing...")
	transcript, runErr := runner.Run(ctx, inputPath)
	if runErr != nil && !errors.Is(runErr, pipeline.ErrPartialFailure) {
		return runErr
	}

	// === WRITE OUTPUT ===

	rendered, err := export.Render(transcript, outFormat, flags.timestamps)
	if err != nil {
		return err
	}
	if err := writeOutput(output, rendered); err != nil {
		return err
	}

	reportRun(env, transcript, usage, output)
	return runErr // nil, or ErrPartialFailure for the exit code
}

// loadConfig reads the environment configuration, applies flag overrides,
// and re-validates the result.
func loadConfig(env *Env, flags transcribeFlags) (*config.Config, error) {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return nil, err
	}
	if flags.language != "" {
		if err := lang.Validate(flags.language); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFlag, err)
		}
		cfg.Language = flags.language
	}
	if flags.words {
		cfg.WordTimestamps = true
	}
	if flags.overlap > 0 {
		cfg.Overlap = flags.overlap
	}
	if flags.maxChunkSize > 0 {
		cfg.MaxChunkBytes = flags.maxChunkSize
	}
	if flags.parallel > 0 {
		cfg.Parallel = flags.parallel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFlag, err)
	}
	return cfg, nil
}

// deriveOutputPath swaps the audio extension for the output format's.
// Example: "talk.mp3" with srt -> "talk.srt"
func deriveOutputPath(inputPath string, f export.Format) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + f.Extension()
}

// writeOutput creates the output file, refusing to clobber existing files.
func writeOutput(path string, data []byte) error {
	// O_EXCL closes the race between the earlier existence check and now.
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()
	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}
	return nil
}

// reportRun prints the run summary: output path, API usage, and any ranges
// missing from the transcript.
func reportRun(env *Env, transcript merge.Transcript, usage *transcribe.Usage, output string) {
	fmt.Fprintf(env.Stderr, "Done: %s\n", output)
	fmt.Fprintf(env.Stderr, "Billed %s of audio across %d API calls (~$%.4f)\n",
		format.Clock(usage.BilledDuration()), usage.Calls(), usage.EstimatedCostUSD())

	for _, f := range transcript.Failures {
		fmt.Fprintf(env.Stderr, "Warning: no transcript for %s - %s: %s\n",
			format.Clock(f.Start), format.Clock(f.End), f.Reason)
	}
}
