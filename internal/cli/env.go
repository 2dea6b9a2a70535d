package cli

import (
	"context"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/chunkscribe/chunkscribe/internal/audio"
	"github.com/chunkscribe/chunkscribe/internal/config"
	"github.com/chunkscribe/chunkscribe/internal/ffmpeg"
	"github.com/chunkscribe/chunkscribe/internal/merge"
	"github.com/chunkscribe/chunkscribe/internal/pipeline"
	"github.com/chunkscribe/chunkscribe/internal/transcribe"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing commands in isolation.
//
// All fields have production defaults via DefaultEnv(). Tests override
// individual fields with the With* options.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger

	ConfigLoader   ConfigLoader
	FFmpegResolver FFmpegResolver
	ProberFactory  ProberFactory
	RunnerFactory  RunnerFactory
}

// ConfigLoader loads runtime configuration from the environment.
type ConfigLoader interface {
	Load() (*config.Config, error)
}

// FFmpegResolver locates the ffmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Prober inspects audio files.
type Prober interface {
	Probe(ctx context.Context, path string) (audio.Source, error)
}

// ProberFactory creates audio probers bound to an ffmpeg binary.
type ProberFactory interface {
	NewProber(ffmpegPath string) (Prober, error)
}

// Runner executes a full transcription run.
type Runner interface {
	Run(ctx context.Context, path string) (merge.Transcript, error)
}

// RunnerFactory assembles the transcription pipeline.
type RunnerFactory interface {
	NewRunner(cfg *config.Config, ffmpegPath string, usage *transcribe.Usage, logger *zap.Logger) (Runner, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EnvOption {
	return func(e *Env) { e.Logger = l }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithFFmpegResolver sets the ffmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) { e.FFmpegResolver = r }
}

// WithProberFactory sets the prober factory.
func WithProberFactory(f ProberFactory) EnvOption {
	return func(e *Env) { e.ProberFactory = f }
}

// WithRunnerFactory sets the runner factory.
func WithRunnerFactory(f RunnerFactory) EnvOption {
	return func(e *Env) { e.RunnerFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Logger:         zap.NewNop(),
		ConfigLoader:   defaultConfigLoader{},
		FFmpegResolver: defaultFFmpegResolver{},
		ProberFactory:  defaultProberFactory{},
		RunnerFactory:  defaultRunnerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (*config.Config, error) {
	return config.Load()
}

type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	return ffmpeg.NewResolver().Resolve(ctx)
}

type defaultProberFactory struct{}

func (defaultProberFactory) NewProber(ffmpegPath string) (Prober, error) {
	return audio.NewProber(ffmpegPath)
}

type defaultRunnerFactory struct{}

func (defaultRunnerFactory) NewRunner(cfg *config.Config, ffmpegPath string, usage *transcribe.Usage, logger *zap.Logger) (Runner, error) {
	prober, err := audio.NewProber(ffmpegPath)
	if err != nil {
		return nil, err
	}
	extractor, err := audio.NewExtractor(ffmpegPath)
	if err != nil {
		return nil, err
	}

	var finder audio.BoundaryFinder
	if cfg.SilenceSearchRadius > 0 && cfg.SilenceTimeBudget > 0 {
		scanner, err := audio.NewFFmpegScanner(ffmpegPath)
		if err != nil {
			return nil, err
		}
		finder = audio.NewDetector(scanner, cfg.SilenceSearchRadius, cfg.SilenceTimeBudget, logger)
	}

	client := transcribe.NewClient(openai.NewClient(cfg.APIKey), usage,
		transcribe.WithMaxRetries(cfg.MaxRetries),
		transcribe.WithRetryDelays(cfg.RetryBaseDelay, 0),
		transcribe.WithAttemptTimeout(cfg.AttemptTimeout),
		transcribe.WithLogger(logger),
	)

	return pipeline.NewRunner(
		pipeline.Deps{
			Prober:      prober,
			Extractor:   extractor,
			Transcriber: client,
			Finder:      finder,
		},
		pipeline.Params{
			Plan: cfg.PlanConfig(),
			Options: transcribe.Options{
				Language:       cfg.Language,
				WordTimestamps: cfg.WordTimestamps,
			},
			Parallel: cfg.Parallel,
		},
		logger,
	)
}

// Compile-time interface verification.
var (
	_ ConfigLoader   = defaultConfigLoader{}
	_ FFmpegResolver = defaultFFmpegResolver{}
	_ ProberFactory  = defaultProberFactory{}
	_ RunnerFactory  = defaultRunnerFactory{}
)
