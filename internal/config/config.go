// Package config loads runtime settings from the environment.
//
// Every variable is read under the CHUNKSCRIBE_ prefix; the OpenAI key is
// also accepted as plain OPENAI_API_KEY so existing shells keep working.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/chunkscribe/chunkscribe/internal/audio"
	"github.com/chunkscribe/chunkscribe/internal/lang"
)

const envPrefix = "chunkscribe"

// openAIUploadLimit is the provider's hard cap on a single upload.
const openAIUploadLimit = 25 * 1024 * 1024

// Config holds every tunable the pipeline reads from the environment.
// Flags may override individual fields after loading.
type Config struct {
	// APIKey may be empty for commands that never call the API; callers
	// that transcribe check it themselves.
	APIKey string `envconfig:"OPENAI_API_KEY"`

	// Chunk planning.
	MaxChunkBytes int64         `split_words:"true" default:"23068672" validate:"min=1048576,max=26214400"`
	Overlap       time.Duration `default:"3s" validate:"min=0,max=30s"`
	MinFinalChunk time.Duration `split_words:"true" default:"5s" validate:"min=0"`

	// Silence-aligned cut points.
	SilenceSearchRadius time.Duration `split_words:"true" default:"10s" validate:"min=0"`
	SilenceTimeBudget   time.Duration `split_words:"true" default:"30s" validate:"min=0"`

	// Transcription API.
	MaxRetries     int           `split_words:"true" default:"3" validate:"min=0,max=10"`
	RetryBaseDelay time.Duration `split_words:"true" default:"1s" validate:"min=0"`
	AttemptTimeout time.Duration `split_words:"true" default:"5m" validate:"min=1s"`
	Language       string        `default:""`
	WordTimestamps bool          `split_words:"true" default:"false"`

	// Execution.
	Parallel int    `default:"1" validate:"min=1,max=10"`
	LogLevel string `split_words:"true" default:"info" validate:"oneof=debug info warn error"`
}

// Load reads the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints. It runs again after flag overrides.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			return fmt.Errorf("invalid configuration: %s", describeFields(fields))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := lang.Validate(c.Language); err != nil {
		return fmt.Errorf("invalid configuration: language: %w", err)
	}
	if c.MaxChunkBytes > openAIUploadLimit {
		return fmt.Errorf("invalid configuration: max chunk bytes %d exceeds the 25MB upload limit", c.MaxChunkBytes)
	}
	return nil
}

// PlanConfig translates the chunking fields for the audio planner.
func (c *Config) PlanConfig() audio.PlanConfig {
	return audio.PlanConfig{
		MaxChunkBytes: c.MaxChunkBytes,
		Overlap:       c.Overlap,
		MinFinalChunk: c.MinFinalChunk,
	}
}

func describeFields(fields validator.ValidationErrors) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", f.Field()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of %s", f.Field(), f.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s fails %s=%s (got %v)", f.Field(), f.Tag(), f.Param(), f.Value()))
		}
	}
	return strings.Join(parts, "; ")
}
