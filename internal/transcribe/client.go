package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/chunkscribe/chunkscribe/internal/apierr"
	"github.com/chunkscribe/chunkscribe/internal/audio"
	"github.com/chunkscribe/chunkscribe/internal/lang"
)

// Default retry and timeout configuration.
const (
	defaultMaxRetries     = 3
	defaultBaseDelay      = 1 * time.Second
	defaultMaxDelay       = 30 * time.Second
	defaultAttemptTimeout = 5 * time.Minute
)

// Transcriber transcribes one extracted chunk to text.
type Transcriber interface {
	// Transcribe converts an audio chunk to a structured result in
	// chunk-local time. Transient failures are retried internally; the
	// returned error reflects the final attempt.
	Transcribe(ctx context.Context, artifact audio.Artifact, opts Options) (ChunkResult, error)
}

// audioTranscriber is the slice of the OpenAI client this package uses.
// *openai.Client implements it implicitly; tests inject mocks.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Transcriber      = (*Client)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// Client transcribes chunks via the OpenAI transcription API with
// exponential-backoff retries for transient errors. Each successful call
// accumulates the chunk's billed duration into the shared Usage counter.
type Client struct {
	api   audioTranscriber
	usage *Usage

	maxRetries     uint64
	baseDelay      time.Duration
	maxDelay       time.Duration
	attemptTimeout time.Duration
	logger         *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = uint64(n)
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, maxDelay time.Duration) ClientOption {
	return func(c *Client) {
		if base > 0 {
			c.baseDelay = base
		}
		if maxDelay > 0 {
			c.maxDelay = maxDelay
		}
	}
}

// WithAttemptTimeout bounds each individual API attempt, independent of the
// backoff schedule, so one hung request cannot stall the pipeline.
func WithAttemptTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// WithLogger sets the logger for attempt-level diagnostics.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client. The api is injected to enable testing with
// mocks; production callers pass *openai.Client. usage must not be nil.
func NewClient(api audioTranscriber, usage *Usage, opts ...ClientOption) *Client {
	c := &Client{
		api:            api,
		usage:          usage,
		maxRetries:     defaultMaxRetries,
		baseDelay:      defaultBaseDelay,
		maxDelay:       defaultMaxDelay,
		attemptTimeout: defaultAttemptTimeout,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe sends the artifact to the transcription API.
//
// Rate limits, timeouts, and 5xx responses are retried with exponential
// backoff up to the configured ceiling; the same artifact bytes are re-sent
// unchanged, so a retried success is indistinguishable from a first-attempt
// success. Auth failures, quota exhaustion, and rejected input fail
// immediately.
func (c *Client) Transcribe(ctx context.Context, artifact audio.Artifact, opts Options) (ChunkResult, error) {
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: artifact.Path,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Prompt:   opts.Prompt,
		Language: lang.BaseCode(opts.Language), // the API only accepts ISO 639-1 base codes
	}
	if opts.WordTimestamps {
		req.TimestampGranularities = []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
			openai.TranscriptionTimestampGranularityWord,
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.baseDelay
	bo.MaxInterval = c.maxDelay
	bo.MaxElapsedTime = 0 // attempts are bounded by the retry ceiling, not wall time

	attempt := 0
	result, err := backoff.RetryWithData(func() (ChunkResult, error) {
		attempt++

		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()

		resp, err := c.api.CreateTranscription(attemptCtx, req)
		if err != nil {
			err = apierr.Classify(err)
			c.logger.Warn("transcription attempt failed",
				zap.Int("chunk", artifact.Window.Index),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if !apierr.Retryable(err) {
				return ChunkResult{}, backoff.Permanent(err)
			}
			return ChunkResult{}, err
		}
		return resultFromResponse(artifact.Window.Index, resp), nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx))
	if err != nil {
		return ChunkResult{}, fmt.Errorf("chunk %d: %w", artifact.Window.Index, err)
	}

	c.usage.Add(artifact.Window.Duration())
	return result, nil
}
