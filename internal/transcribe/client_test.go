package transcribe_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chunkscribe/chunkscribe/internal/apierr"
	"github.com/chunkscribe/chunkscribe/internal/audio"
	"github.com/chunkscribe/chunkscribe/internal/transcribe"
)

// scriptedAPI returns the scripted errors in order, then the response.
type scriptedAPI struct {
	errs []error
	resp openai.AudioResponse

	calls    int
	lastReq  openai.AudioRequest
	requests []openai.AudioRequest
}

func (s *scriptedAPI) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	s.calls++
	s.lastReq = req
	s.requests = append(s.requests, req)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return openai.AudioResponse{}, err
	}
	return s.resp, nil
}

func testArtifact() audio.Artifact {
	return audio.Artifact{
		Path: "/tmp/chunkscribe-x/chunk_002.ogg",
		Window: audio.Window{
			Index: 2,
			Start: 74 * time.Second,
			End:   90 * time.Second,
		},
	}
}

func verboseResponse() openai.AudioResponse {
	resp := openai.AudioResponse{
		Language: "english",
		Duration: 16,
		Text:     "hello world again",
	}
	resp.Segments = append(resp.Segments, struct {
		ID               int     `json:"id"`
		Seek             int     `json:"seek"`
		Start            float64 `json:"start"`
		End              float64 `json:"end"`
		Text             string  `json:"text"`
		Tokens           []int   `json:"tokens"`
		Temperature      float64 `json:"temperature"`
		AvgLogprob       float64 `json:"avg_logprob"`
		CompressionRatio float64 `json:"compression_ratio"`
		NoSpeechProb     float64 `json:"no_speech_prob"`
		Transient        bool    `json:"transient"`
	}{Start: 0.5, End: 4.25, Text: " hello world", AvgLogprob: -0.2})
	resp.Words = append(resp.Words, struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	}{Word: "hello", Start: 0.5, End: 1.0})
	return resp
}

func fastRetries() []transcribe.ClientOption {
	return []transcribe.ClientOption{
		transcribe.WithRetryDelays(time.Millisecond, 2*time.Millisecond),
	}
}

func TestClientTranscribe(t *testing.T) {
	t.Parallel()

	t.Run("success maps verbose response to local-time result", func(t *testing.T) {
		t.Parallel()

		api := &scriptedAPI{resp: verboseResponse()}
		usage := &transcribe.Usage{}
		c := transcribe.NewClient(api, usage, fastRetries()...)

		got, err := c.Transcribe(context.Background(), testArtifact(), transcribe.Options{})
		if err != nil {
			t.Fatalf("Transcribe() error: %v", err)
		}

		if got.ChunkIndex != 2 {
			t.Errorf("ChunkIndex = %d, want 2", got.ChunkIndex)
		}
		if got.Text != "hello world again" {
			t.Errorf("Text = %q", got.Text)
		}
		if got.Language != "english" {
			t.Errorf("Language = %q", got.Language)
		}
		if len(got.Segments) != 1 {
			t.Fatalf("got %d segments, want 1", len(got.Segments))
		}
		seg := got.Segments[0]
		if seg.Start != 500*time.Millisecond || seg.End != 4250*time.Millisecond {
			t.Errorf("segment times = [%v, %v], want [500ms, 4.25s]", seg.Start, seg.End)
		}
		if seg.Confidence <= 0 || seg.Confidence > 1 {
			t.Errorf("Confidence = %v, want in (0, 1]", seg.Confidence)
		}
		if len(got.Words) != 1 || got.Words[0].Word != "hello" {
			t.Errorf("Words = %+v", got.Words)
		}

		if usage.BilledDuration() != 16*time.Second {
			t.Errorf("billed = %v, want 16s", usage.BilledDuration())
		}
		if usage.Calls() != 1 {
			t.Errorf("calls = %d, want 1", usage.Calls())
		}
	})

	t.Run("rate limit then success is transparent", func(t *testing.T) {
		t.Parallel()

		direct := &scriptedAPI{resp: verboseResponse()}
		retried := &scriptedAPI{
			errs: []error{&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}},
			resp: verboseResponse(),
		}
		usage := &transcribe.Usage{}

		want, err := transcribe.NewClient(direct, &transcribe.Usage{}, fastRetries()...).
			Transcribe(context.Background(), testArtifact(), transcribe.Options{})
		if err != nil {
			t.Fatal(err)
		}
		got, err := transcribe.NewClient(retried, usage, fastRetries()...).
			Transcribe(context.Background(), testArtifact(), transcribe.Options{})
		if err != nil {
			t.Fatalf("Transcribe() error after retry: %v", err)
		}

		if retried.calls != 2 {
			t.Errorf("api calls = %d, want 2", retried.calls)
		}
		if got.Text != want.Text || len(got.Segments) != len(want.Segments) || got.Language != want.Language {
			t.Errorf("retried result differs from first-attempt result: %+v vs %+v", got, want)
		}
		if usage.Calls() != 1 {
			t.Errorf("usage calls = %d, want 1 (failed attempts are not billed)", usage.Calls())
		}
	})

	t.Run("auth failure is not retried", func(t *testing.T) {
		t.Parallel()

		api := &scriptedAPI{
			errs: []error{&openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}},
		}
		usage := &transcribe.Usage{}
		c := transcribe.NewClient(api, usage, fastRetries()...)

		_, err := c.Transcribe(context.Background(), testArtifact(), transcribe.Options{})
		if !errors.Is(err, apierr.ErrAuthFailed) {
			t.Fatalf("Transcribe() = %v, want ErrAuthFailed", err)
		}
		if api.calls != 1 {
			t.Errorf("api calls = %d, want 1", api.calls)
		}
		if usage.Calls() != 0 {
			t.Errorf("usage calls = %d, want 0", usage.Calls())
		}
	})

	t.Run("exhausted retries preserve the last error", func(t *testing.T) {
		t.Parallel()

		api := &scriptedAPI{errs: []error{
			&openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable, Message: "down"},
			&openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable, Message: "down"},
			&openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable, Message: "still down"},
		}}
		c := transcribe.NewClient(api, &transcribe.Usage{},
			transcribe.WithMaxRetries(2),
			transcribe.WithRetryDelays(time.Millisecond, 2*time.Millisecond),
		)

		_, err := c.Transcribe(context.Background(), testArtifact(), transcribe.Options{})
		if !errors.Is(err, apierr.ErrTimeout) {
			t.Fatalf("Transcribe() = %v, want ErrTimeout from last attempt", err)
		}
		if api.calls != 3 {
			t.Errorf("api calls = %d, want 3 (1 + 2 retries)", api.calls)
		}
	})

	t.Run("request carries language hint and word granularities", func(t *testing.T) {
		t.Parallel()

		api := &scriptedAPI{resp: verboseResponse()}
		c := transcribe.NewClient(api, &transcribe.Usage{}, fastRetries()...)

		_, err := c.Transcribe(context.Background(), testArtifact(), transcribe.Options{
			Language:       "pt-BR",
			WordTimestamps: true,
		})
		if err != nil {
			t.Fatal(err)
		}

		if api.lastReq.Language != "pt" {
			t.Errorf("request language = %q, want base code pt", api.lastReq.Language)
		}
		if len(api.lastReq.TimestampGranularities) != 2 {
			t.Errorf("granularities = %v, want segment and word", api.lastReq.TimestampGranularities)
		}
		if api.lastReq.Format != openai.AudioResponseFormatVerboseJSON {
			t.Errorf("format = %q, want verbose_json", api.lastReq.Format)
		}
	})

	t.Run("retries re-send identical requests", func(t *testing.T) {
		t.Parallel()

		api := &scriptedAPI{
			errs: []error{&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}},
			resp: verboseResponse(),
		}
		c := transcribe.NewClient(api, &transcribe.Usage{}, fastRetries()...)

		if _, err := c.Transcribe(context.Background(), testArtifact(), transcribe.Options{Language: "en"}); err != nil {
			t.Fatal(err)
		}
		if len(api.requests) != 2 {
			t.Fatalf("got %d requests, want 2", len(api.requests))
		}
		if api.requests[0].FilePath != api.requests[1].FilePath ||
			api.requests[0].Language != api.requests[1].Language {
			t.Errorf("retried request differs: %+v vs %+v", api.requests[0], api.requests[1])
		}
	})
}

func TestUsage(t *testing.T) {
	t.Parallel()

	var u transcribe.Usage
	u.Add(30 * time.Second)
	u.Add(90 * time.Second)

	if got := u.BilledDuration(); got != 2*time.Minute {
		t.Errorf("BilledDuration() = %v, want 2m", got)
	}
	if got := u.Calls(); got != 2 {
		t.Errorf("Calls() = %d, want 2", got)
	}
	if got, want := u.EstimatedCostUSD(), 2*transcribe.CostPerMinuteUSD; got != want {
		t.Errorf("EstimatedCostUSD() = %v, want %v", got, want)
	}

	u.Reset()
	if u.BilledDuration() != 0 || u.Calls() != 0 {
		t.Error("Reset() did not clear totals")
	}
}

func TestEstimateCostUSD(t *testing.T) {
	t.Parallel()

	if got := transcribe.EstimateCostUSD(10 * time.Minute); got != 10*transcribe.CostPerMinuteUSD {
		t.Errorf("EstimateCostUSD(10m) = %v", got)
	}
}
