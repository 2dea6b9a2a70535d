package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chunkscribe/chunkscribe/internal/audio"
	"github.com/chunkscribe/chunkscribe/internal/config"
	"github.com/chunkscribe/chunkscribe/internal/merge"
	"github.com/chunkscribe/chunkscribe/internal/transcribe"
)

// testConfig returns a valid configuration with an API key set.
func testConfig() *config.Config {
	return &config.Config{
		APIKey:              "sk-test",
		MaxChunkBytes:       23068672,
		Overlap:             3 * time.Second,
		MinFinalChunk:       5 * time.Second,
		SilenceSearchRadius: 10 * time.Second,
		SilenceTimeBudget:   30 * time.Second,
		MaxRetries:          3,
		RetryBaseDelay:      time.Second,
		AttemptTimeout:      5 * time.Minute,
		Parallel:            1,
		LogLevel:            "info",
	}
}

type mockConfigLoader struct {
	cfg *config.Config
	err error
}

func (m *mockConfigLoader) Load() (*config.Config, error) {
	if m.err != nil {
		return nil, m.err
	}
	cfg := *m.cfg
	return &cfg, nil
}

type mockResolver struct {
	path string
	err  error
}

func (m *mockResolver) Resolve(context.Context) (string, error) {
	return m.path, m.err
}

type mockProber struct {
	src audio.Source
	err error
}

func (m *mockProber) Probe(_ context.Context, path string) (audio.Source, error) {
	if m.err != nil {
		return audio.Source{}, m.err
	}
	src := m.src
	src.Path = path
	return src, nil
}

type mockProberFactory struct {
	prober *mockProber
	err    error
}

func (m *mockProberFactory) NewProber(string) (Prober, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.prober, nil
}

type mockRunner struct {
	transcript merge.Transcript
	err        error

	ranPath string
}

func (m *mockRunner) Run(_ context.Context, path string) (merge.Transcript, error) {
	m.ranPath = path
	return m.transcript, m.err
}

type mockRunnerFactory struct {
	runner *mockRunner
	err    error

	gotConfig *config.Config
}

func (m *mockRunnerFactory) NewRunner(cfg *config.Config, _ string, usage *transcribe.Usage, _ *zap.Logger) (Runner, error) {
	m.gotConfig = cfg
	if m.err != nil {
		return nil, m.err
	}
	return m.runner, nil
}

// sampleTranscript is what the mock runner hands back.
func sampleTranscript() merge.Transcript {
	return merge.Transcript{
		FullText: "hello world",
		Language: "english",
		Duration: 90 * time.Second,
		Segments: []transcribe.Segment{
			{Text: "hello world", Start: time.Second, End: 4 * time.Second, Confidence: 0.9},
		},
	}
}

// testEnv builds an Env whose collaborators all succeed, plus the buffers
// capturing its output.
func testEnv(runner *mockRunner) (*Env, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	env := NewEnv(
		WithStdout(stdout),
		WithStderr(stderr),
		WithConfigLoader(&mockConfigLoader{cfg: testConfig()}),
		WithFFmpegResolver(&mockResolver{path: "/usr/bin/ffmpeg"}),
		WithProberFactory(&mockProberFactory{prober: &mockProber{
			src: audio.Source{Format: "mp3", Size: 2250, Duration: 90 * time.Second},
		}}),
		WithRunnerFactory(&mockRunnerFactory{runner: runner}),
	)
	return env, stdout, stderr
}

// writeInputFile drops a placeholder audio file into a temp dir.
func writeInputFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("not really audio"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
