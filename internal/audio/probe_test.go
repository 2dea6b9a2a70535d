package audio_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/chunkscribe/chunkscribe/internal/audio"
)

// recordingRunner is a commandRunner that returns canned output and records
// the arguments it was invoked with.
type recordingRunner struct {
	output []byte
	err    error

	calls int
	name  string
	args  []string
}

func (r *recordingRunner) CombinedOutput(_ context.Context, name string, args []string) ([]byte, error) {
	r.calls++
	r.name = name
	r.args = args
	return r.output, r.err
}

// fakeStatter reports a fixed size, or an error.
type fakeStatter struct {
	size int64
	err  error
}

func (f fakeStatter) Stat(name string) (os.FileInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return fakeFileInfo{name: name, size: f.size}, nil
}

type fakeFileInfo struct {
	name string
	size int64
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return f.size }
func (f fakeFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return false }
func (f fakeFileInfo) Sys() any           { return nil }

const ffmpegInfoOutput = `Input #0, mp3, from 'session.mp3':
  Duration: 01:02:03.45, start: 0.000000, bitrate: 128 kb/s
`

func TestProbe(t *testing.T) {
	t.Parallel()

	t.Run("returns source metadata", func(t *testing.T) {
		t.Parallel()

		prober, err := audio.NewProber("/usr/bin/ffmpeg",
			audio.WithProberCommandRunner(&recordingRunner{output: []byte(ffmpegInfoOutput)}),
			audio.WithProberStatter(fakeStatter{size: 4096}),
		)
		if err != nil {
			t.Fatal(err)
		}

		src, err := prober.Probe(context.Background(), "session.mp3")
		if err != nil {
			t.Fatalf("Probe() error: %v", err)
		}

		want := time.Hour + 2*time.Minute + 3*time.Second + 450*time.Millisecond
		if src.Duration != want {
			t.Errorf("Duration = %v, want %v", src.Duration, want)
		}
		if src.Format != "mp3" {
			t.Errorf("Format = %q, want mp3", src.Format)
		}
		if src.Size != 4096 {
			t.Errorf("Size = %d, want 4096", src.Size)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()

		prober, err := audio.NewProber("/usr/bin/ffmpeg",
			audio.WithProberCommandRunner(&recordingRunner{}),
			audio.WithProberStatter(fakeStatter{size: 100}),
		)
		if err != nil {
			t.Fatal(err)
		}

		_, err = prober.Probe(context.Background(), "document.pdf")
		if !errors.Is(err, audio.ErrUnsupportedFormat) {
			t.Errorf("Probe() = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		prober, err := audio.NewProber("/usr/bin/ffmpeg",
			audio.WithProberStatter(fakeStatter{err: fs.ErrNotExist}),
		)
		if err != nil {
			t.Fatal(err)
		}

		_, err = prober.Probe(context.Background(), "missing.mp3")
		if !errors.Is(err, audio.ErrFileNotFound) {
			t.Errorf("Probe() = %v, want ErrFileNotFound", err)
		}
	})

	t.Run("oversized file rejected at ingestion", func(t *testing.T) {
		t.Parallel()

		prober, err := audio.NewProber("/usr/bin/ffmpeg",
			audio.WithProberStatter(fakeStatter{size: 501 * 1024 * 1024}),
		)
		if err != nil {
			t.Fatal(err)
		}

		_, err = prober.Probe(context.Background(), "huge.wav")
		if !errors.Is(err, audio.ErrFileTooLarge) {
			t.Errorf("Probe() = %v, want ErrFileTooLarge", err)
		}
	})

	t.Run("unparseable duration means corrupt file", func(t *testing.T) {
		t.Parallel()

		prober, err := audio.NewProber("/usr/bin/ffmpeg",
			audio.WithProberCommandRunner(&recordingRunner{output: []byte("Invalid data found when processing input")}),
			audio.WithProberStatter(fakeStatter{size: 100}),
		)
		if err != nil {
			t.Fatal(err)
		}

		_, err = prober.Probe(context.Background(), "broken.ogg")
		if !errors.Is(err, audio.ErrCorruptFile) {
			t.Errorf("Probe() = %v, want ErrCorruptFile", err)
		}
	})

	t.Run("sub-second audio rejected", func(t *testing.T) {
		t.Parallel()

		prober, err := audio.NewProber("/usr/bin/ffmpeg",
			audio.WithProberCommandRunner(&recordingRunner{output: []byte("Duration: 00:00:00.40, start: 0")}),
			audio.WithProberStatter(fakeStatter{size: 100}),
		)
		if err != nil {
			t.Fatal(err)
		}

		_, err = prober.Probe(context.Background(), "blip.wav")
		if !errors.Is(err, audio.ErrTooShort) {
			t.Errorf("Probe() = %v, want ErrTooShort", err)
		}
	})
}

func TestBytesPerSecond(t *testing.T) {
	t.Parallel()

	src := audio.Source{Size: 1500, Duration: time.Minute}
	if got := src.BytesPerSecond(); got != 25 {
		t.Errorf("BytesPerSecond() = %v, want 25", got)
	}

	var zero audio.Source
	if got := zero.BytesPerSecond(); got != 0 {
		t.Errorf("zero source BytesPerSecond() = %v, want 0", got)
	}
}
