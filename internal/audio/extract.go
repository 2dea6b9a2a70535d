package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact is the extracted audio for one window. The backing file is owned
// by the caller from the moment Extract returns and must be released with
// Remove once the transcription attempt concludes, success or not.
type Artifact struct {
	Path   string
	Window Window
}

// Remove reclaims the artifact's temporary storage.
func (a Artifact) Remove() error {
	if a.Path == "" {
		return nil
	}
	// Artifacts live in their own scratch directory. Anything else, such
	// as a source file uploaded as-is, is not ours to delete.
	dir := filepath.Dir(a.Path)
	if !strings.Contains(filepath.Base(dir), "chunkscribe-") {
		return nil
	}
	return os.RemoveAll(dir)
}

// Extractor renders planned windows into standalone encoded audio segments.
type Extractor struct {
	ffmpegPath string

	cmd     commandRunner
	tempDir tempDirCreator
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorCommandRunner sets the command runner (for testing).
func WithExtractorCommandRunner(c commandRunner) ExtractorOption {
	return func(e *Extractor) { e.cmd = c }
}

// WithExtractorTempDir sets the temp directory creator (for testing).
func WithExtractorTempDir(t tempDirCreator) ExtractorOption {
	return func(e *Extractor) { e.tempDir = t }
}

// NewExtractor creates an Extractor using the given ffmpeg binary.
func NewExtractor(ffmpegPath string, opts ...ExtractorOption) (*Extractor, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty")
	}
	e := &Extractor{
		ffmpegPath: ffmpegPath,
		cmd:        osCommandRunner{},
		tempDir:    osTempDirCreator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// encodingArgs returns FFmpeg encoding arguments for chunk extraction.
// Re-encodes to OGG Vorbis to guarantee a format the transcription service
// accepts, even from corrupted or exotically-encoded sources. 16kHz mono at
// ~50kbps is optimal for speech transcription.
func encodingArgs() []string {
	return []string{
		"-c:a", "libvorbis",
		"-ar", "16000",
		"-ac", "1",
		"-q:a", "2",
	}
}

// Extract renders the window [Start, End] of src into an independent chunk
// file. Failures are per-chunk: the caller keeps processing other windows.
func (e *Extractor) Extract(ctx context.Context, src Source, w Window) (Artifact, error) {
	dir, err := e.tempDir.MkdirTemp("", "chunkscribe-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create temp directory: %w", err)
	}

	chunkPath := filepath.Join(dir, fmt.Sprintf("chunk_%03d.ogg", w.Index))

	args := []string{
		"-y",
		"-i", src.Path,
		"-ss", formatFFmpegTime(w.Start),
		"-to", formatFFmpegTime(w.End),
	}
	args = append(args, encodingArgs()...)
	args = append(args, chunkPath)

	output, err := e.cmd.CombinedOutput(ctx, e.ffmpegPath, args)
	if err != nil {
		_ = os.RemoveAll(dir)
		return Artifact{}, fmt.Errorf("%w: %s: %v\nOutput: %s", ErrExtraction, w, err, string(output))
	}

	return Artifact{Path: chunkPath, Window: w}, nil
}
