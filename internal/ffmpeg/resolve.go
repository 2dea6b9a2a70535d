// Package ffmpeg locates the FFmpeg binary used for probing, silence
// scanning, and chunk extraction.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"

	"go.uber.org/zap"
)

// Environment variable for a custom ffmpeg path.
const envFFmpegPath = "FFMPEG_PATH"

// minMajorVersion is the minimum supported ffmpeg version. Older releases
// lack the silencedetect behavior the chunker depends on.
const minMajorVersion = 4

// Resolver finds the FFmpeg binary.
type Resolver struct {
	getenv   func(string) string
	lookPath func(string) (string, error)
	cmd      commandRunner
	logger   *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithGetenv sets the environment lookup (for testing).
func WithGetenv(fn func(string) string) ResolverOption {
	return func(r *Resolver) { r.getenv = fn }
}

// WithLookPath sets the PATH lookup (for testing).
func WithLookPath(fn func(string) (string, error)) ResolverOption {
	return func(r *Resolver) { r.lookPath = fn }
}

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(c commandRunner) ResolverOption {
	return func(r *Resolver) { r.cmd = c }
}

// WithLogger sets the logger used for version warnings.
func WithLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver with OS defaults.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		cmd:      osCommandRunner{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the path to the ffmpeg binary.
// Precedence: FFMPEG_PATH environment variable, then $PATH lookup.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if custom := r.getenv(envFFmpegPath); custom != "" {
		if _, err := os.Stat(custom); err != nil {
			return "", fmt.Errorf("%w: %s=%q: %v", ErrNotFound, envFFmpegPath, custom, err)
		}
		r.checkVersion(ctx, custom)
		return custom, nil
	}

	path, err := r.lookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w: install ffmpeg or set %s", ErrNotFound, envFFmpegPath)
	}
	r.checkVersion(ctx, path)
	return path, nil
}

// versionRe matches the major version in "ffmpeg version 6.1.1-..." output.
var versionRe = regexp.MustCompile(`ffmpeg version (\d+)\.`)

// checkVersion warns when the resolved binary looks too old.
// Version problems never block resolution; extraction errors surface them.
func (r *Resolver) checkVersion(ctx context.Context, path string) {
	output, err := r.cmd.CombinedOutput(ctx, path, []string{"-version"})
	if err != nil {
		r.logger.Warn("could not determine ffmpeg version", zap.String("path", path), zap.Error(err))
		return
	}

	matches := versionRe.FindSubmatch(output)
	if matches == nil {
		return
	}
	major, err := strconv.Atoi(string(matches[1]))
	if err == nil && major < minMajorVersion {
		r.logger.Warn("ffmpeg version is older than supported",
			zap.Int("found", major),
			zap.Int("minimum", minMajorVersion))
	}
}

// commandRunner executes external commands and returns their combined output.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

// osCommandRunner implements commandRunner using exec.CommandContext.
type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name and args are controlled by the resolver, not user input
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}
