// Package transcribe sends extracted audio chunks to the speech-to-text
// service and returns structured, chunk-local results.
package transcribe

import (
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Segment is one transcribed span. Before merging, timestamps are local to
// the chunk's own start; the merger translates them to the source timeline.
type Segment struct {
	Text       string
	Start      time.Duration
	End        time.Duration
	Confidence float64 // derived from the service's average log probability; 0 when unknown
}

// Word is a single word timestamp, local or global like Segment.
type Word struct {
	Word  string
	Start time.Duration
	End   time.Duration
}

// ChunkResult is the transcription of one chunk, in chunk-local time.
// A failed chunk never produces a ChunkResult; the pipeline records an
// explicit failure instead.
type ChunkResult struct {
	ChunkIndex int
	Segments   []Segment
	Words      []Word
	Language   string
	Text       string
}

// Options configures a transcription request.
type Options struct {
	// Language is an optional ISO 639-1 hint. Empty means auto-detect.
	Language string

	// Prompt provides context to improve accuracy on domain vocabulary.
	Prompt string

	// WordTimestamps requests per-word timing in addition to segments.
	WordTimestamps bool
}

// resultFromResponse converts a verbose_json response into a ChunkResult.
func resultFromResponse(chunkIndex int, resp openai.AudioResponse) ChunkResult {
	result := ChunkResult{
		ChunkIndex: chunkIndex,
		Language:   resp.Language,
		Text:       resp.Text,
	}

	for _, seg := range resp.Segments {
		result.Segments = append(result.Segments, Segment{
			Text:       seg.Text,
			Start:      time.Duration(seg.Start * float64(time.Second)),
			End:        time.Duration(seg.End * float64(time.Second)),
			Confidence: confidenceFromLogprob(seg.AvgLogprob),
		})
	}
	for _, w := range resp.Words {
		result.Words = append(result.Words, Word{
			Word:  w.Word,
			Start: time.Duration(w.Start * float64(time.Second)),
			End:   time.Duration(w.End * float64(time.Second)),
		})
	}
	return result
}

// confidenceFromLogprob maps an average token log probability to (0, 1].
func confidenceFromLogprob(logprob float64) float64 {
	if logprob > 0 {
		logprob = 0
	}
	return math.Exp(logprob)
}
