// Package merge assembles per-chunk transcription results into a single
// transcript on the source file's timeline.
//
// Each chunk reports timestamps relative to its own start. Merging shifts
// them by the chunk window's offset, then resolves the overlap between
// adjacent chunks by time: content already covered by an earlier chunk is
// dropped, never re-matched by text similarity. Failed chunks leave a gap
// in the transcript and a failure record, they never abort the merge on
// their own.
package merge

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chunkscribe/chunkscribe/internal/audio"
	"github.com/chunkscribe/chunkscribe/internal/lang"
	"github.com/chunkscribe/chunkscribe/internal/transcribe"
)

// ErrTotalFailure indicates that every chunk failed, leaving nothing to merge.
var ErrTotalFailure = errors.New("all chunks failed to transcribe")

// overlapTolerance absorbs sub-frame timestamp jitter between adjacent
// chunks when deciding whether a segment is a duplicate of already-emitted
// content.
const overlapTolerance = 50 * time.Millisecond

// ChunkOutcome is the result of processing one chunk, successful or not.
// Exactly one of Result and Err is set.
type ChunkOutcome struct {
	Index  int
	Window audio.Window
	Result *transcribe.ChunkResult
	Err    error
}

// ChunkFailure records a chunk whose audio could not be transcribed. The
// time range tells the reader which part of the source is missing.
type ChunkFailure struct {
	Index  int
	Start  time.Duration
	End    time.Duration
	Reason string
}

// Transcript is the merged, source-timeline transcription.
type Transcript struct {
	FullText string
	Segments []transcribe.Segment
	Words    []transcribe.Word
	Language string
	Duration time.Duration
	Failures []ChunkFailure
}

// Complete reports whether every chunk contributed to the transcript.
func (t Transcript) Complete() bool { return len(t.Failures) == 0 }

// Merge combines chunk outcomes into a single transcript on the timeline of
// plan's source. Outcomes may arrive in any order. It returns
// ErrTotalFailure when no chunk succeeded; partial failures are reported in
// the transcript's Failures list instead.
func Merge(outcomes []ChunkOutcome, plan audio.Plan) (Transcript, error) {
	sorted := make([]ChunkOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	transcript := Transcript{Duration: plan.Source.Duration}

	var (
		texts     []string
		languages []string
		succeeded int
	)

	// End of the last emitted segment/word on the global timeline. Content
	// at or before these marks was already covered by an earlier chunk.
	var segHorizon, wordHorizon time.Duration

	for _, outcome := range sorted {
		if outcome.Err != nil {
			transcript.Failures = append(transcript.Failures, ChunkFailure{
				Index:  outcome.Index,
				Start:  outcome.Window.Start,
				End:    outcome.Window.End,
				Reason: outcome.Err.Error(),
			})
			continue
		}
		if outcome.Result == nil {
			return Transcript{}, fmt.Errorf("chunk %d: outcome has neither result nor error", outcome.Index)
		}
		succeeded++
		languages = append(languages, outcome.Result.Language)

		offset := outcome.Window.Start
		for _, seg := range outcome.Result.Segments {
			global := transcribe.Segment{
				Text:       seg.Text,
				Start:      offset + seg.Start,
				End:        offset + seg.End,
				Confidence: seg.Confidence,
			}
			if global.End <= segHorizon+overlapTolerance {
				continue // fully covered by the previous chunk
			}
			if global.Start < segHorizon {
				global.Start = segHorizon
			}
			transcript.Segments = append(transcript.Segments, global)
			segHorizon = global.End
			if text := strings.TrimSpace(global.Text); text != "" {
				texts = append(texts, text)
			}
		}
		for _, w := range outcome.Result.Words {
			global := transcribe.Word{
				Word:  w.Word,
				Start: offset + w.Start,
				End:   offset + w.End,
			}
			if global.End <= wordHorizon+overlapTolerance {
				continue
			}
			if global.Start < wordHorizon {
				global.Start = wordHorizon
			}
			transcript.Words = append(transcript.Words, global)
			wordHorizon = global.End
		}
	}

	if succeeded == 0 && len(sorted) > 0 {
		return transcript, fmt.Errorf("%w: %d chunks", ErrTotalFailure, len(sorted))
	}

	transcript.FullText = strings.Join(texts, " ")
	transcript.Language = lang.Majority(languages)
	return transcript, nil
}
