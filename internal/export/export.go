// Package export renders a merged transcript as plain text, SRT, WebVTT,
// or a JSON document.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chunkscribe/chunkscribe/internal/format"
	"github.com/chunkscribe/chunkscribe/internal/merge"
	"github.com/chunkscribe/chunkscribe/internal/transcribe"
)

// Format identifies an output rendering.
type Format string

const (
	FormatText Format = "txt"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatSRT, FormatVTT, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want txt, srt, vtt, or json)", name)
	}
}

// Extension returns the file extension for the format, dot included.
func (f Format) Extension() string { return "." + string(f) }

// Render produces the transcript in the requested format.
func Render(t merge.Transcript, f Format, withTimestamps bool) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(Text(t, withTimestamps)), nil
	case FormatSRT:
		return []byte(SRT(t)), nil
	case FormatVTT:
		return []byte(VTT(t)), nil
	case FormatJSON:
		return JSON(t)
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}

// Text renders the transcript as plain text, one segment per line. With
// timestamps enabled each line is prefixed with its time range.
func Text(t merge.Transcript, withTimestamps bool) string {
	if !withTimestamps {
		return t.FullText + "\n"
	}
	var b strings.Builder
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s - %s] %s\n", format.Clock(seg.Start), format.Clock(seg.End), text)
	}
	return b.String()
}

// SRT renders the transcript as SubRip subtitles: numbered cues with
// comma-millisecond timing lines.
func SRT(t merge.Transcript) string {
	var b strings.Builder
	cue := 1
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			cue, format.SRTStamp(seg.Start), format.SRTStamp(seg.End), text)
		cue++
	}
	return b.String()
}

// VTT renders the transcript as WebVTT: the WEBVTT header followed by cues
// with dot-millisecond timing lines.
func VTT(t merge.Transcript) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			format.VTTStamp(seg.Start), format.VTTStamp(seg.End), text)
	}
	return b.String()
}

// document is the JSON wire shape. Times are floating-point seconds, like
// the transcription API reports them.
type document struct {
	Language string       `json:"language,omitempty"`
	Duration float64      `json:"duration"`
	Text     string       `json:"text"`
	Segments []docSegment `json:"segments"`
	Words    []docWord    `json:"words,omitempty"`
	Failures []docFailure `json:"failures,omitempty"`
}

type docSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

type docWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type docFailure struct {
	Chunk  int     `json:"chunk"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Reason string  `json:"reason"`
}

// JSON renders the transcript as an indented JSON document.
func JSON(t merge.Transcript) ([]byte, error) {
	doc := document{
		Language: t.Language,
		Duration: format.Seconds(t.Duration),
		Text:     t.FullText,
		Segments: make([]docSegment, 0, len(t.Segments)),
	}
	for _, seg := range t.Segments {
		doc.Segments = append(doc.Segments, docSegment{
			Start:      format.Seconds(seg.Start),
			End:        format.Seconds(seg.End),
			Text:       seg.Text,
			Confidence: seg.Confidence,
		})
	}
	for _, w := range t.Words {
		doc.Words = append(doc.Words, docWord{
			Word:  w.Word,
			Start: format.Seconds(w.Start),
			End:   format.Seconds(w.End),
		})
	}
	for _, f := range t.Failures {
		doc.Failures = append(doc.Failures, docFailure{
			Chunk:  f.Index,
			Start:  format.Seconds(f.Start),
			End:    format.Seconds(f.End),
			Reason: f.Reason,
		})
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	return append(out, '\n'), nil
}

// ParseJSON decodes a transcript previously rendered by JSON.
func ParseJSON(data []byte) (merge.Transcript, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return merge.Transcript{}, fmt.Errorf("decode transcript: %w", err)
	}
	t := merge.Transcript{
		FullText: doc.Text,
		Language: doc.Language,
		Duration: format.FromSeconds(doc.Duration),
	}
	for _, seg := range doc.Segments {
		t.Segments = append(t.Segments, transcribe.Segment{
			Text:       seg.Text,
			Start:      format.FromSeconds(seg.Start),
			End:        format.FromSeconds(seg.End),
			Confidence: seg.Confidence,
		})
	}
	for _, w := range doc.Words {
		t.Words = append(t.Words, transcribe.Word{
			Word:  w.Word,
			Start: format.FromSeconds(w.Start),
			End:   format.FromSeconds(w.End),
		})
	}
	for _, f := range doc.Failures {
		t.Failures = append(t.Failures, merge.ChunkFailure{
			Index:  f.Chunk,
			Start:  format.FromSeconds(f.Start),
			End:    format.FromSeconds(f.End),
			Reason: f.Reason,
		})
	}
	return t, nil
}
