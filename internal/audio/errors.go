package audio

import "errors"

// ErrUnsupportedFormat indicates the file extension is outside the supported set.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrCorruptFile indicates the file's duration could not be determined.
var ErrCorruptFile = errors.New("corrupt or unreadable audio file")

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrFileTooLarge indicates the input exceeds the ingestion size cap.
var ErrFileTooLarge = errors.New("file too large")

// ErrTooShort indicates the audio is shorter than one second.
var ErrTooShort = errors.New("audio too short")

// ErrInvalidPlan indicates chunk planning parameters are inconsistent.
var ErrInvalidPlan = errors.New("invalid chunk plan parameters")

// ErrExtraction indicates FFmpeg failed while rendering a chunk.
var ErrExtraction = errors.New("chunk extraction failed")
