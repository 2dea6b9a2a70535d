package lang

import "errors"

// ErrInvalid indicates a language code not recognized by the transcription service.
var ErrInvalid = errors.New("invalid language code")
