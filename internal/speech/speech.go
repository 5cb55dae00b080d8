// Package speech models the speech-to-text collaborator as a checked
// capability: environments without it degrade to an explicit unsupported
// result instead of crashing or being sniffed inline in control flow.
package speech

import (
	"context"
	"errors"
)

// ErrUnsupported is returned when no speech capability is available.
var ErrUnsupported = errors.New("speech: voice input not supported in this environment")

// Recognizer captures one utterance and returns a single transcription to
// populate the input box.
type Recognizer interface {
	// Available reports whether transcription can be attempted at all.
	Available() bool
	// Transcribe blocks until one result is ready or ctx is done.
	Transcribe(ctx context.Context) (string, error)
}

// Unsupported is the recognizer used where no speech backend exists. Its
// Transcribe always fails with ErrUnsupported.
type Unsupported struct{}

func (Unsupported) Available() bool { return false }

func (Unsupported) Transcribe(context.Context) (string, error) {
	return "", ErrUnsupported
}
