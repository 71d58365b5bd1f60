package application

import (
	"context"

	"voice-phone/internal/domain"
)

// Recognizer is the external speech-recognition stream. Start opens one
// recognition session; the recognizer reports results, errors and the end
// of the session on Events. A session ends on its own after a while, so
// continuous listening means starting again after every end event.
type Recognizer interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan domain.RecognitionEvent
}

// Speaker reads a confirmation out loud. Implementations must not block on
// playback.
type Speaker interface {
	Speak(ctx context.Context, u domain.Utterance) error
}

type NoopSpeaker struct{}

func (n *NoopSpeaker) Speak(_ context.Context, _ domain.Utterance) error {
	return nil
}

// StateObserver is told about every change of the presentation state.
type StateObserver interface {
	Publish(snapshot domain.Snapshot)
}
