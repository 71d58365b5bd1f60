//go:build !portaudio
// +build !portaudio

package recognition

import (
	"context"
	"fmt"
	"log/slog"

	"voice-phone/internal/domain"
)

// MicrophoneSource stub when portaudio is not available
type MicrophoneSource struct {
	logger *slog.Logger
	events chan domain.RecognitionEvent
}

func NewMicrophoneSource(_ Transcriber, _ int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{logger: logger, events: make(chan domain.RecognitionEvent)}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	return fmt.Errorf("%w: microphone source not available, rebuild with -tags portaudio", domain.ErrUnsupported)
}

func (m *MicrophoneSource) Stop() error {
	return nil
}

func (m *MicrophoneSource) Close() error {
	return nil
}

func (m *MicrophoneSource) Events() <-chan domain.RecognitionEvent {
	return m.events
}
