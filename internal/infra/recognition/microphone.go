//go:build portaudio
// +build portaudio

package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voice-phone/internal/domain"
)

const (
	framesPerBuffer  = 1024
	silenceThreshold = int16(500)
)

// MicrophoneSource records one utterance per session from the default
// input device and transcribes it.
type MicrophoneSource struct {
	transcriber Transcriber
	sampleRate  int
	logger      *slog.Logger
	events      chan domain.RecognitionEvent

	runner sessionRunner

	mu     sync.Mutex
	stream *portaudio.Stream
	frames []int16
}

func NewMicrophoneSource(transcriber Transcriber, sampleRate int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		transcriber: transcriber,
		sampleRate:  sampleRate,
		logger:      logger,
		events:      make(chan domain.RecognitionEvent, 16),
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

// Start waits for a stopped session to finish its read before the next
// one touches the stream.
func (m *MicrophoneSource) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.stream == nil {
		if err := m.open(); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	m.mu.Unlock()

	_, err := m.runner.start(ctx, m.runSession, func() {
		m.send(ctx, domain.EndEvent())
	})
	return err
}

// open must be called with m.mu held.
func (m *MicrophoneSource) open() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: initializing portaudio: %v", domain.ErrUnsupported, err)
	}

	m.frames = make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, m.frames)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: opening input stream: %v", domain.ErrUnsupported, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: starting input stream: %v", domain.ErrUnsupported, err)
	}

	m.stream = stream
	m.logger.Info("microphone opened", "sample_rate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	m.runner.stop()
	return nil
}

// Close releases the audio device once the running session has returned.
func (m *MicrophoneSource) Close() error {
	m.runner.stop()
	m.runner.wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil
	}
	m.stream.Stop()
	m.stream.Close()
	m.stream = nil
	return portaudio.Terminate()
}

func (m *MicrophoneSource) Events() <-chan domain.RecognitionEvent {
	return m.events
}

func (m *MicrophoneSource) runSession(ctx context.Context) {
	samples, err := m.record(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.send(ctx, domain.ErrorEvent(domain.ErrorAudioCapture, err.Error()))
		}
		return
	}

	m.send(ctx, domain.ResultEvent(domain.ResultBatch{
		Results: []domain.Segment{{Transcript: "…", IsFinal: false}},
	}))

	wavData, err := encodeWAV(samples, m.sampleRate)
	if err != nil {
		m.send(ctx, domain.ErrorEvent(domain.ErrorAudioCapture, err.Error()))
		return
	}

	text, err := m.transcriber.Transcribe(ctx, wavData)
	if err != nil {
		if ctx.Err() == nil {
			m.send(ctx, domain.ErrorEvent(domain.ErrorNetwork, err.Error()))
		}
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		m.send(ctx, domain.ErrorEvent(domain.ErrorNoSpeech, ""))
		return
	}
	m.send(ctx, domain.ResultEvent(domain.ResultBatch{
		Results: []domain.Segment{{Transcript: text, IsFinal: true}},
	}))
}

// record captures audio until a second of silence follows at least a
// second of sound, or ten seconds have passed.
func (m *MicrophoneSource) record(ctx context.Context) ([]int16, error) {
	samples := make([]int16, 0, m.sampleRate*5)
	silent := 0
	heard := false

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		m.mu.Lock()
		stream := m.stream
		m.mu.Unlock()
		if stream == nil {
			return nil, fmt.Errorf("microphone closed")
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("reading from stream: %w", err)
		}

		chunk := make([]int16, len(m.frames))
		copy(chunk, m.frames)

		if isSilent(chunk, silenceThreshold) {
			silent += len(chunk)
			if !heard {
				continue
			}
		} else {
			heard = true
			silent = 0
		}
		samples = append(samples, chunk...)

		if heard && silent > m.sampleRate && len(samples) > m.sampleRate {
			return samples, nil
		}
		if len(samples) > m.sampleRate*10 {
			return samples, nil
		}
	}
}

func (m *MicrophoneSource) send(ctx context.Context, ev domain.RecognitionEvent) bool {
	select {
	case m.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
