package recognition

import "context"

// Transcriber turns a recorded WAV utterance into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}
