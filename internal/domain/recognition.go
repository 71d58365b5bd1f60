package domain

import (
	"errors"
	"fmt"
)

// ErrUnsupported means speech recognition is unavailable on this host or
// microphone access was denied. It is not recoverable within a session.
var ErrUnsupported = errors.New("speech recognition not supported")

// Segment is one recognition alternative as delivered by the recognizer.
type Segment struct {
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"isFinal"`
}

// ResultBatch mirrors a recognition result event: Results holds every
// result of the session so far and ResultIndex is the first one that
// changed.
type ResultBatch struct {
	ResultIndex int       `json:"resultIndex"`
	Results     []Segment `json:"results"`
}

type ErrorCode string

const (
	ErrorNotAllowed          ErrorCode = "not-allowed"
	ErrorServiceNotAllowed   ErrorCode = "service-not-allowed"
	ErrorNoSpeech            ErrorCode = "no-speech"
	ErrorAborted             ErrorCode = "aborted"
	ErrorAudioCapture        ErrorCode = "audio-capture"
	ErrorNetwork             ErrorCode = "network"
	ErrorLanguageUnsupported ErrorCode = "language-not-supported"
)

type RecognitionError struct {
	Code    ErrorCode `json:"error"`
	Message string    `json:"message,omitempty"`
}

func (e *RecognitionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("recognition error: %s", e.Code)
	}
	return fmt.Sprintf("recognition error: %s: %s", e.Code, e.Message)
}

// Fatal reports whether the error means recognition can never work in
// this session.
func (e *RecognitionError) Fatal() bool {
	return e.Code == ErrorNotAllowed || e.Code == ErrorServiceNotAllowed
}

type EventKind string

const (
	EventResult EventKind = "result"
	EventError  EventKind = "error"
	EventEnd    EventKind = "end"
)

// RecognitionEvent is a single callback from the recognizer.
type RecognitionEvent struct {
	Kind  EventKind
	Batch *ResultBatch
	Err   *RecognitionError
}

func ResultEvent(batch ResultBatch) RecognitionEvent {
	return RecognitionEvent{Kind: EventResult, Batch: &batch}
}

func ErrorEvent(code ErrorCode, message string) RecognitionEvent {
	return RecognitionEvent{Kind: EventError, Err: &RecognitionError{Code: code, Message: message}}
}

func EndEvent() RecognitionEvent {
	return RecognitionEvent{Kind: EventEnd}
}
