package application_test

import (
	"context"
	"sync"

	"voice-phone/internal/domain"
)

type fakeRecognizer struct {
	mu       sync.Mutex
	events   chan domain.RecognitionEvent
	starts   int
	stops    int
	startErr error
	running  bool
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{events: make(chan domain.RecognitionEvent, 16)}
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Start(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.running = true
	return nil
}

func (f *fakeRecognizer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.running = false
	return nil
}

func (f *fakeRecognizer) Events() <-chan domain.RecognitionEvent { return f.events }

func (f *fakeRecognizer) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

func (f *fakeRecognizer) setStartErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErr = err
}

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []domain.Utterance
}

func (r *recordingSpeaker) Speak(_ context.Context, u domain.Utterance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, u)
	return nil
}

func (r *recordingSpeaker) utterances() []domain.Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Utterance(nil), r.spoken...)
}

type channelObserver struct {
	snapshots chan domain.Snapshot
}

func newChannelObserver() *channelObserver {
	return &channelObserver{snapshots: make(chan domain.Snapshot, 64)}
}

func (c *channelObserver) Publish(s domain.Snapshot) {
	select {
	case c.snapshots <- s:
	default:
	}
}

func finalBatch(texts ...string) domain.ResultBatch {
	batch := domain.ResultBatch{}
	for _, t := range texts {
		batch.Results = append(batch.Results, domain.Segment{Transcript: t, IsFinal: true})
	}
	return batch
}
