package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-phone/internal/domain"
)

// Voice holds the synthesis parameters used for every confirmation.
type Voice struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

func DefaultVoice() Voice {
	return Voice{Rate: 1.0, Pitch: 1.0, Volume: 1.0}
}

type Options struct {
	Voice Voice
	// AutoStart turns listening on as soon as Run begins.
	AutoStart bool
}

type toggleRequest struct {
	reply chan error
}

// Assistant owns the listening state, the command history and the last
// action. Recognizer events and toggles are handled one at a time on the
// goroutine running Run.
type Assistant struct {
	recognizer Recognizer
	listener   *Listener
	dispatcher *Dispatcher
	speaker    Speaker
	notifier   Notifier
	history    *History
	logger     *slog.Logger
	opts       Options
	now        func() time.Time

	toggles   chan toggleRequest
	observers []StateObserver

	mu         sync.RWMutex
	state      domain.ListeningState
	interim    string
	lastAction string
}

func NewAssistant(
	recognizer Recognizer,
	dispatcher *Dispatcher,
	speaker Speaker,
	notifier Notifier,
	opts Options,
	logger *slog.Logger,
) *Assistant {
	return &Assistant{
		recognizer: recognizer,
		listener:   NewListener(recognizer, logger),
		dispatcher: dispatcher,
		speaker:    speaker,
		notifier:   notifier,
		history:    NewHistory(),
		logger:     logger,
		opts:       opts,
		now:        time.Now,
		toggles:    make(chan toggleRequest),
		state:      domain.StateIdle,
	}
}

// AddObserver registers an observer. It must be called before Run.
func (a *Assistant) AddObserver(o StateObserver) {
	a.observers = append(a.observers, o)
}

func (a *Assistant) Run(ctx context.Context) error {
	defer func() {
		if err := a.listener.Stop(); err != nil {
			a.logger.Warn("stopping listener", "error", err)
		}
	}()

	a.logger.Info("assistant ready", "recognizer", a.recognizer.Name())

	if a.opts.AutoStart {
		if err := a.listener.Start(ctx); err != nil {
			a.logger.Error("starting listener", "error", err)
		}
		a.refresh()
	}

	events := a.recognizer.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-a.toggles:
			err := a.listener.Toggle(ctx)
			a.refresh()
			req.reply <- err
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("recognizer %s closed its event stream", a.recognizer.Name())
			}
			a.handleEvent(ctx, ev)
		}
	}
}

// Toggle flips listening on or off and returns the resulting state. It
// blocks until Run has handled the request.
func (a *Assistant) Toggle(ctx context.Context) (domain.Snapshot, error) {
	req := toggleRequest{reply: make(chan error, 1)}

	select {
	case a.toggles <- req:
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	}

	select {
	case err := <-req.reply:
		return a.Snapshot(), err
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	}
}

// Snapshot is safe to call from any goroutine.
func (a *Assistant) Snapshot() domain.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return domain.Snapshot{
		State:      a.state,
		Listening:  a.state == domain.StateListening,
		Supported:  a.state != domain.StateUnsupported,
		Interim:    a.interim,
		LastAction: a.lastAction,
		History:    a.history.Newest(),
	}
}

func (a *Assistant) handleEvent(ctx context.Context, ev domain.RecognitionEvent) {
	switch ev.Kind {
	case domain.EventResult:
		if ev.Batch == nil {
			return
		}
		if text, ok := a.listener.HandleResult(*ev.Batch); ok {
			a.execute(ctx, text)
		}
	case domain.EventError:
		if ev.Err == nil {
			return
		}
		a.listener.HandleError(ev.Err)
	case domain.EventEnd:
		if err := a.listener.HandleEnd(ctx); err != nil {
			a.logger.Error("recognition session ended", "error", err)
		}
	default:
		a.logger.Warn("unknown recognition event", "kind", ev.Kind)
		return
	}
	a.refresh()
}

func (a *Assistant) execute(ctx context.Context, text string) {
	resp := a.dispatcher.Classify(text)

	a.logger.Info("command recognized",
		"text", text,
		"action", resp.Action,
		"label", resp.Label,
	)

	utterance := domain.Utterance{
		Text:   resp.Speech,
		Rate:   a.opts.Voice.Rate,
		Pitch:  a.opts.Voice.Pitch,
		Volume: a.opts.Voice.Volume,
	}
	if err := a.speaker.Speak(ctx, utterance); err != nil {
		a.logger.Error("speaking confirmation", "error", err)
	}

	a.history.Append(domain.CommandRecord{
		ID:        uuid.NewString(),
		Command:   text,
		Action:    resp.Action,
		Icon:      resp.Icon,
		Label:     resp.Label,
		Speech:    resp.Speech,
		Timestamp: a.now(),
	})

	a.mu.Lock()
	a.lastAction = resp.Display()
	a.mu.Unlock()

	go func(message string) {
		if err := a.notifier.Notify(ctx, message); err != nil {
			a.logger.Error("notifying action", "error", err)
		}
	}(resp.Display())
}

func (a *Assistant) refresh() {
	a.mu.Lock()
	a.state = a.listener.State()
	a.interim = a.listener.Interim()
	a.mu.Unlock()

	if len(a.observers) == 0 {
		return
	}
	snapshot := a.Snapshot()
	for _, o := range a.observers {
		o.Publish(snapshot)
	}
}
