package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"voice-phone/internal/domain"
)

// Listener drives a Recognizer from the user-visible listening flag and
// turns result batches into final transcripts. It is not safe for
// concurrent use; the Assistant calls it from its event loop only.
type Listener struct {
	recognizer Recognizer
	logger     *slog.Logger

	state   domain.ListeningState
	interim string
}

func NewListener(recognizer Recognizer, logger *slog.Logger) *Listener {
	return &Listener{
		recognizer: recognizer,
		logger:     logger,
		state:      domain.StateIdle,
	}
}

func (l *Listener) State() domain.ListeningState {
	return l.state
}

// Interim is the live transcript preview.
func (l *Listener) Interim() string {
	return l.interim
}

func (l *Listener) Start(ctx context.Context) error {
	switch l.state {
	case domain.StateListening:
		return nil
	case domain.StateUnsupported:
		return domain.ErrUnsupported
	}

	if err := l.recognizer.Start(ctx); err != nil {
		if errors.Is(err, domain.ErrUnsupported) {
			l.markUnsupported(err)
			return err
		}
		return fmt.Errorf("starting recognition: %w", err)
	}

	l.state = domain.StateListening
	l.interim = ""
	l.logger.Info("listening started", "recognizer", l.recognizer.Name())
	return nil
}

func (l *Listener) Stop() error {
	if l.state != domain.StateListening {
		return nil
	}

	// The flag flips first so an end event raised by Stop is not taken as
	// a reason to restart.
	l.state = domain.StateIdle
	if err := l.recognizer.Stop(); err != nil {
		return fmt.Errorf("stopping recognition: %w", err)
	}
	l.logger.Info("listening stopped", "recognizer", l.recognizer.Name())
	return nil
}

func (l *Listener) Toggle(ctx context.Context) error {
	if l.state == domain.StateListening {
		return l.Stop()
	}
	return l.Start(ctx)
}

// HandleResult folds a result batch into the interim preview and returns
// the normalized final transcript when the batch carries one.
func (l *Listener) HandleResult(batch domain.ResultBatch) (string, bool) {
	if l.state == domain.StateUnsupported {
		return "", false
	}

	var interim, final strings.Builder
	for i := max(batch.ResultIndex, 0); i < len(batch.Results); i++ {
		seg := batch.Results[i]
		if seg.IsFinal {
			final.WriteString(seg.Transcript)
			final.WriteString(" ")
		} else {
			interim.WriteString(seg.Transcript)
		}
	}

	if interim.Len() > 0 {
		l.interim = interim.String()
	} else {
		l.interim = final.String()
	}

	text := domain.Normalize(final.String())
	if text == "" {
		return "", false
	}
	return text, true
}

func (l *Listener) HandleError(recErr *domain.RecognitionError) {
	if recErr.Fatal() {
		l.markUnsupported(recErr)
		return
	}
	l.logger.Warn("speech recognition error", "code", recErr.Code, "message", recErr.Message)
}

// HandleEnd restarts the recognizer when the session ended while the user
// still wants to listen. The flag is read now, not when the session began.
func (l *Listener) HandleEnd(ctx context.Context) error {
	if l.state != domain.StateListening {
		return nil
	}

	if err := l.recognizer.Start(ctx); err != nil {
		if errors.Is(err, domain.ErrUnsupported) {
			l.markUnsupported(err)
			return err
		}
		l.state = domain.StateIdle
		return fmt.Errorf("restarting recognition: %w", err)
	}

	l.logger.Debug("recognition session restarted", "recognizer", l.recognizer.Name())
	return nil
}

func (l *Listener) markUnsupported(cause error) {
	if l.state == domain.StateUnsupported {
		return
	}
	wasListening := l.state == domain.StateListening
	l.state = domain.StateUnsupported
	l.interim = ""
	l.logger.Error("speech recognition unavailable", "error", cause)

	if wasListening {
		if err := l.recognizer.Stop(); err != nil {
			l.logger.Warn("stopping recognizer", "error", err)
		}
	}
}
