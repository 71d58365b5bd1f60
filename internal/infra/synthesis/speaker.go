package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"voice-phone/internal/domain"
)

const (
	EngineLog    = "log"
	EngineEspeak = "espeak"
	EngineSay    = "say"
)

// LogSpeaker writes confirmations to the log instead of playing them.
type LogSpeaker struct {
	logger *slog.Logger
}

func NewLogSpeaker(logger *slog.Logger) *LogSpeaker {
	return &LogSpeaker{logger: logger}
}

func (s *LogSpeaker) Speak(_ context.Context, u domain.Utterance) error {
	s.logger.Info("speaking",
		"text", u.Text,
		"rate", u.Rate,
		"pitch", u.Pitch,
		"volume", u.Volume,
	)
	return nil
}

// ExecSpeaker plays confirmations through a local text-to-speech binary.
// Playback runs in the background; Speak only reports failures to launch.
type ExecSpeaker struct {
	engine string
	voice  string
	logger *slog.Logger
	start  func(name string, args ...string) (wait func() error, err error)
}

func NewExecSpeaker(engine, voice string, logger *slog.Logger) (*ExecSpeaker, error) {
	if engine != EngineEspeak && engine != EngineSay {
		return nil, fmt.Errorf("unknown speech engine %q", engine)
	}
	if _, err := exec.LookPath(engine); err != nil {
		return nil, fmt.Errorf("finding %s: %w", engine, err)
	}
	return &ExecSpeaker{
		engine: engine,
		voice:  voice,
		logger: logger,
		start:  startCommand,
	}, nil
}

func (s *ExecSpeaker) Speak(_ context.Context, u domain.Utterance) error {
	if strings.TrimSpace(u.Text) == "" {
		return nil
	}

	args := Args(s.engine, s.voice, u)
	wait, err := s.start(s.engine, args...)
	if err != nil {
		return fmt.Errorf("starting %s: %w", s.engine, err)
	}

	go func() {
		if err := wait(); err != nil {
			s.logger.Warn("speech playback failed", "engine", s.engine, "error", err)
		}
	}()
	return nil
}

// Args maps an utterance onto the command line of engine. Rate, pitch and
// volume are multipliers of the engine's defaults.
func Args(engine, voice string, u domain.Utterance) []string {
	var args []string
	switch engine {
	case EngineEspeak:
		if voice != "" {
			args = append(args, "-v", voice)
		}
		args = append(args,
			"-s", scaled(175, u.Rate),
			"-p", scaled(50, u.Pitch),
			"-a", scaled(100, u.Volume),
		)
	case EngineSay:
		// say has no pitch or volume flags.
		if voice != "" {
			args = append(args, "-v", voice)
		}
		args = append(args, "-r", scaled(175, u.Rate))
	}
	return append(args, "--", u.Text)
}

func scaled(base, factor float64) string {
	return strconv.Itoa(int(math.Round(base * factor)))
}

func startCommand(name string, args ...string) (func() error, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd.Wait, nil
}
