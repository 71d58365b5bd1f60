package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"voice-phone/config"
	"voice-phone/internal/application"
	"voice-phone/internal/infra/openai"
	"voice-phone/internal/infra/pushover"
	"voice-phone/internal/infra/recognition"
	"voice-phone/internal/infra/synthesis"
	"voice-phone/internal/infra/web"
	"voice-phone/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant and its web page (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, logCloser := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recognizer, relay, err := createRecognizer(cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := recognizer.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	assistant := application.NewAssistant(
		recognizer,
		application.NewDispatcher(nil),
		createSpeaker(cfg.Speech, logger),
		createNotifier(cfg.Pushover),
		application.Options{
			Voice: application.Voice{
				Rate:   *cfg.Speech.Rate,
				Pitch:  *cfg.Speech.Pitch,
				Volume: *cfg.Speech.Volume,
			},
			AutoStart: cfg.Recognition.AutoStart,
		},
		logger,
	)

	server := web.NewServer(cfg.Server.Addr, assistant, logger)
	if relay != nil {
		server.Mount("/recognition/", relay.Handler())
	}
	assistant.AddObserver(server)

	if err := server.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("stopping web server", "error", err)
		}
	}()

	logger.Info("starting voice phone assistant",
		"recognizer", recognizer.Name(),
		"speech_engine", cfg.Speech.Engine,
		"addr", cfg.Server.Addr,
	)

	if err := assistant.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("assistant stopped: %w", err)
	}
	logger.Info("shutting down")
	return nil
}

// createRecognizer also returns the HTTP relay when the browser is the
// recognizer, so it can be mounted on the web server.
func createRecognizer(cfg *config.Config, logger *slog.Logger) (application.Recognizer, *recognition.HTTPSource, error) {
	rc := cfg.Recognition
	switch rc.Source {
	case "file":
		delay, err := cfg.LineDelay()
		if err != nil {
			return nil, nil, err
		}
		return recognition.NewFileSource(afero.NewOsFs(), rc.FileDir, delay, logger), nil, nil
	case "microphone":
		whisper := openai.NewWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.Language)
		return recognition.NewMicrophoneSource(whisper, rc.SampleRate, logger), nil, nil
	default:
		relay := recognition.NewHTTPSource(rc.Language, rc.AuthToken, rc.RateLimit, logger)
		return relay, relay, nil
	}
}

func createSpeaker(cfg config.SpeechConfig, logger *slog.Logger) application.Speaker {
	if cfg.Engine == synthesis.EngineLog {
		return synthesis.NewLogSpeaker(logger)
	}
	speaker, err := synthesis.NewExecSpeaker(cfg.Engine, cfg.Voice, logger)
	if err != nil {
		logger.Warn("speech engine unavailable, logging confirmations instead", "engine", cfg.Engine, "error", err)
		return synthesis.NewLogSpeaker(logger)
	}
	return speaker
}

func createNotifier(cfg config.PushoverConfig) application.Notifier {
	if !cfg.Enabled {
		return &application.NoopNotifier{}
	}
	return pushover.NewClient(cfg.Token, cfg.UserKey)
}
