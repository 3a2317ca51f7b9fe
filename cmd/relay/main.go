package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/app"
	"github.com/lueurxax/telegram-relay/internal/platform/config"
)

const (
	modeRelay  = "relay"
	modeReplay = "replay"
)

func main() {
	mode := flag.String("mode", modeRelay, "Service mode (relay, replay)")
	input := flag.String("input", "", "JSONL message file (for replay mode)")

	flag.Parse()

	cfg, err := loadConfig(*mode, *input)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, &logger)

	if err := runMode(ctx, application, *mode, *input); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func loadConfig(mode, input string) (*config.Config, error) {
	switch mode {
	case modeRelay:
		return config.Load()
	case modeReplay:
		if input == "" {
			log.Fatalf("Usage: %s --mode=replay --input=<file.jsonl>", os.Args[0])
		}

		return config.LoadReplay()
	default:
		log.Fatalf("Usage: %s --mode=[relay|replay]", os.Args[0])

		return nil, nil
	}
}

func newLogger(appEnv, level string) zerolog.Logger {
	if lvl, err := zerolog.ParseLevel(level); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode, input string) error {
	if mode == modeReplay {
		return application.RunReplay(ctx, input)
	}

	return application.RunRelay(ctx)
}
