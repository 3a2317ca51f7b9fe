// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// the two operational modes:
//
//   - Relay mode: MTProto user client that watches the source channel and
//     relays unique messages to the target channel, either as the user or
//     through a bot
//   - Replay mode: offline run over a JSONL dump with logged deliveries,
//     used to tune patterns and thresholds without touching Telegram
//
// Both modes end with a statistics snapshot and the final report, which are
// attempted even when the run is interrupted.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/ingest/mtproto"
	"github.com/lueurxax/telegram-relay/internal/ingest/replay"
	"github.com/lueurxax/telegram-relay/internal/output/report"
	"github.com/lueurxax/telegram-relay/internal/platform/config"
	"github.com/lueurxax/telegram-relay/internal/platform/observability"
	"github.com/lueurxax/telegram-relay/internal/platform/worker"
	"github.com/lueurxax/telegram-relay/internal/process/relay"
	db "github.com/lueurxax/telegram-relay/internal/storage"
)

const (
	runSummaryTimeout = 10 * time.Second
	statsWorkerName   = "stats"
	logFieldRunID     = "run_id"
	replaySourceName  = "replay"
	replayTargetName  = "log"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg    *config.Config
	logger *zerolog.Logger
	runID  string
	now    func() time.Time
}

// New creates a new App instance. Every run gets a fresh id that tags journal
// rows and the final report.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		runID:  uuid.NewString(),
		now:    time.Now,
	}
}

// RunID returns the id of this run.
func (a *App) RunID() string {
	return a.runID
}

// RunRelay runs the relay mode until ctx is canceled.
func (a *App) RunRelay(ctx context.Context) error {
	a.logger.Info().Str(logFieldRunID, a.runID).Msg("Starting relay mode")

	journal, database, err := a.openJournal(ctx)
	if err != nil {
		return err
	}

	if database != nil {
		defer database.Close()
	}

	client := mtproto.New(a.cfg.TelegramMTProtoCfg(), a.cfg.ChannelsCfg(), a.cfg.ForwardCfg(), a.logger)

	deliverer, err := a.newDeliverer(client)
	if err != nil {
		return err
	}

	r, err := a.newRelay(deliverer, journal, nil, a.cfg.ForwardCfg().ForwardDelay)
	if err != nil {
		return err
	}

	health := a.startHealthServer(ctx, database)
	run := a.newRunSummary(r, a.cfg.SourceChannel, a.cfg.TargetChannel)

	a.recordRun(database, run)

	defer a.finish(r, database, run)

	err = client.Run(ctx, func(ctx context.Context) error {
		r.LoadHistory(ctx, client)
		health.SetReady(true)

		defer health.SetReady(false)

		go a.runStatsTicker(ctx, r)

		a.logger.Info().Str("strategy", r.Strategy()).Msg("Listening for new messages")

		return r.Run(ctx, client)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("relay run: %w", err)
	}

	return nil
}

// RunReplay relays every message of the JSONL file at input through the full
// pipeline with logged deliveries. The duplicate window follows the message
// dates of the file and no pacing delay is applied.
func (a *App) RunReplay(ctx context.Context, input string) error {
	a.logger.Info().Str(logFieldRunID, a.runID).Str("input", input).Msg("Starting replay mode")

	src, err := replay.Open(input)
	if err != nil {
		return fmt.Errorf("replay input: %w", err)
	}

	journal, database, err := a.openJournal(ctx)
	if err != nil {
		return err
	}

	if database != nil {
		defer database.Close()
	}

	deliverer := replay.NewDeliverer(a.logger)

	r, err := a.newRelay(deliverer, journal, newMessageClock(a.now), 0)
	if err != nil {
		return err
	}

	run := a.newRunSummary(r, replaySourceName, replayTargetName)

	a.recordRun(database, run)

	defer a.finish(r, database, run)

	tickCtx, stopTicker := context.WithCancel(ctx)
	defer stopTicker()

	go a.runStatsTicker(tickCtx, r)

	src.Start(ctx)

	if err := r.Run(ctx, src); err != nil {
		return fmt.Errorf("replay run: %w", err)
	}

	a.logger.Info().Int("messages", src.Len()).Int("delivered", deliverer.Count()).Msg("Replay finished")

	return nil
}

func (a *App) startHealthServer(ctx context.Context, database *db.DB) *observability.Server {
	var deps []observability.Pinger
	if database != nil {
		deps = append(deps, database)
	}

	srv := observability.NewServer(a.cfg.HealthPort, a.logger, deps...)

	if a.cfg.HealthPort <= 0 {
		return srv
	}

	go func() {
		if err := srv.Start(ctx); err != nil {
			a.logger.Error().Err(err).Msg("health check server error")
		}
	}()

	return srv
}

func (a *App) runStatsTicker(ctx context.Context, r *relay.Relay) {
	rep := a.cfg.ReportCfg()
	cleaning := a.cfg.CleanForwardedText

	err := worker.SingleTickerLoop(ctx, worker.SingleTickerConfig{
		Name:     statsWorkerName,
		Interval: rep.StatsInterval,
		OnTick: func(_ context.Context) {
			report.LogSnapshot(a.logger, r.Stats(), cleaning, a.now())
		},
		Logger: a.logger,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn().Err(err).Msg("stats worker stopped")
	}
}

func (a *App) newRunSummary(r *relay.Relay, source, target string) db.RunSummary {
	return db.RunSummary{
		RunID:     a.runID,
		Source:    source,
		Target:    target,
		Strategy:  r.Strategy(),
		Threshold: a.cfg.SimilarityThreshold,
		StartedAt: r.Stats().StartedAt,
	}
}

// finish logs the closing snapshot, writes the final report and stores the
// run summary. It runs on every exit path, so it never uses the run context.
func (a *App) finish(r *relay.Relay, database *db.DB, run db.RunSummary) {
	finishedAt := a.now()
	stats := r.Stats()
	rep := a.cfg.ReportCfg()

	a.logger.Info().Msg("Relay stopped, final statistics follow")
	report.LogSnapshot(a.logger, stats, a.cfg.CleanForwardedText, finishedAt)

	meta := report.Meta{
		RunID:      a.runID,
		StartedAt:  stats.StartedAt,
		FinishedAt: finishedAt,
		Source:     run.Source,
		Target:     run.Target,
		Window:     a.cfg.CacheWindow,
		Threshold:  a.cfg.SimilarityThreshold,
		Strategy:   r.Strategy(),
		Cleaning:   a.cfg.CleanForwardedText,
		MaxCache:   a.cfg.CacheMaxSize,
	}

	path, err := report.SaveFinal(rep.Dir, rep.Prefix, meta, stats, r.Forwarded(), rep.LastN)
	if err != nil {
		a.logger.Error().Err(err).Msg("Could not write final report")
	} else {
		a.logger.Info().Str("path", path).Msg("Final report saved")
	}

	run.FinishedAt = finishedAt
	run.Stats = stats

	a.recordRun(database, run)
}

func (a *App) recordRun(database *db.DB, run db.RunSummary) {
	if database == nil {
		return
	}

	err := worker.RunWithTimeout(context.Background(), runSummaryTimeout, func(ctx context.Context) error {
		return database.RecordRun(ctx, run)
	})
	if err != nil {
		observability.JournalErrors.Inc()
		a.logger.Warn().Err(err).Msg("Could not store run summary")
	}
}
