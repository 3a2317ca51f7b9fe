package app

import (
	"context"
	"fmt"
	"time"

	"github.com/lueurxax/telegram-relay/internal/core/ports"
	"github.com/lueurxax/telegram-relay/internal/ingest/mtproto"
	"github.com/lueurxax/telegram-relay/internal/output/botsender"
	"github.com/lueurxax/telegram-relay/internal/platform/config"
	"github.com/lueurxax/telegram-relay/internal/process/dedup"
	"github.com/lueurxax/telegram-relay/internal/process/filters"
	"github.com/lueurxax/telegram-relay/internal/process/relay"
	db "github.com/lueurxax/telegram-relay/internal/storage"
)

// newRelay compiles the pattern set and builds the detector and relay. A
// non-nil clock drives the duplicate window from message dates.
func (a *App) newRelay(deliverer ports.Deliverer, journal ports.Journal, clock *messageClock, forwardDelay time.Duration) (*relay.Relay, error) {
	patterns := a.cfg.Patterns

	compare, err := filters.CompilePatterns(patterns.ComparePatterns)
	if err != nil {
		return nil, fmt.Errorf("compare patterns: %w", err)
	}

	forward, err := filters.CompilePatterns(patterns.ForwardPatterns)
	if err != nil {
		return nil, fmt.Errorf("forward patterns: %w", err)
	}

	blacklist, err := filters.NewBlacklist(patterns.BlacklistKeywords, patterns.BlacklistPatterns)
	if err != nil {
		return nil, fmt.Errorf("blacklist patterns: %w", err)
	}

	dcfg := a.cfg.DedupCfg()

	var windowClock func() time.Time
	if clock != nil {
		windowClock = clock.Now
	}

	window := dedup.NewWindow(dcfg.CacheWindow, dcfg.CacheMaxSize, windowClock)
	keys := dedup.NewKeyBuilder(filters.NewCompareCleaner(compare), patterns.StopWords)

	detector, err := dedup.New(dedup.Options{
		Strategy:       dcfg.Strategy,
		Threshold:      dcfg.SimilarityThreshold,
		CandidateLimit: dcfg.CandidateScanLimit,
	}, window, keys)
	if err != nil {
		return nil, err
	}

	if clock != nil {
		detector = clockedDetector{Detector: detector, clock: clock}
	}

	fwd := a.cfg.ForwardCfg()
	rep := a.cfg.ReportCfg()

	a.logger.Info().
		Str("strategy", detector.Name()).
		Float64("threshold", dcfg.SimilarityThreshold).
		Dur("window", dcfg.CacheWindow).
		Int("max_cache", dcfg.CacheMaxSize).
		Bool("cleaning", fwd.CleanForwardedText).
		Int("forward_patterns", len(forward)).
		Int("compare_patterns", len(compare)).
		Msg("Duplicate detection configured")

	return relay.New(relay.Config{
		RunID:               a.runID,
		CleanForwardedText:  fwd.CleanForwardedText,
		ForwardDelay:        forwardDelay,
		MaxForwardedHistory: fwd.MaxForwardedHistory,
		StatsEvery:          rep.StatsEvery,
		HistoryWindow:       dcfg.CacheWindow,
		HistoryLimit:        dcfg.HistoryLimit,
	},
		detector,
		filters.NewStripper(forward, fwd.CleanForwardedText),
		blacklist,
		deliverer,
		journal,
		a.logger,
	), nil
}

// newDeliverer picks the delivery collaborator. Bot delivery still downloads
// photos through the user client.
func (a *App) newDeliverer(client *mtproto.Client) (ports.Deliverer, error) {
	fwd := a.cfg.ForwardCfg()
	if fwd.DeliveryMode != config.DeliveryModeBot {
		return client, nil
	}

	sender, err := botsender.New(fwd, a.cfg.TargetChannel, client, a.logger)
	if err != nil {
		return nil, fmt.Errorf("bot delivery: %w", err)
	}

	return sender, nil
}

// openJournal connects and migrates the journal database when one is
// configured. The returned DB is nil otherwise.
func (a *App) openJournal(ctx context.Context) (ports.Journal, *db.DB, error) {
	dbCfg := a.cfg.DatabaseCfg()
	if !dbCfg.Enabled() {
		a.logger.Info().Msg("Relay journal disabled")

		return ports.NopJournal{}, nil, nil
	}

	database, err := db.New(ctx, dbCfg.PostgresDSN, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect journal database: %w", err)
	}

	if err := database.Migrate(ctx); err != nil {
		database.Close()

		return nil, nil, fmt.Errorf("migrate journal database: %w", err)
	}

	a.logger.Info().Msg("Relay journal enabled")

	return database, database, nil
}
