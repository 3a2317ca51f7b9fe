package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

// Dedup strategies and delivery modes accepted by the configuration.
const (
	StrategyKeyed     = "keyed"
	StrategyThreshold = "threshold"

	DeliveryModeUser = "user"
	DeliveryModeBot  = "bot"
)

// Config is the flat environment configuration. Components receive the
// narrower views from domains.go.
type Config struct {
	AppEnv              string        `env:"APP_ENV" envDefault:"local"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	TGAPIID             int           `env:"TG_API_ID"`
	TGAPIHash           string        `env:"TG_API_HASH"`
	TGPhone             string        `env:"TG_PHONE"`
	TG2FAPassword       string        `env:"TG_2FA_PASSWORD"`
	TGSessionPath       string        `env:"TG_SESSION_PATH" envDefault:"./tg.session"`
	SourceChannel       string        `env:"SOURCE_CHANNEL"`
	TargetChannel       string        `env:"TARGET_CHANNEL"`
	DedupStrategy       string        `env:"DEDUP_STRATEGY" envDefault:"keyed"`
	SimilarityThreshold float64       `env:"SIMILARITY_THRESHOLD" envDefault:"0.8"`
	CacheWindow         time.Duration `env:"CACHE_WINDOW" envDefault:"1h"`
	CacheMaxSize        int           `env:"CACHE_MAX_SIZE" envDefault:"1000"`
	CandidateScanLimit  int           `env:"CANDIDATE_SCAN_LIMIT" envDefault:"50"`
	HistoryLimit        int           `env:"HISTORY_LIMIT" envDefault:"200"`
	CleanForwardedText  bool          `env:"CLEAN_FORWARDED_TEXT" envDefault:"true"`
	ForwardDelay        time.Duration `env:"FORWARD_DELAY" envDefault:"1s"`
	MaxForwardedHistory int           `env:"MAX_FORWARDED_HISTORY" envDefault:"100"`
	ReportLastN         int           `env:"REPORT_LAST_N" envDefault:"20"`
	StatsEvery          int           `env:"STATS_EVERY" envDefault:"10"`
	StatsInterval       time.Duration `env:"STATS_INTERVAL" envDefault:"10m"`
	PatternsFile        string        `env:"PATTERNS_FILE"`
	ReportDir           string        `env:"REPORT_DIR" envDefault:"."`
	ReportPrefix        string        `env:"REPORT_PREFIX" envDefault:"relay_report_"`
	DeliveryMode        string        `env:"DELIVERY_MODE" envDefault:"user"`
	BotToken            string        `env:"BOT_TOKEN"`
	RateLimitRPS        int           `env:"RATE_LIMIT_RPS" envDefault:"1"`
	DeliveryMaxRetries  int           `env:"DELIVERY_MAX_RETRIES" envDefault:"2"`
	HealthPort          int           `env:"HEALTH_PORT" envDefault:"8080"`
	PostgresDSN         string        `env:"POSTGRES_DSN"`

	// Patterns is filled from PATTERNS_FILE or the embedded defaults.
	Patterns Patterns
}

// Load reads the relay configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	return load((*Config).Validate)
}

// LoadReplay reads the configuration for offline replay, which needs neither
// Telegram credentials nor channels.
func LoadReplay() (*Config, error) {
	return load(func(c *Config) error {
		return joinInvalid(c.validateProcessing())
	})
}

func load(validate func(*Config) error) (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := applyAliases(cfg); err != nil {
		return nil, err
	}

	patterns, err := LoadPatterns(cfg.PatternsFile)
	if err != nil {
		return nil, err
	}

	cfg.Patterns = patterns

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	return joinInvalid(append(c.validateTelegram(), c.validateProcessing()...))
}

func (c *Config) validateTelegram() []error {
	var errs []error

	if c.TGAPIID <= 0 {
		errs = append(errs, fmt.Errorf("TG_API_ID must be positive, got %d", c.TGAPIID))
	}

	if strings.TrimSpace(c.TGAPIHash) == "" {
		errs = append(errs, errors.New("TG_API_HASH is empty"))
	}

	if strings.TrimSpace(c.SourceChannel) == "" {
		errs = append(errs, errors.New("SOURCE_CHANNEL is empty"))
	}

	if strings.TrimSpace(c.TargetChannel) == "" {
		errs = append(errs, errors.New("TARGET_CHANNEL is empty"))
	}

	switch c.DeliveryMode {
	case DeliveryModeUser:
	case DeliveryModeBot:
		if strings.TrimSpace(c.BotToken) == "" {
			errs = append(errs, errors.New("BOT_TOKEN is required when DELIVERY_MODE=bot"))
		}
	default:
		errs = append(errs, fmt.Errorf("DELIVERY_MODE must be %q or %q, got %q", DeliveryModeUser, DeliveryModeBot, c.DeliveryMode))
	}

	return errs
}

func (c *Config) validateProcessing() []error {
	var errs []error

	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("SIMILARITY_THRESHOLD must be in (0,1], got %v", c.SimilarityThreshold))
	}

	if c.CacheWindow <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_WINDOW must be positive, got %s", c.CacheWindow))
	}

	if c.CacheMaxSize <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_MAX_SIZE must be positive, got %d", c.CacheMaxSize))
	}

	if c.CandidateScanLimit <= 0 {
		errs = append(errs, fmt.Errorf("CANDIDATE_SCAN_LIMIT must be positive, got %d", c.CandidateScanLimit))
	}

	switch c.DedupStrategy {
	case StrategyKeyed, StrategyThreshold:
	default:
		errs = append(errs, fmt.Errorf("DEDUP_STRATEGY must be %q or %q, got %q", StrategyKeyed, StrategyThreshold, c.DedupStrategy))
	}

	if c.ForwardDelay < 0 {
		errs = append(errs, fmt.Errorf("FORWARD_DELAY must not be negative, got %s", c.ForwardDelay))
	}

	return errs
}

func joinInvalid(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, errors.Join(errs...))
}

// IsLocal reports whether the process runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.AppEnv == "local"
}

// applyAliases reads the legacy variable names when the primary ones are
// unset. A malformed alias is a configuration error, not a silent default.
func applyAliases(cfg *Config) error {
	var errs []error

	if !hasEnv("CACHE_WINDOW") {
		errs = appendErr(errs, setHoursAsDuration("CACHE_HOURS", &cfg.CacheWindow))
	}

	if !hasEnv("FORWARD_DELAY") {
		errs = appendErr(errs, setSecondsAsDuration("FORWARD_DELAY_SECONDS", &cfg.ForwardDelay))
	}

	if !hasEnv("SIMILARITY_THRESHOLD") {
		errs = appendErr(errs, setFloat64FromEnv("DUPLICATE_THRESHOLD", &cfg.SimilarityThreshold))
	}

	return joinInvalid(errs)
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}

	return errs
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func lookupFloat(key string) (float64, bool, error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return 0, false, nil
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a number, got %q", key, val)
	}

	return parsed, true, nil
}

func setFloat64FromEnv(key string, target *float64) error {
	parsed, ok, err := lookupFloat(key)
	if err != nil || !ok {
		return err
	}

	*target = parsed

	return nil
}

func setHoursAsDuration(key string, target *time.Duration) error {
	parsed, ok, err := lookupFloat(key)
	if err != nil || !ok {
		return err
	}

	if parsed <= 0 {
		return fmt.Errorf("%s must be positive, got %v", key, parsed)
	}

	*target = time.Duration(parsed * float64(time.Hour))

	return nil
}

func setSecondsAsDuration(key string, target *time.Duration) error {
	parsed, ok, err := lookupFloat(key)
	if err != nil || !ok {
		return err
	}

	if parsed < 0 {
		return fmt.Errorf("%s must not be negative, got %v", key, parsed)
	}

	*target = time.Duration(parsed * float64(time.Second))

	return nil
}
