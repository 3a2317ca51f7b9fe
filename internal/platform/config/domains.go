package config

import "time"

// TelegramMTProtoConfig holds Telegram MTProto API settings.
type TelegramMTProtoConfig struct {
	APIID       int
	APIHash     string
	Phone       string
	Password2FA string
	SessionPath string
}

// ChannelsConfig names the relay endpoints.
type ChannelsConfig struct {
	Source string
	Target string
}

// DedupConfig holds duplicate detection settings.
type DedupConfig struct {
	Strategy            string
	SimilarityThreshold float64
	CacheWindow         time.Duration
	CacheMaxSize        int
	CandidateScanLimit  int
	HistoryLimit        int
}

// ForwardConfig holds delivery settings.
type ForwardConfig struct {
	CleanForwardedText  bool
	ForwardDelay        time.Duration
	MaxForwardedHistory int
	DeliveryMode        string
	BotToken            string
	RateLimitRPS        int
	MaxRetries          int
}

// ReportConfig holds statistics and final report settings.
type ReportConfig struct {
	StatsEvery    int
	StatsInterval time.Duration
	Dir           string
	Prefix        string
	LastN         int
}

// DatabaseConfig holds journal database settings.
type DatabaseConfig struct {
	PostgresDSN string
}

// Enabled reports whether a journal database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.PostgresDSN != ""
}

func (c *Config) TelegramMTProtoCfg() TelegramMTProtoConfig {
	return TelegramMTProtoConfig{
		APIID:       c.TGAPIID,
		APIHash:     c.TGAPIHash,
		Phone:       c.TGPhone,
		Password2FA: c.TG2FAPassword,
		SessionPath: c.TGSessionPath,
	}
}

func (c *Config) ChannelsCfg() ChannelsConfig {
	return ChannelsConfig{
		Source: c.SourceChannel,
		Target: c.TargetChannel,
	}
}

func (c *Config) DedupCfg() DedupConfig {
	return DedupConfig{
		Strategy:            c.DedupStrategy,
		SimilarityThreshold: c.SimilarityThreshold,
		CacheWindow:         c.CacheWindow,
		CacheMaxSize:        c.CacheMaxSize,
		CandidateScanLimit:  c.CandidateScanLimit,
		HistoryLimit:        c.HistoryLimit,
	}
}

func (c *Config) ForwardCfg() ForwardConfig {
	return ForwardConfig{
		CleanForwardedText:  c.CleanForwardedText,
		ForwardDelay:        c.ForwardDelay,
		MaxForwardedHistory: c.MaxForwardedHistory,
		DeliveryMode:        c.DeliveryMode,
		BotToken:            c.BotToken,
		RateLimitRPS:        c.RateLimitRPS,
		MaxRetries:          c.DeliveryMaxRetries,
	}
}

func (c *Config) ReportCfg() ReportConfig {
	return ReportConfig{
		StatsEvery:    c.StatsEvery,
		StatsInterval: c.StatsInterval,
		Dir:           c.ReportDir,
		Prefix:        c.ReportPrefix,
		LastN:         c.ReportLastN,
	}
}

func (c *Config) DatabaseCfg() DatabaseConfig {
	return DatabaseConfig{PostgresDSN: c.PostgresDSN}
}
