package model

import "time"

// Config holds all hevcstat settings
type Config struct {
	Data         DataConfig         `yaml:"data" mapstructure:"data"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Crawl        CrawlConfig        `yaml:"crawl" mapstructure:"crawl"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	News         NewsConfig         `yaml:"news" mapstructure:"news"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the dataset and cache files
type DataConfig struct {
	SourceCSV    string `yaml:"source_csv" mapstructure:"source_csv"`       // Raw pool list as published
	PatentCSV    string `yaml:"patent_csv" mapstructure:"patent_csv"`       // Cleaned dataset
	MetadataJSON string `yaml:"metadata_json" mapstructure:"metadata_json"` // Metadata cache
	LedgerDB     string `yaml:"ledger_db" mapstructure:"ledger_db"`         // Crawl ledger; empty keeps it in memory

	// MetadataExtra lists read-only cache files merged under MetadataJSON
	MetadataExtra []string `yaml:"metadata_extra" mapstructure:"metadata_extra"`
}

// MetadataFiles returns the cache files in merge order; the primary cache comes last and wins
func (d DataConfig) MetadataFiles() []string {
	files := make([]string, 0, len(d.MetadataExtra)+1)
	files = append(files, d.MetadataExtra...)
	return append(files, d.MetadataJSON)
}

// HTTPConfig configures outbound HTTP
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// CrawlConfig configures the metadata crawler
type CrawlConfig struct {
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`
	Workers         int           `yaml:"workers" mapstructure:"workers"`
	FlushEvery      int           `yaml:"flush_every" mapstructure:"flush_every"`   // Persist the cache after this many new entries
	MaxAttempts     int           `yaml:"max_attempts" mapstructure:"max_attempts"` // Across runs, per ID
	BackoffBase     time.Duration `yaml:"backoff_base" mapstructure:"backoff_base"`
	BackoffMax      time.Duration `yaml:"backoff_max" mapstructure:"backoff_max"`
	RespectRobots   bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	Browser         bool          `yaml:"browser" mapstructure:"browser"` // Render pages with headless Chrome
	ChromePath      string        `yaml:"chrome_path" mapstructure:"chrome_path"`
	SecondaryLookup bool          `yaml:"secondary_lookup" mapstructure:"secondary_lookup"`
}

// RateLimitingConfig configures per-domain request rates
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ServerConfig configures the dashboard
type ServerConfig struct {
	Addr        string        `yaml:"addr" mapstructure:"addr"`
	CacheTTL    time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	RecrawlCron string        `yaml:"recrawl_cron" mapstructure:"recrawl_cron"`
	CORSOrigins []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// NewsConfig configures the news panel feed
type NewsConfig struct {
	FeedURL  string        `yaml:"feed_url" mapstructure:"feed_url"`
	Query    string        `yaml:"query" mapstructure:"query"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Limit    int           `yaml:"limit" mapstructure:"limit"`
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			SourceCSV:    "2022.02.04-Website-Patent-List.csv",
			PatentCSV:    "patent.csv",
			MetadataJSON: "patent.json",
			LedgerDB:     "crawl.db",
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "hevcstat/0.3 (+https://github.com/ppiankov/hevcstat)",
			MaxBodyBytes: 5_000_000,
		},
		Crawl: CrawlConfig{
			BaseURL:         "https://patents.google.com/patent/",
			Workers:         1,
			FlushEvery:      25,
			MaxAttempts:     5,
			BackoffBase:     time.Hour,
			BackoffMax:      7 * 24 * time.Hour,
			RespectRobots:   true,
			SecondaryLookup: true,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         1,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8501",
			CacheTTL:    5 * time.Minute,
			CORSOrigins: []string{"*"},
		},
		News: NewsConfig{
			FeedURL:  "https://news.google.com/rss/search",
			Query:    "HEVC Advance",
			Timeout:  10 * time.Second,
			Limit:    30,
			CacheTTL: 15 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
