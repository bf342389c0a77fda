package config

import "time"

// Config holds runtime settings for the trial editor.
//
// Units: every interval is a time.Duration; Retries counts retries after
// the first attempt.
type Config struct {
	ServerURL string
	Token     string
	// Actor is recorded on change log entries. See ResolveActor.
	Actor string

	OnlineCheckInterval time.Duration
	ProbeTimeout        time.Duration
	RequestTimeout      time.Duration
	Retries             uint64
	RetryBackoff        time.Duration
	SettleDelay         time.Duration
	CreateConcurrency   int

	DraftBackend string
	DraftDSN     string
	RedisAddr    string
	DraftTTL     time.Duration

	S3 S3Config

	LogLevel string
}

// S3Config configures the attachment store. An empty Bucket disables
// attachments.
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.OnlineCheckInterval = 3 * time.Second
	c.ProbeTimeout = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.Retries = 2
	c.RetryBackoff = 500 * time.Millisecond
	c.SettleDelay = time.Second
	c.CreateConcurrency = 4
	c.DraftBackend = "sqlite"
	c.DraftDSN = "trialdraft.db"
	c.RedisAddr = "127.0.0.1:6379"
	c.S3.Region = "us-east-1"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
