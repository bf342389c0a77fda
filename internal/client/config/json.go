package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/trialdraft/internal/flagx"
	"github.com/dmitrijs2005/trialdraft/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	Token               string         `json:"token"`
	Actor               string         `json:"actor"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	ProbeTimeout        timex.Duration `json:"probe_timeout"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	Retries             *uint64        `json:"retries"`
	RetryBackoff        timex.Duration `json:"retry_backoff"`
	SettleDelay         timex.Duration `json:"settle_delay"`
	CreateConcurrency   int            `json:"create_concurrency"`
	DraftBackend        string         `json:"draft_backend"`
	DraftDSN            string         `json:"draft_dsn"`
	RedisAddr           string         `json:"redis_addr"`
	DraftTTL            timex.Duration `json:"draft_ttl"`
	S3                  struct {
		Bucket        string `json:"bucket"`
		Region        string `json:"region"`
		Endpoint      string `json:"endpoint"`
		AccessKey     string `json:"access_key"`
		SecretKey     string `json:"secret_key"`
		PublicBaseURL string `json:"public_base_url"`
	} `json:"s3"`
	LogLevel string `json:"log_level"`
}

// parseJson overlays Config with values loaded from a JSON file named by
// -c or -config. Keys missing from the file keep their current value.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	str(&cfg.ServerURL, jc.ServerURL)
	str(&cfg.Token, jc.Token)
	str(&cfg.Actor, jc.Actor)
	cfg.OnlineCheckInterval = jc.OnlineCheckInterval.OrDefault(cfg.OnlineCheckInterval)
	cfg.ProbeTimeout = jc.ProbeTimeout.OrDefault(cfg.ProbeTimeout)
	cfg.RequestTimeout = jc.RequestTimeout.OrDefault(cfg.RequestTimeout)
	if jc.Retries != nil {
		cfg.Retries = *jc.Retries
	}
	cfg.RetryBackoff = jc.RetryBackoff.OrDefault(cfg.RetryBackoff)
	cfg.SettleDelay = jc.SettleDelay.OrDefault(cfg.SettleDelay)
	if jc.CreateConcurrency > 0 {
		cfg.CreateConcurrency = jc.CreateConcurrency
	}
	str(&cfg.DraftBackend, jc.DraftBackend)
	str(&cfg.DraftDSN, jc.DraftDSN)
	str(&cfg.RedisAddr, jc.RedisAddr)
	cfg.DraftTTL = jc.DraftTTL.OrDefault(cfg.DraftTTL)

	str(&cfg.S3.Bucket, jc.S3.Bucket)
	str(&cfg.S3.Region, jc.S3.Region)
	str(&cfg.S3.Endpoint, jc.S3.Endpoint)
	str(&cfg.S3.AccessKey, jc.S3.AccessKey)
	str(&cfg.S3.SecretKey, jc.S3.SecretKey)
	str(&cfg.S3.PublicBaseURL, jc.S3.PublicBaseURL)
	str(&cfg.LogLevel, jc.LogLevel)
}

func str(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
