package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/trialdraft/internal/flagx"
	"github.com/dmitrijs2005/trialdraft/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations
// accept both "15s" strings and integer nanoseconds (timex.Duration).
// Absent keys keep the values set before parsing.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             *string        `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	ReadTimeout           timex.Duration `json:"read_timeout"`
	WriteTimeout          timex.Duration `json:"write_timeout"`
	ShutdownTimeout       timex.Duration `json:"shutdown_timeout"`
	LogLevel              string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag. Nothing is loaded when neither is set. An unreadable
// file or invalid JSON panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	applyJson(config, c)
}

func applyJson(config *Config, c *JsonConfig) {
	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	config.TokenValidityDuration = c.TokenValidityDuration.OrDefault(config.TokenValidityDuration)
	config.ReadTimeout = c.ReadTimeout.OrDefault(config.ReadTimeout)
	config.WriteTimeout = c.WriteTimeout.OrDefault(config.WriteTimeout)
	config.ShutdownTimeout = c.ShutdownTimeout.OrDefault(config.ShutdownTimeout)
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
}
