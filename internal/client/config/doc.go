// Package config loads runtime configuration for the trial editor.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the record store
//	-t string   API bearer token
//	-u string   change log actor
//	-i int      online status check interval (seconds)
//	-b string   draft backend (sqlite|redis)
//	-d string   SQLite draft database
//	-r string   Redis address
//	-l string   log level
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s",
//	  "retries": 2,
//	  "draft_backend": "redis",
//	  "redis_addr": "127.0.0.1:6379",
//	  "draft_ttl": "720h",
//	  "s3": {"bucket": "trials", "endpoint": "http://127.0.0.1:9000"}
//	}
//
// S3 credentials and the API token are only read from JSON or flags. The
// only environment variable consulted is $USER, as the last actor fallback.
package config
