package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/flagx"
)

// ValueFlags are the flags of parseFlags that take a value, including the
// JSON config flags. cmd/editor uses them to find positional arguments.
var ValueFlags = []string{"-a", "-t", "-u", "-i", "-b", "-d", "-r", "-l", "-c", "-config"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the record store
//	-t string   API bearer token
//	-u string   actor name recorded in the change log
//	-i int      online check interval in seconds
//	-b string   draft backend: sqlite or redis
//	-d string   SQLite draft database path
//	-r string   Redis address for the redis backend
//	-l string   log level
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-u", "-i", "-b", "-d", "-r", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the record store")
	fs.StringVar(&cfg.Token, "t", cfg.Token, "API bearer token")
	fs.StringVar(&cfg.Actor, "u", cfg.Actor, "actor name for the change log")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DraftBackend, "b", cfg.DraftBackend, "draft backend (sqlite|redis)")
	fs.StringVar(&cfg.DraftDSN, "d", cfg.DraftDSN, "SQLite draft database")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "Redis address")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
