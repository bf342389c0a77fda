package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd", "-a", "http://trials:8080", "-i", "10"}, expectPanic: false,
			expected: &Config{ServerURL: "http://trials:8080", OnlineCheckInterval: 10 * time.Second}},
		{name: "Test2 all flags", args: []string{"cmd", "-a", "http://h", "-t", "tok", "-u", "alice", "-b", "redis", "-d", "x.db", "-r", "redis:6379", "-l", "debug", "NCT01"},
			expected: &Config{ServerURL: "http://h", Token: "tok", Actor: "alice", DraftBackend: "redis", DraftDSN: "x.db", RedisAddr: "redis:6379", LogLevel: "debug"}},
		{name: "Test3 foreign flags ignored", args: []string{"cmd", "-config", "cfg.json", "-a", "http://h"},
			expected: &Config{ServerURL: "http://h"}},
		{name: "Test4 incorrect check interval", args: []string{"cmd", "-a", "http://h", "-i", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
