// Package config loads the example server's startup configuration: a
// defaults struct overridden once by environment variables, read once
// at startup (bind address, volume directory, block-reader tuning,
// façade limits).
package config

import (
	"os"
	"strconv"
)

// Config is the example server's full runtime configuration.
type Config struct {
	// BindAddr is the address the example HTTP/WebSocket server
	// listens on, e.g. ":8080".
	BindAddr string `json:"bind_addr"`

	// VolumesDir is the directory the local-filesystem media adapter
	// (pkg/rarvol.LocalFile) serves volumes out of.
	VolumesDir string `json:"volumes_dir"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `json:"log_level"`

	// BlockReaderBufferSize sets rarreader.Options.BufferSize for every
	// volume walked.
	BlockReaderBufferSize int `json:"block_reader_buffer_size"`

	// BlockReaderCacheEntries sets rarreader.Options.CacheEntries.
	BlockReaderCacheEntries int `json:"block_reader_cache_entries"`

	// MaxInnerFiles is the façade's ParseOptions.MaxFiles cap; zero
	// means unlimited.
	MaxInnerFiles uint32 `json:"max_inner_files"`
}

// defaults returns the configuration's literal zero-environment state.
func defaults() *Config {
	return &Config{
		BindAddr:                ":8080",
		VolumesDir:              ".",
		LogLevel:                "INFO",
		BlockReaderBufferSize:   64 * 1024,
		BlockReaderCacheEntries: 256,
		MaxInnerFiles:           0,
	}
}

// envOverride reads a config field from the environment. Environment
// variables win over defaults; there is no persisted config file and
// nothing here is user-editable at runtime.
type envOverride struct {
	key   string
	apply func(cfg *Config, val string)
}

var envOverrides = []envOverride{
	{"RARSTREAM_BIND_ADDR", func(c *Config, v string) { c.BindAddr = v }},
	{"RARSTREAM_VOLUMES_DIR", func(c *Config, v string) { c.VolumesDir = v }},
	{"RARSTREAM_LOG_LEVEL", func(c *Config, v string) { c.LogLevel = v }},
	{"RARSTREAM_BLOCK_READER_BUFFER_SIZE", func(c *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			c.BlockReaderBufferSize = n
		}
	}},
	{"RARSTREAM_BLOCK_READER_CACHE_ENTRIES", func(c *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			c.BlockReaderCacheEntries = n
		}
	}},
	{"RARSTREAM_MAX_INNER_FILES", func(c *Config, v string) {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.MaxInnerFiles = uint32(n)
		}
	}},
}

// Load builds a Config from defaults, then applies any set environment
// variables on top. Intended for startup only.
func Load() (*Config, error) {
	cfg := defaults()
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.key); ok {
			o.apply(cfg, v)
		}
	}
	return cfg, nil
}
