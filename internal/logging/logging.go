// Package logging builds the service logger.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/kozaktomas/photo-grouper/internal/config"
)

// New returns the root logger configured from cfg. Unknown levels fall back to info.
func New(cfg config.LogConfig) hclog.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput is New writing to w.
func NewWithOutput(cfg config.LogConfig, w io.Writer) hclog.Logger {
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "photo-grouper",
		Output:     w,
		Level:      level,
		JSONFormat: cfg.JSON,
	})
}

// Discard returns a logger that drops everything, for tests and quiet CLI runs.
func Discard() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Output: io.Discard,
		Level:  hclog.Off,
	})
}
