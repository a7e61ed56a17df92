// Package sysutil holds process-level helpers used by the outreach binary:
// logger construction and build metadata.
package sysutil

import (
	"io"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SetLogLevel sets the global zerolog level from a config value and returns
// the level applied. Unknown or empty values fall back to info.
func SetLogLevel(lvl string) zerolog.Level {
	lvl = strings.ToLower(strings.TrimSpace(lvl))
	if lvl == "warning" {
		lvl = "warn"
	}
	level, err := zerolog.ParseLevel(lvl)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return level
}

// NewLogger returns a timestamped logger writing JSON lines to w, or
// human-readable console output when pretty is set.
func NewLogger(w io.Writer, pretty bool, service string) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(w).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	return ctx.Logger()
}

// Version resolves the binary version: the linker-provided value first,
// then the module version recorded at build time, then "dev".
func Version(linked string) string {
	if v := strings.TrimSpace(linked); v != "" {
		return v
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}
