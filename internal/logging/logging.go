// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Setup installs a default logger writing to w. JSON is used in production,
// text otherwise.
func Setup(w io.Writer, level string, production bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))

	return nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Besides slog's own
// names and offsets ("debug", "INFO+2"), empty means info and "warning"
// means warn.
func ParseLevel(level string) (slog.Level, error) {
	level = strings.TrimSpace(level)

	switch strings.ToLower(level) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return lvl, nil
}
