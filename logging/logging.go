// Package logging builds a [log/slog] handler for cmd/yini, with CLI
// flag integration via [github.com/spf13/pflag]. Shape and naming
// follow MacroPower-x/log's Config/RegisterFlags/NewHandler split.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
)

// Format selects the slog handler's output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config holds CLI-configurable logging settings; the zero value is
// valid and produces text-format, info-level logging.
type Config struct {
	Level  string
	Format string
}

// RegisterFlags adds --log-level and --log-format flags to flags,
// defaulting to "info"/"text".
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Level, "log-level", "info", "log level: error|warn|info|debug")
	flags.StringVar(&c.Format, "log-format", "text", "log format: text|json")
}

// NewHandler builds a slog.Handler writing to w per c's Level/Format.
func (c *Config) NewHandler(w io.Writer) (slog.Handler, error) {
	lvl, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts), nil
	}
	return slog.NewTextHandler(w, opts), nil
}

// ParseLevel parses a level string ("error"/"warn"/"info"/"debug",
// case-insensitive); an empty string defaults to info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	}
	return 0, fmt.Errorf("unknown log level %q", level)
}

// ParseFormat parses a format string ("text"/"json", case-insensitive);
// an empty string defaults to text.
func ParseFormat(format string) (Format, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown log format %q", format)
}
