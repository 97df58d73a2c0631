package cli

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

var logOptions = struct {
	level  slog.LevelVar
	format string
}{format: "text"}

func addLogFlags(flags *flag.FlagSet) {
	if flags.Lookup("log-level") == nil {
		flags.Var(logLevelFlag("INFO"), "log-level", "set the log level (DEBUG, INFO, WARN, ERROR)")
	}
	if flags.Lookup("log-format") == nil {
		flags.Var(logFormatFlag("text"), "log-format", "set the log output format (text, json)")
	}
}

// SetupLogging installs the default slog logger according to the parsed log flags.
func SetupLogging() {
	opts := &slog.HandlerOptions{Level: &logOptions.level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if logOptions.format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

type logLevelFlag string

func (logLevelFlag) Set(s string) error {
	var level slog.Level

	switch strings.ToUpper(s) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		return fmt.Errorf("unsupported log level %q provided. supported log levels are DEBUG, INFO, WARN, ERROR", s)
	}

	logOptions.level.Set(level)

	return nil
}

func (f logLevelFlag) String() string {
	return string(f)
}

type logFormatFlag string

func (logFormatFlag) Set(s string) error {
	switch s {
	case "text", "json":
		logOptions.format = s
		return nil
	default:
		return fmt.Errorf("unsupported log format %q provided. supported formats are text, json", s)
	}
}

func (f logFormatFlag) String() string {
	return string(f)
}
