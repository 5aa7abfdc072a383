package servecmder

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/papercomputeco/minutes/pkg/logger"
)

// logOptions selects where and how serve logs.
type logOptions struct {
	Debug    bool
	Level    string
	File     string
	Terminal bool
}

// newServeLogger builds the process logger. A terminal gets pretty output and
// the log file, when set, gets JSON alongside it. Without a terminal both
// destinations get the same JSON stream. The returned func closes the file.
func newServeLogger(o logOptions, stdout io.Writer) (*slog.Logger, func() error, error) {
	level := o.Level
	if o.Debug {
		level = "debug"
	}
	base := []logger.Option{logger.WithLevel(level), logger.WithSource(o.Debug)}
	with := func(extra ...logger.Option) *slog.Logger {
		return logger.New(append(append([]logger.Option{}, base...), extra...)...)
	}
	noop := func() error { return nil }

	if o.File == "" {
		if o.Terminal {
			return with(logger.WithPretty(true), logger.WithWriter(stdout)), noop, nil
		}
		return with(logger.WithJSON(true), logger.WithWriter(stdout)), noop, nil
	}

	if err := os.MkdirAll(filepath.Dir(o.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(o.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	if o.Terminal {
		console := with(logger.WithPretty(true), logger.WithWriter(stdout))
		file := with(logger.WithJSON(true), logger.WithWriter(f))
		return logger.Multi(console, file), f.Close, nil
	}
	return with(logger.WithJSON(true), logger.WithWriters(stdout, f)), f.Close, nil
}
