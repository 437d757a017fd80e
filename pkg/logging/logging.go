// Package logging wires zerolog for toolz: a console writer on stderr whose
// level follows the -v count, and an append-only file under the XDG state
// directory keeping a record of every run.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	stateDir = "toolz"
	fileName = "toolz.log"
)

// levels is indexed by the -v count
var levels = []zerolog.Level{
	zerolog.WarnLevel,
	zerolog.InfoLevel,
	zerolog.DebugLevel,
	zerolog.TraceLevel,
}

// logFile is the file opened by the last SetupLogger call
var logFile *os.File

// Level maps a -v count to a log level
func Level(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return levels[0]
	case verbosity >= len(levels):
		return zerolog.TraceLevel
	}
	return levels[verbosity]
}

// FilePath returns $XDG_STATE_HOME/toolz/toolz.log
func FilePath() string {
	xdg.Reload()
	return filepath.Join(xdg.StateHome, stateDir, fileName)
}

// SetupLogger sets the global level from verbosity and sends log events to
// stderr and to the log file. When the file cannot be opened the console
// alone is used.
func SetupLogger(verbosity int) {
	zerolog.SetGlobalLevel(Level(verbosity))

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	var out io.Writer = console

	path := FilePath()
	file, err := openFile(path)
	if err == nil {
		logFile = file
		out = zerolog.MultiLevelWriter(console, file)
	}

	ctx := zerolog.New(out).With().Timestamp().Int("pid", os.Getpid())
	if verbosity >= 2 {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()

	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Log file unavailable, logging to console only")
		return
	}
	log.Debug().Int("verbosity", verbosity).Str("file", path).Msg("Logger ready")
}

// GetLogger returns the global logger tagged with a component name
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func openFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// LogCommand records a toolz invocation and the effective uid running it
func LogCommand(logger zerolog.Logger, command string, args []string) {
	logger.Info().
		Str("command", command).
		Strs("args", args).
		Int("euid", os.Geteuid()).
		Msg("Invoked")
}

// LogOperationStart logs the start of a long operation. The returned func
// logs its end and elapsed time.
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().Str("operation", operation).Msg("Operation started")
	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("elapsed", time.Since(start)).
			Msg("Operation finished")
	}
}
