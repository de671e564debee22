// Package logging provides the leveled logger used across the index
// packages. It is a thin wrapper over charmbracelet/log, exposing the
// handful of levels the core actually needs: info/debug/warn/error plus
// subsystem-gated trace.
package logging

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is a leveled, subsystem-aware logger. The zero value is not
// usable; construct one with New.
type Logger struct {
	enabledInfo    bool
	enabledTracing string

	muTrace    sync.Mutex
	traceSet   map[string]bool

	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger
	traceLogger *log.Logger
}

// New returns a Logger writing info/debug/trace to out and warn/error to
// errOut. Either writer may be nil, in which case that stream is
// discarded.
func New(out, errOut io.Writer) *Logger {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	return &Logger{
		infoLogger:  log.NewWithOptions(out, log.Options{Level: log.InfoLevel, Prefix: "info", TimeFormat: time.RFC3339}),
		warnLogger:  log.NewWithOptions(errOut, log.Options{Level: log.WarnLevel, Prefix: "warn", TimeFormat: time.RFC3339}),
		errorLogger: log.NewWithOptions(errOut, log.Options{Level: log.ErrorLevel, Prefix: "error", TimeFormat: time.RFC3339}),
		debugLogger: log.NewWithOptions(out, log.Options{Level: log.DebugLevel, Prefix: "debug", TimeFormat: time.RFC3339}),
		traceLogger: log.NewWithOptions(out, log.Options{Level: log.DebugLevel, Prefix: "trace", TimeFormat: time.RFC3339}),
		traceSet:    make(map[string]bool),
	}
}

// Discard returns a Logger that drops everything, for tests that don't
// care about log output.
func Discard() *Logger {
	return New(nil, nil)
}

func (l *Logger) EnableInfo() { l.enabledInfo = true }

// EnableTracing turns on Trace output for the comma-separated list of
// subsystems, or for every subsystem if the list contains "all".
func (l *Logger) EnableTracing(subsystems string) {
	l.enabledTracing = subsystems
	l.muTrace.Lock()
	defer l.muTrace.Unlock()
	l.traceSet = make(map[string]bool)
	for _, s := range strings.Split(subsystems, ",") {
		if s != "" {
			l.traceSet[s] = true
		}
	}
}

func (l *Logger) Info(format string, args ...any) {
	if l.enabledInfo {
		l.infoLogger.Printf(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...any)  { l.warnLogger.Printf(format, args...) }
func (l *Logger) Error(format string, args ...any) { l.errorLogger.Printf(format, args...) }
func (l *Logger) Debug(format string, args ...any) { l.debugLogger.Printf(format, args...) }

// Trace logs at trace level, gated per-subsystem by EnableTracing.
func (l *Logger) Trace(subsystem, format string, args ...any) {
	if l.enabledTracing == "" {
		return
	}
	l.muTrace.Lock()
	_, on := l.traceSet[subsystem]
	if !on {
		_, on = l.traceSet["all"]
	}
	l.muTrace.Unlock()
	if on {
		l.traceLogger.Printf(subsystem+": "+format, args...)
	}
}
