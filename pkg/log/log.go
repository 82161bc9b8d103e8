// Package log provides structured logging for the treesplit library.
//
// It is a thin facade over github.com/rs/zerolog so library packages can emit
// structured events without committing callers to a particular logging
// backend. Loggers are named per component and accept alternating key/value
// pairs:
//
//	logger := log.GetLoggerWithName("scan").With(
//		log.ComponentKey, "scan",
//	)
//	logger.Info("Sweep completed",
//		log.RowsKey, rows,
//		log.WorkersKey, workers,
//		log.DurationMsKey, duration.Milliseconds(),
//	)
//
// The default level is Warn so the library stays quiet unless the embedding
// application opts in via SetLevel.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Standard structured logging keys used across the library.
const (
	ComponentKey  = "component"
	OperationKey  = "operation"
	ColumnKey     = "column"
	BinsKey       = "bins"
	RowsKey       = "rows"
	WorkersKey    = "workers"
	ShardsKey     = "shards"
	SplitBinKey   = "split_bin"
	DurationMsKey = "duration_ms"
)

// Operation values for OperationKey.
const (
	OperationSweep  = "sweep"
	OperationReduce = "reduce"
	OperationScore  = "score"
)

// Logger is the minimal structured logging interface used by the library.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})

	// With returns a child logger with the given key/value pairs attached to
	// every event.
	With(keysAndValues ...interface{}) Logger
}

var (
	mu   sync.RWMutex
	root = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
)

// SetLevel sets the global log level ("debug", "info", "warn", "error").
// Unknown levels are ignored.
func SetLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return
	}
	mu.Lock()
	root = root.Level(parsed)
	mu.Unlock()
}

// SetOutput redirects all library logging to w. Useful in tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	root = root.Output(w)
	mu.Unlock()
}

// GetLogger returns the root library logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zerologLogger{zl: root}
}

// GetLoggerWithName returns a logger tagged with the given component name.
func GetLoggerWithName(name string) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zerologLogger{zl: root.With().Str("logger", name).Logger()}
}

type zerologLogger struct {
	zl zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, keysAndValues ...interface{}) {
	emit(l.zl.Debug(), msg, keysAndValues)
}

func (l *zerologLogger) Info(msg string, keysAndValues ...interface{}) {
	emit(l.zl.Info(), msg, keysAndValues)
}

func (l *zerologLogger) Warn(msg string, keysAndValues ...interface{}) {
	emit(l.zl.Warn(), msg, keysAndValues)
}

func (l *zerologLogger) Error(msg string, keysAndValues ...interface{}) {
	emit(l.zl.Error(), msg, keysAndValues)
}

func (l *zerologLogger) With(keysAndValues ...interface{}) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, keysAndValues[i+1])
	}
	return &zerologLogger{zl: ctx.Logger()}
}

func emit(ev *zerolog.Event, msg string, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	ev.Msg(msg)
}
