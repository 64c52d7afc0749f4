package geoshard

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with collection-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithPartition adds a partition ordinal field to the logger.
func (l *Logger) WithPartition(ord int) *Logger {
	return &Logger{
		Logger: l.Logger.With("partition", ord),
	}
}

// WithK adds a result bound field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithCollection adds a collection name field to the logger.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection", name),
	}
}

// LogBuild logs a collection build.
func (l *Logger) LogBuild(ctx context.Context, docs, partitions int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"docs", docs,
			"partitions", partitions,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"docs", docs,
			"partitions", partitions,
		)
	}
}

// LogSearch logs one search operation.
func (l *Logger) LogSearch(ctx context.Context, op string, k, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"op", op,
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"op", op,
			"k", k,
			"results", results,
		)
	}
}

// LogLink logs a batch link operation.
func (l *Logger) LogLink(ctx context.Context, entities, k int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "link failed",
			"entities", entities,
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "link completed",
			"entities", entities,
			"k", k,
		)
	}
}

// LogFilter logs a filter derivation.
func (l *Logger) LogFilter(ctx context.Context, kept int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "filter failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "filter completed",
			"kept", kept,
		)
	}
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"op", op,
			"id", id,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot completed",
			"op", op,
			"id", id,
		)
	}
}
