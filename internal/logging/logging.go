package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type contextKey string

const loggerKey = contextKey("logger")

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if out == nil {
		out = os.Stdout
	}
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})

	return logger
}

// WithLogger stores a request-scoped entry in ctx
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, entry)
}

// FromContext returns the request-scoped entry, or a standard-logger entry if none was set
func FromContext(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
