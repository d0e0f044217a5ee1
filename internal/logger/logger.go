package logger

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var (
	std  *logrus.Logger
	once sync.Once
)

// L returns the process wide logger.
func L() *logrus.Logger {
	once.Do(func() {
		std = logrus.New()
		std.SetOutput(os.Stdout)
		std.SetFormatter(&logrus.JSONFormatter{})
	})
	return std
}

// Init applies level and format. Unknown levels fall back to info.
func Init(level, format string) {
	l := L()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		l.SetFormatter(&logrus.JSONFormatter{})
	}
}

// WithContext stores an entry carrying request scoped fields.
func WithContext(ctx context.Context, e *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, e)
}

// From returns the request entry stored in ctx, or a bare entry.
func From(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
			return e
		}
	}
	return logrus.NewEntry(L())
}
