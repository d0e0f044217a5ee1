package observe

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/roadmaster/internal/logger"
)

type SentryOptions struct {
	Dsn         string
	Name        string
	Release     string
	Environment string
}

// Init registers the Sentry client. An empty DSN leaves reporting disabled.
func Init(opt SentryOptions) error {
	if opt.Dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              opt.Dsn,
		AttachStacktrace: true,
		ServerName:       opt.Name,
		Release:          opt.Release,
		Environment:      opt.Environment,
	})
}

func Flush() {
	sentry.Flush(2 * time.Second)
}

func hubFrom(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// CaptureError logs err with fields and forwards it to Sentry.
func CaptureError(ctx context.Context, err error, fields logrus.Fields) {
	logger.From(ctx).WithFields(fields).WithError(err).Error("operation failed")

	hub := hubFrom(ctx).Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range fields {
			scope.SetExtra(k, v)
		}
		hub.CaptureException(err)
	})
}

// SecurityEvent records a suspicious request such as a bad API key or a
// write against another user's resource.
func SecurityEvent(ctx context.Context, event string, fields logrus.Fields) {
	logger.From(ctx).WithFields(fields).WithField("security", true).Warn(event)

	hub := hubFrom(ctx).Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		scope.SetTag("security", "true")
		scope.SetTag("event", event)
		for k, v := range fields {
			scope.SetExtra(k, v)
		}
		hub.CaptureMessage(event)
	})
}
