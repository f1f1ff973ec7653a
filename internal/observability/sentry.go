package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry configures Sentry when a DSN is set. The returned func flushes
// pending events and is safe to call even when Sentry is disabled.
func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr reports a non-nil error to Sentry.
func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}
