package errors

import (
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter receives built enhanced errors for out-of-band reporting.
type Reporter interface {
	Report(err *EnhancedError)
}

var (
	reporterMu sync.RWMutex
	reporter   Reporter
)

// SetReporter installs the telemetry reporter. Passing nil disables
// reporting. Safe to call concurrently with Build.
func SetReporter(r Reporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	reporter = r
}

func report(e *EnhancedError) {
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()
	if r != nil {
		r.Report(e)
	}
}

// SentryReporter forwards enhanced errors to Sentry with component and
// category tags.
type SentryReporter struct{}

// InitSentry initializes the Sentry SDK and installs a SentryReporter.
// A blank DSN leaves telemetry disabled and returns nil.
func InitSentry(dsn, release string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: release,
	}); err != nil {
		return err
	}
	SetReporter(&SentryReporter{})
	return nil
}

// Report sends the error to Sentry. Validation errors are skipped; they
// describe caller mistakes, not faults worth paging on.
func (s *SentryReporter) Report(e *EnhancedError) {
	if e.GetCategory() == CategoryValidation {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", e.GetComponent())
		scope.SetTag("category", string(e.GetCategory()))
		for k, v := range e.context {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(e)
	})
}

// FlushSentry drains pending Sentry events; call during shutdown.
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}
