package crashtracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stellar/go-stellar-sdk/support/log"
)

type hubSentryInterface interface {
	CaptureException(exception error) *sentry.EventID
	CaptureMessage(message string) *sentry.EventID
	Clone() *sentry.Hub
	Flush(timeout time.Duration) bool
	Recover(err interface{}) *sentry.EventID
	WithScope(f func(scope *sentry.Scope))
}

var _ hubSentryInterface = (*sentry.Hub)(nil)

type sentryClient struct {
	hub hubSentryInterface
}

// LogAndReportErrors logs the error and captures it in sentry, tagged with the studio resolved for the request.
func (s *sentryClient) LogAndReportErrors(ctx context.Context, err error, msg string) {
	if errors.Is(err, context.Canceled) {
		log.Ctx(ctx).Warn("context canceled, not reporting error to sentry")
		return
	}

	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	log.Ctx(ctx).WithStack(err).Errorf("%+v", err)

	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(studioTags(ctx))
		s.hub.CaptureException(err)
	})
}

func (s *sentryClient) LogAndReportMessages(ctx context.Context, msg string) {
	log.Ctx(ctx).Info(msg)
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(studioTags(ctx))
		s.hub.CaptureMessage(msg)
	})
}

// FlushEvents waits for buffered events to be sent before the application terminates.
func (s *sentryClient) FlushEvents(waitTime time.Duration) bool {
	return s.hub.Flush(waitTime)
}

// Recover captures unhandled panics.
func (s *sentryClient) Recover() {
	if err := recover(); err != nil {
		s.hub.Recover(err)
	}
}

// Clone returns a client with its own hub, to be used in concurrent routines.
func (s *sentryClient) Clone() CrashTrackerClient {
	return &sentryClient{hub: s.hub.Clone()}
}

func NewSentryClient(sentryDSN string, environment string, gitCommit string) (*sentryClient, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         sentryDSN,
		Release:     gitCommit,
		Environment: environment,
	})
	if err != nil {
		return nil, fmt.Errorf("error setting up Sentry: %w", err)
	}

	return &sentryClient{hub: sentry.CurrentHub()}, nil
}

var _ CrashTrackerClient = (*sentryClient)(nil)
