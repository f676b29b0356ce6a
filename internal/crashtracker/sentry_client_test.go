package crashtracker

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/photoproof/photoproof-backend/internal/studiocontext"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

type mockHubSentry struct {
	mock.Mock
	lastScope *sentry.Scope
}

func (m *mockHubSentry) CaptureException(exception error) *sentry.EventID {
	return m.Called(exception).Get(0).(*sentry.EventID)
}

func (m *mockHubSentry) CaptureMessage(message string) *sentry.EventID {
	return m.Called(message).Get(0).(*sentry.EventID)
}

func (m *mockHubSentry) Clone() *sentry.Hub {
	return m.Called().Get(0).(*sentry.Hub)
}

func (m *mockHubSentry) Flush(timeout time.Duration) bool {
	return m.Called(timeout).Get(0).(bool)
}

func (m *mockHubSentry) Recover(err interface{}) *sentry.EventID {
	return m.Called(err).Get(0).(*sentry.EventID)
}

func (m *mockHubSentry) WithScope(f func(scope *sentry.Scope)) {
	m.lastScope = sentry.NewScope()
	f(m.lastScope)
}

var _ hubSentryInterface = (*mockHubSentry)(nil)

func Test_SentryClient_LogAndReportErrors(t *testing.T) {
	mError := fmt.Errorf("mock error")
	sentryID := sentry.EventID("id-1")

	t.Run("wraps the message", func(t *testing.T) {
		mHubSentry := &mockHubSentry{}
		client := &sentryClient{hub: mHubSentry}

		mHubSentry.On("CaptureException", fmt.Errorf("%s: %w", "error", mError)).Return(&sentryID).Once()
		client.LogAndReportErrors(context.Background(), mError, "error")

		mHubSentry.AssertExpectations(t)
	})

	t.Run("tags the resolved studio", func(t *testing.T) {
		mHubSentry := &mockHubSentry{}
		client := &sentryClient{hub: mHubSentry}
		ctx := studiocontext.SetResolvedTenant(context.Background(), schema.ResolvedTenant{
			Studio: &schema.Studio{ID: "studio-a"},
			Method: schema.CustomDomainResolutionMethod,
		})

		mHubSentry.On("CaptureException", mError).Return(&sentryID).Once()
		client.LogAndReportErrors(ctx, mError, "")

		mHubSentry.AssertExpectations(t)
		assert.NotNil(t, mHubSentry.lastScope)
		assert.Equal(t, map[string]string{"studio_id": "studio-a", "resolution_method": "custom_domain"}, studioTags(ctx))
	})

	t.Run("ignores context.Canceled", func(t *testing.T) {
		mHubSentry := &mockHubSentry{}
		client := &sentryClient{hub: mHubSentry}

		buf := new(strings.Builder)
		log.DefaultLogger.SetOutput(buf)

		client.LogAndReportErrors(context.Background(), context.Canceled, "")

		mHubSentry.AssertNotCalled(t, "CaptureException", mock.Anything)
		assert.Contains(t, buf.String(), "context canceled, not reporting error to sentry")
	})
}

func Test_studioTags(t *testing.T) {
	assert.Nil(t, studioTags(context.Background()))
	assert.Nil(t, studioTags(studiocontext.SetResolvedTenant(context.Background(), schema.ResolvedTenant{Required: true})))
}

func Test_SentryClient_LogAndReportMessages(t *testing.T) {
	mHubSentry := &mockHubSentry{}
	client := &sentryClient{hub: mHubSentry}
	sentryID := sentry.EventID("id-1")

	mHubSentry.On("CaptureMessage", "domain verified").Return(&sentryID).Once()
	client.LogAndReportMessages(context.Background(), "domain verified")

	mHubSentry.AssertExpectations(t)
}

func Test_SentryClient_FlushEvents(t *testing.T) {
	mHubSentry := &mockHubSentry{}
	client := &sentryClient{hub: mHubSentry}

	mHubSentry.On("Flush", time.Second).Return(true).Once()
	assert.True(t, client.FlushEvents(time.Second))

	mHubSentry.AssertExpectations(t)
}

func Test_SentryClient_Recover(t *testing.T) {
	mHubSentry := &mockHubSentry{}
	client := &sentryClient{hub: mHubSentry}
	sentryID := sentry.EventID("id-1")

	mHubSentry.On("Recover", "boom").Return(&sentryID).Once()
	func() {
		defer client.Recover()
		panic("boom")
	}()

	mHubSentry.AssertExpectations(t)
}
