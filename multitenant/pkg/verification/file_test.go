package verification

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/photoproof/photoproof-backend/internal/serve/httpclient"
)

func newTestFileFetcher() *HTTPFileFetcher {
	fetcher := NewHTTPFileFetcher(nil)
	fetcher.delay = time.Millisecond
	return fetcher
}

func Test_HTTPFileFetcher_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, WellKnownFilePath, r.URL.Path)
			_, _ = w.Write([]byte("token\n"))
		}))
		defer server.Close()

		body, err := newTestFileFetcher().Fetch(ctx, server.URL+WellKnownFilePath)
		require.NoError(t, err)
		assert.Equal(t, "token\n", string(body))
	})

	t.Run("not found is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestFileFetcher().Fetch(ctx, server.URL+WellKnownFilePath)
		require.ErrorIs(t, err, ErrChallengeFileNotFound)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("server errors are retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte("token"))
		}))
		defer server.Close()

		body, err := newTestFileFetcher().Fetch(ctx, server.URL+WellKnownFilePath)
		require.NoError(t, err)
		assert.Equal(t, "token", string(body))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		_, err := newTestFileFetcher().Fetch(ctx, server.URL+WellKnownFilePath)
		require.ErrorContains(t, err, "unexpected status code 403")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("body size is bounded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(make([]byte, 10*maxChallengeFileSize))
		}))
		defer server.Close()

		body, err := newTestFileFetcher().Fetch(ctx, server.URL+WellKnownFilePath)
		require.NoError(t, err)
		assert.Len(t, body, maxChallengeFileSize)
	})

	t.Run("transport errors are returned", func(t *testing.T) {
		httpClientMock := httpclient.NewHTTPClientMock(t)
		httpClientMock.On("Do", mock.AnythingOfType("*http.Request")).Return(nil, errors.New("connection reset")).Times(3)
		fetcher := NewHTTPFileFetcher(httpClientMock)
		fetcher.delay = time.Millisecond

		_, err := fetcher.Fetch(ctx, "https://photos.lumen.com"+WellKnownFilePath)
		require.ErrorContains(t, err, "connection reset")
	})
}
