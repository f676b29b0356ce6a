package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DefaultClient_redirects(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("token"))
	}))
	defer target.Close()
	targetURL, err := url.Parse(target.URL)
	require.NoError(t, err)

	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/same-host" {
			http.Redirect(w, r, target.URL, http.StatusFound)
			return
		}
		http.Redirect(w, r, "http://localhost:"+targetURL.Port(), http.StatusFound)
	}))
	defer redirector.Close()

	testCases := []struct {
		path       string
		wantStatus int
	}{
		{path: "/same-host", wantStatus: http.StatusOK},
		{path: "/other-host", wantStatus: http.StatusFound},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, redirector.URL+tc.path, nil)
			require.NoError(t, err)

			resp, err := DefaultClient().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}
