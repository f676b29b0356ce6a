package httpclient

import (
	"net/http"
	"time"
)

type HTTPClientInterface interface {
	Do(*http.Request) (*http.Response, error)
}

const TimeoutClientInSeconds = 10

// DefaultClient returns an HTTP client with a timeout that does not follow redirects to other hosts.
func DefaultClient() HTTPClientInterface {
	return &http.Client{
		Timeout: TimeoutClientInSeconds * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return http.ErrUseLastResponse
			}
			if req.URL.Hostname() != via[0].URL.Hostname() {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

var _ HTTPClientInterface = DefaultClient()
