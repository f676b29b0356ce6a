package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/photoproof/photoproof-backend/internal/serve/httpclient"
)

const maxChallengeFileSize = 1024

var ErrChallengeFileNotFound = errors.New("challenge file not found")

// FileFetcher downloads the challenge file published by a studio.
type FileFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFileFetcher fetches challenge files over HTTP, retrying transient failures within the context deadline.
type HTTPFileFetcher struct {
	httpClient httpclient.HTTPClientInterface
	attempts   uint
	delay      time.Duration
}

var _ FileFetcher = (*HTTPFileFetcher)(nil)

func NewHTTPFileFetcher(httpClient httpclient.HTTPClientInterface) *HTTPFileFetcher {
	if httpClient == nil {
		httpClient = httpclient.DefaultClient()
	}
	return &HTTPFileFetcher{httpClient: httpClient, attempts: 3, delay: 200 * time.Millisecond}
}

func (f *HTTPFileFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			var err error
			body, err = f.fetchOnce(ctx, url)
			if errors.Is(err, ErrChallengeFileNotFound) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Attempts(f.attempts),
		retry.Delay(f.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	return body, nil
}

func (f *HTTPFileFetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting challenge file: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, ErrChallengeFileNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Unrecoverable(fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxChallengeFileSize))
	if err != nil {
		return nil, fmt.Errorf("reading challenge file: %w", err)
	}
	return body, nil
}
