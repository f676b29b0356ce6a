package httpclient

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/mock"
)

type HTTPClientMock struct {
	mock.Mock
}

func (h *HTTPClientMock) Do(req *http.Request) (*http.Response, error) {
	args := h.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func NewHTTPClientMock(t testing.TB) *HTTPClientMock {
	m := &HTTPClientMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ HTTPClientInterface = (*HTTPClientMock)(nil)
