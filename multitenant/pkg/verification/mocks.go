package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
)

type DNSResolverMock struct {
	mock.Mock
}

var _ DNSResolver = (*DNSResolverMock)(nil)

func (m *DNSResolverMock) LookupTXT(ctx context.Context, name string) ([]string, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *DNSResolverMock) LookupCNAME(ctx context.Context, host string) (string, error) {
	args := m.Called(ctx, host)
	return args.String(0), args.Error(1)
}

func NewDNSResolverMock(t testing.TB) *DNSResolverMock {
	m := &DNSResolverMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

type FileFetcherMock struct {
	mock.Mock
}

var _ FileFetcher = (*FileFetcherMock)(nil)

func (m *FileFetcherMock) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func NewFileFetcherMock(t testing.TB) *FileFetcherMock {
	m := &FileFetcherMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

