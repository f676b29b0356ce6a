package tenant

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/photoproof/photoproof-backend/pkg/schema"
)

type RegistryMock struct {
	mock.Mock
}

var _ Registry = (*RegistryMock)(nil)

func (m *RegistryMock) FindVerifiedCustomDomain(ctx context.Context, host string) (*schema.DomainBinding, error) {
	args := m.Called(ctx, host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schema.DomainBinding), args.Error(1)
}

func (m *RegistryMock) FindStudioBySubdomainLabel(ctx context.Context, label string) (*schema.Studio, error) {
	args := m.Called(ctx, label)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schema.Studio), args.Error(1)
}

func (m *RegistryMock) FindActiveStudioByID(ctx context.Context, id string) (*schema.Studio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schema.Studio), args.Error(1)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

func NewRegistryMock(t testInterface) *RegistryMock {
	m := &RegistryMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

