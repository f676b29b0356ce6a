package httphandler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/provisioning"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

const testPlatformDomain = "photoproof.app"

type studioOnboarderMock struct {
	mock.Mock
}

var _ StudioOnboarder = (*studioOnboarderMock)(nil)

func (m *studioOnboarderMock) OnboardStudio(ctx context.Context, input provisioning.OnboardingInput) (*provisioning.OnboardingResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provisioning.OnboardingResult), args.Error(1)
}

func newStudioOnboarderMock(t *testing.T) *studioOnboarderMock {
	m := &studioOnboarderMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// featureStoreStub keeps overrides in memory and falls back to the plan defaults.
type featureStoreStub struct {
	overrides map[string]map[data.FeatureKey]bool
}

var _ FeatureStore = (*featureStoreStub)(nil)

func newFeatureStoreStub() *featureStoreStub {
	return &featureStoreStub{overrides: map[string]map[data.FeatureKey]bool{}}
}

func (s *featureStoreStub) GetStudioFeatures(_ context.Context, studio schema.Studio) ([]data.StudioFeature, error) {
	features := make([]data.StudioFeature, 0, len(data.FeatureDefinitions))
	for _, definition := range data.FeatureDefinitions {
		enabled, overridden := s.overrides[studio.ID][definition.Key]
		if !overridden {
			enabled = data.PlanIncludesFeature(studio.Plan, definition.Key)
		}
		features = append(features, data.StudioFeature{Key: definition.Key, Name: definition.Name, Enabled: enabled, Overridden: overridden})
	}
	return features, nil
}

func (s *featureStoreStub) IsEnabled(ctx context.Context, studio schema.Studio, key data.FeatureKey) (bool, error) {
	features, err := s.GetStudioFeatures(ctx, studio)
	if err != nil {
		return false, err
	}
	for _, f := range features {
		if f.Key == key {
			return f.Enabled, nil
		}
	}
	return false, nil
}

func (s *featureStoreStub) SetOverride(_ context.Context, studioID string, key data.FeatureKey, enabled bool) error {
	if s.overrides[studioID] == nil {
		s.overrides[studioID] = map[data.FeatureKey]bool{}
	}
	s.overrides[studioID][key] = enabled
	return nil
}

type resolutionCacheSpy struct {
	clears atomic.Int32
}

func (c *resolutionCacheSpy) Clear() {
	c.clears.Add(1)
}

func createTestStudio(t *testing.T, store tenant.Store, name string, plan schema.Plan) *schema.Studio {
	t.Helper()

	subdomain := strings.ToLower(name)
	studio, err := store.CreateStudio(context.Background(), tenant.StudioInsert{
		Name:      name,
		Email:     subdomain + "@example.com",
		Subdomain: &subdomain,
		Plan:      plan,
	})
	require.NoError(t, err)
	return studio
}

func executeRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func createTestBinding(t *testing.T, store tenant.Store, studioID, hostname string) *schema.DomainBinding {
	t.Helper()

	binding, err := store.CreateBinding(context.Background(), tenant.BindingInsert{StudioID: studioID, Hostname: hostname})
	require.NoError(t, err)
	return binding
}
