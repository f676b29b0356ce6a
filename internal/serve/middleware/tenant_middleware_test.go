package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/photoproof/photoproof-backend/internal/studiocontext"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

type principalParserStub map[string]schema.Principal

func (s principalParserStub) ParsePrincipal(token string) (schema.Principal, error) {
	principal, ok := s[token]
	if !ok {
		return schema.Principal{}, errors.New("invalid token")
	}
	return principal, nil
}

type tenantFixture struct {
	registry *tenant.MemoryRegistry
	lumen    *schema.Studio
	aurora   *schema.Studio
	router   http.Handler
}

func newTenantFixture(t *testing.T) tenantFixture {
	t.Helper()
	ctx := context.Background()

	registry := tenant.NewMemoryRegistry("photoproof.app")
	lumenSubdomain, auroraSubdomain := "lumen", "aurora"
	lumen, err := registry.CreateStudio(ctx, tenant.StudioInsert{Name: "Lumen", Email: "lumen@example.com", Subdomain: &lumenSubdomain})
	require.NoError(t, err)
	aurora, err := registry.CreateStudio(ctx, tenant.StudioInsert{Name: "Aurora", Email: "aurora@example.com", Subdomain: &auroraSubdomain})
	require.NoError(t, err)

	binding, err := registry.CreateBinding(ctx, tenant.BindingInsert{StudioID: lumen.ID, Hostname: "photos.lumen.example"})
	require.NoError(t, err)
	_, err = registry.SetBindingVerified(ctx, binding.ID, binding.VerificationToken, schema.DNSTXTVerificationMethod, time.Now())
	require.NoError(t, err)
	_, err = registry.CreateBinding(ctx, tenant.BindingInsert{StudioID: aurora.ID, Hostname: "pending.aurora.example"})
	require.NoError(t, err)

	resolver, err := tenant.NewResolver(tenant.ResolverOptions{Registry: registry})
	require.NoError(t, err)

	parser := principalParserStub{
		"lumen-token":  {UserID: "lumen-owner", StudioID: lumen.ID, Role: schema.StudioOwnerRole},
		"aurora-token": {UserID: "aurora-owner", StudioID: aurora.ID, Role: schema.StudioOwnerRole},
	}

	return tenantFixture{
		registry: registry,
		lumen:    lumen,
		aurora:   aurora,
		router:   newTestPublicRouter(resolver, parser),
	}
}

func newTestPublicRouter(resolver TenantResolver, parser PrincipalParser) http.Handler {
	r := chi.NewRouter()
	r.Use(TenantResolutionMiddleware(resolver, DefaultExemptPathPrefixes))

	renderOutcome := func(w http.ResponseWriter, r *http.Request) {
		resolved, _ := studiocontext.GetResolvedTenant(r.Context())
		httpjson.RenderStatus(w, http.StatusOK, map[string]any{
			"studio_id": resolved.StudioID(),
			"method":    resolved.Method,
			"required":  resolved.Required,
		}, httpjson.JSON)
	}

	r.Get("/health", renderOutcome)
	r.Group(func(r chi.Router) {
		r.Use(RequireTenantMiddleware)
		r.Get("/api/studio", renderOutcome)
		r.Group(func(r chi.Router) {
			r.Use(AuthenticateMiddleware(parser))
			r.Use(EnforceSameTenantMiddleware)
			r.Get("/api/studio/features", renderOutcome)
		})
	})
	return r
}

func serve(t *testing.T, handler http.Handler, host, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func Test_TenantResolutionMiddleware(t *testing.T) {
	f := newTenantFixture(t)

	t.Run("verified custom domain", func(t *testing.T) {
		rr := serve(t, f.router, "Photos.Lumen.Example:443", "/api/studio", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"studio_id": "`+f.lumen.ID+`", "method": "custom_domain", "required": true}`, rr.Body.String())
		assert.Equal(t, f.lumen.ID, rr.Header().Get(StudioIDHeader))
		assert.Equal(t, "Lumen", rr.Header().Get(StudioNameHeader))
	})

	t.Run("platform subdomain", func(t *testing.T) {
		rr := serve(t, f.router, "aurora.photoproof.app", "/api/studio", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"studio_id": "`+f.aurora.ID+`", "method": "subdomain", "required": true}`, rr.Body.String())
	})

	t.Run("unknown host on a tenant-required route", func(t *testing.T) {
		rr := serve(t, f.router, "unknown.example", "/api/studio", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error": "No studio is served on this host.", "error_code": "404_0"}`, rr.Body.String())
		assert.Empty(t, rr.Header().Get(StudioIDHeader))
	})

	t.Run("unverified binding never resolves", func(t *testing.T) {
		rr := serve(t, f.router, "pending.aurora.example", "/api/studio", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("exempt path is served without a studio", func(t *testing.T) {
		rr := serve(t, f.router, "unknown.example", "/health", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"studio_id": "", "method": "", "required": false}`, rr.Body.String())
	})

	t.Run("deactivated studio stops resolving", func(t *testing.T) {
		_, err := f.registry.SetStudioActive(context.Background(), f.aurora.ID, false)
		require.NoError(t, err)
		t.Cleanup(func() {
			_, err := f.registry.SetStudioActive(context.Background(), f.aurora.ID, true)
			require.NoError(t, err)
		})

		rr := serve(t, f.router, "aurora.photoproof.app", "/api/studio", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func Test_TenantResolutionMiddleware_registryFaultDegradesToUnresolved(t *testing.T) {
	registryMock := tenant.NewRegistryMock(t)
	registryMock.
		On("FindVerifiedCustomDomain", mock.Anything, "lumen.photoproof.app").
		Return(nil, errors.New("connection refused")).
		Once()

	resolver, err := tenant.NewResolver(tenant.ResolverOptions{Registry: registryMock})
	require.NoError(t, err)
	router := newTestPublicRouter(resolver, principalParserStub{})

	rr := serve(t, router, "lumen.photoproof.app", "/api/studio", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func Test_EnforceSameTenantMiddleware(t *testing.T) {
	f := newTenantFixture(t)

	testCases := []struct {
		name       string
		host       string
		token      string
		wantStatus int
	}{
		{name: "principal of the resolved studio", host: "photos.lumen.example", token: "lumen-token", wantStatus: http.StatusOK},
		{name: "principal of the resolved studio on its subdomain", host: "lumen.photoproof.app", token: "lumen-token", wantStatus: http.StatusOK},
		{name: "principal of another studio", host: "photos.lumen.example", token: "aurora-token", wantStatus: http.StatusForbidden},
		{name: "missing token", host: "lumen.photoproof.app", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", host: "lumen.photoproof.app", token: "forged", wantStatus: http.StatusUnauthorized},
		{name: "unknown host is rejected before authentication", host: "unknown.example", token: "lumen-token", wantStatus: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(t, f.router, tc.host, "/api/studio/features", tc.token)
			assert.Equal(t, tc.wantStatus, rr.Code)
		})
	}
}

func Test_EnforceSameTenantMiddleware_withoutResolution(t *testing.T) {
	handler := EnforceSameTenantMiddleware(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/studio/features", nil)
	req = req.WithContext(studiocontext.SetPrincipal(req.Context(), schema.Principal{UserID: "user", StudioID: "studio"}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"error": "You don't have permission to perform this action.", "error_code": "403_0"}`, rr.Body.String())
}

func Test_isExemptPath(t *testing.T) {
	prefixes := []string{"/health", "/auth/", "/api/check-domain"}

	assert.True(t, isExemptPath("/health", prefixes))
	assert.True(t, isExemptPath("/auth/token", prefixes))
	assert.True(t, isExemptPath("/auth", prefixes))
	assert.True(t, isExemptPath("/api/check-domain", prefixes))
	assert.False(t, isExemptPath("/healthz", prefixes))
	assert.False(t, isExemptPath("/api/studio", prefixes))
	assert.False(t, isExemptPath("/anything", []string{"", "/"}))
}
