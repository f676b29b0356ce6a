package httphandler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/verification"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

type domainsFixture struct {
	registry    *tenant.MemoryRegistry
	dnsResolver *verification.DNSResolverMock
	cache       *resolutionCacheSpy
	router      http.Handler
}

func newDomainsFixture(t *testing.T) domainsFixture {
	t.Helper()

	registry := tenant.NewMemoryRegistry(testPlatformDomain)
	dnsResolver := verification.NewDNSResolverMock(t)
	engine, err := verification.NewEngine(verification.EngineOptions{
		Store:          registry,
		PlatformDomain: testPlatformDomain,
		DNSResolver:    dnsResolver,
		FileFetcher:    verification.NewFileFetcherMock(t),
	})
	require.NoError(t, err)

	cache := &resolutionCacheSpy{}
	h := DomainsHandler{Store: registry, Features: newFeatureStoreStub(), Engine: engine, ResolutionCache: cache}

	r := chi.NewRouter()
	r.Post("/studios/{id}/domains", h.Post)
	r.Get("/domains/{id}", h.Get)
	r.Delete("/domains/{id}", h.Delete)
	r.Post("/domains/{id}/verification", h.BeginVerification)
	r.Get("/domains/{id}/verification", h.CheckVerification)
	r.Delete("/domains/{id}/verification", h.Revoke)
	r.Post("/domains/{id}/verification/force", h.ForceVerify)

	return domainsFixture{registry: registry, dnsResolver: dnsResolver, cache: cache, router: r}
}

func Test_DomainsHandler_Post(t *testing.T) {
	f := newDomainsFixture(t)
	starter := createTestStudio(t, f.registry, "Starter", schema.StarterPlan)
	pro := createTestStudio(t, f.registry, "Pro", schema.ProfessionalPlan)

	t.Run("unknown studio", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodPost, "/studios/unknown/domains", `{"hostname": "photos.pro.com"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("invalid hostname", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodPost, "/studios/"+pro.ID+"/domains", `{"hostname": "not a host"}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error": "Invalid request body", "error_code": "400_0", "extras": {"hostname": "invalid hostname"}}`, rr.Body.String())
	})

	t.Run("plan without custom domains", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodPost, "/studios/"+starter.ID+"/domains", `{"hostname": "photos.starter.com"}`)
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.JSONEq(t, `{"error": "The studio plan does not include custom domains", "error_code": "422_0"}`, rr.Body.String())
	})

	t.Run("registers an unverified domain", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodPost, "/studios/"+pro.ID+"/domains", `{"hostname": "Photos.Pro.com", "is_primary": true}`)
		require.Equal(t, http.StatusCreated, rr.Code)

		var binding schema.DomainBinding
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &binding))
		assert.Equal(t, "photos.pro.com", binding.Hostname)
		assert.Equal(t, pro.ID, binding.StudioID)
		assert.True(t, binding.IsPrimary)
		assert.Equal(t, schema.UnverifiedBindingStatus, binding.Status)
		assert.NotContains(t, rr.Body.String(), "verification_token")
	})

	t.Run("hostname already bound", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodPost, "/studios/"+pro.ID+"/domains", `{"hostname": "photos.pro.com"}`)
		require.Equal(t, http.StatusConflict, rr.Code)
		assert.JSONEq(t, `{"error": "The hostname is already bound to a studio", "error_code": "409_0"}`, rr.Body.String())
	})

	t.Run("hostname under the platform domain", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodPost, "/studios/"+pro.ID+"/domains", `{"hostname": "pro.photoproof.app"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func Test_DomainsHandler_verificationLifecycle(t *testing.T) {
	f := newDomainsFixture(t)
	studio := createTestStudio(t, f.registry, "Lumen", schema.ProfessionalPlan)
	binding := createTestBinding(t, f.registry, studio.ID, "photos.lumen.com")
	domainPath := "/domains/" + binding.ID

	t.Run("domain without a started verification has no challenge", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodGet, domainPath, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "challenge")
	})

	t.Run("checking before starting is rejected", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodGet, domainPath+"/verification", "")
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error": "Verification has not been started for this domain"}`, rr.Body.String())
	})

	t.Run("manual is not a challenge method", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodPost, domainPath+"/verification", `{"method": "manual"}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "Invalid request body",
			"error_code": "400_0",
			"extras": {"method": "invalid verification method. Expected one of these values: [dns_txt dns_cname file]"}
		}`, rr.Body.String())
	})

	var challenge verification.Challenge
	t.Run("begin returns the TXT challenge", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodPost, domainPath+"/verification", `{"method": "DNS_TXT"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &challenge))

		stored, err := f.registry.GetBinding(t.Context(), binding.ID)
		require.NoError(t, err)
		assert.Equal(t, "TXT", challenge.RecordType)
		assert.Equal(t, "_photoproof-challenge.photos.lumen.com", challenge.RecordName)
		assert.Equal(t, "photoproof-verification="+stored.VerificationToken, challenge.RecordValue)

		rr = executeRequest(t, f.router, http.MethodGet, domainPath, "")
		require.Equal(t, http.StatusOK, rr.Code)
		var details DomainDetails
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &details))
		require.NotNil(t, details.Challenge)
		assert.Equal(t, challenge.RecordValue, details.Challenge.RecordValue)
	})

	t.Run("missing record is reported as not verified", func(t *testing.T) {
		f.dnsResolver.
			On("LookupTXT", mock.Anything, challenge.RecordName).
			Return([]string{"google-site-verification=abc"}, nil).
			Once()

		rr := executeRequest(t, f.router, http.MethodGet, domainPath+"/verification", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var result verification.Result
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, verification.NotVerifiedStatus, result.Status)
		assert.Equal(t, verification.ReasonValueMismatch, result.Reason)
		assert.Zero(t, f.cache.clears.Load())
	})

	t.Run("published record verifies the domain", func(t *testing.T) {
		f.dnsResolver.
			On("LookupTXT", mock.Anything, challenge.RecordName).
			Return([]string{" " + challenge.RecordValue + " "}, nil).
			Once()

		rr := executeRequest(t, f.router, http.MethodGet, domainPath+"/verification", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var result verification.Result
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, verification.VerifiedStatus, result.Status)
		assert.Equal(t, int32(1), f.cache.clears.Load())

		resolved, err := f.registry.FindVerifiedCustomDomain(t.Context(), "photos.lumen.com")
		require.NoError(t, err)
		require.NotNil(t, resolved)
		assert.Equal(t, studio.ID, resolved.StudioID)
	})

	t.Run("revoke un-verifies the domain", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodDelete, domainPath+"/verification", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var revoked schema.DomainBinding
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &revoked))
		assert.Equal(t, schema.UnverifiedBindingStatus, revoked.Status)
		assert.Equal(t, int32(2), f.cache.clears.Load())

		resolved, err := f.registry.FindVerifiedCustomDomain(t.Context(), "photos.lumen.com")
		require.NoError(t, err)
		assert.Nil(t, resolved)
	})

	t.Run("force verify marks the domain verified manually", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodPost, domainPath+"/verification/force", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var forced schema.DomainBinding
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &forced))
		assert.Equal(t, schema.VerifiedBindingStatus, forced.Status)
		require.NotNil(t, forced.VerificationMethod)
		assert.Equal(t, schema.ManualVerificationMethod, *forced.VerificationMethod)
		assert.Equal(t, int32(3), f.cache.clears.Load())
	})

	t.Run("delete removes the domain", func(t *testing.T) {
		rr := executeRequest(t, f.router, http.MethodDelete, domainPath, "")
		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, int32(4), f.cache.clears.Load())

		rr = executeRequest(t, f.router, http.MethodGet, domainPath, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error": "Domain not found"}`, rr.Body.String())

		rr = executeRequest(t, f.router, http.MethodDelete, domainPath, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func Test_DomainsHandler_unknownDomain(t *testing.T) {
	f := newDomainsFixture(t)

	for _, tc := range []struct {
		method string
		path   string
		body   string
	}{
		{method: http.MethodGet, path: "/domains/unknown"},
		{method: http.MethodPost, path: "/domains/unknown/verification", body: `{"method": "dns_cname"}`},
		{method: http.MethodGet, path: "/domains/unknown/verification"},
		{method: http.MethodDelete, path: "/domains/unknown/verification"},
		{method: http.MethodPost, path: "/domains/unknown/verification/force"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := executeRequest(t, f.router, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusNotFound, rr.Code)
		})
	}
}
