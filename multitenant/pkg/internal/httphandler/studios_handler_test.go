package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/provisioning"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

func newStudiosRouter(h StudiosHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/studios", h.GetAll)
	r.Post("/studios", h.Post)
	r.Get("/studios/{id}", h.Get)
	r.Patch("/studios/{id}", h.Patch)
	r.Put("/studios/{id}/features/{key}", h.PutFeature)
	return r
}

func Test_StudiosHandler_GetAll(t *testing.T) {
	registry := tenant.NewMemoryRegistry(testPlatformDomain)
	lumen := createTestStudio(t, registry, "Lumen", schema.StarterPlan)
	aurora := createTestStudio(t, registry, "Aurora", schema.ProfessionalPlan)
	router := newStudiosRouter(StudiosHandler{Store: registry})

	t.Run("lists every studio", func(t *testing.T) {
		rr := executeRequest(t, router, http.MethodGet, "/studios", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var studios []schema.Studio
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &studios))
		ids := []string{}
		for _, s := range studios {
			ids = append(ids, s.ID)
		}
		assert.ElementsMatch(t, []string{lumen.ID, aurora.ID}, ids)
	})

	t.Run("filters by query", func(t *testing.T) {
		rr := executeRequest(t, router, http.MethodGet, "/studios?q=auro", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var studios []schema.Studio
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &studios))
		require.Len(t, studios, 1)
		assert.Equal(t, aurora.ID, studios[0].ID)
	})

	t.Run("rejects invalid query parameters", func(t *testing.T) {
		rr := executeRequest(t, router, http.MethodGet, "/studios?page=zero&status=deleted", "")
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "Request invalid",
			"error_code": "400_1",
			"extras": {
				"page": "parameter must be an integer",
				"status": "invalid status. valid values are 'active', 'inactive' and 'all'"
			}
		}`, rr.Body.String())
	})
}

func Test_StudiosHandler_Post(t *testing.T) {
	registry := tenant.NewMemoryRegistry(testPlatformDomain)

	t.Run("invalid body", func(t *testing.T) {
		router := newStudiosRouter(StudiosHandler{Store: registry, Onboarder: newStudioOnboarderMock(t)})

		rr := executeRequest(t, router, http.MethodPost, "/studios", `{"name": " ", "email": "not-an-email", "subdomain": "-bad-", "owner_password": "short"}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		extras := body["extras"].(map[string]any)
		assert.Contains(t, extras, "name")
		assert.Contains(t, extras, "email")
		assert.Contains(t, extras, "subdomain")
		assert.Contains(t, extras, "owner_password")
	})

	t.Run("onboards the studio", func(t *testing.T) {
		onboarder := newStudioOnboarderMock(t)
		router := newStudiosRouter(StudiosHandler{Store: registry, Onboarder: onboarder})

		subdomain := "lumen"
		studio := &schema.Studio{ID: "studio-id", Name: "Lumen", Email: "hello@lumen.com", Subdomain: &subdomain, Plan: schema.ProfessionalPlan, IsActive: true}
		onboarder.
			On("OnboardStudio", mock.Anything, mock.MatchedBy(func(input provisioning.OnboardingInput) bool {
				return input.StudioName == "Lumen" &&
					input.Email == "hello@lumen.com" &&
					*input.Subdomain == "lumen" &&
					input.Plan == schema.ProfessionalPlan &&
					input.CustomDomain == "photos.lumen.com"
			})).
			Return(&provisioning.OnboardingResult{Studio: studio}, nil).
			Once()

		rr := executeRequest(t, router, http.MethodPost, "/studios", `{
			"name": " Lumen ",
			"email": "Hello@Lumen.com",
			"subdomain": "Lumen",
			"plan": "professional",
			"owner_password": "correct-horse",
			"custom_domain": "photos.lumen.com"
		}`)
		require.Equal(t, http.StatusCreated, rr.Code)

		var result struct {
			Studio schema.Studio `json:"studio"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, "studio-id", result.Studio.ID)
	})

	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "plan without custom domains", err: data.ErrFeatureNotEnabled, wantStatus: http.StatusUnprocessableEntity, wantCode: "422_0"},
		{name: "taken subdomain", err: tenant.ErrDuplicateSubdomain, wantStatus: http.StatusConflict, wantCode: "409_1"},
		{name: "taken hostname", err: tenant.ErrDuplicateHostname, wantStatus: http.StatusConflict, wantCode: "409_0"},
		{name: "taken owner email", err: provisioning.ErrOwnerAlreadyExists, wantStatus: http.StatusConflict},
		{name: "unexpected failure", err: errors.New("database is gone"), wantStatus: http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			onboarder := newStudioOnboarderMock(t)
			router := newStudiosRouter(StudiosHandler{Store: registry, Onboarder: onboarder})
			onboarder.
				On("OnboardStudio", mock.Anything, mock.AnythingOfType("provisioning.OnboardingInput")).
				Return(nil, fmt.Errorf("onboarding studio %q: %w", "Lumen", tc.err)).
				Once()

			rr := executeRequest(t, router, http.MethodPost, "/studios", `{"name": "Lumen", "email": "hello@lumen.com", "owner_password": "correct-horse"}`)
			require.Equal(t, tc.wantStatus, rr.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, body["error_code"])
			}
		})
	}
}

func Test_StudiosHandler_Get(t *testing.T) {
	registry := tenant.NewMemoryRegistry(testPlatformDomain)
	studio := createTestStudio(t, registry, "Lumen", schema.ProfessionalPlan)
	binding := createTestBinding(t, registry, studio.ID, "photos.lumen.com")
	router := newStudiosRouter(StudiosHandler{Store: registry, Features: newFeatureStoreStub()})

	t.Run("unknown studio", func(t *testing.T) {
		rr := executeRequest(t, router, http.MethodGet, "/studios/unknown", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error": "Studio not found"}`, rr.Body.String())
	})

	t.Run("returns the studio with its domains and features", func(t *testing.T) {
		rr := executeRequest(t, router, http.MethodGet, "/studios/"+studio.ID, "")
		require.Equal(t, http.StatusOK, rr.Code)

		var details struct {
			ID       string                 `json:"id"`
			Name     string                 `json:"name"`
			Domains  []schema.DomainBinding `json:"domains"`
			Features []data.StudioFeature   `json:"features"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &details))
		assert.Equal(t, studio.ID, details.ID)
		assert.Equal(t, "Lumen", details.Name)
		require.Len(t, details.Domains, 1)
		assert.Equal(t, binding.ID, details.Domains[0].ID)
		assert.Equal(t, schema.UnverifiedBindingStatus, details.Domains[0].Status)
		assert.Len(t, details.Features, len(data.FeatureDefinitions))
		assert.Contains(t, details.Features, data.StudioFeature{Key: data.CustomDomainFeature, Name: "Custom Domain", Enabled: true})
	})
}

func Test_StudiosHandler_Patch(t *testing.T) {
	registry := tenant.NewMemoryRegistry(testPlatformDomain)
	studio := createTestStudio(t, registry, "Lumen", schema.StarterPlan)
	cache := &resolutionCacheSpy{}
	router := newStudiosRouter(StudiosHandler{Store: registry, ResolutionCache: cache})

	t.Run("empty update", func(t *testing.T) {
		rr := executeRequest(t, router, http.MethodPatch, "/studios/"+studio.ID, `{}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "Invalid request body",
			"error_code": "400_0",
			"extras": {"body": "provide at least one of name, phone, plan or is_active"}
		}`, rr.Body.String())
		assert.Zero(t, cache.clears.Load())
	})

	t.Run("unknown studio", func(t *testing.T) {
		rr := executeRequest(t, router, http.MethodPatch, "/studios/unknown", `{"is_active": false}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Zero(t, cache.clears.Load())
	})

	t.Run("renames and deactivates the studio", func(t *testing.T) {
		rr := executeRequest(t, router, http.MethodPatch, "/studios/"+studio.ID, `{"name": " Lumen Photography ", "is_active": false}`)
		require.Equal(t, http.StatusOK, rr.Code)

		var updated schema.Studio
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
		assert.Equal(t, "Lumen Photography", updated.Name)
		assert.False(t, updated.IsActive)
		assert.Equal(t, int32(1), cache.clears.Load())

		stored, err := registry.GetStudio(t.Context(), studio.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
	})
}

func Test_StudiosHandler_PutFeature(t *testing.T) {
	registry := tenant.NewMemoryRegistry(testPlatformDomain)
	studio := createTestStudio(t, registry, "Lumen", schema.StarterPlan)
	router := newStudiosRouter(StudiosHandler{Store: registry, Features: newFeatureStoreStub()})

	t.Run("unknown studio", func(t *testing.T) {
		rr := executeRequest(t, router, http.MethodPut, "/studios/unknown/features/custom_domain", `{"enabled": true}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("unknown feature and missing flag", func(t *testing.T) {
		rr := executeRequest(t, router, http.MethodPut, "/studios/"+studio.ID+"/features/teleport", `{}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"error": "Invalid request body",
			"error_code": "400_0",
			"extras": {"feature": "unknown feature \"teleport\"", "enabled": "enabled is required"}
		}`, rr.Body.String())
	})

	t.Run("overrides the plan default", func(t *testing.T) {
		rr := executeRequest(t, router, http.MethodPut, "/studios/"+studio.ID+"/features/custom_domain", `{"enabled": true}`)
		require.Equal(t, http.StatusOK, rr.Code)

		var features []data.StudioFeature
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &features))
		assert.Contains(t, features, data.StudioFeature{Key: data.CustomDomainFeature, Name: "Custom Domain", Enabled: true, Overridden: true})
		assert.Contains(t, features, data.StudioFeature{Key: data.AnalyticsFeature, Name: "Analytics Dashboard", Enabled: false})
	})
}
