package httphandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/internal/serve/httperror"
	"github.com/photoproof/photoproof-backend/internal/serve/validators"
	adminvalidators "github.com/photoproof/photoproof-backend/multitenant/pkg/internal/validators"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/provisioning"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

type StudiosHandler struct {
	Store           tenant.Store
	Onboarder       StudioOnboarder
	Features        FeatureStore
	ResolutionCache ResolutionCache
}

type StudioDetails struct {
	*schema.Studio
	Domains  []schema.DomainBinding `json:"domains"`
	Features []data.StudioFeature   `json:"features"`
}

func (h StudiosHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	qv := validators.NewStudioQueryValidator()
	queryParams := qv.ParseParametersFromRequest(r)
	if qv.HasErrors() {
		httperror.BadRequest("Request invalid", nil, qv.Errors).WithErrorCode(httperror.Code400_1).Render(w)
		return
	}

	studios, err := h.Store.GetAllStudios(ctx, queryParams)
	if err != nil {
		httperror.InternalError(ctx, "Cannot get studios", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, studios, httpjson.JSON)
}

func (h StudiosHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody *adminvalidators.StudioRequest
	if err := httpdecode.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("Invalid request body", err, nil).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	v := adminvalidators.NewStudioValidator()
	reqBody = v.ValidateCreateStudioRequest(reqBody)
	if v.HasErrors() {
		httperror.BadRequest("Invalid request body", nil, v.Errors).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	result, err := h.Onboarder.OnboardStudio(ctx, provisioning.OnboardingInput{
		StudioName:     reqBody.Name,
		Email:          reqBody.Email,
		Phone:          reqBody.Phone,
		Subdomain:      reqBody.Subdomain,
		Plan:           reqBody.Plan,
		OwnerFirstName: reqBody.OwnerFirstName,
		OwnerLastName:  reqBody.OwnerLastName,
		OwnerEmail:     reqBody.OwnerEmail,
		OwnerPassword:  reqBody.OwnerPassword,
		CustomDomain:   reqBody.CustomDomain,
	})
	if err != nil {
		studioWriteError(ctx, "Cannot onboard studio", err).Render(w)
		return
	}

	log.Ctx(ctx).Infof("[AdminAPI] studio %s (%s) onboarded", result.Studio.Name, result.Studio.ID)
	httpjson.RenderStatus(w, http.StatusCreated, result, httpjson.JSON)
}

func (h StudiosHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	studio, err := h.Store.GetStudio(ctx, chi.URLParam(r, "id"))
	if err != nil {
		studioLookupError(ctx, err).Render(w)
		return
	}

	domains, err := h.Store.GetStudioBindings(ctx, studio.ID)
	if err != nil {
		httperror.InternalError(ctx, "Cannot get studio domains", err, nil).Render(w)
		return
	}

	features, err := h.Features.GetStudioFeatures(ctx, *studio)
	if err != nil {
		httperror.InternalError(ctx, "Cannot get studio features", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, StudioDetails{Studio: studio, Domains: domains, Features: features}, httpjson.JSON)
}

// Patch renames, re-plans, activates or deactivates a studio. Studios are never deleted.
func (h StudiosHandler) Patch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody *adminvalidators.UpdateStudioRequest
	if err := httpdecode.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("Invalid request body", err, nil).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	v := adminvalidators.NewStudioValidator()
	reqBody = v.ValidateUpdateStudioRequest(reqBody)
	if v.HasErrors() {
		httperror.BadRequest("Invalid request body", nil, v.Errors).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	studio, err := h.Store.UpdateStudio(ctx, tenant.StudioUpdate{
		ID:       chi.URLParam(r, "id"),
		Name:     reqBody.Name,
		Phone:    reqBody.Phone,
		Plan:     reqBody.Plan,
		IsActive: reqBody.IsActive,
	})
	if err != nil {
		studioLookupError(ctx, err).Render(w)
		return
	}
	clearResolutionCache(h.ResolutionCache)

	if reqBody.IsActive != nil {
		log.Ctx(ctx).Infof("[AdminAPI] studio %s active flag set to %t", studio.ID, studio.IsActive)
	}
	httpjson.RenderStatus(w, http.StatusOK, studio, httpjson.JSON)
}

func (h StudiosHandler) PutFeature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	studio, err := h.Store.GetStudio(ctx, chi.URLParam(r, "id"))
	if err != nil {
		studioLookupError(ctx, err).Render(w)
		return
	}

	var reqBody *adminvalidators.FeatureRequest
	if err = httpdecode.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("Invalid request body", err, nil).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	v := adminvalidators.NewStudioValidator()
	key, enabled := v.ValidateFeatureRequest(chi.URLParam(r, "key"), reqBody)
	if v.HasErrors() {
		httperror.BadRequest("Invalid request body", nil, v.Errors).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	if err = h.Features.SetOverride(ctx, studio.ID, key, enabled); err != nil {
		httperror.InternalError(ctx, "Cannot update studio feature", err, nil).Render(w)
		return
	}

	features, err := h.Features.GetStudioFeatures(ctx, *studio)
	if err != nil {
		httperror.InternalError(ctx, "Cannot get studio features", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, features, httpjson.JSON)
}
