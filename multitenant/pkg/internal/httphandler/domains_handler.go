package httphandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/internal/serve/httperror"
	adminvalidators "github.com/photoproof/photoproof-backend/multitenant/pkg/internal/validators"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/verification"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

type DomainsHandler struct {
	Store           tenant.Store
	Features        FeatureStore
	Engine          VerificationEngine
	ResolutionCache ResolutionCache
}

type DomainDetails struct {
	*schema.DomainBinding
	Challenge *verification.Challenge `json:"challenge,omitempty"`
}

// Post registers an unverified custom domain for a studio whose features include custom domains.
func (h DomainsHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	studio, err := h.Store.GetStudio(ctx, chi.URLParam(r, "id"))
	if err != nil {
		studioLookupError(ctx, err).Render(w)
		return
	}

	var reqBody *adminvalidators.DomainRequest
	if err = httpdecode.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("Invalid request body", err, nil).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	v := adminvalidators.NewDomainValidator()
	reqBody = v.ValidateDomainRequest(reqBody)
	if v.HasErrors() {
		httperror.BadRequest("Invalid request body", nil, v.Errors).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	enabled, err := h.Features.IsEnabled(ctx, *studio, data.CustomDomainFeature)
	if err != nil {
		httperror.InternalError(ctx, "Cannot get studio features", err, nil).Render(w)
		return
	}
	if !enabled {
		studioWriteError(ctx, "", data.ErrFeatureNotEnabled).Render(w)
		return
	}

	binding, err := h.Store.CreateBinding(ctx, tenant.BindingInsert{
		StudioID:  studio.ID,
		Hostname:  reqBody.Hostname,
		IsPrimary: reqBody.IsPrimary,
	})
	if err != nil {
		studioWriteError(ctx, "Cannot register domain", err).Render(w)
		return
	}

	log.Ctx(ctx).Infof("[AdminAPI] domain %s registered for studio %s", binding.Hostname, studio.ID)
	httpjson.RenderStatus(w, http.StatusCreated, binding, httpjson.JSON)
}

func (h DomainsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	binding, err := h.Store.GetBinding(ctx, chi.URLParam(r, "id"))
	if err != nil {
		bindingError(ctx, "Cannot get domain", err).Render(w)
		return
	}

	details := DomainDetails{DomainBinding: binding}
	if !binding.IsVerified() {
		challenge, challengeErr := h.Engine.Challenge(ctx, binding.ID)
		switch {
		case challengeErr == nil:
			details.Challenge = challenge
		case !errors.Is(challengeErr, verification.ErrNoVerificationMethod):
			bindingError(ctx, "Cannot build domain challenge", challengeErr).Render(w)
			return
		}
	}

	httpjson.RenderStatus(w, http.StatusOK, details, httpjson.JSON)
}

func (h DomainsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteBinding(ctx, id); err != nil {
		bindingError(ctx, "Cannot delete domain", err).Render(w)
		return
	}
	clearResolutionCache(h.ResolutionCache)

	log.Ctx(ctx).Infof("[AdminAPI] domain %s deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// BeginVerification records the chosen method and returns the challenge the studio must publish.
func (h DomainsHandler) BeginVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody *adminvalidators.VerificationRequest
	if err := httpdecode.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("Invalid request body", err, nil).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	v := adminvalidators.NewDomainValidator()
	reqBody = v.ValidateVerificationRequest(reqBody)
	if v.HasErrors() {
		httperror.BadRequest("Invalid request body", nil, v.Errors).WithErrorCode(httperror.Code400_0).Render(w)
		return
	}

	challenge, err := h.Engine.BeginVerification(ctx, chi.URLParam(r, "id"), reqBody.Method)
	if err != nil {
		bindingError(ctx, "Cannot begin domain verification", err).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, challenge, httpjson.JSON)
}

// CheckVerification checks the published challenge now. A missing proof is reported as not_verified with a 200.
func (h DomainsHandler) CheckVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.Engine.CheckVerification(ctx, chi.URLParam(r, "id"))
	if err != nil {
		bindingError(ctx, "Cannot check domain verification", err).Render(w)
		return
	}
	if result.IsVerified() {
		clearResolutionCache(h.ResolutionCache)
	}

	httpjson.RenderStatus(w, http.StatusOK, result, httpjson.JSON)
}

func (h DomainsHandler) ForceVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	binding, err := h.Engine.ForceVerify(ctx, chi.URLParam(r, "id"))
	if err != nil {
		bindingError(ctx, "Cannot verify domain", err).Render(w)
		return
	}
	clearResolutionCache(h.ResolutionCache)

	log.Ctx(ctx).Warnf("[AdminAPI] domain %s of studio %s was verified manually", binding.Hostname, binding.StudioID)
	httpjson.RenderStatus(w, http.StatusOK, binding, httpjson.JSON)
}

func (h DomainsHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	binding, err := h.Engine.Revoke(ctx, chi.URLParam(r, "id"))
	if err != nil {
		bindingError(ctx, "Cannot revoke domain verification", err).Render(w)
		return
	}
	clearResolutionCache(h.ResolutionCache)

	log.Ctx(ctx).Infof("[AdminAPI] verification of domain %s was revoked", binding.Hostname)
	httpjson.RenderStatus(w, http.StatusOK, binding, httpjson.JSON)
}
