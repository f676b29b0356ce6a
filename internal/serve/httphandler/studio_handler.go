package httphandler

import (
	"context"
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/internal/serve/httperror"
	"github.com/photoproof/photoproof-backend/internal/studiocontext"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

type StudioBindingsReader interface {
	GetStudioBindings(ctx context.Context, studioID string) ([]schema.DomainBinding, error)
}

type StudioFeaturesReader interface {
	GetStudioFeatures(ctx context.Context, studio schema.Studio) ([]data.StudioFeature, error)
}

// PublicStudio is the part of a studio that is visible to anyone browsing one of its hosts.
type PublicStudio struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Subdomain    *string                 `json:"subdomain,omitempty"`
	Plan         schema.Plan             `json:"plan"`
	ResolvedBy   schema.ResolutionMethod `json:"resolved_by"`
	CustomDomain string                  `json:"custom_domain,omitempty"`
}

// StudioHandler describes the studio served on the request host.
type StudioHandler struct {
	Bindings StudioBindingsReader
}

func (h StudioHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	studio, err := studiocontext.RequireStudio(ctx)
	if err != nil {
		httperror.NotFound("No studio is served on this host.", err, nil).WithErrorCode(httperror.Code404_0).Render(rw)
		return
	}
	resolved, _ := studiocontext.GetResolvedTenant(ctx)

	response := PublicStudio{
		ID:         studio.ID,
		Name:       studio.Name,
		Subdomain:  studio.Subdomain,
		Plan:       studio.Plan,
		ResolvedBy: resolved.Method,
	}

	bindings, err := h.Bindings.GetStudioBindings(ctx, studio.ID)
	if err != nil {
		httperror.InternalError(ctx, "Cannot get studio domains", err, nil).Render(rw)
		return
	}
	for _, binding := range bindings {
		if binding.IsPrimary && binding.IsVerified() {
			response.CustomDomain = binding.Hostname
			break
		}
	}

	httpjson.RenderStatus(rw, http.StatusOK, response, httpjson.JSON)
}

// StudioFeaturesHandler lists the effective features of the studio served on the request host. It must be mounted
// behind authentication and the same-tenant guard.
type StudioFeaturesHandler struct {
	Features StudioFeaturesReader
}

func (h StudioFeaturesHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	studio, err := studiocontext.RequireStudio(ctx)
	if err != nil {
		httperror.NotFound("No studio is served on this host.", err, nil).WithErrorCode(httperror.Code404_0).Render(rw)
		return
	}

	features, err := h.Features.GetStudioFeatures(ctx, *studio)
	if err != nil {
		httperror.InternalError(ctx, "Cannot get studio features", err, nil).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, features, httpjson.JSON)
}
