package httphandler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/photoproof/photoproof-backend/internal/serve/httperror"
	"github.com/photoproof/photoproof-backend/internal/serve/validators"
	"github.com/photoproof/photoproof-backend/internal/utils"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
)

type HostnameAvailabilityChecker interface {
	IsHostnameAvailable(ctx context.Context, host string) (bool, error)
}

type CheckDomainResponse struct {
	Domain    string `json:"domain"`
	Available bool   `json:"available"`
}

// CheckDomainHandler reports whether a hostname is free, across custom domain bindings and platform subdomains.
type CheckDomainHandler struct {
	Checker HostnameAvailabilityChecker
}

func (h CheckDomainHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	rawDomain := strings.TrimSpace(req.URL.Query().Get("domain"))
	domain := utils.NormalizeHost(rawDomain)

	v := validators.NewValidator()
	v.Check(rawDomain != "", "domain", "domain is required")
	if rawDomain != "" {
		v.CheckError(utils.ValidateDNS(domain), "domain", "invalid domain")
	}
	if v.HasErrors() {
		httperror.BadRequest("Request invalid", nil, v.Errors).WithErrorCode(httperror.Code400_1).Render(rw)
		return
	}

	available, err := h.Checker.IsHostnameAvailable(ctx, domain)
	if errors.Is(err, tenant.ErrInvalidHostname) {
		httperror.BadRequest("Request invalid", err, map[string]any{"domain": "invalid domain"}).WithErrorCode(httperror.Code400_1).Render(rw)
		return
	} else if err != nil {
		httperror.InternalError(ctx, "Cannot check domain availability", err, nil).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, CheckDomainResponse{Domain: domain, Available: available}, httpjson.JSON)
}
