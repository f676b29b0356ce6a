package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/internal/serve/httperror"
	"github.com/photoproof/photoproof-backend/internal/studiocontext"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

// DefaultExemptPathPrefixes are served without a studio: health checks, the public domain availability check and the
// authentication routes.
var DefaultExemptPathPrefixes = []string{"/health", "/api/check-domain", "/auth"}

type TenantResolver interface {
	Resolve(ctx context.Context, rawHost string) (schema.ResolvedTenant, error)
}

var _ TenantResolver = (*tenant.Resolver)(nil)

type PrincipalParser interface {
	ParsePrincipal(token string) (schema.Principal, error)
}

// TenantResolutionMiddleware resolves the studio from the request hostname and attaches the outcome to the request
// context. Exempt paths are attached an outcome that is not required. Registry faults are logged and degrade to an
// unresolved outcome.
func TenantResolutionMiddleware(resolver TenantResolver, exemptPathPrefixes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			if isExemptPath(req.URL.Path, exemptPathPrefixes) {
				ctx = studiocontext.SetResolvedTenant(ctx, schema.ResolvedTenant{Required: false})
				next.ServeHTTP(rw, req.WithContext(ctx))
				return
			}

			resolved, err := resolver.Resolve(ctx, req.Host)
			if err != nil {
				log.Ctx(ctx).Errorf("resolving studio for host %q: %v", req.Host, err)
				resolved = schema.ResolvedTenant{}
			}
			resolved.Required = true

			if resolved.IsResolved() {
				rw.Header().Set(StudioIDHeader, resolved.Studio.ID)
				rw.Header().Set(StudioNameHeader, resolved.Studio.Name)
			}

			ctx = studiocontext.SetResolvedTenant(ctx, resolved)
			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}

func isExemptPath(path string, exemptPathPrefixes []string) bool {
	for _, prefix := range exemptPathPrefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// RequireTenantMiddleware answers 404 when no studio is served on the request host.
func RequireTenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if _, err := studiocontext.RequireStudio(req.Context()); err != nil {
			httperror.NotFound("No studio is served on this host.", err, nil).WithErrorCode(httperror.Code404_0).Render(rw)
			return
		}
		next.ServeHTTP(rw, req)
	})
}

// AuthenticateMiddleware validates the bearer token and attaches the principal it was issued for.
func AuthenticateMiddleware(parser PrincipalParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			token, ok := bearerToken(req)
			if !ok {
				httperror.Unauthorized("", nil, nil).WithErrorCode(httperror.Code401_0).Render(rw)
				return
			}

			principal, err := parser.ParsePrincipal(token)
			if err != nil {
				httperror.Unauthorized("", err, nil).WithErrorCode(httperror.Code401_0).Render(rw)
				return
			}

			ctx := studiocontext.SetPrincipal(req.Context(), principal)
			ctx = log.Set(ctx, log.Ctx(ctx).WithField("user_id", principal.UserID))

			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}

// EnforceSameTenantMiddleware rejects principals whose studio is not the studio resolved from the hostname. It must run
// after AuthenticateMiddleware.
func EnforceSameTenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		principal, err := studiocontext.GetPrincipal(ctx)
		if err != nil {
			httperror.Unauthorized("", err, nil).WithErrorCode(httperror.Code401_0).Render(rw)
			return
		}

		resolved, _ := studiocontext.GetResolvedTenant(ctx)
		if err = tenant.EnforceSameTenant(principal, resolved); err != nil {
			if errors.Is(err, tenant.ErrCrossTenantAccess) {
				log.Ctx(ctx).Warnf("cross-tenant access denied: principal of studio %s on host of studio %q", principal.StudioID, resolved.StudioID())
			}
			httperror.Forbidden("", err, nil).WithErrorCode(httperror.Code403_0).Render(rw)
			return
		}

		next.ServeHTTP(rw, req)
	})
}
