package studiocontext

import (
	"context"
	"errors"

	"github.com/photoproof/photoproof-backend/pkg/schema"
)

var (
	ErrStudioNotResolved          = errors.New("studio not resolved for this request")
	ErrPrincipalNotFoundInContext = errors.New("principal not found in context")
)

type (
	resolvedTenantContextKey struct{}
	principalContextKey      struct{}
)

// SetResolvedTenant attaches the resolution outcome to the context. The first value attached wins: later calls return
// the context unchanged so the outcome stays fixed for the lifetime of the request.
func SetResolvedTenant(ctx context.Context, resolved schema.ResolvedTenant) context.Context {
	if _, ok := GetResolvedTenant(ctx); ok {
		return ctx
	}
	if resolved.Studio != nil {
		studio := *resolved.Studio
		resolved.Studio = &studio
	}
	return context.WithValue(ctx, resolvedTenantContextKey{}, resolved)
}

// GetResolvedTenant returns the resolution outcome attached to the context. The returned studio is a copy.
func GetResolvedTenant(ctx context.Context) (schema.ResolvedTenant, bool) {
	resolved, ok := ctx.Value(resolvedTenantContextKey{}).(schema.ResolvedTenant)
	if !ok {
		return schema.ResolvedTenant{}, false
	}
	if resolved.Studio != nil {
		studio := *resolved.Studio
		resolved.Studio = &studio
	}
	return resolved, true
}

// RequireStudio returns the studio resolved for the request or ErrStudioNotResolved.
func RequireStudio(ctx context.Context) (*schema.Studio, error) {
	resolved, ok := GetResolvedTenant(ctx)
	if !ok || !resolved.IsResolved() {
		return nil, ErrStudioNotResolved
	}
	return resolved.Studio, nil
}

func SetPrincipal(ctx context.Context, principal schema.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

func GetPrincipal(ctx context.Context) (schema.Principal, error) {
	principal, ok := ctx.Value(principalContextKey{}).(schema.Principal)
	if !ok || principal.UserID == "" {
		return schema.Principal{}, ErrPrincipalNotFoundInContext
	}
	return principal, nil
}
