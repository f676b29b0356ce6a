package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/internal/monitor"
	"github.com/photoproof/photoproof-backend/internal/utils"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

const DefaultLocalFallbackSubdomain = "demo"

const unresolvedMethodLabel = "none"

type ResolverOptions struct {
	Registry Registry
	// EnableLocalFallback resolves loopback hosts to the studio owning LocalFallbackSubdomain. It must stay disabled in
	// production deployments.
	EnableLocalFallback    bool
	LocalFallbackSubdomain string
	MonitorService         monitor.MonitorServiceInterface
}

func (o ResolverOptions) Validate() error {
	if o.Registry == nil {
		return errors.New("registry cannot be nil")
	}
	if o.EnableLocalFallback {
		if err := utils.ValidateSubdomainLabel(o.LocalFallbackSubdomain); err != nil {
			return fmt.Errorf("validating local fallback subdomain: %w", err)
		}
	}
	return nil
}

// Resolver maps the hostname of an inbound request to at most one active studio.
type Resolver struct {
	registry               Registry
	enableLocalFallback    bool
	localFallbackSubdomain string
	monitorService         monitor.MonitorServiceInterface
}

func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validating resolver options: %w", err)
	}

	return &Resolver{
		registry:               opts.Registry,
		enableLocalFallback:    opts.EnableLocalFallback,
		localFallbackSubdomain: opts.LocalFallbackSubdomain,
		monitorService:         opts.MonitorService,
	}, nil
}

// Resolve applies, in order: local loopback fallback (when enabled), verified custom domain, then the first label of
// the host as a platform subdomain. A registry fault returns an unresolved outcome together with the error, so callers
// can degrade to "no studio" and still report the fault.
func (r *Resolver) Resolve(ctx context.Context, rawHost string) (schema.ResolvedTenant, error) {
	resolved, err := r.resolve(ctx, utils.NormalizeHost(rawHost))
	r.recordOutcome(ctx, resolved, err)
	if err != nil {
		return schema.ResolvedTenant{Required: true}, err
	}
	return resolved, nil
}

func (r *Resolver) resolve(ctx context.Context, host string) (schema.ResolvedTenant, error) {
	unresolved := schema.ResolvedTenant{Required: true}
	if host == "" {
		return unresolved, nil
	}

	if r.enableLocalFallback && utils.IsLoopbackHost(host) {
		studio, err := r.registry.FindStudioBySubdomainLabel(ctx, r.localFallbackSubdomain)
		if err != nil {
			return unresolved, fmt.Errorf("finding local fallback studio %q: %w", r.localFallbackSubdomain, err)
		}
		if studio != nil {
			return schema.ResolvedTenant{Studio: studio, Method: schema.FallbackResolutionMethod, Required: true}, nil
		}
	}

	binding, err := r.registry.FindVerifiedCustomDomain(ctx, host)
	if err != nil {
		return unresolved, fmt.Errorf("finding custom domain %q: %w", host, err)
	}
	// The status check repeats the registry contract: an unverified binding never resolves a request.
	if binding != nil && binding.IsVerified() && binding.Hostname == host {
		studio, findErr := r.registry.FindActiveStudioByID(ctx, binding.StudioID)
		if findErr != nil {
			return unresolved, fmt.Errorf("finding studio %s bound to %q: %w", binding.StudioID, host, findErr)
		}
		if studio != nil {
			return schema.ResolvedTenant{Studio: studio, Method: schema.CustomDomainResolutionMethod, Required: true}, nil
		}
	}

	if net.ParseIP(host) != nil {
		return unresolved, nil
	}
	label, ok := utils.ExtractSubdomainLabel(host)
	if !ok {
		return unresolved, nil
	}
	studio, err := r.registry.FindStudioBySubdomainLabel(ctx, label)
	if err != nil {
		return unresolved, fmt.Errorf("finding studio by subdomain %q: %w", label, err)
	}
	if studio != nil && studio.IsActive {
		return schema.ResolvedTenant{Studio: studio, Method: schema.SubdomainResolutionMethod, Required: true}, nil
	}

	return unresolved, nil
}

func (r *Resolver) recordOutcome(ctx context.Context, resolved schema.ResolvedTenant, err error) {
	if r.monitorService == nil {
		return
	}

	labels := monitor.ResolutionLabels{Method: unresolvedMethodLabel, Outcome: monitor.ResolutionOutcomeUnresolved}
	switch {
	case err != nil:
		labels.Outcome = monitor.ResolutionOutcomeError
	case resolved.IsResolved():
		labels.Method = string(resolved.Method)
		labels.Outcome = monitor.ResolutionOutcomeResolved
	}

	if monitorErr := r.monitorService.MonitorCounters(monitor.ResolutionCounterTag, labels.ToMap()); monitorErr != nil {
		log.Ctx(ctx).Errorf("monitoring resolution outcome: %v", monitorErr)
	}
}
