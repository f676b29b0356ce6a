package schema

type ResolutionMethod string

const (
	CustomDomainResolutionMethod ResolutionMethod = "custom_domain"
	SubdomainResolutionMethod    ResolutionMethod = "subdomain"
	FallbackResolutionMethod     ResolutionMethod = "fallback"
)

// ResolvedTenant is the per-request outcome of hostname resolution. A zero value means the host did not resolve to any
// studio.
type ResolvedTenant struct {
	Studio *Studio
	Method ResolutionMethod
	// Required is false for requests on paths that are exempt from resolution.
	Required bool
}

func (r ResolvedTenant) IsResolved() bool {
	return r.Studio != nil
}

// StudioID returns the resolved studio ID, or "" when unresolved.
func (r ResolvedTenant) StudioID() string {
	if r.Studio == nil {
		return ""
	}
	return r.Studio.ID
}
