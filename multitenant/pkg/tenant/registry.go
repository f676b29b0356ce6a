package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/photoproof/photoproof-backend/pkg/schema"
)

var (
	ErrStudioNotFound      = errors.New("studio not found")
	ErrBindingNotFound     = errors.New("domain binding not found")
	ErrDuplicateHostname   = errors.New("hostname is already bound to a studio")
	ErrDuplicateSubdomain  = errors.New("subdomain is already taken")
	ErrDuplicateEmail      = errors.New("a studio with this email already exists")
	ErrEmptyStudioName     = errors.New("studio name cannot be empty")
	ErrEmptyUpdateStudio   = errors.New("provide at least one field to update")
	ErrInvalidHostname     = errors.New("invalid hostname")
	ErrInvalidVerification = errors.New("invalid verification method")
)

// Registry is the read side of the studio storage used to resolve every inbound request. Lookups are exact-match only
// and report absence as (nil, nil).
type Registry interface {
	// FindVerifiedCustomDomain returns the verified binding whose hostname equals host.
	FindVerifiedCustomDomain(ctx context.Context, host string) (*schema.DomainBinding, error)
	// FindStudioBySubdomainLabel returns the active studio owning the platform subdomain label.
	FindStudioBySubdomainLabel(ctx context.Context, label string) (*schema.Studio, error)
	// FindActiveStudioByID returns the studio with the given ID if it is active.
	FindActiveStudioByID(ctx context.Context, id string) (*schema.Studio, error)
}

// Store is the full studio and domain binding storage used by the admin surfaces.
type Store interface {
	Registry
	CreateStudio(ctx context.Context, insert StudioInsert) (*schema.Studio, error)
	GetStudio(ctx context.Context, id string) (*schema.Studio, error)
	GetAllStudios(ctx context.Context, queryParams *QueryParams) ([]schema.Studio, error)
	UpdateStudio(ctx context.Context, update StudioUpdate) (*schema.Studio, error)
	SetStudioActive(ctx context.Context, id string, active bool) (*schema.Studio, error)
	CreateBinding(ctx context.Context, insert BindingInsert) (*schema.DomainBinding, error)
	GetBinding(ctx context.Context, id string) (*schema.DomainBinding, error)
	GetStudioBindings(ctx context.Context, studioID string) ([]schema.DomainBinding, error)
	GetPendingBindings(ctx context.Context, afterID string, limit int) ([]schema.DomainBinding, error)
	SetBindingVerificationMethod(ctx context.Context, id string, method schema.VerificationMethod) (*schema.DomainBinding, error)
	SetBindingVerified(ctx context.Context, id, token string, method schema.VerificationMethod, verifiedAt time.Time) (*schema.DomainBinding, error)
	RevokeBinding(ctx context.Context, id string) (*schema.DomainBinding, error)
	DeleteBinding(ctx context.Context, id string) error
	IsHostnameAvailable(ctx context.Context, host string) (bool, error)
}
