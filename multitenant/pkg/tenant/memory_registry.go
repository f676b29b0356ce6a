package tenant

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/photoproof/photoproof-backend/internal/utils"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

// MemoryRegistry is an in-process Store. It backs tests and the local development mode, and it enforces the same
// uniqueness rules as the Postgres schema.
type MemoryRegistry struct {
	mu             sync.RWMutex
	platformDomain string
	studios        map[string]schema.Studio
	bindings       map[string]schema.DomainBinding
	now            func() time.Time
}

var _ Store = (*MemoryRegistry)(nil)

func NewMemoryRegistry(platformDomain string) *MemoryRegistry {
	return &MemoryRegistry{
		platformDomain: utils.NormalizeHost(platformDomain),
		studios:        map[string]schema.Studio{},
		bindings:       map[string]schema.DomainBinding{},
		now:            time.Now,
	}
}

func (r *MemoryRegistry) FindVerifiedCustomDomain(_ context.Context, host string) (*schema.DomainBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := r.filterBindings(func(b schema.DomainBinding) bool {
		return b.Hostname == host && b.IsVerified()
	})
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

func (r *MemoryRegistry) FindStudioBySubdomainLabel(_ context.Context, label string) (*schema.Studio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := r.filterStudios(func(s schema.Studio) bool {
		return s.Subdomain != nil && *s.Subdomain == label && s.IsActive
	})
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

func (r *MemoryRegistry) FindActiveStudioByID(_ context.Context, id string) (*schema.Studio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	studio, ok := r.studios[id]
	if !ok || !studio.IsActive {
		return nil, nil
	}
	return &studio, nil
}

func (r *MemoryRegistry) CreateStudio(_ context.Context, insert StudioInsert) (*schema.Studio, error) {
	if err := insert.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.studios {
		if s.Email == insert.Email {
			return nil, ErrDuplicateEmail
		}
		if insert.Subdomain != nil && s.Subdomain != nil && *s.Subdomain == *insert.Subdomain {
			return nil, ErrDuplicateSubdomain
		}
	}

	return r.insertStudio(insert), nil
}

// ForceInsertStudio stores a studio without uniqueness checks. It exists to reproduce corrupted storage states.
func (r *MemoryRegistry) ForceInsertStudio(insert StudioInsert) *schema.Studio {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertStudio(insert)
}

func (r *MemoryRegistry) insertStudio(insert StudioInsert) *schema.Studio {
	now := r.now()
	studio := schema.Studio{
		ID:        uuid.NewString(),
		Name:      insert.Name,
		Email:     insert.Email,
		Phone:     insert.Phone,
		Subdomain: insert.Subdomain,
		Plan:      cmp.Or(insert.Plan, schema.StarterPlan),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.studios[studio.ID] = studio
	return &studio
}

func (r *MemoryRegistry) GetStudio(_ context.Context, id string) (*schema.Studio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	studio, ok := r.studios[id]
	if !ok {
		return nil, ErrStudioNotFound
	}
	return &studio, nil
}

func (r *MemoryRegistry) GetAllStudios(_ context.Context, queryParams *QueryParams) ([]schema.Studio, error) {
	if queryParams == nil {
		queryParams = &QueryParams{}
	}

	r.mu.RLock()
	studios := r.filterStudios(queryParams.matches)
	r.mu.RUnlock()

	slices.SortStableFunc(studios, func(a, b schema.Studio) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if queryParams.PageLimit > 0 {
		page := max(queryParams.Page, 1)
		start := min((page-1)*queryParams.PageLimit, len(studios))
		end := min(start+queryParams.PageLimit, len(studios))
		studios = studios[start:end]
	}
	return studios, nil
}

func (r *MemoryRegistry) UpdateStudio(_ context.Context, update StudioUpdate) (*schema.Studio, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	studio, ok := r.studios[update.ID]
	if !ok {
		return nil, ErrStudioNotFound
	}
	if update.Name != nil {
		studio.Name = *update.Name
	}
	if update.Phone != nil {
		studio.Phone = update.Phone
	}
	if update.Plan != nil {
		studio.Plan = *update.Plan
	}
	if update.IsActive != nil {
		studio.IsActive = *update.IsActive
	}
	studio.UpdatedAt = r.now()
	r.studios[studio.ID] = studio
	return &studio, nil
}

func (r *MemoryRegistry) SetStudioActive(ctx context.Context, id string, active bool) (*schema.Studio, error) {
	return r.UpdateStudio(ctx, StudioUpdate{ID: id, IsActive: &active})
}

func (r *MemoryRegistry) CreateBinding(_ context.Context, insert BindingInsert) (*schema.DomainBinding, error) {
	host, err := validateCustomHostname(insert.Hostname, r.platformDomain)
	if err != nil {
		return nil, err
	}
	token, err := newVerificationToken()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.studios[insert.StudioID]; !ok {
		return nil, ErrStudioNotFound
	}
	for _, b := range r.bindings {
		if b.Hostname == host {
			return nil, ErrDuplicateHostname
		}
	}

	if insert.IsPrimary {
		for id, b := range r.bindings {
			if b.StudioID == insert.StudioID && b.IsPrimary {
				b.IsPrimary = false
				r.bindings[id] = b
			}
		}
	}

	binding := r.insertBinding(host, insert.StudioID, insert.IsPrimary, token)
	return &binding, nil
}

// ForceInsertVerifiedBinding stores a verified binding without validation or uniqueness checks. It exists to reproduce
// corrupted storage states.
func (r *MemoryRegistry) ForceInsertVerifiedBinding(studioID, hostname string) *schema.DomainBinding {
	r.mu.Lock()
	defer r.mu.Unlock()

	binding := r.insertBinding(hostname, studioID, false, "")
	method := schema.ManualVerificationMethod
	verifiedAt := r.now()
	binding.Status = schema.VerifiedBindingStatus
	binding.VerificationMethod = &method
	binding.VerifiedAt = &verifiedAt
	r.bindings[binding.ID] = binding
	return &binding
}

func (r *MemoryRegistry) insertBinding(host, studioID string, isPrimary bool, token string) schema.DomainBinding {
	now := r.now()
	binding := schema.DomainBinding{
		ID:                uuid.NewString(),
		Hostname:          host,
		StudioID:          studioID,
		IsPrimary:         isPrimary,
		Status:            schema.UnverifiedBindingStatus,
		VerificationToken: token,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.bindings[binding.ID] = binding
	return binding
}

func (r *MemoryRegistry) GetBinding(_ context.Context, id string) (*schema.DomainBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	binding, ok := r.bindings[id]
	if !ok {
		return nil, ErrBindingNotFound
	}
	return &binding, nil
}

func (r *MemoryRegistry) GetStudioBindings(_ context.Context, studioID string) ([]schema.DomainBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.studios[studioID]; !ok {
		return nil, ErrStudioNotFound
	}
	bindings := r.filterBindings(func(b schema.DomainBinding) bool { return b.StudioID == studioID })
	slices.SortStableFunc(bindings, func(a, b schema.DomainBinding) int {
		if a.IsPrimary != b.IsPrimary {
			if a.IsPrimary {
				return -1
			}
			return 1
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return bindings, nil
}

func (r *MemoryRegistry) GetPendingBindings(_ context.Context, afterID string, limit int) ([]schema.DomainBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bindings := r.filterBindings(func(b schema.DomainBinding) bool {
		return !b.IsVerified() && b.VerificationMethod != nil && b.VerificationMethod.IsChallengeMethod() && b.ID > afterID
	})
	slices.SortFunc(bindings, func(a, b schema.DomainBinding) int {
		return strings.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(bindings) > limit {
		bindings = bindings[:limit]
	}
	return bindings, nil
}

func (r *MemoryRegistry) SetBindingVerificationMethod(_ context.Context, id string, method schema.VerificationMethod) (*schema.DomainBinding, error) {
	if !method.IsChallengeMethod() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVerification, method)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	binding, ok := r.bindings[id]
	if !ok {
		return nil, ErrBindingNotFound
	}
	if binding.IsVerified() {
		return &binding, nil
	}
	binding.VerificationMethod = &method
	binding.UpdatedAt = r.now()
	r.bindings[id] = binding
	return &binding, nil
}

func (r *MemoryRegistry) SetBindingVerified(_ context.Context, id, token string, method schema.VerificationMethod, verifiedAt time.Time) (*schema.DomainBinding, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVerification, method)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	binding, ok := r.bindings[id]
	if !ok {
		return nil, ErrBindingNotFound
	}
	if binding.IsVerified() || binding.VerificationToken != token {
		return &binding, nil
	}
	binding.Status = schema.VerifiedBindingStatus
	binding.VerificationMethod = &method
	binding.VerifiedAt = &verifiedAt
	binding.UpdatedAt = r.now()
	r.bindings[id] = binding
	return &binding, nil
}

func (r *MemoryRegistry) RevokeBinding(_ context.Context, id string) (*schema.DomainBinding, error) {
	token, err := newVerificationToken()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	binding, ok := r.bindings[id]
	if !ok {
		return nil, ErrBindingNotFound
	}
	binding.Status = schema.UnverifiedBindingStatus
	binding.VerificationMethod = nil
	binding.VerifiedAt = nil
	binding.VerificationToken = token
	binding.UpdatedAt = r.now()
	r.bindings[id] = binding
	return &binding, nil
}

func (r *MemoryRegistry) DeleteBinding(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[id]; !ok {
		return ErrBindingNotFound
	}
	delete(r.bindings, id)
	return nil
}

func (r *MemoryRegistry) IsHostnameAvailable(_ context.Context, host string) (bool, error) {
	host = utils.NormalizeHost(host)
	if host == "" {
		return false, ErrInvalidHostname
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if utils.IsSameOrSubdomainOf(host, r.platformDomain) {
		label, isStudioHost := platformSubdomainLabel(host, r.platformDomain)
		if !isStudioHost {
			return false, nil
		}
		taken := r.filterStudios(func(s schema.Studio) bool { return s.Subdomain != nil && *s.Subdomain == label })
		return len(taken) == 0, nil
	}

	taken := r.filterBindings(func(b schema.DomainBinding) bool { return b.Hostname == host })
	return len(taken) == 0, nil
}

// filterStudios returns the matching studios ordered by ID. Callers must hold the lock.
func (r *MemoryRegistry) filterStudios(match func(schema.Studio) bool) []schema.Studio {
	studios := []schema.Studio{}
	for _, s := range r.studios {
		if match(s) {
			studios = append(studios, s)
		}
	}
	slices.SortFunc(studios, func(a, b schema.Studio) int { return strings.Compare(a.ID, b.ID) })
	return studios
}

// filterBindings returns the matching bindings ordered by ID. Callers must hold the lock.
func (r *MemoryRegistry) filterBindings(match func(schema.DomainBinding) bool) []schema.DomainBinding {
	bindings := []schema.DomainBinding{}
	for _, b := range r.bindings {
		if match(b) {
			bindings = append(bindings, b)
		}
	}
	slices.SortFunc(bindings, func(a, b schema.DomainBinding) int { return strings.Compare(a.ID, b.ID) })
	return bindings
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
