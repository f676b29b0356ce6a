package tenant

import (
	"fmt"
	"slices"

	"github.com/photoproof/photoproof-backend/internal/utils"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

// reservedSubdomains are platform-operated hostnames that can never be assigned to a studio.
var reservedSubdomains = []string{"www", "api", "admin", "app", "verify", "mail", "status"}

func isReservedSubdomain(label string) bool {
	return slices.Contains(reservedSubdomains, label)
}

var ErrReservedSubdomain = fmt.Errorf("%w: the subdomain is reserved by the platform", ErrDuplicateSubdomain)

type StudioInsert struct {
	Name      string      `db:"name"`
	Email     string      `db:"email"`
	Phone     *string     `db:"phone"`
	Subdomain *string     `db:"subdomain"`
	Plan      schema.Plan `db:"plan"`
}

func (si *StudioInsert) Validate() error {
	if si.Name == "" {
		return ErrEmptyStudioName
	}
	if err := utils.ValidateEmail(si.Email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if si.Phone != nil {
		if err := utils.ValidatePhoneNumber(*si.Phone); err != nil {
			return fmt.Errorf("invalid phone: %w", err)
		}
	}
	if si.Subdomain != nil {
		if err := utils.ValidateSubdomainLabel(*si.Subdomain); err != nil {
			return fmt.Errorf("invalid subdomain: %w", err)
		}
		if isReservedSubdomain(*si.Subdomain) {
			return ErrReservedSubdomain
		}
	}
	if si.Plan == "" {
		si.Plan = schema.StarterPlan
	}
	if !si.Plan.IsValid() {
		return fmt.Errorf("invalid plan %q", si.Plan)
	}
	return nil
}

type StudioUpdate struct {
	ID       string       `db:"id"`
	Name     *string      `db:"name"`
	Phone    *string      `db:"phone"`
	Plan     *schema.Plan `db:"plan"`
	IsActive *bool        `db:"is_active"`
}

func (su *StudioUpdate) Validate() error {
	if su.ID == "" {
		return fmt.Errorf("studio ID is required")
	}
	if su.Name == nil && su.Phone == nil && su.Plan == nil && su.IsActive == nil {
		return ErrEmptyUpdateStudio
	}
	if su.Name != nil && *su.Name == "" {
		return ErrEmptyStudioName
	}
	if su.Phone != nil {
		if err := utils.ValidatePhoneNumber(*su.Phone); err != nil {
			return fmt.Errorf("invalid phone: %w", err)
		}
	}
	if su.Plan != nil && !su.Plan.IsValid() {
		return fmt.Errorf("invalid plan %q", *su.Plan)
	}
	return nil
}

type BindingInsert struct {
	StudioID  string
	Hostname  string
	IsPrimary bool
}

type StatusFilter string

const (
	StatusFilterAll      StatusFilter = "all"
	StatusFilterActive   StatusFilter = "active"
	StatusFilterInactive StatusFilter = "inactive"
)

func ParseStatusFilter(s string) (StatusFilter, error) {
	switch sf := StatusFilter(s); sf {
	case "":
		return StatusFilterAll, nil
	case StatusFilterAll, StatusFilterActive, StatusFilterInactive:
		return sf, nil
	default:
		return "", fmt.Errorf("invalid status filter %q", s)
	}
}

type QueryParams struct {
	// Query is matched case-insensitively against the studio name, email and subdomain.
	Query     string
	Status    StatusFilter
	Page      int
	PageLimit int
}

func (qp *QueryParams) matches(studio schema.Studio) bool {
	switch qp.Status {
	case StatusFilterActive:
		if !studio.IsActive {
			return false
		}
	case StatusFilterInactive:
		if studio.IsActive {
			return false
		}
	}
	return qp.Query == "" || containsFold(studio.Name, qp.Query) || containsFold(studio.Email, qp.Query) ||
		(studio.Subdomain != nil && containsFold(*studio.Subdomain, qp.Query))
}
