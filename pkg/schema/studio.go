package schema

import (
	"slices"
	"time"
)

type Studio struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Email     string     `json:"email" db:"email"`
	Phone     *string    `json:"phone" db:"phone"`
	Subdomain *string    `json:"subdomain" db:"subdomain"`
	Plan      Plan       `json:"plan" db:"plan"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" db:"deleted_at"`
}

type Plan string

const (
	StarterPlan      Plan = "starter"
	ProfessionalPlan Plan = "professional"
	EnterprisePlan   Plan = "enterprise"
)

func (p Plan) IsValid() bool {
	return slices.Contains([]Plan{StarterPlan, ProfessionalPlan, EnterprisePlan}, p)
}
