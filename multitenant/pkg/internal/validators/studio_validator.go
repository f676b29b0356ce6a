package validators

import (
	"fmt"
	"strings"

	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/internal/serve/validators"
	"github.com/photoproof/photoproof-backend/internal/utils"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

var validPlans = []schema.Plan{schema.StarterPlan, schema.ProfessionalPlan, schema.EnterprisePlan}

type StudioRequest struct {
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Phone          *string     `json:"phone"`
	Subdomain      *string     `json:"subdomain"`
	Plan           schema.Plan `json:"plan"`
	OwnerFirstName string      `json:"owner_first_name"`
	OwnerLastName  string      `json:"owner_last_name"`
	OwnerEmail     string      `json:"owner_email"`
	OwnerPassword  string      `json:"owner_password"`
	CustomDomain   string      `json:"custom_domain"`
}

type UpdateStudioRequest struct {
	Name     *string      `json:"name"`
	Phone    *string      `json:"phone"`
	Plan     *schema.Plan `json:"plan"`
	IsActive *bool        `json:"is_active"`
}

type FeatureRequest struct {
	Enabled *bool `json:"enabled"`
}

type StudioValidator struct {
	*validators.Validator
}

func NewStudioValidator() *StudioValidator {
	return &StudioValidator{Validator: validators.NewValidator()}
}

func (sv *StudioValidator) ValidateCreateStudioRequest(reqBody *StudioRequest) *StudioRequest {
	sv.Check(reqBody != nil, "body", "request body is empty")
	if sv.HasErrors() {
		return nil
	}

	reqBody.Name = strings.TrimSpace(reqBody.Name)
	reqBody.Email = strings.ToLower(strings.TrimSpace(reqBody.Email))
	reqBody.OwnerEmail = strings.ToLower(strings.TrimSpace(reqBody.OwnerEmail))
	reqBody.CustomDomain = strings.TrimSpace(reqBody.CustomDomain)

	sv.Check(reqBody.Name != "", "name", "name is required")
	sv.CheckError(utils.ValidateEmail(reqBody.Email), "email", "invalid email")
	if reqBody.Phone != nil {
		sv.CheckError(utils.ValidatePhoneNumber(*reqBody.Phone), "phone", "invalid phone number")
	}
	if reqBody.Subdomain != nil {
		subdomain := strings.ToLower(strings.TrimSpace(*reqBody.Subdomain))
		reqBody.Subdomain = &subdomain
		sv.CheckError(utils.ValidateSubdomainLabel(subdomain), "subdomain", "invalid subdomain. It should be a single DNS label of lower case letters, digits and dashes")
	}
	if reqBody.Plan == "" {
		reqBody.Plan = schema.StarterPlan
	}
	sv.Check(reqBody.Plan.IsValid(), "plan", fmt.Sprintf("invalid plan. Expected one of these values: %s", validPlans))
	if reqBody.OwnerEmail != "" {
		sv.CheckError(utils.ValidateEmail(reqBody.OwnerEmail), "owner_email", "invalid email")
	}
	sv.Check(len(reqBody.OwnerPassword) >= data.MinPasswordLength, "owner_password", fmt.Sprintf("password must have at least %d characters", data.MinPasswordLength))
	if reqBody.CustomDomain != "" {
		sv.CheckError(utils.ValidateDNS(reqBody.CustomDomain), "custom_domain", "invalid domain")
	}

	if sv.HasErrors() {
		return nil
	}
	return reqBody
}

func (sv *StudioValidator) ValidateUpdateStudioRequest(reqBody *UpdateStudioRequest) *UpdateStudioRequest {
	sv.Check(reqBody != nil, "body", "request body is empty")
	if sv.HasErrors() {
		return nil
	}

	sv.Check(reqBody.Name != nil || reqBody.Phone != nil || reqBody.Plan != nil || reqBody.IsActive != nil,
		"body", "provide at least one of name, phone, plan or is_active")
	if reqBody.Name != nil {
		name := strings.TrimSpace(*reqBody.Name)
		reqBody.Name = &name
		sv.Check(name != "", "name", "name cannot be empty")
	}
	if reqBody.Phone != nil {
		sv.CheckError(utils.ValidatePhoneNumber(*reqBody.Phone), "phone", "invalid phone number")
	}
	if reqBody.Plan != nil {
		sv.Check(reqBody.Plan.IsValid(), "plan", fmt.Sprintf("invalid plan. Expected one of these values: %s", validPlans))
	}

	if sv.HasErrors() {
		return nil
	}
	return reqBody
}

func (sv *StudioValidator) ValidateFeatureRequest(featureKey string, reqBody *FeatureRequest) (data.FeatureKey, bool) {
	key, err := data.ParseFeatureKey(featureKey)
	sv.CheckError(err, "feature", "")
	sv.Check(reqBody != nil && reqBody.Enabled != nil, "enabled", "enabled is required")

	if sv.HasErrors() {
		return "", false
	}
	return key, *reqBody.Enabled
}
