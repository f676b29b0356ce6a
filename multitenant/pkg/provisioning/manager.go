package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/db"
	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

var ErrOwnerAlreadyExists = errors.New("a user with the owner email already exists")

// OnboardingInput describes a new studio together with its owner account and, optionally, the custom domain it
// intends to use.
type OnboardingInput struct {
	StudioName string
	Email      string
	Phone      *string
	Subdomain  *string
	Plan       schema.Plan

	OwnerFirstName string
	OwnerLastName  string
	// OwnerEmail defaults to the studio email.
	OwnerEmail    string
	OwnerPassword string

	CustomDomain string
}

type OnboardingResult struct {
	Studio  *schema.Studio        `json:"studio"`
	Owner   *data.User            `json:"owner"`
	Binding *schema.DomainBinding `json:"domain,omitempty"`
}

type Manager struct {
	db            db.DBConnectionPool
	studioManager *tenant.Manager
	models        *data.Models
}

type Option func(m *Manager)

func NewManager(opts ...Option) *Manager {
	m := Manager{}
	for _, opt := range opts {
		opt(&m)
	}
	return &m
}

func WithDatabase(dbConnectionPool db.DBConnectionPool) Option {
	return func(m *Manager) {
		m.db = dbConnectionPool
	}
}

func WithStudioManager(studioManager *tenant.Manager) Option {
	return func(m *Manager) {
		m.studioManager = studioManager
	}
}

func WithModels(models *data.Models) Option {
	return func(m *Manager) {
		m.models = models
	}
}

// OnboardStudio creates the studio, its owner and the unverified primary binding of its custom domain in a single
// transaction. Nothing is persisted when any step fails.
func (m *Manager) OnboardStudio(ctx context.Context, input OnboardingInput) (*OnboardingResult, error) {
	studioInsert := tenant.StudioInsert{
		Name:      strings.TrimSpace(input.StudioName),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     input.Phone,
		Subdomain: input.Subdomain,
		Plan:      input.Plan,
	}
	if err := studioInsert.Validate(); err != nil {
		return nil, fmt.Errorf("validating studio: %w", err)
	}

	customDomain := strings.TrimSpace(input.CustomDomain)
	if customDomain != "" && !data.PlanIncludesFeature(studioInsert.Plan, data.CustomDomainFeature) {
		return nil, fmt.Errorf("registering a custom domain on the %s plan: %w", studioInsert.Plan, data.ErrFeatureNotEnabled)
	}

	ownerEmail := input.OwnerEmail
	if ownerEmail == "" {
		ownerEmail = studioInsert.Email
	}

	result, err := db.RunInTransactionWithResult(ctx, m.db, nil, func(dbTx db.DBTransaction) (*OnboardingResult, error) {
		studio, err := m.studioManager.InsertStudio(ctx, dbTx, studioInsert)
		if err != nil {
			return nil, fmt.Errorf("creating studio: %w", err)
		}

		owner, err := m.models.Users.Insert(ctx, dbTx, data.UserInsert{
			StudioID:  studio.ID,
			Email:     ownerEmail,
			FirstName: input.OwnerFirstName,
			LastName:  input.OwnerLastName,
			Password:  input.OwnerPassword,
			Role:      schema.StudioOwnerRole,
		})
		if errors.Is(err, data.ErrRecordAlreadyExists) {
			return nil, ErrOwnerAlreadyExists
		} else if err != nil {
			return nil, fmt.Errorf("creating studio owner: %w", err)
		}

		result := &OnboardingResult{Studio: studio, Owner: owner}
		if customDomain != "" {
			result.Binding, err = m.studioManager.InsertBinding(ctx, dbTx, tenant.BindingInsert{
				StudioID:  studio.ID,
				Hostname:  customDomain,
				IsPrimary: true,
			})
			if err != nil {
				return nil, fmt.Errorf("registering custom domain: %w", err)
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, fmt.Errorf("onboarding studio %q: %w", studioInsert.Name, err)
	}

	log.Ctx(ctx).Infof("onboarded studio %s (%s) with owner %s", result.Studio.Name, result.Studio.ID, result.Owner.ID)
	return result, nil
}
