package httphandler

import (
	"context"

	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/provisioning"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/verification"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

type StudioOnboarder interface {
	OnboardStudio(ctx context.Context, input provisioning.OnboardingInput) (*provisioning.OnboardingResult, error)
}

type FeatureStore interface {
	GetStudioFeatures(ctx context.Context, studio schema.Studio) ([]data.StudioFeature, error)
	IsEnabled(ctx context.Context, studio schema.Studio, key data.FeatureKey) (bool, error)
	SetOverride(ctx context.Context, studioID string, key data.FeatureKey, enabled bool) error
}

var _ FeatureStore = (*data.FeatureModel)(nil)

type VerificationEngine interface {
	BeginVerification(ctx context.Context, bindingID string, method schema.VerificationMethod) (*verification.Challenge, error)
	Challenge(ctx context.Context, bindingID string) (*verification.Challenge, error)
	CheckVerification(ctx context.Context, bindingID string) (verification.Result, error)
	ForceVerify(ctx context.Context, bindingID string) (*schema.DomainBinding, error)
	Revoke(ctx context.Context, bindingID string) (*schema.DomainBinding, error)
}

var _ VerificationEngine = (*verification.Engine)(nil)

// ResolutionCache is flushed after every write that changes how a hostname resolves.
type ResolutionCache interface {
	Clear()
}

func clearResolutionCache(cache ResolutionCache) {
	if cache != nil {
		cache.Clear()
	}
}
