package data

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/photoproof/photoproof-backend/db"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

var ErrFeatureNotEnabled = errors.New("feature is not enabled for the studio")

type FeatureKey string

const (
	AnalyticsFeature    FeatureKey = "analytics"
	AIToolsFeature      FeatureKey = "ai_tools"
	ContractsFeature    FeatureKey = "contracts"
	CustomDomainFeature FeatureKey = "custom_domain"
	WhiteLabelFeature   FeatureKey = "white_label"
	APIAccessFeature    FeatureKey = "api_access"
)

type FeatureDefinition struct {
	Key          FeatureKey    `json:"key"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	DefaultPlans []schema.Plan `json:"default_plans"`
}

// FeatureDefinitions lists every feature in display order.
var FeatureDefinitions = []FeatureDefinition{
	{Key: AnalyticsFeature, Name: "Analytics Dashboard", Description: "View detailed analytics and reports", DefaultPlans: []schema.Plan{schema.ProfessionalPlan, schema.EnterprisePlan}},
	{Key: AIToolsFeature, Name: "AI Tools", Description: "AI-powered editing and enhancements", DefaultPlans: []schema.Plan{schema.EnterprisePlan}},
	{Key: ContractsFeature, Name: "Contracts", Description: "Digital contract management", DefaultPlans: []schema.Plan{schema.ProfessionalPlan, schema.EnterprisePlan}},
	{Key: CustomDomainFeature, Name: "Custom Domain", Description: "Use your own domain", DefaultPlans: []schema.Plan{schema.ProfessionalPlan, schema.EnterprisePlan}},
	{Key: WhiteLabelFeature, Name: "White Label", Description: "Remove PhotoProof branding", DefaultPlans: []schema.Plan{schema.EnterprisePlan}},
	{Key: APIAccessFeature, Name: "API Access", Description: "Programmatic access via API", DefaultPlans: []schema.Plan{schema.EnterprisePlan}},
}

func ParseFeatureKey(key string) (FeatureKey, error) {
	for _, definition := range FeatureDefinitions {
		if string(definition.Key) == key {
			return definition.Key, nil
		}
	}
	return "", fmt.Errorf("unknown feature %q", key)
}

// PlanIncludesFeature reports whether the feature is enabled by default for studios on the plan.
func PlanIncludesFeature(plan schema.Plan, key FeatureKey) bool {
	for _, definition := range FeatureDefinitions {
		if definition.Key == key {
			return slices.Contains(definition.DefaultPlans, plan)
		}
	}
	return false
}

// StudioFeature is the effective state of a feature for one studio.
type StudioFeature struct {
	Key        FeatureKey `json:"key"`
	Name       string     `json:"name"`
	Enabled    bool       `json:"enabled"`
	Overridden bool       `json:"overridden"`
}

type featureOverride struct {
	Key       FeatureKey `db:"feature_key"`
	IsEnabled bool       `db:"is_enabled"`
}

type FeatureModel struct {
	dbConnectionPool db.DBConnectionPool
}

// SetOverride forces a feature on or off for a studio regardless of its plan.
func (m *FeatureModel) SetOverride(ctx context.Context, studioID string, key FeatureKey, enabled bool) error {
	const query = `
		INSERT INTO studio_features (studio_id, feature_key, is_enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (studio_id, feature_key) DO UPDATE SET is_enabled = EXCLUDED.is_enabled, updated_at = NOW()
	`
	if _, err := m.dbConnectionPool.ExecContext(ctx, query, studioID, key, enabled); err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("setting feature %s for studio %s: %w", key, studioID, err)
	}
	return nil
}

// GetStudioFeatures returns every feature with its plan default and the studio overrides applied.
func (m *FeatureModel) GetStudioFeatures(ctx context.Context, studio schema.Studio) ([]StudioFeature, error) {
	overrides := []featureOverride{}
	const query = `SELECT feature_key, is_enabled FROM studio_features WHERE studio_id = $1`
	if err := m.dbConnectionPool.SelectContext(ctx, &overrides, query, studio.ID); err != nil {
		return nil, fmt.Errorf("getting feature overrides of studio %s: %w", studio.ID, err)
	}
	return effectiveFeatures(studio.Plan, overrides), nil
}

func (m *FeatureModel) IsEnabled(ctx context.Context, studio schema.Studio, key FeatureKey) (bool, error) {
	features, err := m.GetStudioFeatures(ctx, studio)
	if err != nil {
		return false, err
	}
	for _, feature := range features {
		if feature.Key == key {
			return feature.Enabled, nil
		}
	}
	return false, nil
}

// effectiveFeatures applies overrides on top of the defaults of the plan.
func effectiveFeatures(plan schema.Plan, overrides []featureOverride) []StudioFeature {
	features := make([]StudioFeature, 0, len(FeatureDefinitions))
	for _, definition := range FeatureDefinitions {
		feature := StudioFeature{
			Key:     definition.Key,
			Name:    definition.Name,
			Enabled: slices.Contains(definition.DefaultPlans, plan),
		}
		for _, override := range overrides {
			if override.Key == definition.Key {
				feature.Enabled = override.IsEnabled
				feature.Overridden = true
			}
		}
		features = append(features, feature)
	}
	return features
}
