package utils

import (
	"fmt"
	"go/types"
	"time"

	"github.com/stellar/go-stellar-sdk/support/config"

	"github.com/photoproof/photoproof-backend/internal/crashtracker"
	"github.com/photoproof/photoproof-backend/internal/scheduler/jobs"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/verification"
)

// ResolutionOptions tunes how the public server maps hostnames to studios.
type ResolutionOptions struct {
	EnableLocalFallback       bool
	LocalFallbackSubdomain    string
	ResolutionCacheTTLSeconds int
	ExemptPathPrefixes        []string
}

func (o ResolutionOptions) ResolutionCacheTTL() time.Duration {
	return time.Duration(o.ResolutionCacheTTLSeconds) * time.Second
}

func (o ResolutionOptions) ValidateFlags() error {
	if o.ResolutionCacheTTLSeconds < 0 {
		return fmt.Errorf("resolution-cache-ttl-seconds cannot be negative, got %d", o.ResolutionCacheTTLSeconds)
	}
	return nil
}

func ResolutionConfigOptions(opts *ResolutionOptions) []*config.ConfigOption {
	return []*config.ConfigOption{
		{
			Name:        "enable-local-fallback",
			Usage:       "Resolve localhost and loopback hosts to the studio owning the local fallback subdomain. Never enable it in production.",
			OptType:     types.Bool,
			ConfigKey:   &opts.EnableLocalFallback,
			FlagDefault: false,
			Required:    false,
		},
		{
			Name:           "local-fallback-subdomain",
			Usage:          "Subdomain label of the studio served on loopback hosts when the local fallback is enabled.",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionSubdomainLabel,
			ConfigKey:      &opts.LocalFallbackSubdomain,
			FlagDefault:    tenant.DefaultLocalFallbackSubdomain,
			Required:       false,
		},
		{
			Name:        "resolution-cache-ttl-seconds",
			Usage:       "How long, in seconds, a hostname lookup is cached by the public server. Use 0 to disable the cache.",
			OptType:     types.Int,
			ConfigKey:   &opts.ResolutionCacheTTLSeconds,
			FlagDefault: int(tenant.DefaultResolutionCacheTTL / time.Second),
			Required:    false,
		},
		{
			Name:           "exempt-path-prefixes",
			Usage:          `Additional URL path prefixes served without a studio, separated by ",". Example: "/static,/.well-known".`,
			OptType:        types.String,
			CustomSetValue: SetConfigOptionPathPrefixes,
			ConfigKey:      &opts.ExemptPathPrefixes,
			Required:       false,
		},
	}
}

// DomainVerificationOptions tunes the custom domain verification checks.
type DomainVerificationOptions struct {
	VerificationTimeoutSeconds     int
	VerificationJobIntervalSeconds int
}

func (o DomainVerificationOptions) CheckTimeout() time.Duration {
	return time.Duration(o.VerificationTimeoutSeconds) * time.Second
}

func (o DomainVerificationOptions) ValidateFlags() error {
	if o.VerificationTimeoutSeconds <= 0 {
		return fmt.Errorf("verification-timeout-seconds must be positive, got %d", o.VerificationTimeoutSeconds)
	}
	if o.VerificationJobIntervalSeconds < jobs.DefaultMinimumJobIntervalSeconds {
		return fmt.Errorf("verification-job-interval-seconds must be at least %d, got %d", jobs.DefaultMinimumJobIntervalSeconds, o.VerificationJobIntervalSeconds)
	}
	return nil
}

func DomainVerificationConfigOptions(opts *DomainVerificationOptions) []*config.ConfigOption {
	return []*config.ConfigOption{
		{
			Name:        "verification-timeout-seconds",
			Usage:       "Upper bound, in seconds, of a single DNS or file verification check.",
			OptType:     types.Int,
			ConfigKey:   &opts.VerificationTimeoutSeconds,
			FlagDefault: int(verification.DefaultCheckTimeout / time.Second),
			Required:    false,
		},
		{
			Name:        "verification-job-interval-seconds",
			Usage:       "Interval, in seconds, at which pending custom domains are checked again in the background.",
			OptType:     types.Int,
			ConfigKey:   &opts.VerificationJobIntervalSeconds,
			FlagDefault: jobs.DefaultDomainVerificationJobIntervalSeconds,
			Required:    false,
		},
	}
}

func CrashTrackerTypeConfigOption(targetPointer *crashtracker.CrashTrackerType) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "crash-tracker-type",
		Usage:          `Crash tracker type. Options: "SENTRY", "DRY_RUN"`,
		OptType:        types.String,
		CustomSetValue: SetConfigOptionCrashTrackerType,
		ConfigKey:      targetPointer,
		FlagDefault:    string(crashtracker.CrashTrackerTypeDryRun),
		Required:       true,
	}
}
