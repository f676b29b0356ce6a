package utils

import (
	"crypto/ecdsa"
	"fmt"
	"net/url"
	"strings"

	jwtgo "github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/internal/crashtracker"
	"github.com/photoproof/photoproof-backend/internal/monitor"
	"github.com/photoproof/photoproof-backend/internal/utils"
)

const minECKeyBitSize = 256

func SetConfigOptionMetricType(co *config.ConfigOption) error {
	metricType := viper.GetString(co.Name)

	metricTypeParsed, err := monitor.ParseMetricType(metricType)
	if err != nil {
		return fmt.Errorf("couldn't parse metric type: %w", err)
	}

	*(co.ConfigKey.(*monitor.MetricType)) = metricTypeParsed
	return nil
}

func SetConfigOptionCrashTrackerType(co *config.ConfigOption) error {
	ctType := viper.GetString(co.Name)

	ctTypeParsed, err := crashtracker.ParseCrashTrackerType(ctType)
	if err != nil {
		return fmt.Errorf("couldn't parse crash tracker type: %w", err)
	}

	*(co.ConfigKey.(*crashtracker.CrashTrackerType)) = ctTypeParsed
	return nil
}

func SetConfigOptionLogLevel(co *config.ConfigOption) error {
	logLevelStr := viper.GetString(co.Name)
	logLevel, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return fmt.Errorf("couldn't parse log level: %w", err)
	}

	key, ok := co.ConfigKey.(*logrus.Level)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T", co.ConfigKey)
	}
	*key = logLevel

	if config.IsExplicitlySet(co) {
		log.Debugf("Setting log level to: %q", logLevel)
		log.DefaultLogger.SetLevel(*key)
	} else {
		log.Debugf("Using default log level: %q", logLevel)
	}
	return nil
}

// SetConfigOptionEC256PublicKey parses the config option incoming value and validates if it is a valid EC256PublicKey.
func SetConfigOptionEC256PublicKey(co *config.ConfigOption) error {
	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("not a valid EC256PublicKey: the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}

	// literal \n are accepted so the PEM fits in a single env var
	publicKey := strings.ReplaceAll(viper.GetString(co.Name), `\n`, "\n")

	parsed, err := jwtgo.ParseECPublicKeyFromPEM([]byte(publicKey))
	if err != nil {
		return fmt.Errorf("parsing EC256PublicKey: %w", err)
	}
	if err = validateECKeyStrength(parsed); err != nil {
		return fmt.Errorf("parsing EC256PublicKey: %w", err)
	}

	*key = publicKey
	return nil
}

// SetConfigOptionEC256PrivateKey parses the config option incoming value and validates if it is a valid EC256PrivateKey.
// An empty value is accepted, in which case the server does not issue tokens.
func SetConfigOptionEC256PrivateKey(co *config.ConfigOption) error {
	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("not a valid EC256PrivateKey: the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}

	privateKey := strings.ReplaceAll(viper.GetString(co.Name), `\n`, "\n")
	if privateKey == "" {
		*key = ""
		return nil
	}

	parsed, err := jwtgo.ParseECPrivateKeyFromPEM([]byte(privateKey))
	if err != nil {
		return fmt.Errorf("parsing EC256PrivateKey: %w", err)
	}
	if err = validateECKeyStrength(&parsed.PublicKey); err != nil {
		return fmt.Errorf("parsing EC256PrivateKey: %w", err)
	}

	*key = privateKey
	return nil
}

func validateECKeyStrength(publicKey *ecdsa.PublicKey) error {
	if bitSize := publicKey.Curve.Params().BitSize; bitSize < minECKeyBitSize {
		return fmt.Errorf("the key must be at least as strong as prime256v1 (P-256), got %d bits", bitSize)
	}
	return nil
}

func SetCorsAllowedOrigins(co *config.ConfigOption) error {
	corsAllowedOriginsOptions := viper.GetString(co.Name)

	if corsAllowedOriginsOptions == "" {
		return fmt.Errorf("cors allowed addresses cannot be empty")
	}

	corsAllowedOrigins := strings.Split(corsAllowedOriginsOptions, ",")

	for _, address := range corsAllowedOrigins {
		if address == "*" {
			log.Warn(`The value "*" for the CORS Allowed Origins is too permissive and not recommended.`)
			continue
		}
		_, err := url.ParseRequestURI(address)
		if err != nil {
			return fmt.Errorf("error parsing cors addresses: %w", err)
		}
	}

	key, ok := co.ConfigKey.(*[]string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string slice, but got a %T instead", co.ConfigKey)
	}
	*key = corsAllowedOrigins

	return nil
}

// SetConfigOptionPlatformDomain normalizes the platform apex domain, e.g. "PhotoProof.app." becomes "photoproof.app".
func SetConfigOptionPlatformDomain(co *config.ConfigOption) error {
	raw := strings.TrimSpace(viper.GetString(co.Name))
	if raw == "" {
		return fmt.Errorf("platform domain cannot be empty")
	}
	platformDomain := utils.NormalizeHost(raw)
	if err := utils.ValidateDNS(platformDomain); err != nil {
		return fmt.Errorf("invalid platform domain %q: %w", raw, err)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}
	*key = platformDomain
	return nil
}

func SetConfigOptionSubdomainLabel(co *config.ConfigOption) error {
	label := strings.ToLower(strings.TrimSpace(viper.GetString(co.Name)))
	if err := utils.ValidateSubdomainLabel(label); err != nil {
		return fmt.Errorf("invalid subdomain label %q: %w", label, err)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}
	*key = label
	return nil
}

// SetConfigOptionPathPrefixes parses a comma separated list of URL path prefixes. Every prefix must start with "/".
func SetConfigOptionPathPrefixes(co *config.ConfigOption) error {
	key, ok := co.ConfigKey.(*[]string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string slice, but got a %T instead", co.ConfigKey)
	}

	raw := viper.GetString(co.Name)
	if strings.TrimSpace(raw) == "" {
		*key = nil
		return nil
	}

	var prefixes []string
	for _, prefix := range strings.Split(raw, ",") {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		if !strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("path prefix %q must start with /", prefix)
		}
		prefixes = append(prefixes, prefix)
	}
	*key = prefixes
	return nil
}
