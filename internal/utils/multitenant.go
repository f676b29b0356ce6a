package utils

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

const maxHostnameLength = 253

var (
	ErrInvalidCustomDomain   = errors.New("invalid custom domain")
	ErrPlatformOwnedHostname = errors.New("hostname belongs to the platform domain")
)

// NormalizeHost turns the host presented by the transport layer into the canonical lookup key: lower-cased, without
// port and without the trailing dot. Unicode hostnames are converted to their ASCII form. Empty or malformed input
// returns "".
func NormalizeHost(rawHost string) string {
	host := strings.TrimSpace(rawHost)
	if host == "" {
		return ""
	}

	// Remove port number if present (e.g. acme.photoproof.io:8000 -> acme.photoproof.io, [::1]:8000 -> ::1)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}

	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return ""
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}

	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return ""
		}
	}

	asciiHost, err := idna.Lookup.ToASCII(host)
	if err != nil || len(asciiHost) > maxHostnameLength {
		return ""
	}

	return asciiHost
}

// ExtractSubdomainLabel returns the first label of an already normalized host. Hosts without a '.' separator have no
// subdomain label.
func ExtractSubdomainLabel(host string) (string, bool) {
	label, _, found := strings.Cut(host, ".")
	if !found || label == "" {
		return "", false
	}
	return label, true
}

// IsLoopbackHost reports whether the normalized host points at the local machine.
func IsLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// IsSameOrSubdomainOf reports whether host equals parent or sits below it. Both values must be normalized.
func IsSameOrSubdomainOf(host, parent string) bool {
	if host == "" || parent == "" {
		return false
	}
	return host == parent || strings.HasSuffix(host, "."+parent)
}

// ValidateCustomDomain checks that a normalized hostname can be claimed as a custom domain: it must be a DNS name below
// a registrable domain and must not live under the platform domain, where studios are addressed by subdomain label.
func ValidateCustomDomain(host, platformDomain string) error {
	if err := ValidateDNS(host); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCustomDomain, err)
	}

	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return fmt.Errorf("%w: %q is not a fully qualified domain name", ErrInvalidCustomDomain, host)
	}

	if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
		return fmt.Errorf("%w: %q is a public suffix", ErrInvalidCustomDomain, host)
	}

	if IsSameOrSubdomainOf(host, NormalizeHost(platformDomain)) {
		return fmt.Errorf("%w: %q", ErrPlatformOwnedHostname, host)
	}

	return nil
}
