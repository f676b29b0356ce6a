package verification

import (
	"fmt"

	"github.com/photoproof/photoproof-backend/internal/utils"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

const (
	TXTRecordLabel    = "_photoproof-challenge"
	TXTValuePrefix    = "photoproof-verification="
	CNAMETargetLabel  = "verify"
	WellKnownFilePath = "/.well-known/photoproof-verification.txt"

	cnameTokenPrefixLength = 16
)

// Challenge is the proof a studio must publish to show it controls a hostname. It is derived from the binding token and
// is never stored.
type Challenge struct {
	BindingID    string                    `json:"binding_id"`
	Hostname     string                    `json:"hostname"`
	Method       schema.VerificationMethod `json:"method"`
	RecordType   string                    `json:"record_type,omitempty"`
	RecordName   string                    `json:"record_name,omitempty"`
	RecordValue  string                    `json:"record_value,omitempty"`
	URL          string                    `json:"url,omitempty"`
	FileContent  string                    `json:"file_content,omitempty"`
	Instructions string                    `json:"instructions"`
}

func NewChallenge(binding schema.DomainBinding, method schema.VerificationMethod, platformDomain string) (*Challenge, error) {
	if binding.VerificationToken == "" {
		return nil, fmt.Errorf("binding %s has no verification token", binding.ID)
	}
	if len(binding.VerificationToken) < cnameTokenPrefixLength {
		return nil, fmt.Errorf("binding %s has a verification token that is too short", binding.ID)
	}

	challenge := Challenge{
		BindingID: binding.ID,
		Hostname:  binding.Hostname,
		Method:    method,
	}

	switch method {
	case schema.DNSTXTVerificationMethod:
		challenge.RecordType = "TXT"
		challenge.RecordName = fmt.Sprintf("%s.%s", TXTRecordLabel, binding.Hostname)
		challenge.RecordValue = TXTValuePrefix + binding.VerificationToken
		challenge.Instructions = fmt.Sprintf("Create a TXT record named %s with the value %s.", challenge.RecordName, challenge.RecordValue)
	case schema.DNSCNAMEVerificationMethod:
		platformDomain = utils.NormalizeHost(platformDomain)
		if platformDomain == "" {
			return nil, fmt.Errorf("platform domain is required for the %s method", method)
		}
		challenge.RecordType = "CNAME"
		challenge.RecordName = fmt.Sprintf("%s.%s", binding.VerificationToken[:cnameTokenPrefixLength], binding.Hostname)
		challenge.RecordValue = fmt.Sprintf("%s.%s", CNAMETargetLabel, platformDomain)
		challenge.Instructions = fmt.Sprintf("Create a CNAME record named %s pointing to %s. The record is checked after following the whole alias chain, so it must not point anywhere else first.", challenge.RecordName, challenge.RecordValue)
	case schema.FileVerificationMethod:
		challenge.URL = fmt.Sprintf("https://%s%s", binding.Hostname, WellKnownFilePath)
		challenge.FileContent = binding.VerificationToken
		challenge.Instructions = fmt.Sprintf("Serve a plain text file at %s whose only content is %s.", challenge.URL, challenge.FileContent)
	default:
		return nil, fmt.Errorf("%q is not a challenge verification method", method)
	}

	return &challenge, nil
}
