package schema

import (
	"slices"
	"time"
)

// DomainBinding is the claim that a fully qualified hostname belongs to a studio. Only verified bindings resolve
// requests.
type DomainBinding struct {
	ID                 string              `json:"id" db:"id"`
	Hostname           string              `json:"hostname" db:"hostname"`
	StudioID           string              `json:"studio_id" db:"studio_id"`
	IsPrimary          bool                `json:"is_primary" db:"is_primary"`
	Status             BindingStatus       `json:"status" db:"status"`
	VerificationMethod *VerificationMethod `json:"verification_method" db:"verification_method"`
	VerificationToken  string              `json:"-" db:"verification_token"`
	VerifiedAt         *time.Time          `json:"verified_at" db:"verified_at"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`
}

func (b DomainBinding) IsVerified() bool {
	return b.Status == VerifiedBindingStatus
}

type BindingStatus string

const (
	UnverifiedBindingStatus BindingStatus = "unverified"
	VerifiedBindingStatus   BindingStatus = "verified"
)

type VerificationMethod string

const (
	DNSTXTVerificationMethod   VerificationMethod = "dns_txt"
	DNSCNAMEVerificationMethod VerificationMethod = "dns_cname"
	FileVerificationMethod     VerificationMethod = "file"
	// ManualVerificationMethod is recorded when an administrator force-verifies a binding.
	ManualVerificationMethod VerificationMethod = "manual"
)

// IsChallengeMethod reports whether the method can be proven by the claimant through a published challenge.
func (m VerificationMethod) IsChallengeMethod() bool {
	return slices.Contains([]VerificationMethod{DNSTXTVerificationMethod, DNSCNAMEVerificationMethod, FileVerificationMethod}, m)
}

func (m VerificationMethod) IsValid() bool {
	return m.IsChallengeMethod() || m == ManualVerificationMethod
}
