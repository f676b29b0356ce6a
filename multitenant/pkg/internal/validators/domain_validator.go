package validators

import (
	"fmt"
	"strings"

	"github.com/photoproof/photoproof-backend/internal/serve/validators"
	"github.com/photoproof/photoproof-backend/internal/utils"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

var challengeMethods = []schema.VerificationMethod{
	schema.DNSTXTVerificationMethod,
	schema.DNSCNAMEVerificationMethod,
	schema.FileVerificationMethod,
}

type DomainRequest struct {
	Hostname  string `json:"hostname"`
	IsPrimary bool   `json:"is_primary"`
}

type VerificationRequest struct {
	Method schema.VerificationMethod `json:"method"`
}

type DomainValidator struct {
	*validators.Validator
}

func NewDomainValidator() *DomainValidator {
	return &DomainValidator{Validator: validators.NewValidator()}
}

func (dv *DomainValidator) ValidateDomainRequest(reqBody *DomainRequest) *DomainRequest {
	dv.Check(reqBody != nil, "body", "request body is empty")
	if dv.HasErrors() {
		return nil
	}

	reqBody.Hostname = strings.TrimSpace(reqBody.Hostname)
	dv.Check(reqBody.Hostname != "", "hostname", "hostname is required")
	if reqBody.Hostname != "" {
		dv.CheckError(utils.ValidateDNS(utils.NormalizeHost(reqBody.Hostname)), "hostname", "invalid hostname")
	}

	if dv.HasErrors() {
		return nil
	}
	return reqBody
}

func (dv *DomainValidator) ValidateVerificationRequest(reqBody *VerificationRequest) *VerificationRequest {
	dv.Check(reqBody != nil, "body", "request body is empty")
	if dv.HasErrors() {
		return nil
	}

	reqBody.Method = schema.VerificationMethod(strings.ToLower(strings.TrimSpace(string(reqBody.Method))))
	dv.Check(reqBody.Method.IsChallengeMethod(), "method", fmt.Sprintf("invalid verification method. Expected one of these values: %s", challengeMethods))

	if dv.HasErrors() {
		return nil
	}
	return reqBody
}
