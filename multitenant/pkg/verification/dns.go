package verification

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/stellar/go-stellar-sdk/support/log"
)

// DNSResolver is the subset of *net.Resolver used by the DNS challenges.
type DNSResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
}

var _ DNSResolver = (*net.Resolver)(nil)

func checkTXTRecord(ctx context.Context, resolver DNSResolver, challenge Challenge) (bool, string) {
	records, err := resolver.LookupTXT(ctx, challenge.RecordName)
	if err != nil {
		return false, describeLookupError(ctx, err)
	}

	for _, record := range records {
		if strings.TrimSpace(record) == challenge.RecordValue {
			return true, ""
		}
	}
	if len(records) == 0 {
		return false, ReasonRecordNotFound
	}
	return false, ReasonValueMismatch
}

// checkCNAMERecord matches the record against the expected target. LookupCNAME returns the end of the alias chain, so
// when the target is itself an alias the record also matches if both names end on the same canonical name.
func checkCNAMERecord(ctx context.Context, resolver DNSResolver, challenge Challenge) (bool, string) {
	target, err := resolver.LookupCNAME(ctx, challenge.RecordName)
	if err != nil {
		return false, describeLookupError(ctx, err)
	}
	target = canonicalName(target)
	if target == challenge.RecordValue {
		return true, ""
	}

	expected, err := resolver.LookupCNAME(ctx, challenge.RecordValue)
	if err != nil {
		log.Ctx(ctx).Warnf("resolving the canonical name of %s: %v", challenge.RecordValue, err)
		return false, ReasonValueMismatch
	}
	if expected = canonicalName(expected); expected != challenge.RecordValue && expected == target {
		return true, ""
	}
	return false, ReasonValueMismatch
}

func canonicalName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".")
}

func describeLookupError(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return ReasonRecordNotFound
		case dnsErr.IsTimeout:
			return ReasonTimeout
		}
	}
	return fmt.Sprintf("lookup failed: %v", err)
}
