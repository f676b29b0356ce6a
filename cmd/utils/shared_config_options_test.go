package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_ResolutionOptions(t *testing.T) {
	opts := ResolutionOptions{ResolutionCacheTTLSeconds: 5}
	assert.NoError(t, opts.ValidateFlags())
	assert.Equal(t, 5*time.Second, opts.ResolutionCacheTTL())

	opts.ResolutionCacheTTLSeconds = -1
	assert.EqualError(t, opts.ValidateFlags(), "resolution-cache-ttl-seconds cannot be negative, got -1")
}

func Test_DomainVerificationOptions_ValidateFlags(t *testing.T) {
	testCases := []struct {
		name    string
		opts    DomainVerificationOptions
		wantErr string
	}{
		{
			name:    "timeout must be positive",
			opts:    DomainVerificationOptions{VerificationJobIntervalSeconds: 300},
			wantErr: "verification-timeout-seconds must be positive, got 0",
		},
		{
			name:    "interval has a floor",
			opts:    DomainVerificationOptions{VerificationTimeoutSeconds: 5, VerificationJobIntervalSeconds: 1},
			wantErr: "verification-job-interval-seconds must be at least 5, got 1",
		},
		{
			name: "valid",
			opts: DomainVerificationOptions{VerificationTimeoutSeconds: 5, VerificationJobIntervalSeconds: 300},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.ValidateFlags()
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 5*time.Second, tc.opts.CheckTimeout())
			}
		})
	}
}
