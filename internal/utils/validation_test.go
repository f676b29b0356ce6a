package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ValidatePhoneNumber(t *testing.T) {
	assert.EqualError(t, ValidatePhoneNumber(""), "phone number cannot be empty")
	assert.ErrorIs(t, ValidatePhoneNumber("14155555555"), ErrInvalidE164PhoneNumber)
	assert.ErrorIs(t, ValidatePhoneNumber("+1234567890"), ErrInvalidE164PhoneNumber)
	assert.NoError(t, ValidatePhoneNumber("+14155555555"))
}

func Test_ValidateEmail(t *testing.T) {
	assert.EqualError(t, ValidateEmail(""), "email cannot be empty")
	assert.EqualError(t, ValidateEmail("jane"), "the provided email is not valid")
	assert.NoError(t, ValidateEmail("jane@janesmithphoto.com"))
}

func Test_ValidateDNS(t *testing.T) {
	require.NoError(t, ValidateDNS("janesmithphoto.com"))
	require.EqualError(t, ValidateDNS("jane smith.com"), `"jane smith.com" is not a valid DNS name`)
}

func Test_ValidateSubdomainLabel(t *testing.T) {
	testCases := []struct {
		label   string
		wantErr string
	}{
		{label: "demo"},
		{label: "jane-smith"},
		{label: "a1"},
		{label: "", wantErr: "subdomain cannot be empty"},
		{label: "Demo", wantErr: `"Demo" is not a valid subdomain label`},
		{label: "-demo", wantErr: `"-demo" is not a valid subdomain label`},
		{label: "demo.io", wantErr: `"demo.io" is not a valid subdomain label`},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			err := ValidateSubdomainLabel(tc.label)
			if tc.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.EqualError(t, err, tc.wantErr)
			}
		})
	}
}
