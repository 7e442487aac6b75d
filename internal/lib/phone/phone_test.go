package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSenegal(t *testing.T) {
	cases := []struct {
		input string
		valid bool
	}{
		{"+221771234567", true},
		{"221771234567", true},
		{"00221771234567", true},
		{"77 123 45 67", true},
		{"+221 78 123 45 67", true},
		{"70 123 45 67", true},
		{"+221111234567", false}, // 1x is not a mobile prefix
		{"7712345", false},       // too short
		{"771234567890", false},  // too long
		{"", false},
		{"bonjour", false},
	}
	for _, tc := range cases {
		res := Validate(tc.input, "SN")
		assert.Equal(t, tc.valid, res.IsValid, "input %q", tc.input)
		if !tc.valid {
			assert.NotEmpty(t, res.Error)
		}
	}
}

func TestValidateOtherCountries(t *testing.T) {
	assert.True(t, Validate("+237 6 71 23 45 67", "CM").IsValid)
	assert.False(t, Validate("+237 1 71 23 45 67", "CM").IsValid)
	assert.True(t, Validate("+229 21 12 34 56", "BJ").IsValid)
}

func TestValidateUnknownCountryFallsBackToGeneric(t *testing.T) {
	assert.True(t, Validate("+4915112345678", "DE").IsValid)
	assert.False(t, Validate("123", "DE").IsValid)
}

func TestFormat(t *testing.T) {
	f := Format("77 123 45 67", "SN")
	assert.Equal(t, "+221771234567", f.International)
	assert.Equal(t, "771234567", f.Local)

	f = Format("+221771234567", "SN")
	assert.Equal(t, "+221771234567", f.International)
	assert.Equal(t, "771234567", f.Local)

	f = Format("00221771234567", "SN")
	assert.Equal(t, "+221771234567", f.International)
}
