// Package phone validates and formats customer phone numbers with a
// per-country pattern table. Unknown countries fall back to a generic
// international check.
package phone

import (
	"fmt"
	"regexp"
	"strings"
)

type countryRule struct {
	dialCode string
	pattern  *regexp.Regexp // national significant number, digits only
}

// Supported countries. The national pattern excludes the dial code.
var countries = map[string]countryRule{
	"SN": {dialCode: "221", pattern: regexp.MustCompile(`^7[05678][0-9]{7}$`)},
	"CI": {dialCode: "225", pattern: regexp.MustCompile(`^[0-9]{10}$`)},
	"BJ": {dialCode: "229", pattern: regexp.MustCompile(`^[0-9]{8}$`)},
	"CM": {dialCode: "237", pattern: regexp.MustCompile(`^6[0-9]{8}$`)},
	"ML": {dialCode: "223", pattern: regexp.MustCompile(`^[0-9]{8}$`)},
}

var genericPattern = regexp.MustCompile(`^[0-9]{8,15}$`)

// Result is the validation verdict for a raw phone input.
type Result struct {
	IsValid bool
	Error   string
}

// Formatted is the normalized pair of renderings of a valid number.
type Formatted struct {
	International string // +221771234567
	Local         string // 771234567
}

func digits(raw string) string {
	var sb strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// national strips the country dial code when present.
func national(raw, dialCode string) string {
	d := digits(raw)
	d = strings.TrimPrefix(d, "00"+dialCode)
	return strings.TrimPrefix(d, dialCode)
}

// Validate checks raw input against the country's pattern.
func Validate(raw, countryCode string) Result {
	rule, ok := countries[strings.ToUpper(countryCode)]
	if !ok {
		if genericPattern.MatchString(digits(raw)) {
			return Result{IsValid: true}
		}
		return Result{IsValid: false, Error: "numéro de téléphone invalide"}
	}
	nat := national(raw, rule.dialCode)
	if !rule.pattern.MatchString(nat) {
		return Result{
			IsValid: false,
			Error:   fmt.Sprintf("numéro invalide pour l'indicatif +%s", rule.dialCode),
		}
	}
	return Result{IsValid: true}
}

// Format normalizes a valid number into international and local forms.
// Callers validate first; Format on invalid input returns best effort.
func Format(raw, countryCode string) Formatted {
	rule, ok := countries[strings.ToUpper(countryCode)]
	if !ok {
		d := digits(raw)
		return Formatted{International: "+" + d, Local: d}
	}
	nat := national(raw, rule.dialCode)
	return Formatted{
		International: "+" + rule.dialCode + nat,
		Local:         nat,
	}
}
