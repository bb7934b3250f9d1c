// Package validate holds the pure input checks the checkout flow runs
// before touching any state: Bangladeshi mobile number validation and a
// shallow shipping-address heuristic.
package validate

import "strings"

// PhoneNumber reports whether s is a valid Bangladeshi mobile number:
// the 11-digit local form 01[3-9]XXXXXXXX, optionally prefixed with the
// country code as "+88" or "88".
func PhoneNumber(s string) bool {
	return normalizePhone(s) != ""
}

// FormatPhoneNumber canonicalizes a valid number to the local 11-digit
// form used as the identity and rate-limit key. Invalid input is returned
// unchanged; callers must validate first before treating the result as
// canonical.
func FormatPhoneNumber(s string) string {
	if local := normalizePhone(s); local != "" {
		return local
	}
	return s
}

// Address accepts any address text with at least 10 non-whitespace-trimmed
// characters. A guard against empty or garbage input, not real address
// verification.
func Address(s string) bool {
	return len(strings.TrimSpace(s)) >= 10
}

// normalizePhone returns the local 11-digit form, or "" if invalid.
func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	s = strings.TrimPrefix(s, "88")

	if len(s) != 11 {
		return ""
	}
	if s[0] != '0' || s[1] != '1' {
		return ""
	}
	// Operator prefixes run 013 through 019.
	if s[2] < '3' || s[2] > '9' {
		return ""
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return ""
		}
	}
	return s
}
