package domain

import (
	"regexp"
	"strings"
)

var merchantRefPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// NormalizeMSISDN folds a subscriber number into the local 0-prefixed form
// the upstreams expect: a leading "+" is stripped and a leading 234 country
// code becomes 0.
func NormalizeMSISDN(msisdn string) string {
	s := strings.TrimSpace(msisdn)
	s = strings.TrimPrefix(s, "+")
	if strings.HasPrefix(s, "234") && len(s) > 3 {
		s = "0" + s[3:]
	}
	return s
}

// ValidMerchantRef reports whether ref contains only letters, digits and
// hyphens. The reference doubles as an upstream request ID, so the charset
// is deliberately narrow.
func ValidMerchantRef(ref string) bool {
	return merchantRefPattern.MatchString(ref)
}
