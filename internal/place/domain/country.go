package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// GeoNames uses XK for Kosovo, which ISO leaves user-assigned.
var userAssignedCountries = map[string]struct{}{"XK": {}}

// NormalizeCountry upper-cases raw and reports whether it is an ISO 3166-1
// alpha-2 country code.
func NormalizeCountry(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return code, false
	}
	if _, ok := userAssignedCountries[code]; ok {
		return code, true
	}
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return code, false
	}
	return code, true
}
