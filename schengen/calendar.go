/*
calendar.go - Schengen Area membership

PURPOSE:
  The single authoritative list of country codes that count toward the
  90/180-day rule. Every other component routes country checks through
  IsSchengen so the list is maintained in exactly one place.

MEMBERSHIP NOTES:
  - Switzerland, Norway, Iceland, and Liechtenstein are Schengen members
    despite not being EU members.
  - Ireland is EU but NOT Schengen; trips to Ireland never count.
  - Bulgaria and Romania joined fully in 2024/2025 and are included.
  - Unknown or malformed codes are simply "not Schengen" - never an error.
*/
package schengen

import "strings"

// schengenMembers holds ISO-3166 alpha-2 codes of the 29 Schengen states.
var schengenMembers = map[string]struct{}{
	"AT": {}, // Austria
	"BE": {}, // Belgium
	"BG": {}, // Bulgaria
	"CH": {}, // Switzerland (non-EU)
	"CZ": {}, // Czechia
	"DE": {}, // Germany
	"DK": {}, // Denmark
	"EE": {}, // Estonia
	"ES": {}, // Spain
	"FI": {}, // Finland
	"FR": {}, // France
	"GR": {}, // Greece
	"HR": {}, // Croatia
	"HU": {}, // Hungary
	"IS": {}, // Iceland (non-EU)
	"IT": {}, // Italy
	"LI": {}, // Liechtenstein (non-EU)
	"LT": {}, // Lithuania
	"LU": {}, // Luxembourg
	"LV": {}, // Latvia
	"MT": {}, // Malta
	"NL": {}, // Netherlands
	"NO": {}, // Norway (non-EU)
	"PL": {}, // Poland
	"PT": {}, // Portugal
	"RO": {}, // Romania
	"SE": {}, // Sweden
	"SI": {}, // Slovenia
	"SK": {}, // Slovakia
}

// IsSchengen reports whether a country code belongs to the Schengen Area.
// Matching is case-insensitive and tolerant of surrounding whitespace.
// Unrecognized codes return false; there is no error path.
func IsSchengen(code string) bool {
	_, ok := schengenMembers[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// MemberCodes returns the member codes in unspecified order, for display.
func MemberCodes() []string {
	codes := make([]string, 0, len(schengenMembers))
	for c := range schengenMembers {
		codes = append(codes, c)
	}
	return codes
}
