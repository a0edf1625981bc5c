// Package mains detects local electrical mains frequency from system timezone
// and the broadcast video frame rate that goes with it.
package mains

import (
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// Frequency returns the local mains frequency in Hz (50 or 60).
// Returns 50Hz if detection fails or timezone is ambiguous.
func Frequency() int {
	timezone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return 50 // Default fallback
	}
	return FrequencyForTimezone(timezone)
}

// Regional broadcast frame rates. 50Hz regions use PAL/SECAM timing,
// 60Hz regions use NTSC timing.
const (
	FrameRate50Hz = 25.0
	FrameRate60Hz = 30000.0 / 1001.0
)

// FrameRate returns the broadcast frame rate for the local mains frequency.
// Used when a video container does not report a frame rate.
func FrameRate() float64 {
	return FrameRateForFrequency(Frequency())
}

// FrameRateForFrequency maps a mains frequency in Hz to a frame rate.
func FrameRateForFrequency(hz int) float64 {
	if hz == 60 {
		return FrameRate60Hz
	}
	return FrameRate50Hz
}

// FrequencyForTimezone returns the mains frequency for a given IANA timezone.
// Exported for testing with specific timezones.
func FrequencyForTimezone(timezone string) int {
	// UTC and GMT have no country; default to 50Hz
	if timezone == "UTC" || timezone == "GMT" || strings.HasPrefix(timezone, "Etc/") {
		return 50
	}

	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return 50
	}

	country, err := tzMap.GetCountry(timezone)
	if err != nil {
		return 50
	}

	return frequencyForCountry(country)
}

// frequencyForCountry returns the mains frequency for a country name.
// Returns 50Hz for unknown countries (more common globally).
func frequencyForCountry(country string) int {
	// Japan special case: split 50/60Hz by region
	// Default to 50Hz (Tokyo region is most populous)
	if country == "Japan" {
		return 50
	}

	if hz60Countries[country] {
		return 60
	}
	return 50
}

// hz60Countries lists countries using 60Hz mains power.
// All other countries use 50Hz.
// Source: https://en.wikipedia.org/wiki/Mains_electricity_by_country
var hz60Countries = map[string]bool{
	// North America
	"United States": true,
	"Canada":        true,
	"Mexico":        true,

	// Central America
	"Belize":      true,
	"Costa Rica":  true,
	"El Salvador": true,
	"Guatemala":   true,
	"Honduras":    true,
	"Nicaragua":   true,
	"Panama":      true,

	// Caribbean
	"Bahamas":             true,
	"Barbados":            true,
	"Cayman Islands":      true,
	"Cuba":                true,
	"Dominican Republic":  true,
	"Haiti":               true,
	"Jamaica":             true,
	"Puerto Rico":         true,
	"Trinidad and Tobago": true,
	"U.S. Virgin Islands": true,

	// South America (partial, most use 50Hz)
	"Brazil":    true, // Note: Brazil has both 50Hz and 60Hz regions; 60Hz predominant
	"Colombia":  true,
	"Ecuador":   true,
	"Guyana":    true,
	"Peru":      true,
	"Suriname":  true,
	"Venezuela": true,

	// Asia (partial)
	"South Korea":  true,
	"Taiwan":       true,
	"Philippines":  true,
	"Saudi Arabia": true,

	// Pacific
	"Guam":             true,
	"American Samoa":   true,
	"Marshall Islands": true,
	"Micronesia":       true,
	"Palau":            true,
}
