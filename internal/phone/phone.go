// Package phone validates and normalizes raw phone strings into E.164.
// International numbers are accepted; numbers without a country code are
// parsed with a GB default region.
package phone

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "GB"

// Normalizer is the contract consumed by the ingestion pipeline.
type Normalizer interface {
	// Normalize returns the E.164 form of raw and whether it is valid.
	// On failure the original raw string is returned unchanged.
	Normalize(raw string) (string, bool)
}

// E164Normalizer is the production Normalizer.
type E164Normalizer struct {
	// Region overrides the default region for local-format numbers.
	Region string
}

func (n E164Normalizer) region() string {
	if n.Region != "" {
		return n.Region
	}
	return defaultRegion
}

func (n E164Normalizer) Normalize(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return raw, false
	}

	cleaned = repairScientificNotation(cleaned)

	// All digits, long, and not local-format: assume a missing + prefix.
	if isAllDigits(cleaned) && len(cleaned) > 10 && !strings.HasPrefix(cleaned, "0") {
		cleaned = "+" + cleaned
	}

	parsed, err := phonenumbers.Parse(cleaned, n.region())
	if err != nil {
		return raw, false
	}
	if !phonenumbers.IsPossibleNumber(parsed) || !phonenumbers.IsValidNumber(parsed) {
		return raw, false
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), true
}

// FormatForDisplay renders an E.164 number in national format, returning
// the input unchanged when it cannot be parsed.
func FormatForDisplay(e164 string) string {
	parsed, err := phonenumbers.Parse(e164, defaultRegion)
	if err != nil {
		return e164
	}
	return phonenumbers.Format(parsed, phonenumbers.NATIONAL)
}

// repairScientificNotation undoes Excel's habit of exporting long numbers
// as scientific notation, e.g. "9.71585E+11".
func repairScientificNotation(s string) string {
	lower := strings.ToLower(s)
	if !strings.Contains(lower, "e") || !strings.Contains(s, "+") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatInt(int64(f), 10)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
