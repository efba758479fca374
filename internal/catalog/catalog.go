// Package catalog holds the country reference data used to validate import
// rows: which countries the billing platform refuses, which require a postal
// code, and the per-country postal code formats.
//
// The catalog is immutable once constructed. Validation logic receives a
// *Catalog rather than reading package-level literals, so the rule set can
// be swapped or extended without touching the validator.
package catalog

import (
	"regexp"
	"strings"
)

// Catalog is an immutable set of country rules.
type Catalog struct {
	unsupported    map[string]struct{}
	postalRequired map[string]struct{}
}

// Built-in rule data. Unsupported countries are those the billing platform
// rejects unconditionally (sanctioned territories).
var (
	defaultUnsupported = []string{
		"RU", "BY", "CU", "IR", "KP", "SD", "SY",
	}

	defaultPostalRequired = []string{
		"US", "CA", "GB", "AU", "DE", "FR", "IT", "ES", "NL", "IN",
	}
)

// Postal code formats. US is exactly five digits; CA is letter-digit-letter
// digit-letter-digit with an optional internal space. Every other country
// that requires a postal code only needs it to be non-empty.
var (
	usZipPattern    = regexp.MustCompile(`^[0-9]{5}$`)
	caPostalPattern = regexp.MustCompile(`^[A-Za-z][0-9][A-Za-z] ?[0-9][A-Za-z][0-9]$`)
)

// New builds a catalog from explicit country lists. Codes are matched
// case-insensitively; they are normalized to upper case internally.
func New(unsupported, postalRequired []string) *Catalog {
	c := &Catalog{
		unsupported:    make(map[string]struct{}, len(unsupported)),
		postalRequired: make(map[string]struct{}, len(postalRequired)),
	}
	for _, code := range unsupported {
		c.unsupported[strings.ToUpper(code)] = struct{}{}
	}
	for _, code := range postalRequired {
		c.postalRequired[strings.ToUpper(code)] = struct{}{}
	}
	return c
}

// Default returns the built-in rule set.
func Default() *Catalog {
	return New(defaultUnsupported, defaultPostalRequired)
}

// CountrySupported reports whether the billing platform accepts customers
// in the given country.
func (c *Catalog) CountrySupported(code string) bool {
	_, blocked := c.unsupported[strings.ToUpper(code)]
	return !blocked
}

// PostalCodeRequired reports whether the given country mandates a postal code.
func (c *Catalog) PostalCodeRequired(code string) bool {
	_, required := c.postalRequired[strings.ToUpper(code)]
	return required
}

// ValidPostalCode checks a postal code against the country's format.
// Countries without a specific format only require a non-empty value.
func (c *Catalog) ValidPostalCode(code, postal string) bool {
	switch strings.ToUpper(code) {
	case "US":
		return usZipPattern.MatchString(postal)
	case "CA":
		return caPostalPattern.MatchString(postal)
	default:
		return strings.TrimSpace(postal) != ""
	}
}
