package importer

// validate.go is the pre-flight rule engine. Every check on a row is
// evaluated independently (no short-circuit), so one row can report several
// problems at once. Error order is stable: rows in file order, checks in
// the order defined here.

import (
	"fmt"
	"regexp"
	"time"

	"github.com/paddleops/bulkimport/internal/catalog"
)

// timestampLayout is the only accepted period-bound format: strict UTC
// ISO-8601 with a literal Z and whole seconds.
const timestampLayout = "2006-01-02T15:04:05Z"

// priceIDPattern is the billing platform's price identifier shape.
var priceIDPattern = regexp.MustCompile(`^pri_[a-z0-9]+$`)

// countryCodePattern is a 2-letter ISO 3166-1 alpha-2 code.
var countryCodePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)

// RowValidator checks rows against the country catalog and a fixed "now".
// Pinning now at construction keeps a run's past/future checks consistent
// across all rows.
type RowValidator struct {
	rules *catalog.Catalog
	now   time.Time
}

// NewRowValidator creates a validator using the given rule catalog.
func NewRowValidator(rules *catalog.Catalog, now time.Time) *RowValidator {
	return &RowValidator{rules: rules, now: now}
}

// ValidateRow returns every rule failure for one row, in check order.
func (v *RowValidator) ValidateRow(row ImportRow) []ValidationError {
	var errs []ValidationError
	add := func(field, message string) {
		errs = append(errs, ValidationError{Row: row.Index, Field: field, Message: message})
	}

	// 1. Customer identity.
	if row.CustomerEmail == "" {
		add("customer_email", "is required")
	}
	if row.CustomerFullName == "" {
		add("customer_full_name", "is required")
	}

	// 2. Country code: present, 2 letters, supported. An unsupported country
	// reads differently from a missing one so the operator can tell them apart.
	country := row.AddressCountryCode
	switch {
	case country == "":
		add("address_country_code", "is required")
	case !countryCodePattern.MatchString(country):
		add("address_country_code", "must be a 2-letter country code")
	case !v.rules.CountrySupported(country):
		add("address_country_code", fmt.Sprintf("country %s is not supported", country))
	}

	// 3. Postal code, where the country mandates one.
	if v.rules.PostalCodeRequired(country) {
		switch {
		case row.AddressPostalCode == "":
			add("address_postal_code", fmt.Sprintf("is required for country %s", country))
		case !v.rules.ValidPostalCode(country, row.AddressPostalCode):
			add("address_postal_code", fmt.Sprintf("invalid postal code format for country %s", country))
		}
	}

	// 4 + 5. Period bounds: strict format, then position relative to now.
	// Malformed values are format errors, never coerced.
	startedAt, ok := v.checkTimestamp(&errs, row.Index, "current_period_started_at", row.CurrentPeriodStartedAt)
	if ok && !startedAt.Before(v.now) {
		add("current_period_started_at", "must be in the past")
	}
	endsAt, ok := v.checkTimestamp(&errs, row.Index, "current_period_ends_at", row.CurrentPeriodEndsAt)
	if ok && !endsAt.After(v.now) {
		add("current_period_ends_at", "must be in the future")
	}
	// started_at vs ends_at ordering is deliberately not checked; both bounds
	// are validated against now independently.

	// 6. Price identifiers.
	v.checkPriceID(&errs, row.Index, "zero_dollar_sub_price_id", row.ZeroDollarSubPriceID)
	v.checkPriceID(&errs, row.Index, "subscription_price_id", row.SubscriptionPriceID)

	return errs
}

// checkTimestamp validates the strict UTC layout and returns the parsed time
// when well-formed.
func (v *RowValidator) checkTimestamp(errs *[]ValidationError, row int, field, value string) (time.Time, bool) {
	if value == "" {
		*errs = append(*errs, ValidationError{Row: row, Field: field, Message: "is required"})
		return time.Time{}, false
	}
	// time.Parse tolerates fractional seconds the layout does not mention,
	// so a round-trip check enforces the exact shape.
	t, err := time.Parse(timestampLayout, value)
	if err != nil || t.Format(timestampLayout) != value {
		*errs = append(*errs, ValidationError{
			Row:     row,
			Field:   field,
			Message: "must be an ISO-8601 UTC timestamp (YYYY-MM-DDTHH:MM:SSZ)",
		})
		return time.Time{}, false
	}
	return t, true
}

func (v *RowValidator) checkPriceID(errs *[]ValidationError, row int, field, value string) {
	switch {
	case value == "":
		*errs = append(*errs, ValidationError{Row: row, Field: field, Message: "is required"})
	case !priceIDPattern.MatchString(value):
		*errs = append(*errs, ValidationError{Row: row, Field: field, Message: "must be a price id (pri_...)"})
	}
}

// ValidateAll runs the validator over the whole row set and returns the
// combined error list, rows in order. A non-empty result means the import
// must not make any remote call: the gate is all-or-nothing so the operator
// fixes the file once and resubmits, instead of untangling a half-imported
// batch.
func ValidateAll(rules *catalog.Catalog, now time.Time, rows []ImportRow) []ValidationError {
	v := NewRowValidator(rules, now)

	var all []ValidationError
	for _, row := range rows {
		all = append(all, v.ValidateRow(row)...)
	}
	return all
}
