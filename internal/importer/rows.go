package importer

// rows.go maps raw CSV records onto ImportRow values.
//
// The header set is a fixed contract: all columns below must be present,
// matched exactly and case-sensitively. Column order is irrelevant; rows may
// leave optional columns empty.

import (
	"fmt"
	"strings"

	"github.com/paddleops/bulkimport/internal/csvio"
)

// Columns is the required CSV header set.
var Columns = []string{
	"customer_email",
	"customer_full_name",
	"customer_external_id",
	"address_country_code",
	"address_street_line1",
	"address_street_line2",
	"address_city",
	"address_region",
	"address_postal_code",
	"address_external_id",
	"business_name",
	"business_company_number",
	"business_tax_identifier",
	"business_external_id",
	"current_period_started_at",
	"current_period_ends_at",
	"zero_dollar_sub_price_id",
	"subscription_price_id",
}

// headerIndex maps exact column names to their position in the CSV.
type headerIndex map[string]int

// makeHeaderIndex builds a headerIndex from a cleaned header row. Duplicate
// headers keep the first occurrence.
func makeHeaderIndex(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, h := range header {
		key := csvio.CleanHeader(h)
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// ParseRows converts CSV records (header first) into ImportRow values.
// It fails up front when required columns are missing, listing every absent
// header in one error.
func ParseRows(records [][]string) ([]ImportRow, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	idx := makeHeaderIndex(records[0])

	var missing []string
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	dataRows := records[1:]
	if len(dataRows) == 0 {
		return nil, fmt.Errorf("no data rows after header")
	}

	rows := make([]ImportRow, 0, len(dataRows))
	for i, rec := range dataRows {
		cell := func(col string) string {
			pos := idx[col]
			if pos >= len(rec) {
				return ""
			}
			return csvio.CleanCell(rec[pos])
		}

		rows = append(rows, ImportRow{
			Index: i + 1,

			CustomerEmail:      cell("customer_email"),
			CustomerFullName:   cell("customer_full_name"),
			CustomerExternalID: cell("customer_external_id"),

			AddressCountryCode: cell("address_country_code"),
			AddressStreetLine1: cell("address_street_line1"),
			AddressStreetLine2: cell("address_street_line2"),
			AddressCity:        cell("address_city"),
			AddressRegion:      cell("address_region"),
			AddressPostalCode:  cell("address_postal_code"),
			AddressExternalID:  cell("address_external_id"),

			BusinessName:          cell("business_name"),
			BusinessCompanyNumber: cell("business_company_number"),
			BusinessTaxIdentifier: cell("business_tax_identifier"),
			BusinessExternalID:    cell("business_external_id"),

			CurrentPeriodStartedAt: cell("current_period_started_at"),
			CurrentPeriodEndsAt:    cell("current_period_ends_at"),

			ZeroDollarSubPriceID: cell("zero_dollar_sub_price_id"),
			SubscriptionPriceID:  cell("subscription_price_id"),
		})
	}

	return rows, nil
}
