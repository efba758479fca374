// Package importer implements the bulk customer import pipeline: parsing
// CSV rows into typed records, validating them against the country rule
// catalog, orchestrating the per-row chain of remote resource creations,
// and aggregating outcomes into the final report.
package importer

import (
	"fmt"
	"time"
)

// ImportRow is one CSV record, parsed and cleaned. String fields hold the
// raw cell values; timestamps stay as strings until validation parses them.
type ImportRow struct {
	// Index is the 1-based position of the row within the file's data rows.
	Index int

	CustomerEmail      string
	CustomerFullName   string
	CustomerExternalID string

	AddressCountryCode string
	AddressStreetLine1 string
	AddressStreetLine2 string
	AddressCity        string
	AddressRegion      string
	AddressPostalCode  string
	AddressExternalID  string

	BusinessName          string
	BusinessCompanyNumber string
	BusinessTaxIdentifier string
	BusinessExternalID    string

	CurrentPeriodStartedAt string
	CurrentPeriodEndsAt    string

	ZeroDollarSubPriceID string
	SubscriptionPriceID  string
}

// HasBusiness reports whether any business field is present. Only then is a
// business resource created for the row.
func (r ImportRow) HasBusiness() bool {
	return r.BusinessName != "" ||
		r.BusinessCompanyNumber != "" ||
		r.BusinessTaxIdentifier != "" ||
		r.BusinessExternalID != ""
}

// ValidationError is one pre-flight rule failure for one field of one row.
// Immutable once produced.
type ValidationError struct {
	Row     int    `json:"row"` // 1-based, matching the CSV data line
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}

// RowState tracks a row through the creation chain.
type RowState string

const (
	StatePending             RowState = "pending"
	StateValidated           RowState = "validated"
	StateCustomerCreated     RowState = "customer_created"
	StateAddressCreated      RowState = "address_created"
	StateBusinessCreated     RowState = "business_created"
	StateBusinessSkipped     RowState = "business_skipped"
	StateSubscriptionCreated RowState = "subscription_created"
	StateTransactionCreated  RowState = "transaction_created" // terminal success
	StateFailed              RowState = "failed"              // terminal failure
)

// Chain step names, in execution order. These appear verbatim in failure
// records so the operator can see exactly where a row stopped.
const (
	StepCustomer     = "customer"
	StepAddress      = "address"
	StepBusiness     = "business"
	StepSubscription = "subscription"
	StepTransaction  = "transaction"
)

// RowOutcome is the terminal result of processing one validated row.
// Success sets TransactionID; failure sets Err and, when a chain step was
// actually reached, Step. Rows cancelled before starting carry Err alone.
type RowOutcome struct {
	Row   ImportRow
	State RowState

	// TransactionID is set when the full chain completed.
	TransactionID string

	// Step names the chain step that failed; empty for rows that were never
	// scheduled because the run was cancelled.
	Step string
	Err  error
}

// Succeeded reports whether the row reached terminal success.
func (o RowOutcome) Succeeded() bool {
	return o.State == StateTransactionCreated
}

// SuccessfulTransaction is the report record for a row whose chain completed.
type SuccessfulTransaction struct {
	CustomerEmail        string `json:"customer_email"`
	CustomerFullName     string `json:"customer_full_name"`
	CountryCode          string `json:"country_code"`
	TransactionID        string `json:"transaction_id"`
	ZeroDollarSubPriceID string `json:"zero_dollar_sub_price_id"`
	SubscriptionPriceID  string `json:"subscription_price_id"`
}

// FailedTransaction is the report record for a row whose chain stopped.
type FailedTransaction struct {
	CustomerEmail        string `json:"customer_email"`
	CustomerFullName     string `json:"customer_full_name"`
	CountryCode          string `json:"country_code"`
	ZeroDollarSubPriceID string `json:"zero_dollar_sub_price_id"`
	SubscriptionPriceID  string `json:"subscription_price_id"`
	Step                 string `json:"step"`
	Error                string `json:"error"`
}

// ImportResult is the aggregate report for one import run. It is built
// incrementally during a run and immutable once returned; nothing is
// persisted beyond delivery to the caller.
type ImportResult struct {
	RunID        string `json:"run_id"`
	TotalRecords int    `json:"total_records"`
	Successful   int    `json:"successful"`
	Failed       int    `json:"failed"`

	// ValidationErrors is non-empty only when the validation gate blocked
	// the run; in that case no remote call was made and both counts are zero.
	ValidationErrors []ValidationError `json:"validation_errors,omitempty"`

	SuccessfulTransactions []SuccessfulTransaction `json:"successful_transactions"`
	FailedTransactions     []FailedTransaction     `json:"failed_transactions"`

	// Errors lists non-validation error strings in row order, mirroring the
	// failed transaction records for log-style consumption.
	Errors []string `json:"errors"`

	DurationMS int64 `json:"duration_ms"`
}

// ImportRequest is one import run as submitted by the caller.
type ImportRequest struct {
	FileName string
	Data     []byte
	APIKey   string
	Sandbox  bool
}

// nowFunc returns the current time; swapped in tests.
type nowFunc func() time.Time
