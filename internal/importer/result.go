package importer

// result.go assembles the final report. Outcomes arrive index-aligned with
// the input rows (see Orchestrator.Run), so aggregation is a single ordered
// pass and the report is reproducible for any given run.

import (
	"fmt"
	"time"
)

// buildResult folds per-row outcomes into the aggregate report.
func buildResult(runID string, outcomes []RowOutcome, elapsed time.Duration) *ImportResult {
	res := &ImportResult{
		RunID:                  runID,
		TotalRecords:           len(outcomes),
		SuccessfulTransactions: []SuccessfulTransaction{},
		FailedTransactions:     []FailedTransaction{},
		Errors:                 []string{},
		DurationMS:             elapsed.Milliseconds(),
	}

	for _, out := range outcomes {
		if out.Succeeded() {
			res.Successful++
			res.SuccessfulTransactions = append(res.SuccessfulTransactions, SuccessfulTransaction{
				CustomerEmail:        out.Row.CustomerEmail,
				CustomerFullName:     out.Row.CustomerFullName,
				CountryCode:          out.Row.AddressCountryCode,
				TransactionID:        out.TransactionID,
				ZeroDollarSubPriceID: out.Row.ZeroDollarSubPriceID,
				SubscriptionPriceID:  out.Row.SubscriptionPriceID,
			})
			continue
		}

		res.Failed++
		errText := ""
		if out.Err != nil {
			errText = out.Err.Error()
		}
		res.FailedTransactions = append(res.FailedTransactions, FailedTransaction{
			CustomerEmail:        out.Row.CustomerEmail,
			CustomerFullName:     out.Row.CustomerFullName,
			CountryCode:          out.Row.AddressCountryCode,
			ZeroDollarSubPriceID: out.Row.ZeroDollarSubPriceID,
			SubscriptionPriceID:  out.Row.SubscriptionPriceID,
			Step:                 out.Step,
			Error:                errText,
		})
		res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s", out.Row.Index, errText))
	}

	return res
}

// validationFailureResult is the gate's report: only validation errors, zero
// remote effects, both counts zero.
func validationFailureResult(runID string, total int, verrs []ValidationError, elapsed time.Duration) *ImportResult {
	return &ImportResult{
		RunID:                  runID,
		TotalRecords:           total,
		ValidationErrors:       verrs,
		SuccessfulTransactions: []SuccessfulTransaction{},
		FailedTransactions:     []FailedTransaction{},
		Errors:                 []string{},
		DurationMS:             elapsed.Milliseconds(),
	}
}
