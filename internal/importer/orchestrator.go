package importer

// orchestrator.go runs the per-row creation chain against the billing API.
//
// One row is a strictly ordered workflow:
//
//	customer -> address -> [business] -> subscription -> transaction
//
// Each step depends on identifiers returned by earlier steps, so the chain
// never reorders or parallelizes within a row. The first failing step stops
// the row; resources already created for it are NOT rolled back. The import
// records the failure and moves on, and the operator decides what to do with
// the orphaned resources. Rows are independent of each other and may run
// concurrently up to a configured bound; outcomes are always reported in the
// original row order.
//
// No retries happen here. Re-running a file re-creates everything (there is
// no dedup key tying a CSV row to a prior attempt), which is a documented
// idempotency risk, not a bug to paper over.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paddleops/bulkimport/internal/paddle"
	"golang.org/x/sync/errgroup"
)

// CreationAPI is the slice of the billing client the orchestrator needs.
// *paddle.Client satisfies it; tests substitute a fake.
type CreationAPI interface {
	CreateCustomer(ctx context.Context, req paddle.CustomerRequest) (string, error)
	CreateAddress(ctx context.Context, customerID string, req paddle.AddressRequest) (string, error)
	CreateBusiness(ctx context.Context, customerID string, req paddle.BusinessRequest) (string, error)
	CreateSubscription(ctx context.Context, req paddle.SubscriptionRequest) (string, error)
	CreateTransaction(ctx context.Context, req paddle.TransactionRequest) (string, error)
}

// Orchestrator executes validated rows against a CreationAPI.
type Orchestrator struct {
	api         CreationAPI
	callTimeout time.Duration
	parallelism int
	logger      *slog.Logger
}

// NewOrchestrator creates an orchestrator. callTimeout bounds each remote
// call; parallelism values below 2 mean strictly sequential processing.
func NewOrchestrator(api CreationAPI, callTimeout time.Duration, parallelism int, logger *slog.Logger) *Orchestrator {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	if parallelism < 1 {
		parallelism = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		api:         api,
		callTimeout: callTimeout,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Run processes every row and returns one outcome per row, index-aligned
// with the input. Cancelling ctx stops scheduling new rows but lets rows
// already in flight run their chain to a terminal state, so no extra
// half-created resources appear beyond what a step failure already leaves.
func (o *Orchestrator) Run(ctx context.Context, rows []ImportRow) []RowOutcome {
	outcomes := make([]RowOutcome, len(rows))

	if o.parallelism > 1 {
		o.runParallel(ctx, rows, outcomes)
		return outcomes
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			outcomes[i] = cancelledOutcome(row, err)
			continue
		}
		outcomes[i] = o.processRow(ctx, row)
	}
	return outcomes
}

// runParallel fans rows out over a bounded worker group. Each worker writes
// only its own index, so outcomes stay in row order with no locking.
func (o *Orchestrator) runParallel(ctx context.Context, rows []ImportRow, outcomes []RowOutcome) {
	g := &errgroup.Group{}
	g.SetLimit(o.parallelism)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			outcomes[i] = cancelledOutcome(row, err)
			continue
		}
		i, row := i, row
		g.Go(func() error {
			outcomes[i] = o.processRow(ctx, row)
			return nil
		})
	}
	g.Wait()
}

func cancelledOutcome(row ImportRow, err error) RowOutcome {
	return RowOutcome{
		Row:   row,
		State: StateFailed,
		Err:   fmt.Errorf("run cancelled before processing: %w", err),
	}
}

// processRow walks one row through the chain, short-circuiting on the first
// failing step. A context cancelled mid-row still finishes normally at the
// step level: each remote call gets its own timeout derived from a detached
// context, so in-flight chains terminate cleanly.
func (o *Orchestrator) processRow(ctx context.Context, row ImportRow) RowOutcome {
	out := RowOutcome{Row: row, State: StateValidated}
	logger := o.logger.With("row", row.Index, "customer_email", row.CustomerEmail)

	fail := func(step string, err error) RowOutcome {
		logger.Warn("row failed", "step", step, "error", err)
		out.State = StateFailed
		out.Step = step
		out.Err = fmt.Errorf("%s: %w", step, err)
		return out
	}

	// 1. Customer.
	customerID, err := o.createCustomer(ctx, row)
	if err != nil {
		return fail(StepCustomer, err)
	}
	out.State = StateCustomerCreated

	// 2. Address, linked to the customer.
	addressID, err := o.createAddress(ctx, customerID, row)
	if err != nil {
		return fail(StepAddress, err)
	}
	out.State = StateAddressCreated

	// 3. Business, only when the row carries business data.
	var businessID string
	if row.HasBusiness() {
		businessID, err = o.createBusiness(ctx, customerID, row)
		if err != nil {
			return fail(StepBusiness, err)
		}
		out.State = StateBusinessCreated
	} else {
		out.State = StateBusinessSkipped
	}

	// 4. Zero-amount subscription anchoring the chain.
	subscriptionID, err := o.createSubscription(ctx, customerID, addressID, businessID, row)
	if err != nil {
		return fail(StepSubscription, err)
	}
	out.State = StateSubscriptionCreated

	// 5. Transaction carrying the real price id as custom metadata.
	transactionID, err := o.createTransaction(ctx, customerID, addressID, businessID, subscriptionID, row)
	if err != nil {
		return fail(StepTransaction, err)
	}

	out.State = StateTransactionCreated
	out.TransactionID = transactionID
	logger.Info("row imported", "transaction_id", transactionID)
	return out
}

// callCtx derives the per-call timeout context. The parent's cancellation is
// intentionally not inherited: an operator abort must not kill calls already
// underway (see Run).
func (o *Orchestrator) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.callTimeout)
}

func (o *Orchestrator) createCustomer(ctx context.Context, row ImportRow) (string, error) {
	callCtx, cancel := o.callCtx(ctx)
	defer cancel()

	return o.api.CreateCustomer(callCtx, paddle.CustomerRequest{
		Email:      row.CustomerEmail,
		Name:       row.CustomerFullName,
		Locale:     "en",
		CustomData: externalData(row.CustomerExternalID),
	})
}

func (o *Orchestrator) createAddress(ctx context.Context, customerID string, row ImportRow) (string, error) {
	callCtx, cancel := o.callCtx(ctx)
	defer cancel()

	return o.api.CreateAddress(callCtx, customerID, paddle.AddressRequest{
		CountryCode: row.AddressCountryCode,
		FirstLine:   row.AddressStreetLine1,
		SecondLine:  row.AddressStreetLine2,
		City:        row.AddressCity,
		Region:      row.AddressRegion,
		PostalCode:  row.AddressPostalCode,
		Description: "Address for " + row.CustomerEmail,
		CustomData:  externalData(row.AddressExternalID),
	})
}

func (o *Orchestrator) createBusiness(ctx context.Context, customerID string, row ImportRow) (string, error) {
	callCtx, cancel := o.callCtx(ctx)
	defer cancel()

	return o.api.CreateBusiness(callCtx, customerID, paddle.BusinessRequest{
		Name:          row.BusinessName,
		CompanyNumber: row.BusinessCompanyNumber,
		TaxIdentifier: row.BusinessTaxIdentifier,
		Contacts: []paddle.Contact{
			{Name: row.CustomerFullName, Email: row.CustomerEmail},
		},
		CustomData: externalData(row.BusinessExternalID),
	})
}

func (o *Orchestrator) createSubscription(ctx context.Context, customerID, addressID, businessID string, row ImportRow) (string, error) {
	callCtx, cancel := o.callCtx(ctx)
	defer cancel()

	return o.api.CreateSubscription(callCtx, paddle.SubscriptionRequest{
		CustomerID: customerID,
		AddressID:  addressID,
		BusinessID: businessID,
		Items: []paddle.Item{
			{PriceID: row.ZeroDollarSubPriceID, Quantity: 1},
		},
		CurrentBillingPeriod: paddle.BillingPeriod{
			StartsAt: row.CurrentPeriodStartedAt,
			EndsAt:   row.CurrentPeriodEndsAt,
		},
	})
}

func (o *Orchestrator) createTransaction(ctx context.Context, customerID, addressID, businessID, subscriptionID string, row ImportRow) (string, error) {
	callCtx, cancel := o.callCtx(ctx)
	defer cancel()

	return o.api.CreateTransaction(callCtx, paddle.TransactionRequest{
		CustomerID:     customerID,
		AddressID:      addressID,
		BusinessID:     businessID,
		SubscriptionID: subscriptionID,
		Items: []paddle.Item{
			{PriceID: row.ZeroDollarSubPriceID, Quantity: 1},
		},
		BillingPeriod: paddle.BillingPeriod{
			StartsAt: row.CurrentPeriodStartedAt,
			EndsAt:   row.CurrentPeriodEndsAt,
		},
		CustomData: &paddle.TransactionCustomData{
			SubscriptionPriceID: row.SubscriptionPriceID,
		},
	})
}

// externalData wraps a non-empty external id for custom_data, or nil so the
// field is omitted entirely.
func externalData(id string) *paddle.ExternalData {
	if id == "" {
		return nil
	}
	return &paddle.ExternalData{ExternalID: id}
}
