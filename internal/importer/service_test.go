package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddleops/bulkimport/internal/catalog"
	"github.com/paddleops/bulkimport/internal/config"
	"github.com/paddleops/bulkimport/internal/paddle"
)

func testConfig() *config.Config {
	return &config.Config{
		Paddle: config.PaddleConfig{RequestTimeout: time.Second},
		Import: config.ImportConfig{
			MaxFileSize:       1 << 20,
			MaxConcurrentRuns: 2,
			MaxWaitTime:       50 * time.Millisecond,
			RunTimeout:        5 * time.Second,
			RowParallelism:    1,
		},
	}
}

// csvFile renders a CSV with the full header and one line per row map.
func csvFile(rows ...map[string]string) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(Columns, ","))
	b.WriteString("\n")
	for _, row := range rows {
		cells := make([]string, len(Columns))
		for i, col := range Columns {
			cells[i] = row[col]
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func goodRowCells(email string) map[string]string {
	return map[string]string{
		"customer_email":            email,
		"customer_full_name":        "Ada Lovelace",
		"address_country_code":      "US",
		"address_postal_code":       "12345",
		"current_period_started_at": "2026-01-01T00:00:00Z",
		"current_period_ends_at":    "2027-01-01T00:00:00Z",
		"zero_dollar_sub_price_id":  "pri_zero1",
		"subscription_price_id":     "pri_real1",
	}
}

// newTestService wires a service around the given factory with a pinned clock.
func newTestService(factory ClientFactory, cfg *config.Config) *Service {
	s := NewService(catalog.Default(), factory, cfg)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestService_Run_Success(t *testing.T) {
	api := &fakeAPI{}
	var gotKey string
	var gotSandbox bool
	factory := func(apiKey string, sandbox bool) CreationAPI {
		gotKey = apiKey
		gotSandbox = sandbox
		return api
	}

	svc := newTestService(factory, testConfig())
	result, err := svc.Run(context.Background(), ImportRequest{
		FileName: "customers.csv",
		Data:     csvFile(goodRowCells("a@example.com"), goodRowCells("b@example.com")),
		APIKey:   "pdl_key",
		Sandbox:  true,
	})

	require.NoError(t, err)
	assert.Equal(t, "pdl_key", gotKey)
	assert.True(t, gotSandbox)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.TotalRecords)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.ValidationErrors)
	require.Len(t, result.SuccessfulTransactions, 2)
	assert.Equal(t, "a@example.com", result.SuccessfulTransactions[0].CustomerEmail)
	assert.Equal(t, "b@example.com", result.SuccessfulTransactions[1].CustomerEmail)
}

func TestService_Run_ValidationGateMakesNoRemoteCalls(t *testing.T) {
	factoryCalled := false
	factory := func(string, bool) CreationAPI {
		factoryCalled = true
		return &fakeAPI{}
	}

	bad := goodRowCells("a@example.com")
	bad["customer_email"] = ""

	svc := newTestService(factory, testConfig())
	result, err := svc.Run(context.Background(), ImportRequest{
		FileName: "customers.csv",
		Data:     csvFile(goodRowCells("ok@example.com"), bad),
	})

	require.NoError(t, err, "a blocked run is a result, not an error")
	assert.False(t, factoryCalled, "no client may be built for a blocked run")

	assert.Equal(t, 2, result.TotalRecords)
	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 0, result.Failed)
	require.NotEmpty(t, result.ValidationErrors)
	assert.Equal(t, 2, result.ValidationErrors[0].Row)
	assert.Equal(t, "customer_email", result.ValidationErrors[0].Field)
}

func TestService_Run_PartialFailureReported(t *testing.T) {
	api := &fakeAPI{failStep: StepAddress}
	svc := newTestService(func(string, bool) CreationAPI { return api }, testConfig())
	result, err := svc.Run(context.Background(), ImportRequest{
		FileName: "customers.csv",
		Data:     csvFile(goodRowCells("a@example.com")),
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.FailedTransactions, 1)
	assert.Equal(t, StepAddress, result.FailedTransactions[0].Step)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "row 1:")
}

func TestService_Run_UnparseableFile(t *testing.T) {
	svc := newTestService(func(string, bool) CreationAPI { return &fakeAPI{} }, testConfig())

	_, err := svc.Run(context.Background(), ImportRequest{
		FileName: "broken.csv",
		Data:     []byte("not,the,right,header\n1,2,3,4\n"),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
}

func TestService_Run_LimiterRejectsExcessRuns(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxConcurrentRuns = 1
	cfg.Import.MaxWaitTime = 30 * time.Millisecond

	release := make(chan struct{})
	started := make(chan struct{})
	blocking := &blockingAPI{release: release, started: started}

	svc := newTestService(func(string, bool) CreationAPI { return blocking }, cfg)
	data := csvFile(goodRowCells("a@example.com"))

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), ImportRequest{FileName: "one.csv", Data: data})
		errCh <- err
	}()

	// Wait until the first run holds the slot mid-chain.
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first run never started")
	}

	_, err := svc.Run(context.Background(), ImportRequest{FileName: "two.csv", Data: data})
	assert.ErrorIs(t, err, ErrTooManyImports)

	close(release)
	require.NoError(t, <-errCh)

	assert.Equal(t, 0, svc.ActiveRuns())
}

// blockingAPI parks the first customer call until released, holding its run
// slot open.
type blockingAPI struct {
	fakeAPI
	release <-chan struct{}
	started chan<- struct{}
}

func (b *blockingAPI) CreateCustomer(ctx context.Context, req paddle.CustomerRequest) (string, error) {
	b.started <- struct{}{}
	<-b.release
	return b.fakeAPI.CreateCustomer(ctx, req)
}

func TestService_WaitForRuns_Idle(t *testing.T) {
	svc := newTestService(func(string, bool) CreationAPI { return &fakeAPI{} }, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, svc.WaitForRuns(ctx))
}
