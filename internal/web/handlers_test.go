package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddleops/bulkimport/internal/catalog"
	"github.com/paddleops/bulkimport/internal/config"
	"github.com/paddleops/bulkimport/internal/importer"
	"github.com/paddleops/bulkimport/internal/paddle"
)

// stubAPI satisfies importer.CreationAPI and counts calls.
type stubAPI struct {
	calls int
}

func (s *stubAPI) CreateCustomer(context.Context, paddle.CustomerRequest) (string, error) {
	s.calls++
	return "ctm_1", nil
}

func (s *stubAPI) CreateAddress(_ context.Context, _ string, _ paddle.AddressRequest) (string, error) {
	s.calls++
	return "add_1", nil
}

func (s *stubAPI) CreateBusiness(_ context.Context, _ string, _ paddle.BusinessRequest) (string, error) {
	s.calls++
	return "biz_1", nil
}

func (s *stubAPI) CreateSubscription(context.Context, paddle.SubscriptionRequest) (string, error) {
	s.calls++
	return "sub_1", nil
}

func (s *stubAPI) CreateTransaction(context.Context, paddle.TransactionRequest) (string, error) {
	s.calls++
	return "txn_1", nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           8080,
			RequestTimeout: time.Minute,
		},
		Paddle: config.PaddleConfig{RequestTimeout: time.Second},
		Import: config.ImportConfig{
			MaxFileSize:       1 << 20,
			MaxConcurrentRuns: 2,
			MaxWaitTime:       time.Second,
			RunTimeout:        10 * time.Second,
			RowParallelism:    1,
		},
		Rate:    config.RateLimitConfig{Enabled: false},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T, api *stubAPI, cfg *config.Config) *Server {
	t.Helper()
	factory := func(string, bool) importer.CreationAPI { return api }
	service := importer.NewService(catalog.Default(), factory, cfg)
	return NewServer(service, cfg)
}

// importCSV is a minimal valid one-row file. Timestamps sit far in the past
// and future so the clock-relative checks hold.
const importCSV = "customer_email,customer_full_name,customer_external_id," +
	"address_country_code,address_street_line1,address_street_line2,address_city," +
	"address_region,address_postal_code,address_external_id," +
	"business_name,business_company_number,business_tax_identifier,business_external_id," +
	"current_period_started_at,current_period_ends_at," +
	"zero_dollar_sub_price_id,subscription_price_id\n" +
	"a@example.com,Ada Lovelace,,US,1 Main St,,Austin,TX,12345,,,,,," +
	"2020-01-01T00:00:00Z,2099-01-01T00:00:00Z,pri_zero1,pri_real1\n"

// multipartBody builds a csv_file upload with the given extra form fields.
func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if filename != "" {
		part, err := w.CreateFormFile("csv_file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func postImport(t *testing.T, srv *Server, filename, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleImport_Success(t *testing.T) {
	api := &stubAPI{}
	srv := newTestServer(t, api, testConfig())

	rec := postImport(t, srv, "customers.csv", importCSV, map[string]string{
		"api_key":    "pdl_live_key",
		"is_sandbox": "true",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result importer.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.TotalRecords)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.SuccessfulTransactions, 1)
	assert.Equal(t, "txn_1", result.SuccessfulTransactions[0].TransactionID)

	// customer, address, subscription, transaction (no business data)
	assert.Equal(t, 4, api.calls)
}

func TestHandleImport_ValidationBlocked(t *testing.T) {
	api := &stubAPI{}
	srv := newTestServer(t, api, testConfig())

	badCSV := strings.Replace(importCSV, "a@example.com", "", 1)
	rec := postImport(t, srv, "customers.csv", badCSV, map[string]string{"api_key": "k"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result importer.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.ValidationErrors)
	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Zero(t, api.calls, "blocked run must make no remote calls")
}

func TestHandleImport_MissingFile(t *testing.T) {
	srv := newTestServer(t, &stubAPI{}, testConfig())

	rec := postImport(t, srv, "", "", map[string]string{"api_key": "k"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file provided")
}

func TestHandleImport_MissingAPIKey(t *testing.T) {
	srv := newTestServer(t, &stubAPI{}, testConfig())

	rec := postImport(t, srv, "customers.csv", importCSV, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing api_key")
}

func TestHandleImport_RejectsNonCSV(t *testing.T) {
	srv := newTestServer(t, &stubAPI{}, testConfig())

	rec := postImport(t, srv, "customers.xlsx", importCSV, map[string]string{"api_key": "k"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be a CSV")
}

func TestHandleImport_BadSandboxFlag(t *testing.T) {
	srv := newTestServer(t, &stubAPI{}, testConfig())

	rec := postImport(t, srv, "customers.csv", importCSV, map[string]string{
		"api_key":    "k",
		"is_sandbox": "maybe",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "is_sandbox")
}

func TestHandleImport_UnparseableCSV(t *testing.T) {
	srv := newTestServer(t, &stubAPI{}, testConfig())

	rec := postImport(t, srv, "customers.csv", "wrong,header\n1,2\n", map[string]string{"api_key": "k"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required columns")
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &stubAPI{}, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 0, body["active_runs"])
}

func TestAPIKeyAuth_Enforced(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"service-key"}

	srv := newTestServer(t, &stubAPI{}, cfg)

	// No key: rejected before reaching the handler.
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong key: forbidden.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-API-Key", "nope")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Correct key: passes through.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-API-Key", "service-key")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, &stubAPI{}, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
