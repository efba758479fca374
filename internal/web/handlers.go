package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/paddleops/bulkimport/internal/importer"
)

// handleImport accepts a multipart CSV upload and runs the import
// synchronously. The response carries the full per-row report: either
// the validation errors that blocked the file, or the outcome of every
// creation chain.
//
// Form fields:
//   - csv_file:   the CSV file (required)
//   - api_key:    billing API key used for this run (required)
//   - is_sandbox: "true" to target the sandbox environment (default false)
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, r, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("csv_file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeError(w, r, http.StatusBadRequest, "file must be a CSV")
		return
	}

	apiKey := strings.TrimSpace(r.FormValue("api_key"))
	if apiKey == "" {
		writeError(w, r, http.StatusBadRequest, "missing api_key")
		return
	}

	sandbox := false
	if v := r.FormValue("is_sandbox"); v != "" {
		sandbox, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "is_sandbox must be a boolean")
			return
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to read file")
		return
	}
	if len(data) == 0 {
		writeError(w, r, http.StatusBadRequest, "empty file")
		return
	}

	result, err := s.service.Run(r.Context(), importer.ImportRequest{
		FileName: header.Filename,
		Data:     data,
		APIKey:   apiKey,
		Sandbox:  sandbox,
	})
	if err != nil {
		if errors.Is(err, importer.ErrTooManyImports) {
			w.Header().Set("Retry-After", "30")
			writeError(w, r, http.StatusTooManyRequests, "too many concurrent imports, try again shortly")
			return
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleHealth reports service liveness and current load.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":      "healthy",
		"active_runs": s.service.ActiveRuns(),
	})
}
