package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"asms-api/internal/httperr"
	"asms-api/pkg/importer"
)

// DefaultMaxBytes caps the upload size when none is configured
const DefaultMaxBytes = 20 << 20

// ImportsHandler handles Excel import operations
type ImportsHandler struct {
	DB       importer.DB
	MaxBytes int64
	// Mapping overrides the built-in header aliases when set
	Mapping *importer.Mapping
	Now     func() time.Time
	// Observe, when set, receives every finished summary
	Observe func(importer.Summary)
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(db importer.DB, maxBytes int64) *ImportsHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &ImportsHandler{
		DB:       db,
		MaxBytes: maxBytes,
		Now:      time.Now,
	}
}

type importAborted struct {
	Error   string           `json:"error"`
	Details string           `json:"details"`
	Summary importer.Summary `json:"summary"`
}

// UploadExcel imports assets from an uploaded .xlsx workbook
func (h *ImportsHandler) UploadExcel(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return httperr.MethodNotAllowed("")
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		return httperr.BadRequest("Content-Type must be multipart/form-data")
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		e := httperr.BadRequest("Invalid multipart form")
		e.Details = err.Error()
		return e
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	opts := importer.Options{
		Sheet:   strings.TrimSpace(r.FormValue("sheet")),
		Mapping: h.Mapping,
		Now:     h.Now,
	}
	if v := r.FormValue("dry_run"); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			return httperr.BadRequest("dry_run must be true or false")
		}
		opts.DryRun = dryRun
	}
	if v := r.FormValue("max_errors"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return httperr.BadRequest("max_errors must be a positive integer")
		}
		opts.MaxErrors = n
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return httperr.BadRequest("File is required")
	}
	defer file.Close()

	if !isXLSX(header) {
		return httperr.BadRequest("Only .xlsx files are accepted")
	}

	sum, err := importer.Import(r.Context(), h.DB, file, opts)
	if h.Observe != nil && sum.Sheet != "" {
		h.Observe(sum)
	}
	if errors.Is(err, importer.ErrTooManyErrors) {
		return httperr.WriteJSON(w, http.StatusUnprocessableEntity, importAborted{
			Error:   "Import aborted",
			Details: err.Error(),
			Summary: sum,
		})
	}
	if err != nil {
		e := httperr.BadRequest("Import failed")
		e.Details = err.Error()
		e.Err = err
		return e
	}

	return httperr.WriteJSON(w, http.StatusOK, sum)
}

// isXLSX checks if the uploaded file is an Excel .xlsx file
func isXLSX(h *multipart.FileHeader) bool {
	return strings.HasSuffix(strings.ToLower(h.Filename), ".xlsx")
}
