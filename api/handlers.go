/*
handlers.go - HTTP API handlers for the contract revenue service

PURPOSE:
  Exposes contract ingestion, editing, revenue scheduling and export via
  REST. Handles HTTP request/response, JSON serialization, and delegates
  to contract.Service and the revenue engine.

ENDPOINTS:
  Contracts:
    POST   /api/contracts/upload             Ingest a document or pre-extracted text
    GET    /api/contracts                    List contracts (newest first)
    GET    /api/contracts/{id}               Get contract with original text
    PUT    /api/contracts/{id}               Apply editor changes
    DELETE /api/contracts/{id}               Delete contract and its schedule

  Revenue:
    POST   /api/contracts/{id}/revenue       Calculate and store the schedule
    GET    /api/contracts/{id}/revenue       Stored schedule + live forward book
    POST   /api/contracts/{id}/snapshots     Record the forward book now
    GET    /api/contracts/{id}/snapshots     Recorded forward books
    GET    /api/contracts/{id}/export        Download as csv or xlsx
    POST   /api/revenue/calculate            Stateless engine call

  System:
    GET    /api/health                       Configured backends
    GET    /api/version                      Build info

ERROR HANDLING:
  Errors are returned as JSON {error, details, type} with:
  - 400: Validation errors, invalid input
  - 404: Contract not found
  - 422: No usable text in the uploaded document
  - 502: The AI field extractor failed
  - 503: No AI field extractor configured
  - 500: Internal errors (reported to Sentry when configured)

SECURITY NOTE:
  No authentication. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - contract/service.go: Workflows behind the handlers
*/
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/warp/contract-revenue/contract"
	"github.com/warp/contract-revenue/export"
	"github.com/warp/contract-revenue/extract"
	"github.com/warp/contract-revenue/llm"
	"github.com/warp/contract-revenue/revenue"
)

// Version is reported by GET /api/version. Overridden at build time with -ldflags.
var (
	Version = "dev"
	Commit  = ""
)

const defaultMaxUpload int64 = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *contract.Service

	// MaxUploadBytes bounds multipart uploads.
	MaxUploadBytes int64

	// OCRName and Scheduler are only reported by /api/health.
	OCRName   string
	Scheduler *ForwardBookScheduler

	validate *validator.Validate
}

// NewHandler creates a new handler around a contract service.
func NewHandler(svc *contract.Service) *Handler {
	return &Handler{
		Service:        svc,
		MaxUploadBytes: defaultMaxUpload,
		validate:       newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("revenue_method", func(fl validator.FieldLevel) bool {
		_, err := revenue.ParseMethod(fl.Field().String())
		return err == nil
	})
	return v
}

func (h *Handler) now() time.Time {
	return h.Service.Engine.Clock.Now()
}

// =============================================================================
// SYSTEM
// =============================================================================

// Health reports which optional backends are wired.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ocr := h.OCRName
	if ocr == "" {
		ocr = "none"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		AI:        h.Service.Fields != nil,
		OCR:       ocr,
		Scheduler: h.Scheduler != nil && h.Scheduler.Running(),
	})
}

// GetVersion returns build info.
// GET /api/version
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version: Version,
		Commit:  Commit,
		Features: []string{
			"AI field extraction",
			"Scanned PDF OCR (Azure Read, AWS Textract)",
			"Straight-line, milestone, percentage-complete and billed-basis recognition",
			"Forward book snapshots",
			"CSV and XLSX export",
		},
	})
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// UploadContract ingests a multipart upload. The form carries either a
// "file" part or pre-extracted text in "extractedText" with optional
// "fileName" and "fileType".
// POST /api/contracts/upload
func (h *Handler) UploadContract(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large", fmt.Errorf("upload exceeds %d bytes", h.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}

	var (
		result *contract.IngestResult
		err    error
	)
	file, header, ferr := r.FormFile("file")
	switch {
	case ferr == nil:
		defer file.Close()
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, file); err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read upload", err)
			return
		}
		doc := extract.Document{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        buf.Bytes(),
		}
		log.Printf("[Upload] %s (%s, %d bytes)", doc.Filename, doc.ContentType, len(doc.Data))
		result, err = h.Service.Ingest(r.Context(), doc)

	case strings.TrimSpace(r.FormValue("extractedText")) != "":
		result, err = h.Service.IngestText(r.Context(),
			r.FormValue("fileName"), r.FormValue("fileType"), r.FormValue("extractedText"))

	default:
		err = contract.ErrNoInput
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Success:         true,
		Contract:        toContractDTO(*result.Contract, false),
		ExtractedFields: result.Fields,
		Validation:      result.Validation,
		TextLength:      result.TextLength,
	})
}

// ListContracts returns all contracts without their original text.
// GET /api/contracts
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Service.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toContractDTO(c, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetContract returns a single contract.
// GET /api/contracts/{id}
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(*c, true))
}

// UpdateContract applies editor changes.
// PUT /api/contracts/{id}
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	var req UpdateContractRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), req.toUpdate())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(*c, false))
}

// DeleteContract removes a contract with its schedule and snapshots.
// DELETE /api/contracts/{id}
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REVENUE HANDLERS
// =============================================================================

// CalculateRevenue schedules a stored contract, replacing any earlier schedule.
// POST /api/contracts/{id}/revenue
func (h *Handler) CalculateRevenue(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}

	sched, err := h.Service.Schedule(r.Context(), chi.URLParam(r, "id"), contract.ScheduleRequest{
		Method:        revenue.Method(req.Method),
		ActualRevenue: req.ActualRevenue,
		BilledLabel:   revenue.LabelStyle(req.BilledLabel),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(sched))
}

// GetRevenue returns the stored schedule with a forward book as of now.
// GET /api/contracts/{id}/revenue
func (h *Handler) GetRevenue(w http.ResponseWriter, r *http.Request) {
	sched, err := h.Service.CurrentSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(sched))
}

// CreateSnapshot records the forward book of a scheduled contract.
// POST /api/contracts/{id}/snapshots
func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSnapshotDTO(*snap))
}

// ListSnapshots returns recorded forward books, oldest first.
// GET /api/contracts/{id}/snapshots
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.Service.Snapshots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]SnapshotDTO, len(snaps))
	for i, s := range snaps {
		dtos[i] = toSnapshotDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ExportContract downloads a contract and its stored schedule.
// GET /api/contracts/{id}/export?format=csv|xlsx
func (h *Handler) ExportContract(w http.ResponseWriter, r *http.Request) {
	format := export.Format(strings.ToLower(r.URL.Query().Get("format")))
	if format == "" {
		format = export.FormatCSV
	}
	if format != export.FormatCSV && format != export.FormatXLSX {
		writeErrorType(w, http.StatusBadRequest, "Unsupported export format (use csv or xlsx)", nil, "ValidationError")
		return
	}

	id := chi.URLParam(r, "id")
	c, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sched, err := h.Service.CurrentSchedule(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	report := export.NewReport(*c, sched.Allocations, h.now())

	var buf bytes.Buffer
	switch format {
	case export.FormatXLSX:
		err = export.WriteXLSX(&buf, report)
	default:
		err = export.WriteCSV(&buf, report)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(*c, format, report.GeneratedAt)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func exportFilename(c contract.Contract, format export.Format, at time.Time) string {
	base := strings.TrimSuffix(c.Filename, "."+lastExt(c.Filename))
	if base == "" {
		base = "contract"
	}
	base = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r == '/' || r < ' ' {
			return '_'
		}
		return r
	}, base)
	return fmt.Sprintf("%s-revenue-%s.%s", base, at.Format(contract.DateLayout), format)
}

func lastExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// Calculate runs the engine on ad hoc parameters without storing anything.
// POST /api/revenue/calculate
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if !h.decode(w, r, &req) {
		return
	}

	method, err := revenue.ParseMethod(req.Method)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	params := revenue.Params{
		TotalValue:  req.TotalValue,
		Method:      method,
		BilledLabel: revenue.LabelStyle(req.BilledLabel),
	}
	// Formats were checked by the validator.
	if req.StartDate != "" {
		params.StartDate, _ = contract.ParseDate(req.StartDate)
	}
	if req.EndDate != "" {
		params.EndDate, _ = contract.ParseDate(req.EndDate)
	}
	for _, m := range req.Milestones {
		due, _ := contract.ParseDate(m.DueDate)
		params.Milestones = append(params.Milestones, revenue.Milestone{Name: m.Name, Amount: m.Amount, DueDate: due})
	}

	allocations, err := h.Service.Engine.Allocate(params)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var summary revenue.ForwardBookSummary
	if req.AsOf != "" {
		asOf, _ := contract.ParseDate(req.AsOf)
		summary = revenue.CalculateForwardBook(allocations, req.ActualRevenue, asOf)
	} else {
		summary = h.Service.Engine.ForwardBook(allocations, req.ActualRevenue)
	}

	writeJSON(w, http.StatusOK, ScheduleDTO{
		Method:      string(method),
		Items:       toAllocationDTOs(allocations),
		Total:       revenue.Sum(allocations),
		ForwardBook: toForwardBookDTO(summary),
		Warnings:    []string{},
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body. An empty body leaves dst zero.
// It writes the error response and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeErrorType(w, http.StatusBadRequest, "Invalid request body", err, "ValidationError")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeErrorType(w, http.StatusBadRequest, "Invalid request", err, "ValidationError")
		return false
	}
	return true
}

// fail maps a service error to a status and writes it. Server-side failures
// are reported to Sentry.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message, kind := classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", r.Method, r.URL.Path, err)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		}
	}
	writeErrorType(w, status, message, err, kind)
}

func classify(err error) (status int, message, kind string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusServiceUnavailable,
			"OpenAI API key not configured. Please add OPENAI_API_KEY to environment variables.", "ConfigurationError"
	case contract.IsNotFound(err):
		return http.StatusNotFound, "Contract not found", "NotFoundError"
	case errors.Is(err, contract.ErrNoInput):
		return http.StatusBadRequest, "No file or text provided", "ValidationError"
	case contract.StageOf(err) == contract.StageText, extract.IsExtractionError(err):
		return http.StatusUnprocessableEntity, "Failed to extract text from file", "TextExtractionError"
	case contract.StageOf(err) == contract.StageAI:
		return http.StatusBadGateway, "AI extraction failed", "AIExtractionError"
	case contract.IsClientError(err), errors.As(err, &verrs):
		return http.StatusBadRequest, "Invalid request", "ValidationError"
	}
	return http.StatusInternalServerError, "Internal error", "InternalError"
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeErrorType(w, status, message, err, "")
}

func writeErrorType(w http.ResponseWriter, status int, message string, err error, kind string) {
	resp := ErrorResponse{Error: message, Type: kind}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
