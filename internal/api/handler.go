package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/eugenenazirov/kerf-planner/internal/cutlist"
	"github.com/eugenenazirov/kerf-planner/internal/cutplan"
	"github.com/eugenenazirov/kerf-planner/internal/dispatch"
	"github.com/eugenenazirov/kerf-planner/internal/export"
	"github.com/eugenenazirov/kerf-planner/internal/planner"
	"github.com/eugenenazirov/kerf-planner/internal/service"
	"github.com/eugenenazirov/kerf-planner/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const defaultMaxUploadBytes = 10 << 20

// PlanService computes plans for the handlers.
type PlanService interface {
	Plan(ctx context.Context, req service.Request) (cutplan.Plan, error)
	PlanDocuments(ctx context.Context, docs []cutlist.Document, overrides service.Overrides) ([]cutplan.Plan, error)
}

// JobQueue runs plans in the background.
type JobQueue interface {
	Submit(req dispatch.Request) (dispatch.Job, error)
	Get(id string) (dispatch.Job, error)
	Cancel(id string) (dispatch.Job, error)
}

// Handler wires the planning service, storage and job queue into HTTP handlers.
type Handler struct {
	plans   PlanService
	storage storage.Storage
	jobs    JobQueue

	clock          func() time.Time
	maxUploadBytes int64

	mu                  sync.RWMutex
	parametersUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithJobQueue enables the background job endpoints.
func WithJobQueue(jobs JobQueue) HandlerOption {
	return func(h *Handler) {
		h.jobs = jobs
	}
}

// WithMaxUploadBytes limits the size of cut list uploads.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(plans PlanService, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		plans:          plans,
		storage:        store,
		maxUploadBytes: defaultMaxUploadBytes,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.parametersUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	_ = r
	params, err := h.storage.GetParameters()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, parametersResponse{
		Params:    params,
		UpdatedAt: h.currentParametersUpdatedAt(),
	})
}

func (h *Handler) handlePutParameters(w http.ResponseWriter, r *http.Request) {
	var req service.Overrides
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	current, err := h.storage.GetParameters()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	if err := h.storage.SetParameters(req.Apply(current)); err != nil {
		if errors.Is(err, storage.ErrInvalidParameters) {
			writeError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markParametersUpdated()

	params, err := h.storage.GetParameters()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, parametersResponse{
		Params:    params,
		UpdatedAt: h.currentParametersUpdatedAt(),
		Message:   "Parameters updated successfully",
	})
}

func (h *Handler) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	start := time.Now()
	plan, err := h.plans.Plan(r.Context(), service.Request{
		Name:      req.Name,
		Pieces:    req.Pieces,
		Overrides: req.Overrides,
	})
	elapsed := time.Since(start)
	if err != nil {
		writePlanError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, planResponse{
		Plan:              plan,
		CalculationTimeMs: elapsed.Milliseconds(),
	})
}

func (h *Handler) handleUploadPlans(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadBytes {
		writeUploadTooLarge(w, h.maxUploadBytes)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeUploadTooLarge(w, h.maxUploadBytes)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request", "expected multipart form with cut list files")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	overrides, err := formOverrides(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}

	headers := slices.Concat(r.MultipartForm.File["files"], r.MultipartForm.File["file"])
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "no files uploaded",
			"Attach one or more .json, .yaml, .csv or .xlsx cut lists as 'files'")
		return
	}

	docs := make([]cutlist.Document, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			writeInternalError(w, err)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeInternalError(w, err)
			return
		}

		doc, err := cutlist.Parse(header.Filename, data)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid cut list", err.Error())
			return
		}
		docs = append(docs, doc)
	}

	start := time.Now()
	plans, err := h.plans.PlanDocuments(r.Context(), docs, overrides)
	elapsed := time.Since(start)
	if err != nil {
		writePlanError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Plans:             plans,
		CalculationTimeMs: elapsed.Milliseconds(),
	})
}

func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	_ = r
	plans, err := h.storage.ListPlans()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	items := make([]planListItem, len(plans))
	for i, p := range plans {
		items[i] = planListItem{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt, Summary: p.Summary}
	}
	writeJSON(w, http.StatusOK, planListResponse{Plans: items})
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.lookupPlan(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) handleGetPlanPDF(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.lookupPlan(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, plan); err != nil {
		if errors.Is(err, export.ErrEmptyPlan) {
			writeError(w, http.StatusUnprocessableEntity, "Nothing to print", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "cut-plan-"+plan.ID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "Jobs disabled", "background planning is not configured")
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "documents must contain at least one cut list")
		return
	}

	job, err := h.jobs.Submit(dispatch.Request{Documents: req.Documents, Overrides: req.Overrides})
	if err != nil {
		if errors.Is(err, dispatch.ErrQueueFull) || errors.Is(err, dispatch.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, "Busy", err.Error(), "Retry the job shortly")
			return
		}
		writeInternalError(w, err)
		return
	}

	w.Header().Set("Location", "/api/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	h.jobAction(w, r, func(id string) (dispatch.Job, error) { return h.jobs.Get(id) })
}

func (h *Handler) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	h.jobAction(w, r, func(id string) (dispatch.Job, error) { return h.jobs.Cancel(id) })
}

func (h *Handler) jobAction(w http.ResponseWriter, r *http.Request, action func(string) (dispatch.Job, error)) {
	if h.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "Jobs disabled", "background planning is not configured")
		return
	}

	job, err := action(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, dispatch.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) lookupPlan(w http.ResponseWriter, r *http.Request) (cutplan.Plan, bool) {
	plan, err := h.storage.GetPlan(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, "Plan not found", err.Error())
			return cutplan.Plan{}, false
		}
		writeInternalError(w, err)
		return cutplan.Plan{}, false
	}
	return plan, true
}

func (h *Handler) currentParametersUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.parametersUpdatedAt
}

func (h *Handler) markParametersUpdated() {
	h.mu.Lock()
	h.parametersUpdatedAt = h.clock()
	h.mu.Unlock()
}

func formOverrides(r *http.Request) (service.Overrides, error) {
	var o service.Overrides
	if raw := r.FormValue("stockLength"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return o, fmt.Errorf("stockLength: invalid number %q", raw)
		}
		o.Limit = &v
	}
	if raw := r.FormValue("kerf"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return o, fmt.Errorf("kerf: invalid number %q", raw)
		}
		o.Kerf = &v
	}
	if raw := r.FormValue("precision"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return o, fmt.Errorf("precision: invalid integer %q", raw)
		}
		o.Precision = &v
	}
	return o, nil
}

func writeUploadTooLarge(w http.ResponseWriter, limit int64) {
	writeError(w, http.StatusRequestEntityTooLarge, "Upload too large",
		fmt.Sprintf("uploads are limited to %d bytes", limit))
}

func writePlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, service.ErrOversizedPieces):
		writeError(w, http.StatusUnprocessableEntity, "Pieces do not fit the stock", err.Error(),
			"Use longer stock, a narrower kerf, or split the listed pieces")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "Request cancelled", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type planRequest struct {
	Name   string          `json:"name"`
	Pieces []cutlist.Piece `json:"pieces"`
	service.Overrides
}

type jobRequest struct {
	Documents []cutlist.Document `json:"documents"`
	service.Overrides
}

type planResponse struct {
	cutplan.Plan
	CalculationTimeMs int64 `json:"calculationTimeMs"`
}

type uploadResponse struct {
	Plans             []cutplan.Plan `json:"plans"`
	CalculationTimeMs int64          `json:"calculationTimeMs"`
}

type planListItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	Summary   cutplan.Summary `json:"summary"`
}

type planListResponse struct {
	Plans []planListItem `json:"plans"`
}

type parametersResponse struct {
	planner.Params
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
