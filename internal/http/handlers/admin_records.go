package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/lawfirm-intake/internal/http/middleware"
	"github.com/wolfman30/lawfirm-intake/internal/leads"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// AdminRecordsHandler exposes the Record Store to the admin dashboard.
type AdminRecordsHandler struct {
	records leads.Repository
	loc     *time.Location
	logger  *logging.Logger
}

// NewAdminRecordsHandler creates a new admin records handler. Timestamps are
// rendered in loc.
func NewAdminRecordsHandler(records leads.Repository, loc *time.Location, logger *logging.Logger) *AdminRecordsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AdminRecordsHandler{records: records, loc: loc, logger: logger}
}

// RecordResponse represents a record in API responses.
type RecordResponse struct {
	ID                string          `json:"id"`
	CustomerName      string          `json:"customer_name"`
	Contact           string          `json:"contact"`
	ConsultationType  string          `json:"consultation_type"`
	Residence         string          `json:"residence,omitempty"`
	AcquisitionSource string          `json:"acquisition_source"`
	Status            string          `json:"status"`
	RemoteID          string          `json:"remote_id,omitempty"`
	IsDuplicate       bool            `json:"is_duplicate"`
	DuplicateCount    int             `json:"duplicate_count"`
	Attempts          int             `json:"attempts"`
	ErrorKind         string          `json:"error_kind,omitempty"`
	ErrorDetail       string          `json:"error_detail,omitempty"`
	TestAnswers       json.RawMessage `json:"test_answers,omitempty"`
	DebtInfo          json.RawMessage `json:"debt_info,omitempty"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
	CreatedAtUTC      time.Time       `json:"created_at_utc"`
}

// RecordsListResponse is a newest-first page of records.
type RecordsListResponse struct {
	Records    []RecordResponse `json:"records"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// OutcomePatch is a manual outcome correction.
type OutcomePatch struct {
	Status         string `json:"status"`
	RemoteID       string `json:"remote_id"`
	IsDuplicate    bool   `json:"is_duplicate"`
	DuplicateCount int    `json:"duplicate_count"`
	Attempts       int    `json:"attempts"`
	ErrorKind      string `json:"error_kind"`
	ErrorDetail    string `json:"error_detail"`
}

func (p OutcomePatch) outcome() leads.Outcome {
	return leads.Outcome{
		Status:         leads.Status(p.Status),
		RemoteID:       p.RemoteID,
		IsDuplicate:    p.IsDuplicate,
		DuplicateCount: p.DuplicateCount,
		Attempts:       p.Attempts,
		ErrorKind:      p.ErrorKind,
		ErrorDetail:    p.ErrorDetail,
	}
}

// ListRecords returns every record, newest first. Without page/page_size the
// whole set is returned.
// GET /admin/records
func (h *AdminRecordsHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	all, err := h.records.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list records", "error", err)
		jsonError(w, "failed to list records", http.StatusInternalServerError)
		return
	}

	total := len(all)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = total
	} else if pageSize > 100 {
		pageSize = 100
	}

	window := all
	if pageSize > 0 {
		window = nil
		// page-1 is compared before multiplying so a huge page cannot overflow.
		if page-1 < (total+pageSize-1)/pageSize {
			start := (page - 1) * pageSize
			end := min(start+pageSize, total)
			window = all[start:end]
		}
	}

	out := make([]RecordResponse, 0, len(window))
	for _, rec := range window {
		out = append(out, h.toResponse(rec))
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	writeJSON(w, http.StatusOK, RecordsListResponse{
		Records:    out,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// GetRecord returns one record.
// GET /admin/records/{id}
func (h *AdminRecordsHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(rec))
}

// UpdateRecord applies a manual outcome correction.
// PATCH /admin/records/{id}
func (h *AdminRecordsHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	h.applyPatch(w, r, chi.URLParam(r, "id"))
}

// UpdateRecordByPhone corrects the most recent record for a contact.
// PATCH /admin/records/by-phone/{phone}
func (h *AdminRecordsHandler) UpdateRecordByPhone(w http.ResponseWriter, r *http.Request) {
	contact := leads.NormalizeContact(chi.URLParam(r, "phone"))
	if contact == "" {
		jsonError(w, "missing phone", http.StatusBadRequest)
		return
	}
	rec, err := h.records.FindLatestByContact(r.Context(), contact)
	if err != nil {
		h.storeError(w, err, "failed to find record by contact")
		return
	}
	h.applyPatch(w, r, rec.ID)
}

func (h *AdminRecordsHandler) applyPatch(w http.ResponseWriter, r *http.Request, id string) {
	var patch OutcomePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	outcome := patch.outcome()
	if err := outcome.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.records.Update(r.Context(), id, outcome); err != nil {
		h.storeError(w, err, "failed to update record")
		return
	}
	h.logger.Info("record corrected",
		"record_id", id,
		"status", outcome.Status,
		"corrected_by", correctedBy(r),
	)

	rec, err := h.records.GetByID(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(rec))
}

// correctedBy names the admin session subject behind a correction.
func correctedBy(r *http.Request) string {
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok && claims.Subject != "" {
		return claims.Subject
	}
	return "unknown"
}

func (h *AdminRecordsHandler) storeError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, leads.ErrRecordNotFound) {
		jsonError(w, "record not found", http.StatusNotFound)
		return
	}
	h.logger.Error(message, "error", err)
	jsonError(w, message, http.StatusInternalServerError)
}

func (h *AdminRecordsHandler) toResponse(rec *leads.Record) RecordResponse {
	return RecordResponse{
		ID:                rec.ID,
		CustomerName:      rec.CustomerName,
		Contact:           rec.Contact,
		ConsultationType:  string(rec.ConsultationType),
		Residence:         rec.Residence,
		AcquisitionSource: rec.AcquisitionSource,
		Status:            string(rec.Status),
		RemoteID:          rec.RemoteID,
		IsDuplicate:       rec.IsDuplicate,
		DuplicateCount:    rec.DuplicateCount,
		Attempts:          rec.Attempts,
		ErrorKind:         rec.ErrorKind,
		ErrorDetail:       rec.ErrorDetail,
		TestAnswers:       rec.TestAnswers,
		DebtInfo:          rec.DebtInfo,
		CreatedAt:         leads.DisplayTime(rec.CreatedAt, h.loc),
		UpdatedAt:         leads.DisplayTime(rec.UpdatedAt, h.loc),
		CreatedAtUTC:      rec.CreatedAt.UTC(),
	}
}
