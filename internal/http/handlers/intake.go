package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/lawfirm-intake/internal/intake"
	"github.com/wolfman30/lawfirm-intake/internal/leads"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// LeadSubmitter runs an accepted lead through the submission pipeline.
type LeadSubmitter interface {
	SubmitLead(ctx context.Context, sub *leads.Submission) (*intake.Result, error)
}

// IntakeHandler serves the public questionnaire endpoint.
type IntakeHandler struct {
	pipeline      LeadSubmitter
	defaultSource string
	logger        *logging.Logger
}

// NewIntakeHandler creates the intake handler. defaultSource tags leads that
// arrive without an acquisition source.
func NewIntakeHandler(pipeline LeadSubmitter, defaultSource string, logger *logging.Logger) *IntakeHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &IntakeHandler{pipeline: pipeline, defaultSource: defaultSource, logger: logger}
}

// IntakeResponse reports how a submission resolved. Raw transport errors are
// never included.
type IntakeResponse struct {
	ID             string `json:"id"`
	CustomerName   string `json:"customer_name"`
	Status         string `json:"status"`
	Attempts       int    `json:"attempts"`
	IsDuplicate    bool   `json:"is_duplicate"`
	DuplicateCount int    `json:"duplicate_count"`
	ErrorKind      string `json:"error_kind,omitempty"`
	Notified       bool   `json:"notified"`
}

// Submit accepts a questionnaire submission.
// POST /api/leads
func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req leads.IntakeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	sub, err := req.Normalize(h.defaultSource)
	if err != nil {
		jsonError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	res, err := h.pipeline.SubmitLead(r.Context(), sub)
	if res == nil {
		h.logger.Error("lead intake failed", "contact", logging.MaskPhone(sub.Contact), "error", err)
		jsonError(w, "lead may not have been saved", http.StatusInternalServerError)
		return
	}
	if err != nil {
		// The remote outcome is known but could not be persisted.
		h.logger.Error("lead outcome not persisted", "record_id", res.Record.ID, "error", err)
		jsonError(w, "lead may not have been saved", http.StatusInternalServerError)
		return
	}

	rec := res.Record
	status := http.StatusCreated
	if rec.Status == leads.StatusFailed {
		status = http.StatusAccepted
	}
	writeJSON(w, status, IntakeResponse{
		ID:             rec.ID,
		CustomerName:   rec.CustomerName,
		Status:         string(rec.Status),
		Attempts:       rec.Attempts,
		IsDuplicate:    rec.IsDuplicate,
		DuplicateCount: rec.DuplicateCount,
		ErrorKind:      rec.ErrorKind,
		Notified:       res.Notified,
	})
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, leads.ErrMissingContact):
		return "phone is required"
	case errors.Is(err, leads.ErrInvalidContact):
		return "phone must contain 9 to 11 digits"
	case errors.Is(err, leads.ErrInvalidConsultationType):
		return "consultation_type must be phone-consultation or visit-consultation"
	default:
		return "invalid intake request"
	}
}
