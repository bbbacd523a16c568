package leads

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ConsultationType tags how the visitor wants to be consulted.
type ConsultationType string

const (
	ConsultationPhone ConsultationType = "phone-consultation"
	ConsultationVisit ConsultationType = "visit-consultation"
)

// Status is the resolved state of a submission.
type Status string

const (
	// StatusPending marks a record created at intake whose remote outcome is not known yet.
	StatusPending            Status = "pending"
	StatusSubmitted          Status = "submitted"
	StatusDuplicateSubmitted Status = "duplicate-submitted"
	StatusFailed             Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusDuplicateSubmitted, StatusFailed:
		return true
	}
	return false
}

// Submission is a normalized lead as accepted at intake.
type Submission struct {
	Contact           string           `json:"contact"`
	ConsultationType  ConsultationType `json:"consultation_type"`
	Residence         string           `json:"residence,omitempty"`
	AcquisitionSource string           `json:"acquisition_source"`
	CustomerName      string           `json:"customer_name"`
	NameSuffix        int              `json:"name_suffix,omitempty"`
	TestAnswers       json.RawMessage  `json:"test_answers,omitempty"`
	DebtInfo          json.RawMessage  `json:"debt_info,omitempty"`
}

// Outcome is attached to a record once the pipeline resolves.
type Outcome struct {
	Status         Status `json:"status"`
	RemoteID       string `json:"remote_id,omitempty"`
	IsDuplicate    bool   `json:"is_duplicate"`
	DuplicateCount int    `json:"duplicate_count"`
	Attempts       int    `json:"attempts"`
	ErrorKind      string `json:"error_kind,omitempty"`
	ErrorDetail    string `json:"error_detail,omitempty"`
}

// Validate checks the cross-field rules of an outcome.
func (o Outcome) Validate() error {
	if !o.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, o.Status)
	}
	if o.Attempts < 0 || o.Attempts > 3 {
		return fmt.Errorf("%w: attempts %d", ErrInvalidOutcome, o.Attempts)
	}
	if o.IsDuplicate && o.DuplicateCount < 1 {
		return fmt.Errorf("%w: duplicate count must be >= 1", ErrInvalidOutcome)
	}
	switch o.Status {
	case StatusFailed, StatusPending:
		if o.RemoteID != "" {
			return fmt.Errorf("%w: %s outcome cannot carry a remote id", ErrInvalidOutcome, o.Status)
		}
	case StatusSubmitted, StatusDuplicateSubmitted:
		if strings.TrimSpace(o.RemoteID) == "" {
			return fmt.Errorf("%w: %s outcome requires a remote id", ErrInvalidOutcome, o.Status)
		}
	}
	return nil
}

// Record is the Record Store entry for one submission.
type Record struct {
	ID  string `json:"id"`
	Seq int64  `json:"-"`
	Submission
	Outcome
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.TestAnswers = append(json.RawMessage(nil), r.TestAnswers...)
	cp.DebtInfo = append(json.RawMessage(nil), r.DebtInfo...)
	return &cp
}

// newer reports whether r sorts before other in newest-first order.
func (r *Record) newer(other *Record) bool {
	if !r.CreatedAt.Equal(other.CreatedAt) {
		return r.CreatedAt.After(other.CreatedAt)
	}
	if r.Seq != other.Seq {
		return r.Seq > other.Seq
	}
	return r.ID > other.ID
}

// CustomerName builds the auto-numbered display name for a source.
func CustomerName(source string, suffix int) string {
	return fmt.Sprintf("%s%d", strings.TrimSpace(source), suffix)
}

// DisplayTime converts a stored UTC instant for presentation.
func DisplayTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02 15:04:05 MST")
}
