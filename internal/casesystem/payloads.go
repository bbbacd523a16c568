package casesystem

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// CaseRequest is the body of a case creation call.
type CaseRequest struct {
	CustomerName      string          `json:"customer_name"`
	Contact           string          `json:"contact"`
	ConsultationType  string          `json:"consultation_type"`
	Residence         string          `json:"residence,omitempty"`
	AcquisitionSource string          `json:"acquisition_source,omitempty"`
	TestAnswers       json.RawMessage `json:"test_answers,omitempty"`
	DebtInfo          json.RawMessage `json:"debt_info,omitempty"`
}

func (r CaseRequest) validate() error {
	if strings.TrimSpace(r.Contact) == "" {
		return errors.New("casesystem: contact required")
	}
	if strings.TrimSpace(r.ConsultationType) == "" {
		return errors.New("casesystem: consultation type required")
	}
	return nil
}

// Case is a case as reported by the case system.
type Case struct {
	ID            string    `json:"id"`
	Contact       string    `json:"contact,omitempty"`
	Status        string    `json:"status,omitempty"`
	AssignedStaff string    `json:"assigned_staff,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// CaseList is the answer of a list-by-contact call.
type CaseList struct {
	Count int    `json:"count"`
	Cases []Case `json:"cases"`
}

// LatestAssignedStaff returns the staff member on the most recent case that has one.
func (l *CaseList) LatestAssignedStaff() (string, bool) {
	if l == nil {
		return "", false
	}
	var (
		name   string
		latest time.Time
		found  bool
	)
	for _, c := range l.Cases {
		staff := strings.TrimSpace(c.AssignedStaff)
		if staff == "" {
			continue
		}
		if !found || c.CreatedAt.After(latest) {
			name, latest, found = staff, c.CreatedAt, true
		}
	}
	return name, found
}

// decodeCase accepts either a bare object or one wrapped in "data".
func decodeCase(body []byte) (*Case, error) {
	var wrapper struct {
		Case
		Data *Case `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}
	out := wrapper.Case
	if wrapper.Data != nil {
		out = *wrapper.Data
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, ErrMalformedResponse
	}
	return &out, nil
}

func decodeCaseList(body []byte) (*CaseList, error) {
	var wrapper struct {
		Count *int   `json:"count"`
		Cases []Case `json:"cases"`
		Data  *struct {
			Count *int   `json:"count"`
			Cases []Case `json:"cases"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}
	count, cases := wrapper.Count, wrapper.Cases
	if wrapper.Data != nil {
		count, cases = wrapper.Data.Count, wrapper.Data.Cases
	}
	if count == nil {
		if cases == nil {
			return nil, ErrMalformedResponse
		}
		n := len(cases)
		count = &n
	}
	if *count < 0 {
		return nil, ErrMalformedResponse
	}
	return &CaseList{Count: *count, Cases: cases}, nil
}
