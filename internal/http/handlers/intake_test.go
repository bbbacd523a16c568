package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lawfirm-intake/internal/intake"
	"github.com/wolfman30/lawfirm-intake/internal/leads"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

type stubPipeline struct {
	got    *leads.Submission
	result *intake.Result
	err    error
}

func (s *stubPipeline) SubmitLead(ctx context.Context, sub *leads.Submission) (*intake.Result, error) {
	s.got = sub
	return s.result, s.err
}

func resultWith(outcome leads.Outcome) *intake.Result {
	return &intake.Result{
		Record: &leads.Record{
			ID:         "rec-1",
			Submission: leads.Submission{CustomerName: "naver3"},
			Outcome:    outcome,
		},
		Notified: true,
	}
}

func postLead(t *testing.T, h *IntakeHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Submit(rec, req)
	return rec
}

const validBody = `{"phone":"010-1234-5678","consultation_type":"phone-consultation","residence":"Seoul","acquisition_source":"naver"}`

func TestIntakeSubmit_Created(t *testing.T) {
	pipeline := &stubPipeline{result: resultWith(leads.Outcome{Status: leads.StatusSubmitted, RemoteID: "case-1", Attempts: 1, DuplicateCount: 1})}
	h := NewIntakeHandler(pipeline, "website", logging.Default())

	rec := postLead(t, h, validBody)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp IntakeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "submitted", resp.Status)
	assert.Equal(t, "naver3", resp.CustomerName)
	assert.Equal(t, 1, resp.Attempts)
	assert.True(t, resp.Notified)

	require.NotNil(t, pipeline.got)
	assert.Equal(t, "01012345678", pipeline.got.Contact)
	assert.Equal(t, leads.ConsultationPhone, pipeline.got.ConsultationType)
}

func TestIntakeSubmit_DefaultSource(t *testing.T) {
	pipeline := &stubPipeline{result: resultWith(leads.Outcome{Status: leads.StatusSubmitted, Attempts: 1, DuplicateCount: 1})}
	h := NewIntakeHandler(pipeline, "website", nil)

	postLead(t, h, `{"phone":"01012345678","consultation_type":"visit-consultation"}`)

	require.NotNil(t, pipeline.got)
	assert.Equal(t, "website", pipeline.got.AcquisitionSource)
}

func TestIntakeSubmit_FailedIsAccepted(t *testing.T) {
	pipeline := &stubPipeline{result: resultWith(leads.Outcome{
		Status:         leads.StatusFailed,
		Attempts:       3,
		DuplicateCount: 1,
		ErrorKind:      "auth",
		ErrorDetail:    "HTTP 401: dial tcp 10.0.0.5:443",
	})}
	h := NewIntakeHandler(pipeline, "website", nil)

	rec := postLead(t, h, validBody)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error_kind":"auth"`)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5", "transport detail must not leak")
}

func TestIntakeSubmit_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{"phone":`, "invalid JSON body"},
		{"unknown field", `{"phone":"01012345678","consultation_type":"phone-consultation","ssn":"1"}`, "invalid JSON body"},
		{"missing phone", `{"consultation_type":"phone-consultation"}`, "phone is required"},
		{"short phone", `{"phone":"1234","consultation_type":"phone-consultation"}`, "phone must contain 9 to 11 digits"},
		{"bad consultation", `{"phone":"01012345678","consultation_type":"email"}`, "consultation_type must be phone-consultation or visit-consultation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &stubPipeline{}
			rec := postLead(t, NewIntakeHandler(pipeline, "website", nil), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["error"])
			assert.Nil(t, pipeline.got, "pipeline must not run for invalid input")
		})
	}
}

func TestIntakeSubmit_StoreFailure(t *testing.T) {
	cases := []struct {
		name   string
		result *intake.Result
	}{
		{"create failed", nil},
		{"update failed", resultWith(leads.Outcome{Status: leads.StatusSubmitted, Attempts: 1, DuplicateCount: 1})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pipeline := &stubPipeline{
				result: tc.result,
				err:    fmt.Errorf("%w: %v", intake.ErrRecordNotSaved, errors.New("connection reset by peer")),
			}
			rec := postLead(t, NewIntakeHandler(pipeline, "website", nil), validBody)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Contains(t, rec.Body.String(), "lead may not have been saved")
			assert.NotContains(t, rec.Body.String(), "connection reset")
		})
	}
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	jsonError(rec, "oops", http.StatusTeapot)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content type application/json, got %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode json response: %v", err)
	}
	if body["error"] != "oops" {
		t.Fatalf("unexpected error message %q", body["error"])
	}
}
