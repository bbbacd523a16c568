package leads

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     IntakeRequest
		wantErr error
	}{
		{
			name: "valid mobile",
			req:  IntakeRequest{Phone: "010-1234-5678", ConsultationType: "phone-consultation"},
		},
		{
			name: "valid international",
			req:  IntakeRequest{Phone: "+82 10 1234 5678", ConsultationType: "visit-consultation"},
		},
		{
			name:    "missing phone",
			req:     IntakeRequest{ConsultationType: "phone-consultation"},
			wantErr: ErrMissingContact,
		},
		{
			name:    "short phone",
			req:     IntakeRequest{Phone: "1234", ConsultationType: "phone-consultation"},
			wantErr: ErrInvalidContact,
		},
		{
			name:    "unknown consultation",
			req:     IntakeRequest{Phone: "01012345678", ConsultationType: "video"},
			wantErr: ErrInvalidConsultationType,
		},
		{
			name:    "missing consultation",
			req:     IntakeRequest{Phone: "01012345678"},
			wantErr: ErrInvalidConsultationType,
		},
		{
			name: "residence too long",
			req: IntakeRequest{
				Phone:            "01012345678",
				ConsultationType: "phone-consultation",
				Residence:        string(make([]byte, 101)),
			},
			wantErr: ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestIntakeRequest_Normalize(t *testing.T) {
	req := IntakeRequest{
		Phone:            "+82-10-1234-5678",
		ConsultationType: " visit-consultation ",
		Residence:        " Seoul ",
		TestAnswers:      []byte(` {"q1":"yes"} `),
		DebtInfo:         []byte("null"),
	}

	sub, err := req.Normalize("homepage")
	require.NoError(t, err)
	assert.Equal(t, "01012345678", sub.Contact)
	assert.Equal(t, ConsultationVisit, sub.ConsultationType)
	assert.Equal(t, "Seoul", sub.Residence)
	assert.Equal(t, "homepage", sub.AcquisitionSource)
	assert.JSONEq(t, `{"q1":"yes"}`, string(sub.TestAnswers))
	assert.Nil(t, sub.DebtInfo)
	assert.Empty(t, sub.CustomerName)
}

func TestIntakeRequest_NormalizeKeepsExplicitSource(t *testing.T) {
	req := IntakeRequest{Phone: "01012345678", ConsultationType: "phone-consultation", AcquisitionSource: "naver"}
	sub, err := req.Normalize("homepage")
	require.NoError(t, err)
	assert.Equal(t, "naver", sub.AcquisitionSource)
}

func TestNormalizeContact(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"010-1234-5678":     "01012345678",
		"(02) 123 4567":     "021234567",
		"+82 10-1234-5678":  "01012345678",
		"+82 010 1234 5678": "01012345678",
		"+1 415 555 0100":   "14155550100",
	}
	for in, want := range cases {
		if got := NormalizeContact(in); got != want {
			t.Errorf("NormalizeContact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOutcome_Validate(t *testing.T) {
	assert.NoError(t, Outcome{Status: StatusSubmitted, RemoteID: "c-1", DuplicateCount: 1, Attempts: 1}.Validate())
	assert.NoError(t, Outcome{Status: StatusDuplicateSubmitted, RemoteID: "c-2", IsDuplicate: true, DuplicateCount: 2, Attempts: 2}.Validate())
	assert.ErrorIs(t, Outcome{Status: StatusFailed, Attempts: 4}.Validate(), ErrInvalidOutcome)
	assert.ErrorIs(t, Outcome{Status: StatusDuplicateSubmitted, IsDuplicate: true}.Validate(), ErrInvalidOutcome)
	assert.ErrorIs(t, Outcome{Status: "unknown"}.Validate(), ErrInvalidStatus)
	assert.ErrorIs(t, Outcome{Status: StatusFailed, RemoteID: "c-3", Attempts: 3}.Validate(), ErrInvalidOutcome)
	assert.ErrorIs(t, Outcome{Status: StatusSubmitted, Attempts: 1, DuplicateCount: 1}.Validate(), ErrInvalidOutcome)
	assert.ErrorIs(t, Outcome{Status: StatusDuplicateSubmitted, RemoteID: " ", IsDuplicate: true, DuplicateCount: 2}.Validate(), ErrInvalidOutcome)
}
