package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// IntakeRequest is the payload posted by the diagnosis questionnaire.
type IntakeRequest struct {
	Phone             string          `json:"phone" validate:"required,contact"`
	ConsultationType  string          `json:"consultation_type" validate:"required,consultation"`
	Residence         string          `json:"residence" validate:"max=100"`
	AcquisitionSource string          `json:"acquisition_source" validate:"max=50"`
	TestAnswers       json.RawMessage `json:"test_answers,omitempty"`
	DebtInfo          json.RawMessage `json:"debt_info,omitempty"`
}

var validate = newValidator()

// newValidator returns a validator with the intake-specific rules registered.
func newValidator() *validatorv10.Validate {
	v := validatorv10.New()
	_ = v.RegisterValidation("contact", func(fl validatorv10.FieldLevel) bool {
		digits := NormalizeContact(fl.Field().String())
		return len(digits) >= 9 && len(digits) <= 11
	})
	_ = v.RegisterValidation("consultation", func(fl validatorv10.FieldLevel) bool {
		switch ConsultationType(strings.TrimSpace(fl.Field().String())) {
		case ConsultationPhone, ConsultationVisit:
			return true
		}
		return false
	})
	return v
}

// Validate validates the intake request and maps rule failures to package errors.
func (r *IntakeRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	fe := ve[0]
	switch fe.Field() {
	case "Phone":
		if fe.Tag() == "required" {
			return ErrMissingContact
		}
		return ErrInvalidContact
	case "ConsultationType":
		return ErrInvalidConsultationType
	default:
		return fmt.Errorf("%w: %s failed %s", ErrInvalidRequest, strings.ToLower(fe.Field()), fe.Tag())
	}
}

// Normalize validates the request and converts it into a Submission. The
// customer name is assigned later by the pipeline.
func (r *IntakeRequest) Normalize(defaultSource string) (*Submission, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	source := strings.TrimSpace(r.AcquisitionSource)
	if source == "" {
		source = strings.TrimSpace(defaultSource)
	}
	return &Submission{
		Contact:           NormalizeContact(r.Phone),
		ConsultationType:  ConsultationType(strings.TrimSpace(r.ConsultationType)),
		Residence:         strings.TrimSpace(r.Residence),
		AcquisitionSource: source,
		TestAnswers:       compactJSON(r.TestAnswers),
		DebtInfo:          compactJSON(r.DebtInfo),
	}, nil
}

func compactJSON(raw json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return json.RawMessage(trimmed)
}
