package leads

import "errors"

var (
	// ErrMissingContact is returned when the phone number is absent
	ErrMissingContact = errors.New("leads: contact is required")

	// ErrInvalidContact is returned when the phone number has the wrong shape
	ErrInvalidContact = errors.New("leads: contact must be 9-11 digits")

	// ErrInvalidConsultationType is returned for an unknown consultation tag
	ErrInvalidConsultationType = errors.New("leads: unknown consultation type")

	// ErrInvalidRequest covers any other rejected intake field
	ErrInvalidRequest = errors.New("leads: invalid intake request")

	// ErrRecordNotFound is returned when a record is not found
	ErrRecordNotFound = errors.New("leads: record not found")

	ErrInvalidStatus  = errors.New("leads: invalid status")
	ErrInvalidOutcome = errors.New("leads: invalid outcome")
)
