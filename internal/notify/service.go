package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/lawfirm-intake/internal/casesystem"
	"github.com/wolfman30/lawfirm-intake/internal/leads"
	"github.com/wolfman30/lawfirm-intake/internal/observability/metrics"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// Kind tells success and failure notifications apart.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

// Severity ranks failure notifications.
type Severity string

const (
	SeverityNone   Severity = ""
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityFor derives the severity tag of a failure kind.
func SeverityFor(kind casesystem.FailureKind) Severity {
	switch kind {
	case casesystem.AuthFailure:
		return SeverityHigh
	case casesystem.NetworkFailure:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Message is one composed notification.
type Message struct {
	Kind     Kind
	Severity Severity
	Subject  string
	Text     string
	RecordID string
}

// Channel delivers a composed message somewhere staff will read it.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// StaffDirectory resolves the staff member already handling a contact.
type StaffDirectory interface {
	AssignedStaff(ctx context.Context, contact string) leads.Lookup[string]
}

// Service composes and sends pipeline notifications to staff.
type Service struct {
	channel Channel
	staff   StaffDirectory
	logger  *logging.Logger
	metrics *metrics.PipelineMetrics
	loc     *time.Location
}

// Option customizes a Service.
type Option func(*Service)

// WithStaffDirectory enables the assigned-staff line on duplicate notifications.
func WithStaffDirectory(dir StaffDirectory) Option {
	return func(s *Service) { s.staff = dir }
}

// WithMetrics records delivery results.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLocation sets the timezone used for timestamps in messages.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService creates a notification service.
func NewService(channel Channel, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if channel == nil {
		channel = NewLogChannel(logger)
	}
	s := &Service{
		channel: channel,
		logger:  logger,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify composes exactly one message for the resolved record and sends it.
// Delivery failures are logged and reported through the return value only.
func (s *Service) Notify(ctx context.Context, rec *leads.Record) (Message, bool) {
	msg := s.Compose(ctx, rec)
	if err := s.channel.Send(ctx, msg); err != nil {
		s.logger.Warn("notify: delivery failed",
			"error", err,
			"kind", msg.Kind,
			"record_id", msg.RecordID,
		)
		s.metrics.ObserveNotification(string(msg.Kind), false)
		return msg, false
	}
	s.logger.Info("notify: sent", "kind", msg.Kind, "severity", msg.Severity, "record_id", msg.RecordID)
	s.metrics.ObserveNotification(string(msg.Kind), true)
	return msg, true
}

// Compose builds the notification for rec without sending it.
func (s *Service) Compose(ctx context.Context, rec *leads.Record) Message {
	if rec.Status == leads.StatusFailed {
		return s.composeFailure(rec)
	}
	return s.composeSuccess(ctx, rec)
}

func (s *Service) composeSuccess(ctx context.Context, rec *leads.Record) Message {
	var b strings.Builder
	subject := fmt.Sprintf("✅ New lead - %s", rec.CustomerName)
	if rec.IsDuplicate {
		subject = fmt.Sprintf("🔁 Returning lead - %s (submission #%d)", rec.CustomerName, rec.DuplicateCount)
	}
	b.WriteString(subject)
	s.writeCommon(&b, rec)
	fmt.Fprintf(&b, "\nAttempts: %d", rec.Attempts)
	if rec.RemoteID != "" {
		fmt.Fprintf(&b, "\nCase ID: %s", rec.RemoteID)
	}
	if rec.IsDuplicate {
		fmt.Fprintf(&b, "\nDuplicate count: %d", rec.DuplicateCount)
		if staff := s.lookupStaff(ctx, rec.Contact); staff.OK {
			fmt.Fprintf(&b, "\nAssigned staff: %s", staff.Value)
		}
	}
	return Message{
		Kind:     KindSuccess,
		Subject:  subject,
		Text:     b.String(),
		RecordID: rec.ID,
	}
}

func (s *Service) composeFailure(rec *leads.Record) Message {
	kind := casesystem.FailureKind(rec.ErrorKind)
	if kind == "" {
		kind = casesystem.UnknownFailure
	}
	severity := SeverityFor(kind)

	var b strings.Builder
	subject := fmt.Sprintf("🚨 [%s] Lead submission failed - %s", strings.ToUpper(string(severity)), rec.CustomerName)
	b.WriteString(subject)
	s.writeCommon(&b, rec)
	fmt.Fprintf(&b, "\nContact: %s", rec.Contact)
	fmt.Fprintf(&b, "\nError: %s", kind)
	if detail := strings.TrimSpace(rec.ErrorDetail); detail != "" {
		fmt.Fprintf(&b, " (%s)", truncate(detail, 200))
	}
	fmt.Fprintf(&b, "\nAttempts: %d", rec.Attempts)
	fmt.Fprintf(&b, "\nRecord: %s", rec.ID)
	b.WriteString("\nThe lead is saved locally. Please register the case manually.")
	return Message{
		Kind:     KindFailure,
		Severity: severity,
		Subject:  subject,
		Text:     b.String(),
		RecordID: rec.ID,
	}
}

func (s *Service) writeCommon(b *strings.Builder, rec *leads.Record) {
	fmt.Fprintf(b, "\nCustomer: %s", rec.CustomerName)
	fmt.Fprintf(b, "\nConsultation: %s", rec.ConsultationType)
	fmt.Fprintf(b, "\nSource: %s", rec.AcquisitionSource)
	if rec.Residence != "" {
		fmt.Fprintf(b, "\nResidence: %s", rec.Residence)
	}
	if received := leads.DisplayTime(rec.CreatedAt, s.loc); received != "" {
		fmt.Fprintf(b, "\nReceived: %s", received)
	}
}

func (s *Service) lookupStaff(ctx context.Context, contact string) leads.Lookup[string] {
	if s.staff == nil {
		return leads.Missing[string]()
	}
	return s.staff.AssignedStaff(ctx, contact)
}

// truncate keeps at most maxLen runes so multi-byte text is never split.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
