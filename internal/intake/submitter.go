package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/lawfirm-intake/internal/casesystem"
	"github.com/wolfman30/lawfirm-intake/internal/leads"
	"github.com/wolfman30/lawfirm-intake/internal/observability/metrics"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// MaxAttempts is the hard cap on case creation calls per lead.
const MaxAttempts = 3

var submitTracer = otel.Tracer("lawfirm.internal.intake.submitter")

// CaseCreator is the write side of the case system.
type CaseCreator interface {
	CreateCase(ctx context.Context, req casesystem.CaseRequest) (*casesystem.Case, error)
}

// SubmitResult is the terminal result of a submission. On success RemoteID is
// set; otherwise Kind and Detail describe the last attempt's failure.
type SubmitResult struct {
	RemoteID string
	Attempts int
	Kind     casesystem.FailureKind
	Detail   string
	Err      error
}

// Succeeded reports whether any attempt was accepted.
func (r SubmitResult) Succeeded() bool {
	return r.RemoteID != ""
}

// SubmitterConfig tunes the retry loop.
type SubmitterConfig struct {
	// Delay is the fixed pause between attempts.
	Delay time.Duration
	// AttemptTimeout bounds each call; a timeout counts as a network failure.
	AttemptTimeout time.Duration
}

// RetryingSubmitter creates a case with up to MaxAttempts calls.
type RetryingSubmitter struct {
	cases          CaseCreator
	delay          time.Duration
	attemptTimeout time.Duration
	sleep          func(context.Context, time.Duration) error
	logger         *logging.Logger
	metrics        *metrics.PipelineMetrics
}

// NewRetryingSubmitter builds a submitter over cases. The case system
// credential lives in cases and is fixed at construction.
func NewRetryingSubmitter(cases CaseCreator, cfg SubmitterConfig, logger *logging.Logger, m *metrics.PipelineMetrics) *RetryingSubmitter {
	if cases == nil {
		panic("intake: case creator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	return &RetryingSubmitter{
		cases:          cases,
		delay:          cfg.Delay,
		attemptTimeout: cfg.AttemptTimeout,
		sleep:          sleepContext,
		logger:         logger,
		metrics:        m,
	}
}

// WithSleep replaces the delay function (tests).
func (s *RetryingSubmitter) WithSleep(fn func(context.Context, time.Duration) error) *RetryingSubmitter {
	if fn != nil {
		s.sleep = fn
	}
	return s
}

// Submit sends sub to the case system. onAttempt, when non-nil, is called
// before each attempt with its 1-based number.
func (s *RetryingSubmitter) Submit(ctx context.Context, sub *leads.Submission, onAttempt func(attempt int)) SubmitResult {
	req := caseRequest(sub)
	var result SubmitResult
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if onAttempt != nil {
			onAttempt(attempt)
		}
		result.Attempts = attempt

		created, err := s.attempt(ctx, req, attempt)
		if err == nil {
			s.metrics.ObserveAttempt("success")
			result.RemoteID = created.ID
			result.Kind, result.Detail, result.Err = "", "", nil
			if attempt > 1 {
				s.logger.Info("case created after retry", "attempt", attempt, "remote_id", created.ID)
			}
			return result
		}

		result.Kind = casesystem.Classify(err)
		result.Detail = failureDetail(err)
		result.Err = err
		s.metrics.ObserveAttempt(string(result.Kind))
		s.logger.Warn("case submit attempt failed",
			"attempt", attempt,
			"max_attempts", MaxAttempts,
			"failure_kind", result.Kind,
			"status", statusOf(err),
			"contact", logging.MaskPhone(sub.Contact),
			"error", err,
		)

		if attempt == MaxAttempts {
			break
		}
		if sleepErr := s.sleep(ctx, s.delay); sleepErr != nil {
			result.Kind = casesystem.Classify(sleepErr)
			result.Detail = failureDetail(sleepErr)
			result.Err = sleepErr
			break
		}
	}

	s.logger.Error("case submit exhausted",
		"attempts", result.Attempts,
		"failure_kind", result.Kind,
		"contact", logging.MaskPhone(sub.Contact),
	)
	return result
}

func (s *RetryingSubmitter) attempt(ctx context.Context, req casesystem.CaseRequest, attempt int) (*casesystem.Case, error) {
	ctx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	defer cancel()

	ctx, span := submitTracer.Start(ctx, "intake.submit.attempt", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.Int("intake.attempt", attempt),
		attribute.String("lead.acquisition_source", req.AcquisitionSource),
	)

	created, err := s.cases.CreateCase(ctx, req)
	if err == nil && (created == nil || created.ID == "") {
		err = casesystem.ErrMalformedResponse
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(casesystem.Classify(err)))
		return nil, err
	}
	span.SetAttributes(attribute.String("case.id", created.ID))
	return created, nil
}

func caseRequest(sub *leads.Submission) casesystem.CaseRequest {
	return casesystem.CaseRequest{
		CustomerName:      sub.CustomerName,
		Contact:           sub.Contact,
		ConsultationType:  string(sub.ConsultationType),
		Residence:         sub.Residence,
		AcquisitionSource: sub.AcquisitionSource,
		TestAnswers:       sub.TestAnswers,
		DebtInfo:          sub.DebtInfo,
	}
}

func failureDetail(err error) string {
	var apiErr *casesystem.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return fmt.Sprintf("HTTP %d: %s", apiErr.StatusCode, apiErr.Detail)
		}
		if apiErr.Title != "" {
			return fmt.Sprintf("HTTP %d: %s", apiErr.StatusCode, apiErr.Title)
		}
		return fmt.Sprintf("HTTP %d", apiErr.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}

func statusOf(err error) int {
	var apiErr *casesystem.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
