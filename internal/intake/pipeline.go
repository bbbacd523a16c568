package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/lawfirm-intake/internal/leads"
	"github.com/wolfman30/lawfirm-intake/internal/notify"
	"github.com/wolfman30/lawfirm-intake/internal/observability/metrics"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// ErrRecordNotSaved means the record store rejected a write; the lead may be lost.
var ErrRecordNotSaved = errors.New("intake: lead may not have been saved")

// State is a step of the submission state machine.
type State string

const (
	StateIntake         State = "INTAKE"
	StateDuplicateCheck State = "DUPLICATE_CHECK"
	StateSubmitting     State = "SUBMITTING"
	StateSuccess        State = "SUCCESS"
	StateExhausted      State = "EXHAUSTED"
	StateRecorded       State = "RECORDED"
	StateNotified       State = "NOTIFIED"
)

// Transition is emitted each time a submission enters a state. Attempt is
// only set for StateSubmitting.
type Transition struct {
	State    State
	RecordID string
	Attempt  int
}

// DuplicateDetector reports prior cases for a contact.
type DuplicateDetector interface {
	Check(ctx context.Context, contact string) DuplicateResult
}

// Submitter delivers a lead to the case system.
type Submitter interface {
	Submit(ctx context.Context, sub *leads.Submission, onAttempt func(attempt int)) SubmitResult
}

// Notifier tells staff about a resolved record.
type Notifier interface {
	Notify(ctx context.Context, rec *leads.Record) (notify.Message, bool)
}

// Mirror keeps a non-authoritative copy of resolved records.
type Mirror interface {
	MirrorRecord(ctx context.Context, rec *leads.Record) error
}

// Deps wires a Pipeline. Records, Duplicates, Submitter and Notifier are required.
type Deps struct {
	Records    leads.Repository
	Names      leads.NameSequencer
	Duplicates DuplicateDetector
	Submitter  Submitter
	Notifier   Notifier
	Mirror     Mirror
	Logger     *logging.Logger
	Metrics    *metrics.PipelineMetrics
	// OnTransition observes state changes; it must not block.
	OnTransition func(Transition)
}

// Result is returned by SubmitLead once the record exists.
type Result struct {
	Record       *leads.Record
	Notification notify.Kind
	Notified     bool
}

// Pipeline runs one lead through duplicate check, submission, recording and
// notification. It holds no per-submission state and is safe for concurrent use.
type Pipeline struct {
	records    leads.Repository
	names      leads.NameSequencer
	duplicates DuplicateDetector
	submitter  Submitter
	notifier   Notifier
	mirror     Mirror
	logger     *logging.Logger
	metrics    *metrics.PipelineMetrics
	observe    func(Transition)
	now        func() time.Time
}

// NewPipeline validates deps and builds a Pipeline.
func NewPipeline(d Deps) (*Pipeline, error) {
	switch {
	case d.Records == nil:
		return nil, errors.New("intake: record store required")
	case d.Duplicates == nil:
		return nil, errors.New("intake: duplicate checker required")
	case d.Submitter == nil:
		return nil, errors.New("intake: submitter required")
	case d.Notifier == nil:
		return nil, errors.New("intake: notifier required")
	}
	logger := d.Logger
	if logger == nil {
		logger = logging.Default()
	}
	names := d.Names
	if names == nil {
		names = leads.NewStoreNameSequencer(d.Records)
	}
	observe := d.OnTransition
	if observe == nil {
		observe = func(Transition) {}
	}
	return &Pipeline{
		records:    d.Records,
		names:      names,
		duplicates: d.Duplicates,
		submitter:  d.Submitter,
		notifier:   d.Notifier,
		mirror:     d.Mirror,
		logger:     logger,
		metrics:    d.Metrics,
		observe:    observe,
		now:        time.Now,
	}, nil
}

// SubmitLead processes one normalized submission. The returned error is
// non-nil only when the record store failed; remote delivery failures are
// reported through the record's outcome. Caller cancellation does not stop
// the flow once the lead has been accepted.
func (p *Pipeline) SubmitLead(ctx context.Context, sub *leads.Submission) (*Result, error) {
	if sub == nil || strings.TrimSpace(sub.Contact) == "" {
		return nil, leads.ErrMissingContact
	}
	ctx = context.WithoutCancel(ctx)
	started := p.now()
	defer func() { p.metrics.ObserveLatency(p.now().Sub(started).Seconds()) }()

	sub = p.withCustomerName(ctx, sub)

	rec, err := p.records.Create(ctx, sub)
	if err != nil {
		p.metrics.ObserveRecordStoreFailure()
		p.logger.Error("lead record create failed",
			"contact", logging.MaskPhone(sub.Contact),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrRecordNotSaved, err)
	}
	p.observe(Transition{State: StateIntake, RecordID: rec.ID})
	log := p.logger.With("record_id", rec.ID)

	p.observe(Transition{State: StateDuplicateCheck, RecordID: rec.ID})
	dup := p.duplicates.Check(ctx, sub.Contact)

	result := p.submitter.Submit(ctx, sub, func(attempt int) {
		p.observe(Transition{State: StateSubmitting, RecordID: rec.ID, Attempt: attempt})
	})
	if result.Succeeded() {
		p.observe(Transition{State: StateSuccess, RecordID: rec.ID})
	} else {
		p.observe(Transition{State: StateExhausted, RecordID: rec.ID})
	}

	rec.Outcome = buildOutcome(dup, result)
	var saveErr error
	if err := p.records.Update(ctx, rec.ID, rec.Outcome); err != nil {
		p.metrics.ObserveRecordStoreFailure()
		log.Error("lead outcome update failed", "status", rec.Status, "error", err)
		saveErr = fmt.Errorf("%w: %v", ErrRecordNotSaved, err)
	} else {
		rec.UpdatedAt = p.now().UTC()
		p.observe(Transition{State: StateRecorded, RecordID: rec.ID})
		log.Info("lead recorded",
			"status", rec.Status,
			"attempts", rec.Attempts,
			"is_duplicate", rec.IsDuplicate,
			"remote_id", rec.RemoteID,
		)
	}
	p.metrics.ObserveOutcome(string(rec.Status), rec.Attempts)

	if p.mirror != nil && saveErr == nil {
		if err := p.mirror.MirrorRecord(ctx, rec); err != nil {
			log.Warn("lead mirror failed", "error", err)
		}
	}

	msg, delivered := p.notifier.Notify(ctx, rec)
	p.observe(Transition{State: StateNotified, RecordID: rec.ID})

	return &Result{Record: rec, Notification: msg.Kind, Notified: delivered}, saveErr
}

func (p *Pipeline) withCustomerName(ctx context.Context, sub *leads.Submission) *leads.Submission {
	if strings.TrimSpace(sub.CustomerName) != "" {
		return sub
	}
	out := *sub
	n, err := p.names.Next(ctx, sub.AcquisitionSource)
	if err != nil {
		p.logger.Warn("customer name numbering failed", "source", sub.AcquisitionSource, "error", err)
		out.CustomerName = strings.TrimSpace(sub.AcquisitionSource)
		return &out
	}
	out.NameSuffix = n
	out.CustomerName = leads.CustomerName(sub.AcquisitionSource, n)
	return &out
}

func buildOutcome(dup DuplicateResult, res SubmitResult) leads.Outcome {
	out := leads.Outcome{
		IsDuplicate:    dup.IsDuplicate,
		DuplicateCount: dup.Count,
		Attempts:       res.Attempts,
	}
	if out.DuplicateCount < 1 {
		out.DuplicateCount = 1
	}
	switch {
	case res.Succeeded() && dup.IsDuplicate:
		out.Status = leads.StatusDuplicateSubmitted
		out.RemoteID = res.RemoteID
	case res.Succeeded():
		out.Status = leads.StatusSubmitted
		out.RemoteID = res.RemoteID
	default:
		out.Status = leads.StatusFailed
		out.ErrorKind = string(res.Kind)
		out.ErrorDetail = res.Detail
	}
	return out
}
