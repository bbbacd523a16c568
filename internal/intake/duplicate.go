package intake

import (
	"context"
	"time"

	"github.com/wolfman30/lawfirm-intake/internal/casesystem"
	"github.com/wolfman30/lawfirm-intake/internal/leads"
	"github.com/wolfman30/lawfirm-intake/internal/observability/metrics"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// CaseLister is the read side of the case system.
type CaseLister interface {
	ListCasesByContact(ctx context.Context, contact string) (*casesystem.CaseList, error)
}

// DuplicateResult reports prior cases for a contact. Count includes the
// submission being processed, so it is always at least 1.
type DuplicateResult struct {
	IsDuplicate bool
	Count       int
}

var notDuplicate = DuplicateResult{IsDuplicate: false, Count: 1}

// DuplicateChecker asks the case system whether a contact already has cases.
// It never returns an error: any failure degrades to "not a duplicate".
type DuplicateChecker struct {
	cases   CaseLister
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.PipelineMetrics
}

// NewDuplicateChecker wraps cases. timeout bounds each lookup; zero disables it.
func NewDuplicateChecker(cases CaseLister, timeout time.Duration, logger *logging.Logger, m *metrics.PipelineMetrics) *DuplicateChecker {
	if logger == nil {
		logger = logging.Default()
	}
	return &DuplicateChecker{cases: cases, timeout: timeout, logger: logger, metrics: m}
}

// Check returns the duplicate status of contact.
func (d *DuplicateChecker) Check(ctx context.Context, contact string) DuplicateResult {
	list := d.list(ctx, contact)
	if !list.OK {
		d.metrics.ObserveDuplicateCheck("degraded")
		return notDuplicate
	}
	if list.Value.Count == 0 {
		d.metrics.ObserveDuplicateCheck("new")
		return notDuplicate
	}
	d.metrics.ObserveDuplicateCheck("duplicate")
	return DuplicateResult{IsDuplicate: true, Count: list.Value.Count + 1}
}

// AssignedStaff resolves the staff member on the contact's most recent case.
func (d *DuplicateChecker) AssignedStaff(ctx context.Context, contact string) leads.Lookup[string] {
	list := d.list(ctx, contact)
	if !list.OK {
		return leads.Missing[string]()
	}
	name, ok := list.Value.LatestAssignedStaff()
	if !ok {
		return leads.Missing[string]()
	}
	return leads.Found(name)
}

func (d *DuplicateChecker) list(ctx context.Context, contact string) leads.Lookup[*casesystem.CaseList] {
	if d == nil || d.cases == nil {
		return leads.Missing[*casesystem.CaseList]()
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	list, err := d.cases.ListCasesByContact(ctx, contact)
	if err != nil {
		d.logger.Warn("case lookup failed, continuing without it",
			"contact", logging.MaskPhone(contact),
			"failure_kind", casesystem.Classify(err),
			"error", err,
		)
		return leads.Missing[*casesystem.CaseList]()
	}
	if list == nil || list.Count < 0 {
		d.logger.Warn("case lookup returned no usable data", "contact", logging.MaskPhone(contact))
		return leads.Missing[*casesystem.CaseList]()
	}
	return leads.Found(list)
}
