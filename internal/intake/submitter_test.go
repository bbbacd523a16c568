package intake

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lawfirm-intake/internal/casesystem"
	"github.com/wolfman30/lawfirm-intake/internal/leads"
)

// scriptedCreator answers each call with the next scripted step.
type scriptedCreator struct {
	steps []func(ctx context.Context) (*casesystem.Case, error)
	calls int32
}

func (s *scriptedCreator) CreateCase(ctx context.Context, req casesystem.CaseRequest) (*casesystem.Case, error) {
	n := int(atomic.AddInt32(&s.calls, 1))
	if n > len(s.steps) {
		return nil, errors.New("unexpected extra call")
	}
	return s.steps[n-1](ctx)
}

func succeed(id string) func(context.Context) (*casesystem.Case, error) {
	return func(context.Context) (*casesystem.Case, error) { return &casesystem.Case{ID: id}, nil }
}

func failStatus(status int) func(context.Context) (*casesystem.Case, error) {
	return func(context.Context) (*casesystem.Case, error) {
		return nil, &casesystem.APIError{StatusCode: status, Kind: casesystem.KindForStatus(status), Title: "rejected"}
	}
}

func hang() func(context.Context) (*casesystem.Case, error) {
	return func(ctx context.Context) (*casesystem.Case, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestSubmitter(creator CaseCreator, rec *sleepRecorder) *RetryingSubmitter {
	return NewRetryingSubmitter(creator, SubmitterConfig{
		Delay:          time.Second,
		AttemptTimeout: 50 * time.Millisecond,
	}, nil, nil).WithSleep(rec.sleep)
}

var testSubmission = &leads.Submission{
	Contact:           "01012345678",
	ConsultationType:  leads.ConsultationPhone,
	AcquisitionSource: "naver",
	CustomerName:      "naver1",
}

func TestSubmit_SucceedsFirstAttempt(t *testing.T) {
	creator := &scriptedCreator{steps: []func(context.Context) (*casesystem.Case, error){succeed("case-1")}}
	sleeps := &sleepRecorder{}

	var seen []int
	res := newTestSubmitter(creator, sleeps).Submit(context.Background(), testSubmission, func(a int) { seen = append(seen, a) })

	require.True(t, res.Succeeded())
	assert.Equal(t, "case-1", res.RemoteID)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, int32(1), creator.calls)
	assert.Equal(t, []int{1}, seen)
	assert.Empty(t, sleeps.delays)
	assert.Empty(t, res.Kind)
}

func TestSubmit_AuthFailureExhausts(t *testing.T) {
	creator := &scriptedCreator{steps: []func(context.Context) (*casesystem.Case, error){
		failStatus(401), failStatus(401), failStatus(401),
	}}
	sleeps := &sleepRecorder{}

	res := newTestSubmitter(creator, sleeps).Submit(context.Background(), testSubmission, nil)

	assert.False(t, res.Succeeded())
	assert.Equal(t, MaxAttempts, res.Attempts)
	assert.Equal(t, casesystem.AuthFailure, res.Kind)
	assert.Equal(t, "HTTP 401: rejected", res.Detail)
	assert.Equal(t, int32(3), creator.calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeps.delays)
}

func TestSubmit_TimeoutThenSuccess(t *testing.T) {
	creator := &scriptedCreator{steps: []func(context.Context) (*casesystem.Case, error){
		hang(), succeed("case-2"),
	}}
	sleeps := &sleepRecorder{}

	res := newTestSubmitter(creator, sleeps).Submit(context.Background(), testSubmission, nil)

	require.True(t, res.Succeeded())
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "case-2", res.RemoteID)
	assert.Len(t, sleeps.delays, 1)
}

func TestSubmit_ReportsLastAttemptKind(t *testing.T) {
	creator := &scriptedCreator{steps: []func(context.Context) (*casesystem.Case, error){
		failStatus(500), hang(), failStatus(422),
	}}

	res := newTestSubmitter(creator, &sleepRecorder{}).Submit(context.Background(), testSubmission, nil)

	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, casesystem.ValidationFailure, res.Kind)
}

func TestSubmit_TimeoutIsNetworkFailure(t *testing.T) {
	creator := &scriptedCreator{steps: []func(context.Context) (*casesystem.Case, error){hang(), hang(), hang()}}

	res := newTestSubmitter(creator, &sleepRecorder{}).Submit(context.Background(), testSubmission, nil)

	assert.Equal(t, casesystem.NetworkFailure, res.Kind)
	assert.Equal(t, "request timed out", res.Detail)
}

func TestSubmit_EmptyCaseIDIsNotSuccess(t *testing.T) {
	creator := &scriptedCreator{steps: []func(context.Context) (*casesystem.Case, error){
		succeed(""), succeed(""), succeed("case-3"),
	}}

	res := newTestSubmitter(creator, &sleepRecorder{}).Submit(context.Background(), testSubmission, nil)

	require.True(t, res.Succeeded())
	assert.Equal(t, 3, res.Attempts)
}

func TestSubmit_AttemptBounds(t *testing.T) {
	for successAt := 1; successAt <= MaxAttempts+1; successAt++ {
		var steps []func(context.Context) (*casesystem.Case, error)
		for i := 1; i <= MaxAttempts; i++ {
			if i == successAt {
				steps = append(steps, succeed("case"))
			} else {
				steps = append(steps, failStatus(503))
			}
		}
		creator := &scriptedCreator{steps: steps}
		res := newTestSubmitter(creator, &sleepRecorder{}).Submit(context.Background(), testSubmission, nil)

		want := successAt
		if successAt > MaxAttempts {
			want = MaxAttempts
		}
		assert.Equal(t, want, res.Attempts, "success at %d", successAt)
		assert.Equal(t, int32(want), creator.calls, "success at %d", successAt)
		assert.GreaterOrEqual(t, res.Attempts, 1)
		assert.LessOrEqual(t, res.Attempts, MaxAttempts)
	}
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
