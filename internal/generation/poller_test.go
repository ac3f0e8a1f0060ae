package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatar-server/internal/domain"
	"avatar-server/internal/providers/comfy"
)

func newTestPoller(backend *fakeBackend, cfg PollConfig) *Poller {
	p := NewPoller(backend, cfg, nil)
	p.sleep = noSleep
	return p
}

func TestPollerCompletes(t *testing.T) {
	backend := &fakeBackend{history: []*comfy.HistoryEntry{
		pending(),
		completed(map[string]comfy.NodeOutput{"101": images("a.png", "b.png"), "9": {}}),
	}}
	job := &domain.Job{ID: "job-1"}
	require.NoError(t, newTestPoller(backend, DefaultPollConfig()).Wait(context.Background(), job))
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.Attempts)
	require.Len(t, job.Outputs["101"], 2)
	assert.NotContains(t, job.Outputs, "9")
	assert.Equal(t, domain.NamespaceOutput, job.Outputs["101"][0].Namespace)
}

func TestPollerGraceRecovers(t *testing.T) {
	backend := &fakeBackend{history: []*comfy.HistoryEntry{
		completed(nil),
		completed(map[string]comfy.NodeOutput{}),
		completed(map[string]comfy.NodeOutput{"101": images("late.png")}),
	}}
	job := &domain.Job{ID: "job-1"}
	require.NoError(t, newTestPoller(backend, PollConfig{Interval: 1, MaxAttempts: 10, Grace: 5}).Wait(context.Background(), job))
	assert.Equal(t, 3, job.Attempts)
	assert.Equal(t, "late.png", job.Outputs["101"][0].Filename)
}

func TestPollerOutputsAppearOnFifthCheck(t *testing.T) {
	empty := completed(map[string]comfy.NodeOutput{})
	backend := &fakeBackend{history: []*comfy.HistoryEntry{
		empty, empty, empty, empty,
		completed(map[string]comfy.NodeOutput{"101": images("fifth.png")}),
	}}
	job := &domain.Job{ID: "job-1"}
	require.NoError(t, newTestPoller(backend, DefaultPollConfig()).Wait(context.Background(), job))
	assert.Equal(t, 5, backend.historyCalls)
	assert.Equal(t, "fifth.png", job.Outputs["101"][0].Filename)
}

func TestPollerGraceExhausted(t *testing.T) {
	backend := &fakeBackend{history: []*comfy.HistoryEntry{completed(nil)}}
	job := &domain.Job{ID: "job-1"}
	err := newTestPoller(backend, PollConfig{Interval: 1, MaxAttempts: 60, Grace: 5}).Wait(context.Background(), job)
	assert.True(t, errors.Is(err, domain.ErrMissingOutput))
	assert.Equal(t, 6, backend.historyCalls)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
}

func TestPollerGraceZeroFailsImmediately(t *testing.T) {
	backend := &fakeBackend{history: []*comfy.HistoryEntry{completed(nil)}}
	err := newTestPoller(backend, PollConfig{Interval: 1, MaxAttempts: 60, Grace: 0}).Wait(context.Background(), &domain.Job{ID: "job-1"})
	assert.Equal(t, domain.KindMissingOutput, domain.KindOf(err))
	assert.Equal(t, 1, backend.historyCalls)
}

func TestPollerGraceBoundedByMaxAttempts(t *testing.T) {
	backend := &fakeBackend{history: []*comfy.HistoryEntry{running(), running(), completed(nil)}}
	job := &domain.Job{ID: "job-1"}
	err := newTestPoller(backend, PollConfig{Interval: 1, MaxAttempts: 4, Grace: 5}).Wait(context.Background(), job)
	assert.Equal(t, domain.KindMissingOutput, domain.KindOf(err))
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, 4, backend.historyCalls)
}

func TestPollerCompletionOnLastAttemptIsMissingOutput(t *testing.T) {
	backend := &fakeBackend{history: []*comfy.HistoryEntry{running(), running(), completed(nil)}}
	job := &domain.Job{ID: "job-1"}
	err := newTestPoller(backend, PollConfig{Interval: 1, MaxAttempts: 3, Grace: 5}).Wait(context.Background(), job)
	assert.True(t, errors.Is(err, domain.ErrMissingOutput))
	assert.NotContains(t, err.Error(), "not finished")
	assert.Equal(t, 3, job.Attempts)
	assert.Equal(t, 3, backend.historyCalls)
}

func TestPollerRejectsTerminalJob(t *testing.T) {
	backend := &fakeBackend{}
	job := &domain.Job{ID: "job-1", Status: domain.JobStatusCompleted}
	err := newTestPoller(backend, DefaultPollConfig()).Wait(context.Background(), job)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Zero(t, backend.historyCalls)
}

func TestPollerErrorStatusWinsOverCompleted(t *testing.T) {
	entry := completed(map[string]comfy.NodeOutput{"101": images("a.png")})
	entry.Status.StatusStr = "error"
	backend := &fakeBackend{history: []*comfy.HistoryEntry{entry}}
	err := newTestPoller(backend, DefaultPollConfig()).Wait(context.Background(), &domain.Job{ID: "job-1"})
	assert.Equal(t, domain.KindExecution, domain.KindOf(err))
	assert.Contains(t, err.Error(), "unknown execution error")
}

func TestPollerCanceledBeforeFirstQuery(t *testing.T) {
	backend := &fakeBackend{history: []*comfy.HistoryEntry{running()}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := &domain.Job{ID: "job-1"}
	err := newTestPoller(backend, DefaultPollConfig()).Wait(ctx, job)
	assert.True(t, errors.Is(err, domain.ErrCanceled))
	assert.Equal(t, 0, backend.historyCalls)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
}

func TestPollerCancelDuringQueryFinishesQuery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend := &fakeBackend{
		history:   []*comfy.HistoryEntry{running()},
		onHistory: func(int) { cancel() },
	}
	err := newTestPoller(backend, DefaultPollConfig()).Wait(ctx, &domain.Job{ID: "job-1"})
	assert.Equal(t, domain.KindCanceled, domain.KindOf(err))
	assert.Equal(t, 1, backend.historyCalls)
}

func TestPollerTransportErrorIsTerminal(t *testing.T) {
	backend := &fakeBackend{historyErr: &domain.Error{Kind: domain.KindTransport, Op: "history", Addr: testAddr}}
	err := newTestPoller(backend, DefaultPollConfig()).Wait(context.Background(), &domain.Job{ID: "job-1"})
	assert.Equal(t, domain.KindTransport, domain.KindOf(err))
	assert.Equal(t, 1, backend.historyCalls)
}

func TestSleepCtxHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, 0), context.Canceled)
	assert.NoError(t, sleepCtx(context.Background(), 0))
}

func TestNewPollerDefaults(t *testing.T) {
	p := NewPoller(&fakeBackend{}, PollConfig{Grace: -1}, nil)
	assert.Equal(t, PollConfig{Interval: DefaultPollConfig().Interval, MaxAttempts: 60, Grace: 0}, p.Config())
}
