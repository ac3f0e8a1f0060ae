package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"avatar-server/internal/domain"
	"avatar-server/internal/infra"
	"avatar-server/internal/providers/comfy"
)

// HistoryReader reads the backend's record of a job. A nil entry means the
// backend does not know the job yet.
type HistoryReader interface {
	History(ctx context.Context, promptID string) (*comfy.HistoryEntry, error)
}

// PollConfig bounds how long a job is waited on.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	// Grace is how many extra checks a job that reports completion without
	// outputs gets before it is declared empty.
	Grace int
}

func DefaultPollConfig() PollConfig {
	return PollConfig{Interval: 2 * time.Second, MaxAttempts: 60, Grace: 5}
}

type pollState string

const (
	stateSubmitted pollState = "submitted"
	statePolling   pollState = "polling"
	stateGrace     pollState = "grace"
	stateCompleted pollState = "completed"
	stateFailed    pollState = "failed"
	stateTimedOut  pollState = "timed_out"
)

func (s pollState) jobStatus() domain.JobStatus {
	switch s {
	case stateSubmitted:
		return domain.JobStatusSubmitted
	case stateCompleted:
		return domain.JobStatusCompleted
	case stateFailed:
		return domain.JobStatusFailed
	case stateTimedOut:
		return domain.JobStatusTimedOut
	default:
		return domain.JobStatusPolling
	}
}

// Poller waits for a submitted job to reach a terminal state.
type Poller struct {
	history HistoryReader
	cfg     PollConfig
	logger  *infra.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewPoller(history HistoryReader, cfg PollConfig, logger *infra.Logger) *Poller {
	def := DefaultPollConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Grace < 0 {
		cfg.Grace = 0
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Poller{history: history, cfg: cfg, logger: logger, sleep: sleepCtx}
}

// Config returns the effective poll budget.
func (p *Poller) Config() PollConfig { return p.cfg }

// Wait polls until job completes, fails, times out or ctx ends. Each
// iteration waits one interval, then issues exactly one history query; the
// query itself runs to completion even if ctx ends meanwhile. On success
// job.Outputs holds every reported artifact.
func (p *Poller) Wait(ctx context.Context, job *domain.Job) error {
	if job.Status.Terminal() {
		return &domain.Error{Kind: domain.KindInternal, Op: "poll job", Message: fmt.Sprintf("job %s is already %s", job.ID, job.Status)}
	}
	state := stateSubmitted
	graceUsed := 0
	transition := func(next pollState) {
		if next != state {
			p.logger.Debug().Str("prompt_id", job.ID).Str("from", string(state)).Str("to", string(next)).Int("attempt", job.Attempts).Msg("poll state")
		}
		state = next
		job.Status = state.jobStatus()
	}
	transition(statePolling)

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			transition(stateFailed)
			return p.stopped(job, err)
		}

		entry, err := p.history.History(context.WithoutCancel(ctx), job.ID)
		job.Attempts = attempt
		if err != nil {
			transition(stateFailed)
			job.Error = err.Error()
			return err
		}
		if state == stateGrace {
			graceUsed++
		}

		if entry != nil && entry.Status.Failed() {
			transition(stateFailed)
			msg := entry.Status.Diagnostics()
			job.Error = msg
			return &domain.Error{Kind: domain.KindExecution, Op: "poll job", Message: msg, Attempts: attempt}
		}
		if entry != nil && entry.Status.Completed {
			if outputs := collectOutputs(entry); len(outputs) > 0 {
				job.Outputs = outputs
				transition(stateCompleted)
				p.logger.Info().Str("prompt_id", job.ID).Int("attempts", attempt).Msg("job completed")
				return nil
			}
			transition(stateGrace)
		}

		if state == stateGrace && graceUsed >= p.cfg.Grace {
			transition(stateFailed)
			return missingOutput(job, graceUsed)
		}
	}

	// the backend already said it finished, so running out of budget during
	// grace is a missing output rather than a timeout
	if state == stateGrace {
		transition(stateFailed)
		return missingOutput(job, graceUsed)
	}
	transition(stateTimedOut)
	job.Error = "timed out"
	return &domain.Error{
		Kind:     domain.KindTimeout,
		Op:       "poll job",
		Message:  fmt.Sprintf("job %s not finished after %d attempts (%s interval)", job.ID, job.Attempts, p.cfg.Interval),
		Attempts: job.Attempts,
	}
}

func missingOutput(job *domain.Job, graceUsed int) error {
	job.Error = "completed without outputs"
	return &domain.Error{
		Kind:     domain.KindMissingOutput,
		Op:       "poll job",
		Message:  fmt.Sprintf("job reported completion but produced no images after %d extra checks", graceUsed),
		Attempts: job.Attempts,
	}
}

func (p *Poller) stopped(job *domain.Job, err error) error {
	kind := domain.KindCanceled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = domain.KindTimeout
	}
	job.Error = err.Error()
	return &domain.Error{Kind: kind, Op: "poll job", Attempts: job.Attempts, Err: err}
}

// collectOutputs keeps only nodes that reported at least one image.
func collectOutputs(entry *comfy.HistoryEntry) map[string][]domain.OutputArtifact {
	out := make(map[string][]domain.OutputArtifact)
	for node, o := range entry.Outputs {
		for _, img := range o.Images {
			if img.Filename == "" {
				continue
			}
			ns := domain.Namespace(img.Type)
			if ns == "" {
				ns = domain.NamespaceOutput
			}
			out[node] = append(out[node], domain.OutputArtifact{
				NodeKey:   node,
				Filename:  img.Filename,
				Subfolder: img.Subfolder,
				Namespace: ns,
			})
		}
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
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
