package faceswap

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

// User-facing messages for failures the orchestrator itself produces, as
// opposed to provider rejections which go through the translator.
const (
	msgMissingImages = "Missing required images. Please provide both your face photo and the hairstyle image."
	msgSubmitNetwork = "Network connection error. Please check your internet and try again."
	msgNoResult      = "Processing completed but no result image was generated. Please try again with different photos."
	msgTimeout       = "Processing is taking longer than expected. This might be due to server load or image complexity. Please try again in a moment."
	msgPollNetwork   = "Unable to complete processing due to connection issues. Please check your internet and try again."
	msgCancelled     = "Processing was cancelled."
)

// ProgressFunc receives normalized progress percentages (0-100). It is
// invoked at most once per distinct value and always with the terminal
// 100 on success or 0 on failure.
type ProgressFunc func(percent int)

// Clock returns a channel that fires after d. Injected so tests can drive
// the polling loop without real time passing.
type Clock func(d time.Duration) <-chan time.Time

// OrchestratorOptions configures one orchestrator.
type OrchestratorOptions struct {
	Provider Provider
	// Interval between status polls. Defaults to 2s.
	Interval time.Duration
	// MaxPolls bounds the polling loop. Defaults to 150 (~5 minutes).
	MaxPolls int
	Clock    Clock
	Logger   zerolog.Logger
}

// Orchestrator owns the submit-poll state machine for swap jobs. It is
// stateless across jobs and safe for concurrent Run calls; deduplicating
// concurrent submissions for the same logical request is the caller's
// responsibility.
type Orchestrator struct {
	provider Provider
	interval time.Duration
	maxPolls int
	clock    Clock
	logger   zerolog.Logger
}

// NewOrchestrator wires an orchestrator around a provider adapter.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	interval := opts.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 150
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.After
	}
	return &Orchestrator{
		provider: opts.Provider,
		interval: interval,
		maxPolls: maxPolls,
		clock:    clock,
		logger:   opts.Logger,
	}
}

// Run submits the request and polls until a terminal state, the poll ceiling
// or context cancellation. The returned Result always carries a user-facing
// error message on failure; Cause distinguishes the failure class for
// callers that need more than the message.
func (o *Orchestrator) Run(ctx context.Context, req Request, onProgress ProgressFunc) Result {
	emit := newProgressEmitter(onProgress)

	if err := req.Validate(); err != nil {
		emit(progressFailed)
		return Result{Success: false, Err: msgMissingImages, Cause: domain.ErrInvalidInput}
	}

	jobID, err := o.provider.Submit(ctx, req)
	if err != nil {
		o.logger.Warn().Err(err).Str("provider", o.provider.Name()).Msg("faceswap: submission failed")
		emit(progressFailed)
		var rejection *Rejection
		if errors.As(err, &rejection) {
			return Result{Success: false, Err: rejection.UserMessage, Cause: domain.ErrProviderFailure}
		}
		return Result{Success: false, Err: msgSubmitNetwork, Cause: domain.ErrProviderFailure}
	}
	o.logger.Info().Str("provider", o.provider.Name()).Str("job_id", jobID).Msg("faceswap: task submitted")

	lastPollFailed := false
	for attempt := 1; attempt <= o.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			o.logger.Info().Str("job_id", jobID).Int("attempt", attempt).Msg("faceswap: cancelled")
			emit(progressFailed)
			return Result{Success: false, JobID: jobID, Err: msgCancelled, Cause: domain.ErrJobCancelled}
		case <-o.clock(o.interval):
		}

		status, err := o.provider.Poll(ctx, jobID)
		if err != nil {
			// A transport hiccup on one tick must not abort the job; the
			// ceiling still bounds the loop.
			o.logger.Warn().Err(err).Str("job_id", jobID).Int("attempt", attempt).Msg("faceswap: poll failed")
			lastPollFailed = true
			continue
		}
		lastPollFailed = false

		if status.Kind == StatusCompleted && status.ResultURL == "" {
			status = Status{
				Kind:     StatusFailed,
				Progress: progressFailed,
				Err:      msgNoResult,
			}
			emit(status.Progress)
			return Result{Success: false, JobID: jobID, Err: status.Err, Cause: domain.ErrIncompleteResult}
		}

		emit(status.Progress)

		switch status.Kind {
		case StatusCompleted:
			o.logger.Info().Str("job_id", jobID).Str("result_url", status.ResultURL).Msg("faceswap: completed")
			return Result{Success: true, JobID: jobID, ResultURL: status.ResultURL}
		case StatusFailed:
			o.logger.Info().Str("job_id", jobID).Str("error", status.Err).Msg("faceswap: failed")
			errMsg := status.Err
			if errMsg == "" {
				errMsg = "Face swap processing failed due to unknown reasons. Please try again."
			}
			return Result{Success: false, JobID: jobID, Err: errMsg, Cause: domain.ErrProviderFailure}
		}
	}

	emit(progressFailed)
	if lastPollFailed {
		return Result{Success: false, JobID: jobID, Err: msgPollNetwork, Cause: domain.ErrJobTimeout}
	}
	o.logger.Info().Str("job_id", jobID).Int("max_polls", o.maxPolls).Msg("faceswap: timed out")
	return Result{Success: false, JobID: jobID, Err: msgTimeout, Cause: domain.ErrJobTimeout}
}

// newProgressEmitter wraps the caller's callback so each distinct percentage
// is delivered once. A provider reporting a lower value than before is
// passed through; no monotonicity is enforced here.
func newProgressEmitter(fn ProgressFunc) func(int) {
	last := -1
	return func(percent int) {
		if fn == nil || percent == last {
			return
		}
		last = percent
		fn(percent)
	}
}
