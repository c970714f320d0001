package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/agentbridge/internal/agent"
	"github.com/Iron-Ham/agentbridge/internal/errors"
	"github.com/Iron-Ham/agentbridge/internal/event"
	"github.com/Iron-Ham/agentbridge/internal/logging"
	"github.com/Iron-Ham/agentbridge/internal/retry"
)

// Runner executes prompt lists against one agent.
type Runner struct {
	invoker     agent.Invoker
	policy      retry.Policy
	timeout     time.Duration
	promptDelay time.Duration
	agentName   string
	bus         *event.Bus
	logger      *logging.Logger
	sleep       SleepFunc
	now         func() time.Time
}

// New creates a Runner. inv must be non-nil.
func New(inv agent.Invoker, opts ...Option) *Runner {
	if inv == nil {
		panic("runner: Invoker must not be nil")
	}
	r := &Runner{
		invoker:     inv,
		policy:      retry.DefaultPolicy(),
		timeout:     DefaultTimeout,
		promptDelay: DefaultPromptDelay,
		logger:      logging.NopLogger(),
		sleep:       sleepContext,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("runner")
	return r
}

// Timeout returns the per-attempt budget.
func (r *Runner) Timeout() time.Duration { return r.timeout }

// Policy returns the retry policy.
func (r *Runner) Policy() retry.Policy { return r.policy }

// Run sends prompts in order. The first prompt opens a new session and the
// rest resume it; a retried prompt keeps its mode. Run returns the transcript
// of every prompt it executed. If ctx ends, the remaining prompts are skipped
// and the partial transcript is returned with ctx.Err().
func (r *Runner) Run(ctx context.Context, prompts []Prompt) (*Transcript, error) {
	tr := &Transcript{
		Agent:     r.agentName,
		Timeout:   r.timeout,
		Total:     len(prompts),
		StartedAt: r.now(),
	}
	tracker := retry.NewTracker(r.policy)
	defer func() { tr.FinishedAt = r.now() }()

	for i, p := range prompts {
		if err := ctx.Err(); err != nil {
			return tr, err
		}

		res, err := r.runPrompt(ctx, tracker, i, len(prompts), p)
		tr.Results = append(tr.Results, res)
		if err != nil {
			return tr, err
		}

		if i < len(prompts)-1 {
			r.bus.Publish(event.NewPromptDelayEvent(r.promptDelay))
			if err := r.sleep(ctx, r.promptDelay); err != nil {
				return tr, err
			}
		}
	}

	r.logger.Info("run complete",
		"prompts", tr.Total,
		"succeeded", tr.Succeeded(),
		"retried", len(tracker.Retried()),
		"exhausted", len(tracker.Exhausted()))
	return tr, nil
}

// runPrompt attempts one prompt until the policy says stop. The returned
// error is non-nil only when ctx ended.
func (r *Runner) runPrompt(ctx context.Context, tracker *retry.Tracker, index, total int, p Prompt) (Result, error) {
	mode := agent.ModeNew
	if index > 0 {
		mode = agent.ModeResume
	}
	logger := r.logger.WithPrompt(p.Ordinal)

	for attempt := 1; ; attempt++ {
		r.bus.Publish(event.NewPromptAttemptEvent(index, total, p.Ordinal, p.Text, mode == agent.ModeResume, attempt))
		logger.Info("sending prompt", "mode", mode.String(), "attempt", attempt)

		start := r.now()
		out, err := r.invoker.Invoke(ctx, agent.Request{Input: p.Text, Mode: mode, Timeout: r.timeout})
		failure := r.failure(out, err)
		res := r.result(index, p, out, failure)
		res.Attempts = attempt
		res.Duration = r.now().Sub(start)

		decision := tracker.Record(index, p.Ordinal, classify(failure), res.Stderr)

		r.bus.Publish(event.NewPromptAttemptFinishedEvent(event.PromptAttemptFinishedEvent{
			Index:       index,
			Ordinal:     p.Ordinal,
			Attempt:     attempt,
			MaxAttempts: r.policy.MaxAttempts,
			Stdout:      res.Stdout,
			Stderr:      res.Stderr,
			ExitCode:    res.ExitCode,
			TimedOut:    res.TimedOut,
			WillRetry:   decision == retry.Retry,
			GaveUp:      decision == retry.GiveUp,
		}))

		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}

		switch decision {
		case retry.Retry:
			logger.Warn("prompt timed out, retrying", "attempt", attempt, "max_attempts", r.policy.MaxAttempts)
			if err := r.sleep(ctx, r.policy.Delay); err != nil {
				return res, err
			}
		case retry.GiveUp:
			state := tracker.State(index)
			logger.Error("prompt timed out on every attempt",
				"attempts", state.Attempts,
				"last_error", state.LastError)
			return res, nil
		default:
			if failure != nil {
				logger.Warn("prompt failed",
					"exit_code", res.ExitCode,
					"severity", errors.GetSeverity(failure).String(),
					"error", failure)
			}
			return res, nil
		}
	}
}

// failure folds a non-zero exit into a ProcessError so every unsuccessful
// attempt is described by one error value.
func (r *Runner) failure(out agent.Result, err error) error {
	if err == nil && out.ExitCode != 0 {
		return errors.NewProcessError(r.agentName, out.ExitCode).WithStderr(out.Stderr)
	}
	return err
}

// result converts an invocation into a Result. Failures that prevented the
// agent from finishing are recorded with exit code -1 and a description in
// Stderr; a non-zero exit keeps the agent's own output.
func (r *Runner) result(index int, p Prompt, out agent.Result, failure error) Result {
	res := Result{
		Index:    index,
		Ordinal:  p.Ordinal,
		Prompt:   p.Text,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		ExitCode: errors.ExitCode(failure),
	}
	var procErr *errors.ProcessError
	switch {
	case failure == nil:
	case errors.IsTimeout(failure):
		res.Stdout = ""
		res.Stderr = fmt.Sprintf("Timed out after %d seconds", int(r.timeout/time.Second))
		res.TimedOut = true
	case errors.As(failure, &procErr) && procErr.ExitCode > 0:
		// The agent ran to completion; its output stands.
	default:
		res.Stdout = ""
		res.Stderr = failure.Error()
	}
	return res
}

// classify maps an attempt's failure onto a retry outcome. Only retryable
// failures (timeouts) are retried.
func classify(failure error) retry.Outcome {
	switch {
	case failure == nil:
		return retry.OutcomeSuccess
	case errors.IsRetryable(failure):
		return retry.OutcomeTimeout
	default:
		return retry.OutcomeFailure
	}
}
