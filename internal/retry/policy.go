// Package retry decides whether a timed-out prompt is attempted again and
// keeps per-prompt attempt state for reporting.
//
// Only timeouts are retried. A prompt whose agent exits non-zero, or cannot
// be started, is recorded once and never retried.
package retry

import "time"

// Defaults used by the session runner.
const (
	DefaultMaxAttempts = 10
	DefaultDelay       = 3 * time.Second
)

// Outcome classifies one finished attempt.
type Outcome int

const (
	// OutcomeSuccess means the agent ran and exited zero.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure means the agent exited non-zero or could not be started.
	OutcomeFailure
	// OutcomeTimeout means the attempt exceeded its time budget.
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Decision is what to do after an attempt.
type Decision int

const (
	// Done records the attempt as the prompt's result.
	Done Decision = iota
	// Retry sleeps for the policy delay and tries again in the same mode.
	Retry
	// GiveUp records the last timeout as the prompt's result.
	GiveUp
)

func (d Decision) String() string {
	switch d {
	case Done:
		return "done"
	case Retry:
		return "retry"
	case GiveUp:
		return "give up"
	default:
		return "unknown"
	}
}

// Policy bounds the attempts made for a single prompt.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy returns ten attempts three seconds apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

// Decide maps the outcomes of the attempts made so far to the next step.
// It is a pure function of its inputs. An empty history is Done.
func (p Policy) Decide(history []Outcome) Decision {
	if len(history) == 0 {
		return Done
	}
	if history[len(history)-1] != OutcomeTimeout {
		return Done
	}
	if len(history) < p.MaxAttempts {
		return Retry
	}
	return GiveUp
}
