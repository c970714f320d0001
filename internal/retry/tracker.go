package retry

import (
	"slices"
	"sync"
)

// PromptState tracks the attempts made for one prompt.
type PromptState struct {
	Ordinal     int       `json:"ordinal"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	LastError   string    `json:"last_error,omitempty"`
	Outcomes    []Outcome `json:"outcomes,omitempty"`
	Succeeded   bool      `json:"succeeded,omitempty"`
}

// Exhausted reports whether every allowed attempt timed out.
func (s *PromptState) Exhausted() bool {
	return !s.Succeeded && s.Attempts >= s.MaxAttempts &&
		len(s.Outcomes) > 0 && s.Outcomes[len(s.Outcomes)-1] == OutcomeTimeout
}

// Tracker records attempts per prompt index and applies a Policy to them.
// It is safe for concurrent use.
type Tracker struct {
	policy Policy

	mu     sync.RWMutex
	states map[int]*PromptState
}

// NewTracker creates a Tracker for policy.
func NewTracker(policy Policy) *Tracker {
	return &Tracker{policy: policy, states: make(map[int]*PromptState)}
}

// Policy returns the policy the tracker applies.
func (t *Tracker) Policy() Policy { return t.policy }

// Record stores the outcome of an attempt for the prompt at index and
// returns the policy decision for its history so far.
func (t *Tracker) Record(index, ordinal int, outcome Outcome, errMsg string) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[index]
	if !ok {
		state = &PromptState{Ordinal: ordinal, MaxAttempts: t.policy.MaxAttempts}
		t.states[index] = state
	}
	state.Attempts++
	state.Outcomes = append(state.Outcomes, outcome)
	state.LastError = errMsg
	state.Succeeded = outcome == OutcomeSuccess

	return t.policy.Decide(state.Outcomes)
}

// State returns a copy of the state for the prompt at index, or nil.
func (t *Tracker) State(index int) *PromptState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.states[index]
	if !ok {
		return nil
	}
	cp := *state
	cp.Outcomes = slices.Clone(state.Outcomes)
	return &cp
}

// Exhausted returns the indexes, ascending, of prompts that ran out of
// attempts while timing out.
func (t *Tracker) Exhausted() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var indexes []int
	for index, state := range t.states {
		if state.Exhausted() {
			indexes = append(indexes, index)
		}
	}
	slices.Sort(indexes)
	return indexes
}

// Retried returns the indexes, ascending, of prompts that needed more than
// one attempt.
func (t *Tracker) Retried() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var indexes []int
	for index, state := range t.states {
		if state.Attempts > 1 {
			indexes = append(indexes, index)
		}
	}
	slices.Sort(indexes)
	return indexes
}
