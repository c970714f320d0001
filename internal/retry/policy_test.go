package retry

import "testing"

func TestPolicy_Decide(t *testing.T) {
	p := Policy{MaxAttempts: 3}

	tests := []struct {
		name    string
		history []Outcome
		want    Decision
	}{
		{name: "empty history", history: nil, want: Done},
		{name: "success first time", history: []Outcome{OutcomeSuccess}, want: Done},
		{name: "non-zero exit is not retried", history: []Outcome{OutcomeFailure}, want: Done},
		{name: "first timeout retries", history: []Outcome{OutcomeTimeout}, want: Retry},
		{name: "second timeout retries", history: []Outcome{OutcomeTimeout, OutcomeTimeout}, want: Retry},
		{name: "budget exhausted", history: []Outcome{OutcomeTimeout, OutcomeTimeout, OutcomeTimeout}, want: GiveUp},
		{name: "success after timeouts", history: []Outcome{OutcomeTimeout, OutcomeTimeout, OutcomeSuccess}, want: Done},
		{name: "failure after timeout", history: []Outcome{OutcomeTimeout, OutcomeFailure}, want: Done},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Decide(tt.history); got != tt.want {
				t.Errorf("Decide(%v) = %v, want %v", tt.history, got, tt.want)
			}
		})
	}
}

func TestPolicy_SingleAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 1}
	if got := p.Decide([]Outcome{OutcomeTimeout}); got != GiveUp {
		t.Errorf("Decide() = %v, want %v", got, GiveUp)
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 10 {
		t.Errorf("MaxAttempts = %d, want 10", p.MaxAttempts)
	}
	if p.Delay.Seconds() != 3 {
		t.Errorf("Delay = %v, want 3s", p.Delay)
	}

	history := make([]Outcome, 0, 10)
	for i := 1; i <= 10; i++ {
		history = append(history, OutcomeTimeout)
		want := Retry
		if i == 10 {
			want = GiveUp
		}
		if got := p.Decide(history); got != want {
			t.Fatalf("after %d timeouts Decide() = %v, want %v", i, got, want)
		}
	}
}

func TestStrings(t *testing.T) {
	if OutcomeTimeout.String() != "timeout" || Outcome(42).String() != "unknown" {
		t.Error("unexpected Outcome strings")
	}
	if GiveUp.String() != "give up" || Decision(42).String() != "unknown" {
		t.Error("unexpected Decision strings")
	}
}
