package bridge_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/agentbridge/internal/agent"
	"github.com/Iron-Ham/agentbridge/internal/bridge"
	"github.com/Iron-Ham/agentbridge/internal/config"
	"github.com/Iron-Ham/agentbridge/internal/errors"
	"github.com/Iron-Ham/agentbridge/internal/event"
	"github.com/Iron-Ham/agentbridge/internal/ledger"
	"github.com/Iron-Ham/agentbridge/internal/mailbox"
	"github.com/Iron-Ham/agentbridge/internal/trigger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// --- Test doubles -----------------------------------------------------------

type fakeInvoker struct {
	mu       sync.Mutex
	requests []agent.Request
	result   agent.Result
	err      error
	delay    time.Duration
}

func (f *fakeInvoker) Invoke(ctx context.Context, req agent.Request) (agent.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	res, err, delay := f.result, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return res, err
}

func (f *fakeInvoker) Requests() []agent.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]agent.Request(nil), f.requests...)
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []string
	messages []string
}

func (r *statusRecorder) attach(bus *event.Bus) {
	bus.Subscribe(event.TypeStatusChanged, func(e event.Event) {
		sc := e.(event.StatusChangedEvent)
		r.mu.Lock()
		defer r.mu.Unlock()
		r.statuses = append(r.statuses, sc.Status)
		r.messages = append(r.messages, sc.Message)
	})
}

func (r *statusRecorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

func (r *statusRecorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// failingSlot is a command slot whose ModTime fails a fixed number of times.
type failingSlot struct {
	*mailbox.MemorySlot
	mu       sync.Mutex
	failures int
}

func (s *failingSlot) ModTime() (time.Time, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return time.Time{}, fmt.Errorf("stat failed")
	}
	s.mu.Unlock()
	return s.MemorySlot.ModTime()
}

type fixture struct {
	invoker  *fakeInvoker
	channel  *mailbox.Channel
	ledger   *ledger.MemoryLedger
	bus      *event.Bus
	statuses *statusRecorder
	watchdog *bridge.Watchdog
}

var fixedNow = time.Date(2026, 2, 3, 14, 15, 16, 0, time.Local)

func newFixture(t *testing.T, opts ...bridge.Option) *fixture {
	t.Helper()
	return newFixtureWithChannel(t, mailbox.NewMemoryChannel(), opts...)
}

func newFixtureWithChannel(t *testing.T, ch *mailbox.Channel, opts ...bridge.Option) *fixture {
	t.Helper()
	f := &fixture{
		invoker:  &fakeInvoker{result: agent.Result{Stdout: "hello from codex"}},
		channel:  ch,
		ledger:   ledger.NewMemoryLedger(),
		bus:      event.NewBus(),
		statuses: &statusRecorder{},
	}
	f.statuses.attach(f.bus)

	backend := agent.NewCodexBackend(config.AgentConfig{})
	base := []bridge.Option{
		bridge.WithEventBus(f.bus),
		bridge.WithClock(func() time.Time { return fixedNow }),
		bridge.WithErrorBackoff(5 * time.Millisecond),
	}
	f.watchdog = bridge.NewWatchdog(f.invoker, backend, f.channel, f.ledger,
		trigger.NewPoller(5*time.Millisecond), append(base, opts...)...)
	return f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// --- Dispatch ---------------------------------------------------------------

func TestWatchdog_DispatchSuccess(t *testing.T) {
	f := newFixture(t)

	out, ok := f.watchdog.Dispatch(context.Background(), "what is 2+2?")
	if !ok {
		t.Fatal("Dispatch() reported failure")
	}
	if out != "hello from codex" {
		t.Errorf("output = %q", out)
	}

	resp, _ := f.channel.ReadResponse()
	want := "[14:15:16] QUESTION: what is 2+2?\n\nRESPONSE:\nhello from codex\n"
	if resp != want {
		t.Errorf("response = %q, want %q", resp, want)
	}

	rec, ok := f.ledger.Read()
	if !ok || rec.Status != ledger.StatusResponseReady || rec.Message != "Response available" {
		t.Errorf("ledger = %+v", rec)
	}

	got := f.statuses.Statuses()
	if strings.Join(got, ",") != "sending,response_ready" {
		t.Errorf("statuses = %v", got)
	}
	if msg := f.statuses.Messages()[0]; msg != "Sending: what is 2+2?..." {
		t.Errorf("sending message = %q", msg)
	}

	reqs := f.invoker.Requests()
	if len(reqs) != 1 || reqs[0].Input != "what is 2+2?" || reqs[0].Mode != agent.ModeNew {
		t.Errorf("requests = %+v", reqs)
	}
	if reqs[0].Timeout != 120*time.Second {
		t.Errorf("timeout = %v, want 120s default", reqs[0].Timeout)
	}
}

func TestWatchdog_DispatchIncludesStderr(t *testing.T) {
	f := newFixture(t)
	f.invoker.result = agent.Result{Stdout: "partial", Stderr: "warning: sandbox", ExitCode: 1}

	out, ok := f.watchdog.Dispatch(context.Background(), "x")
	if !ok {
		t.Fatal("a non-zero exit still produces a response")
	}
	if out != "partial\nwarning: sandbox" {
		t.Errorf("output = %q", out)
	}
}

func TestWatchdog_DispatchPreviewIsTruncated(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("a", 80)

	f.watchdog.Dispatch(context.Background(), long)

	want := "Sending: " + strings.Repeat("a", 50) + "..."
	if msg := f.statuses.Messages()[0]; msg != want {
		t.Errorf("sending message = %q, want %q", msg, want)
	}
}

func TestWatchdog_DispatchTimeout(t *testing.T) {
	f := newFixture(t, bridge.WithDispatchTimeout(30*time.Second))
	f.invoker.err = errors.NewTimeoutError("codex", 30*time.Second)

	if _, ok := f.watchdog.Dispatch(context.Background(), "slow"); ok {
		t.Fatal("Dispatch() should fail on timeout")
	}

	rec, _ := f.ledger.Read()
	if rec.Status != ledger.StatusTimeout {
		t.Errorf("status = %q, want timeout", rec.Status)
	}
	if rec.Message != "Codex response timed out after 30 seconds" {
		t.Errorf("message = %q", rec.Message)
	}
	if resp, _ := f.channel.ReadResponse(); resp != "" {
		t.Errorf("no response should be written on timeout, got %q", resp)
	}
}

func TestWatchdog_DispatchStartFailure(t *testing.T) {
	f := newFixture(t)
	f.invoker.err = errors.NewStartError("codex", errors.ErrAgentNotFound)

	if _, ok := f.watchdog.Dispatch(context.Background(), "hi"); ok {
		t.Fatal("Dispatch() should fail when the agent cannot start")
	}

	rec, _ := f.ledger.Read()
	if rec.Status != ledger.StatusError {
		t.Errorf("status = %q, want error", rec.Status)
	}
	if !strings.HasPrefix(rec.Message, "Error: ") {
		t.Errorf("message = %q, want Error: prefix", rec.Message)
	}
}

// --- Poll -------------------------------------------------------------------

func TestWatchdog_PollSkipsBlankCommands(t *testing.T) {
	f := newFixture(t)

	for _, cmd := range []string{"", "   \n\t"} {
		_ = f.channel.DepositCommand(cmd)
		dispatched, err := f.watchdog.Poll(context.Background())
		if err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
		if dispatched {
			t.Errorf("Poll() dispatched blank command %q", cmd)
		}
	}
	if n := len(f.invoker.Requests()); n != 0 {
		t.Errorf("invoker called %d times, want 0", n)
	}
}

func TestWatchdog_PollConsumesCommandOnce(t *testing.T) {
	f := newFixture(t)
	_ = f.channel.DepositCommand("  summarize README.md \n")

	dispatched, err := f.watchdog.Poll(context.Background())
	if err != nil || !dispatched {
		t.Fatalf("Poll() = %v, %v; want dispatch", dispatched, err)
	}
	if reqs := f.invoker.Requests(); reqs[0].Input != "summarize README.md" {
		t.Errorf("input = %q, want trimmed command", reqs[0].Input)
	}
	if pending, _ := f.channel.ConsumeCommand(); pending != "" {
		t.Errorf("command slot should be cleared, got %q", pending)
	}

	dispatched, _ = f.watchdog.Poll(context.Background())
	if dispatched {
		t.Error("a consumed command must not be dispatched again")
	}
	if n := len(f.invoker.Requests()); n != 1 {
		t.Errorf("invoker called %d times, want 1", n)
	}
}

func TestWatchdog_PollClearsCommandEvenOnFailure(t *testing.T) {
	f := newFixture(t)
	f.invoker.err = errors.NewTimeoutError("codex", time.Second)
	_ = f.channel.DepositCommand("flaky")

	if _, err := f.watchdog.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if pending, _ := f.channel.ConsumeCommand(); pending != "" {
		t.Errorf("command slot should be cleared after a failed dispatch, got %q", pending)
	}
	f.watchdog.Poll(context.Background())
	if n := len(f.invoker.Requests()); n != 1 {
		t.Errorf("failed command was retried: %d invocations", n)
	}
}

// --- Run --------------------------------------------------------------------

func TestWatchdog_RunLifecycle(t *testing.T) {
	f := newFixture(t)

	done := make(chan error, 1)
	go func() { done <- f.watchdog.Run(context.Background()) }()

	waitFor(t, "ready status", func() bool {
		rec, ok := f.ledger.Read()
		return ok && rec.Status == ledger.StatusReady
	})

	_ = f.channel.DepositCommand("ping")
	waitFor(t, "response", func() bool {
		rec, _ := f.ledger.Read()
		return rec.Status == ledger.StatusResponseReady
	})

	f.watchdog.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	got := strings.Join(f.statuses.Statuses(), ",")
	if got != "ready,sending,response_ready,stopped" {
		t.Errorf("statuses = %s", got)
	}
	rec, _ := f.ledger.Read()
	if rec.Message != "Bridge stopped" {
		t.Errorf("final message = %q", rec.Message)
	}
	if f.watchdog.Running() {
		t.Error("Running() should be false after Run returns")
	}
}

func TestWatchdog_RunPicksUpPendingCommand(t *testing.T) {
	f := newFixture(t)
	_ = f.channel.DepositCommand("queued before start")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.watchdog.Run(ctx) }()

	waitFor(t, "dispatch", func() bool { return len(f.invoker.Requests()) == 1 })
	cancel()
	<-done

	rec, _ := f.ledger.Read()
	if rec.Status != ledger.StatusStopped {
		t.Errorf("status after cancel = %q, want stopped", rec.Status)
	}
}

func TestWatchdog_RunRecoversFromLoopErrors(t *testing.T) {
	slot := &failingSlot{MemorySlot: mailbox.NewMemorySlot(), failures: 2}
	f := newFixtureWithChannel(t, mailbox.NewChannel(slot, mailbox.NewMemorySlot()))

	var errCount sync.WaitGroup
	errCount.Add(2)
	f.bus.Subscribe(event.TypeBridgeError, func(event.Event) { errCount.Done() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.watchdog.Run(ctx) }()

	errCount.Wait()
	_ = f.channel.DepositCommand("after errors")
	waitFor(t, "dispatch after errors", func() bool { return len(f.invoker.Requests()) == 1 })

	cancel()
	<-done
}

func TestWatchdog_RunTwice(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.watchdog.Run(ctx) }()
	waitFor(t, "running", f.watchdog.Running)

	if err := f.watchdog.Run(ctx); err == nil {
		t.Error("second concurrent Run should fail")
	}
	cancel()
	<-done
}

func TestWatchdog_InFlightDispatchSurvivesStop(t *testing.T) {
	f := newFixture(t)
	f.invoker.delay = 100 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- f.watchdog.Run(context.Background()) }()

	_ = f.channel.DepositCommand("long task")
	waitFor(t, "dispatch start", func() bool { return len(f.invoker.Requests()) == 1 })
	f.watchdog.Stop()
	<-done

	got := f.statuses.Statuses()
	if len(got) < 2 || got[len(got)-2] != "response_ready" || got[len(got)-1] != "stopped" {
		t.Errorf("statuses = %v, want response_ready before stopped", got)
	}
}

// --- SelfTest ---------------------------------------------------------------

func TestWatchdog_SelfTest(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		var got event.SelfTestEvent
		f.bus.Subscribe(event.TypeSelfTest, func(e event.Event) { got = e.(event.SelfTestEvent) })

		if !f.watchdog.SelfTest(context.Background()) {
			t.Fatal("SelfTest() = false")
		}
		if !got.OK || got.Command != "codex" {
			t.Errorf("event = %+v", got)
		}
		if reqs := f.invoker.Requests(); reqs[0].Input != bridge.SelfTestGreeting {
			t.Errorf("greeting = %q", reqs[0].Input)
		}
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture(t)
		f.invoker.err = errors.NewStartError("codex", errors.ErrAgentNotFound)
		var got event.SelfTestEvent
		f.bus.Subscribe(event.TypeSelfTest, func(e event.Event) { got = e.(event.SelfTestEvent) })

		if f.watchdog.SelfTest(context.Background()) {
			t.Fatal("SelfTest() = true, want false")
		}
		if got.OK || !strings.HasPrefix(got.Detail, "Error: ") {
			t.Errorf("event = %+v", got)
		}
	})
}

// --- Metrics ----------------------------------------------------------------

func TestWatchdog_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := bridge.MustNewMetrics(reg)
	f := newFixture(t, bridge.WithMetrics(m))

	f.watchdog.Dispatch(context.Background(), "one")
	f.invoker.err = errors.NewTimeoutError("codex", time.Second)
	f.watchdog.Dispatch(context.Background(), "two")

	expected := `
# HELP agentbridge_bridge_dispatches_total Commands handed to the agent, by outcome.
# TYPE agentbridge_bridge_dispatches_total counter
agentbridge_bridge_dispatches_total{agent="codex",outcome="response_ready"} 1
agentbridge_bridge_dispatches_total{agent="codex",outcome="timeout"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "agentbridge_bridge_dispatches_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}

	n, err := testutil.GatherAndCount(reg, "agentbridge_bridge_status")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 7 {
		t.Errorf("status series = %d, want 7", n)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *bridge.Metrics
	m.ObserveDispatch("codex", "timeout", time.Second)
	m.IncLoopError()
	m.SetStatus(ledger.StatusReady)
}

func TestNewWatchdog_PanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewWatchdog with nil invoker should panic")
		}
	}()
	bridge.NewWatchdog(nil, agent.NewCodexBackend(config.AgentConfig{}), mailbox.NewMemoryChannel(),
		ledger.NewMemoryLedger(), trigger.NewPoller(0))
}
