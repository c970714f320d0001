package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/agentbridge/internal/agent"
	"github.com/Iron-Ham/agentbridge/internal/errors"
	"github.com/Iron-Ham/agentbridge/internal/event"
	"github.com/Iron-Ham/agentbridge/internal/ledger"
	"github.com/Iron-Ham/agentbridge/internal/logging"
	"github.com/Iron-Ham/agentbridge/internal/mailbox"
	"github.com/Iron-Ham/agentbridge/internal/trigger"
	"github.com/Iron-Ham/agentbridge/internal/util"
)

// SelfTestGreeting is the prompt sent by SelfTest.
const SelfTestGreeting = "Hello, respond with one sentence confirming you are working."

// sendingPreviewLen is how much of a command the "sending" status shows.
const sendingPreviewLen = 50

// Watchdog turns commands deposited in a channel into agent invocations.
type Watchdog struct {
	invoker agent.Invoker
	backend agent.Backend
	channel *mailbox.Channel
	ledger  ledger.Ledger
	trigger trigger.Trigger

	timeout      time.Duration
	errorBackoff time.Duration
	bus          *event.Bus
	metrics      *Metrics
	logger       *logging.Logger
	now          func() time.Time

	running  atomic.Bool
	mu       sync.Mutex
	cancel   context.CancelFunc
	lastSeen time.Time
}

// NewWatchdog creates a Watchdog. All arguments must be non-nil; passing nil
// panics early to surface wiring bugs immediately.
func NewWatchdog(inv agent.Invoker, backend agent.Backend, ch *mailbox.Channel, led ledger.Ledger, trig trigger.Trigger, opts ...Option) *Watchdog {
	if inv == nil {
		panic("bridge: Invoker must not be nil")
	}
	if backend == nil {
		panic("bridge: Backend must not be nil")
	}
	if ch == nil {
		panic("bridge: Channel must not be nil")
	}
	if led == nil {
		panic("bridge: Ledger must not be nil")
	}
	if trig == nil {
		panic("bridge: Trigger must not be nil")
	}

	cfg := newConfig(opts)
	return &Watchdog{
		invoker:      inv,
		backend:      backend,
		channel:      ch,
		ledger:       led,
		trigger:      trig,
		timeout:      cfg.timeout,
		errorBackoff: cfg.errorBackoff,
		bus:          cfg.bus,
		metrics:      cfg.metrics,
		logger:       cfg.logger.WithComponent("watchdog").WithAgent(string(backend.Name())),
		now:          cfg.now,
	}
}

// Run publishes "ready" and watches the command slot until Stop is called or
// ctx is done, then publishes "stopped". A command that is being dispatched
// when the watchdog is asked to stop runs to completion or timeout first.
func (w *Watchdog) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("bridge: watchdog already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()
	defer cancel()

	if err := w.channel.EnsureCommand(); err != nil {
		w.running.Store(false)
		return errors.Wrap(err, "prepare command slot")
	}

	w.logger.Info("watchdog started", "timeout", w.timeout.String())
	w.publish(ledger.StatusReady, "Waiting for commands")

	for w.Running() && loopCtx.Err() == nil {
		if _, err := w.Poll(loopCtx); err != nil {
			w.loopError(loopCtx, err)
			continue
		}
		if err := w.trigger.Wait(loopCtx); err != nil {
			if loopCtx.Err() != nil {
				break
			}
			w.loopError(loopCtx, err)
		}
	}

	w.running.Store(false)
	w.publish(ledger.StatusStopped, "Bridge stopped")
	w.logger.Info("watchdog stopped")
	return nil
}

// Stop asks Run to return. The loop observes the request once per cycle.
func (w *Watchdog) Stop() {
	w.running.Store(false)
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()
}

// Running reports whether Run is active.
func (w *Watchdog) Running() bool {
	return w.running.Load()
}

// Poll performs one detection cycle: if the command slot changed since the
// last cycle, its content is consumed and dispatched. It reports whether a
// command was dispatched.
func (w *Watchdog) Poll(ctx context.Context) (bool, error) {
	modTime, err := w.channel.CommandModTime()
	if err != nil {
		return false, err
	}
	if !modTime.After(w.lastSeen) {
		return false, nil
	}
	w.lastSeen = modTime

	raw, err := w.channel.ConsumeCommand()
	if err != nil {
		return false, err
	}
	command := strings.TrimSpace(raw)
	if command == "" {
		return false, nil
	}

	w.logger.Info("command detected", "length", len(command))
	w.bus.Publish(event.NewCommandDetectedEvent(command))
	w.Dispatch(ctx, command)
	return true, nil
}

// Dispatch sends command to the agent as a new session and publishes the
// outcome. It returns the agent output and whether a response was written.
// Cancelling ctx does not interrupt an invocation already under way.
func (w *Watchdog) Dispatch(ctx context.Context, command string) (string, bool) {
	w.publish(ledger.StatusSending, "Sending: "+util.Head(command, sendingPreviewLen)+"...")

	agentName := string(w.backend.Name())
	start := time.Now()
	res, err := w.invoker.Invoke(context.WithoutCancel(ctx), agent.Request{
		Input:   command,
		Mode:    agent.ModeNew,
		Timeout: w.timeout,
	})
	elapsed := time.Since(start)

	if errors.IsTimeout(err) {
		msg := fmt.Sprintf("%s response timed out after %d seconds", w.backend.DisplayName(), int(w.timeout/time.Second))
		w.logger.Warn("dispatch timed out", "duration", elapsed.String())
		w.metrics.ObserveDispatch(agentName, outcomeTimeout, elapsed)
		w.publish(ledger.StatusTimeout, msg)
		return "", false
	}
	if err != nil {
		w.logger.Error("dispatch failed", "error", err)
		w.metrics.ObserveDispatch(agentName, outcomeError, elapsed)
		w.publish(ledger.StatusError, "Error: "+err.Error())
		return "", false
	}

	output := res.Combined()
	if err := w.channel.DepositResponse(mailbox.FormatResponse(command, output, w.now())); err != nil {
		w.logger.Error("failed to write response", "error", err)
		w.metrics.ObserveDispatch(agentName, outcomeError, elapsed)
		w.publish(ledger.StatusError, "Error: "+err.Error())
		return "", false
	}

	w.logger.Info("response written", "exit_code", res.ExitCode, "duration", elapsed.String())
	w.metrics.ObserveDispatch(agentName, outcomeResponse, elapsed)
	w.publish(ledger.StatusResponseReady, "Response available")
	return output, true
}

// SelfTest sends SelfTestGreeting through the normal dispatch path. A failure
// is reported but does not prevent Run.
func (w *Watchdog) SelfTest(ctx context.Context) bool {
	output, ok := w.Dispatch(ctx, SelfTestGreeting)
	detail := strings.TrimSpace(output)
	if !ok {
		if rec, found := w.ledger.Read(); found {
			detail = rec.Message
		}
		w.logger.Warn("self test failed", "command", w.backend.Command(), "detail", detail)
	}
	w.bus.Publish(event.NewSelfTestEvent(ok, w.backend.Command(), detail))
	return ok
}

func (w *Watchdog) publish(status ledger.Status, message string) {
	if _, err := w.ledger.Publish(status, message); err != nil {
		w.logger.Error("failed to publish status", "status", string(status), "error", err)
	}
	w.metrics.SetStatus(status)
	w.bus.Publish(event.NewStatusChangedEvent("watchdog", string(status), message))
}

func (w *Watchdog) loopError(ctx context.Context, err error) {
	w.logger.Error("watchdog loop error", "error", err)
	w.metrics.IncLoopError()
	w.bus.Publish(event.NewBridgeErrorEvent(err))

	timer := time.NewTimer(w.errorBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
