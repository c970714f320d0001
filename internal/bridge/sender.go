package bridge

import (
	"context"
	"time"

	"github.com/Iron-Ham/agentbridge/internal/event"
	"github.com/Iron-Ham/agentbridge/internal/ledger"
	"github.com/Iron-Ham/agentbridge/internal/logging"
	"github.com/Iron-Ham/agentbridge/internal/mailbox"
)

// DefaultMaxWait is how long Send waits for a response when the caller does
// not say otherwise.
const DefaultMaxWait = 120 * time.Second

// Sender deposits commands for a Watchdog and waits for its responses.
// It never writes the ledger.
type Sender struct {
	channel  *mailbox.Channel
	ledger   ledger.Ledger
	interval time.Duration
	bus      *event.Bus
	logger   *logging.Logger
}

// NewSender creates a Sender. Both arguments must be non-nil.
func NewSender(ch *mailbox.Channel, led ledger.Ledger, opts ...Option) *Sender {
	if ch == nil {
		panic("bridge: Channel must not be nil")
	}
	if led == nil {
		panic("bridge: Ledger must not be nil")
	}

	cfg := newConfig(opts)
	return &Sender{
		channel:  ch,
		ledger:   led,
		interval: cfg.sendInterval,
		bus:      cfg.bus,
		logger:   cfg.logger.WithComponent("sender"),
	}
}

// Send deposits message and polls the ledger until the watchdog answers it,
// returning the response text, or until maxWait elapses, returning false. A
// non-positive maxWait uses DefaultMaxWait. Send never blocks past maxWait by
// more than one polling interval.
//
// Only records published after the deposit count as an answer: the record
// found before depositing belongs to an earlier exchange. A fresh timeout,
// error or stopped record ends the wait early with no response.
func (s *Sender) Send(ctx context.Context, message string, maxWait time.Duration) (string, bool) {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	previous, hadPrevious := s.ledger.Read()
	fresh := func(rec ledger.Record) bool {
		return !hadPrevious || !sameRecord(rec, previous)
	}

	if err := s.channel.DepositCommand(message); err != nil {
		s.logger.Error("failed to deposit command", "error", err)
		return "", false
	}
	s.logger.Info("command deposited", "length", len(message))

	deadline := time.Now().Add(maxWait)
	var last ledger.Record
	seen := false

	for time.Now().Before(deadline) {
		rec, ok := s.ledger.Read()
		if ok && rec.Status == ledger.StatusResponseReady && fresh(rec) {
			response, err := s.channel.ReadResponse()
			if err == nil {
				s.logger.Info("response received", "length", len(response))
				s.bus.Publish(event.NewResponseReceivedEvent(response))
				return response, true
			}
			s.logger.Warn("response not readable yet", "error", err)
		}

		if ok && (!seen || !sameRecord(rec, last)) {
			last, seen = rec, true
			s.bus.Publish(event.NewStatusChangedEvent("sender", string(rec.Status), rec.Message))
		}

		if ok && rec.Status.IsTerminal() && rec.Status != ledger.StatusResponseReady && fresh(rec) {
			s.logger.Warn("watchdog gave no response", "status", string(rec.Status), "message", rec.Message)
			return "", false
		}

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("send cancelled")
			return "", false
		case <-timer.C:
		}
	}

	s.logger.Warn("timed out waiting for response", "max_wait", maxWait.String())
	return "", false
}

func sameRecord(a, b ledger.Record) bool {
	return a.Status == b.Status && a.Message == b.Message && a.Timestamp.Equal(b.Timestamp)
}

// LastResponse returns the response slot content without waiting. It
// returns false when there is no response.
func (s *Sender) LastResponse() (string, bool) {
	response, err := s.channel.ReadResponse()
	if err != nil || response == "" {
		return "", false
	}
	return response, true
}

// Status returns the current ledger record.
func (s *Sender) Status() (ledger.Record, bool) {
	return s.ledger.Read()
}
